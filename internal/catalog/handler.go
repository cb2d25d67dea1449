package catalog

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/youmiiii1/go-shop/internal/auth"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

type Handler struct {
	repo   *CatalogRepository
	logger *slog.Logger
}

func NewHandler(repo *CatalogRepository, logger *slog.Logger) *Handler {
	return &Handler{repo: repo, logger: logger}
}

func (h *Handler) HandleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.repo.ListCategories(r.Context())
	if err != nil {
		h.logger.Error("failed to list categories", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, categories)
}

func (h *Handler) HandleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var input CategoryInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(input.Name) < 3 || len(input.Name) > 50 {
		h.writeError(w, http.StatusBadRequest, "name must be 3-50 characters")
		return
	}

	category, err := h.repo.CreateCategory(r.Context(), input)
	if err != nil {
		if errors.Is(err, ErrParentNotFound) {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to create category", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("category created", "category_id", category.ID, "name", category.Name)
	h.writeJSON(w, http.StatusCreated, category)
}

func (h *Handler) HandleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var input CategoryInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(input.Name) < 3 || len(input.Name) > 50 {
		h.writeError(w, http.StatusBadRequest, "name must be 3-50 characters")
		return
	}

	category, err := h.repo.UpdateCategory(r.Context(), id, input)
	if err != nil {
		switch {
		case errors.Is(err, ErrCategoryNotFound):
			h.writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, ErrParentNotFound), errors.Is(err, ErrSelfParent):
			h.writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("failed to update category", "error", err, "id", id)
			h.writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	h.writeJSON(w, http.StatusOK, category)
}

func (h *Handler) HandleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := h.repo.DeleteCategory(r.Context(), id); err != nil {
		if errors.Is(err, ErrCategoryNotFound) {
			h.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		h.logger.Error("failed to delete category", "error", err, "id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("category deactivated", "category_id", id)
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "success", "message": "Category marked as inactive"})
}

func (h *Handler) HandleListProducts(w http.ResponseWriter, r *http.Request) {
	page, pageSize, ok := parsePagination(r)
	if !ok {
		h.writeError(w, http.StatusBadRequest, "invalid pagination parameters")
		return
	}

	products, err := h.repo.ListProducts(r.Context(), page, pageSize)
	if err != nil {
		h.logger.Error("failed to list products", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, products)
}

func (h *Handler) HandleListProductsByCategory(w http.ResponseWriter, r *http.Request) {
	categoryID := r.PathValue("categoryId")

	products, err := h.repo.ListProductsByCategory(r.Context(), categoryID)
	if err != nil {
		if errors.Is(err, ErrCategoryNotFound) {
			h.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		h.logger.Error("failed to list products by category", "error", err, "category_id", categoryID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, products)
}

func (h *Handler) HandleGetProduct(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	product, err := h.repo.GetProduct(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, ErrProductNotFound):
			h.writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, ErrCategoryNotFound):
			h.writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("failed to get product", "error", err, "id", id)
			h.writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	h.writeJSON(w, http.StatusOK, product)
}

func (h *Handler) HandleCreateProduct(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.FromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	input, ok := h.decodeProductInput(w, r)
	if !ok {
		return
	}

	product, err := h.repo.CreateProduct(r.Context(), identity.UserID, input)
	if err != nil {
		if errors.Is(err, ErrCategoryNotFound) {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to create product", "error", err, "seller_id", identity.UserID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("product created", "product_id", product.ID, "seller_id", identity.UserID)
	h.writeJSON(w, http.StatusCreated, product)
}

func (h *Handler) HandleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.FromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	id := r.PathValue("id")
	input, ok := h.decodeProductInput(w, r)
	if !ok {
		return
	}

	product, err := h.repo.UpdateProduct(r.Context(), id, identity.UserID, input)
	if err != nil {
		switch {
		case errors.Is(err, ErrProductNotFound):
			h.writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, ErrNotOwner):
			h.writeError(w, http.StatusForbidden, "You can only update your own products")
		case errors.Is(err, ErrCategoryNotFound):
			h.writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("failed to update product", "error", err, "id", id)
			h.writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	h.writeJSON(w, http.StatusOK, product)
}

func (h *Handler) HandleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.FromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	id := r.PathValue("id")

	product, err := h.repo.DeleteProduct(r.Context(), id, identity.UserID)
	if err != nil {
		switch {
		case errors.Is(err, ErrProductNotFound):
			h.writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, ErrNotOwner):
			h.writeError(w, http.StatusForbidden, "You can only delete your own products")
		default:
			h.logger.Error("failed to delete product", "error", err, "id", id)
			h.writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	h.logger.Info("product deactivated", "product_id", id, "seller_id", identity.UserID)
	h.writeJSON(w, http.StatusOK, product)
}

func (h *Handler) decodeProductInput(w http.ResponseWriter, r *http.Request) (ProductInput, bool) {
	var input ProductInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return input, false
	}

	switch {
	case len(input.Name) < 3 || len(input.Name) > 100:
		h.writeError(w, http.StatusBadRequest, "name must be 3-100 characters")
	case !input.Price.IsPositive():
		h.writeError(w, http.StatusBadRequest, "price must be greater than 0")
	case input.Stock < 0:
		h.writeError(w, http.StatusBadRequest, "stock must be 0 or greater")
	case input.CategoryID == "":
		h.writeError(w, http.StatusBadRequest, "category_id is required")
	default:
		return input, true
	}

	return input, false
}

func parsePagination(r *http.Request) (page, pageSize int, ok bool) {
	page = 1
	pageSize = defaultPageSize

	if raw := r.URL.Query().Get("page"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return 0, 0, false
		}
		page = parsed
	}

	if raw := r.URL.Query().Get("page_size"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > maxPageSize {
			return 0, 0, false
		}
		pageSize = parsed
	}

	return page, pageSize, true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
