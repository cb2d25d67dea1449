package orders

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/youmiiii1/go-shop/internal/auth"
	"github.com/youmiiii1/go-shop/internal/domain"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

type OrderStore interface {
	GetByID(ctx context.Context, orderID string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string, page, pageSize int) (*domain.OrderPage, error)
}

type Handler struct {
	store  OrderStore
	logger *slog.Logger
}

func NewHandler(store OrderStore, logger *slog.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.FromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	page, pageSize, ok := parsePagination(r)
	if !ok {
		h.writeError(w, http.StatusBadRequest, "invalid pagination parameters")
		return
	}

	result, err := h.store.ListByUser(r.Context(), identity.UserID, page, pageSize)
	if err != nil {
		h.logger.Error("failed to list orders", "error", err, "user_id", identity.UserID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("orders listed", "user_id", identity.UserID, "page", page, "count", len(result.Items))
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.FromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	order, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get order", "error", err, "id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if order == nil || order.UserID != identity.UserID {
		h.writeError(w, http.StatusNotFound, "Order not found")
		return
	}

	h.writeJSON(w, http.StatusOK, order)
}

// parsePagination applies the 1-based page contract with page_size in [1,100].
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
