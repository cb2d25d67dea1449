package reviews

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/youmiiii1/go-shop/internal/auth"
	"github.com/youmiiii1/go-shop/internal/domain"
)

type ReviewStore interface {
	ListActive(ctx context.Context) ([]domain.Review, error)
	ListByProduct(ctx context.Context, productID string) ([]domain.Review, error)
	Create(ctx context.Context, userID, productID string, grade int, comment *string) (*domain.Review, error)
	Get(ctx context.Context, id string) (*domain.Review, error)
	SoftDelete(ctx context.Context, id string) error
	RecomputeRating(ctx context.Context, productID string) error
}

type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// Handler serves review endpoints. After a mutation it hands the affected
// product to the rating worker via Kafka, or recomputes inline when no
// producer is configured.
type Handler struct {
	store    ReviewStore
	producer Publisher
	logger   *slog.Logger
}

func NewHandler(store ReviewStore, producer Publisher, logger *slog.Logger) *Handler {
	return &Handler{store: store, producer: producer, logger: logger}
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.store.ListActive(r.Context())
	if err != nil {
		h.logger.Error("failed to list reviews", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, reviews)
}

func (h *Handler) HandleListByProduct(w http.ResponseWriter, r *http.Request) {
	productID := r.PathValue("id")

	reviews, err := h.store.ListByProduct(r.Context(), productID)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			h.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		h.logger.Error("failed to list product reviews", "error", err, "product_id", productID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, reviews)
}

type createReviewRequest struct {
	ProductID string  `json:"product_id"`
	Grade     int     `json:"grade"`
	Comment   *string `json:"comment"`
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.FromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req createReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ProductID == "" || req.Grade < 1 || req.Grade > 5 {
		h.writeError(w, http.StatusBadRequest, "product_id and grade in [1,5] are required")
		return
	}

	review, err := h.store.Create(r.Context(), identity.UserID, req.ProductID, req.Grade, req.Comment)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			h.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		h.logger.Error("failed to create review", "error", err, "user_id", identity.UserID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.propagateRatingChange(r.Context(), review.ID, review.ProductID)

	h.logger.Info("review created", "review_id", review.ID, "product_id", review.ProductID)
	h.writeJSON(w, http.StatusCreated, review)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.FromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	id := r.PathValue("id")

	review, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get review", "error", err, "id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if review == nil {
		h.writeError(w, http.StatusNotFound, "Review not found")
		return
	}
	if review.UserID != identity.UserID && identity.Role != auth.RoleAdmin {
		h.writeError(w, http.StatusForbidden, "You can only delete your own reviews")
		return
	}

	if err := h.store.SoftDelete(r.Context(), id); err != nil {
		if errors.Is(err, ErrReviewNotFound) {
			h.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		h.logger.Error("failed to delete review", "error", err, "id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.propagateRatingChange(r.Context(), id, review.ProductID)

	h.logger.Info("review deleted", "review_id", id, "product_id", review.ProductID)
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "Review deleted"})
}

// propagateRatingChange never fails the request: the rating is eventually
// consistent with the last committed review mutation.
func (h *Handler) propagateRatingChange(ctx context.Context, reviewID, productID string) {
	if h.producer != nil {
		event := domain.ReviewChangedEvent{
			ReviewID:  reviewID,
			ProductID: productID,
			Timestamp: time.Now().UTC(),
		}
		if err := h.producer.Publish(ctx, productID, event); err != nil {
			h.logger.Error("failed to publish review changed event", "error", err, "product_id", productID)
		}
		return
	}

	if err := h.store.RecomputeRating(ctx, productID); err != nil {
		h.logger.Error("failed to recompute product rating", "error", err, "product_id", productID)
	}
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
