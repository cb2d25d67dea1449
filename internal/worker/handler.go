package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/youmiiii1/go-shop/internal/domain"
)

type RatingStore interface {
	RecomputeRating(ctx context.Context, productID string) error
}

// RatingHandler consumes review change events and refreshes the affected
// product's average rating.
type RatingHandler struct {
	store  RatingStore
	logger *slog.Logger
}

func NewRatingHandler(store RatingStore, logger *slog.Logger) *RatingHandler {
	return &RatingHandler{store: store, logger: logger}
}

func (h *RatingHandler) Handle(ctx context.Context, payload []byte) error {
	var event domain.ReviewChangedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("unmarshal review changed event: %w", err)
	}

	if err := h.store.RecomputeRating(ctx, event.ProductID); err != nil {
		h.logger.Error("failed to recompute rating", "error", err, "product_id", event.ProductID)
		return fmt.Errorf("recompute rating: %w", err)
	}

	h.logger.Info("product rating recomputed", "product_id", event.ProductID, "review_id", event.ReviewID)
	return nil
}
