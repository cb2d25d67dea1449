package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/youmiiii1/go-shop/internal/auth"
	"github.com/youmiiii1/go-shop/internal/domain"
)

type Service interface {
	Checkout(ctx context.Context, userID string) (*domain.Order, error)
}

type Handler struct {
	svc    Service
	logger *slog.Logger
}

func NewHandler(svc Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) HandleCheckout(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.FromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	order, err := h.svc.Checkout(r.Context(), identity.UserID)
	if err != nil {
		switch {
		case IsClientFault(err):
			h.logger.Info("checkout rejected", "user_id", identity.UserID, "reason", err.Error())
			h.writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrTxContention):
			h.logger.Warn("checkout contended", "user_id", identity.UserID)
			h.writeError(w, http.StatusServiceUnavailable, err.Error())
		default:
			h.logger.Error("checkout failed", "error", err, "user_id", identity.UserID)
			h.writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	h.logger.Info("checkout complete", "order_id", order.ID, "user_id", identity.UserID)
	h.writeJSON(w, http.StatusCreated, order)
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
