package orders

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/youmiiii1/go-shop/internal/auth"
	"github.com/youmiiii1/go-shop/internal/domain"
)

type stubOrderStore struct {
	order *domain.Order
	page  *domain.OrderPage
	err   error

	gotPage     int
	gotPageSize int
}

func (s *stubOrderStore) GetByID(_ context.Context, _ string) (*domain.Order, error) {
	return s.order, s.err
}

func (s *stubOrderStore) ListByUser(_ context.Context, _ string, page, pageSize int) (*domain.OrderPage, error) {
	s.gotPage = page
	s.gotPageSize = pageSize
	return s.page, s.err
}

func listRequest(query string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/orders"+query, nil)
	ctx := auth.ContextWithIdentity(req.Context(), auth.Identity{UserID: "user-1", Role: auth.RoleBuyer})
	return req.WithContext(ctx)
}

func TestHandleList_Defaults(t *testing.T) {
	store := &stubOrderStore{page: &domain.OrderPage{Items: []domain.Order{}, Total: 0, Page: 1, PageSize: 10}}
	handler := NewHandler(store, slog.New(slog.DiscardHandler))

	rec := httptest.NewRecorder()
	handler.HandleList(rec, listRequest(""))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if store.gotPage != 1 || store.gotPageSize != 10 {
		t.Errorf("expected defaults (1, 10), got (%d, %d)", store.gotPage, store.gotPageSize)
	}
}

func TestHandleList_ExplicitPagination(t *testing.T) {
	store := &stubOrderStore{page: &domain.OrderPage{Items: []domain.Order{}, Page: 3, PageSize: 25}}
	handler := NewHandler(store, slog.New(slog.DiscardHandler))

	rec := httptest.NewRecorder()
	handler.HandleList(rec, listRequest("?page=3&page_size=25"))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if store.gotPage != 3 || store.gotPageSize != 25 {
		t.Errorf("expected (3, 25), got (%d, %d)", store.gotPage, store.gotPageSize)
	}
}

func TestHandleList_InvalidPagination(t *testing.T) {
	for _, query := range []string{
		"?page=0",
		"?page=-1",
		"?page=abc",
		"?page_size=0",
		"?page_size=101",
		"?page_size=xyz",
	} {
		handler := NewHandler(&stubOrderStore{}, slog.New(slog.DiscardHandler))

		rec := httptest.NewRecorder()
		handler.HandleList(rec, listRequest(query))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("query %q: expected status 400, got %d", query, rec.Code)
		}
	}
}

func TestHandleGet(t *testing.T) {
	order := &domain.Order{
		ID:          "order-1",
		UserID:      "user-1",
		Status:      domain.OrderStatusPending,
		TotalAmount: decimal.RequireFromString("25.00"),
	}
	handler := NewHandler(&stubOrderStore{order: order}, slog.New(slog.DiscardHandler))

	req := listRequest("")
	req.SetPathValue("id", "order-1")

	rec := httptest.NewRecorder()
	handler.HandleGet(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var got domain.Order
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.ID != "order-1" {
		t.Errorf("expected order order-1, got %q", got.ID)
	}
}

func TestHandleGet_NotFound(t *testing.T) {
	handler := NewHandler(&stubOrderStore{order: nil}, slog.New(slog.DiscardHandler))

	req := listRequest("")
	req.SetPathValue("id", "missing")

	rec := httptest.NewRecorder()
	handler.HandleGet(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rec.Code)
	}
}

func TestHandleGet_ForeignOrder(t *testing.T) {
	// Another user's order is indistinguishable from a missing one.
	order := &domain.Order{ID: "order-2", UserID: "someone-else"}
	handler := NewHandler(&stubOrderStore{order: order}, slog.New(slog.DiscardHandler))

	req := listRequest("")
	req.SetPathValue("id", "order-2")

	rec := httptest.NewRecorder()
	handler.HandleGet(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["error"] != "Order not found" {
		t.Errorf("expected 'Order not found', got %q", body["error"])
	}
}
