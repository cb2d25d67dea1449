package reviews

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/youmiiii1/go-shop/internal/auth"
	"github.com/youmiiii1/go-shop/internal/domain"
)

type stubReviewStore struct {
	reviews []domain.Review
	review  *domain.Review
	err     error

	recomputed []string
	deleted    []string
}

func (s *stubReviewStore) ListActive(_ context.Context) ([]domain.Review, error) {
	return s.reviews, s.err
}

func (s *stubReviewStore) ListByProduct(_ context.Context, _ string) ([]domain.Review, error) {
	return s.reviews, s.err
}

func (s *stubReviewStore) Create(_ context.Context, userID, productID string, grade int, comment *string) (*domain.Review, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Review{ID: "review-1", UserID: userID, ProductID: productID, Grade: grade, Comment: comment}, nil
}

func (s *stubReviewStore) Get(_ context.Context, _ string) (*domain.Review, error) {
	return s.review, s.err
}

func (s *stubReviewStore) SoftDelete(_ context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	return s.err
}

func (s *stubReviewStore) RecomputeRating(_ context.Context, productID string) error {
	s.recomputed = append(s.recomputed, productID)
	return nil
}

type stubPublisher struct {
	keys   []string
	events []any
	err    error
}

func (p *stubPublisher) Publish(_ context.Context, key string, event any) error {
	p.keys = append(p.keys, key)
	p.events = append(p.events, event)
	return p.err
}

func reviewRequest(method, target, body, userID, role string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	if userID != "" {
		ctx := auth.ContextWithIdentity(req.Context(), auth.Identity{UserID: userID, Role: role})
		req = req.WithContext(ctx)
	}
	return req
}

func TestHandleCreate_PublishesEvent(t *testing.T) {
	store := &stubReviewStore{}
	publisher := &stubPublisher{}
	handler := NewHandler(store, publisher, slog.New(slog.DiscardHandler))

	rec := httptest.NewRecorder()
	handler.HandleCreate(rec, reviewRequest(http.MethodPost, "/reviews",
		`{"product_id":"prod-1","grade":4,"comment":"solid"}`, "user-1", auth.RoleBuyer))

	require.Equal(t, http.StatusCreated, rec.Code)

	require.Len(t, publisher.events, 1)
	assert.Equal(t, "prod-1", publisher.keys[0], "events must be keyed by product id")
	event, ok := publisher.events[0].(domain.ReviewChangedEvent)
	require.True(t, ok)
	assert.Equal(t, "review-1", event.ReviewID)
	assert.Equal(t, "prod-1", event.ProductID)

	assert.Empty(t, store.recomputed, "recompute should be deferred to the worker")
}

func TestHandleCreate_RecomputesInlineWithoutProducer(t *testing.T) {
	store := &stubReviewStore{}
	handler := NewHandler(store, nil, slog.New(slog.DiscardHandler))

	rec := httptest.NewRecorder()
	handler.HandleCreate(rec, reviewRequest(http.MethodPost, "/reviews",
		`{"product_id":"prod-1","grade":5}`, "user-1", auth.RoleBuyer))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, []string{"prod-1"}, store.recomputed)
}

func TestHandleCreate_PublishFailureDoesNotFailRequest(t *testing.T) {
	store := &stubReviewStore{}
	publisher := &stubPublisher{err: assert.AnError}
	handler := NewHandler(store, publisher, slog.New(slog.DiscardHandler))

	rec := httptest.NewRecorder()
	handler.HandleCreate(rec, reviewRequest(http.MethodPost, "/reviews",
		`{"product_id":"prod-1","grade":3}`, "user-1", auth.RoleBuyer))

	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestHandleCreate_InvalidGrade(t *testing.T) {
	for _, body := range []string{
		`{"product_id":"prod-1","grade":0}`,
		`{"product_id":"prod-1","grade":6}`,
		`{"grade":3}`,
	} {
		handler := NewHandler(&stubReviewStore{}, nil, slog.New(slog.DiscardHandler))

		rec := httptest.NewRecorder()
		handler.HandleCreate(rec, reviewRequest(http.MethodPost, "/reviews", body, "user-1", auth.RoleBuyer))

		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %q", body)
	}
}

func TestHandleDelete_Author(t *testing.T) {
	store := &stubReviewStore{review: &domain.Review{ID: "review-1", UserID: "user-1", ProductID: "prod-1"}}
	handler := NewHandler(store, nil, slog.New(slog.DiscardHandler))

	req := reviewRequest(http.MethodDelete, "/reviews/review-1", "", "user-1", auth.RoleBuyer)
	req.SetPathValue("id", "review-1")

	rec := httptest.NewRecorder()
	handler.HandleDelete(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"review-1"}, store.deleted)
	assert.Equal(t, []string{"prod-1"}, store.recomputed)

	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "Review deleted", body["message"])
}

func TestHandleDelete_AdminOverride(t *testing.T) {
	store := &stubReviewStore{review: &domain.Review{ID: "review-1", UserID: "user-1", ProductID: "prod-1"}}
	handler := NewHandler(store, nil, slog.New(slog.DiscardHandler))

	req := reviewRequest(http.MethodDelete, "/reviews/review-1", "", "admin-1", auth.RoleAdmin)
	req.SetPathValue("id", "review-1")

	rec := httptest.NewRecorder()
	handler.HandleDelete(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"review-1"}, store.deleted)
}

func TestHandleDelete_NotAuthor(t *testing.T) {
	store := &stubReviewStore{review: &domain.Review{ID: "review-1", UserID: "user-1", ProductID: "prod-1"}}
	handler := NewHandler(store, nil, slog.New(slog.DiscardHandler))

	req := reviewRequest(http.MethodDelete, "/reviews/review-1", "", "user-2", auth.RoleBuyer)
	req.SetPathValue("id", "review-1")

	rec := httptest.NewRecorder()
	handler.HandleDelete(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, store.deleted)

	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "You can only delete your own reviews", body["error"])
}

func TestHandleDelete_NotFound(t *testing.T) {
	handler := NewHandler(&stubReviewStore{review: nil}, nil, slog.New(slog.DiscardHandler))

	req := reviewRequest(http.MethodDelete, "/reviews/missing", "", "user-1", auth.RoleBuyer)
	req.SetPathValue("id", "missing")

	rec := httptest.NewRecorder()
	handler.HandleDelete(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
