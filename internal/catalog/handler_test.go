package catalog

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// Validation rejects bad input before touching the repository, so these
// tests run against a nil repo.

func TestHandleCreateCategory_NameLength(t *testing.T) {
	handler := NewHandler(nil, slog.New(slog.DiscardHandler))

	for _, body := range []string{
		`{"name":"ab"}`,
		`{"name":"` + strings.Repeat("x", 51) + `"}`,
		`not json`,
	} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/categories", strings.NewReader(body))
		handler.HandleCreateCategory(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: expected status 400, got %d", body, rec.Code)
		}
	}
}

func TestDecodeProductInput_Validation(t *testing.T) {
	handler := NewHandler(nil, slog.New(slog.DiscardHandler))

	tests := []struct {
		name string
		body string
	}{
		{"short name", `{"name":"ab","price":"10.00","stock":1,"category_id":"cat-1"}`},
		{"zero price", `{"name":"Widget","price":"0","stock":1,"category_id":"cat-1"}`},
		{"negative price", `{"name":"Widget","price":"-1.50","stock":1,"category_id":"cat-1"}`},
		{"negative stock", `{"name":"Widget","price":"10.00","stock":-1,"category_id":"cat-1"}`},
		{"missing category", `{"name":"Widget","price":"10.00","stock":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/products", strings.NewReader(tt.body))

			input, ok := handler.decodeProductInput(rec, req)
			if ok {
				t.Errorf("expected input %+v to be rejected", input)
			}
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected status 400, got %d", rec.Code)
			}
		})
	}
}

func TestDecodeProductInput_Valid(t *testing.T) {
	handler := NewHandler(nil, slog.New(slog.DiscardHandler))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/products",
		strings.NewReader(`{"name":"Widget","description":"A widget","price":"10.00","stock":5,"category_id":"cat-1"}`))

	input, ok := handler.decodeProductInput(rec, req)
	if !ok {
		t.Fatalf("expected input to pass validation, response: %s", rec.Body.String())
	}
	if input.Name != "Widget" || input.Stock != 5 || input.CategoryID != "cat-1" {
		t.Errorf("unexpected input: %+v", input)
	}
}

func TestParsePagination_Bounds(t *testing.T) {
	for _, query := range []string{"?page=0", "?page_size=101", "?page=nope"} {
		req := httptest.NewRequest(http.MethodGet, "/products"+query, nil)
		if _, _, ok := parsePagination(req); ok {
			t.Errorf("query %q: expected rejection", query)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/products?page=2&page_size=50", nil)
	page, pageSize, ok := parsePagination(req)
	if !ok || page != 2 || pageSize != 50 {
		t.Errorf("expected (2, 50, true), got (%d, %d, %v)", page, pageSize, ok)
	}
}
