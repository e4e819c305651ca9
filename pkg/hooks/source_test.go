package hooks

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCountsAPISourceFetchesFeatureCount(t *testing.T) {
	var gotPath, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"count":7}}`))
	}))
	defer server.Close()

	source, err := NewCountsAPISource(server.URL, func() string { return "tok-123" }, server.Client())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	count, err := source.Count(context.Background(), FeatureOrders)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 7 {
		t.Fatalf("expected count 7, got %d", count)
	}
	if gotPath != "/api/v1/counts/orders" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotAuth != "Bearer tok-123" {
		t.Fatalf("unexpected authorization header %q", gotAuth)
	}
}

func TestCountsAPISourceNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	source, err := NewCountsAPISource(server.URL, func() string { return "expired" }, server.Client())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := source.Count(context.Background(), FeatureMessages); err == nil {
		t.Fatal("expected error for non-200 response")
	} else if !strings.Contains(err.Error(), "401") {
		t.Fatalf("expected status in error, got %v", err)
	}
}

func TestNewCountsAPISourceValidation(t *testing.T) {
	if _, err := NewCountsAPISource("", func() string { return "" }, nil); err == nil {
		t.Fatal("expected error for empty base url")
	}
	if _, err := NewCountsAPISource("http://localhost:8080", nil, nil); err == nil {
		t.Fatal("expected error for nil token func")
	}

	source, err := NewCountsAPISource("http://localhost:8080/", func() string { return "" }, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if source.baseURL != "http://localhost:8080" {
		t.Fatalf("expected trailing slash trimmed, got %q", source.baseURL)
	}
}
