package news

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"materialhub/internal/rest"
)

const pageBody = `{
	"status": "ok",
	"totalResults": 2,
	"articles": [
		{"source": {"id": null, "name": "Example"}, "author": null, "title": "First", "url": "https://example.com/1", "publishedAt": "2026-10-19T08:00:00Z"},
		{"source": {"id": "wire", "name": "Wire"}, "author": "A. Writer", "title": "Second", "description": "desc", "url": "https://example.com/2", "urlToImage": "https://example.com/2.png", "publishedAt": "2026-10-19T07:00:00Z", "content": "body"}
	]
}`

func TestTopHeadlinesSendsParametersAndDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/top-headlines" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("country") != "us" || q.Get("apiKey") != "secret" || q.Get("pageSize") != "20" || q.Get("page") != "1" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(pageBody))
	}))
	defer srv.Close()

	repo := newTestRepository(srv)
	result := repo.TopHeadlines(context.Background(), "", 0, 0)
	if result.Err != nil {
		t.Fatalf("top headlines: %v", result.Err)
	}
	if len(result.Page.Articles) != 2 {
		t.Fatalf("expected 2 articles, got %d", len(result.Page.Articles))
	}
	first, second := result.Page.Articles[0], result.Page.Articles[1]
	if first.Source.ID != nil || first.Author != nil || first.Source.Name != "Example" {
		t.Fatalf("unexpected first article %+v", first)
	}
	if second.Author == nil || *second.Author != "A. Writer" || second.URLToImage == nil {
		t.Fatalf("unexpected second article %+v", second)
	}
}

func TestSearchSortsByPublishedAt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/everything" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("q") != "golang" || q.Get("sortBy") != "publishedAt" || q.Get("page") != "3" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(pageBody))
	}))
	defer srv.Close()

	result := newTestRepository(srv).Search(context.Background(), "golang", 20, 3)
	if result.Err != nil {
		t.Fatalf("search: %v", result.Err)
	}
}

func TestFailureIsReturnedInResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"status":"error","code":"apiKeyInvalid","message":"Your API key is invalid."}`))
	}))
	defer srv.Close()

	result := newTestRepository(srv).TopHeadlines(context.Background(), "gb", 10, 1)
	var statusErr *rest.StatusError
	if !errors.As(result.Err, &statusErr) {
		t.Fatalf("expected status error, got %v", result.Err)
	}
	if statusErr.Code != "apiKeyInvalid" {
		t.Fatalf("unexpected code %q", statusErr.Code)
	}
}

func newTestRepository(srv *httptest.Server) *Repository {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRepository(logger, NewClient(logger, srv.Client(), srv.URL+"/", "secret"))
}
