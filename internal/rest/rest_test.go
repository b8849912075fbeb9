package rest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRequestURLJoinsBaseAndQuery(t *testing.T) {
	got, err := NewRequest("https://newsapi.org", "/v2/top-headlines").
		Param("country", "us").
		Param("empty", "").
		IntParam("page", 2).
		URL()
	if err != nil {
		t.Fatalf("build url: %v", err)
	}
	want := "https://newsapi.org/v2/top-headlines?country=us&page=2"
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestGetJSONDecodesBodyAndSetsUserAgent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua != "materialhub-test" {
			t.Errorf("expected user agent, got %q", ua)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"ok"}`))
	}))
	defer srv.Close()

	var out struct {
		Name string `json:"name"`
	}
	client := NewHTTPClient(5*time.Second, "materialhub-test")
	if err := GetJSON(context.Background(), client, NewRequest(srv.URL+"/", "thing"), &out); err != nil {
		t.Fatalf("get json: %v", err)
	}
	if out.Name != "ok" {
		t.Fatalf("expected decoded name, got %q", out.Name)
	}
}

func TestGetJSONParsesProviderErrors(t *testing.T) {
	cases := []struct {
		name     string
		status   int
		body     string
		wantCode string
		wantMsg  string
	}{
		{"news", http.StatusUnauthorized, `{"status":"error","code":"apiKeyInvalid","message":"bad key"}`, "apiKeyInvalid", "bad key"},
		{"weather", http.StatusBadRequest, `{"error":{"code":1006,"message":"No matching location found."}}`, "1006", "No matching location found."},
		{"plain", http.StatusBadGateway, `upstream down`, "", "upstream down"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			var out map[string]any
			err := GetJSON(context.Background(), srv.Client(), NewRequest(srv.URL, "x"), &out)
			var statusErr *StatusError
			if !errors.As(err, &statusErr) {
				t.Fatalf("expected StatusError, got %v", err)
			}
			if statusErr.StatusCode != tc.status || statusErr.Code != tc.wantCode || statusErr.Message != tc.wantMsg {
				t.Fatalf("unexpected error %+v", statusErr)
			}
		})
	}
}
