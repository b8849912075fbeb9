package news

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"materialhub/internal/models"
	"materialhub/internal/rest"
)

const (
	DefaultBaseURL  = "https://newsapi.org/"
	DefaultCountry  = "us"
	DefaultPageSize = 20
	SortPublishedAt = "publishedAt"
)

// Client calls the NewsAPI v2 endpoints.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     *slog.Logger
}

// NewClient creates a NewsAPI client. An empty baseURL selects DefaultBaseURL.
func NewClient(logger *slog.Logger, httpClient *http.Client, baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{httpClient: httpClient, baseURL: baseURL, apiKey: apiKey, logger: logger}
}

// TopHeadlines calls v2/top-headlines.
func (c *Client) TopHeadlines(ctx context.Context, country string, pageSize, page int) (models.NewsPage, error) {
	req := rest.NewRequest(c.baseURL, "v2/top-headlines").
		Param("country", country).
		Param("apiKey", c.apiKey).
		IntParam("pageSize", pageSize).
		IntParam("page", page)
	return c.fetch(ctx, req)
}

// Everything calls v2/everything with a free-text query.
func (c *Client) Everything(ctx context.Context, query string, pageSize, page int, sortBy string) (models.NewsPage, error) {
	req := rest.NewRequest(c.baseURL, "v2/everything").
		Param("q", query).
		Param("apiKey", c.apiKey).
		IntParam("pageSize", pageSize).
		IntParam("page", page).
		Param("sortBy", sortBy)
	return c.fetch(ctx, req)
}

func (c *Client) fetch(ctx context.Context, req *rest.Request) (models.NewsPage, error) {
	c.logger.Debug("Requesting news.", "endpoint", req.Path())

	var page models.NewsPage
	if err := rest.GetJSON(ctx, c.httpClient, req, &page); err != nil {
		return models.NewsPage{}, err
	}
	if page.Status != "" && page.Status != "ok" {
		return models.NewsPage{}, fmt.Errorf("news service returned status %q", page.Status)
	}
	if page.Articles == nil {
		page.Articles = []models.Article{}
	}
	return page, nil
}
