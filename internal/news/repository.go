// Package news fetches headline pages from NewsAPI.
package news

import (
	"context"
	"fmt"
	"log/slog"

	"materialhub/internal/models"
)

// API is the subset of Client the repository depends on.
type API interface {
	TopHeadlines(ctx context.Context, country string, pageSize, page int) (models.NewsPage, error)
	Everything(ctx context.Context, query string, pageSize, page int, sortBy string) (models.NewsPage, error)
}

// Result is the single terminal outcome of one page request.
type Result struct {
	Page models.NewsPage
	Err  error
}

// Repository issues one independent request per call. Paging state belongs to the caller.
type Repository struct {
	api    API
	logger *slog.Logger
}

func NewRepository(logger *slog.Logger, api API) *Repository {
	return &Repository{api: api, logger: logger}
}

// TopHeadlines fetches one page of top headlines. Zero values select the defaults.
func (r *Repository) TopHeadlines(ctx context.Context, country string, pageSize, page int) Result {
	if country == "" {
		country = DefaultCountry
	}
	pageSize, page = normalisePaging(pageSize, page)

	resp, err := r.api.TopHeadlines(ctx, country, pageSize, page)
	if err != nil {
		return Result{Err: fmt.Errorf("failed to fetch top headlines: %w", err)}
	}
	r.logger.Info("Fetched top headlines.", "country", country, "page", page, "count", len(resp.Articles))
	return Result{Page: resp}
}

// Search fetches one page of articles matching query, newest first.
func (r *Repository) Search(ctx context.Context, query string, pageSize, page int) Result {
	pageSize, page = normalisePaging(pageSize, page)

	resp, err := r.api.Everything(ctx, query, pageSize, page, SortPublishedAt)
	if err != nil {
		return Result{Err: fmt.Errorf("failed to search news: %w", err)}
	}
	r.logger.Info("Fetched search results.", "query", query, "page", page, "count", len(resp.Articles))
	return Result{Page: resp}
}

func normalisePaging(pageSize, page int) (int, int) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if page <= 0 {
		page = 1
	}
	return pageSize, page
}
