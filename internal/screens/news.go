package screens

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"materialhub/internal/models"
	"materialhub/internal/news"
	"materialhub/internal/viewstate"
)

// NewsFeed is the article list on screen together with its paging position.
type NewsFeed struct {
	Articles []models.Article
	Query    string
	Page     int
	HasMore  bool
}

// NewsScreen pages through top headlines or search results.
type NewsScreen struct {
	repo     *news.Repository
	logger   *slog.Logger
	country  string
	pageSize int
	feed     *viewstate.Holder[NewsFeed]

	mu          sync.Mutex
	loadingMore bool
}

func NewNewsScreen(ctx context.Context, logger *slog.Logger, repo *news.Repository, country string, pageSize int) *NewsScreen {
	if pageSize <= 0 {
		pageSize = news.DefaultPageSize
	}
	return &NewsScreen{
		repo:     repo,
		logger:   logger,
		country:  country,
		pageSize: pageSize,
		feed:     viewstate.NewHolder[NewsFeed](ctx),
	}
}

func (s *NewsScreen) State() viewstate.State[NewsFeed] {
	return s.feed.State()
}

func (s *NewsScreen) Subscribe(ctx context.Context) <-chan viewstate.State[NewsFeed] {
	return s.feed.Subscribe(ctx)
}

// LoadTopHeadlines replaces the list with the first page of top headlines.
func (s *NewsScreen) LoadTopHeadlines() {
	s.load("", 1)
}

// Search replaces the list with the first page of results for query. A blank query shows the
// top headlines instead.
func (s *NewsScreen) Search(query string) {
	query = strings.TrimSpace(query)
	if query == "" {
		s.LoadTopHeadlines()
		return
	}
	s.load(query, 1)
}

// LoadTo loads the given page of top headlines (blank query) or search results directly.
func (s *NewsScreen) LoadTo(query string, page int) {
	if page <= 0 {
		page = 1
	}
	s.load(strings.TrimSpace(query), page)
}

func (s *NewsScreen) load(query string, page int) {
	s.feed.Load(func(ctx context.Context) (NewsFeed, error) {
		result := s.fetch(ctx, query, page)
		if result.Err != nil {
			return NewsFeed{}, result.Err
		}
		return NewsFeed{
			Articles: result.Page.Articles,
			Query:    query,
			Page:     page,
			HasMore:  len(result.Page.Articles) >= s.pageSize,
		}, nil
	})
}

func (s *NewsScreen) fetch(ctx context.Context, query string, page int) news.Result {
	if query == "" {
		return s.repo.TopHeadlines(ctx, s.country, s.pageSize, page)
	}
	return s.repo.Search(ctx, query, s.pageSize, page)
}

// LoadMore appends the next page. It does nothing while a page is already being appended, while
// the list itself is loading or failed, or when the last page came back short.
func (s *NewsScreen) LoadMore() {
	current := s.feed.State()
	if current.Status != viewstate.StatusSuccess || !current.Data.HasMore {
		return
	}

	s.mu.Lock()
	if s.loadingMore {
		s.mu.Unlock()
		return
	}
	s.loadingMore = true
	s.mu.Unlock()

	query, next := current.Data.Query, current.Data.Page+1
	s.feed.Launch(func(ctx context.Context) {
		defer func() {
			s.mu.Lock()
			s.loadingMore = false
			s.mu.Unlock()
		}()

		result := s.fetch(ctx, query, next)
		s.feed.Update(func(st viewstate.State[NewsFeed]) viewstate.State[NewsFeed] {
			// The list was replaced while this page was in flight.
			if st.Status != viewstate.StatusSuccess || st.Data.Query != query || st.Data.Page != next-1 {
				return st
			}
			if result.Err != nil {
				s.logger.Warn("Failed to load more articles.", "page", next, "error", result.Err)
				return viewstate.Failure[NewsFeed](result.Err.Error())
			}
			articles := make([]models.Article, 0, len(st.Data.Articles)+len(result.Page.Articles))
			articles = append(articles, st.Data.Articles...)
			articles = append(articles, result.Page.Articles...)
			return viewstate.Success(NewsFeed{
				Articles: articles,
				Query:    query,
				Page:     next,
				HasMore:  len(result.Page.Articles) >= s.pageSize,
			})
		})
	})
}

// LoadingMore reports whether a page is being appended.
func (s *NewsScreen) LoadingMore() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadingMore
}

func (s *NewsScreen) Wait() {
	s.feed.Wait()
}

func (s *NewsScreen) Close() {
	s.feed.Close()
}
