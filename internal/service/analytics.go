package service

import (
	"context"
	"errors"

	"github.com/snipay/snipay/internal/model"
	"github.com/snipay/snipay/internal/repository"
)

// AnalyticsService serves click statistics for dashboards.
type AnalyticsService struct {
	repo *repository.Repository
}

// NewAnalyticsService creates a new AnalyticsService.
func NewAnalyticsService(repo *repository.Repository) *AnalyticsService {
	return &AnalyticsService{repo: repo}
}

// UserClickSeries returns the user's click counts keyed by ISO date.
// The mapping is sparse; a user with no clicks gets an empty map, not an
// error.
func (s *AnalyticsService) UserClickSeries(ctx context.Context, userID string) (map[string]int64, error) {
	return s.repo.ClicksByDayForUser(ctx, userID)
}

// URLAnalytics returns per-day clicks for one of the user's URLs.
// URLs owned by other users look like they do not exist.
func (s *AnalyticsService) URLAnalytics(ctx context.Context, userID, shortCode string) (*model.URLAnalytics, error) {
	shortURL, err := s.repo.GetURLByShortCode(ctx, shortCode)
	if err != nil {
		if errors.Is(err, repository.ErrShortURLNotFound) {
			return nil, ErrShortURLNotFound
		}
		return nil, err
	}
	if shortURL.UserID != userID {
		return nil, ErrShortURLNotFound
	}

	series, err := s.repo.ClicksByDayForURL(ctx, shortURL.ID)
	if err != nil {
		return nil, err
	}

	var total int64
	for _, count := range series {
		total += count
	}

	return &model.URLAnalytics{
		URLID:        shortURL.ID,
		ShortCode:    shortURL.ShortCode,
		TotalClicks:  total,
		ClicksByDate: series,
	}, nil
}
