package reports

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/acero-crm/acero-crm/internal/platform/httpx"
)

// Service builds the sales dashboard. Aggregate queries run
// concurrently, results are cached in Redis and concurrent cache misses
// collapse into a single build.
type Service struct {
	repo   Repository
	cache  *Cache
	group  singleflight.Group
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo Repository, cache *Cache, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		cache:  cache,
		logger: logger,
		now:    time.Now,
	}
}

// Dashboard returns the cached dashboard, building it on a miss.
func (s *Service) Dashboard(ctx context.Context, filter Filter) (Dashboard, error) {
	filter = filter.Normalize()

	key, err := s.cache.BuildKey(ctx, "reports", "dashboard",
		fmt.Sprintf("%d", filter.TrendMonths), fmt.Sprintf("%d", filter.TopClients))
	if err != nil {
		s.logger.Warn("dashboard cache key", "error", err)
		return s.build(ctx, filter)
	}

	var dash Dashboard
	err = s.cache.FetchJSON(ctx, key, &dash, func(ctx context.Context) (interface{}, error) {
		resultChan := s.group.DoChan(key, func() (interface{}, error) {
			return s.build(ctx, filter)
		})
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case res := <-resultChan:
			return res.Val, res.Err
		}
	})
	if err != nil {
		return Dashboard{}, err
	}
	return dash, nil
}

// Warm precomputes the default dashboard so the first morning request
// does not pay the aggregate cost. Invoked by the scheduler.
func (s *Service) Warm(ctx context.Context) error {
	_, err := s.Dashboard(ctx, Filter{})
	return err
}

// Invalidate bumps the cache version after mutations.
func (s *Service) Invalidate(ctx context.Context) {
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("dashboard cache bump", "error", err)
	}
}

func (s *Service) build(ctx context.Context, filter Filter) (Dashboard, error) {
	dash := Dashboard{GeneratedAt: s.now()}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		summary, err := s.repo.Summary(ctx)
		if err != nil {
			return err
		}
		dash.Summary = summary
		return nil
	})

	g.Go(func() error {
		breakdown, err := s.repo.StatusBreakdown(ctx)
		if err != nil {
			return err
		}
		dash.StatusBreakdown = breakdown
		return nil
	})

	g.Go(func() error {
		trend, err := s.repo.MonthlyTrend(ctx, filter.TrendMonths)
		if err != nil {
			return err
		}
		dash.Trend = trend
		return nil
	})

	g.Go(func() error {
		top, err := s.repo.TopClients(ctx, filter.TopClients)
		if err != nil {
			return err
		}
		dash.TopClients = top
		return nil
	})

	if err := g.Wait(); err != nil {
		return Dashboard{}, fmt.Errorf("%w: build dashboard: %v", httpx.ErrPersistence, err)
	}

	if dash.StatusBreakdown == nil {
		dash.StatusBreakdown = []StatusCount{}
	}
	if dash.Trend == nil {
		dash.Trend = []MonthlyQuoteTotal{}
	}
	if dash.TopClients == nil {
		dash.TopClients = []TopClient{}
	}
	return dash, nil
}
