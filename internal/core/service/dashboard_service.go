package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/rl1809/event-pos/internal/core/domain"
	"github.com/rl1809/event-pos/internal/port"
)

const (
	summaryFlightKey = "summary"
	summaryTimeout   = 10 * time.Second
)

// DashboardService aggregates sales figures for the dashboard.
type DashboardService struct {
	sales  port.SalesRepository
	cache  port.SummaryCache
	group  singleflight.Group
	logger *zap.Logger

	// gen counts invalidations. A summary computed under an older generation
	// is returned to its callers but never cached.
	gen atomic.Uint64
}

// NewDashboardService builds the service. cache may be nil, in which case
// every call computes the summary from the store.
func NewDashboardService(sales port.SalesRepository, cache port.SummaryCache, logger *zap.Logger) *DashboardService {
	return &DashboardService{sales: sales, cache: cache, logger: logger}
}

// Summary returns the sales summary. The three store reads run concurrently
// and the call fails as a whole if any of them fails.
func (s *DashboardService) Summary(ctx context.Context) (*domain.SalesSummary, error) {
	if s.cache != nil {
		cached, err := s.cache.GetSummary(ctx)
		if err != nil {
			s.logger.Warn("dashboard cache read failed", zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	gen := s.gen.Load()
	// The shared fetch outlives any single caller; each caller only stops waiting.
	ch := s.group.DoChan(fmt.Sprintf("%s:%d", summaryFlightKey, gen), func() (interface{}, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), summaryTimeout)
		defer cancel()

		summary, err := s.compute(fctx)
		if err != nil {
			return nil, err
		}
		s.store(fctx, gen, summary)
		return summary, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			s.logger.Debug("dashboard summary shared between callers")
		}
		return res.Val.(*domain.SalesSummary), nil
	}
}

// store caches summary unless an invalidation happened since gen was read.
// Invalidate bumps the generation before it deletes, so a write that races
// with it is either skipped here or deleted by one of the two sides.
func (s *DashboardService) store(ctx context.Context, gen uint64, summary *domain.SalesSummary) {
	if s.cache == nil || s.gen.Load() != gen {
		return
	}
	if err := s.cache.SetSummary(ctx, summary); err != nil {
		s.logger.Warn("dashboard cache write failed", zap.Error(err))
		return
	}
	if s.gen.Load() != gen {
		if err := s.cache.InvalidateSummary(ctx); err != nil {
			s.logger.Warn("dashboard cache invalidate failed", zap.Error(err))
		}
	}
}

func (s *DashboardService) compute(ctx context.Context) (*domain.SalesSummary, error) {
	var (
		orders   []domain.OrderTotal
		sold     []domain.SoldItem
		lowStock []domain.LowStockItem
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if orders, err = s.sales.ListOrderTotals(gctx); err != nil {
			return fmt.Errorf("fetch orders: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if sold, err = s.sales.ListSoldItems(gctx); err != nil {
			return fmt.Errorf("fetch order items: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if lowStock, err = s.sales.ListLowStock(gctx, domain.LowStockThreshold); err != nil {
			return fmt.Errorf("fetch low stock: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		s.logger.Error("dashboard fetch failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", domain.ErrDashboardUnavailable, err)
	}

	return domain.BuildSalesSummary(orders, sold, lowStock), nil
}

// Invalidate drops the cached summary. A computation already in flight will
// not cache its result.
func (s *DashboardService) Invalidate(ctx context.Context) error {
	s.gen.Add(1)
	if s.cache == nil {
		return nil
	}
	return s.cache.InvalidateSummary(ctx)
}

// HandleOrderCommitted invalidates the cached summary when a sale is recorded.
func (s *DashboardService) HandleOrderCommitted(ctx context.Context, event domain.OrderCommitted) error {
	if err := s.Invalidate(ctx); err != nil {
		return fmt.Errorf("invalidate summary after order %d: %w", event.OrderID, err)
	}
	return nil
}
