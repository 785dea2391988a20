package oms

import (
	"context"
	"errors"
	"time"

	"github.com/joripage/order-manager/pkg/oms/model"
	"go.uber.org/zap"
)

// Archiver takes terminal orders out of the hot registry.
type Archiver interface {
	Archive(ctx context.Context, orders []model.Order) error
}

// JournalPruner drops journal entries for orders that have been archived.
type JournalPruner interface {
	DeleteOrder(orderID string) error
}

type archiveConfig struct {
	archiver  Archiver
	pruner    JournalPruner
	interval  time.Duration
	retention time.Duration
	now       func() time.Time
}

const (
	defaultArchiveInterval  = time.Minute
	defaultArchiveRetention = 10 * time.Minute
)

// WithArchiver evicts terminal orders untouched for retention every interval.
// pruner may be nil.
func WithArchiver(a Archiver, pruner JournalPruner, interval, retention time.Duration) Option {
	return func(s *OMS) {
		if interval <= 0 {
			interval = defaultArchiveInterval
		}
		if retention <= 0 {
			retention = defaultArchiveRetention
		}
		s.archive = archiveConfig{
			archiver:  a,
			pruner:    pruner,
			interval:  interval,
			retention: retention,
			now:       time.Now,
		}
	}
}

// StartArchiver runs until ctx is done. Without an archiver it returns at once.
func (s *OMS) StartArchiver(ctx context.Context) error {
	if s.archive.archiver == nil {
		return nil
	}

	ticker := time.NewTicker(s.archive.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.archiveOnce(ctx)
		case <-ctx.Done():
			return nil
		}
	}
}

func (s *OMS) archiveOnce(ctx context.Context) int {
	cutoff := s.archive.now().Add(-s.archive.retention)
	orders := s.registry.Evict(func(o model.Order) bool {
		return o.UpdatedAt.Before(cutoff)
	})
	if len(orders) == 0 {
		return 0
	}

	if err := s.archive.archiver.Archive(ctx, orders); err != nil {
		s.logger.Error("archive failed, orders kept in memory",
			zap.Int("count", len(orders)), zap.Error(err))
		if err := s.registry.Restore(orders); err != nil {
			s.logger.Error("re-registering unarchived orders failed", zap.Error(err))
		}
		return 0
	}

	if s.archive.pruner != nil {
		for _, o := range orders {
			if err := s.archive.pruner.DeleteOrder(o.ID); err != nil {
				s.logger.Warn("journal prune failed", zap.String("order_id", o.ID), zap.Error(err))
			}
		}
	}
	s.logger.Info("orders archived", zap.Int("count", len(orders)))
	return len(orders)
}

type multiPruner []JournalPruner

// MultiPruner prunes every journal and joins their errors.
func MultiPruner(pruners ...JournalPruner) JournalPruner {
	return multiPruner(pruners)
}

func (m multiPruner) DeleteOrder(orderID string) error {
	var errs []error
	for _, p := range m {
		if err := p.DeleteOrder(orderID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
