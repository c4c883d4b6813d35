package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/threadline/configurator-backend/internal/app/repository"
	"github.com/threadline/configurator-backend/internal/metrics"
	"github.com/threadline/configurator-backend/pkg/logger"
)

const sweepTimeout = 5 * time.Minute

// OrphanSweeper periodically removes bindings whose product is gone and
// entries whose binding is gone.
type OrphanSweeper struct {
	cron     *cron.Cron
	schedule string
	bindings repository.ProductToolRepository
}

func NewOrphanSweeper(schedule string, bindings repository.ProductToolRepository) *OrphanSweeper {
	return &OrphanSweeper{
		cron:     cron.New(),
		schedule: schedule,
		bindings: bindings,
	}
}

// Start registers the sweep job and starts the scheduler.
func (s *OrphanSweeper) Start() error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()
		if _, err := s.Sweep(ctx); err != nil {
			logger.Error("Scheduled orphan sweep failed", err)
		}
	})
	if err != nil {
		logger.Error("Failed to add cron job for orphan sweep", err, map[string]interface{}{
			"schedule": s.schedule,
		})
		return err
	}

	s.cron.Start()
	logger.Info("Orphan sweeper started", map[string]interface{}{
		"schedule": s.schedule,
	})
	return nil
}

// Sweep runs one pass and returns the number of rows removed.
func (s *OrphanSweeper) Sweep(ctx context.Context) (int64, error) {
	removed, err := s.bindings.DeleteOrphans(ctx)
	if err != nil {
		return 0, err
	}
	metrics.OrphansSweptTotal.Add(float64(removed))
	if removed > 0 {
		logger.Info("Removed orphaned product tool bindings", map[string]interface{}{
			"removed": removed,
		})
	}
	return removed, nil
}

// Stop waits for a running sweep to finish.
func (s *OrphanSweeper) Stop() {
	logger.Info("Stopping orphan sweeper...", nil)
	<-s.cron.Stop().Done()
	logger.Info("Orphan sweeper stopped", nil)
}
