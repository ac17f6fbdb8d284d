// Package worker - фоновые задачи процесса.
package worker

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/collab-backend/internal/goroutine"
	"github.com/ignatzorin/collab-backend/internal/logger"
	"github.com/ignatzorin/collab-backend/internal/usecase/subscription"
)

type Sweeper interface {
	Run(ctx context.Context, now time.Time) (subscription.Report, error)
}

// SweepWorker запускает обход подписок сразу после старта и затем по тикеру.
// Следующий запуск не начинается, пока не закончился предыдущий.
type SweepWorker struct {
	sweeper  Sweeper
	interval time.Duration
	clock    func() time.Time
}

func NewSweepWorker(sweeper Sweeper, interval time.Duration) *SweepWorker {
	if interval <= 0 {
		interval = time.Hour
	}
	return &SweepWorker{sweeper: sweeper, interval: interval, clock: time.Now}
}

// Start блокируется до отмены ctx.
func (w *SweepWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	log := logger.Log.WithField("worker", "subscription_sweep")
	log.WithField("interval", w.interval.String()).Info("sweep worker started")

	w.tick(ctx, log)
	for {
		select {
		case <-ctx.Done():
			log.Info("sweep worker stopped")
			return
		case <-ticker.C:
			w.tick(ctx, log)
		}
	}
}

func (w *SweepWorker) tick(ctx context.Context, log *logrus.Entry) {
	if ctx.Err() != nil {
		return
	}
	goroutine.Run("subscription_sweep", func() {
		report, err := w.sweeper.Run(ctx, w.clock().UTC())
		if err != nil {
			log.WithError(err).Error("subscription sweep failed")
			return
		}
		if report.Failed > 0 {
			log.WithField("failed", report.Failed).Warn("subscription sweep finished with failures")
		}
	})
}
