package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Task is one periodic job. Run is retried up to MaxRetries times with
// RetryDelay between attempts before the tick is given up.
type Task struct {
	Name       string
	Interval   time.Duration
	MaxRetries int
	RetryDelay time.Duration
	Run        func(ctx context.Context) error
}

// Scheduler drives each registered task on its own ticker goroutine.
type Scheduler struct {
	tasks  []Task
	logger *zap.Logger
	wg     sync.WaitGroup
}

func New(logger *zap.Logger) *Scheduler {
	return &Scheduler{logger: logger}
}

func (s *Scheduler) Add(t Task) {
	s.tasks = append(s.tasks, t)
}

// Start launches every task loop. It returns immediately; loops stop when
// ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	for _, t := range s.tasks {
		if t.Interval <= 0 {
			s.logger.Warn("task has no interval, skipping", zap.String("task", t.Name))
			continue
		}
		s.wg.Add(1)
		go s.loop(ctx, t)
	}
}

// Wait blocks until every task loop has exited.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, t Task) {
	defer s.wg.Done()
	ticker := time.NewTicker(t.Interval)
	defer ticker.Stop()

	s.logger.Info("task scheduled",
		zap.String("task", t.Name),
		zap.Duration("interval", t.Interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("task stopped", zap.String("task", t.Name))
			return
		case <-ticker.C:
			s.runOnce(ctx, t)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, t Task) {
	started := time.Now()
	var err error
	for attempt := 0; ; attempt++ {
		err = t.Run(ctx)
		if err == nil || attempt >= t.MaxRetries || ctx.Err() != nil {
			break
		}
		s.logger.Warn("task attempt failed, retrying",
			zap.String("task", t.Name),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
		select {
		case <-ctx.Done():
			return
		case <-time.After(t.RetryDelay):
		}
	}
	if err != nil {
		s.logger.Error("task failed",
			zap.String("task", t.Name),
			zap.Duration("took", time.Since(started)),
			zap.Error(err))
		return
	}
	s.logger.Debug("task finished",
		zap.String("task", t.Name),
		zap.Duration("took", time.Since(started)))
}
