package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/tlees/content-curator/app/stages"
)

const (
	maxRetries  = 3
	jobTimeout  = 10 * time.Minute
	maxBackoff  = 30 * time.Second
	baseBackoff = time.Second
)

// Scheduler drives the pipeline on two cadences: fetch/process/summarize on
// the pipeline interval, curate (and distribute) on the curate interval. Each
// run is a plain sweep of the store, so overlapping or missed runs are safe.
type Scheduler struct {
	runner           *stages.Runner
	pipelineInterval time.Duration
	curateInterval   time.Duration
	distribute       bool
	ctx              context.Context
	cancel           context.CancelFunc
	wg               sync.WaitGroup
}

func NewScheduler(runner *stages.Runner, pipelineInterval, curateInterval time.Duration, distribute bool) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		runner:           runner,
		pipelineInterval: pipelineInterval,
		curateInterval:   curateInterval,
		distribute:       distribute,
		ctx:              ctx,
		cancel:           cancel,
	}
}

func (s *Scheduler) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.pipelineInterval)
		defer ticker.Stop()

		s.runJob("pipeline", s.runPipeline)

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.runJob("pipeline", s.runPipeline)
			}
		}
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.curateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.runJob("curate", s.runCurate)
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) runJob(name string, job func(ctx context.Context) error) {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := baseBackoff << uint(attempt-1)
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			slog.Warn("Job retry scheduled", "job", name, "attempt", attempt, "delay", backoff.String())

			select {
			case <-s.ctx.Done():
				return
			case <-time.After(backoff):
			}
		}

		jobCtx, cancel := context.WithTimeout(s.ctx, jobTimeout)
		err := job(jobCtx)
		cancel()

		if err == nil {
			return
		}
		if s.ctx.Err() != nil {
			return
		}

		slog.Error("Job execution failed", "job", name, "attempt", attempt, "error", err)
	}

	slog.Error("Job failed after maximum retries", "job", name, "max_retries", maxRetries)
}

func (s *Scheduler) runPipeline(ctx context.Context) error {
	return s.runner.RunPipeline(ctx, stages.Selection{}, nil)
}

func (s *Scheduler) runCurate(ctx context.Context) error {
	digest, _, err := s.runner.Curate.Run(ctx)
	if err != nil {
		return err
	}
	if digest == nil || !s.distribute {
		return nil
	}

	_, err = s.runner.Distribute.Run(ctx, digest.ID)
	return err
}
