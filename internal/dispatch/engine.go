// Package dispatch runs inbound commands on a bounded pool of workers.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dwizi/playbot/internal/boterr"
)

var ErrQueueFull = boterr.ErrQueueFull

type JobKind string

const (
	JobKindMessage     JobKind = "message"
	JobKindInteraction JobKind = "interaction"
	JobKindAPI         JobKind = "api"
)

type Job struct {
	ID        string
	Kind      JobKind
	Source    string
	CreatedAt time.Time
	Run       func(ctx context.Context) error
}

type Engine struct {
	maxConcurrency int
	jobs           chan Job
	logger         *slog.Logger
	startOnce      sync.Once
}

func New(maxConcurrency int, logger *slog.Logger) *Engine {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	return &Engine{
		maxConcurrency: maxConcurrency,
		jobs:           make(chan Job, maxConcurrency*50),
		logger:         logger,
	}
}

func (e *Engine) Start(ctx context.Context) error {
	var workers sync.WaitGroup
	e.startOnce.Do(func() {
		for index := 0; index < e.maxConcurrency; index++ {
			workers.Add(1)
			go func(workerID int) {
				defer workers.Done()
				e.worker(ctx, workerID)
			}(index + 1)
		}
	})

	<-ctx.Done()
	workers.Wait()
	return nil
}

func (e *Engine) Enqueue(job Job) (Job, error) {
	if job.Run == nil {
		return Job{}, fmt.Errorf("dispatch job has no run function")
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Kind == "" {
		job.Kind = JobKindMessage
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}

	select {
	case e.jobs <- job:
		e.logger.Debug("job queued", "job_id", job.ID, "kind", job.Kind, "source", job.Source)
		return job, nil
	default:
		return Job{}, ErrQueueFull
	}
}

func (e *Engine) worker(ctx context.Context, workerID int) {
	e.logger.Debug("worker started", "worker_id", workerID)
	for {
		select {
		case <-ctx.Done():
			e.logger.Debug("worker stopped", "worker_id", workerID)
			return
		case job := <-e.jobs:
			e.process(ctx, workerID, job)
		}
	}
}

func (e *Engine) process(ctx context.Context, workerID int, job Job) {
	started := time.Now()
	defer func() {
		if recovered := recover(); recovered != nil {
			e.logger.Error("job panicked", "worker_id", workerID, "job_id", job.ID, "panic", recovered)
		}
	}()
	if err := job.Run(ctx); err != nil {
		e.logger.Error("job failed", "worker_id", workerID, "job_id", job.ID, "kind", job.Kind, "error", err)
		return
	}
	e.logger.Debug("job finished", "worker_id", workerID, "job_id", job.ID, "kind", job.Kind, "duration_ms", time.Since(started).Milliseconds())
}
