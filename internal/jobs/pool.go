// Package jobs bounds the blocking disk and git work that request
// handlers dispatch, so a burst of tree walks or repository
// initializations cannot monopolize the process.
package jobs

import (
	"context"
	"log/slog"

	"golang.org/x/sync/semaphore"
)

const defaultWorkers = 4

// Pool is a counting semaphore over blocking work. Run executes inline
// once a slot is free; Go detaches the work into a background goroutine
// that only logs its failure, for tasks whose caller has already moved on
// (the pack-exchange input copy).
type Pool struct {
	sem    *semaphore.Weighted
	logger *slog.Logger
}

func NewPool(workers int64, logger *slog.Logger) *Pool {
	if workers <= 0 {
		workers = defaultWorkers
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{
		sem:    semaphore.NewWeighted(workers),
		logger: logger,
	}
}

// Run blocks until a slot is free (or ctx is done), then executes fn.
func (p *Pool) Run(ctx context.Context, fn func() error) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer p.sem.Release(1)
	return fn()
}

// Go runs fn on its own goroutine without occupying a pool slot, logging
// the error if it fails. The caller does not wait for completion.
func (p *Pool) Go(name string, fn func() error) {
	go func() {
		if err := fn(); err != nil {
			p.logger.Error("background task failed", "task", name, "error", err)
		}
	}()
}
