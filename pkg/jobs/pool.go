package jobs

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Task processes item i of a batch.
type Task func(ctx context.Context, i int) error

// PoolConfig configures worker pool behaviour.
type PoolConfig struct {
	Workers int
	Logger  *zap.Logger
}

// Pool fans a fixed batch of tasks out over a bounded number of goroutines.
// Tasks write their own results, typically into a slice slot keyed by i, so output order
// does not depend on scheduling.
type Pool struct {
	name    string
	workers int
	logger  *zap.Logger
}

// NewPool builds a pool.
func NewPool(name string, cfg PoolConfig) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Pool{name: name, workers: cfg.Workers, logger: cfg.Logger}
}

// Workers returns the concurrency bound.
func (p *Pool) Workers() int {
	return p.workers
}

// Run executes task for every index in [0, n). The first failure cancels the remaining
// tasks and is returned once every started task has exited.
func (p *Pool) Run(ctx context.Context, n int, task Task) error {
	if n <= 0 {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	workers := p.workers
	if workers > n {
		workers = n
	}

	indexes := make(chan int)
	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	started := time.Now()

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				if err := task(ctx, i); err != nil {
					once.Do(func() {
						firstErr = err
						cancel()
					})
				}
			}
		}()
	}

feed:
	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			break feed
		case indexes <- i:
		}
	}
	close(indexes)
	wg.Wait()

	if firstErr == nil && ctx.Err() != nil {
		// the parent was cancelled rather than a task failing
		firstErr = context.Cause(ctx)
	}
	if firstErr != nil {
		p.logger.Warn("pool batch aborted", zap.String("pool", p.name), zap.Int("tasks", n), zap.Error(firstErr))
		return firstErr
	}
	p.logger.Debug("pool batch finished", zap.String("pool", p.name), zap.Int("tasks", n), zap.Int("workers", workers), zap.Duration("elapsed", time.Since(started)))
	return nil
}
