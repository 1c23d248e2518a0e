package sitecore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// State is the lifecycle state of a Bootstrap
type State string

const (
	StateIdle         State = "idle"
	StateInitializing State = "initializing"
	StateReady        State = "ready"
	StateFailed       State = "failed"
)

// InitResult reports how initialization ended
type InitResult struct {
	State    State
	Attempts int
	Err      error
}

// Ready reports whether initialization succeeded
func (r InitResult) Ready() bool {
	return r.State == StateReady
}

// BootstrapOptions bound the initialization retries
type BootstrapOptions struct {
	MaxAttempts int
	Delay       time.Duration
	Logger      *zap.Logger
}

// Bootstrap runs an initialization step with bounded retries. It moves
// idle → initializing → ready or failed; concurrent callers share one run.
type Bootstrap struct {
	init func(ctx context.Context) error
	opts BootstrapOptions

	mu     sync.Mutex
	result InitResult
	done   chan struct{}
	gen    int
}

// NewBootstrap creates a bootstrap around init
func NewBootstrap(init func(ctx context.Context) error, opts BootstrapOptions) *Bootstrap {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.Delay < 0 {
		opts.Delay = 0
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Bootstrap{
		init:   init,
		opts:   opts,
		result: InitResult{State: StateIdle},
	}
}

// State returns the current state
func (b *Bootstrap) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.result.State
}

// Result returns the last settled result, or the current state with no error
// while initializing
func (b *Bootstrap) Result() InitResult {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.result
}

// Initialize runs initialization if it has not run yet, or waits for the run
// in progress. A settled result is returned as is until Reset.
func (b *Bootstrap) Initialize(ctx context.Context) InitResult {
	b.mu.Lock()
	switch b.result.State {
	case StateReady, StateFailed:
		result := b.result
		b.mu.Unlock()
		return result

	case StateInitializing:
		done := b.done
		b.mu.Unlock()
		select {
		case <-done:
			return b.Result()
		case <-ctx.Done():
			return InitResult{State: StateInitializing, Err: ctx.Err()}
		}
	}

	b.result = InitResult{State: StateInitializing}
	b.done = make(chan struct{})
	b.gen++
	gen, done := b.gen, b.done
	b.mu.Unlock()

	result := b.run(ctx)

	b.mu.Lock()
	// A Reset during the run discards its outcome
	if b.gen == gen {
		b.result = result
	} else {
		result = b.result
	}
	b.mu.Unlock()
	close(done)

	return result
}

// Reset returns the bootstrap to idle so the next Initialize runs again
func (b *Bootstrap) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gen++
	b.result = InitResult{State: StateIdle}
}

func (b *Bootstrap) run(ctx context.Context) InitResult {
	var err error
	for attempt := 1; attempt <= b.opts.MaxAttempts; attempt++ {
		if err = b.attempt(ctx); err == nil {
			b.opts.Logger.Info("Bootstrap ready", zap.Int("attempts", attempt))
			return InitResult{State: StateReady, Attempts: attempt}
		}

		b.opts.Logger.Warn("Bootstrap attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", b.opts.MaxAttempts),
			zap.Error(err),
		)

		if attempt == b.opts.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return InitResult{State: StateFailed, Attempts: attempt, Err: ctx.Err()}
		case <-time.After(b.opts.Delay):
		}
	}

	return InitResult{
		State:    StateFailed,
		Attempts: b.opts.MaxAttempts,
		Err:      fmt.Errorf("initialization failed after %d attempts: %w", b.opts.MaxAttempts, err),
	}
}

func (b *Bootstrap) attempt(ctx context.Context) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("initialization panicked: %v", rec)
		}
	}()
	return b.init(ctx)
}
