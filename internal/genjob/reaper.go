package genjob

import (
	"context"
	"sync"
	"time"

	"github.com/campaignforge/orchestrator/internal/platform/logger"
)

// Reaper is a ticker-driven background goroutine that deletes terminal
// jobs older than JobTTL. Each sweep is panic-recovered so a bad record
// cannot kill the loop, and shutdown goes through a cancellable context.
type Reaper struct {
	store    *Store
	interval time.Duration
	ttl      time.Duration
	log      *logger.Logger

	stop    context.CancelFunc
	done    chan struct{}
	once    sync.Once
}

// NewReaper builds a Reaper over store. It does not start until Start is
// called; a non-positive interval disables sweeping entirely (Start
// becomes a no-op), matching a negative Config.CleanupInterval.
func NewReaper(store *Store, interval, ttl time.Duration, log *logger.Logger) *Reaper {
	return &Reaper{store: store, interval: interval, ttl: ttl, log: log, done: make(chan struct{})}
}

// Start launches the sweep goroutine. Calling Start more than once, or
// after Stop, has no effect.
func (r *Reaper) Start(ctx context.Context) {
	r.once.Do(func() {
		if r.interval <= 0 {
			close(r.done)
			return
		}
		ctx, cancel := context.WithCancel(ctx)
		r.stop = cancel
		go r.loop(ctx)
	})
}

func (r *Reaper) loop(ctx context.Context) {
	defer close(r.done)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweepOnce()
		}
	}
}

func (r *Reaper) sweepOnce() {
	defer func() {
		if rec := recover(); rec != nil && r.log != nil {
			r.log.Error("ttl reaper sweep panicked", "panic", rec)
		}
	}()
	cutoff := time.Now().UTC().Add(-r.ttl)
	ids := r.store.TerminalCreatedBefore(cutoff)
	for _, id := range ids {
		if err := r.store.Delete(id); err != nil {
			continue
		}
		if r.log != nil {
			r.log.Debug("ttl reaper deleted job", "job_id", id.String())
		}
	}
}

// Stop requests the sweep goroutine to exit and blocks until it has.
func (r *Reaper) Stop() {
	if r.stop != nil {
		r.stop()
	}
	<-r.done
}
