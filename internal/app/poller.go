package app

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultPollInterval is how often participants re-fetch the shared document.
const DefaultPollInterval = 2 * time.Second

// Poller calls refresh on a fixed interval until its context is canceled.
// Failures are logged and the next tick retries; polling is best-effort.
type Poller struct {
	interval time.Duration
	refresh  func(ctx context.Context) error
	logger   *slog.Logger
}

func NewPoller(interval time.Duration, refresh func(ctx context.Context) error, logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{interval: interval, refresh: refresh, logger: logger}
}

// Run blocks until ctx is done.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.refresh(ctx); err != nil && ctx.Err() == nil {
				p.logger.Warn("poll failed", "error", err)
			}
		}
	}
}

// Start runs the poller in the background. The returned stop function cancels
// it and waits for the in-flight tick to finish; it is safe to call more than once.
func (p *Poller) Start(ctx context.Context) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.Run(ctx)
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}
}
