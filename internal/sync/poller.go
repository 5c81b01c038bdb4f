package sync

import (
	"context"
	"log/slog"
	gosync "sync"
	"time"

	"github.com/nhle/notification-triage/internal/source"
)

const (
	// DefaultRefreshInterval is the shortest delay between two probes.
	DefaultRefreshInterval = 300 * time.Second

	// DefaultRedrawInterval keeps relative timestamps on screen current.
	DefaultRedrawInterval = 60 * time.Second
)

// probeTimeout bounds a single conditional probe.
const probeTimeout = 30 * time.Second

// Prober answers whether the remote feed changed.
type Prober interface {
	CheckUpdateAndLimit(ctx context.Context) (source.UpdateStatus, error)
}

// NextDelay decides, from the outcome of one probe, how long to sleep and
// whether a sync is needed. A failed probe assumes an update is needed and
// falls back to floor; otherwise the larger of floor and the server's poll
// interval wins.
func NextDelay(status source.UpdateStatus, err error, floor time.Duration) (time.Duration, bool) {
	if err != nil {
		return floor, true
	}
	return max(floor, status.PollInterval), status.NeedUpdate
}

// Poller runs the two background producers of the UI: the auto-sync loop
// and the redraw loop. Both report through callbacks and stop when the
// Poller is stopped.
type Poller struct {
	prober  Prober
	refresh time.Duration
	redraw  time.Duration
	logger  *slog.Logger

	mu      gosync.Mutex
	cancel  context.CancelFunc
	wg      gosync.WaitGroup
	running bool
}

// NewPoller creates a Poller. Non-positive intervals select the defaults.
func NewPoller(p Prober, refresh, redraw time.Duration, logger *slog.Logger) *Poller {
	if refresh <= 0 {
		refresh = DefaultRefreshInterval
	}
	if redraw <= 0 {
		redraw = DefaultRedrawInterval
	}
	return &Poller{
		prober:  p,
		refresh: refresh,
		redraw:  redraw,
		logger:  logger,
	}
}

// Start launches both loops. onSync is called whenever a background sync is
// due, onRedraw on every redraw tick. Calling Start twice is a no-op.
func (p *Poller) Start(ctx context.Context, onSync, onRedraw func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return
	}
	p.running = true

	ctx, p.cancel = context.WithCancel(ctx)
	p.wg.Add(2)
	go func() {
		defer p.wg.Done()
		p.autoSync(ctx, onSync)
	}()
	go func() {
		defer p.wg.Done()
		p.autoRedraw(ctx, onRedraw)
	}()
}

// Stop cancels both loops and waits for them to return.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.cancel()
	p.mu.Unlock()

	p.wg.Wait()
}

// autoSync probes, requests a sync when needed and sleeps, until cancelled.
func (p *Poller) autoSync(ctx context.Context, onSync func()) {
	for {
		probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
		status, err := p.prober.CheckUpdateAndLimit(probeCtx)
		cancel()

		if ctx.Err() != nil {
			return
		}

		delay, needUpdate := NextDelay(status, err, p.refresh)
		if err != nil {
			p.logger.Warn("update probe failed", "error", err)
		}
		p.logger.Info("update probe",
			"need_update", needUpdate,
			"sleep", delay,
			"rate_remaining", status.RateRemaining,
			"rate_used", status.RateUsed,
		)

		if needUpdate {
			onSync()
		}

		if !sleep(ctx, delay) {
			return
		}
	}
}

// autoRedraw calls onRedraw every redraw interval, until cancelled.
func (p *Poller) autoRedraw(ctx context.Context, onRedraw func()) {
	ticker := time.NewTicker(p.redraw)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			onRedraw()
		}
	}
}

// sleep waits for d or until ctx is done. It reports whether the full delay
// elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
