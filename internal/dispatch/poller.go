package dispatch

import (
	"context"
	"log/slog"
	"time"

	"github.com/asocialdev/asocial/internal/store"
)

// Poller claims due jobs from the store on a fixed interval and hands
// them to the Dispatcher. Multiple pollers (in this process or others)
// can share one database; the claim query guarantees each job is taken
// once.
type Poller struct {
	store      store.Store
	dispatcher *Dispatcher
	interval   time.Duration
}

func NewPoller(st store.Store, d *Dispatcher, interval time.Duration) *Poller {
	return &Poller{store: st, dispatcher: d, interval: interval}
}

// Run polls until ctx is cancelled. Each tick claims at most one job and
// dispatches it synchronously; a claim error ends the tick, never the
// loop.
func (p *Poller) Run(ctx context.Context) {
	slog.Info("poller started", "interval", p.interval)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("poller stopped")
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	job, err := p.store.ClaimNextJob(ctx)
	if err != nil {
		slog.Error("claiming next job", "error", err)
		return
	}
	if job == nil {
		return
	}

	slog.Info("claimed job", "job_id", job.ID, "attempt", job.AttemptCount)

	if _, err := p.dispatcher.Dispatch(ctx, job); err != nil {
		slog.Error("recording dispatch outcome", "job_id", job.ID, "error", err)
	}
}
