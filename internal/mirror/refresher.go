package mirror

import (
	"context"
	"time"

	"sismanpnr/internal/debounce"

	"github.com/sirupsen/logrus"
)

// ChangeSettle coalesces bursts of change notifications into one refresh.
const ChangeSettle = 300 * time.Millisecond

// Refreshable is a mirror that can be reloaded from the store.
type Refreshable interface {
	Refresh(ctx context.Context) bool
}

// Refresher reloads a set of mirrors once change notifications stop
// arriving for the settle window.
type Refresher struct {
	ctx     context.Context
	logger  *logrus.Logger
	targets []Refreshable
	timer   *debounce.Timer
}

func NewRefresher(ctx context.Context, logger *logrus.Logger, targets []Refreshable, opts ...debounce.Option) *Refresher {
	r := &Refresher{
		ctx:     ctx,
		logger:  logger,
		targets: targets,
	}
	r.timer = debounce.NewTimer(ChangeSettle, r.refresh, opts...)
	return r
}

// Notify records a change and restarts the settle window.
func (r *Refresher) Notify(payload string) {
	r.logger.WithField("payload", payload).Debug("change notification received")
	r.timer.Reset()
}

// Stop discards a pending refresh.
func (r *Refresher) Stop() {
	r.timer.Cancel()
}

func (r *Refresher) refresh() {
	if r.ctx.Err() != nil {
		return
	}
	for _, t := range r.targets {
		t.Refresh(r.ctx)
	}
}
