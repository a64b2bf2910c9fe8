package holdstore

import (
	"context"
	"time"
)

// Sweeper owns the once-per-second expiry sweep for one store.  It is
// started when a resource page mounts and stopped when the page is
// left or the resource identity changes; a new resource gets a new
// store and a new sweeper.
type Sweeper struct {
	store    *Store
	interval time.Duration
	onChange func()
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewSweeper wires a sweeper to a store.  onChange fires after every
// tick that removed at least one hold, and may be nil.
func NewSweeper(store *Store, onChange func()) *Sweeper {
	return &Sweeper{store: store, interval: SweepInterval, onChange: onChange}
}

// Start launches the sweep loop.  Starting an already running sweeper
// is a no-op.
func (w *Sweeper) Start(ctx context.Context) {
	if w.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	go w.run(ctx)
}

// Stop cancels the loop and waits for it to exit.
func (w *Sweeper) Stop() {
	if w.cancel == nil {
		return
	}
	w.cancel()
	<-w.done
	w.cancel = nil
}

func (w *Sweeper) run(ctx context.Context) {
	defer close(w.done)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if w.store.Tick(ctx) && w.onChange != nil {
				w.onChange()
			}
		}
	}
}
