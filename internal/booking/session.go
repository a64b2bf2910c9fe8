package booking

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/ajasta/booking-client/internal/holdstore"
	"github.com/ajasta/booking-client/internal/identity"
	"github.com/ajasta/booking-client/internal/model"
	"github.com/ajasta/booking-client/internal/queue"
	"github.com/ajasta/booking-client/internal/storage"
)

// API is the full backend surface a session uses.  *api.Client
// satisfies it; tests substitute fakes.
type API interface {
	BookingAPI
	GetResource(ctx context.Context, id uint64) (*model.Resource, error)
}

// Session ties one resource view together: the fetched resource, the
// shared hold store, the expiry sweeper and the selection controller.
type Session struct {
	Resource   *model.Resource
	Controller *Controller
	Holds      *holdstore.Store

	sweeper *holdstore.Sweeper
}

// SessionOption configures a Session before it starts.
type SessionOption func(*sessionConfig)

type sessionConfig struct {
	now       func() time.Time
	publisher queue.Publisher
	onChange  func()
}

// WithSessionClock injects the time source for the store, controller
// and sweeper.
func WithSessionClock(now func() time.Time) SessionOption {
	return func(c *sessionConfig) { c.now = now }
}

// WithHoldPublisher attaches a hold lifecycle event sink.
func WithHoldPublisher(p queue.Publisher) SessionOption {
	return func(c *sessionConfig) { c.publisher = p }
}

// WithOnChange registers a callback fired whenever the sweeper prunes
// a hold, so a UI can re-render expired cells.
func WithOnChange(fn func()) SessionOption {
	return func(c *sessionConfig) { c.onChange = fn }
}

// Open fetches the resource, loads its persisted holds and starts the
// expiry sweeper.  Close must be called when the view goes away.
func Open(ctx context.Context, backend storage.Store, client API, ident identity.Identity, resourceID uint64, opts ...SessionOption) (*Session, error) {
	cfg := sessionConfig{now: time.Now}
	for _, o := range opts {
		o(&cfg)
	}

	res, err := client.GetResource(ctx, resourceID)
	if err != nil {
		return nil, fmt.Errorf("open booking session: %w", err)
	}

	storeOpts := []holdstore.Option{holdstore.WithClock(cfg.now)}
	if cfg.publisher != nil {
		storeOpts = append(storeOpts, holdstore.WithPublisher(cfg.publisher))
	}
	holds := holdstore.New(backend, strconv.FormatUint(resourceID, 10), ident.Owner(), storeOpts...)
	holds.Load(ctx)

	ctrl := NewController(res, client, ident, holds, WithClock(cfg.now))

	s := &Session{
		Resource:   res,
		Controller: ctrl,
		Holds:      holds,
		sweeper:    holdstore.NewSweeper(holds, cfg.onChange),
	}
	s.sweeper.Start(ctx)
	return s, nil
}

// Close stops the expiry sweeper.  Holds stay persisted; the next
// session on the same resource picks them up.
func (s *Session) Close() {
	s.sweeper.Stop()
}
