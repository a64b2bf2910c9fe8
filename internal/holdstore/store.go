// Package holdstore keeps the per-resource map of slot holds: who
// reserved which cell and until when.  The map is persisted as one
// JSON document per resource in the shared key/value store, mirroring
// how every viewer of a browser profile sees the same holds.  Storage
// failures degrade to an empty map; the external backend remains the
// source of truth for real booking conflicts, this store only drives
// client-side visual locking.
package holdstore

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/ajasta/booking-client/internal/model"
	"github.com/ajasta/booking-client/internal/queue"
	"github.com/ajasta/booking-client/internal/storage"
)

// HoldTTL is the lifetime of a hold from the moment the booking
// submission succeeds.  Holds are never renewed; re-adding the same
// key only ever advances the expiry (monotonic-advance rule).
const HoldTTL = 30 * time.Minute

// SweepInterval is how often the sweeper prunes expired holds while a
// resource page is active.
const SweepInterval = time.Second

const storageKeyPrefix = "resourceHolds_"

var (
	// ErrNoHold is returned when cancelling a slot that carries no hold.
	ErrNoHold = errors.New("no hold on slot")
	// ErrNotOwner is returned when cancelling a hold attributed to a
	// different owner.  Legacy unowned holds are cancellable by no one.
	ErrNotOwner = errors.New("hold owned by someone else")
)

// Store is the hold map for a single resource on behalf of a single
// owner identity.  All methods are safe for concurrent use; the
// sweeper goroutine and UI event handlers share one instance.
type Store struct {
	mu         sync.Mutex
	backend    storage.Store
	resourceID string
	owner      string
	now        func() time.Time
	events     queue.Publisher

	holds       map[string]model.Hold
	ownsActive  bool
	earliestOwn int64 // epoch-ms of the soonest owned expiry, 0 when none
}

// Option configures a Store.
type Option func(*Store)

// WithClock injects the time source, used by tests to simulate expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithPublisher attaches a best-effort hold event sink.
func WithPublisher(p queue.Publisher) Option {
	return func(s *Store) { s.events = p }
}

// New creates a store for one resource and owner.  Call Load before
// first use to pick up holds persisted by earlier sessions.
func New(backend storage.Store, resourceID, owner string, opts ...Option) *Store {
	s := &Store{
		backend:    backend,
		resourceID: resourceID,
		owner:      owner,
		now:        time.Now,
		holds:      make(map[string]model.Hold),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Owner returns the identity holds are attributed to.
func (s *Store) Owner() string { return s.owner }

func (s *Store) storageKey() string { return storageKeyPrefix + s.resourceID }

// Load reads the persisted map, discards already-expired entries and
// recomputes the ownership flags.  Read or parse failures leave the
// store empty and are never surfaced; a broken value must not block
// the page.
func (s *Store) Load(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.holds = make(map[string]model.Hold)
	raw, ok, err := s.backend.Get(ctx, s.storageKey())
	if err != nil {
		log.Printf("holdstore: read %s failed: %v", s.storageKey(), err)
	} else if ok {
		var m map[string]model.Hold
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			log.Printf("holdstore: corrupt value under %s: %v", s.storageKey(), err)
		} else {
			s.holds = m
		}
	}

	now := s.now()
	pruned := false
	for key, h := range s.holds {
		if h.Expired(now) {
			delete(s.holds, key)
			pruned = true
		}
	}
	if pruned {
		s.persistLocked(ctx)
	}
	s.recomputeLocked()
}

// AddHolds places a hold on every key, expiring HoldTTL from now and
// attributed to the store's owner.  An existing hold on the same key
// survives unchanged when its expiry is already later than the new
// one.  The full map is persisted in a single write.
func (s *Store) AddHolds(ctx context.Context, keys []string) {
	if len(keys) == 0 {
		return
	}
	s.mu.Lock()
	now := s.now()
	expiry := now.Add(HoldTTL).UnixMilli()
	var evs []queue.HoldEvent
	for _, key := range keys {
		if existing, ok := s.holds[key]; ok && existing.ExpiresAt >= expiry {
			continue // monotonic advance: never regress an expiry
		}
		s.holds[key] = model.Hold{ExpiresAt: expiry, Owner: s.owner}
		evs = append(evs, s.eventLocked(key, expiry, queue.ActionPlaced, now))
	}
	s.persistLocked(ctx)
	s.recomputeLocked()
	s.mu.Unlock()
	s.publish(evs)
}

// CancelHold removes the hold on key, provided it is attributed to
// this store's owner.  When the map becomes empty the persisted entry
// is deleted entirely.
func (s *Store) CancelHold(ctx context.Context, key string) error {
	s.mu.Lock()
	h, ok := s.holds[key]
	if !ok {
		s.mu.Unlock()
		return ErrNoHold
	}
	if !h.OwnedBy(s.owner) {
		s.mu.Unlock()
		return ErrNotOwner
	}
	delete(s.holds, key)
	ev := s.eventLocked(key, h.ExpiresAt, queue.ActionReleased, s.now())
	s.persistLocked(ctx)
	s.recomputeLocked()
	s.mu.Unlock()
	s.publish([]queue.HoldEvent{ev})
	return nil
}

// Tick prunes expired holds, persists when anything changed and
// refreshes the ownership flags.  It reports whether the visible state
// changed so callers can re-render.
func (s *Store) Tick(ctx context.Context) bool {
	s.mu.Lock()
	now := s.now()
	var evs []queue.HoldEvent
	for key, h := range s.holds {
		if h.Expired(now) {
			delete(s.holds, key)
			evs = append(evs, queue.HoldEvent{
				ResourceID: s.resourceID,
				SlotKey:    key,
				Owner:      h.Owner,
				ExpiresAt:  h.ExpiresAt,
				Action:     queue.ActionExpired,
				OccurredAt: now.UTC().Format(time.RFC3339),
			})
		}
	}
	changed := len(evs) > 0
	if changed {
		s.persistLocked(ctx)
	}
	s.recomputeLocked()
	s.mu.Unlock()
	s.publish(evs)
	return changed
}

// IsHeld reports whether key carries an unexpired hold.
func (s *Store) IsHeld(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.holds[key]
	return ok && !h.Expired(s.now())
}

// OwnsHold reports whether key carries an unexpired hold attributed to
// this store's owner.
func (s *Store) OwnsHold(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.holds[key]
	return ok && !h.Expired(s.now()) && h.OwnedBy(s.owner)
}

// OwnsActive reports whether the owner has at least one active hold on
// this resource.  While true, the booking controller blocks new
// selections (single-outstanding-reservation rule).
func (s *Store) OwnsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ownsActive
}

// EarliestOwnExpiry returns the soonest expiry among the owner's
// active holds, feeding the countdown display.
func (s *Store) EarliestOwnExpiry() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.earliestOwn == 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(s.earliestOwn), true
}

// Snapshot returns a copy of the current hold map.
func (s *Store) Snapshot() map[string]model.Hold {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]model.Hold, len(s.holds))
	for k, v := range s.holds {
		out[k] = v
	}
	return out
}

// persistLocked writes the whole map in one Set, or deletes the
// persisted entry when the map is empty.  Failures are logged and
// swallowed.
func (s *Store) persistLocked(ctx context.Context) {
	key := s.storageKey()
	if len(s.holds) == 0 {
		if err := s.backend.Delete(ctx, key); err != nil {
			log.Printf("holdstore: delete %s failed: %v", key, err)
		}
		return
	}
	b, err := json.Marshal(s.holds)
	if err != nil {
		log.Printf("holdstore: marshal %s failed: %v", key, err)
		return
	}
	if err := s.backend.Set(ctx, key, string(b)); err != nil {
		log.Printf("holdstore: write %s failed: %v", key, err)
	}
}

func (s *Store) recomputeLocked() {
	now := s.now()
	s.ownsActive = false
	s.earliestOwn = 0
	for _, h := range s.holds {
		if h.Expired(now) || !h.OwnedBy(s.owner) {
			continue
		}
		s.ownsActive = true
		if s.earliestOwn == 0 || h.ExpiresAt < s.earliestOwn {
			s.earliestOwn = h.ExpiresAt
		}
	}
}

func (s *Store) eventLocked(key string, expiry int64, action string, now time.Time) queue.HoldEvent {
	return queue.HoldEvent{
		ResourceID: s.resourceID,
		SlotKey:    key,
		Owner:      s.owner,
		ExpiresAt:  expiry,
		Action:     action,
		OccurredAt: now.UTC().Format(time.RFC3339),
	}
}

// publish forwards events to the sink without holding the lock.  The
// AMQP publisher dials per call, so this runs in the background and
// failures only log.
func (s *Store) publish(evs []queue.HoldEvent) {
	if s.events == nil || len(evs) == 0 {
		return
	}
	go func() {
		for _, ev := range evs {
			_ = s.events.PublishHoldEvent(context.Background(), ev)
		}
	}()
}
