package holdstore

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/ajasta/booking-client/internal/queue"
	"github.com/ajasta/booking-client/internal/storage"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2099, 1, 15, 9, 0, 0, 0, time.Local)}
}

const key1 = "2099-01-20_09:00_1"
const key2 = "2099-01-20_09:30_1"

func TestAddHoldsOwnership(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemory()
	clk := newClock()
	s := New(backend, "1", "user-7", WithClock(clk.now))
	s.Load(ctx)

	s.AddHolds(ctx, []string{key1})

	if !s.IsHeld(key1) {
		t.Fatal("slot must be held after AddHolds")
	}
	if !s.OwnsHold(key1) {
		t.Fatal("owner must own the hold it placed")
	}
	if !s.OwnsActive() {
		t.Fatal("OwnsActive must be true")
	}

	// A different identity sees the hold but does not own it.
	other := New(backend, "1", "user-8", WithClock(clk.now))
	other.Load(ctx)
	if !other.IsHeld(key1) {
		t.Fatal("other viewer must see the hold")
	}
	if other.OwnsHold(key1) {
		t.Fatal("other viewer must not own the hold")
	}
	if other.OwnsActive() {
		t.Fatal("other viewer has no active holds of their own")
	}
	if err := other.CancelHold(ctx, key1); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("cancel by non-owner: got %v, want ErrNotOwner", err)
	}
}

func TestMonotonicAdvance(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	s := New(storage.NewMemory(), "1", "u", WithClock(clk.now))
	s.Load(ctx)

	s.AddHolds(ctx, []string{key1})
	e1 := s.Snapshot()[key1].ExpiresAt

	clk.advance(10 * time.Minute)
	s.AddHolds(ctx, []string{key1})
	e2 := s.Snapshot()[key1].ExpiresAt
	if e2 <= e1 {
		t.Fatalf("later add must advance expiry: %d -> %d", e1, e2)
	}

	// A write computing an earlier expiry must not regress the stored one.
	clk.advance(-20 * time.Minute)
	s.AddHolds(ctx, []string{key1})
	if got := s.Snapshot()[key1].ExpiresAt; got != e2 {
		t.Fatalf("expiry regressed: %d -> %d", e2, got)
	}
}

func TestExpirySweep(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemory()
	clk := newClock()
	s := New(backend, "1", "u", WithClock(clk.now))
	s.Load(ctx)

	s.AddHolds(ctx, []string{key1, key2})
	if changed := s.Tick(ctx); changed {
		t.Fatal("nothing should change before expiry")
	}

	clk.advance(HoldTTL + time.Second)
	if changed := s.Tick(ctx); !changed {
		t.Fatal("sweep past expiry must report a change")
	}
	if s.IsHeld(key1) || s.IsHeld(key2) {
		t.Fatal("expired holds must be gone")
	}
	if s.OwnsActive() {
		t.Fatal("no active holds after sweep")
	}
	if _, ok, _ := backend.Get(ctx, "resourceHolds_1"); ok {
		t.Fatal("empty map must remove the persisted entry")
	}

	// Round-trip: the slot is selectable and holdable again.
	s.AddHolds(ctx, []string{key1})
	if !s.OwnsHold(key1) {
		t.Fatal("re-hold after expiry must behave like the first hold")
	}
}

func TestCancelHold(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemory()
	clk := newClock()
	s := New(backend, "5", "u", WithClock(clk.now))
	s.Load(ctx)

	if err := s.CancelHold(ctx, key1); !errors.Is(err, ErrNoHold) {
		t.Fatalf("cancel missing: got %v, want ErrNoHold", err)
	}

	s.AddHolds(ctx, []string{key1, key2})
	if err := s.CancelHold(ctx, key1); err != nil {
		t.Fatalf("cancel own hold: %v", err)
	}
	if s.IsHeld(key1) {
		t.Fatal("cancelled hold must be gone")
	}
	if !s.OwnsActive() {
		t.Fatal("second hold still active")
	}
	if _, ok, _ := backend.Get(ctx, "resourceHolds_5"); !ok {
		t.Fatal("non-empty map must stay persisted")
	}

	if err := s.CancelHold(ctx, key2); err != nil {
		t.Fatalf("cancel last hold: %v", err)
	}
	if _, ok, _ := backend.Get(ctx, "resourceHolds_5"); ok {
		t.Fatal("cancelling the last hold must delete the persisted entry")
	}
}

func TestLoadLegacyShape(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemory()
	clk := newClock()
	future := clk.t.Add(20 * time.Minute).UnixMilli()
	backend.Set(ctx, "resourceHolds_1", `{"`+key1+`": `+int64str(future)+`}`)

	s := New(backend, "1", "u", WithClock(clk.now))
	s.Load(ctx)

	if !s.IsHeld(key1) {
		t.Fatal("legacy bare-number hold must count as held")
	}
	if s.OwnsHold(key1) {
		t.Fatal("legacy hold is unowned")
	}
	if err := s.CancelHold(ctx, key1); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("legacy hold cancellable by no one: got %v", err)
	}
}

func TestLoadPrunesAndToleratesCorruption(t *testing.T) {
	ctx := context.Background()
	clk := newClock()

	t.Run("expired entries discarded", func(t *testing.T) {
		backend := storage.NewMemory()
		past := clk.t.Add(-time.Minute).UnixMilli()
		future := clk.t.Add(20 * time.Minute).UnixMilli()
		backend.Set(ctx, "resourceHolds_1",
			`{"`+key1+`": {"expiresAt": `+int64str(past)+`, "owner": "u"},
			  "`+key2+`": {"expiresAt": `+int64str(future)+`, "owner": "u"}}`)

		s := New(backend, "1", "u", WithClock(clk.now))
		s.Load(ctx)
		if s.IsHeld(key1) {
			t.Fatal("expired entry must be discarded on load")
		}
		if !s.OwnsHold(key2) {
			t.Fatal("live entry must survive load")
		}
		if !s.OwnsActive() {
			t.Fatal("owner flag must reflect surviving entries")
		}
	})

	t.Run("corrupt JSON degrades to empty", func(t *testing.T) {
		backend := storage.NewMemory()
		backend.Set(ctx, "resourceHolds_1", `{not json`)
		s := New(backend, "1", "u", WithClock(clk.now))
		s.Load(ctx)
		if s.IsHeld(key1) || s.OwnsActive() {
			t.Fatal("corrupt value must behave like an empty map")
		}
	})
}

// brokenStore fails every operation, simulating quota or unavailable
// storage.
type brokenStore struct{}

func (brokenStore) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("storage unavailable")
}
func (brokenStore) Set(context.Context, string, string) error {
	return errors.New("storage unavailable")
}
func (brokenStore) Delete(context.Context, string) error {
	return errors.New("storage unavailable")
}

func TestStorageFailuresSwallowed(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	s := New(brokenStore{}, "1", "u", WithClock(clk.now))
	s.Load(ctx)

	s.AddHolds(ctx, []string{key1})
	if !s.OwnsHold(key1) {
		t.Fatal("in-memory state must work despite storage failures")
	}
	if err := s.CancelHold(ctx, key1); err != nil {
		t.Fatalf("cancel must succeed in memory: %v", err)
	}
}

func TestEarliestOwnExpiry(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	s := New(storage.NewMemory(), "1", "u", WithClock(clk.now))
	s.Load(ctx)

	if _, ok := s.EarliestOwnExpiry(); ok {
		t.Fatal("no expiry before any hold")
	}
	s.AddHolds(ctx, []string{key1})
	clk.advance(5 * time.Minute)
	s.AddHolds(ctx, []string{key2})

	exp, ok := s.EarliestOwnExpiry()
	if !ok {
		t.Fatal("expected an expiry")
	}
	want := clk.t.Add(HoldTTL - 5*time.Minute)
	if !exp.Equal(want) {
		t.Fatalf("earliest expiry %v, want %v (the older hold)", exp, want)
	}
}

type capturingPublisher struct{ ch chan queue.HoldEvent }

func (p *capturingPublisher) PublishHoldEvent(_ context.Context, ev queue.HoldEvent) error {
	p.ch <- ev
	return nil
}

func TestHoldEventsPublished(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	pub := &capturingPublisher{ch: make(chan queue.HoldEvent, 10)}
	s := New(storage.NewMemory(), "9", "u", WithClock(clk.now), WithPublisher(pub))
	s.Load(ctx)

	s.AddHolds(ctx, []string{key1})
	ev := waitEvent(t, pub.ch)
	if ev.Action != queue.ActionPlaced || ev.SlotKey != key1 || ev.ResourceID != "9" {
		t.Fatalf("unexpected placed event: %+v", ev)
	}

	clk.advance(HoldTTL + time.Second)
	s.Tick(ctx)
	ev = waitEvent(t, pub.ch)
	if ev.Action != queue.ActionExpired {
		t.Fatalf("unexpected event after sweep: %+v", ev)
	}
}

func waitEvent(t *testing.T, ch chan queue.HoldEvent) queue.HoldEvent {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for hold event")
		return queue.HoldEvent{}
	}
}

func int64str(v int64) string {
	return strconv.FormatInt(v, 10)
}
