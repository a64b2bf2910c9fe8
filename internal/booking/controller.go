// Package booking drives one resource-viewing session: the transient
// multi-select of scheduler cells, the grouped submission to the
// backend, and the promotion of an accepted booking into holds.  The
// controller owns no rendering; a UI asks it for cell verdicts and
// feeds clicks back in.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/ajasta/booking-client/internal/api"
	"github.com/ajasta/booking-client/internal/availability"
	"github.com/ajasta/booking-client/internal/holdstore"
	"github.com/ajasta/booking-client/internal/identity"
	"github.com/ajasta/booking-client/internal/model"
)

// State is the controller's position in the booking flow.
type State int

const (
	// StateBrowsing: no selection, no own holds.
	StateBrowsing State = iota
	// StateSelecting: at least one cell selected, nothing submitted.
	StateSelecting
	// StateSubmitting: a booking request is in flight.
	StateSubmitting
	// StateHeld: a booking was accepted and the caller has active holds.
	StateHeld
)

func (s State) String() string {
	switch s {
	case StateBrowsing:
		return "browsing"
	case StateSelecting:
		return "selecting"
	case StateSubmitting:
		return "submitting"
	case StateHeld:
		return "held"
	}
	return "unknown"
}

// CellState is the render verdict for one scheduler cell.
type CellState int

const (
	CellUnavailable CellState = iota
	CellAvailable
	CellSelected
	CellHeldByMe
	CellHeldByOther
)

// Validation failures detected before any network call.
var (
	ErrNotAuthenticated = errors.New("please log in to book slots")
	ErrForbidden        = errors.New("your account is not allowed to book slots")
	ErrNoSelection      = errors.New("select at least one time slot to book")
	ErrHoldActive       = errors.New("finish or cancel your current reservation before booking again")
	ErrSubmitting       = errors.New("a booking request is already in flight")
)

// BookingAPI is the slice of the backend client the controller needs.
type BookingAPI interface {
	BookBatch(ctx context.Context, resourceID uint64, day api.Day) (*api.Envelope, error)
	BookMulti(ctx context.Context, resourceID uint64, days []api.Day) (*api.Envelope, error)
}

// Quote is the price summary for the current selection.
type Quote struct {
	Slots        int
	PricePerSlot float64
	Total        float64
	Currency     string
}

// Controller is the selection/booking state machine for one resource.
// It is safe for concurrent use; the sweeper callback and UI handlers
// may race.
type Controller struct {
	mu    sync.Mutex
	res   *model.Resource
	api   BookingAPI
	ident identity.Identity
	holds *holdstore.Store
	now   func() time.Time

	date       string
	selected   map[string]struct{}
	submitting bool
	success    string
	split      *Split
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// NewController builds the state machine over an already-fetched
// resource and an already-loaded hold store.  The initial date is
// today, rolled forward one day when today has no bookable slot left.
func NewController(res *model.Resource, bapi BookingAPI, ident identity.Identity, holds *holdstore.Store, opts ...Option) *Controller {
	c := &Controller{
		res:      res,
		api:      bapi,
		ident:    ident,
		holds:    holds,
		now:      time.Now,
		selected: make(map[string]struct{}),
	}
	for _, o := range opts {
		o(c)
	}
	c.date = availability.RollForward(res, availability.LocalDate(c.now()), c.now())
	return c
}

// Date returns the currently selected calendar date.
func (c *Controller) Date() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.date
}

// SetDate switches the grid to another date.  The selection survives:
// its keys carry their own dates, so cells picked earlier stay picked.
func (c *Controller) SetDate(date string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.date = date
}

// State derives the current machine state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Controller) stateLocked() State {
	switch {
	case c.submitting:
		return StateSubmitting
	case c.holds.OwnsActive():
		return StateHeld
	case len(c.selected) > 0:
		return StateSelecting
	default:
		return StateBrowsing
	}
}

// Selected returns the selection set as sorted slot keys.
func (c *Controller) Selected() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, len(c.selected))
	for k := range c.selected {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Click handles a pointer click on the cell (timeLabel, unit) of the
// current date.  Clicking an own hold cancels it immediately; clicking
// someone else's hold, an unavailable cell, or any cell while holding
// is a no-op; otherwise membership in the selection set toggles.
func (c *Controller) Click(ctx context.Context, timeLabel string, unit int) {
	c.mu.Lock()
	key := model.SlotKey(c.date, timeLabel, unit)

	if c.holds.OwnsHold(key) {
		c.mu.Unlock()
		_ = c.holds.CancelHold(ctx, key)
		return
	}
	defer c.mu.Unlock()
	if c.submitting || c.holds.IsHeld(key) || c.holds.OwnsActive() {
		return
	}
	if !c.onGrid(timeLabel) || availability.IsSlotUnavailable(c.res, c.date, timeLabel, c.now()) {
		return
	}
	if _, ok := c.selected[key]; ok {
		delete(c.selected, key)
	} else {
		c.selected[key] = struct{}{}
	}
	c.syncSplitLocked()
}

// CellState returns the render verdict for a cell on the current date.
func (c *Controller) CellState(timeLabel string, unit int) CellState {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := model.SlotKey(c.date, timeLabel, unit)
	switch {
	case c.holds.OwnsHold(key):
		return CellHeldByMe
	case c.holds.IsHeld(key):
		return CellHeldByOther
	case !c.onGrid(timeLabel) || availability.IsSlotUnavailable(c.res, c.date, timeLabel, c.now()):
		return CellUnavailable
	}
	if _, ok := c.selected[key]; ok {
		return CellSelected
	}
	return CellAvailable
}

// Slots returns the time labels of the grid rows.
func (c *Controller) Slots() []string {
	return availability.GenerateSlots(c.res)
}

// onGrid reports whether a time label is one of the grid's rows.
// Cells outside the working hours do not exist on the scheduler.
func (c *Controller) onGrid(timeLabel string) bool {
	for _, l := range availability.GenerateSlots(c.res) {
		if l == timeLabel {
			return true
		}
	}
	return false
}

// Quote prices the current selection.
func (c *Controller) Quote() Quote {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.quoteLocked()
}

func (c *Controller) quoteLocked() Quote {
	currency := c.res.Currency
	if currency == "" {
		currency = "EUR"
	}
	n := len(c.selected)
	return Quote{
		Slots:        n,
		PricePerSlot: c.res.PricePerSlot,
		Total:        float64(n) * c.res.PricePerSlot,
		Currency:     currency,
	}
}

// CanSubmit reports whether the submit action should be enabled.
func (c *Controller) CanSubmit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.submitting || len(c.selected) == 0 || c.holds.OwnsActive() {
		return false
	}
	if c.split != nil {
		if err := c.split.Validate(); err != nil {
			return false
		}
	}
	return true
}

// Submit validates the session, groups the selection by date and sends
// it to the backend.  On acceptance the selection becomes holds and is
// cleared; on any failure the selection is preserved so a retry needs
// no re-entry.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	if c.submitting {
		c.mu.Unlock()
		return ErrSubmitting
	}
	if !c.ident.IsAuthenticated() {
		c.mu.Unlock()
		return ErrNotAuthenticated
	}
	if !c.ident.IsCustomer() && !c.ident.IsAdmin() {
		c.mu.Unlock()
		return ErrForbidden
	}
	if len(c.selected) == 0 {
		c.mu.Unlock()
		return ErrNoSelection
	}
	if c.holds.OwnsActive() {
		c.mu.Unlock()
		return ErrHoldActive
	}
	if c.split != nil {
		if err := c.split.Validate(); err != nil {
			c.mu.Unlock()
			return err
		}
	}
	keys := make([]string, 0, len(c.selected))
	for k := range c.selected {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	days, err := groupByDate(keys)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.submitting = true
	c.mu.Unlock()

	var env *api.Envelope
	if len(days) == 1 {
		env, err = c.api.BookBatch(ctx, c.res.ID, days[0])
	} else {
		env, err = c.api.BookMulti(ctx, c.res.ID, days)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.submitting = false
	if err != nil {
		return fmt.Errorf("booking request failed: %w", err)
	}
	if !env.OK() {
		if env.Message != "" {
			return errors.New(env.Message)
		}
		return errors.New("failed to book selected slots")
	}

	if env.Message != "" {
		c.success = env.Message
	} else {
		c.success = fmt.Sprintf("Booked %d slot(s) successfully!", len(keys))
	}
	c.holds.AddHolds(ctx, keys)
	c.selected = make(map[string]struct{})
	if c.split != nil {
		if sink, ok := c.api.(savedEmailSink); ok {
			go pushSavedEmails(sink, c.split)
		}
	}
	c.syncSplitLocked()
	return nil
}

// savedEmailSink is the optional backend surface for remembering
// participant emails.  *api.Client implements it.
type savedEmailSink interface {
	SavedEmails(ctx context.Context) ([]string, error)
	AddSavedEmail(ctx context.Context, email string) error
}

// pushSavedEmails remembers the split participants used in an accepted
// booking, so the next booking can offer them.  Best effort: failures
// only log, the booking itself already went through.
func pushSavedEmails(sink savedEmailSink, split *Split) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	known, err := sink.SavedEmails(ctx)
	if err != nil {
		log.Printf("booking: list saved emails failed: %v", err)
	}
	for _, email := range split.UnsavedEmails(known) {
		if err := sink.AddSavedEmail(ctx, email); err != nil {
			log.Printf("booking: save email %q failed: %v", email, err)
		}
	}
}

// SuccessMessage returns the last acceptance message, if any.
func (c *Controller) SuccessMessage() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.success
}

// ClearSuccess dismisses the acceptance message.
func (c *Controller) ClearSuccess() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.success = ""
}

// HoldCountdown returns the time left on the caller's soonest-expiring
// hold, for the "reservation hold active" banner.
func (c *Controller) HoldCountdown() (time.Duration, bool) {
	exp, ok := c.holds.EarliestOwnExpiry()
	if !ok {
		return 0, false
	}
	left := exp.Sub(c.now())
	if left <= 0 {
		return 0, false
	}
	return left, true
}

// EnableSplit turns on split payment for the current quote.  The owner
// email seeds the first participant, who always pays their share
// directly.
func (c *Controller) EnableSplit(ownerEmail string) *Split {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.split = NewSplit(ownerEmail, c.quoteLocked().Total)
	return c.split
}

// DisableSplit turns split payment off.
func (c *Controller) DisableSplit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.split = nil
}

// syncSplitLocked keeps the split total in step with the selection.
func (c *Controller) syncSplitLocked() {
	if c.split != nil {
		c.split.SetTotal(c.quoteLocked().Total)
	}
}

// groupByDate turns slot keys into the backend's day payloads: one Day
// per distinct date, dates ascending, slots ordered by start time then
// unit, each slot closed 30 minutes after it starts.
func groupByDate(keys []string) ([]api.Day, error) {
	byDate := make(map[string][]api.Slot)
	for _, key := range keys {
		date, start, unit, err := model.ParseSlotKey(key)
		if err != nil {
			return nil, err
		}
		mins, ok := availability.ParseClock(start)
		if !ok {
			return nil, fmt.Errorf("slot key %q has an unparsable time", key)
		}
		byDate[date] = append(byDate[date], api.Slot{
			StartTime: start,
			EndTime:   availability.FormatClock(mins + int(availability.SlotStep/time.Minute)),
			Unit:      unit,
		})
	}
	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	days := make([]api.Day, 0, len(dates))
	for _, d := range dates {
		slots := byDate[d]
		sort.Slice(slots, func(i, j int) bool {
			if slots[i].StartTime != slots[j].StartTime {
				return slots[i].StartTime < slots[j].StartTime
			}
			return slots[i].Unit < slots[j].Unit
		})
		days = append(days, api.Day{Date: d, Slots: slots})
	}
	return days, nil
}
