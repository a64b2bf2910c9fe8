package booking

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"sync"
)

// emailPattern is deliberately loose: the backend re-validates, this
// only catches obvious typos before they reach a payment link.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ErrNoParticipants is returned when validating a split with an empty
// participant list, which only happens through misuse.
var ErrNoParticipants = errors.New("split needs at least one participant")

// Participant is one payer in a split booking.  The first participant
// is the booking owner; their email is fixed and their share may not
// drop below the equal split (they cannot push the bulk of the price
// onto invited friends).
type Participant struct {
	Email  string
	Amount float64
}

// Split divides a booking total among several payers.  Amounts are
// re-split equally whenever the participant list or the total changes;
// manual adjustments are validated rather than auto-corrected so the
// user sees exactly what each payer owes.
type Split struct {
	mu           sync.Mutex
	total        float64
	participants []Participant
	saved        map[string]bool
}

// NewSplit starts a split with the owner as sole payer of the full
// total.
func NewSplit(ownerEmail string, total float64) *Split {
	return &Split{
		total:        round2(total),
		participants: []Participant{{Email: ownerEmail, Amount: round2(total)}},
		saved:        make(map[string]bool),
	}
}

// Total returns the amount the split must add up to.
func (s *Split) Total() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// SetTotal updates the total (the selection changed) and re-splits
// equally.
func (s *Split) SetTotal(total float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total = round2(total)
	s.equalizeLocked()
}

// Participants returns a copy of the current payer list.
func (s *Split) Participants() []Participant {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Participant(nil), s.participants...)
}

// Add appends an empty participant and re-splits equally.
func (s *Split) Add() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.participants = append(s.participants, Participant{})
	s.equalizeLocked()
}

// Remove drops the participant at index i and re-splits equally.  The
// owner at index 0 cannot be removed.
func (s *Split) Remove(i int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i <= 0 || i >= len(s.participants) {
		return
	}
	s.participants = append(s.participants[:i], s.participants[i+1:]...)
	s.equalizeLocked()
}

// SetEmail updates a participant's email.  The owner's email at index
// 0 is fixed.
func (s *Split) SetEmail(i int, email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i <= 0 || i >= len(s.participants) {
		return
	}
	s.participants[i].Email = email
}

// SetAmount records a manual share adjustment.  Validation happens in
// Validate, not here, so the UI can show intermediate states.
func (s *Split) SetAmount(i int, amount float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.participants) {
		return
	}
	s.participants[i].Amount = round2(amount)
}

// Validate checks the split is payable: every invited participant has
// a plausible email, every share is positive, the owner keeps at least
// the equal share, and the shares add up to the total.
func (s *Split) Validate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.participants)
	if n == 0 {
		return ErrNoParticipants
	}
	sum := 0.0
	for i, p := range s.participants {
		if i > 0 && !emailPattern.MatchString(p.Email) {
			return fmt.Errorf("participant email %q looks invalid", p.Email)
		}
		if p.Amount <= 0 {
			return fmt.Errorf("participant %d has no share assigned", i+1)
		}
		sum += p.Amount
	}
	if share := equalShare(s.total, n); s.participants[0].Amount+0.005 < share {
		return fmt.Errorf("your share must be at least %.2f (the equal split)", share)
	}
	if math.Abs(round2(sum)-s.total) > 0.005 {
		return fmt.Errorf("shares add up to %.2f, the booking costs %.2f", round2(sum), s.total)
	}
	return nil
}

// UnsavedEmails returns the invited emails that are valid and not yet
// in the caller's saved list, for pushing to the saved-emails
// endpoint.  Each email is reported once.
func (s *Split) UnsavedEmails(known []string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	knownSet := make(map[string]bool, len(known))
	for _, e := range known {
		knownSet[e] = true
	}
	var out []string
	for i, p := range s.participants {
		if i == 0 || !emailPattern.MatchString(p.Email) {
			continue
		}
		if knownSet[p.Email] || s.saved[p.Email] {
			continue
		}
		s.saved[p.Email] = true
		out = append(out, p.Email)
	}
	return out
}

// equalizeLocked assigns everyone the equal share, with the rounding
// remainder going to the owner so the sum always matches the total.
func (s *Split) equalizeLocked() {
	n := len(s.participants)
	if n == 0 {
		return
	}
	share := equalShare(s.total, n)
	for i := range s.participants {
		s.participants[i].Amount = share
	}
	s.participants[0].Amount = round2(s.total - share*float64(n-1))
}

func equalShare(total float64, n int) float64 {
	return round2(total / float64(n))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
