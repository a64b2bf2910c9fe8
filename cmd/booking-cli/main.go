package main // Entry point package

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ajasta/booking-client/internal/api"
	"github.com/ajasta/booking-client/internal/booking"
	"github.com/ajasta/booking-client/internal/config"
	"github.com/ajasta/booking-client/internal/identity"
	"github.com/ajasta/booking-client/internal/queue"
	"github.com/ajasta/booking-client/internal/storage"
)

// booking-cli is a terminal front end over the client library: it
// renders the slot grid for one resource and date, books a selection
// and cancels holds.  Holds go through the configured storage backend,
// so two invocations against the same backend see each other's holds.
func main() {
	var (
		resourceID = flag.Uint64("resource", 1, "resource id to view")
		date       = flag.String("date", "", "date to view (YYYY-MM-DD, default today rolled forward)")
		slots      = flag.String("book", "", "slots to book, comma separated HH:MM@unit (e.g. 09:00@1,09:30@1)")
		cancel     = flag.String("cancel", "", "slot to release, HH:MM@unit")
	)
	flag.Parse()

	cfg := config.Load()
	token := os.Getenv("BOOKING_TOKEN") // bearer token minted by the backend's login

	client := api.New(cfg.BackendBaseURL, func() string { return token })
	ident := identity.FromToken(func() string { return token })
	backend := storage.FromConfig(cfg)

	opts := []booking.SessionOption{}
	if cfg.AMQPURL != "" {
		opts = append(opts, booking.WithHoldPublisher(queue.NewAMQPPublisher(cfg.AMQPURL)))
	}

	ctx, stop := context.WithTimeout(context.Background(), 30*time.Second)
	defer stop()

	s, err := booking.Open(ctx, backend, client, ident, *resourceID, opts...)
	if err != nil {
		log.Fatal(err)
	}
	defer s.Close()

	if *date != "" {
		s.Controller.SetDate(*date)
	}

	if *cancel != "" {
		t, unit := parseCell(*cancel)
		s.Controller.Click(ctx, t, unit) // clicking an own hold releases it
	}

	if *slots != "" {
		for _, cell := range strings.Split(*slots, ",") {
			t, unit := parseCell(cell)
			s.Controller.Click(ctx, t, unit)
		}
		if err := s.Controller.Submit(ctx); err != nil {
			log.Fatalf("booking failed: %v", err)
		}
		fmt.Println(s.Controller.SuccessMessage())
	}

	render(s)
}

// parseCell splits "HH:MM@unit" into its parts, defaulting to unit 1.
func parseCell(cell string) (string, int) {
	parts := strings.SplitN(strings.TrimSpace(cell), "@", 2)
	unit := 1
	if len(parts) == 2 {
		if n, err := strconv.Atoi(parts[1]); err == nil {
			unit = n
		}
	}
	return parts[0], unit
}

var cellGlyphs = map[booking.CellState]string{
	booking.CellUnavailable: " .",
	booking.CellAvailable:   " o",
	booking.CellSelected:    " +",
	booking.CellHeldByMe:    " M",
	booking.CellHeldByOther: " X",
}

// render prints the grid, one row per time label and one column per
// unit, plus the hold countdown when one is running.
func render(s *booking.Session) {
	fmt.Printf("%s  %s  (%s)\n", s.Resource.Name, s.Controller.Date(), s.Controller.State())
	for _, label := range s.Controller.Slots() {
		fmt.Printf("%s ", label)
		for unit := 1; unit <= s.Resource.Units(); unit++ {
			fmt.Print(cellGlyphs[s.Controller.CellState(label, unit)])
		}
		fmt.Println()
	}
	if left, ok := s.Controller.HoldCountdown(); ok {
		fmt.Printf("hold active, %s left\n", left.Round(time.Second))
	}
	q := s.Controller.Quote()
	if q.Slots > 0 {
		fmt.Printf("selected: %d slot(s), total %.2f %s\n", q.Slots, q.Total, q.Currency)
	}
}
