package main // Entry point package

import (
	"log" // Logging library

	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/ajasta/booking-client/internal/config" // Internal config loader
	"github.com/ajasta/booking-client/internal/model"  // Resource fixtures
	"github.com/ajasta/booking-client/internal/stub"   // Stub backend implementation
)

// fixtures is the resource catalogue the stub serves.  The first one
// exercises every exclusion rule the scheduler understands.
func fixtures() []model.Resource {
	return []model.Resource{
		{
			ID:                     1,
			Name:                   "Tennis Court A",
			UnitsCount:             2,
			OpenTime:               "08:00",
			CloseTime:              "22:00",
			PricePerSlot:           12.5,
			Currency:               "EUR",
			UnavailableWeekdays:    "0",           // closed on Sundays
			DailyUnavailableRanges: "12:00-13:00", // maintenance hour
		},
		{
			ID:           2,
			Name:         "Sauna",
			UnitsCount:   1,
			OpenTime:     "10:00",
			CloseTime:    "20:00",
			PricePerSlot: 25,
			Currency:     "EUR",
		},
	}
}

func main() {
	cfg := config.Load() // Load environment config
	e := echo.New()
	e.HideBanner = true

	s := stub.New(cfg.JWTSecret, fixtures()...)
	s.Register(e)

	addr := ":" + cfg.Port
	log.Printf("stub backend listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil { // Start HTTP server
		log.Fatal(err)
	}
}
