package main // Entry point package

import (
	"log" // Logging library

	"github.com/ajasta/booking-client/internal/config" // Internal config loader
	"github.com/ajasta/booking-client/internal/queue"  // Hold event consumer
)

// hold-audit tails the hold lifecycle queue and appends every event to
// an audit log.  It runs alongside the stub backend during development
// so placed, released and expired holds can be replayed after the fact.
func main() {
	cfg := config.Load() // Load environment config
	if cfg.AMQPURL == "" {
		log.Fatal("RABBITMQ_URL is not set; nothing to consume")
	}
	log.Printf("consuming hold events from %s", cfg.AMQPURL)
	if err := queue.StartHoldAuditConsumer(cfg.AMQPURL); err != nil { // Blocks, reconnecting on failure
		log.Fatal(err)
	}
}
