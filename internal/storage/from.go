package storage

import (
	"log"

	"github.com/ajasta/booking-client/internal/config"
)

// FromConfig selects a storage backend from configuration.  An
// unreachable backend is logged and replaced by the in-memory store:
// hold persistence is a convenience layer and must never keep the
// booking page from rendering.
func FromConfig(cfg config.Config) Store {
	switch cfg.StorageDriver {
	case "redis":
		if c := config.NewRedisClient(); c != nil {
			return NewRedis(c)
		}
		log.Printf("storage: redis unreachable, falling back to memory")
	case "mysql":
		m, err := OpenMySQL(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err == nil {
			return m
		}
		log.Printf("storage: mysql unavailable (%v), falling back to memory", err)
	case "file":
		f, err := NewFile(cfg.StoragePath)
		if err == nil {
			return f
		}
		log.Printf("storage: cannot use directory %q (%v), falling back to memory", cfg.StoragePath, err)
	case "", "memory":
		// explicit default below
	default:
		log.Printf("storage: unknown driver %q, falling back to memory", cfg.StorageDriver)
	}
	return NewMemory()
}
