package config // package config loads application configuration from environment variables

import (
	"os"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  Each field
// corresponds to an environment variable.  Only the stub backend and
// the audit consumer read this; the library packages take their
// dependencies as explicit arguments.
type Config struct {
	Env            string // application environment (e.g. "dev", "prod")
	Port           string // HTTP port for the stub backend
	JWTSecret      string // secret the stub backend verifies bearer tokens with
	BackendBaseURL string // base URL of the booking backend the client talks to
	StorageDriver  string // hold storage backend: memory | file | redis | mysql
	StoragePath    string // directory for the file storage backend
	DBUser         string // MySQL username (mysql storage backend)
	DBPass         string // MySQL password (optional)
	DBHost         string // MySQL host
	DBPort         string // MySQL port
	DBName         string // MySQL database name
	AMQPURL        string // RabbitMQ URL; empty disables hold event publishing
}

// Load reads configuration from the environment, after loading an
// optional .env file from the working directory.  Every value has a
// development-friendly default; optional subsystems (Redis, MySQL,
// AMQP) switch on only when their variables are present.
func Load() Config {
	_ = godotenv.Load() // .env is optional; ignore absence

	return Config{
		Env:            getenv("APP_ENV", "dev"),
		Port:           getenv("APP_PORT", "8088"),
		JWTSecret:      getenv("JWT_SECRET", "dev-secret"),
		BackendBaseURL: getenv("BACKEND_BASE_URL", "http://localhost:8088"),
		StorageDriver:  getenv("HOLD_STORAGE_DRIVER", "file"),
		StoragePath:    getenv("HOLD_STORAGE_PATH", ".holds"),
		DBUser:         os.Getenv("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"),
		DBHost:         getenv("DB_HOST", "localhost"),
		DBPort:         getenv("DB_PORT", "3306"),
		DBName:         os.Getenv("DB_NAME"),
		AMQPURL:        os.Getenv("RABBITMQ_URL"),
	}
}

// getenv retrieves an environment variable with a fallback default.
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
