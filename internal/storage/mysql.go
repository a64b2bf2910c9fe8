package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// MySQL keeps the store in a single key/value table.  Deployments that
// already run the booking backend's database can point several kiosk
// terminals at it and share one hold map without standing up Redis.
type MySQL struct {
	db *sql.DB
}

// OpenMySQL connects to MySQL, verifies the connection and makes sure
// the backing table exists.
func OpenMySQL(user, pass, host, port, name string) (*MySQL, error) {
	auth := user
	if pass != "" {
		auth = fmt.Sprintf("%s:%s", user, pass)
	}
	// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
	dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, host, port, name)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS client_store (
			store_key VARCHAR(191) NOT NULL PRIMARY KEY,
			payload MEDIUMTEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
		)`); err != nil {
		db.Close()
		return nil, err
	}
	return &MySQL{db: db}, nil
}

// Close releases the underlying connection pool.
func (m *MySQL) Close() error { return m.db.Close() }

func (m *MySQL) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := m.db.QueryRowContext(ctx,
		`SELECT payload FROM client_store WHERE store_key = ?`, key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (m *MySQL) Set(ctx context.Context, key, value string) error {
	_, err := m.db.ExecContext(ctx,
		`INSERT INTO client_store (store_key, payload) VALUES (?, ?)
		 ON DUPLICATE KEY UPDATE payload = VALUES(payload)`, key, value)
	return err
}

func (m *MySQL) Delete(ctx context.Context, key string) error {
	_, err := m.db.ExecContext(ctx, `DELETE FROM client_store WHERE store_key = ?`, key)
	return err
}
