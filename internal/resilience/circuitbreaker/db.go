package circuitbreaker

import (
	"context"
	"database/sql"
	"time"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PingFunc adapts a plain ping function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) PingContext(ctx context.Context) error { return f(ctx) }

// PingCheck is the readiness check for the database. Once the breaker opens,
// checks fail fast instead of queueing on a dead connection pool.
type PingCheck struct {
	cb *CircuitBreaker
	db Pinger
}

// DBConfig opens after five straight failed pings and retries after 30s.
func DBConfig() Config {
	return Config{
		Name:             "database",
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 1,
		MinRequests:      5,
	}
}

func NewDBCheck(db *sql.DB) *PingCheck {
	return NewPingCheck(db, DBConfig())
}

// NewPingCheck guards any Pinger, such as the Redis store.
func NewPingCheck(p Pinger, cfg Config) *PingCheck {
	return &PingCheck{cb: New(cfg), db: p}
}

func (p *PingCheck) PingContext(ctx context.Context) error {
	_, err := p.cb.Execute(func() (any, error) {
		return nil, p.db.PingContext(ctx)
	})
	return err
}

func (p *PingCheck) IsOpen() bool { return p.cb.IsOpen() }
