// Package store records chat exchange metadata for operators. Message text
// is never stored.
package store

import (
	"context"
	"time"
)

// Transport names how an exchange reached the server.
const (
	TransportHTTP      = "http"
	TransportWebSocket = "websocket"
)

// KindOK is the kind recorded for a successful exchange.
const KindOK = "ok"

// Exchange is one answered or failed chat request.
type Exchange struct {
	ClientKey   string
	Transport   string
	Kind        string
	Status      int
	Latency     time.Duration
	MessageLen  int
	ResponseLen int
	CreatedAt   time.Time
}

// Stats summarizes recorded exchanges.
type Stats struct {
	Total  int64            `json:"total"`
	ByKind map[string]int64 `json:"byKind"`
	Since  *time.Time       `json:"since"`
}

// Repository defines the interface for persisting exchange records.
type Repository interface {
	// RecordExchange stores one exchange.
	RecordExchange(ctx context.Context, e *Exchange) error

	// ExchangeStats counts stored exchanges by kind.
	ExchangeStats(ctx context.Context) (*Stats, error)

	// PruneBefore deletes exchanges created before cutoff.
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}

// Noop is a Repository that keeps nothing.
type Noop struct{}

// NewNoop returns a repository for when the exchange log is disabled.
func NewNoop() Repository {
	return Noop{}
}

func (Noop) RecordExchange(context.Context, *Exchange) error { return nil }

func (Noop) ExchangeStats(context.Context) (*Stats, error) {
	return &Stats{ByKind: map[string]int64{}}, nil
}

func (Noop) PruneBefore(context.Context, time.Time) (int64, error) { return 0, nil }

func (Noop) Ping(context.Context) error { return nil }

func (Noop) Close() error { return nil }
