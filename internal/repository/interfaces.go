package repository

import (
	"context"
	"errors"
	"time"

	"github.com/BarkinBalci/channel-attribution-service/internal/assembler"
	"github.com/BarkinBalci/channel-attribution-service/internal/domain"
)

// ErrRunNotFound is returned when no credits are stored for a run ID
var ErrRunNotFound = errors.New("attribution run not found")

// TouchpointRepository defines the interface for touchpoint storage operations
type TouchpointRepository interface {
	// InsertBatch inserts a batch of touchpoints into the storage
	InsertBatch(ctx context.Context, touchpoints []*domain.TouchpointEvent) (int, error)

	// ListTouchpoints returns every touchpoint with from <= timestamp <= to,
	// ordered by user, step, then timestamp
	ListTouchpoints(ctx context.Context, from, to time.Time) ([]domain.TouchpointEvent, error)

	// InitSchema initializes the database schema (creates tables if they don't exist)
	InitSchema(ctx context.Context) error

	// Ping checks if the database connection is alive
	Ping(ctx context.Context) error

	// Close closes the repository and releases resources
	Close() error
}

// CreditRepository stores the long-form output of attribution runs
type CreditRepository interface {
	InsertCredits(ctx context.Context, runID string, rows []assembler.LongRow) error
	GetCredits(ctx context.Context, runID string) ([]assembler.LongRow, error)
}
