package consumer

import (
	"context"

	"github.com/BarkinBalci/channel-attribution-service/internal/domain"
)

// MessageParser defines the interface for parsing raw message bytes into touchpoints
type MessageParser interface {
	Parse(body []byte) (*domain.TouchpointEvent, error)
}

// Deduplicator drops touchpoints that were already written.
// Seen marks an id and reports whether it was marked before; Release unmarks
// ids whose write failed so their redelivery is accepted.
type Deduplicator interface {
	Seen(ctx context.Context, id string) (bool, error)
	Release(ctx context.Context, ids ...string) error
}
