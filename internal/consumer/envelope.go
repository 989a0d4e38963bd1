package consumer

import (
	"context"
	"strconv"

	"github.com/BarkinBalci/channel-attribution-service/internal/domain"
)

// Envelope carries a parsed touchpoint through the pipeline together with the
// callbacks that settle its queue message
type Envelope struct {
	Touchpoint *domain.TouchpointEvent

	// MessageID and ReceiveCount describe the originating queue message.
	// ReceiveCount is zero when the queue did not report it.
	MessageID    string
	ReceiveCount int

	ack  func(context.Context) error
	nack func(context.Context) error
}

// NewEnvelope creates a new message envelope
func NewEnvelope(touchpoint *domain.TouchpointEvent, ack, nack func(context.Context) error) *Envelope {
	return &Envelope{
		Touchpoint: touchpoint,
		ack:        ack,
		nack:       nack,
	}
}

// Redelivered reports whether the queue delivered the message before
func (e *Envelope) Redelivered() bool {
	return e.ReceiveCount > 1
}

// Ack settles the message as processed
func (e *Envelope) Ack(ctx context.Context) error {
	if e.ack == nil {
		return nil
	}
	return e.ack(ctx)
}

// Nack leaves the message for redelivery
func (e *Envelope) Nack(ctx context.Context) error {
	if e.nack == nil {
		return nil
	}
	return e.nack(ctx)
}

func parseReceiveCount(attributes map[string]string) int {
	n, err := strconv.Atoi(attributes[receiveCountAttribute])
	if err != nil {
		return 0
	}
	return n
}
