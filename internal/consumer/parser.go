package consumer

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/BarkinBalci/channel-attribution-service/internal/domain"
	"github.com/BarkinBalci/channel-attribution-service/internal/queue"
)

// JSONTouchpointParser implements MessageParser for JSON touchpoint messages
type JSONTouchpointParser struct {
	now func() time.Time
}

// NewJSONTouchpointParser creates a new JSON touchpoint parser
func NewJSONTouchpointParser() *JSONTouchpointParser {
	return &JSONTouchpointParser{now: time.Now}
}

// Parse parses a JSON message body into a TouchpointEvent
func (p *JSONTouchpointParser) Parse(body []byte) (*domain.TouchpointEvent, error) {
	var msg queue.TouchpointMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message body: %w", err)
	}

	if err := validateMessage(&msg); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSchema, err)
	}

	now := p.now()
	return &domain.TouchpointEvent{
		TouchpointID: msg.TouchpointID,
		UserID:       msg.UserID,
		Timestamp:    time.Unix(msg.Timestamp, 0).UTC(),
		Channel:      msg.Channel,
		Step:         msg.Step,
		ProcessedAt:  now,
		Version:      uint64(now.UnixNano()),
	}, nil
}

func validateMessage(msg *queue.TouchpointMessage) error {
	var errs []error
	if msg.TouchpointID == "" {
		errs = append(errs, errors.New("touchpoint_id is required"))
	}
	if msg.UserID == "" {
		errs = append(errs, errors.New("user_id is required"))
	}
	if msg.Channel == "" {
		errs = append(errs, errors.New("channel is required"))
	}
	if msg.Step == 0 {
		errs = append(errs, errors.New("step is required"))
	}
	if msg.Timestamp == 0 {
		errs = append(errs, errors.New("timestamp is required"))
	}
	return errors.Join(errs...)
}
