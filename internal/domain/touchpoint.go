package domain

import "time"

// ConversionStep is the funnel step that marks a conversion
const ConversionStep = 4

// Sentinel states that wrap every channel sequence
const (
	StateStart      = "start"
	StateConversion = "conversion"
	StateNull       = "null"
)

// IsSentinel reports whether state is one of the start or terminal states
func IsSentinel(state string) bool {
	return state == StateStart || state == StateConversion || state == StateNull
}

// TouchpointEvent represents a single user interaction with a marketing channel
type TouchpointEvent struct {
	TouchpointID string    `ch:"touchpoint_id"`
	UserID       string    `ch:"user_id"`
	Timestamp    time.Time `ch:"timestamp"`
	Channel      string    `ch:"channel"`
	Step         int       `ch:"step"`
	ProcessedAt  time.Time `ch:"processed_at"`
	Version      uint64    `ch:"version"`
}

// ChannelCredit is one output row of an attribution model
type ChannelCredit struct {
	UserID  string
	Channel string
	Credit  float64
}
