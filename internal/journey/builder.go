package journey

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/BarkinBalci/channel-attribution-service/internal/domain"
)

// Builder turns raw touchpoint events into one UserJourney per user
type Builder struct {
	log *zap.Logger
}

// NewBuilder creates a new journey builder
func NewBuilder(log *zap.Logger) *Builder {
	return &Builder{log: log}
}

// Build groups events by user and summarizes each group.
//
// Within a user, touchpoints are ordered by step with a stable sort, so
// touchpoints sharing a step keep the order in which the caller supplied them.
// Journeys are returned ordered by user ID.
func (b *Builder) Build(events []domain.TouchpointEvent) ([]domain.UserJourney, error) {
	groups := make(map[string][]domain.TouchpointEvent)
	outOfRange := 0

	for i, event := range events {
		if err := validateEvent(event); err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		if event.Step < 1 || event.Step > domain.ConversionStep {
			outOfRange++
		}
		groups[event.UserID] = append(groups[event.UserID], event)
	}

	if outOfRange > 0 {
		b.log.Warn("Touchpoints with step outside the funnel range",
			zap.Int("count", outOfRange),
			zap.Int("min_step", 1),
			zap.Int("max_step", domain.ConversionStep))
	}

	userIDs := make([]string, 0, len(groups))
	for userID := range groups {
		userIDs = append(userIDs, userID)
	}
	sort.Strings(userIDs)

	journeys := make([]domain.UserJourney, 0, len(userIDs))
	for _, userID := range userIDs {
		journeys = append(journeys, summarize(userID, groups[userID]))
	}

	b.log.Debug("Built user journeys",
		zap.Int("event_count", len(events)),
		zap.Int("journey_count", len(journeys)))

	return journeys, nil
}

func validateEvent(event domain.TouchpointEvent) error {
	switch {
	case event.UserID == "":
		return fmt.Errorf("%w: user_id is required", domain.ErrSchema)
	case event.Channel == "":
		return fmt.Errorf("%w: channel is required", domain.ErrSchema)
	case domain.IsSentinel(event.Channel):
		return fmt.Errorf("%w: channel %q collides with a reserved state", domain.ErrSchema, event.Channel)
	case event.Timestamp.IsZero():
		return fmt.Errorf("%w: date is required", domain.ErrSchema)
	}
	return nil
}

// summarize builds the journey of a single user. events must be non-empty.
func summarize(userID string, events []domain.TouchpointEvent) domain.UserJourney {
	ordered := make([]domain.TouchpointEvent, len(events))
	copy(ordered, events)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Step < ordered[j].Step
	})

	start, end := ordered[0].Timestamp, ordered[0].Timestamp
	maxStep := ordered[0].Step
	channels := make(map[string]struct{})

	seq := make([]string, 0, len(ordered)+2)
	seq = append(seq, domain.StateStart)

	for _, event := range ordered {
		if event.Timestamp.Before(start) {
			start = event.Timestamp
		}
		if event.Timestamp.After(end) {
			end = event.Timestamp
		}
		if event.Step > maxStep {
			maxStep = event.Step
		}
		channels[event.Channel] = struct{}{}
		seq = append(seq, event.Channel)
	}

	j := domain.UserJourney{
		UserID:       userID,
		DateStart:    start,
		DateEnd:      end,
		DaysInFunnel: int(end.Sub(start).Hours()/24) + 1,
		Approved:     maxStep == domain.ConversionStep,
		MaxStep:      maxStep,
		NTouchpoints: len(ordered),
		NChannels:    len(channels),
	}
	j.ChannelSeq = append(seq, j.Terminal())

	return j
}
