package journey

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BarkinBalci/channel-attribution-service/internal/domain"
)

func day(d int) time.Time {
	return time.Date(2024, 8, d, 10, 0, 0, 0, time.UTC)
}

func TestBuilder_Build_ConvertingJourney(t *testing.T) {
	builder := NewBuilder(zap.NewNop())

	events := []domain.TouchpointEvent{
		{UserID: "u1", Timestamp: day(3), Channel: "ads", Step: 3},
		{UserID: "u1", Timestamp: day(1), Channel: "ads", Step: 1},
		{UserID: "u1", Timestamp: day(2), Channel: "email", Step: 2},
		{UserID: "u1", Timestamp: day(5), Channel: "search", Step: 4},
	}

	journeys, err := builder.Build(events)

	require.NoError(t, err)
	require.Len(t, journeys, 1)

	j := journeys[0]
	assert.Equal(t, "u1", j.UserID)
	assert.Equal(t, []string{"start", "ads", "email", "ads", "search", "conversion"}, j.ChannelSeq)
	assert.True(t, j.Approved)
	assert.Equal(t, 4, j.MaxStep)
	assert.Equal(t, 4, j.NTouchpoints)
	assert.Equal(t, 3, j.NChannels)
	assert.Equal(t, day(1), j.DateStart)
	assert.Equal(t, day(5), j.DateEnd)
	assert.Equal(t, 5, j.DaysInFunnel)
	assert.Len(t, j.ChannelSeq, j.NTouchpoints+2)
}

func TestBuilder_Build_NonConvertingJourney(t *testing.T) {
	builder := NewBuilder(zap.NewNop())

	events := []domain.TouchpointEvent{
		{UserID: "u2", Timestamp: day(1), Channel: "social", Step: 1},
		{UserID: "u2", Timestamp: day(1), Channel: "email", Step: 2},
	}

	journeys, err := builder.Build(events)

	require.NoError(t, err)
	require.Len(t, journeys, 1)
	assert.False(t, journeys[0].Approved)
	assert.Equal(t, []string{"start", "social", "email", "null"}, journeys[0].ChannelSeq)
	assert.Equal(t, 1, journeys[0].DaysInFunnel)
	assert.Equal(t, []string{"social", "email"}, journeys[0].Interior())
}

func TestBuilder_Build_TiesKeepInputOrder(t *testing.T) {
	builder := NewBuilder(zap.NewNop())

	events := []domain.TouchpointEvent{
		{UserID: "u1", Timestamp: day(1), Channel: "b", Step: 2},
		{UserID: "u1", Timestamp: day(1), Channel: "a", Step: 1},
		{UserID: "u1", Timestamp: day(1), Channel: "c", Step: 2},
		{UserID: "u1", Timestamp: day(1), Channel: "d", Step: 2},
	}

	journeys, err := builder.Build(events)

	require.NoError(t, err)
	assert.Equal(t, []string{"start", "a", "b", "c", "d", "null"}, journeys[0].ChannelSeq)
}

func TestBuilder_Build_OneJourneyPerUserSortedByID(t *testing.T) {
	builder := NewBuilder(zap.NewNop())

	events := []domain.TouchpointEvent{
		{UserID: "u3", Timestamp: day(1), Channel: "ads", Step: 1},
		{UserID: "u1", Timestamp: day(1), Channel: "ads", Step: 4},
		{UserID: "u3", Timestamp: day(2), Channel: "ads", Step: 2},
		{UserID: "u2", Timestamp: day(1), Channel: "email", Step: 1},
	}

	journeys, err := builder.Build(events)

	require.NoError(t, err)
	require.Len(t, journeys, 3)
	assert.Equal(t, "u1", journeys[0].UserID)
	assert.Equal(t, "u2", journeys[1].UserID)
	assert.Equal(t, "u3", journeys[2].UserID)
	assert.Equal(t, 2, journeys[2].NTouchpoints)
	assert.Equal(t, 1, journeys[2].NChannels)
}

func TestBuilder_Build_StepOutOfRangeTolerated(t *testing.T) {
	builder := NewBuilder(zap.NewNop())

	events := []domain.TouchpointEvent{
		{UserID: "u1", Timestamp: day(1), Channel: "ads", Step: 0},
		{UserID: "u1", Timestamp: day(2), Channel: "email", Step: 7},
	}

	journeys, err := builder.Build(events)

	require.NoError(t, err)
	require.Len(t, journeys, 1)
	assert.False(t, journeys[0].Approved, "max step 7 is not the conversion step")
	assert.Equal(t, 7, journeys[0].MaxStep)
}

func TestBuilder_Build_MissingFields(t *testing.T) {
	tests := []struct {
		name  string
		event domain.TouchpointEvent
	}{
		{"missing user", domain.TouchpointEvent{Timestamp: day(1), Channel: "ads", Step: 1}},
		{"missing channel", domain.TouchpointEvent{UserID: "u1", Timestamp: day(1), Step: 1}},
		{"missing date", domain.TouchpointEvent{UserID: "u1", Channel: "ads", Step: 1}},
		{"reserved start channel", domain.TouchpointEvent{UserID: "u1", Timestamp: day(1), Channel: domain.StateStart, Step: 1}},
		{"reserved conversion channel", domain.TouchpointEvent{UserID: "u1", Timestamp: day(1), Channel: domain.StateConversion, Step: 1}},
		{"reserved null channel", domain.TouchpointEvent{UserID: "u1", Timestamp: day(1), Channel: domain.StateNull, Step: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			builder := NewBuilder(zap.NewNop())

			journeys, err := builder.Build([]domain.TouchpointEvent{tt.event})

			assert.Nil(t, journeys)
			assert.True(t, errors.Is(err, domain.ErrSchema))
		})
	}
}

func TestBuilder_Build_Empty(t *testing.T) {
	builder := NewBuilder(zap.NewNop())

	journeys, err := builder.Build(nil)

	require.NoError(t, err)
	assert.Empty(t, journeys)
}
