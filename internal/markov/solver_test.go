package markov

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BarkinBalci/channel-attribution-service/internal/attribution"
	"github.com/BarkinBalci/channel-attribution-service/internal/domain"
)

func TestSolve_Baseline(t *testing.T) {
	g, err := BuildGraph(fourUsers(), "")
	require.NoError(t, err)

	absorption, err := Solve(g)

	require.NoError(t, err)
	assert.InDelta(t, 0.5, absorption.Start(), tolerance)
	assert.InDelta(t, 0.25, absorption.Probabilities["a"], tolerance)
	assert.InDelta(t, 0.75, absorption.Probabilities["b"], tolerance)
	assert.Equal(t, 1.0, absorption.Probabilities["conversion"])
	assert.Equal(t, 0.0, absorption.Probabilities["null"])
}

func TestSolve_WithRemoval(t *testing.T) {
	tests := []struct {
		removal string
		start   float64
	}{
		{"a", 1.0 / 3.0},
		{"b", 0},
	}

	for _, tt := range tests {
		t.Run(tt.removal, func(t *testing.T) {
			g, err := BuildGraph(fourUsers(), tt.removal)
			require.NoError(t, err)

			absorption, err := Solve(g)

			require.NoError(t, err)
			assert.Equal(t, tt.removal, absorption.Removal)
			assert.InDelta(t, tt.start, absorption.Start(), tolerance)
		})
	}
}

func TestSolve_NoConverters(t *testing.T) {
	g, err := BuildGraph([]domain.UserJourney{journey("u1", false, "a", "b")}, "")
	require.NoError(t, err)

	absorption, err := Solve(g)

	require.NoError(t, err)
	assert.Equal(t, 0.0, absorption.Start())
}

func TestSolve_SingularSystem(t *testing.T) {
	// a and b form a closed loop with no path to an absorbing state
	g := NewGraphFromEdges([]TransitionEdge{
		{StateStart: "start", StateEnd: "a", Count: 1},
		{StateStart: "a", StateEnd: "b", Count: 1},
		{StateStart: "b", StateEnd: "a", Count: 1},
	})

	absorption, err := Solve(g)

	assert.Nil(t, absorption)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNumerical))
}

func TestFundamentalMatrix(t *testing.T) {
	g, err := BuildGraph([]domain.UserJourney{journey("u1", true, "ads")}, "")
	require.NoError(t, err)

	n, err := FundamentalMatrix(g)

	require.NoError(t, err)
	assert.Equal(t, []string{"start", "ads"}, g.TransientStates())
	assert.InDelta(t, 1.0, n.At(0, 0), tolerance)
	assert.InDelta(t, 1.0, n.At(0, 1), tolerance, "start visits ads once before absorption")
	assert.InDelta(t, 0.0, n.At(1, 0), tolerance)
	assert.InDelta(t, 1.0, n.At(1, 1), tolerance)
}

func TestSolver_RemovalEffects(t *testing.T) {
	solver := NewSolver(SolverConfig{Workers: 2}, zap.NewNop())

	effects, err := solver.RemovalEffects(context.Background(), fourUsers())

	require.NoError(t, err)
	require.Len(t, effects, 2)
	assert.InDelta(t, 0.25, effects["a"], tolerance)
	assert.InDelta(t, 0.75, effects["b"], tolerance)
}

func TestSolver_RemovalEffectsSumToOne(t *testing.T) {
	journeys := append(fourUsers(),
		journey("u5", true, "c", "a", "c", "b"),
		journey("u6", false, "c", "c", "d"),
		journey("u7", true, "d"),
		journey("u8", true, "e", "d", "a"),
	)

	solver := NewSolver(SolverConfig{}, zap.NewNop())

	effects, err := solver.RemovalEffects(context.Background(), journeys)

	require.NoError(t, err)
	total := 0.0
	for _, effect := range effects {
		assert.GreaterOrEqual(t, effect, 0.0)
		total += effect
	}
	assert.InDelta(t, 1.0, total, tolerance)
}

func TestSolver_WorkerCountDoesNotChangeResult(t *testing.T) {
	journeys := append(fourUsers(),
		journey("u5", true, "c", "a", "c", "b"),
		journey("u6", false, "c", "d"),
		journey("u7", true, "d"),
	)

	sequential, err := NewSolver(SolverConfig{Workers: 1}, zap.NewNop()).RemovalEffects(context.Background(), journeys)
	require.NoError(t, err)

	parallel, err := NewSolver(SolverConfig{Workers: 8}, zap.NewNop()).RemovalEffects(context.Background(), journeys)
	require.NoError(t, err)

	require.Equal(t, len(sequential), len(parallel))
	for channel, effect := range sequential {
		assert.InDelta(t, effect, parallel[channel], tolerance, channel)
	}
}

func TestSolver_OnSolveCalledPerChannel(t *testing.T) {
	var calls atomic.Int32
	solver := NewSolver(SolverConfig{
		Workers: 4,
		OnSolve: func(removal string, elapsed time.Duration) {
			calls.Add(1)
		},
	}, zap.NewNop())

	_, err := solver.RemovalEffects(context.Background(), fourUsers())

	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestSolver_ContextCancelled(t *testing.T) {
	solver := NewSolver(SolverConfig{Workers: 1}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	effects, err := solver.RemovalEffects(ctx, fourUsers())

	assert.Nil(t, effects)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestSolver_NoConversionsIsNumericalError(t *testing.T) {
	solver := NewSolver(SolverConfig{}, zap.NewNop())

	effects, err := solver.RemovalEffects(context.Background(), []domain.UserJourney{journey("u1", false, "a")})

	assert.Nil(t, effects)
	assert.True(t, errors.Is(err, domain.ErrNumerical))
}

func TestModel_SingleChannelSingleConverter(t *testing.T) {
	model := NewModel(NewSolver(SolverConfig{}, zap.NewNop()))

	table, err := model.Attribute(context.Background(), []domain.UserJourney{journey("u1", true, "ads")})

	require.NoError(t, err)
	assert.Equal(t, attribution.ModelMarkov, table.Model)
	assert.Equal(t, []string{"ads"}, table.Channels)
	require.Len(t, table.Rows, 1)
	assert.InDelta(t, 1.0, table.Credit(0, "ads"), tolerance)
}

func TestModel_NonConvertersShapeGraphButGetNoRows(t *testing.T) {
	model := NewModel(NewSolver(SolverConfig{}, zap.NewNop()))

	journeys := []domain.UserJourney{
		journey("u1", true, "ads"),
		journey("u2", false, "email"),
	}

	table, err := model.Attribute(context.Background(), journeys)

	require.NoError(t, err)
	require.Len(t, table.Rows, 1, "non-converters get no credit row")
	assert.Equal(t, "u1", table.Rows[0].UserID)
	assert.Equal(t, []string{"ads", "email"}, table.Channels, "non-converter channels are part of the graph")
	assert.InDelta(t, 1.0, table.Credit(0, "ads"), tolerance)
	assert.InDelta(t, 0.0, table.Credit(0, "email"), tolerance)
}

func TestModel_BroadcastsIdenticalVector(t *testing.T) {
	model := NewModel(NewSolver(SolverConfig{}, zap.NewNop()))

	table, err := model.Attribute(context.Background(), fourUsers())

	require.NoError(t, err)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "u1", table.Rows[0].UserID)
	assert.Equal(t, "u3", table.Rows[1].UserID)
	assert.Equal(t, table.Rows[0].Credits, table.Rows[1].Credits)
	assert.InDelta(t, 0.25, table.Credit(0, "a"), tolerance)
	assert.InDelta(t, 0.75, table.Credit(1, "b"), tolerance)
}

func TestModel_NoConvertersSkipsSolve(t *testing.T) {
	var calls atomic.Int32
	model := NewModel(NewSolver(SolverConfig{
		OnSolve: func(string, time.Duration) { calls.Add(1) },
	}, zap.NewNop()))

	table, err := model.Attribute(context.Background(), []domain.UserJourney{journey("u1", false, "a")})

	require.NoError(t, err)
	assert.Empty(t, table.Rows)
	assert.Empty(t, table.Channels)
	assert.Equal(t, int32(0), calls.Load())
}
