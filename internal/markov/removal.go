package markov

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BarkinBalci/channel-attribution-service/internal/domain"
)

// SolverConfig configures the removal-effect solver
type SolverConfig struct {
	// Workers bounds the number of concurrent removal solves, zero means runtime.NumCPU()
	Workers int

	// OnSolve, when set, is called after every graph solve with its duration
	OnSolve func(removal string, elapsed time.Duration)
}

// Solver computes Markov removal effects over a journey set
type Solver struct {
	config SolverConfig
	log    *zap.Logger
}

// NewSolver creates a new removal-effect solver
func NewSolver(config SolverConfig, log *zap.Logger) *Solver {
	if config.Workers <= 0 {
		config.Workers = runtime.NumCPU()
	}
	return &Solver{config: config, log: log}
}

// ConversionProbabilities builds the graph for the given removal and solves it
func (s *Solver) ConversionProbabilities(journeys []domain.UserJourney, removal string) (*Absorption, error) {
	started := time.Now()

	g, err := BuildGraph(journeys, removal)
	if err != nil {
		return nil, err
	}

	absorption, err := Solve(g)
	if err != nil {
		return nil, err
	}

	if s.config.OnSolve != nil {
		s.config.OnSolve(removal, time.Since(started))
	}
	return absorption, nil
}

// RemovalEffects returns every channel's removal effect normalized to sum to one.
//
// The raw effect of channel c is B[start] of the baseline graph minus B[start]
// of the graph with c removed. Removal solves are independent and read the
// journeys without modifying them, so they run on a bounded worker pool.
func (s *Solver) RemovalEffects(ctx context.Context, journeys []domain.UserJourney) (map[string]float64, error) {
	base, err := BuildGraph(journeys, "")
	if err != nil {
		return nil, err
	}

	baseline, err := Solve(base)
	if err != nil {
		return nil, fmt.Errorf("baseline solve: %w", err)
	}

	channels := base.Channels()
	effects := make([]float64, len(channels))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Workers)

	for i, channel := range channels {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			removed, err := s.ConversionProbabilities(journeys, channel)
			if err != nil {
				return fmt.Errorf("removal of %q: %w", channel, err)
			}
			effects[i] = baseline.Start() - removed.Start()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0.0
	for _, effect := range effects {
		total += effect
	}
	if total == 0 {
		return nil, fmt.Errorf("%w: removal effects sum to zero, baseline conversion probability %v",
			domain.ErrNumerical, baseline.Start())
	}

	normalized := make(map[string]float64, len(channels))
	for i, channel := range channels {
		normalized[channel] = effects[i] / total
	}

	s.log.Debug("Computed removal effects",
		zap.Int("channel_count", len(channels)),
		zap.Float64("baseline_conversion", baseline.Start()),
		zap.Int("workers", s.config.Workers))

	return normalized, nil
}
