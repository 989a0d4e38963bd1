package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BarkinBalci/channel-attribution-service/internal/assembler"
	"github.com/BarkinBalci/channel-attribution-service/internal/attribution"
	"github.com/BarkinBalci/channel-attribution-service/internal/config"
	"github.com/BarkinBalci/channel-attribution-service/internal/domain"
	"github.com/BarkinBalci/channel-attribution-service/internal/journey"
	"github.com/BarkinBalci/channel-attribution-service/internal/metrics"
	"github.com/BarkinBalci/channel-attribution-service/internal/repository"
)

// RunRequest selects the stored touchpoints of an attribution run
type RunRequest struct {
	From time.Time
	To   time.Time
}

// RunSummary describes a completed, persisted attribution run
type RunSummary struct {
	RunID      string
	From       time.Time
	To         time.Time
	Journeys   int
	Converters int
	Rows       int
}

// AttributionService runs every attribution model over a touchpoint set
type AttributionService struct {
	touchpoints repository.TouchpointRepository
	credits     repository.CreditRepository
	builder     *journey.Builder
	models      []attribution.Model
	metrics     *metrics.Metrics
	config      config.Attribution
	newRunID    func() string
	log         *zap.Logger
}

// NewAttributionService creates a new attribution service. models run in the
// given order and the first one defines the row set of the result. m may be nil.
func NewAttributionService(
	touchpoints repository.TouchpointRepository,
	credits repository.CreditRepository,
	models []attribution.Model,
	m *metrics.Metrics,
	cfg config.Attribution,
	log *zap.Logger,
) *AttributionService {
	return &AttributionService{
		touchpoints: touchpoints,
		credits:     credits,
		builder:     journey.NewBuilder(log),
		models:      models,
		metrics:     m,
		config:      cfg,
		newRunID:    uuid.NewString,
		log:         log,
	}
}

// Attribute computes the credits of every model for the given touchpoints
func (s *AttributionService) Attribute(ctx context.Context, events []domain.TouchpointEvent) (*assembler.Result, error) {
	result, _, err := s.compute(ctx, events)
	s.recordRun(result, err)
	return result, err
}

// RunFromStore computes credits over the stored touchpoints of a time range
// and persists them under a new run ID
func (s *AttributionService) RunFromStore(ctx context.Context, req RunRequest) (*RunSummary, error) {
	if err := s.validateRange(req); err != nil {
		s.recordRun(nil, err)
		return nil, err
	}

	events, err := s.touchpoints.ListTouchpoints(ctx, req.From, req.To)
	if err != nil {
		err = fmt.Errorf("failed to load touchpoints: %w", err)
		s.recordRun(nil, err)
		return nil, err
	}

	result, journeys, err := s.compute(ctx, events)
	if err != nil {
		s.recordRun(nil, err)
		return nil, err
	}

	runID := s.newRunID()
	if err := s.credits.InsertCredits(ctx, runID, result.Long); err != nil {
		err = fmt.Errorf("failed to store credits: %w", err)
		s.recordRun(nil, err)
		return nil, err
	}
	s.recordRun(result, nil)

	summary := &RunSummary{
		RunID:      runID,
		From:       req.From,
		To:         req.To,
		Journeys:   journeys,
		Converters: len(result.Wide.UserIDs),
		Rows:       len(result.Long),
	}

	s.log.Info("Attribution run completed",
		zap.String("run_id", runID),
		zap.Int("touchpoint_count", len(events)),
		zap.Int("journey_count", summary.Journeys),
		zap.Int("converter_count", summary.Converters))

	return summary, nil
}

// GetRun returns the stored credits of a run
func (s *AttributionService) GetRun(ctx context.Context, runID string) ([]assembler.LongRow, error) {
	if _, err := uuid.Parse(runID); err != nil {
		return nil, fmt.Errorf("%w: invalid run id %q", domain.ErrConfiguration, runID)
	}

	rows, err := s.credits.GetCredits(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run credits: %w", err)
	}
	return rows, nil
}

// compute builds journeys, runs every model and assembles the tables. Any
// model error aborts the whole computation.
func (s *AttributionService) compute(ctx context.Context, events []domain.TouchpointEvent) (*assembler.Result, int, error) {
	journeys, err := s.builder.Build(events)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build journeys: %w", err)
	}

	tables := make([]*attribution.CreditTable, 0, len(s.models))
	for _, model := range s.models {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}

		started := time.Now()
		table, err := model.Attribute(ctx, journeys)
		if err != nil {
			return nil, 0, fmt.Errorf("%s model: %w", model.Name(), err)
		}
		tables = append(tables, table)

		s.log.Debug("Model computed",
			zap.String("model", string(model.Name())),
			zap.Int("channel_count", len(table.Channels)),
			zap.Int("row_count", len(table.Rows)),
			zap.Duration("elapsed", time.Since(started)))
	}

	result, err := assembler.Assemble(tables...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to assemble credit tables: %w", err)
	}

	return result, len(journeys), nil
}

func (s *AttributionService) validateRange(req RunRequest) error {
	if req.From.After(req.To) {
		s.log.Warn("Invalid time range for attribution run",
			zap.Time("from", req.From),
			zap.Time("to", req.To))
		return fmt.Errorf("%w: from timestamp must be less than or equal to to timestamp", domain.ErrConfiguration)
	}

	if s.config.MaxRangeDays > 0 {
		days := int(req.To.Sub(req.From).Hours() / 24)
		if days > s.config.MaxRangeDays {
			s.log.Warn("Time range too large for attribution run",
				zap.Int("range_days", days),
				zap.Int("max_range_days", s.config.MaxRangeDays))
			return fmt.Errorf("%w: time range too large (max %d days, got %d days)",
				domain.ErrConfiguration, s.config.MaxRangeDays, days)
		}
	}

	return nil
}

func (s *AttributionService) recordRun(result *assembler.Result, err error) {
	if s.metrics == nil {
		return
	}

	switch {
	case err == nil:
		s.metrics.RunFinished(metrics.OutcomeSuccess, len(result.Wide.UserIDs))
	case IsInvalidInput(err):
		s.metrics.RunFinished(metrics.OutcomeInvalid, 0)
	default:
		s.metrics.RunFinished(metrics.OutcomeFailed, 0)
	}
}

// IsInvalidInput reports whether err was caused by the caller's input rather
// than by the service or its dependencies
func IsInvalidInput(err error) bool {
	return errors.Is(err, domain.ErrSchema) || errors.Is(err, domain.ErrConfiguration)
}
