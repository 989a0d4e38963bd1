package service

import (
	"context"

	"github.com/BarkinBalci/channel-attribution-service/internal/assembler"
	"github.com/BarkinBalci/channel-attribution-service/internal/domain"
	"github.com/BarkinBalci/channel-attribution-service/internal/dto"
)

// TouchpointServicer defines the interface for touchpoint ingestion
type TouchpointServicer interface {
	ProcessTouchpoint(ctx context.Context, tp *dto.PublishTouchpointRequest) (string, error)
	ProcessBulkTouchpoints(ctx context.Context, touchpoints []dto.PublishTouchpointRequest) ([]string, []string)
}

// AttributionServicer defines the interface for attribution runs
type AttributionServicer interface {
	Attribute(ctx context.Context, events []domain.TouchpointEvent) (*assembler.Result, error)
	RunFromStore(ctx context.Context, req RunRequest) (*RunSummary, error)
	GetRun(ctx context.Context, runID string) ([]assembler.LongRow, error)
}
