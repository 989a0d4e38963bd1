package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/BarkinBalci/channel-attribution-service/internal/dto"
	"github.com/BarkinBalci/channel-attribution-service/internal/queue"
)

// TouchpointService validates touchpoints and publishes them for ingestion
type TouchpointService struct {
	publisher queue.QueuePublisher
	now       func() time.Time
	log       *zap.Logger
}

// NewTouchpointService creates a new touchpoint service
func NewTouchpointService(publisher queue.QueuePublisher, log *zap.Logger) *TouchpointService {
	return &TouchpointService{
		publisher: publisher,
		now:       time.Now,
		log:       log,
	}
}

// computeTouchpointID derives a deterministic ID from user_id|channel|step|timestamp
// so a retried publish deduplicates downstream
func computeTouchpointID(tp *dto.PublishTouchpointRequest) string {
	data := fmt.Sprintf("%s|%s|%d|%d", tp.UserID, tp.Channel, tp.Step, tp.Timestamp)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ProcessTouchpoint validates and publishes a single touchpoint
func (s *TouchpointService) ProcessTouchpoint(ctx context.Context, tp *dto.PublishTouchpointRequest) (string, error) {
	currentTime := s.now().Unix()
	if tp.Timestamp > currentTime+1 {
		s.log.Warn("Timestamp validation failed: future timestamp",
			zap.Int64("touchpoint_timestamp", tp.Timestamp),
			zap.Int64("current_time", currentTime),
			zap.String("channel", tp.Channel))
		return "", fmt.Errorf("timestamp cannot be in the future: %d > %d", tp.Timestamp, currentTime)
	}

	touchpointID := computeTouchpointID(tp)

	if err := s.publisher.PublishTouchpoint(ctx, tp, touchpointID); err != nil {
		return "", fmt.Errorf("failed to publish touchpoint to queue: %w", err)
	}

	return touchpointID, nil
}

// ProcessBulkTouchpoints publishes every valid touchpoint and collects the
// per-item errors of the rest
func (s *TouchpointService) ProcessBulkTouchpoints(ctx context.Context, touchpoints []dto.PublishTouchpointRequest) ([]string, []string) {
	var ids []string
	var errs []string

	for i := range touchpoints {
		id, err := s.ProcessTouchpoint(ctx, &touchpoints[i])
		if err != nil {
			errs = append(errs, fmt.Sprintf("touchpoint %d: %s", i, err.Error()))
			s.log.Warn("Failed to process touchpoint in bulk",
				zap.Int("index", i),
				zap.Error(err),
				zap.String("user_id", touchpoints[i].UserID))
			continue
		}
		ids = append(ids, id)
	}

	return ids, errs
}
