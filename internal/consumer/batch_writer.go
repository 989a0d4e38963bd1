package consumer

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/BarkinBalci/channel-attribution-service/internal/domain"
	"github.com/BarkinBalci/channel-attribution-service/internal/repository"
)

// BatchWriterConfig configures the batch writer
type BatchWriterConfig struct {
	MaxBatchSize int
	FlushTimeout time.Duration

	// OnInserted and OnDuplicates, when set, receive per-batch counts
	OnInserted   func(count int)
	OnDuplicates func(count int)
}

// BatchWriter batches touchpoint envelopes and writes them to the repository
type BatchWriter struct {
	repository repository.TouchpointRepository
	dedup      Deduplicator
	config     BatchWriterConfig
	log        *zap.Logger
}

// NewBatchWriter creates a new batch writer. dedup may be nil, in which case
// redelivered messages are left to the ReplacingMergeTree merge.
func NewBatchWriter(repo repository.TouchpointRepository, dedup Deduplicator, config BatchWriterConfig, log *zap.Logger) *BatchWriter {
	return &BatchWriter{
		repository: repo,
		dedup:      dedup,
		config:     config,
		log:        log,
	}
}

// Start begins processing envelopes, batching, and writing to the repository
func (w *BatchWriter) Start(ctx context.Context, in <-chan *Envelope) {
	ticker := time.NewTicker(w.config.FlushTimeout)
	defer ticker.Stop()

	batch := make([]*Envelope, 0, w.config.MaxBatchSize)

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Batch writer shutting down")
			w.flushFinal(context.WithoutCancel(ctx), batch)
			return

		case envelope, ok := <-in:
			if !ok {
				w.log.Info("Batch writer input channel closed")
				w.flushFinal(ctx, batch)
				return
			}

			batch = append(batch, envelope)

			if len(batch) >= w.config.MaxBatchSize {
				w.log.Debug("Batch size threshold reached", zap.Int("batch_size", len(batch)))
				w.processBatch(ctx, batch)
				batch = make([]*Envelope, 0, w.config.MaxBatchSize)
				ticker.Reset(w.config.FlushTimeout)
			}

		case <-ticker.C:
			if len(batch) > 0 {
				w.log.Debug("Batch timeout reached", zap.Int("envelope_count", len(batch)))
				w.processBatch(ctx, batch)
				batch = make([]*Envelope, 0, w.config.MaxBatchSize)
			}
		}
	}
}

func (w *BatchWriter) flushFinal(ctx context.Context, batch []*Envelope) {
	if len(batch) == 0 {
		return
	}
	w.log.Info("Flushing final batch", zap.Int("envelope_count", len(batch)))
	w.processBatch(ctx, batch)
}

// processBatch drops duplicates, inserts the rest, then acks on success or
// nacks on failure
func (w *BatchWriter) processBatch(ctx context.Context, envelopes []*Envelope) {
	if len(envelopes) == 0 {
		return
	}

	fresh, marked, ok := w.dropDuplicates(ctx, envelopes)
	if !ok {
		return
	}
	if len(fresh) == 0 {
		return
	}

	touchpoints := make([]*domain.TouchpointEvent, len(fresh))
	for i, env := range fresh {
		touchpoints[i] = env.Touchpoint
	}

	insertedCount, err := w.repository.InsertBatch(ctx, touchpoints)
	if err != nil {
		w.log.Error("Failed to insert batch",
			zap.Error(err),
			zap.Int("touchpoint_count", len(touchpoints)))
		w.release(ctx, marked)
		w.nackAll(ctx, fresh)
		return
	}

	if insertedCount != len(touchpoints) {
		w.log.Warn("Partial insert success",
			zap.Int("inserted", insertedCount),
			zap.Int("expected", len(touchpoints)))
		w.release(ctx, marked)
		w.nackAll(ctx, fresh)
		return
	}

	w.log.Info("Successfully inserted touchpoints", zap.Int("count", insertedCount))
	if w.config.OnInserted != nil {
		w.config.OnInserted(insertedCount)
	}
	w.ackAll(ctx, fresh)
}

// dropDuplicates acks already-seen envelopes and returns the fresh ones plus
// the ids this batch marked. ok is false when the deduplicator failed, in
// which case every envelope has been nacked.
func (w *BatchWriter) dropDuplicates(ctx context.Context, envelopes []*Envelope) (fresh []*Envelope, marked []string, ok bool) {
	if w.dedup == nil {
		return envelopes, nil, true
	}

	fresh = make([]*Envelope, 0, len(envelopes))
	var duplicates []*Envelope

	for _, env := range envelopes {
		id := env.Touchpoint.TouchpointID
		seen, err := w.dedup.Seen(ctx, id)
		if err != nil {
			w.log.Error("Deduplication failed, retrying batch later",
				zap.String("touchpoint_id", id),
				zap.Error(err))
			w.release(ctx, marked)
			w.nackAll(ctx, envelopes)
			return nil, nil, false
		}
		if seen {
			duplicates = append(duplicates, env)
			continue
		}
		marked = append(marked, id)
		fresh = append(fresh, env)
	}

	if len(duplicates) > 0 {
		redelivered := 0
		for _, env := range duplicates {
			if env.Redelivered() {
				redelivered++
			}
		}
		w.log.Info("Dropped duplicate touchpoints",
			zap.Int("count", len(duplicates)),
			zap.Int("redelivered", redelivered))
		if w.config.OnDuplicates != nil {
			w.config.OnDuplicates(len(duplicates))
		}
		w.ackAll(ctx, duplicates)
	}

	return fresh, marked, true
}

func (w *BatchWriter) release(ctx context.Context, ids []string) {
	if w.dedup == nil || len(ids) == 0 {
		return
	}
	if err := w.dedup.Release(ctx, ids...); err != nil {
		w.log.Error("Failed to release touchpoint ids", zap.Int("count", len(ids)), zap.Error(err))
	}
}

// ackAll acknowledges all envelopes (deletes from SQS)
func (w *BatchWriter) ackAll(ctx context.Context, envelopes []*Envelope) {
	for _, env := range envelopes {
		if err := env.Ack(ctx); err != nil {
			w.log.Error("Failed to ack envelope", zap.Error(err))
		}
	}
}

// nackAll negatively acknowledges all envelopes (leaves in SQS for retry)
func (w *BatchWriter) nackAll(ctx context.Context, envelopes []*Envelope) {
	for _, env := range envelopes {
		if err := env.Nack(ctx); err != nil {
			w.log.Error("Failed to nack envelope", zap.Error(err))
		}
	}
}
