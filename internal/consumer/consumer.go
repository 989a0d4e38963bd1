package consumer

import (
	"context"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/zap"

	"github.com/BarkinBalci/channel-attribution-service/internal/config"
	"github.com/BarkinBalci/channel-attribution-service/internal/metrics"
	"github.com/BarkinBalci/channel-attribution-service/internal/queue"
	"github.com/BarkinBalci/channel-attribution-service/internal/repository"
)

// Consumer runs the receive, parse and batch-write stages of touchpoint ingestion
type Consumer struct {
	receiver    *Receiver
	parser      *ParserStage
	batchWriter *BatchWriter
	bufferSize  int
}

// NewConsumer wires the ingestion pipeline. dedup and m may be nil.
func NewConsumer(cfg *config.Config, queueConsumer queue.QueueConsumer, repo repository.TouchpointRepository, dedup Deduplicator, m *metrics.Metrics, log *zap.Logger) *Consumer {
	receiverConfig := ReceiverConfig{
		MaxMessages:     10,
		WaitTimeSeconds: 20,
		BufferSize:      100,
	}
	receiver := NewReceiver(queueConsumer, receiverConfig, log)

	parser := NewParserStage(queueConsumer, NewJSONTouchpointParser(), log)

	writerConfig := BatchWriterConfig{
		MaxBatchSize: cfg.Consumer.BatchSizeMax,
		FlushTimeout: time.Duration(cfg.Consumer.BatchTimeoutSec) * time.Second,
	}
	if m != nil {
		writerConfig.OnInserted = m.TouchpointsIngested
		writerConfig.OnDuplicates = m.DuplicatesDropped
	}
	batchWriter := NewBatchWriter(repo, dedup, writerConfig, log)

	return &Consumer{
		receiver:    receiver,
		parser:      parser,
		batchWriter: batchWriter,
		bufferSize:  receiverConfig.BufferSize,
	}
}

// Start runs the pipeline until ctx is cancelled and every stage has drained
func (c *Consumer) Start(ctx context.Context) error {
	messageChan := make(chan types.Message, c.bufferSize)
	envelopeChan := make(chan *Envelope, c.bufferSize)

	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		c.receiver.Start(ctx, messageChan)
	}()

	go func() {
		defer wg.Done()
		c.parser.Start(ctx, messageChan, envelopeChan)
	}()

	go func() {
		defer wg.Done()
		c.batchWriter.Start(ctx, envelopeChan)
	}()

	wg.Wait()
	return nil
}
