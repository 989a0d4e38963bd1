package queue

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/BarkinBalci/channel-attribution-service/internal/dto"
)

// QueuePublisher defines the interface for publishing touchpoints to a queue
type QueuePublisher interface {
	PublishTouchpoint(ctx context.Context, touchpoint *dto.PublishTouchpointRequest, touchpointID string) error
}

// QueueConsumer defines the interface for consuming messages from a queue
type QueueConsumer interface {
	ReceiveMessages(ctx context.Context, input *sqs.ReceiveMessageInput) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, input *sqs.DeleteMessageInput) (*sqs.DeleteMessageOutput, error)
	QueueURL() string
}
