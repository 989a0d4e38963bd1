package sqs

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/zap"

	envConfig "github.com/BarkinBalci/channel-attribution-service/internal/config"
	"github.com/BarkinBalci/channel-attribution-service/internal/dto"
	"github.com/BarkinBalci/channel-attribution-service/internal/queue"
)

// Client represents an SQS client
type Client struct {
	client *sqs.Client
	config envConfig.SQS
	log    *zap.Logger
}

// NewClient creates a new SQS client
func NewClient(ctx context.Context, SQSConfig envConfig.SQS, log *zap.Logger) (*Client, error) {
	configOpts := []func(*config.LoadOptions) error{
		config.WithRegion(SQSConfig.Region),
	}

	var clientOpts []func(*sqs.Options)

	// Local development against ElasticMQ
	if SQSConfig.Endpoint != "" {
		log.Info("Configuring SQS for local development",
			zap.String("endpoint", SQSConfig.Endpoint))
		configOpts = append(configOpts,
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("dummy", "dummy", "")))

		clientOpts = append(clientOpts, func(o *sqs.Options) {
			o.BaseEndpoint = aws.String(SQSConfig.Endpoint)
		})
	}

	cfg, err := config.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	sqsClient := sqs.NewFromConfig(cfg, clientOpts...)

	log.Info("SQS client created",
		zap.String("region", SQSConfig.Region),
		zap.String("queue_url", SQSConfig.QueueURL))

	return &Client{
		client: sqsClient,
		config: SQSConfig,
		log:    log,
	}, nil
}

// ReceiveMessages receives messages from SQS
func (c *Client) ReceiveMessages(ctx context.Context, input *sqs.ReceiveMessageInput) (*sqs.ReceiveMessageOutput, error) {
	return c.client.ReceiveMessage(ctx, input)
}

// DeleteMessage deletes a message from SQS
func (c *Client) DeleteMessage(ctx context.Context, input *sqs.DeleteMessageInput) (*sqs.DeleteMessageOutput, error) {
	return c.client.DeleteMessage(ctx, input)
}

// QueueURL returns the configured queue URL
func (c *Client) QueueURL() string {
	return c.config.QueueURL
}

// NewSendMessageInput builds the SQS message for a touchpoint
func NewSendMessageInput(queueURL string, touchpoint *dto.PublishTouchpointRequest, touchpointID string) (*sqs.SendMessageInput, error) {
	body, err := json.Marshal(queue.TouchpointMessage{
		TouchpointID: touchpointID,
		UserID:       touchpoint.UserID,
		Channel:      touchpoint.Channel,
		Step:         touchpoint.Step,
		Timestamp:    touchpoint.Timestamp,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal touchpoint: %w", err)
	}

	return &sqs.SendMessageInput{
		QueueUrl:    aws.String(queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"Channel": {
				DataType:    aws.String("String"),
				StringValue: aws.String(touchpoint.Channel),
			},
			"Step": {
				DataType:    aws.String("Number"),
				StringValue: aws.String(strconv.Itoa(touchpoint.Step)),
			},
		},
	}, nil
}

// PublishTouchpoint publishes a touchpoint to SQS
func (c *Client) PublishTouchpoint(ctx context.Context, touchpoint *dto.PublishTouchpointRequest, touchpointID string) error {
	input, err := NewSendMessageInput(c.config.QueueURL, touchpoint, touchpointID)
	if err != nil {
		c.log.Error("Failed to build touchpoint message",
			zap.String("touchpoint_id", touchpointID),
			zap.Error(err))
		return err
	}

	if _, err := c.client.SendMessage(ctx, input); err != nil {
		c.log.Error("Failed to send message to SQS",
			zap.String("touchpoint_id", touchpointID),
			zap.String("channel", touchpoint.Channel),
			zap.Error(err))
		return fmt.Errorf("failed to send message to SQS: %w", err)
	}

	c.log.Debug("Touchpoint published to SQS",
		zap.String("touchpoint_id", touchpointID),
		zap.String("channel", touchpoint.Channel))

	return nil
}
