package consumer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BarkinBalci/channel-attribution-service/internal/domain"
)

const (
	testTimestamp int64 = 1766702552
)

// MockMessageParser is a mock implementation of MessageParser
type MockMessageParser struct {
	mock.Mock
}

func (m *MockMessageParser) Parse(body []byte) (*domain.TouchpointEvent, error) {
	args := m.Called(body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TouchpointEvent), args.Error(1)
}

func testTouchpoint(id string) *domain.TouchpointEvent {
	return &domain.TouchpointEvent{
		TouchpointID: id,
		UserID:       "user123",
		Channel:      "email",
		Step:         1,
		Timestamp:    time.Unix(testTimestamp, 0).UTC(),
	}
}

// drain collects envelopes until out is closed or the timeout fires
func drain(out <-chan *Envelope, timeout time.Duration) []*Envelope {
	var envelopes []*Envelope
	deadline := time.After(timeout)
	for {
		select {
		case env, ok := <-out:
			if !ok {
				return envelopes
			}
			envelopes = append(envelopes, env)
		case <-deadline:
			return envelopes
		}
	}
}

func TestParserStage_Start_Success(t *testing.T) {
	mockConsumer := new(MockQueueConsumer)
	mockParser := new(MockMessageParser)

	parserStage := NewParserStage(mockConsumer, mockParser, zap.NewNop())

	mockConsumer.On("QueueURL").Return(testQueueURL)
	mockConsumer.On("DeleteMessage", mock.Anything, mock.MatchedBy(func(in *sqs.DeleteMessageInput) bool {
		return aws.ToString(in.ReceiptHandle) == "receipt-1"
	})).Return(&sqs.DeleteMessageOutput{}, nil)

	message := types.Message{
		MessageId:     aws.String("msg-1"),
		Body:          aws.String(`{"touchpoint_id": "1"}`),
		ReceiptHandle: aws.String("receipt-1"),
	}
	mockParser.On("Parse", []byte(`{"touchpoint_id": "1"}`)).Return(testTouchpoint("1"), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	in := make(chan types.Message, 1)
	out := make(chan *Envelope, 1)
	go parserStage.Start(ctx, in, out)

	in <- message
	close(in)

	envelope := <-out
	require.NotNil(t, envelope)
	assert.Equal(t, "1", envelope.Touchpoint.TouchpointID)
	assert.Equal(t, "email", envelope.Touchpoint.Channel)
	assert.Equal(t, "msg-1", envelope.MessageID)
	assert.Zero(t, envelope.ReceiveCount)
	assert.False(t, envelope.Redelivered())

	mockConsumer.AssertNotCalled(t, "DeleteMessage", mock.Anything, mock.Anything)
	assert.NoError(t, envelope.Ack(ctx))
	mockConsumer.AssertNumberOfCalls(t, "DeleteMessage", 1)
	assert.NoError(t, envelope.Nack(ctx))
	mockConsumer.AssertNumberOfCalls(t, "DeleteMessage", 1)
	mockParser.AssertExpectations(t)
}

func TestParserStage_Start_Redelivery(t *testing.T) {
	mockConsumer := new(MockQueueConsumer)
	mockParser := new(MockMessageParser)

	parserStage := NewParserStage(mockConsumer, mockParser, zap.NewNop())

	message := types.Message{
		MessageId:     aws.String("msg-7"),
		Body:          aws.String(`{"touchpoint_id": "7"}`),
		ReceiptHandle: aws.String("receipt-7"),
		Attributes:    map[string]string{receiveCountAttribute: "3"},
	}
	mockParser.On("Parse", []byte(`{"touchpoint_id": "7"}`)).Return(testTouchpoint("7"), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	in := make(chan types.Message, 1)
	out := make(chan *Envelope, 1)
	go parserStage.Start(ctx, in, out)

	in <- message
	close(in)

	envelopes := drain(out, time.Second)
	require.Len(t, envelopes, 1)
	assert.Equal(t, 3, envelopes[0].ReceiveCount)
	assert.True(t, envelopes[0].Redelivered())
}

func TestParserStage_Start_MalformedMessage(t *testing.T) {
	mockConsumer := new(MockQueueConsumer)
	mockParser := new(MockMessageParser)

	parserStage := NewParserStage(mockConsumer, mockParser, zap.NewNop())

	mockConsumer.On("QueueURL").Return(testQueueURL)
	mockConsumer.On("DeleteMessage", mock.Anything, mock.AnythingOfType("*sqs.DeleteMessageInput")).
		Return(&sqs.DeleteMessageOutput{}, nil)

	message := types.Message{
		MessageId:     aws.String("msg-1"),
		Body:          aws.String(`{invalid json}`),
		ReceiptHandle: aws.String("receipt-1"),
	}
	mockParser.On("Parse", []byte(`{invalid json}`)).Return(nil, errors.New("invalid JSON format"))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	in := make(chan types.Message, 1)
	out := make(chan *Envelope, 1)
	go parserStage.Start(ctx, in, out)

	in <- message
	close(in)

	envelopes := drain(out, 100*time.Millisecond)

	assert.Empty(t, envelopes, "malformed messages produce no envelope")
	mockParser.AssertExpectations(t)
	mockConsumer.AssertCalled(t, "DeleteMessage", mock.Anything, mock.AnythingOfType("*sqs.DeleteMessageInput"))
}

func TestParserStage_Start_DeleteMessageFailure(t *testing.T) {
	mockConsumer := new(MockQueueConsumer)
	mockParser := new(MockMessageParser)

	parserStage := NewParserStage(mockConsumer, mockParser, zap.NewNop())

	mockConsumer.On("QueueURL").Return(testQueueURL)
	mockConsumer.On("DeleteMessage", mock.Anything, mock.AnythingOfType("*sqs.DeleteMessageInput")).
		Return(nil, errors.New("failed to delete message from SQS"))

	message := types.Message{
		MessageId:     aws.String("msg-1"),
		Body:          aws.String(`{invalid}`),
		ReceiptHandle: aws.String("receipt-1"),
	}
	mockParser.On("Parse", []byte(`{invalid}`)).Return(nil, errors.New("invalid JSON"))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	in := make(chan types.Message, 1)
	out := make(chan *Envelope, 1)
	go parserStage.Start(ctx, in, out)

	in <- message
	close(in)

	envelopes := drain(out, 100*time.Millisecond)

	assert.Empty(t, envelopes)
	mockConsumer.AssertCalled(t, "DeleteMessage", mock.Anything, mock.AnythingOfType("*sqs.DeleteMessageInput"))
}

func TestParserStage_Start_ContextCancellation(t *testing.T) {
	parserStage := NewParserStage(new(MockQueueConsumer), new(MockMessageParser), zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	in := make(chan types.Message)
	out := make(chan *Envelope, 1)

	cancel()
	parserStage.Start(ctx, in, out)

	_, ok := <-out
	assert.False(t, ok, "Output channel should be closed after context cancellation")
}

func TestParserStage_Start_InputChannelClosed(t *testing.T) {
	parserStage := NewParserStage(new(MockQueueConsumer), new(MockMessageParser), zap.NewNop())

	in := make(chan types.Message)
	out := make(chan *Envelope, 1)

	close(in)
	parserStage.Start(context.Background(), in, out)

	_, ok := <-out
	assert.False(t, ok, "Output channel should be closed when input channel is closed")
}

func TestParserStage_Start_MultipleMessages(t *testing.T) {
	mockConsumer := new(MockQueueConsumer)
	mockParser := new(MockMessageParser)

	parserStage := NewParserStage(mockConsumer, mockParser, zap.NewNop())

	mockConsumer.On("QueueURL").Return(testQueueURL)
	mockConsumer.On("DeleteMessage", mock.Anything, mock.AnythingOfType("*sqs.DeleteMessageInput")).
		Return(&sqs.DeleteMessageOutput{}, nil)

	messages := []types.Message{
		{MessageId: aws.String("msg-1"), Body: aws.String(`{"touchpoint_id": "1"}`), ReceiptHandle: aws.String("receipt-1")},
		{MessageId: aws.String("msg-2"), Body: aws.String(`{invalid}`), ReceiptHandle: aws.String("receipt-2")},
		{MessageId: aws.String("msg-3"), Body: aws.String(`{"touchpoint_id": "3"}`), ReceiptHandle: aws.String("receipt-3")},
	}

	mockParser.On("Parse", []byte(`{"touchpoint_id": "1"}`)).Return(testTouchpoint("1"), nil)
	mockParser.On("Parse", []byte(`{invalid}`)).Return(nil, errors.New("parse error"))
	mockParser.On("Parse", []byte(`{"touchpoint_id": "3"}`)).Return(testTouchpoint("3"), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	in := make(chan types.Message, 3)
	out := make(chan *Envelope, 3)
	go parserStage.Start(ctx, in, out)

	for _, msg := range messages {
		in <- msg
	}
	close(in)

	envelopes := drain(out, 100*time.Millisecond)

	require.Len(t, envelopes, 2)
	assert.Equal(t, "1", envelopes[0].Touchpoint.TouchpointID)
	assert.Equal(t, "3", envelopes[1].Touchpoint.TouchpointID)

	mockParser.AssertExpectations(t)
	mockConsumer.AssertNumberOfCalls(t, "DeleteMessage", 1)
}
