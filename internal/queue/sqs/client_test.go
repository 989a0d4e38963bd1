package sqs

import (
	"encoding/json"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BarkinBalci/channel-attribution-service/internal/dto"
	"github.com/BarkinBalci/channel-attribution-service/internal/queue"
)

func TestNewSendMessageInput(t *testing.T) {
	req := &dto.PublishTouchpointRequest{
		UserID:    "user123",
		Channel:   "paid_search",
		Step:      2,
		Timestamp: 1766702551,
	}

	input, err := NewSendMessageInput("http://localhost:9324/queue/touchpoints", req, "tp-1")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9324/queue/touchpoints", aws.ToString(input.QueueUrl))
	assert.Equal(t, "paid_search", aws.ToString(input.MessageAttributes["Channel"].StringValue))
	assert.Equal(t, "2", aws.ToString(input.MessageAttributes["Step"].StringValue))

	var msg queue.TouchpointMessage
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(input.MessageBody)), &msg))
	assert.Equal(t, queue.TouchpointMessage{
		TouchpointID: "tp-1",
		UserID:       "user123",
		Channel:      "paid_search",
		Step:         2,
		Timestamp:    1766702551,
	}, msg)
}
