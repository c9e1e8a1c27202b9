package mq

import (
	"context"
	"testing"

	"github.com/purgo-board/apiserver/config"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenRejectsUnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), config.MQConfig{Backend: "carrier-pigeon"})
	require.Error(t, err)
}

func TestOpenValidatesBackendConfig(t *testing.T) {
	_, err := Open(context.Background(), config.MQConfig{Backend: "rabbitmq"})
	assert.ErrorContains(t, err, "rabbitmq url is required")

	_, err = Open(context.Background(), config.MQConfig{Backend: "kafka"})
	assert.ErrorContains(t, err, "broker")

	_, err = Open(context.Background(), config.MQConfig{Backend: "pubsub"})
	assert.ErrorContains(t, err, "project id")
}

func TestKafkaMessageHeaders(t *testing.T) {
	msg := kafkaMessage("user.signup", kafka.Message{
		Topic: "user.signup",
		Value: []byte(`{}`),
		Headers: []kafka.Header{
			{Key: headerMessageID, Value: []byte("abc")},
			{Key: "content_type", Value: []byte("application/json")},
		},
	})
	assert.Equal(t, "abc", msg.ID)
	assert.Equal(t, "user.signup", msg.Channel)
	assert.Equal(t, map[string]string{"content_type": "application/json"}, msg.Attributes)

	msg = kafkaMessage("user.signup", kafka.Message{Topic: "user.signup", Partition: 2, Offset: 9})
	assert.Equal(t, "user.signup-2-9", msg.ID)
	assert.Nil(t, msg.Attributes)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/json", contentType(map[string]string{"content_type": "application/json"}))
	assert.Equal(t, "application/octet-stream", contentType(nil))
}
