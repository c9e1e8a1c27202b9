package mq

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/purgo-board/apiserver/config"
	"github.com/segmentio/kafka-go"
)

const (
	kafkaHandlerAttempts = 3
	headerMessageID      = "message_id"
)

// KafkaClient publishes with one shared writer and consumes with one
// consumer-group reader per channel. Channels map to topics by name.
type KafkaClient struct {
	brokers []string
	groupID string
	writer  *kafka.Writer

	mu      sync.Mutex
	readers []*kafka.Reader
}

func NewKafkaClient(cfg config.KafkaConfig) (*KafkaClient, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka requires at least one broker")
	}
	if strings.TrimSpace(cfg.GroupID) == "" {
		return nil, errors.New("kafka group id is required")
	}
	return &KafkaClient{
		brokers: cfg.Brokers,
		groupID: cfg.GroupID,
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			RequiredAcks:           kafka.RequireAll,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
		},
	}, nil
}

func (k *KafkaClient) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if strings.TrimSpace(channel) == "" {
		return "", errors.New("kafka channel is required")
	}

	messageID := newMessageID()
	headers := []kafka.Header{{Key: headerMessageID, Value: []byte(messageID)}}
	for key, value := range attrs {
		headers = append(headers, kafka.Header{Key: key, Value: []byte(value)})
	}

	err := k.writer.WriteMessages(ctx, kafka.Message{
		Topic:   channel,
		Key:     []byte(messageID),
		Value:   data,
		Headers: headers,
		Time:    time.Now().UTC(),
	})
	if err != nil {
		return "", err
	}
	return messageID, nil
}

// Subscribe reads the channel's topic with the configured consumer group.
// A message is committed once the handler succeeds or has failed
// kafkaHandlerAttempts times.
func (k *KafkaClient) Subscribe(ctx context.Context, channel string, handler Handler) error {
	if strings.TrimSpace(channel) == "" {
		return errors.New("kafka channel is required")
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  k.brokers,
		GroupID:  k.groupID,
		Topic:    channel,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  500 * time.Millisecond,
	})
	k.track(reader)
	defer func() {
		_ = reader.Close()
	}()

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("kafka fetch: %w", err)
		}

		message := kafkaMessage(channel, msg)
		for attempt := 1; attempt <= kafkaHandlerAttempts; attempt++ {
			if err := handler(ctx, message); err == nil {
				break
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}
		if err := reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("kafka commit: %w", err)
		}
	}
}

func (k *KafkaClient) Close() error {
	k.mu.Lock()
	readers := k.readers
	k.readers = nil
	k.mu.Unlock()

	for _, reader := range readers {
		_ = reader.Close()
	}
	return k.writer.Close()
}

func (k *KafkaClient) track(reader *kafka.Reader) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.readers = append(k.readers, reader)
}

func kafkaMessage(channel string, msg kafka.Message) Message {
	message := Message{Channel: channel, Data: msg.Value}
	if len(msg.Headers) > 0 {
		message.Attributes = make(map[string]string, len(msg.Headers))
	}
	for _, header := range msg.Headers {
		if header.Key == headerMessageID {
			message.ID = string(header.Value)
			continue
		}
		message.Attributes[header.Key] = string(header.Value)
	}
	if message.ID == "" {
		message.ID = fmt.Sprintf("%s-%d-%d", msg.Topic, msg.Partition, msg.Offset)
	}
	return message
}
