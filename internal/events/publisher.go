// Package events publishes pool video transcoding outcomes to Kafka so
// downstream consumers (report builders, notifications) can react.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
)

const (
	TypeTranscoded      = "pool_video.transcoded"
	TypeTranscodeFailed = "pool_video.transcode_failed"
)

// Event describes one reconciled outcome.
type Event struct {
	Type        string    `json:"type"`
	PoolVideoID string    `json:"pool_video_id"`
	ProjectID   string    `json:"project_id"`
	JobID       string    `json:"job_id,omitempty"`
	VideoURL    string    `json:"video_url,omitempty"`
	Error       string    `json:"error,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Nop discards events; used when no brokers are configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }

type producer struct {
	producer sarama.SyncProducer
	topic    string
}

// NewProducer connects a synchronous producer to brokers.
func NewProducer(brokers []string, topic string) (Publisher, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true

	p, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return NewFromSyncProducer(p, topic), nil
}

// NewFromSyncProducer wraps an existing producer.
func NewFromSyncProducer(p sarama.SyncProducer, topic string) Publisher {
	return &producer{producer: p, topic: topic}
}

// Publish keys messages by pool video id so a video's events stay ordered.
func (p *producer) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.PoolVideoID),
		Value: sarama.ByteEncoder(data),
	}

	_, _, err = p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("publish %s for %s: %w", event.Type, event.PoolVideoID, err)
	}
	return nil
}

func (p *producer) Close() error {
	return p.producer.Close()
}
