// Package events publishes IndexEvent messages onto the durable queue the
// indexer consumes from. Adapted from this codebase's Kafka commit-event
// publisher: a thin wrapper over kafka.Writer with JSON-marshaled
// payloads and a least-bytes partition balancer.
package events

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"cvmatch/internal/apperr"
	"cvmatch/internal/config"
	"cvmatch/internal/model"
)

const component = "events"

// Publisher writes IndexEvent messages to the configured topic.
type Publisher struct {
	writer *kafka.Writer
	log    zerolog.Logger
}

// NewPublisher builds a Publisher from KafkaConfig.
func NewPublisher(cfg config.KafkaConfig, log zerolog.Logger) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(cfg.Brokers...),
			Topic:    cfg.Topic,
			Balancer: &kafka.LeastBytes{},
		},
		log: log,
	}
}

// Publish writes one IndexEvent to the topic, keyed by cv_id. The
// least-bytes balancer ignores the key when choosing a partition, so
// events for one résumé may land on different partitions.
func (p *Publisher) Publish(ctx context.Context, evt model.IndexEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return apperr.Wrap(apperr.Internal, component, err)
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(evt.CvID),
		Value: payload,
	})
	if err != nil {
		return apperr.Wrap(apperr.UpstreamTransient, component, err)
	}
	return nil
}

// Close flushes and releases the underlying writer.
func (p *Publisher) Close() error {
	if err := p.writer.Close(); err != nil {
		p.log.Warn().Err(err).Msg("error closing kafka writer")
		return err
	}
	return nil
}
