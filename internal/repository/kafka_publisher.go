package repository

import (
	"context"
	"fmt"

	"CoinSink/internal/domain/models"
	drepo "CoinSink/internal/domain/repository"
	"CoinSink/pkg/kafka"
	"CoinSink/pkg/logger"
)

// KafkaSnapshotPublisher ships raw snapshots onto the bus. The fetch stamp is
// the message key so re-published snapshots land on the same partition and
// the consumer's idempotent load absorbs the duplicate.
type KafkaSnapshotPublisher struct {
	producer *kafka.Producer
	topic    string
	log      *logger.Logger
}

func NewKafkaSnapshotPublisher(producer *kafka.Producer, topic string, log *logger.Logger) *KafkaSnapshotPublisher {
	return &KafkaSnapshotPublisher{producer: producer, topic: topic, log: log}
}

func (p *KafkaSnapshotPublisher) PublishSnapshot(ctx context.Context, snap *models.RawSnapshot) error {
	if snap == nil {
		return fmt.Errorf("snapshot is nil")
	}

	key := snap.FetchedAt.UTC().Format("20060102_150405")
	if err := p.producer.Publish(ctx, p.topic, []byte(key), snap); err != nil {
		return fmt.Errorf("publish snapshot %s: %w", key, err)
	}

	p.log.Debug("published raw snapshot",
		logger.String("topic", p.topic),
		logger.String("key", key),
		logger.Int("records", len(snap.Records)))
	return nil
}

func (p *KafkaSnapshotPublisher) Close() error {
	return p.producer.Close()
}

var _ drepo.Publisher = (*KafkaSnapshotPublisher)(nil)
