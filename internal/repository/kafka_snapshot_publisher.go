package repository

import (
	"context"
	"fmt"

	"VitalPulse/internal/domain/models"
	"VitalPulse/internal/domain/repository"
	pkgkafka "VitalPulse/pkg/kafka"
)

var _ repository.SnapshotPublisher = (*KafkaSnapshotPublisher)(nil)

// KafkaSnapshotPublisher writes snapshots as JSON keyed by user id.
type KafkaSnapshotPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaSnapshotPublisher(producer *pkgkafka.Producer, topic string) *KafkaSnapshotPublisher {
	return &KafkaSnapshotPublisher{producer: producer, topic: topic}
}

func (p *KafkaSnapshotPublisher) Publish(ctx context.Context, s *models.HealthSnapshot) error {
	if s == nil {
		return fmt.Errorf("publish snapshot: nil snapshot")
	}
	return p.producer.Publish(ctx, p.topic, []byte(s.UserID), s)
}
