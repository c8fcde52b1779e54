package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"CoinSink/internal/domain/models"
	"CoinSink/pkg/logger"
)

// KafkaSnapshotsHandler consumes raw snapshot envelopes off the bus and runs
// them through the pipeline. Returning an error hands the message back to
// the consumer's retry machinery; loads are idempotent so at-least-once
// delivery is safe.
type KafkaSnapshotsHandler struct {
	topic    string
	pipeline *SnapshotPipeline
	log      *logger.Logger
}

func NewKafkaSnapshotsHandler(topic string, pipeline *SnapshotPipeline, log *logger.Logger) *KafkaSnapshotsHandler {
	return &KafkaSnapshotsHandler{topic: topic, pipeline: pipeline, log: log}
}

func (h *KafkaSnapshotsHandler) Topic() string { return h.topic }

func (h *KafkaSnapshotsHandler) Handle(ctx context.Context, payload []byte) error {
	var snap models.RawSnapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		// A payload that does not parse will never parse; don't retry it.
		h.log.Error("malformed snapshot message dropped", logger.Error(err))
		return nil
	}
	snap.FetchedAt = snap.FetchedAt.UTC()

	result, err := h.pipeline.Process(ctx, &snap)
	if err != nil {
		return fmt.Errorf("process snapshot from bus: %w", err)
	}

	h.log.Debug("snapshot consumed",
		logger.Time("snapshot_time", snap.FetchedAt),
		logger.Int("inserted", result.Inserted),
		logger.Int("updated", result.Updated))
	return nil
}
