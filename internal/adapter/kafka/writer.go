package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/storm-resilience/internal/config"
	"github.com/couchcryptid/storm-resilience/internal/domain"
)

// Writer publishes unit summaries to a Kafka topic.
// It implements pipeline.BatchLoader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// LoadBatch serializes and publishes the summaries in a single WriteMessages call.
// Messages are keyed by unit so every run's result for a unit lands on the same partition.
func (w *Writer) LoadBatch(ctx context.Context, summaries []domain.Summary) error {
	if len(summaries) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(summaries))
	for i := range summaries {
		msg, err := serializeToMessage(summaries[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish summaries: %w", err)
	}
	w.logger.Debug("summaries published", "topic", w.writer.Topic, "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// SummaryMessage is the JSON value of a published summary. Metrics that are
// not finite are encoded as null.
type SummaryMessage struct {
	RunID         string   `json:"run_id"`
	Unit          string   `json:"cbg"`
	Model         string   `json:"model"`
	Baseline      *float64 `json:"baseline"`
	Resilience    *float64 `json:"resilience"`
	Robustness    *float64 `json:"robustness,omitempty"`
	Vulnerability *float64 `json:"vulnerability,omitempty"`
	Status        string   `json:"recovery_status"`
	RecoveryPoint string   `json:"recovery_point,omitempty"`
	IsSpecialCase bool     `json:"is_special_case"`
	Message       string   `json:"message,omitempty"`
	ComputedAt    string   `json:"computed_at"`
}

// newSummaryMessage maps a domain summary onto its wire form.
func newSummaryMessage(s domain.Summary) SummaryMessage {
	m := SummaryMessage{
		RunID:         s.RunID,
		Unit:          s.Unit,
		Model:         string(s.Model),
		Baseline:      finite(s.Baseline),
		Resilience:    finite(s.Resilience),
		Status:        string(s.Status),
		IsSpecialCase: s.IsSpecialCase,
		Message:       s.Message,
		ComputedAt:    s.ComputedAt.Format(time.RFC3339),
	}
	if s.Model == domain.ModelTriangle {
		m.Robustness = finite(s.Robustness)
		m.Vulnerability = finite(s.Vulnerability)
	}
	if !s.RecoveryPoint.IsZero() {
		m.RecoveryPoint = s.RecoveryPoint.Format(time.DateOnly)
	}
	return m
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// serializeToMessage marshals a Summary into a Kafka message.
func serializeToMessage(s domain.Summary) (kafkago.Message, error) {
	data, err := json.Marshal(newSummaryMessage(s))
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize summary for %s: %w", s.Unit, err)
	}
	return kafkago.Message{
		Key:   []byte(s.Unit),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "model", Value: []byte(s.Model)},
			{Key: "run_id", Value: []byte(s.RunID)},
			{Key: "computed_at", Value: []byte(s.ComputedAt.Format(time.RFC3339))},
		},
	}, nil
}
