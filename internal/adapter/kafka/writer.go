// Package kafka publishes comparison results to a sink topic for downstream
// consumers.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/tallgrasslabs/climatecompare/internal/domain"
)

// messageWriter is the subset of kafka-go's Writer the producer uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer produces comparison points to a Kafka topic.
// It implements pipeline.Publisher.
type Writer struct {
	writer messageWriter
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the sink topic.
func NewWriter(brokers []string, topic string, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishComparison serializes every monthly point of the comparison and
// publishes the batch in a single WriteMessages call. Messages are keyed by
// the deterministic comparison ID plus month, so replays overwrite rather
// than duplicate in compacted topics.
func (w *Writer) PublishComparison(ctx context.Context, cmp domain.Comparison) error {
	if len(cmp.Points) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(cmp.Points))
	for i, p := range cmp.Points {
		msg, err := serializePoint(cmp, p)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish comparison %s: %w", cmp.ID, err)
	}
	w.logger.Info("comparison published", "id", cmp.ID, "points", len(cmp.Points))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// pointMessage is the wire form of one monthly comparison point.
type pointMessage struct {
	ComparisonID string      `json:"comparison_id"`
	Site         domain.Site `json:"site"`
	Variable     string      `json:"variable"`
	Unit         string      `json:"unit"`
	ModelLabel   string      `json:"model_label"`
	ObsLabel     string      `json:"obs_label"`
	Month        time.Time   `json:"month"`
	Model        *float64    `json:"model,omitempty"`
	Obs          *float64    `json:"obs,omitempty"`
	GeneratedAt  time.Time   `json:"generated_at"`
}

// serializePoint marshals one monthly point into a Kafka message.
func serializePoint(cmp domain.Comparison, p domain.MonthlyPoint) (kafkago.Message, error) {
	data, err := json.Marshal(pointMessage{
		ComparisonID: cmp.ID,
		Site:         cmp.Site,
		Variable:     cmp.Variable,
		Unit:         cmp.Unit,
		ModelLabel:   cmp.ModelLabel,
		ObsLabel:     cmp.ObsLabel,
		Month:        p.Month,
		Model:        p.Model,
		Obs:          p.Obs,
		GeneratedAt:  cmp.GeneratedAt,
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize comparison point: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(cmp.ID + "/" + p.Month.UTC().Format("2006-01")),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "variable", Value: []byte(cmp.Variable)},
			{Key: "site", Value: []byte(cmp.Site.Name)},
			{Key: "generated_at", Value: []byte(cmp.GeneratedAt.Format(time.RFC3339))},
		},
	}, nil
}
