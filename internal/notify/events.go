package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/riskscope/riskscope/pkg/batch"
	"github.com/riskscope/riskscope/pkg/report"
	"github.com/riskscope/riskscope/pkg/scoring"
)

// Event types.
const (
	EventReportCompleted = "report.completed"
	EventBatchCompleted  = "batch.completed"
	EventWatchlistAlert  = "watchlist.alert"
)

// Event is the envelope published for every domain event.
type Event struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Key        string          `json:"key"`
	OccurredAt time.Time       `json:"occurredAt"`
	Payload    json.RawMessage `json:"payload"`
}

// ReportCompletedPayload summarises a finished report.
type ReportCompletedPayload struct {
	ReportID      string          `json:"reportId"`
	ProjectName   string          `json:"projectName"`
	CanonicalName string          `json:"canonicalName"`
	RiskScore     int             `json:"riskScore"`
	Verdict       scoring.Verdict `json:"verdict"`
	RiskTier      scoring.Tier    `json:"riskTier"`
	RedFlags      []string        `json:"redFlags"`
}

// BatchCompletedPayload summarises a finished batch.
type BatchCompletedPayload struct {
	BatchID   string        `json:"batchId"`
	Summary   batch.Summary `json:"summary"`
	Cancelled bool          `json:"cancelled"`
	Skipped   int           `json:"skipped"`
	PacketKey string        `json:"packetKey,omitempty"`
}

// WatchlistAlertPayload reports a watched project crossing its threshold.
type WatchlistAlertPayload struct {
	ReportID      string          `json:"reportId"`
	CanonicalName string          `json:"canonicalName"`
	ProjectName   string          `json:"projectName"`
	RiskScore     int             `json:"riskScore"`
	AlertAt       int             `json:"alertAt"`
	Verdict       scoring.Verdict `json:"verdict"`
	TopRedFlag    string          `json:"topRedFlag,omitempty"`
}

// NewEvent wraps a payload in an envelope.
func NewEvent(eventType, key string, payload any, at time.Time) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		Key:        key,
		OccurredAt: at.UTC(),
		Payload:    data,
	}, nil
}

// ReportCompleted builds the report.completed event for r.
func ReportCompleted(r *report.Report) (Event, error) {
	return NewEvent(EventReportCompleted, r.Metadata.CanonicalName, ReportCompletedPayload{
		ReportID:      r.ID,
		ProjectName:   r.Name(),
		CanonicalName: r.Metadata.CanonicalName,
		RiskScore:     r.Metadata.RiskScore,
		Verdict:       r.Metadata.Verdict,
		RiskTier:      r.Metadata.RiskTier,
		RedFlags:      r.RedFlags(),
	}, r.Metadata.ScannedAt)
}

// BatchCompleted builds the batch.completed event.
func BatchCompleted(batchID string, res *batch.Result, packetKey string, at time.Time) (Event, error) {
	return NewEvent(EventBatchCompleted, batchID, BatchCompletedPayload{
		BatchID:   batchID,
		Summary:   res.Summary,
		Cancelled: res.Cancelled,
		Skipped:   res.Skipped,
		PacketKey: packetKey,
	}, at)
}

// WatchlistAlert builds the watchlist.alert event for a report that crossed alertAt.
func WatchlistAlert(r *report.Report, alertAt int) (Event, error) {
	return NewEvent(EventWatchlistAlert, r.Metadata.CanonicalName, WatchlistAlertPayload{
		ReportID:      r.ID,
		CanonicalName: r.Metadata.CanonicalName,
		ProjectName:   r.Name(),
		RiskScore:     r.Metadata.RiskScore,
		AlertAt:       alertAt,
		Verdict:       r.Metadata.Verdict,
		TopRedFlag:    r.TopRedFlag(),
	}, r.Metadata.ScannedAt)
}

// Publisher sends domain events.
type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
	Close() error
}

// NopPublisher drops every event. It is used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, ...Event) error { return nil }
func (NopPublisher) Close() error                            { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// KafkaPublisher publishes events to one topic per event type, named
// "<prefix>.<type>". Writers are created lazily per topic.
type KafkaPublisher struct {
	mu        sync.Mutex
	writers   map[string]messageWriter
	brokers   []string
	prefix    string
	logger    *slog.Logger
	newWriter func(topic string) messageWriter
}

// NewKafkaPublisher creates a publisher for the given brokers.
func NewKafkaPublisher(brokers []string, topicPrefix string, logger *slog.Logger) *KafkaPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	p := &KafkaPublisher{
		writers: make(map[string]messageWriter),
		brokers: brokers,
		prefix:  topicPrefix,
		logger:  logger,
	}
	p.newWriter = p.kafkaWriter
	return p
}

func (p *KafkaPublisher) kafkaWriter(topic string) messageWriter {
	return &kafkago.Writer{
		Addr:                   kafkago.TCP(p.brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
}

// Topic returns the topic an event type is published to.
func (p *KafkaPublisher) Topic(eventType string) string {
	if p.prefix == "" {
		return eventType
	}
	return p.prefix + "." + eventType
}

// Publish groups events by topic and writes them. Events keyed by project
// land on the same partition.
func (p *KafkaPublisher) Publish(ctx context.Context, events ...Event) error {
	byTopic := make(map[string][]kafkago.Message)
	var order []string
	for _, evt := range events {
		value, err := json.Marshal(evt)
		if err != nil {
			return fmt.Errorf("marshal event %s: %w", evt.Type, err)
		}
		topic := p.Topic(evt.Type)
		if _, ok := byTopic[topic]; !ok {
			order = append(order, topic)
		}
		byTopic[topic] = append(byTopic[topic], kafkago.Message{
			Key:   []byte(evt.Key),
			Value: value,
			Headers: []kafkago.Header{
				{Key: "event_type", Value: []byte(evt.Type)},
				{Key: "event_id", Value: []byte(evt.ID)},
			},
		})
		p.logger.DebugContext(ctx, "publishing event",
			slog.String("event_type", evt.Type),
			slog.String("topic", topic),
			slog.Int("payload_size", len(value)),
		)
	}

	for _, topic := range order {
		if err := p.writer(topic).WriteMessages(ctx, byTopic[topic]...); err != nil {
			return fmt.Errorf("kafka publish to %s: %w", topic, err)
		}
	}
	return nil
}

func (p *KafkaPublisher) writer(topic string) messageWriter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if w, ok := p.writers[topic]; ok {
		return w
	}
	w := p.newWriter(topic)
	p.writers[topic] = w
	return w
}

// Close closes all writers.
func (p *KafkaPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	for topic, w := range p.writers {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing writer for topic %s: %w", topic, err)
		}
	}
	p.writers = make(map[string]messageWriter)
	return firstErr
}

// NewPublisher returns a Kafka publisher when brokers are configured and a NopPublisher otherwise.
func NewPublisher(brokers []string, topicPrefix string, logger *slog.Logger) Publisher {
	if len(brokers) == 0 {
		return NopPublisher{}
	}
	return NewKafkaPublisher(brokers, topicPrefix, logger)
}
