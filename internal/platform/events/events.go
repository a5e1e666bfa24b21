// Package events carries care-request lifecycle events to downstream
// consumers. Publishing happens after the owning transaction commits and
// never fails the request that caused it.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

type Type string

const (
	RFCCreated         Type = "rfc.created"
	RFCUpdated         Type = "rfc.updated"
	RFCPublished       Type = "rfc.published"
	RFCCancelled       Type = "rfc.cancelled"
	ProposalOpened     Type = "proposal.opened"
	ProposalSubmitted  Type = "proposal.submitted"
	ProposalAccepted   Type = "proposal.accepted"
	ProposalRejected   Type = "proposal.rejected"
	ProposalContracted Type = "proposal.contracted"
)

type Event struct {
	ID               uuid.UUID  `json:"id"`
	Type             Type       `json:"type"`
	OccurredAt       time.Time  `json:"occurred_at"`
	ActorID          uuid.UUID  `json:"actor_id"`
	RequestForCareID uuid.UUID  `json:"request_for_care_id"`
	ProposalID       *uuid.UUID `json:"proposal_id,omitempty"`
	JobID            *uuid.UUID `json:"job_id,omitempty"`
	Status           string     `json:"status,omitempty"`
}

// New fills in the id and timestamp.
func New(typ Type, actor, rfcID uuid.UUID) Event {
	return Event{
		ID:               uuid.New(),
		Type:             typ,
		OccurredAt:       time.Now().UTC(),
		ActorID:          actor,
		RequestForCareID: rfcID,
	}
}

type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

// Emit publishes evt and logs, rather than returns, any failure.
func Emit(ctx context.Context, pub Publisher, logger zerolog.Logger, evt Event) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, evt); err != nil {
		logger.Error().Err(err).
			Str("event_type", string(evt.Type)).
			Str("request_for_care_id", evt.RequestForCareID.String()).
			Msg("failed to publish lifecycle event")
	}
}

// LogPublisher writes events to the structured log. Used when no broker is
// configured.
type LogPublisher struct {
	logger zerolog.Logger
}

func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, evt Event) error {
	l := p.logger.Info().
		Str("type", "lifecycle_event").
		Str("event_id", evt.ID.String()).
		Str("event_type", string(evt.Type)).
		Str("actor_id", evt.ActorID.String()).
		Str("request_for_care_id", evt.RequestForCareID.String())
	if evt.ProposalID != nil {
		l = l.Str("proposal_id", evt.ProposalID.String())
	}
	if evt.JobID != nil {
		l = l.Str("job_id", evt.JobID.String())
	}
	if evt.Status != "" {
		l = l.Str("status", evt.Status)
	}
	l.Time("occurred_at", evt.OccurredAt).Msg("event")
	return nil
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes JSON events keyed by request-for-care id, so every
// event of one request lands on the same partition in order.
type KafkaPublisher struct {
	writer  messageWriter
	timeout time.Duration
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: kafka.NewWriter(kafka.WriterConfig{
			Brokers:  brokers,
			Topic:    topic,
			Balancer: &kafka.Hash{},
		}),
		timeout: 5 * time.Second,
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, evt Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	// The request context may already be done by the time we publish.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(evt.RequestForCareID.String()),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(evt.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("writing event to kafka: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
