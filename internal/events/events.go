package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/QTest-hq/casegen/pkg/model"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

// Stream names
const (
	StreamCasegen = "CASEGEN"
)

// Subjects
const (
	SubjectAll                 = "casegen.>"
	SubjectGenerationAll       = "casegen.generation.>"
	SubjectGenerationCompleted = "casegen.generation.completed"
	SubjectGenerationFailed    = "casegen.generation.failed"
)

// Consumer names
const (
	ConsumerArchiver = "history-archiver"
)

// DefaultStreamConfig returns the stream holding all casegen events. Events
// are kept by limits so the archiver and ad-hoc readers can replay them.
func DefaultStreamConfig() jetstream.StreamConfig {
	return jetstream.StreamConfig{
		Name:        StreamCasegen,
		Description: "casegen generation events",
		Subjects:    []string{SubjectAll},
		Storage:     jetstream.FileStorage,
		Retention:   jetstream.LimitsPolicy,
		Discard:     jetstream.DiscardOld,
		MaxMsgs:     100000,
		MaxBytes:    100 * 1024 * 1024,
		MaxAge:      30 * 24 * time.Hour,
		Replicas:    1,
	}
}

// ArchiverConsumerConfig is the durable pull consumer the worker reads.
// A run that keeps failing to store is dropped after five deliveries.
func ArchiverConsumerConfig() jetstream.ConsumerConfig {
	return jetstream.ConsumerConfig{
		Name:          ConsumerArchiver,
		Durable:       ConsumerArchiver,
		FilterSubject: SubjectGenerationAll,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       time.Minute,
		MaxDeliver:    5,
		MaxAckPending: 100,
	}
}

// SetupStreams creates the event stream and the archiver consumer.
func (c *Client) SetupStreams(ctx context.Context) error {
	if _, err := c.EnsureStream(ctx, DefaultStreamConfig()); err != nil {
		return err
	}
	if _, err := c.EnsureConsumer(ctx, StreamCasegen, ArchiverConsumerConfig()); err != nil {
		return err
	}
	return nil
}

// GenerationEvent is the payload of casegen.generation.* messages
type GenerationEvent struct {
	RunID      string               `json:"run_id"`
	SessionID  string               `json:"session_id"`
	Title      string               `json:"title"`
	Framework  string               `json:"framework"`
	Pattern    string               `json:"pattern"`
	Language   string               `json:"language"`
	Files      []string             `json:"files"`
	Status     model.RunStatus      `json:"status"`
	Error      string               `json:"error,omitempty"`
	OccurredAt time.Time            `json:"occurred_at"`
	Run        *model.GenerationRun `json:"run"`
}

// NewGenerationEvent builds the event for a finished run.
func NewGenerationEvent(run *model.GenerationRun) GenerationEvent {
	return GenerationEvent{
		RunID:      run.ID,
		SessionID:  run.SessionID,
		Title:      run.Request.TestCase.Title,
		Framework:  string(run.Request.Framework),
		Pattern:    string(run.Request.Pattern),
		Language:   string(run.Request.Language),
		Files:      run.FileNames(),
		Status:     run.Status,
		Error:      run.Error,
		OccurredAt: run.CreatedAt.Add(run.Duration),
		Run:        run,
	}
}

// SubjectFor returns the subject a run is published on.
func SubjectFor(status model.RunStatus) string {
	if status == model.RunFailed {
		return SubjectGenerationFailed
	}
	return SubjectGenerationCompleted
}

// DecodeGenerationEvent parses a message payload.
func DecodeGenerationEvent(data []byte) (*GenerationEvent, error) {
	var evt GenerationEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		return nil, fmt.Errorf("failed to decode generation event: %w", err)
	}
	if evt.Run == nil {
		return nil, fmt.Errorf("generation event %s carries no run", evt.RunID)
	}
	return &evt, nil
}

type jsPublisher interface {
	Publish(ctx context.Context, subject string, data []byte) (*jetstream.PubAck, error)
}

// Publisher sends generation events
type Publisher struct {
	js jsPublisher
}

// NewPublisher creates a publisher on top of a connected client.
func NewPublisher(c *Client) *Publisher {
	return &Publisher{js: c}
}

// PublishGeneration publishes the finished run on its status subject.
func (p *Publisher) PublishGeneration(ctx context.Context, run *model.GenerationRun) error {
	data, err := json.Marshal(NewGenerationEvent(run))
	if err != nil {
		return fmt.Errorf("failed to marshal generation event: %w", err)
	}

	subject := SubjectFor(run.Status)
	ack, err := p.js.Publish(ctx, subject, data)
	if err != nil {
		return err
	}

	log.Debug().
		Str("subject", subject).
		Str("run", run.ID).
		Uint64("seq", ack.Sequence).
		Msg("published generation event")
	return nil
}
