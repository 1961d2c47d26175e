package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/QTest-hq/casegen/pkg/model"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

// RunRecorder stores runs taken off the stream
type RunRecorder interface {
	RecordRun(ctx context.Context, run *model.GenerationRun) error
}

// Archiver drains generation events into run history
type Archiver struct {
	client     *Client
	recorder   RunRecorder
	consumer   jetstream.Consumer
	pollPeriod time.Duration
	batch      int
}

// NewArchiver creates an archiver reading the durable archiver consumer.
func NewArchiver(client *Client, recorder RunRecorder) *Archiver {
	return &Archiver{
		client:     client,
		recorder:   recorder,
		pollPeriod: 5 * time.Second,
		batch:      10,
	}
}

// SetPollPeriod sets how long one fetch waits for messages.
func (a *Archiver) SetPollPeriod(d time.Duration) {
	a.pollPeriod = d
}

// Run processes events until ctx is cancelled.
func (a *Archiver) Run(ctx context.Context) error {
	consumer, err := a.client.JetStream().Consumer(ctx, StreamCasegen, ConsumerArchiver)
	if err != nil {
		return fmt.Errorf("failed to get consumer %s: %w", ConsumerArchiver, err)
	}
	a.consumer = consumer

	log.Info().Str("consumer", ConsumerArchiver).Msg("archiver started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("archiver stopping")
			return nil
		default:
			if err := a.fetch(ctx); err != nil {
				log.Error().Err(err).Msg("error archiving events")
			}
		}
	}
}

func (a *Archiver) fetch(ctx context.Context) error {
	msgs, err := a.consumer.Fetch(a.batch, jetstream.FetchMaxWait(a.pollPeriod))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("failed to fetch from NATS: %w", err)
	}

	for msg := range msgs.Messages() {
		switch err := a.Handle(ctx, msg.Data()); {
		case err == nil:
			msg.Ack()
		case errors.Is(err, errMalformed):
			log.Error().Err(err).Str("subject", msg.Subject()).Msg("dropping malformed event")
			msg.Term()
		default:
			log.Warn().Err(err).Str("subject", msg.Subject()).Msg("failed to archive event, will retry")
			msg.Nak()
		}
	}

	if err := msgs.Error(); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}

var errMalformed = errors.New("malformed event")

// Handle records one event payload.
func (a *Archiver) Handle(ctx context.Context, data []byte) error {
	evt, err := DecodeGenerationEvent(data)
	if err != nil {
		return fmt.Errorf("%w: %v", errMalformed, err)
	}
	if err := a.recorder.RecordRun(ctx, evt.Run); err != nil {
		return fmt.Errorf("failed to record run %s: %w", evt.RunID, err)
	}

	log.Debug().Str("run", evt.RunID).Str("status", string(evt.Status)).Msg("archived generation run")
	return nil
}
