package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/QTest-hq/casegen/internal/session"
	"github.com/QTest-hq/casegen/pkg/model"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ session.Publisher = (*Publisher)(nil)

type fakeJS struct {
	subject string
	data    []byte
	err     error
}

func (f *fakeJS) Publish(ctx context.Context, subject string, data []byte) (*jetstream.PubAck, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.subject = subject
	f.data = data
	return &jetstream.PubAck{Stream: StreamCasegen, Sequence: 7}, nil
}

type fakeRecorder struct {
	mu   sync.Mutex
	runs []*model.GenerationRun
	err  error
}

func (r *fakeRecorder) RecordRun(ctx context.Context, run *model.GenerationRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.runs = append(r.runs, run)
	return nil
}

func (r *fakeRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.runs)
}

func sampleRun(status model.RunStatus) *model.GenerationRun {
	return &model.GenerationRun{
		ID:        "6f1c8a2e-7d2b-4d7e-9a57-1b1f0a6f4c11",
		SessionID: "0b7e3c1a-2f4d-4e55-8d0f-3c9a5b6e7f80",
		Request: model.GenerationRequest{
			TestCase:  model.TestCase{Title: "Login"},
			Framework: model.FrameworkPlaywright,
			Pattern:   model.PatternGherkin,
			Language:  model.LanguageTypeScript,
		},
		Files:     []model.GeneratedFile{{Filename: "login.feature"}, {Filename: "login.steps.ts"}},
		Status:    status,
		Duration:  time.Second,
		CreatedAt: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestDefaultStreamConfig(t *testing.T) {
	cfg := DefaultStreamConfig()
	assert.Equal(t, "CASEGEN", cfg.Name)
	assert.Equal(t, []string{"casegen.>"}, cfg.Subjects)
	assert.Equal(t, jetstream.LimitsPolicy, cfg.Retention)
	assert.Equal(t, 30*24*time.Hour, cfg.MaxAge)
}

func TestArchiverConsumerConfig(t *testing.T) {
	cfg := ArchiverConsumerConfig()
	assert.Equal(t, ConsumerArchiver, cfg.Durable)
	assert.Equal(t, "casegen.generation.>", cfg.FilterSubject)
	assert.Equal(t, jetstream.AckExplicitPolicy, cfg.AckPolicy)
}

func TestSubjectFor(t *testing.T) {
	assert.Equal(t, "casegen.generation.completed", SubjectFor(model.RunSucceeded))
	assert.Equal(t, "casegen.generation.failed", SubjectFor(model.RunFailed))
}

func TestPublisher_PublishGeneration(t *testing.T) {
	js := &fakeJS{}
	p := &Publisher{js: js}

	run := sampleRun(model.RunFailed)
	run.Error = "gemini: 500"
	require.NoError(t, p.PublishGeneration(context.Background(), run))
	assert.Equal(t, SubjectGenerationFailed, js.subject)

	var evt GenerationEvent
	require.NoError(t, json.Unmarshal(js.data, &evt))
	assert.Equal(t, run.ID, evt.RunID)
	assert.Equal(t, "Login", evt.Title)
	assert.Equal(t, "Playwright", evt.Framework)
	assert.Equal(t, "Gherkin", evt.Pattern)
	assert.Equal(t, []string{"login.feature", "login.steps.ts"}, evt.Files)
	assert.Equal(t, "gemini: 500", evt.Error)
	assert.True(t, run.CreatedAt.Add(time.Second).Equal(evt.OccurredAt))
}

func TestPublisher_Error(t *testing.T) {
	p := &Publisher{js: &fakeJS{err: errors.New("no responders")}}
	assert.Error(t, p.PublishGeneration(context.Background(), sampleRun(model.RunSucceeded)))
}

func TestArchiver_Handle(t *testing.T) {
	rec := &fakeRecorder{}
	a := NewArchiver(nil, rec)

	data, err := json.Marshal(NewGenerationEvent(sampleRun(model.RunSucceeded)))
	require.NoError(t, err)

	require.NoError(t, a.Handle(context.Background(), data))
	require.Len(t, rec.runs, 1)
	assert.Equal(t, "login.steps.ts", rec.runs[0].Files[1].Filename)
}

func TestArchiver_HandleErrors(t *testing.T) {
	a := NewArchiver(nil, &fakeRecorder{})
	assert.ErrorIs(t, a.Handle(context.Background(), []byte("{")), errMalformed)
	assert.ErrorIs(t, a.Handle(context.Background(), []byte(`{"run_id":"x"}`)), errMalformed)

	dbErr := errors.New("db down")
	a = NewArchiver(nil, &fakeRecorder{err: dbErr})
	data, _ := json.Marshal(NewGenerationEvent(sampleRun(model.RunSucceeded)))
	err := a.Handle(context.Background(), data)
	assert.ErrorIs(t, err, dbErr)
	assert.NotErrorIs(t, err, errMalformed)
}

func TestClient_NilState(t *testing.T) {
	client := &Client{}

	assert.False(t, client.IsConnected())
	assert.Nil(t, client.JetStream())
	assert.ErrorIs(t, client.HealthCheck(), ErrNotConnected)

	_, err := client.Publish(context.Background(), SubjectGenerationCompleted, nil)
	assert.ErrorIs(t, err, ErrNotConnected)
	_, err = client.EnsureStream(context.Background(), DefaultStreamConfig())
	assert.ErrorIs(t, err, ErrNotConnected)
	client.Close()
}
