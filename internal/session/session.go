package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/QTest-hq/casegen/pkg/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	// ErrBusy is returned when the same operation is already in flight.
	ErrBusy = errors.New("operation already in progress")
	// ErrSessionNotFound is returned for unknown session ids.
	ErrSessionNotFound = errors.New("session not found")
	// ErrClosed is returned once a session has been deleted.
	ErrClosed = errors.New("session closed")
	// ErrInvalidIndex is returned for step or file indices out of range.
	ErrInvalidIndex = errors.New("index out of range")
)

// Generator is the model-facing half a session drives
type Generator interface {
	Generate(ctx context.Context, req model.GenerationRequest) ([]model.GeneratedFile, error)
	Suggest(ctx context.Context, title string) model.Suggestion
}

// Recorder persists finished generation runs
type Recorder interface {
	RecordRun(ctx context.Context, run *model.GenerationRun) error
}

// Publisher announces finished generation runs
type Publisher interface {
	PublishGeneration(ctx context.Context, run *model.GenerationRun) error
}

// Options wires a session's collaborators. Only Generator is required.
type Options struct {
	Generator Generator
	Recorder  Recorder
	Publisher Publisher
	// Model labels recorded runs
	Model string
}

// State is a point-in-time copy of a session
type State struct {
	ID          string              `json:"id"`
	TestCase    model.TestCase      `json:"testCase"`
	Framework   model.Framework     `json:"framework"`
	Pattern     model.DesignPattern `json:"pattern"`
	Language    model.Language      `json:"language"`
	Files       model.FileSet       `json:"files"`
	Generating  bool                `json:"generating"`
	AutoFilling bool                `json:"autoFilling"`
	Error       string              `json:"error,omitempty"`
	SplitView   bool                `json:"splitView"`
	CanGenerate bool                `json:"canGenerate"`
	Missing     []string            `json:"missing,omitempty"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

// Session owns the editing state of one user. All methods are safe for
// concurrent use; model calls run with the lock released.
type Session struct {
	mu   sync.Mutex
	id   string
	opts Options

	testCase  model.TestCase
	framework model.Framework
	pattern   model.DesignPattern
	language  model.Language
	files     model.FileSet

	generating  bool
	autoFilling bool
	errMsg      string
	splitView   bool
	closed      bool

	createdAt time.Time
	updatedAt time.Time
}

// New creates a session around tc, or an empty test case when tc is nil.
func New(tc *model.TestCase, opts Options) *Session {
	var initial model.TestCase
	if tc == nil {
		initial = *model.NewTestCase()
	} else {
		initial = tc.Clone()
		initial.Normalize()
	}

	now := time.Now()
	return &Session{
		id:        uuid.NewString(),
		opts:      opts,
		testCase:  initial,
		language:  model.DefaultLanguage,
		createdAt: now,
		updatedAt: now,
	}
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// State returns a deep copy of the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	files := make([]model.GeneratedFile, len(s.files.Files))
	copy(files, s.files.Files)

	st := State{
		ID:          s.id,
		TestCase:    s.testCase.Clone(),
		Framework:   s.framework,
		Pattern:     s.pattern,
		Language:    s.language,
		Files:       model.FileSet{Files: files, Active: s.files.Active},
		Generating:  s.generating,
		AutoFilling: s.autoFilling,
		Error:       s.errMsg,
		SplitView:   s.splitView,
		CreatedAt:   s.createdAt,
		UpdatedAt:   s.updatedAt,
	}

	var verr *model.ValidationError
	if err := model.Validate(&s.testCase, s.framework, s.pattern); errors.As(err, &verr) {
		st.Missing = verr.Missing
	} else {
		st.CanGenerate = true
	}
	return st
}

// Validate reports what is missing before generation may start.
func (s *Session) Validate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.Validate(&s.testCase, s.framework, s.pattern)
}

// CanGenerate reports whether Generate would pass validation.
func (s *Session) CanGenerate() bool {
	return s.Validate() == nil
}

// SetTestCase replaces the whole test case. Step invariants are restored.
func (s *Session) SetTestCase(tc model.TestCase) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	tc = tc.Clone()
	tc.Normalize()
	s.testCase = tc
	s.touch()
	return nil
}

// EditTestCase applies fn to the current test case under the session lock,
// so fields fn leaves alone keep any concurrent change.
func (s *Session) EditTestCase(fn func(tc *model.TestCase)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	tc := s.testCase.Clone()
	fn(&tc)
	tc.Normalize()
	s.testCase = tc
	s.touch()
	return nil
}

// SetFramework selects the target framework.
func (s *Session) SetFramework(fw model.Framework) error {
	return s.update(func() { s.framework = fw })
}

// SetPattern selects the design pattern.
func (s *Session) SetPattern(p model.DesignPattern) error {
	return s.update(func() { s.pattern = p })
}

// SetLanguage selects the output language.
func (s *Session) SetLanguage(l model.Language) error {
	return s.update(func() { s.language = l })
}

// SetSplitView toggles the side-by-side layout.
func (s *Session) SetSplitView(on bool) error {
	return s.update(func() { s.splitView = on })
}

// AddStep inserts an empty step after index after, or appends when after
// is omitted.
func (s *Session) AddStep(after ...int) (model.TestStep, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return model.TestStep{}, ErrClosed
	}
	if len(after) > 0 && !s.testCase.ValidStepIndex(after[0]) {
		return model.TestStep{}, fmt.Errorf("add step after %d: %w", after[0], ErrInvalidIndex)
	}

	step := s.testCase.AddStep(after...)
	s.touch()
	return step, nil
}

// RemoveStep removes step i; the last remaining step is cleared instead.
func (s *Session) RemoveStep(i int) error {
	return s.updateStep(i, func() { s.testCase.RemoveStep(i) })
}

// UpdateStep sets one field of step i.
func (s *Session) UpdateStep(i int, field model.StepField, value string) error {
	if _, err := model.ParseStepField(string(field)); err != nil {
		return err
	}
	return s.updateStep(i, func() { s.testCase.UpdateStep(i, field, value) })
}

// SelectFile makes generated file i active.
func (s *Session) SelectFile(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if err := s.files.Select(i); err != nil {
		return fmt.Errorf("%v: %w", err, ErrInvalidIndex)
	}
	s.touch()
	return nil
}

// File returns generated file i.
func (s *Session) File(i int) (model.GeneratedFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= s.files.Len() {
		return model.GeneratedFile{}, fmt.Errorf("file %d: %w", i, ErrInvalidIndex)
	}
	return s.files.Files[i], nil
}

// Generate validates the current state, snapshots it and calls the model.
// Files or the user-facing error are stored when the call returns. Results
// that arrive after Close are dropped.
func (s *Session) Generate(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.generating {
		s.mu.Unlock()
		return ErrBusy
	}
	req, err := model.NewGenerationRequest(&s.testCase, s.framework, s.pattern, s.language)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.generating = true
	s.errMsg = ""
	s.files.Clear()
	s.touch()
	s.mu.Unlock()

	started := time.Now()
	callCtx := context.WithoutCancel(ctx)
	files, genErr := s.opts.Generator.Generate(callCtx, req)

	s.mu.Lock()
	s.generating = false
	closed := s.closed
	if !closed {
		if genErr != nil {
			s.errMsg = genErr.Error()
		} else {
			s.files = model.NewFileSet(files)
		}
		s.touch()
	}
	s.mu.Unlock()

	run := &model.GenerationRun{
		ID:        uuid.NewString(),
		SessionID: s.id,
		Request:   req,
		Files:     files,
		Status:    model.RunSucceeded,
		Model:     s.opts.Model,
		Duration:  time.Since(started),
		CreatedAt: started,
	}
	if genErr != nil {
		run.SetError(genErr)
	}
	s.report(callCtx, run)

	if closed {
		log.Debug().Str("session", s.id).Msg("generation finished after close, result dropped")
		return ErrClosed
	}
	return genErr
}

// AutoFill asks the model to complete the test case from its title and
// merges any suggestion onto the test case as it is when the answer
// arrives. It reports whether anything was applied.
func (s *Session) AutoFill(ctx context.Context) (bool, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false, ErrClosed
	}
	title := s.testCase.Title
	if strings.TrimSpace(title) == "" {
		s.mu.Unlock()
		return false, &model.ValidationError{Missing: []string{"title"}}
	}
	if s.autoFilling {
		s.mu.Unlock()
		return false, ErrBusy
	}
	s.autoFilling = true
	s.touch()
	s.mu.Unlock()

	suggestion := s.opts.Generator.Suggest(context.WithoutCancel(ctx), title)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.autoFilling = false
	if s.closed {
		return false, ErrClosed
	}
	s.touch()
	if suggestion.IsEmpty() {
		return false, nil
	}
	s.testCase.ApplySuggestion(suggestion)
	return true, nil
}

// Close marks the session deleted. In-flight results are dropped.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *Session) update(fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	fn()
	s.touch()
	return nil
}

func (s *Session) updateStep(i int, fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if !s.testCase.ValidStepIndex(i) {
		return fmt.Errorf("step %d: %w", i, ErrInvalidIndex)
	}
	fn()
	s.touch()
	return nil
}

func (s *Session) touch() {
	s.updatedAt = time.Now()
}

func (s *Session) report(ctx context.Context, run *model.GenerationRun) {
	if s.opts.Recorder != nil {
		if err := s.opts.Recorder.RecordRun(ctx, run); err != nil {
			log.Warn().Err(err).Str("session", s.id).Str("run", run.ID).Msg("failed to record generation run")
		}
	}
	if s.opts.Publisher != nil {
		if err := s.opts.Publisher.PublishGeneration(ctx, run); err != nil {
			log.Warn().Err(err).Str("session", s.id).Str("run", run.ID).Msg("failed to publish generation event")
		}
	}
}
