package model

import (
	"errors"
	"time"
)

// RunStatus is the outcome of a generation run
type RunStatus string

const (
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// GenerationRun records one finished generation attempt
type GenerationRun struct {
	ID        string            `json:"id"`
	SessionID string            `json:"session_id"`
	Request   GenerationRequest `json:"request"`
	Files     []GeneratedFile   `json:"files"`
	Status    RunStatus         `json:"status"`
	Error     string            `json:"error,omitempty"`
	Model     string            `json:"model,omitempty"`
	Duration  time.Duration     `json:"duration"`
	CreatedAt time.Time         `json:"created_at"`
}

// FileNames returns the generated file names in order.
func (r *GenerationRun) FileNames() []string {
	names := make([]string, len(r.Files))
	for i, f := range r.Files {
		names[i] = f.Filename
	}
	return names
}

// SetError marks the run failed. The wrapped cause is kept when there is
// one since the outer error is the fixed user-facing message.
func (r *GenerationRun) SetError(err error) {
	r.Status = RunFailed
	if cause := errors.Unwrap(err); cause != nil {
		err = cause
	}
	r.Error = err.Error()
}
