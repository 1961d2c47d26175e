package model

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// TestCase is a manual QA test case as the user describes it.
// Steps always holds at least one element.
type TestCase struct {
	ID            string     `json:"id" yaml:"id"`
	Title         string     `json:"title" yaml:"title"`
	Description   string     `json:"description" yaml:"description"`
	Preconditions string     `json:"preconditions" yaml:"preconditions"`
	TestData      string     `json:"testData" yaml:"testData"`
	Steps         []TestStep `json:"steps" yaml:"steps"`
}

// TestStep is a single action/expected-result pair. ID only keys the step
// in lists and is never sent to the model.
type TestStep struct {
	ID       string `json:"id" yaml:"id,omitempty"`
	Action   string `json:"action" yaml:"action"`
	Expected string `json:"expected" yaml:"expected"`
}

// NewTestCase returns an empty test case with one empty step.
func NewTestCase() *TestCase {
	return &TestCase{
		Steps: []TestStep{newStep()},
	}
}

func newStep() TestStep {
	return TestStep{ID: uuid.NewString()}
}

// Clone returns a deep copy of the test case.
func (tc *TestCase) Clone() TestCase {
	out := *tc
	out.Steps = make([]TestStep, len(tc.Steps))
	copy(out.Steps, tc.Steps)
	return out
}

// Normalize restores the invariants after the test case has been decoded
// from an untrusted source: missing step ids are filled in and an empty
// step list becomes a single empty step.
func (tc *TestCase) Normalize() {
	if len(tc.Steps) == 0 {
		tc.Steps = []TestStep{newStep()}
		return
	}
	for i := range tc.Steps {
		if tc.Steps[i].ID == "" {
			tc.Steps[i].ID = uuid.NewString()
		}
	}
}

// HasAction reports whether at least one step has a non-blank action.
func (tc *TestCase) HasAction() bool {
	for _, s := range tc.Steps {
		if strings.TrimSpace(s.Action) != "" {
			return true
		}
	}
	return false
}

// ValidationError lists the requirements a request does not meet yet.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("test case is incomplete: missing %s", strings.Join(e.Missing, ", "))
}

// Validate checks that a generation can be requested for this test case with
// the given selection.
func Validate(tc *TestCase, fw Framework, pattern DesignPattern) error {
	var missing []string
	if strings.TrimSpace(tc.Title) == "" {
		missing = append(missing, "title")
	}
	if fw == "" {
		missing = append(missing, "framework")
	}
	if pattern == "" {
		missing = append(missing, "design pattern")
	}
	if !tc.HasAction() {
		missing = append(missing, "step action")
	}
	if len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}
	return nil
}

// CanGenerate is the boolean form of Validate.
func CanGenerate(tc *TestCase, fw Framework, pattern DesignPattern) bool {
	return Validate(tc, fw, pattern) == nil
}
