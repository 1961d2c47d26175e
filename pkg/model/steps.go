package model

import "fmt"

// StepField names an editable field of a step.
type StepField string

const (
	StepFieldAction   StepField = "action"
	StepFieldExpected StepField = "expected"
)

// ParseStepField validates a field name coming from a user.
func ParseStepField(s string) (StepField, error) {
	switch StepField(s) {
	case StepFieldAction, StepFieldExpected:
		return StepField(s), nil
	}
	return "", fmt.Errorf("unknown step field %q", s)
}

// ValidStepIndex reports whether i addresses an existing step.
func (tc *TestCase) ValidStepIndex(i int) bool {
	return i >= 0 && i < len(tc.Steps)
}

// AddStep inserts a fresh empty step right after position after, or appends
// it when no position is given. It returns the new step.
func (tc *TestCase) AddStep(after ...int) TestStep {
	step := newStep()
	if len(after) == 0 {
		tc.Steps = append(tc.Steps, step)
		return step
	}

	i := after[0]
	if !tc.ValidStepIndex(i) {
		panic(fmt.Sprintf("model: AddStep after index %d out of range [0,%d)", i, len(tc.Steps)))
	}

	tc.Steps = append(tc.Steps, TestStep{})
	copy(tc.Steps[i+2:], tc.Steps[i+1:])
	tc.Steps[i+1] = step
	return step
}

// RemoveStep deletes the step at i. The last remaining step is cleared in
// place instead so the list never becomes empty.
func (tc *TestCase) RemoveStep(i int) {
	if !tc.ValidStepIndex(i) {
		panic(fmt.Sprintf("model: RemoveStep index %d out of range [0,%d)", i, len(tc.Steps)))
	}

	if len(tc.Steps) == 1 {
		tc.Steps[0].Action = ""
		tc.Steps[0].Expected = ""
		return
	}

	tc.Steps = append(tc.Steps[:i], tc.Steps[i+1:]...)
}

// UpdateStep replaces one field of the step at i.
func (tc *TestCase) UpdateStep(i int, field StepField, value string) {
	if !tc.ValidStepIndex(i) {
		panic(fmt.Sprintf("model: UpdateStep index %d out of range [0,%d)", i, len(tc.Steps)))
	}

	switch field {
	case StepFieldAction:
		tc.Steps[i].Action = value
	case StepFieldExpected:
		tc.Steps[i].Expected = value
	default:
		panic(fmt.Sprintf("model: unknown step field %q", field))
	}
}

// ReplaceSteps swaps the whole step list. Steps without an id get one; an
// empty list resets to a single empty step.
func (tc *TestCase) ReplaceSteps(steps []TestStep) {
	tc.Steps = make([]TestStep, len(steps))
	copy(tc.Steps, steps)
	tc.Normalize()
}
