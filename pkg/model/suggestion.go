package model

import (
	"encoding/json"
	"strings"
)

// SuggestedStep is a step proposed by the auto-fill model.
type SuggestedStep struct {
	Action   string `json:"action" yaml:"action"`
	Expected string `json:"expected" yaml:"expected"`
}

// Suggestion holds auto-fill content for a test case. A zero Suggestion
// means nothing was suggested.
type Suggestion struct {
	Description   string          `json:"description,omitempty" yaml:"description,omitempty"`
	Preconditions string          `json:"preconditions,omitempty" yaml:"preconditions,omitempty"`
	TestData      string          `json:"testData,omitempty" yaml:"testData,omitempty"`
	Steps         []SuggestedStep `json:"steps,omitempty" yaml:"steps,omitempty"`
}

// IsEmpty reports whether the suggestion carries no content.
func (s Suggestion) IsEmpty() bool {
	return s.Description == "" && s.Preconditions == "" && s.TestData == "" && len(s.Steps) == 0
}

// FormatTestData pretty-prints data with two-space indentation when it is
// valid JSON and returns it untouched otherwise. Surrounding whitespace is
// dropped, key order is kept, escapes are decoded and numbers are written
// in their shortest form.
func FormatTestData(data string) string {
	trimmed := strings.TrimSpace(data)
	if !json.Valid([]byte(trimmed)) {
		return data
	}
	var b strings.Builder
	dec := json.NewDecoder(strings.NewReader(trimmed))
	dec.UseNumber()
	if err := writeJSONValue(dec, &b, 0); err != nil {
		return data
	}
	return b.String()
}

// ApplySuggestion merges s into the test case. Text fields are overwritten
// only by non-empty values; steps are replaced wholesale with fresh ids when
// the suggestion has any.
func (tc *TestCase) ApplySuggestion(s Suggestion) {
	if s.Description != "" {
		tc.Description = s.Description
	}
	if s.Preconditions != "" {
		tc.Preconditions = s.Preconditions
	}
	if s.TestData != "" {
		tc.TestData = FormatTestData(s.TestData)
	}
	if len(s.Steps) == 0 {
		return
	}

	steps := make([]TestStep, len(s.Steps))
	for i, st := range s.Steps {
		steps[i] = TestStep{ID: newStep().ID, Action: st.Action, Expected: st.Expected}
	}
	tc.Steps = steps
}
