package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatTestData(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"compact object", `{"u":"a"}`, "{\n  \"u\": \"a\"\n}"},
		{"nested", `{"user":{"name":"x"},"ids":[1,2]}`, "{\n  \"user\": {\n    \"name\": \"x\"\n  },\n  \"ids\": [\n    1,\n    2\n  ]\n}"},
		{"surrounding whitespace", "  {\"u\":\"a\"}\n\n", "{\n  \"u\": \"a\"\n}"},
		{"key order kept", `{"z":1,"a":2}`, "{\n  \"z\": 1,\n  \"a\": 2\n}"},
		{"unicode escapes decoded", `{"name":"Ren\u00e9e","tag":"<b>"}`, "{\n  \"name\": \"Renée\",\n  \"tag\": \"<b>\"\n}"},
		{"numbers shortened", `[1.0, 1e2, -0.50, 2.5e-7, 1e21]`, "[\n  1,\n  100,\n  -0.5,\n  2.5e-7,\n  1e+21\n]"},
		{"empty containers", `{"a":{},"b":[]}`, "{\n  \"a\": {},\n  \"b\": []\n}"},
		{"scalar", ` true `, "true"},
		{"not json", "user: a", "user: a"},
		{"not json keeps whitespace", " user: a \n", " user: a \n"},
		{"broken json", `{"u":`, `{"u":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatTestData(tt.in))
		})
	}
}

func TestApplySuggestion_OverwritesNonEmptyOnly(t *testing.T) {
	tc := NewTestCase()
	tc.Title = "Login"
	tc.Description = "D0"
	tc.Preconditions = "P0"
	tc.TestData = "T0"
	tc.UpdateStep(0, StepFieldAction, "keep")
	oldID := tc.Steps[0].ID

	tc.ApplySuggestion(Suggestion{Description: "D1"})

	assert.Equal(t, "D1", tc.Description)
	assert.Equal(t, "P0", tc.Preconditions)
	assert.Equal(t, "T0", tc.TestData)
	require.Len(t, tc.Steps, 1)
	assert.Equal(t, oldID, tc.Steps[0].ID)
	assert.Equal(t, "keep", tc.Steps[0].Action)
}

func TestApplySuggestion_ReplacesStepsWholesale(t *testing.T) {
	tc := NewTestCase()
	tc.AddStep()
	tc.AddStep()
	old := stepIDs(tc)

	tc.ApplySuggestion(Suggestion{
		Steps: []SuggestedStep{
			{Action: "Open /login", Expected: "Form visible"},
			{Action: "Submit", Expected: "Redirected"},
		},
	})

	require.Len(t, tc.Steps, 2)
	assert.Equal(t, "Open /login", tc.Steps[0].Action)
	assert.Equal(t, "Redirected", tc.Steps[1].Expected)
	for _, s := range tc.Steps {
		assert.NotEmpty(t, s.ID)
		assert.NotContains(t, old, s.ID)
	}
}

func TestApplySuggestion_ReformatsTestData(t *testing.T) {
	tc := NewTestCase()
	tc.ApplySuggestion(Suggestion{TestData: `{"u":"a"}`})
	assert.Equal(t, "{\n  \"u\": \"a\"\n}", tc.TestData)

	tc.ApplySuggestion(Suggestion{TestData: "plain text"})
	assert.Equal(t, "plain text", tc.TestData)
}

func TestApplySuggestion_Empty(t *testing.T) {
	tc := NewTestCase()
	tc.Description = "D"
	before := tc.Clone()

	tc.ApplySuggestion(Suggestion{})

	assert.Equal(t, before, *tc)
	assert.True(t, Suggestion{}.IsEmpty())
}
