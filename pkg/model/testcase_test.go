package model

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stepIDs(tc *TestCase) []string {
	ids := make([]string, len(tc.Steps))
	for i, s := range tc.Steps {
		ids[i] = s.ID
	}
	return ids
}

func TestNewTestCase(t *testing.T) {
	tc := NewTestCase()

	require.Len(t, tc.Steps, 1)
	assert.NotEmpty(t, tc.Steps[0].ID)
	assert.Empty(t, tc.Steps[0].Action)
	assert.Empty(t, tc.Steps[0].Expected)
}

func TestAddStep_Append(t *testing.T) {
	tc := NewTestCase()
	before := stepIDs(tc)

	added := tc.AddStep()

	require.Len(t, tc.Steps, 2)
	assert.Equal(t, added.ID, tc.Steps[1].ID)
	assert.Equal(t, before[0], tc.Steps[0].ID)
	assert.NotEqual(t, before[0], added.ID)
}

func TestAddStep_InsertAfter(t *testing.T) {
	tc := NewTestCase()
	tc.AddStep()
	tc.AddStep()
	before := stepIDs(tc)

	added := tc.AddStep(0)

	want := []string{before[0], added.ID, before[1], before[2]}
	if diff := cmp.Diff(want, stepIDs(tc)); diff != "" {
		t.Errorf("step order mismatch (-want +got):\n%s", diff)
	}
}

func TestAddStep_InsertAfterLast(t *testing.T) {
	tc := NewTestCase()
	tc.AddStep()

	added := tc.AddStep(1)

	require.Len(t, tc.Steps, 3)
	assert.Equal(t, added.ID, tc.Steps[2].ID)
}

func TestAddStep_OutOfRangePanics(t *testing.T) {
	tc := NewTestCase()
	assert.Panics(t, func() { tc.AddStep(5) })
	assert.Panics(t, func() { tc.AddStep(-1) })
}

func TestRemoveStep_LastStepIsCleared(t *testing.T) {
	tc := NewTestCase()
	id := tc.Steps[0].ID
	tc.UpdateStep(0, StepFieldAction, "Open login page")
	tc.UpdateStep(0, StepFieldExpected, "Form is shown")

	tc.RemoveStep(0)

	require.Len(t, tc.Steps, 1)
	assert.Equal(t, TestStep{ID: id}, tc.Steps[0])
}

func TestRemoveStep_Middle(t *testing.T) {
	tc := NewTestCase()
	tc.AddStep()
	tc.AddStep()
	before := stepIDs(tc)

	tc.RemoveStep(1)

	assert.Equal(t, []string{before[0], before[2]}, stepIDs(tc))
}

func TestStepListNeverEmpty(t *testing.T) {
	tc := NewTestCase()
	ops := []func(){
		func() { tc.AddStep() },
		func() { tc.RemoveStep(0) },
		func() { tc.RemoveStep(0) },
		func() { tc.RemoveStep(0) },
		func() { tc.AddStep(0) },
		func() { tc.RemoveStep(len(tc.Steps) - 1) },
		func() { tc.ReplaceSteps(nil) },
		func() { tc.RemoveStep(0) },
	}
	for i, op := range ops {
		op()
		assert.GreaterOrEqual(t, len(tc.Steps), 1, "after op %d", i)
	}
}

func TestUpdateStep(t *testing.T) {
	tc := NewTestCase()
	tc.AddStep()

	tc.UpdateStep(1, StepFieldAction, "Click submit")
	tc.UpdateStep(1, StepFieldExpected, "Dashboard opens")

	assert.Equal(t, "Click submit", tc.Steps[1].Action)
	assert.Equal(t, "Dashboard opens", tc.Steps[1].Expected)
	assert.Empty(t, tc.Steps[0].Action)
	assert.Panics(t, func() { tc.UpdateStep(2, StepFieldAction, "x") })
	assert.Panics(t, func() { tc.UpdateStep(0, StepField("title"), "x") })
}

func TestParseStepField(t *testing.T) {
	f, err := ParseStepField("expected")
	require.NoError(t, err)
	assert.Equal(t, StepFieldExpected, f)

	_, err = ParseStepField("id")
	assert.Error(t, err)
}

func TestReplaceSteps_FillsIDs(t *testing.T) {
	tc := NewTestCase()
	tc.ReplaceSteps([]TestStep{{Action: "a"}, {ID: "keep", Action: "b"}})

	require.Len(t, tc.Steps, 2)
	assert.NotEmpty(t, tc.Steps[0].ID)
	assert.Equal(t, "keep", tc.Steps[1].ID)
}

func TestClone_IsDeep(t *testing.T) {
	tc := NewTestCase()
	tc.Title = "Login"
	tc.UpdateStep(0, StepFieldAction, "Open page")

	snap := tc.Clone()
	tc.UpdateStep(0, StepFieldAction, "changed")
	tc.Title = "changed"
	tc.AddStep()

	assert.Equal(t, "Login", snap.Title)
	assert.Equal(t, "Open page", snap.Steps[0].Action)
	assert.Len(t, snap.Steps, 1)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		action  string
		fw      Framework
		pattern DesignPattern
		missing []string
	}{
		{"complete", "Login", "Open page", FrameworkCypress, PatternDefault, nil},
		{"blank title", "   ", "Open page", FrameworkCypress, PatternDefault, []string{"title"}},
		{"no framework", "Login", "Open page", "", PatternDefault, []string{"framework"}},
		{"no pattern", "Login", "Open page", FrameworkPlaywright, "", []string{"design pattern"}},
		{"blank actions", "Login", "  ", FrameworkSelenium, PatternGherkin, []string{"step action"}},
		{"nothing", "", "", "", "", []string{"title", "framework", "design pattern", "step action"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := NewTestCase()
			tc.Title = tt.title
			tc.UpdateStep(0, StepFieldAction, tt.action)

			err := Validate(tc, tt.fw, tt.pattern)
			if tt.missing == nil {
				assert.NoError(t, err)
				assert.True(t, CanGenerate(tc, tt.fw, tt.pattern))
				return
			}

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.missing, verr.Missing)
			assert.False(t, CanGenerate(tc, tt.fw, tt.pattern))
		})
	}
}

func TestValidate_AnyStepActionCounts(t *testing.T) {
	tc := NewTestCase()
	tc.Title = "Search"
	tc.AddStep()
	tc.UpdateStep(1, StepFieldAction, "Type query")

	assert.NoError(t, Validate(tc, FrameworkPlaywright, PatternPageObjectModel))
}

func TestNewGenerationRequest_Snapshot(t *testing.T) {
	tc := NewTestCase()
	tc.Title = "Checkout"
	tc.UpdateStep(0, StepFieldAction, "Add item to cart")

	req, err := NewGenerationRequest(tc, FrameworkCypress, PatternGherkin, "")
	require.NoError(t, err)

	tc.UpdateStep(0, StepFieldAction, "edited later")
	tc.Title = "edited"

	assert.Equal(t, "Checkout", req.TestCase.Title)
	assert.Equal(t, "Add item to cart", req.TestCase.Steps[0].Action)
	assert.Equal(t, LanguageTypeScript, req.Language)
}

func TestNewGenerationRequest_Invalid(t *testing.T) {
	_, err := NewGenerationRequest(NewTestCase(), FrameworkCypress, PatternDefault, LanguageJavaScript)

	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))
}
