package render

import (
	"strings"
	"testing"

	"github.com/QTest-hq/casegen/pkg/model"
	"github.com/stretchr/testify/assert"
)

func TestPreview_Full(t *testing.T) {
	out := Preview(model.TestCase{
		ID:            "TC-9",
		Title:         "Checkout",
		Description:   "Pay for the basket",
		Preconditions: "1. Logged in",
		TestData:      "{\n  \"card\": \"4242\"\n}",
		Steps: []model.TestStep{
			{Action: "Open basket", Expected: "Items listed"},
			{Action: "", Expected: ""},
			{Action: "Pay"},
		},
	})

	assert.True(t, strings.HasPrefix(out, "# Checkout\n"))
	assert.Contains(t, out, "**ID:** TC-9")
	assert.Contains(t, out, "## Description\n\nPay for the basket")
	assert.Contains(t, out, "## Preconditions\n\n1. Logged in")
	assert.Contains(t, out, "1. Open basket\n   - Expected: Items listed\n2. _(no action)_\n3. Pay\n")
	assert.Contains(t, out, "```json\n{\n  \"card\": \"4242\"\n}\n```")
}

func TestPreview_Empty(t *testing.T) {
	out := Preview(*model.NewTestCase())

	assert.Contains(t, out, "# Untitled Test Case")
	assert.Contains(t, out, "_No steps yet._")
	assert.NotContains(t, out, "**ID:**")
	assert.NotContains(t, out, "Test Data")
}

func TestPreview_NumbersStepsByPosition(t *testing.T) {
	out := Preview(model.TestCase{
		Title: "Search",
		Steps: []model.TestStep{
			{Action: "a"},
			{Action: "  ", Expected: ""},
			{Action: "c", Expected: "e"},
		},
	})

	assert.Contains(t, out, "1. a\n2. _(no action)_\n3. c\n   - Expected: e\n")
	assert.NotContains(t, out, "_No steps yet._")
}

func TestPreview_PlainTestData(t *testing.T) {
	out := Preview(model.TestCase{Title: "x", TestData: "user=demo"})
	assert.Contains(t, out, "```\nuser=demo\n```")
}

func TestSplitFilename(t *testing.T) {
	tests := []struct {
		in, name, ext string
	}{
		{"login.cy.ts", "login", ".cy.ts"},
		{"cypress/e2e/login.cy.ts", "login", ".cy.ts"},
		{`features\login.feature`, "login", ".feature"},
		{"Makefile", "Makefile", ""},
		{".env", "", ".env"},
		{"dir.v2/readme", "readme", ""},
	}
	for _, tt := range tests {
		name, ext := SplitFilename(tt.in)
		assert.Equal(t, tt.name, name, tt.in)
		assert.Equal(t, tt.ext, ext, tt.in)
	}
}

func TestIsFeatureFile(t *testing.T) {
	assert.True(t, IsFeatureFile("login.feature"))
	assert.True(t, IsFeatureFile("features/Login.FEATURE"))
	assert.False(t, IsFeatureFile("login.steps.ts"))
}

func TestFileTree(t *testing.T) {
	out := FileTree([]model.GeneratedFile{
		{Filename: "features/login.feature"},
		{Filename: "login.steps.ts"},
	}, 1)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "  0 [feature]"))
	assert.Contains(t, lines[0], "(features/login.feature)")
	assert.True(t, strings.HasPrefix(lines[1], "> 1 [code]"))
	assert.Equal(t, "(no files)\n", FileTree(nil, 0))
}
