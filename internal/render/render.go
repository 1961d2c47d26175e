// Package render turns test cases and generated files into text views.
package render

import (
	"fmt"
	"strings"

	"github.com/QTest-hq/casegen/pkg/model"
)

// Preview renders a test case as markdown.
func Preview(tc model.TestCase) string {
	var b strings.Builder

	title := strings.TrimSpace(tc.Title)
	if title == "" {
		title = "Untitled Test Case"
	}
	fmt.Fprintf(&b, "# %s\n", title)
	if id := strings.TrimSpace(tc.ID); id != "" {
		fmt.Fprintf(&b, "\n**ID:** %s\n", id)
	}
	if d := strings.TrimSpace(tc.Description); d != "" {
		fmt.Fprintf(&b, "\n## Description\n\n%s\n", d)
	}
	if p := strings.TrimSpace(tc.Preconditions); p != "" {
		fmt.Fprintf(&b, "\n## Preconditions\n\n%s\n", p)
	}

	b.WriteString("\n## Steps\n\n")
	// Steps are numbered by position, as in the generation prompt.
	for i, s := range tc.Steps {
		action := strings.TrimSpace(s.Action)
		if action == "" {
			action = "_(no action)_"
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, action)
		if expected := strings.TrimSpace(s.Expected); expected != "" {
			fmt.Fprintf(&b, "   - Expected: %s\n", expected)
		}
	}
	if len(tc.Steps) == 0 {
		b.WriteString("_No steps yet._\n")
	}

	if data := strings.TrimSpace(tc.TestData); data != "" {
		lang := ""
		if strings.HasPrefix(data, "{") || strings.HasPrefix(data, "[") {
			lang = "json"
		}
		fmt.Fprintf(&b, "\n## Test Data\n\n```%s\n%s\n```\n", lang, data)
	}

	return b.String()
}

// SplitFilename splits the base name of path at its first dot, so
// "cypress/e2e/login.cy.ts" gives "login" and ".cy.ts". Either separator
// style is accepted.
func SplitFilename(path string) (name, ext string) {
	base := path
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.IndexByte(base, '.'); i >= 0 {
		return base[:i], base[i:]
	}
	return base, ""
}

// IsFeatureFile reports whether name is a Gherkin feature file.
func IsFeatureFile(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".feature")
}

// FileTree renders the explorer listing of a generated file set. The
// active file is marked with ">".
func FileTree(files []model.GeneratedFile, active int) string {
	if len(files) == 0 {
		return "(no files)\n"
	}

	var b strings.Builder
	for i, f := range files {
		marker := " "
		if i == active {
			marker = ">"
		}
		icon := "[code]"
		if IsFeatureFile(f.Filename) {
			icon = "[feature]"
		}
		name, ext := SplitFilename(f.Filename)
		fmt.Fprintf(&b, "%s %d %-9s %s%s", marker, i, icon, name, ext)
		if f.Filename != name+ext {
			fmt.Fprintf(&b, "  (%s)", f.Filename)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
