package generator

import (
	"fmt"
	"strings"

	"github.com/QTest-hq/casegen/pkg/model"
)

// SystemPromptGeneration frames the generation model.
const SystemPromptGeneration = "You are an expert QA automation engineer. You turn manual test cases into maintainable automated test suites."

// SystemPromptSuggestion frames the auto-fill model.
const SystemPromptSuggestion = "You are a senior QA engineer. You write precise, reviewable manual test cases."

// RenderSteps formats steps the way both prompts and previews number them.
func RenderSteps(steps []model.TestStep) string {
	parts := make([]string, len(steps))
	for i, s := range steps {
		parts[i] = fmt.Sprintf("Step %d: %s\n   Expected Result: %s", i+1, s.Action, s.Expected)
	}
	return strings.Join(parts, "\n\n")
}

// BuildGenerationPrompt renders the request as the generation prompt. It is
// pure: the same request always yields the same text.
func BuildGenerationPrompt(req model.GenerationRequest) string {
	tc := req.TestCase
	var b strings.Builder

	b.WriteString("Role: Expert QA Automation Engineer.\n")
	b.WriteString("Task: Convert the following Manual Test Case into a robust automated test script suite.\n\n")

	fmt.Fprintf(&b, "Target Framework: %s\n", req.Framework)
	fmt.Fprintf(&b, "Design Pattern: %s\n", req.Pattern)
	fmt.Fprintf(&b, "Programming Language: %s\n\n", req.Language)

	b.WriteString("Test Case Details:\n------------------\n")
	fmt.Fprintf(&b, "ID: %s\n", tc.ID)
	fmt.Fprintf(&b, "Title: %s\n", tc.Title)
	fmt.Fprintf(&b, "Description: %s\n", tc.Description)
	fmt.Fprintf(&b, "Preconditions: %s\n", tc.Preconditions)
	fmt.Fprintf(&b, "Test Data: %s\n\n", tc.TestData)

	b.WriteString("Test Steps and Expected Results:\n")
	b.WriteString(RenderSteps(tc.Steps))
	b.WriteString("\n------------------\n\n")

	b.WriteString("Requirements:\n")
	b.WriteString("1. Write clean, modern, and production-ready code.\n")
	b.WriteString("2. Add comments explaining the logic.\n")
	b.WriteString("3. Split the code into appropriate files based on the Design Pattern.\n")
	fmt.Fprintf(&b, "4. If the selected pattern is %q:\n", model.PatternDefault)
	b.WriteString("   - Generate a single, self-contained, and flat test script file.\n")
	b.WriteString("   - Do NOT use any design patterns like Page Object Model or BDD/Gherkin.\n")
	b.WriteString("   - Include all locators and logic directly within the test file.\n")
	fmt.Fprintf(&b, "5. If the selected pattern is %q:\n", model.PatternGherkin)
	b.WriteString("   - Strictly separate the .feature file and the step definitions.\n")
	fmt.Fprintf(&b, "6. If the selected pattern is %q:\n", model.PatternPageObjectModel)
	b.WriteString("   - Create separate files for Page Classes and Test Specs.\n")
	b.WriteString("   - CRITICAL: Use getter methods for all locators in your Page Objects (e.g., `get usernameInput() { return cy.get('#username'); }`). Do NOT use public class fields or simple variables for locators.\n")
	b.WriteString("   - Ensure robust selector strategies (prefer data-testid, id, or stable attributes).\n")
	b.WriteString("7. Include a dedicated file for the test data (e.g., JSON fixture) if the test data is complex, regardless of the pattern.\n")
	fmt.Fprintf(&b, "8. Ensure valid %s syntax.\n", req.Language)
	b.WriteString("9. Adhere to industry standards:\n")
	b.WriteString("   - Use meaningful naming conventions.\n")
	b.WriteString("   - Avoid hard-coded waits (use implicit/explicit waits or framework-specific assertions).\n")
	b.WriteString("   - Ensure code is DRY (Don't Repeat Yourself).\n\n")

	b.WriteString("Return the response as a JSON object containing an array of files.\n")

	return b.String()
}

// BuildSuggestionPrompt asks for the remaining test case fields given only a title.
func BuildSuggestionPrompt(title string) string {
	var b strings.Builder

	b.WriteString("Role: Senior QA Engineer.\n")
	fmt.Fprintf(&b, "Task: Generate detailed test case information based on the title: %q.\n\n", title)

	b.WriteString("Requirements:\n")
	b.WriteString("1. Description: A concise summary (1-2 sentences).\n")
	b.WriteString("2. Preconditions: List of necessary preconditions. Return as a numbered list string with each precondition separated by a newline character (\\n).\n")
	b.WriteString("3. Test Data: Relevant test data. Return this as a valid JSON string (e.g. {\"username\": \"user\"}).\n")
	b.WriteString("4. Steps: An array of steps, where each step has an \"action\" and a specific \"expected\" result for that action.\n\n")

	b.WriteString("Return the response as a JSON object.\n")

	return b.String()
}
