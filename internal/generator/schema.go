package generator

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
)

// FilesSchema describes the generation response: {files: [{filename, content}]}.
func FilesSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:     "object",
		Required: []string{"files"},
		Properties: map[string]*jsonschema.Schema{
			"files": {
				Type: "array",
				Items: &jsonschema.Schema{
					Type:     "object",
					Required: []string{"filename", "content"},
					Properties: map[string]*jsonschema.Schema{
						"filename": {
							Type:        "string",
							MinLength:   jsonschema.Ptr(1),
							Description: "The name of the file including extension (e.g., login.cy.ts, login.page.ts)",
						},
						"content": {
							Type:        "string",
							MinLength:   jsonschema.Ptr(1),
							Description: "The full source code/content of the file.",
						},
					},
				},
			},
		},
	}
}

// SuggestionSchema describes the auto-fill response.
func SuggestionSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:     "object",
		Required: []string{"description", "preconditions", "steps"},
		Properties: map[string]*jsonschema.Schema{
			"description":   {Type: "string"},
			"preconditions": {Type: "string"},
			"testData":      {Type: "string"},
			"steps": {
				Type: "array",
				Items: &jsonschema.Schema{
					Type:     "object",
					Required: []string{"action", "expected"},
					Properties: map[string]*jsonschema.Schema{
						"action":   {Type: "string"},
						"expected": {Type: "string"},
					},
				},
			},
		},
	}
}

var (
	resolveOnce sync.Once
	filesRS     *jsonschema.Resolved
	suggestRS   *jsonschema.Resolved
	resolveErr  error
)

func resolvedSchemas() (*jsonschema.Resolved, *jsonschema.Resolved, error) {
	resolveOnce.Do(func() {
		filesRS, resolveErr = FilesSchema().Resolve(nil)
		if resolveErr != nil {
			return
		}
		suggestRS, resolveErr = SuggestionSchema().Resolve(nil)
	})
	return filesRS, suggestRS, resolveErr
}

// decodeValidated parses text as JSON, validates it against rs and decodes
// it into out. A markdown code fence around the JSON is tolerated.
func decodeValidated(text string, rs *jsonschema.Resolved, out any) error {
	body := stripCodeFence(text)
	if body == "" {
		return fmt.Errorf("empty response")
	}

	var instance map[string]any
	if err := json.Unmarshal([]byte(body), &instance); err != nil {
		return fmt.Errorf("response is not a JSON object: %w", err)
	}
	if err := rs.Validate(instance); err != nil {
		return fmt.Errorf("response does not match schema: %w", err)
	}
	if err := json.Unmarshal([]byte(body), out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// stripCodeFence removes a surrounding ``` or ```json fence.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		return ""
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
