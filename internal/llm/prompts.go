package llm

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
)

// Providers without native structured output get the schema as text.

const jsonOnlyInstruction = "Respond with a single JSON object and nothing else. Do not wrap it in markdown."

// SchemaInstruction renders schema as a system prompt suffix.
func SchemaInstruction(schema *jsonschema.Schema) string {
	if schema == nil {
		return jsonOnlyInstruction
	}
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return jsonOnlyInstruction
	}
	return jsonOnlyInstruction + "\nThe object must conform to this JSON Schema:\n" + string(data)
}

// systemWithSchema appends the schema instruction to the request's system
// prompt when the caller asked for JSON.
func systemWithSchema(req *Request) string {
	if !req.JSONMode && req.Schema == nil {
		return req.System
	}
	instr := SchemaInstruction(req.Schema)
	if req.System == "" {
		return instr
	}
	return req.System + "\n\n" + instr
}

var (
	anthropicKeyPattern = regexp.MustCompile(`sk-ant-[A-Za-z0-9_-]+`)
	genericKeyPattern   = regexp.MustCompile(`sk-[A-Za-z0-9_-]{20,}`)
	googleKeyPattern    = regexp.MustCompile(`AIza[0-9A-Za-z_-]{35}`)
	apiKeyHeaderPattern = regexp.MustCompile(`"x-(?:goog-)?api-key"\s*:\s*"[^"]*"`)
)

// sanitizeErrorBody redacts credentials a provider may echo back in an
// error response before the body ends up in an error or a log line.
func sanitizeErrorBody(body string) string {
	if body == "" {
		return body
	}
	out := anthropicKeyPattern.ReplaceAllString(body, "[REDACTED]")
	out = genericKeyPattern.ReplaceAllString(out, "[REDACTED]")
	out = googleKeyPattern.ReplaceAllString(out, "[REDACTED]")
	out = apiKeyHeaderPattern.ReplaceAllString(out, "[REDACTED]")
	return strings.TrimSpace(out)
}
