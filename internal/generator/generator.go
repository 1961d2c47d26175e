package generator

import (
	"context"
	"errors"
	"path"
	"strings"

	"github.com/QTest-hq/casegen/internal/llm"
	"github.com/QTest-hq/casegen/pkg/model"
	"github.com/rs/zerolog/log"
)

// GenerationFailedMessage is the only text a user sees when generation fails.
const GenerationFailedMessage = "Failed to generate script. Please try again."

// ErrGenerationFailed matches every *GenerationError via errors.Is.
var ErrGenerationFailed = errors.New(GenerationFailedMessage)

// GenerationError reports a failed generation. Error() is always the fixed
// user-facing message; the cause is kept for logs.
type GenerationError struct {
	Cause error
}

func (e *GenerationError) Error() string {
	return GenerationFailedMessage
}

func (e *GenerationError) Unwrap() error {
	return e.Cause
}

func (e *GenerationError) Is(target error) bool {
	return target == ErrGenerationFailed
}

// Options tunes the model calls
type Options struct {
	// ThinkingBudget caps reasoning tokens for generation; 0 disables it.
	ThinkingBudget int
	// MaxTokens caps the response size; 0 leaves the provider default.
	MaxTokens int
}

// DefaultOptions returns the standard generation settings
func DefaultOptions() Options {
	return Options{ThinkingBudget: 2048}
}

// Generator converts test cases into automation code through an LLM
type Generator struct {
	llm  llm.Completer
	opts Options
}

// NewGenerator creates a new generator
func NewGenerator(client llm.Completer, opts Options) *Generator {
	return &Generator{
		llm:  client,
		opts: opts,
	}
}

type filesPayload struct {
	Files []struct {
		Filename string `json:"filename"`
		Content  string `json:"content"`
	} `json:"files"`
}

// Generate sends one generation request and maps the response to files in
// the order the model returned them. It never retries.
func (g *Generator) Generate(ctx context.Context, req model.GenerationRequest) ([]model.GeneratedFile, error) {
	files, err := g.generate(ctx, req)
	if err != nil {
		log.Error().
			Err(err).
			Str("framework", string(req.Framework)).
			Str("pattern", string(req.Pattern)).
			Str("language", string(req.Language)).
			Msg("script generation failed")
		return nil, &GenerationError{Cause: err}
	}

	log.Info().
		Str("framework", string(req.Framework)).
		Str("pattern", string(req.Pattern)).
		Int("files", len(files)).
		Msg("generated script")
	return files, nil
}

func (g *Generator) generate(ctx context.Context, req model.GenerationRequest) ([]model.GeneratedFile, error) {
	filesSchema, _, err := resolvedSchemas()
	if err != nil {
		return nil, err
	}

	resp, err := g.llm.Complete(ctx, &llm.Request{
		Tier:           llm.TierThorough,
		System:         SystemPromptGeneration,
		Messages:       []llm.Message{llm.UserMessage(BuildGenerationPrompt(req))},
		MaxTokens:      g.opts.MaxTokens,
		JSONMode:       true,
		Schema:         FilesSchema(),
		ThinkingBudget: g.opts.ThinkingBudget,
	})
	if err != nil {
		return nil, err
	}

	var payload filesPayload
	if err := decodeValidated(resp.Content, filesSchema, &payload); err != nil {
		return nil, err
	}

	files := make([]model.GeneratedFile, 0, len(payload.Files))
	for _, f := range payload.Files {
		files = append(files, model.GeneratedFile{
			Filename: f.Filename,
			Content:  f.Content,
			Language: LanguageTag(f.Filename),
		})
	}
	return files, nil
}

// LanguageTag guesses a syntax-highlighting tag from a file name.
func LanguageTag(filename string) string {
	name := strings.ToLower(path.Base(strings.ReplaceAll(filename, "\\", "/")))
	switch {
	case strings.HasSuffix(name, ".ts"), strings.HasSuffix(name, ".tsx"):
		return "typescript"
	case strings.HasSuffix(name, ".js"), strings.HasSuffix(name, ".jsx"),
		strings.HasSuffix(name, ".mjs"), strings.HasSuffix(name, ".cjs"):
		return "javascript"
	case strings.HasSuffix(name, ".feature"):
		return "gherkin"
	case strings.HasSuffix(name, ".json"):
		return "json"
	case strings.HasSuffix(name, ".java"):
		return "java"
	case strings.HasSuffix(name, ".py"):
		return "python"
	case strings.HasSuffix(name, ".md"):
		return "markdown"
	}
	return ""
}
