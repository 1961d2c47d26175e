package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/QTest-hq/casegen/internal/llm"
	"github.com/QTest-hq/casegen/pkg/model"
	"github.com/rs/zerolog/log"
)

// SuggestionError describes why auto-fill produced nothing. It never leaves
// this package except in logs.
type SuggestionError struct {
	Title string
	Cause error
}

func (e *SuggestionError) Error() string {
	return fmt.Sprintf("suggestion for %q failed: %v", e.Title, e.Cause)
}

func (e *SuggestionError) Unwrap() error {
	return e.Cause
}

var errBlankTitle = errors.New("title is blank")

// Suggest asks the fast model to fill in a test case from its title. Any
// failure yields an empty Suggestion.
func (g *Generator) Suggest(ctx context.Context, title string) model.Suggestion {
	s, err := g.suggest(ctx, title)
	if err != nil {
		log.Warn().Err(&SuggestionError{Title: title, Cause: err}).Msg("auto-fill returned nothing")
		return model.Suggestion{}
	}
	log.Debug().Str("title", title).Int("steps", len(s.Steps)).Msg("auto-fill suggestion received")
	return s
}

func (g *Generator) suggest(ctx context.Context, title string) (model.Suggestion, error) {
	if strings.TrimSpace(title) == "" {
		return model.Suggestion{}, errBlankTitle
	}

	_, suggestSchema, err := resolvedSchemas()
	if err != nil {
		return model.Suggestion{}, err
	}

	resp, err := g.llm.Complete(ctx, &llm.Request{
		Tier:     llm.TierFast,
		System:   SystemPromptSuggestion,
		Messages: []llm.Message{llm.UserMessage(BuildSuggestionPrompt(title))},
		JSONMode: true,
		Schema:   SuggestionSchema(),
	})
	if err != nil {
		return model.Suggestion{}, err
	}

	var s model.Suggestion
	if err := decodeValidated(resp.Content, suggestSchema, &s); err != nil {
		return model.Suggestion{}, err
	}
	if s.TestData != "" {
		s.TestData = model.FormatTestData(s.TestData)
	}
	return s, nil
}
