package main

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/QTest-hq/casegen/internal/config"
	"github.com/QTest-hq/casegen/internal/generator"
	"github.com/QTest-hq/casegen/internal/llm"
	"github.com/QTest-hq/casegen/pkg/model"
)

// selection is the framework, pattern and language of one generation
type selection struct {
	Framework model.Framework
	Pattern   model.DesignPattern
	Language  model.Language
}

// resolveSelection applies flag values over project defaults. Blank
// framework or pattern stay blank and are reported by request validation.
func resolveSelection(defaults config.SelectionConfig, framework, pattern, language string) (selection, error) {
	var sel selection

	if framework == "" {
		framework = defaults.Framework
	}
	if pattern == "" {
		pattern = defaults.Pattern
	}
	if language == "" {
		language = defaults.Language
	}

	if framework != "" {
		fw, err := model.ParseFramework(framework)
		if err != nil {
			return sel, err
		}
		sel.Framework = fw
	}
	if pattern != "" {
		p, err := model.ParsePattern(pattern)
		if err != nil {
			return sel, err
		}
		sel.Pattern = p
	}

	sel.Language = model.DefaultLanguage
	if language != "" {
		l, err := model.ParseLanguage(language)
		if err != nil {
			return sel, err
		}
		sel.Language = l
	}
	return sel, nil
}

// newGenerator builds the generator on top of the configured LLM router.
func newGenerator(cfg *config.Config) (*generator.Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	router, err := llm.NewRouter(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM router: %w", err)
	}

	return generator.NewGenerator(router, generator.Options{
		ThinkingBudget: cfg.LLM.ThinkingBudget,
	}), nil
}

// validateFilePath returns the absolute path of an existing regular file.
func validateFilePath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("file path is required")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("invalid path %s: %w", path, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("cannot access %s: %w", path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", path)
	}
	return abs, nil
}

// validateDirPath returns the absolute path of an existing directory.
func validateDirPath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("directory path is required")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("invalid path %s: %w", path, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("cannot access %s: %w", path, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", path)
	}
	return abs, nil
}

// maskConnectionString hides the password of a URL-style connection string.
func maskConnectionString(s string) string {
	u, err := url.Parse(s)
	if err != nil || u.User == nil {
		return s
	}
	if _, ok := u.User.Password(); !ok {
		return s
	}
	u.User = url.UserPassword(u.User.Username(), "****")
	// url escapes the mask
	return strings.Replace(u.String(), "%2A%2A%2A%2A", "****", 1)
}
