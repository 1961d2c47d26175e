package model

import (
	"fmt"
	"strings"
)

// Framework is the target browser automation framework.
type Framework string

const (
	FrameworkCypress    Framework = "Cypress"
	FrameworkPlaywright Framework = "Playwright"
	FrameworkSelenium   Framework = "Selenium"
)

// DesignPattern is the structure the generated code follows.
type DesignPattern string

const (
	PatternDefault         DesignPattern = "Default"
	PatternGherkin         DesignPattern = "Gherkin"
	PatternPageObjectModel DesignPattern = "Page Object Model"
)

// Language is the output programming language.
type Language string

const (
	LanguageTypeScript Language = "TypeScript"
	LanguageJavaScript Language = "JavaScript"
)

// DefaultLanguage is used until the user picks another one.
const DefaultLanguage = LanguageTypeScript

// Frameworks returns the supported frameworks in display order.
func Frameworks() []Framework {
	return []Framework{FrameworkCypress, FrameworkPlaywright, FrameworkSelenium}
}

// Patterns returns the supported design patterns in display order.
func Patterns() []DesignPattern {
	return []DesignPattern{PatternDefault, PatternGherkin, PatternPageObjectModel}
}

// Languages returns the supported languages in display order.
func Languages() []Language {
	return []Language{LanguageTypeScript, LanguageJavaScript}
}

// SupportsLanguageChoice reports whether the language selector applies.
// Only Cypress offers it; other frameworks keep the current language.
func (f Framework) SupportsLanguageChoice() bool {
	return f == FrameworkCypress
}

// ParseFramework matches s case-insensitively against the known frameworks.
func ParseFramework(s string) (Framework, error) {
	for _, f := range Frameworks() {
		if strings.EqualFold(strings.TrimSpace(s), string(f)) {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown framework %q", s)
}

// ParsePattern matches s case-insensitively; "pom" and "page-object-model"
// are accepted for the page object pattern.
func ParsePattern(s string) (DesignPattern, error) {
	v := strings.TrimSpace(s)
	switch strings.ToLower(v) {
	case "pom", "page-object-model", "page_object_model":
		return PatternPageObjectModel, nil
	}
	for _, p := range Patterns() {
		if strings.EqualFold(v, string(p)) {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown design pattern %q", s)
}

// ParseLanguage matches s case-insensitively; "ts" and "js" are accepted.
func ParseLanguage(s string) (Language, error) {
	v := strings.TrimSpace(s)
	switch strings.ToLower(v) {
	case "ts":
		return LanguageTypeScript, nil
	case "js":
		return LanguageJavaScript, nil
	}
	for _, l := range Languages() {
		if strings.EqualFold(v, string(l)) {
			return l, nil
		}
	}
	return "", fmt.Errorf("unknown language %q", s)
}
