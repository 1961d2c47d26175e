package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/QTest-hq/casegen/internal/config"
	"github.com/QTest-hq/casegen/internal/render"
	"github.com/QTest-hq/casegen/internal/workspace"
	"github.com/QTest-hq/casegen/pkg/model"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func optionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "options",
		Short: "List supported frameworks, design patterns and languages",
		RunE: func(cmd *cobra.Command, args []string) error {
			writeOptionsTable(cmd.OutOrStdout())
			return nil
		},
	}
}

// writeOptionsTable prints one row per framework with the patterns and the
// languages it can produce.
func writeOptionsTable(w io.Writer) {
	patterns := make([]string, 0, len(model.Patterns()))
	for _, p := range model.Patterns() {
		patterns = append(patterns, string(p))
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"FRAMEWORK", "PATTERNS", "LANGUAGES"})
	table.SetAutoWrapText(false)
	for _, fw := range model.Frameworks() {
		langs := string(model.DefaultLanguage)
		if fw.SupportsLanguageChoice() {
			names := make([]string, 0, len(model.Languages()))
			for _, l := range model.Languages() {
				names = append(names, string(l))
			}
			langs = strings.Join(names, ", ")
		}
		table.Append([]string{string(fw), strings.Join(patterns, ", "), langs})
	}
	table.Render()
}

func initCmd() *cobra.Command {
	var (
		dir       string
		framework string
		pattern   string
		language  string
		output    string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a .casegen.yaml with default selections",
		RunE: func(cmd *cobra.Command, args []string) error {
			absDir, err := validateDirPath(dir)
			if err != nil {
				return err
			}

			sel, err := resolveSelection(config.SelectionConfig{}, framework, pattern, language)
			if err != nil {
				return err
			}

			cfg := config.DefaultProjectConfig()
			cfg.Merge(&config.ProjectConfig{
				Defaults: config.SelectionConfig{
					Framework: string(sel.Framework),
					Pattern:   string(sel.Pattern),
					Language:  string(sel.Language),
				},
				Output: config.OutputConfig{Dir: output},
			})

			if err := config.SaveProjectConfig(absDir, cfg); err != nil {
				return fmt.Errorf("failed to save project config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s/.casegen.yaml\n", absDir)
			return nil
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "Project directory")
	cmd.Flags().StringVar(&framework, "framework", "", "Default framework (Cypress, Playwright, Selenium)")
	cmd.Flags().StringVar(&pattern, "pattern", "", "Default design pattern (Default, Gherkin, pom)")
	cmd.Flags().StringVar(&language, "language", "", "Default language (ts, js)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output directory for generated files")

	return cmd
}

func newCaseCmd() *cobra.Command {
	var (
		title string
		force bool
	)

	cmd := &cobra.Command{
		Use:   "new <file>",
		Short: "Create an empty test case file (YAML, or JSON for .json)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if !force {
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("%s already exists (use --force to replace it)", path)
				}
			}

			tc := model.NewTestCase()
			tc.Title = title
			if err := workspace.SaveCase(path, tc); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "Test case title")
	cmd.Flags().BoolVar(&force, "force", false, "Replace an existing file")

	return cmd
}

func previewCmd() *cobra.Command {
	var filePath string

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Render a test case file as markdown",
		RunE: func(cmd *cobra.Command, args []string) error {
			abs, err := validateFilePath(filePath)
			if err != nil {
				return err
			}

			tc, err := workspace.LoadCase(abs)
			if err != nil {
				return err
			}

			fmt.Fprint(cmd.OutOrStdout(), render.Preview(*tc))
			if err := model.Validate(tc, model.FrameworkCypress, model.PatternDefault); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "\nnote: %v\n", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&filePath, "file", "f", "", "Test case file")
	cmd.MarkFlagRequired("file")

	return cmd
}

func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			project, err := config.LoadProjectConfig(".")
			if err != nil {
				return fmt.Errorf("failed to load project config: %w", err)
			}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"SETTING", "VALUE"})
			table.AppendBulk([][]string{
				{"provider", cfg.LLM.DefaultProvider},
				{"generation model", cfg.LLM.GenerationModel},
				{"suggestion model", cfg.LLM.SuggestionModel},
				{"thinking budget", fmt.Sprint(cfg.LLM.ThinkingBudget)},
				{"api key", keyStatus(cfg.LLM.GeminiAPIKey())},
				{"database", orNone(maskConnectionString(cfg.DatabaseURL))},
				{"nats", orNone(maskConnectionString(cfg.NATSURL))},
				{"default framework", orNone(project.Defaults.Framework)},
				{"default pattern", orNone(project.Defaults.Pattern)},
				{"default language", orNone(project.Defaults.Language)},
				{"output dir", project.Output.Dir},
			})
			table.Render()

			if err := cfg.Validate(); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
			}
			return nil
		},
	}
}

func keyStatus(key string) string {
	if key == "" {
		return "(not set)"
	}
	return "set"
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
