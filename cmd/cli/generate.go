package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/QTest-hq/casegen/internal/config"
	"github.com/QTest-hq/casegen/internal/db"
	"github.com/QTest-hq/casegen/internal/render"
	"github.com/QTest-hq/casegen/internal/workspace"
	"github.com/QTest-hq/casegen/pkg/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const generateTimeout = 5 * time.Minute

func generateCmd() *cobra.Command {
	var (
		filePath  string
		framework string
		pattern   string
		language  string
		outputDir string
		overwrite bool
		stdout    bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate automated test code from a test case file",
		RunE: func(cmd *cobra.Command, args []string) error {
			abs, err := validateFilePath(filePath)
			if err != nil {
				return err
			}
			tc, err := workspace.LoadCase(abs)
			if err != nil {
				return err
			}

			// Flags override .casegen.yaml
			project, err := config.LoadProjectConfig(".")
			if err != nil {
				return fmt.Errorf("failed to load project config: %w", err)
			}
			project.Merge(&config.ProjectConfig{
				Output: config.OutputConfig{Dir: outputDir, Overwrite: overwrite},
			})

			sel, err := resolveSelection(project.Defaults, framework, pattern, language)
			if err != nil {
				return err
			}
			req, err := model.NewGenerationRequest(tc, sel.Framework, sel.Pattern, sel.Language)
			if err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			gen, err := newGenerator(cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ctx, cancel := context.WithTimeout(ctx, generateTimeout)
			defer cancel()

			log.Info().
				Str("title", req.TestCase.Title).
				Str("framework", string(req.Framework)).
				Str("pattern", string(req.Pattern)).
				Str("language", string(req.Language)).
				Msg("generating test code")

			started := time.Now()
			files, genErr := gen.Generate(ctx, req)
			recordRun(ctx, cfg, req, files, genErr, time.Since(started), started)
			if genErr != nil {
				return genErr
			}

			out := cmd.OutOrStdout()
			if stdout {
				writeFiles(out, files)
				return nil
			}

			writer := workspace.NewWriter(project.Output.Dir, project.Output.Overwrite)
			writer.Manifest = project.Output.Manifest
			if _, err := writer.Write(req, files); err != nil {
				return fmt.Errorf("failed to write generated files: %w", err)
			}

			fmt.Fprintf(out, "Generated %d file(s) in %s:\n", len(files), project.Output.Dir)
			fmt.Fprint(out, render.FileTree(files, 0))
			return nil
		},
	}

	cmd.Flags().StringVarP(&filePath, "file", "f", "", "Test case file (YAML or JSON)")
	cmd.Flags().StringVar(&framework, "framework", "", "Framework (Cypress, Playwright, Selenium)")
	cmd.Flags().StringVar(&pattern, "pattern", "", "Design pattern (Default, Gherkin, pom)")
	cmd.Flags().StringVar(&language, "language", "", "Language (ts, js)")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output directory (defaults to .casegen.yaml output.dir)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace existing files")
	cmd.Flags().BoolVar(&stdout, "stdout", false, "Print files instead of writing them")
	cmd.MarkFlagRequired("file")

	return cmd
}

// writeFiles prints each file under a header line.
func writeFiles(w io.Writer, files []model.GeneratedFile) {
	for i, f := range files {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "--- %s ---\n", f.Filename)
		fmt.Fprint(w, f.Content)
		if !strings.HasSuffix(f.Content, "\n") {
			fmt.Fprintln(w)
		}
	}
}

// recordRun stores the run when DATABASE_URL is set. Each CLI invocation
// counts as its own session. Failures only warn.
func recordRun(ctx context.Context, cfg *config.Config, req model.GenerationRequest, files []model.GeneratedFile, genErr error, took time.Duration, started time.Time) {
	if cfg.DatabaseURL == "" {
		return
	}

	database, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Warn().Err(err).Msg("run history unavailable")
		return
	}
	defer database.Close()

	run := &model.GenerationRun{
		ID:        uuid.NewString(),
		SessionID: uuid.NewString(),
		Request:   req,
		Files:     files,
		Status:    model.RunSucceeded,
		Model:     cfg.LLM.GenerationModel,
		Duration:  took,
		CreatedAt: started,
	}
	if genErr != nil {
		run.SetError(genErr)
	}

	store := db.NewStore(database)
	if err := store.Migrate(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to migrate run history")
		return
	}
	if err := store.RecordRun(ctx, run); err != nil {
		log.Warn().Err(err).Msg("failed to record run")
	}
}

func suggestCmd() *cobra.Command {
	var (
		title    string
		filePath string
		output   string
		apply    bool
	)

	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Suggest description, preconditions, steps and test data from a title",
		RunE: func(cmd *cobra.Command, args []string) error {
			var tc *model.TestCase
			if filePath != "" {
				abs, err := validateFilePath(filePath)
				if err != nil {
					return err
				}
				if tc, err = workspace.LoadCase(abs); err != nil {
					return err
				}
				if title == "" {
					title = tc.Title
				}
				filePath = abs
			}
			if strings.TrimSpace(title) == "" {
				return fmt.Errorf("a title is required (--title or a case file with one)")
			}
			if apply && tc == nil {
				return fmt.Errorf("--apply needs --file")
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			gen, err := newGenerator(cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			s := gen.Suggest(ctx, title)
			if s.IsEmpty() {
				fmt.Fprintln(cmd.ErrOrStderr(), "No suggestion available.")
				return nil
			}

			target := output
			if apply {
				target = filePath
			}
			if target != "" {
				if tc == nil {
					tc = model.NewTestCase()
					tc.Title = title
				}
				tc.ApplySuggestion(s)
				if err := workspace.SaveCase(target, tc); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", filepath.Base(target))
				return nil
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(s)
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "Test case title")
	cmd.Flags().StringVarP(&filePath, "file", "f", "", "Test case file to read the title from")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the filled-in test case to this file")
	cmd.Flags().BoolVar(&apply, "apply", false, "Merge the suggestion into --file")

	return cmd
}
