package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/QTest-hq/casegen/internal/config"
	"github.com/QTest-hq/casegen/internal/db"
	"github.com/QTest-hq/casegen/pkg/model"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func historyCmd() *cobra.Command {
	var (
		limit     int
		sessionID string
		output    string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent generation runs (needs DATABASE_URL)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if cfg.DatabaseURL == "" {
				return fmt.Errorf("DATABASE_URL is not set")
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			database, err := db.New(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer database.Close()

			store := db.NewStore(database)
			var runs []model.GenerationRun
			if sessionID != "" {
				runs, err = store.ListSessionRuns(ctx, sessionID, limit)
			} else {
				runs, err = store.ListRuns(ctx, limit)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if strings.EqualFold(strings.TrimSpace(output), "json") {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(runs)
			}
			writeRunsTable(out, runs)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Max rows")
	cmd.Flags().StringVar(&sessionID, "session", "", "Only runs of this session")
	cmd.Flags().StringVar(&output, "output", "table", "Output format: table or json")

	return cmd
}

func writeRunsTable(w io.Writer, runs []model.GenerationRun) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"WHEN", "TITLE", "FRAMEWORK", "PATTERN", "STATUS", "FILES", "TOOK"})
	table.SetAutoWrapText(false)
	for _, r := range runs {
		status := string(r.Status)
		if r.Status == model.RunFailed && r.Error != "" {
			status += ": " + truncate(r.Error, 40)
		}
		table.Append([]string{
			r.CreatedAt.Local().Format(time.DateTime),
			truncate(r.Request.TestCase.Title, 40),
			string(r.Request.Framework),
			string(r.Request.Pattern),
			status,
			fmt.Sprint(len(r.Files)),
			r.Duration.Round(100 * time.Millisecond).String(),
		})
	}
	table.Render()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
