package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"sublate/internal/pipeline"
	"sublate/internal/tracker"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show recorded translation outcomes",
	Long: `Show per-file outcomes recorded by previous translation runs.

Without flags the latest run is reported. Pass --run to inspect an
older run, or --runs to list recent runs with their IDs.`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().String("run", "", "Run ID to report on (default: latest)")
	reportCmd.Flags().Bool("runs", false, "List recent runs instead of outcomes")
	reportCmd.Flags().Int("limit", 20, "Maximum number of runs to list")
	reportCmd.Flags().Bool("json", false, "Emit JSON instead of a table")
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	runID, _ := cmd.Flags().GetString("run")
	listRuns, _ := cmd.Flags().GetBool("runs")
	limit, _ := cmd.Flags().GetInt("limit")
	asJSON, _ := cmd.Flags().GetBool("json")

	store, err := tracker.OpenRead(cfg.Tracker.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("no translation runs recorded yet")
		}
		return err
	}
	defer func() { _ = store.Close() }()

	if listRuns {
		return reportRuns(ctx, cmd, store, limit, asJSON)
	}

	if runID == "" {
		runID, err = store.LatestRunID(ctx)
		if errors.Is(err, tracker.ErrNoRuns) {
			return fmt.Errorf("no translation runs recorded yet")
		}
		if err != nil {
			return err
		}
	}

	outcomes, err := store.Outcomes(ctx, runID)
	if err != nil {
		return err
	}
	if len(outcomes) == 0 {
		return fmt.Errorf("no outcomes recorded for run %s", runID)
	}

	if asJSON {
		return writeOutcomesJSON(cmd, runID, outcomes)
	}

	out := cmd.OutOrStdout()
	color := shouldColorize(out)

	headers := []string{
		"File", "Target", "Status",
		"Cues", "Preserved", "Translated", "Unresolved",
		"Duration",
	}
	aligns := []columnAlignment{
		alignLeft, alignLeft, alignLeft,
		alignRight, alignRight, alignRight, alignRight,
		alignRight,
	}

	rows := make([][]string, 0, len(outcomes))
	for _, o := range outcomes {
		rows = append(rows, []string{
			o.File,
			o.TargetLang,
			colorize(o.Status, statusColor(o.Status), color),
			strconv.Itoa(o.CueCount),
			strconv.Itoa(o.Preserved),
			strconv.Itoa(o.Translated),
			strconv.Itoa(o.Unresolved),
			o.Duration.Truncate(time.Millisecond).String(),
		})
	}

	fmt.Fprintf(out, "Run %s\n", runID)
	fmt.Fprintln(out, renderTable(headers, rows, aligns))

	for _, o := range outcomes {
		if o.Status == pipeline.StatusFailed && o.Error != "" {
			fmt.Fprintf(out, "  %s -> %s: %s\n", o.File, o.TargetLang, o.Error)
		}
	}

	return nil
}

func reportRuns(
	ctx context.Context,
	cmd *cobra.Command,
	store *tracker.Store,
	limit int,
	asJSON bool,
) error {
	runs, err := store.Runs(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		return fmt.Errorf("no translation runs recorded yet")
	}

	if asJSON {
		type jsonRun struct {
			ID         string `json:"id"`
			StartedAt  string `json:"started_at"`
			FinishedAt string `json:"finished_at,omitempty"`
			Outcomes   int    `json:"outcomes"`
		}
		items := make([]jsonRun, 0, len(runs))
		for _, r := range runs {
			item := jsonRun{
				ID:        r.ID,
				StartedAt: r.StartedAt.Format(time.RFC3339),
				Outcomes:  r.Outcomes,
			}
			if r.FinishedAt != nil {
				item.FinishedAt = r.FinishedAt.Format(time.RFC3339)
			}
			items = append(items, item)
		}
		return writeJSON(cmd, map[string]any{"runs": items})
	}

	headers := []string{"Run", "Started", "Finished", "Outcomes"}
	aligns := []columnAlignment{
		alignLeft, alignLeft, alignLeft, alignRight,
	}
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		finished := "running"
		if r.FinishedAt != nil {
			finished = r.FinishedAt.Local().Format("2006-01-02 15:04:05")
		}
		rows = append(rows, []string{
			r.ID,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			finished,
			strconv.Itoa(r.Outcomes),
		})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(headers, rows, aligns))
	return nil
}

func writeOutcomesJSON(
	cmd *cobra.Command,
	runID string,
	outcomes []tracker.Outcome,
) error {
	type jsonOutcome struct {
		File       string `json:"file"`
		TargetLang string `json:"target_lang"`
		OutputPath string `json:"output_path,omitempty"`
		Status     string `json:"status"`
		CueCount   int    `json:"cue_count"`
		Preserved  int    `json:"preserved"`
		Translated int    `json:"translated"`
		Unresolved int    `json:"unresolved"`
		Error      string `json:"error,omitempty"`
		DurationMS int64  `json:"duration_ms"`
		RecordedAt string `json:"recorded_at"`
	}
	items := make([]jsonOutcome, 0, len(outcomes))
	for _, o := range outcomes {
		items = append(items, jsonOutcome{
			File:       o.File,
			TargetLang: o.TargetLang,
			OutputPath: o.OutputPath,
			Status:     o.Status,
			CueCount:   o.CueCount,
			Preserved:  o.Preserved,
			Translated: o.Translated,
			Unresolved: o.Unresolved,
			Error:      o.Error,
			DurationMS: o.Duration.Milliseconds(),
			RecordedAt: o.RecordedAt.Format(time.RFC3339),
		})
	}
	return writeJSON(cmd, map[string]any{"run_id": runID, "outcomes": items})
}

func statusColor(status string) string {
	switch status {
	case pipeline.StatusCompleted:
		return ansiGreen
	case pipeline.StatusCompletedWithUnresolved:
		return ansiYellow
	case pipeline.StatusFailed:
		return ansiRed
	default:
		return ""
	}
}
