package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/soltixdb/fuzzcast/internal/analytics/fis"
	"github.com/soltixdb/fuzzcast/internal/analytics/report"
	"github.com/soltixdb/fuzzcast/internal/storage"
)

var (
	reportModel  string
	reportFile   string
	reportFormat string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the rule report of a stored model",
	Long: `Print the merged rule base of a completed model.

Examples:
  fuzzcast report --model 7c9e6679-7425-40de-944b-e07fc1f90ae7
  fuzzcast report --model <id> --format json
  fuzzcast report --file model.yaml`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVar(&reportModel, "model", "", "Model ID (default: most recent completed model)")
	reportCmd.Flags().StringVar(&reportFile, "file", "", "Read the system from an exported .yaml, .yml or .json file instead of the store")
	reportCmd.Flags().StringVar(&reportFormat, "format", "text", "Output format (text|json)")
}

func runReport(cmd *cobra.Command, args []string) error {
	if reportFormat != "text" && reportFormat != "json" {
		return fmt.Errorf("unsupported format %q (use text or json)", reportFormat)
	}

	if reportFile != "" {
		return reportFromFile(cmd.OutOrStdout(), reportFile, reportFormat)
	}

	ctx := context.Background()
	rt, err := setup(ctx)
	if err != nil {
		return err
	}
	defer rt.close(ctx)

	id := reportModel
	if id == "" {
		id, err = latestCompleted(ctx, rt)
		if err != nil {
			return err
		}
	}

	rec, err := rt.training.Completed(ctx, id)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if reportFormat == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]interface{}{
			"id":           rec.ID,
			"name":         rec.Name,
			"output_names": rec.OutputNames,
			"report":       rec.Report,
			"validation":   rec.Validation,
			"anomalies":    rec.Anomalies,
		})
	}

	fmt.Fprintf(w, "model %s (%s)\n\n", rec.ID, rec.Name)
	fmt.Fprint(w, rec.Report)
	if len(rec.Anomalies) > 0 {
		fmt.Fprintf(w, "\n%d validation residual anomalies\n", len(rec.Anomalies))
		for _, a := range rec.Anomalies {
			fmt.Fprintf(w, "  row %d residual=%.4f score=%.2f %s\n", a.Index, a.Residual, a.Score, a.Type)
		}
	}
	return nil
}

func latestCompleted(ctx context.Context, rt *deps) (string, error) {
	recs, err := rt.training.List(ctx)
	if err != nil {
		return "", err
	}
	var id string
	var newest int64
	for _, r := range recs {
		if r.Status != storage.StatusCompleted {
			continue
		}
		if ts := r.UpdatedAt.UnixNano(); id == "" || ts > newest {
			id, newest = r.ID, ts
		}
	}
	if id == "" {
		return "", fmt.Errorf("no completed model in the store")
	}
	return id, nil
}

// reportFromFile renders the rule report of an exported system. Output
// names are recomputed from the stored centers.
func reportFromFile(w io.Writer, path, format string) error {
	fileFormat, err := exportFormat(path)
	if err != nil {
		return err
	}
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	system, err := fis.Import(file, fileFormat)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	summary := report.Summarize(system)

	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}
	fmt.Fprintf(w, "system %s: %d inputs, %d rules, %d/%d type-2 input sets\n\n",
		system.Name, len(system.Inputs), len(system.Rules), summary.TypeTwoMFs, summary.InputMFs)
	fmt.Fprint(w, summary.Text)
	return nil
}
