package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/soltixdb/fuzzcast/internal/analytics/fis"
	"github.com/soltixdb/fuzzcast/internal/models"
)

var (
	trainName   string
	trainReport bool
	trainExport string
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train a model from the configured data source",
	Long: `Build the initial grid system, run the three tuning stages and store
every snapshot. The final system can be written to a YAML or JSON file.

Examples:
  fuzzcast train --config fuzzcast.yaml
  fuzzcast train --report --export model.yaml`,
	RunE: runTrain,
}

func init() {
	rootCmd.AddCommand(trainCmd)

	trainCmd.Flags().StringVar(&trainName, "name", "", "Model name (default: model.name)")
	trainCmd.Flags().BoolVar(&trainReport, "report", false, "Print the rule report when training finishes")
	trainCmd.Flags().StringVar(&trainExport, "export", "", "Write the final system to this file (.yaml, .yml or .json)")
}

func runTrain(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	format, err := exportFormat(trainExport)
	if err != nil {
		return err
	}

	rt, err := setup(ctx)
	if err != nil {
		return err
	}
	defer rt.close(context.Background())

	job, err := rt.training.NewJob(models.TrainRequest{Name: trainName})
	if err != nil {
		return err
	}
	rt.logger.Info("Training started", "model_id", job.ID, "rows", job.Frame.Len(), "lags", job.Data.Lags)

	out, err := rt.training.Run(ctx, job)
	if err != nil {
		return fmt.Errorf("training %s failed: %w", job.ID, err)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "model %s completed (%d rules, %d/%d type-2 input sets)\n",
		job.ID, len(out.Final.Rules), out.Summary.TypeTwoMFs, out.Summary.InputMFs)
	for _, st := range out.Record.Stages {
		if st.Skipped {
			fmt.Fprintf(w, "  %-9s skipped\n", st.Stage)
			continue
		}
		fmt.Fprintf(w, "  %-9s fitness=%.6f generations=%d rules=%d\n", st.Stage, st.BestFitness, st.Generations, st.Rules)
	}
	names := make([]string, 0, len(out.Record.Validation))
	for name := range out.Record.Validation {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		sc := out.Record.Validation[name]
		fmt.Fprintf(w, "  validation %-11s rmse=%.4f mae=%.4f undefined=%d\n", name, sc.RMSE, sc.MAE, sc.Undefined)
	}
	if trainReport {
		fmt.Fprintln(w)
		fmt.Fprint(w, out.Summary.Text)
	}

	if trainExport != "" {
		if err := writeSystem(trainExport, out.Final, format); err != nil {
			return err
		}
		rt.logger.Info("Final system exported", "path", trainExport, "format", format)
	}
	return nil
}

func exportFormat(path string) (fis.Format, error) {
	if path == "" {
		return "", nil
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return fis.FormatYAML, nil
	case ".json":
		return fis.FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported export extension %q (use .yaml, .yml or .json)", filepath.Ext(path))
	}
}

func writeSystem(path string, f *fis.FIS, format fis.Format) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := fis.Export(file, f, format); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}
