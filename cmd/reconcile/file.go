package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vallesolidario/huellero/internal/domain/models"
	"github.com/vallesolidario/huellero/internal/reconcile"
	"github.com/vallesolidario/huellero/internal/service/attendance"
)

var (
	fileInput     string
	fileSchedules string
	fileRoles     string
	fileOutput    string
)

var fileCmd = &cobra.Command{
	Use:   "file",
	Short: "Reconcile a clock export CSV offline",
	Long: `Reads a punch export (code, name, timestamp, direction) from a CSV file,
optionally with schedule (code, start, end) and role (code, document, role,
daily hours) files, and writes the run report as JSON.

Examples:
  reconcile file --input punches.csv
  reconcile file --input punches.csv --schedules horarios.csv --output report.json`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		out := cmd.OutOrStdout()
		if fileOutput != "" {
			f, err := os.Create(fileOutput)
			if err != nil {
				return fmt.Errorf("create output: %w", err)
			}
			defer f.Close()
			out = f
		}

		pipeline := reconcile.New(cfg.Pipeline.Reconcile(), zap.L().Named("reconcile"))
		return reconcileFiles(cmd.Context(), pipeline, fileSources{
			Punches:   fileInput,
			Schedules: fileSchedules,
			Roles:     fileRoles,
		}, cfg.Location(), out)
	},
}

func init() {
	fileCmd.Flags().StringVar(&fileInput, "input", "", "punch export CSV")
	fileCmd.Flags().StringVar(&fileSchedules, "schedules", "", "optional schedule windows CSV")
	fileCmd.Flags().StringVar(&fileRoles, "roles", "", "optional roles CSV")
	fileCmd.Flags().StringVarP(&fileOutput, "output", "o", "", "write the JSON report here instead of stdout")
	_ = fileCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(fileCmd)
}

type fileSources struct {
	Punches   string
	Schedules string
	Roles     string
}

func reconcileFiles(ctx context.Context, pipeline *reconcile.Pipeline, src fileSources, loc *time.Location, out io.Writer) error {
	var input reconcile.Input

	rows, err := readCSV(src.Punches)
	if err != nil {
		return err
	}
	if input.Punches, err = attendance.ParsePunches(rows, loc); err != nil {
		return fmt.Errorf("parse %s: %w", src.Punches, err)
	}

	if src.Schedules != "" {
		rows, err := readCSV(src.Schedules)
		if err != nil {
			return err
		}
		if input.Schedules, err = attendance.ParseSchedules(rows); err != nil {
			return fmt.Errorf("parse %s: %w", src.Schedules, err)
		}
	}

	if src.Roles != "" {
		rows, err := readCSV(src.Roles)
		if err != nil {
			return err
		}
		if input.Roles, err = attendance.ParseRoles(rows); err != nil {
			return fmt.Errorf("parse %s: %w", src.Roles, err)
		}
	}

	res, err := pipeline.Run(ctx, input)
	if err != nil {
		return fmt.Errorf("reconcile punches: %w", err)
	}

	report := models.RunReport{
		ID:        uuid.NewString(),
		Summary:   res.Summary,
		Records:   res.Records,
		CreatedAt: time.Now().UTC(),
	}
	if len(res.Records) > 0 {
		report.From = res.Records[0].Date
		report.To = res.Records[0].Date
		for _, r := range res.Records {
			if r.Date.Before(report.From) {
				report.From = r.Date
			}
			if r.Date.After(report.To) {
				report.To = r.Date
			}
		}
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// readCSV loads a file into the same row shape the Sheets API returns.
func readCSV(path string) ([][]interface{}, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	rows := make([][]interface{}, len(records))
	for i, rec := range records {
		row := make([]interface{}, len(rec))
		for j, v := range rec {
			row[j] = v
		}
		rows[i] = row
	}
	return rows, nil
}
