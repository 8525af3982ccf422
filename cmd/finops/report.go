package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Victorkib/kisheka-construction-sub007/internal/budget"
	"github.com/Victorkib/kisheka-construction-sub007/internal/report"
)

var (
	flagReportFormat string
	flagReportOut    string
)

var reportCmd = &cobra.Command{
	Use:   "report <project-id>",
	Short: "Export a budget execution report",
	Args:  cobra.ExactArgs(1),
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().StringVarP(&flagReportFormat, "format", "f", "csv", "Output format: json, csv or xlsx")
	reportCmd.Flags().StringVarP(&flagReportOut, "out", "o", "", "Output file (defaults to budget-execution-<id>.<format>, json prints to stdout)")
	rootCmd.AddCommand(reportCmd)
}

func runReport(_ *cobra.Command, args []string) error {
	projectID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid project id %q", args[0])
	}

	storage, database, err := openStorage()
	if err != nil {
		return err
	}
	defer database.Close()

	policy, err := loadPolicy()
	if err != nil {
		return err
	}

	svc := report.NewService(storage, newLogger(), budget.Policy{
		PreConstructionPct: policy.Conversion.PreConstructionPct,
		IndirectPct:        policy.Conversion.IndirectPct,
	})

	execution, err := svc.BudgetExecution(context.Background(), projectID)
	if err != nil {
		return err
	}

	if flagReportFormat == "json" && flagReportOut == "" {
		encoded, err := json.MarshalIndent(execution, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(encoded))
		return nil
	}

	out := flagReportOut
	if out == "" {
		out = fmt.Sprintf("budget-execution-%s.%s", projectID, flagReportFormat)
	}
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", out, err)
	}
	defer f.Close()

	switch flagReportFormat {
	case "json":
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		err = enc.Encode(execution)
	case "csv":
		err = execution.WriteCSV(f)
	case "xlsx":
		err = execution.WriteXLSX(f)
	default:
		return fmt.Errorf("unknown format %q, expected json, csv or xlsx", flagReportFormat)
	}
	if err != nil {
		return err
	}

	fmt.Printf("  Report written to %s (%d rows)\n", out, len(execution.Rows))
	return nil
}
