package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Victorkib/kisheka-construction-sub007/internal/importer"
	"github.com/Victorkib/kisheka-construction-sub007/internal/recalc"
)

var flagImportCreatedBy string

var importCmd = &cobra.Command{
	Use:   "import <project-id> <file.csv>",
	Short: "Import expenses from a semicolon separated CSV export",
	Long:  "Imports a Windows-1252 encoded, semicolon separated expense export. Rows that fail to parse are skipped and reported; the project's figures are rebuilt afterwards.",
	Args:  cobra.ExactArgs(2),
	RunE:  runImport,
}

func init() {
	importCmd.Flags().StringVar(&flagImportCreatedBy, "created-by", "finops", "Recorded as the creator of each expense")
	rootCmd.AddCommand(importCmd)
}

func runImport(_ *cobra.Command, args []string) error {
	projectID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid project id %q", args[0])
	}

	file, err := os.Open(args[1])
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", args[1], err)
	}
	defer file.Close()

	storage, database, err := openStorage()
	if err != nil {
		return err
	}
	defer database.Close()

	policy, err := loadPolicy()
	if err != nil {
		return err
	}

	log := newLogger()
	runner := recalc.NewRunner(storage, log, policy.Recalc)
	runner.Start()

	svc := importer.NewService(storage, log, runner)
	result, err := svc.ImportExpenses(context.Background(), projectID, flagImportCreatedBy, file)

	// Drain the queued recalculation before reading the rebuilt row.
	runner.Shutdown()
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Printf("  Imported %d expenses, skipped %d rows\n", result.Imported, result.Skipped)
	for _, msg := range result.Errors {
		fmt.Printf("    - %s\n", msg)
	}

	if result.Imported > 0 {
		finances, err := storage.Finances.Get(context.Background(), projectID)
		if err != nil {
			return err
		}
		fmt.Println()
		fmt.Printf("    Total used is now: %12.2f\n", finances.TotalUsed)
	}
	fmt.Println()
	return nil
}
