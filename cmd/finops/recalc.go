package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Victorkib/kisheka-construction-sub007/internal/recalc"
)

var recalcCmd = &cobra.Command{
	Use:   "recalc <project-id>",
	Short: "Rebuild a project's financial figures from source records",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecalc,
}

func init() {
	rootCmd.AddCommand(recalcCmd)
}

func runRecalc(_ *cobra.Command, args []string) error {
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

	ctx := context.Background()
	if _, err := storage.Projects.GetByID(ctx, projectID); err != nil {
		return err
	}

	runner := recalc.NewRunner(storage, newLogger(), policy.Recalc)
	if err := runner.Recalculate(ctx, projectID); err != nil {
		return err
	}

	finances, err := storage.Finances.Get(ctx, projectID)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Printf("  Rebuilt figures for project %s\n", projectID)
	fmt.Println()
	fmt.Printf("    Total invested:  %12.2f\n", finances.TotalInvested)
	fmt.Printf("    Total used:      %12.2f\n", finances.TotalUsed)
	fmt.Printf("    Committed cost:  %12.2f\n", finances.CommittedCost)
	fmt.Printf("    Capital balance: %12.2f\n", finances.CapitalBalance)
	fmt.Println()
	return nil
}
