package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Victorkib/kisheka-construction-sub007/internal/ledger"
	"github.com/Victorkib/kisheka-construction-sub007/internal/money"
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger <project-id>",
	Short: "Show a project's capital ledger",
	RunE:  runLedger,
	Args:  cobra.ExactArgs(1),
}

func init() {
	rootCmd.AddCommand(ledgerCmd)
}

func runLedger(_ *cobra.Command, args []string) error {
	projectID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid project id %q", args[0])
	}

	storage, database, err := openStorage()
	if err != nil {
		return err
	}
	defer database.Close()

	ctx := context.Background()
	project, err := storage.Projects.GetByID(ctx, projectID)
	if err != nil {
		return err
	}

	svc := ledger.NewService(storage, newLogger())
	finances, err := svc.Snapshot(ctx, projectID)
	if err != nil {
		return err
	}

	available := money.Sum(finances.TotalInvested, -finances.TotalUsed, -finances.CommittedCost)

	fmt.Println()
	fmt.Printf("  Capital ledger: %s\n", project.Name)
	fmt.Println()
	fmt.Printf("    Total invested:    %12.2f\n", finances.TotalInvested)
	fmt.Printf("    Total used:        %12.2f\n", finances.TotalUsed)
	fmt.Printf("    Committed cost:    %12.2f\n", finances.CommittedCost)
	fmt.Printf("    Capital balance:   %12.2f\n", finances.CapitalBalance)
	fmt.Printf("    Available capital: %12.2f\n", available)
	if finances.TotalInvested == 0 {
		fmt.Println()
		fmt.Println("    Capital is not set: order commitments are allowed without an availability check.")
	}
	fmt.Println()
	return nil
}
