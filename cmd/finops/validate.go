package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Victorkib/kisheka-construction-sub007/internal/budget"
	"github.com/Victorkib/kisheka-construction-sub007/internal/money"
)

var validateCmd = &cobra.Command{
	Use:   "validate-budget <project-id>",
	Short: "Check a project's stored budget for negative amounts and sum drift",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidateBudget,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidateBudget(_ *cobra.Command, args []string) error {
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
	project, err := storage.Projects.GetByID(ctx, projectID)
	if err != nil {
		return err
	}

	shape := budget.DetectShape(project.Budget)
	enhanced, _, warnings, err := budget.Normalize(project.Budget, budget.Policy{
		PreConstructionPct: policy.Conversion.PreConstructionPct,
		IndirectPct:        policy.Conversion.IndirectPct,
	})
	if err != nil {
		return fmt.Errorf("stored budget does not parse: %w", err)
	}

	fmt.Println()
	fmt.Printf("  Budget check: %s\n", project.Name)
	fmt.Println()
	fmt.Printf("    Stored shape:     %s\n", shape)
	fmt.Printf("    Total:            %12.2f\n", budget.Total(enhanced))
	fmt.Printf("    Direct costs:     %12.2f\n", enhanced.DirectConstructionCosts.Total)
	fmt.Printf("    Pre-construction: %12.2f\n", enhanced.PreConstructionCosts.Total)
	fmt.Printf("    Indirect costs:   %12.2f\n", enhanced.IndirectCosts.Total)
	fmt.Printf("    Contingency:      %12.2f\n", enhanced.ContingencyReserve)
	fmt.Printf("    Components sum:   %12.2f\n", budget.ComponentSum(enhanced))

	for _, warning := range warnings {
		fmt.Printf("    note: %s\n", warning)
	}

	tol := money.Tolerance{
		Absolute:    policy.Tolerance.AbsoluteCents,
		RelativePct: policy.Tolerance.RelativePct,
	}
	v := budget.Validate(enhanced, tol)
	fmt.Println()
	if v.Valid {
		fmt.Println("  Budget is valid.")
	} else {
		fmt.Println("  Budget FAILED validation:")
		for _, msg := range v.Errors {
			fmt.Printf("    - %s\n", msg)
		}
	}
	fmt.Println()
	return nil
}
