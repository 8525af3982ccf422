package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Victorkib/kisheka-construction-sub007/internal/config"
)

var flagPolicyForce bool

var policyInitCmd = &cobra.Command{
	Use:   "policy-init",
	Short: "Write the default policy file",
	RunE:  runPolicyInit,
}

func init() {
	policyInitCmd.Flags().BoolVar(&flagPolicyForce, "force", false, "Overwrite an existing file")
	rootCmd.AddCommand(policyInitCmd)
}

func runPolicyInit(_ *cobra.Command, _ []string) error {
	if _, err := os.Stat(flagPolicyPath); err == nil && !flagPolicyForce {
		return fmt.Errorf("%s already exists, pass --force to overwrite", flagPolicyPath)
	}

	policy := config.DefaultPolicy()
	if err := config.Save(flagPolicyPath, policy); err != nil {
		return err
	}

	fmt.Println()
	fmt.Printf("  Wrote %s\n", flagPolicyPath)
	fmt.Println()
	fmt.Printf("    conversion.pre_construction_pct: %.2f\n", policy.Conversion.PreConstructionPct)
	fmt.Printf("    conversion.indirect_pct:         %.2f\n", policy.Conversion.IndirectPct)
	fmt.Printf("    tolerance.absolute:              %.2f\n", policy.Tolerance.AbsoluteCents)
	fmt.Printf("    tolerance.relative_pct:          %.2f\n", policy.Tolerance.RelativePct)
	fmt.Printf("    orders.response_token_ttl_hours: %d\n", policy.Orders.ResponseTokenTTLHours)
	fmt.Printf("    recalc.workers:                  %d\n", policy.Recalc.Workers)
	fmt.Println()
	return nil
}
