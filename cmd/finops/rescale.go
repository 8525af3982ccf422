package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Victorkib/kisheka-construction-sub007/internal/audit"
	"github.com/Victorkib/kisheka-construction-sub007/internal/rescale"
)

var flagRescaleActor string

var rescaleCmd = &cobra.Command{
	Use:   "rescale <project-id> <old-dcc> <new-dcc>",
	Short: "Scale phase allocations by an explicit direct cost ratio",
	Long:  "Scales every phase allocation by new/old. Budget updates through the API do this automatically; this command is the manual lever for when allocations drifted and need to be brought back in line.",
	Args:  cobra.ExactArgs(3),
	RunE:  runRescale,
}

func init() {
	rescaleCmd.Flags().StringVar(&flagRescaleActor, "actor", "finops", "Recorded on the audit trail")
	rootCmd.AddCommand(rescaleCmd)
}

func runRescale(_ *cobra.Command, args []string) error {
	projectID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid project id %q", args[0])
	}
	oldDCC, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("invalid old direct cost %q", args[1])
	}
	newDCC, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return fmt.Errorf("invalid new direct cost %q", args[2])
	}

	storage, database, err := openStorage()
	if err != nil {
		return err
	}
	defer database.Close()

	ctx := context.Background()
	if _, err := storage.Projects.GetByID(ctx, projectID); err != nil {
		return err
	}

	log := newLogger()
	recorder := audit.NewRecorder(storage.Audit, log, 64)
	recorder.Start()
	defer recorder.Shutdown()

	svc := rescale.NewService(storage, log, recorder)
	changes, err := svc.RescalePhaseBudgets(ctx, projectID, flagRescaleActor, oldDCC, newDCC)
	if err != nil {
		return err
	}

	fmt.Println()
	if len(changes) == 0 {
		fmt.Println("  Nothing to rescale.")
		fmt.Println()
		return nil
	}

	fmt.Printf("  Rescaled phase allocations by %0.2f/%0.2f\n", newDCC, oldDCC)
	fmt.Println()
	for _, c := range changes {
		switch {
		case c.Failure != "":
			fmt.Printf("    %-24s %12.2f -> FAILED: %s\n", c.Name, c.OldAllocated, c.Failure)
		case !c.Updated:
			fmt.Printf("    %-24s %12.2f    (untouched)\n", c.Name, c.OldAllocated)
		default:
			fmt.Printf("    %-24s %12.2f -> %12.2f\n", c.Name, c.OldAllocated, c.NewAllocated)
		}
	}
	fmt.Println()
	return nil
}
