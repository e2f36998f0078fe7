package commands

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/regwave/regwave/internal/models"
)

var (
	simulateRegulation string
	simulateBefore     string
	simulateAfter      string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a tracked timeline simulation",
	Long: `Run a timeline comparison as a tracked simulation: the run is persisted
with Pending/Running/Completed (or Failed) status transitions and emits
lifecycle events, mirroring how an API consumer would follow it.`,
	Run: runSimulate,
}

func init() {
	simulateCmd.Flags().StringVar(&simulateRegulation, "regulation", "", "Target regulation id")
	simulateCmd.Flags().StringVar(&simulateBefore, "before", "", "Baseline date")
	simulateCmd.Flags().StringVar(&simulateAfter, "after", "", "Comparison date")
	_ = simulateCmd.MarkFlagRequired("regulation")
	_ = simulateCmd.MarkFlagRequired("before")
	_ = simulateCmd.MarkFlagRequired("after")
}

func runSimulate(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	before, err := parseDate(simulateBefore, "before")
	HandleError(err, "Invalid date")
	after, err := parseDate(simulateAfter, "after")
	HandleError(err, "Invalid date")

	a, err := newApp(ctx)
	HandleError(err, "Startup error")
	defer a.close()

	sim, err := a.simulations.Run(ctx, a.tenantID, simulateRegulation, before, after)
	if sim != nil {
		printSimulation(sim)
	}
	HandleError(err, "Simulation failed")
}

func printSimulation(sim *models.Simulation) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 80))
	fmt.Fprintf(w, "SIMULATION %s\n", sim.ID)
	fmt.Fprintf(w, "%s\n", strings.Repeat("=", 80))
	fmt.Fprintf(w, "Regulation:\t%s\n", sim.RegulationID)
	fmt.Fprintf(w, "Status:\t%s\n", sim.Status)
	if sim.StartedAt != nil && sim.FinishedAt != nil {
		fmt.Fprintf(w, "Duration:\t%s\n", sim.FinishedAt.Sub(*sim.StartedAt))
	}
	if sim.Error != "" {
		fmt.Fprintf(w, "Error:\t%s\n", sim.Error)
	}
	w.Flush()

	if sim.Result != nil {
		printTimeline(sim.Result)
	}
}
