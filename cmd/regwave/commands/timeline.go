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
	timelineRegulation string
	timelineBefore     string
	timelineAfter      string
)

var timelineCmd = &cobra.Command{
	Use:   "timeline",
	Short: "Compare entity impact before and after a regulation takes effect",
	Long: `Compare the impact landscape at two points in time: the baseline built
from regulations already in force at the before date, and the state with the
target regulation applied. Dates accept RFC3339, YYYY-MM-DD, and
human-readable forms like "last january".`,
	Run: runTimeline,
}

func init() {
	timelineCmd.Flags().StringVar(&timelineRegulation, "regulation", "", "Target regulation id")
	timelineCmd.Flags().StringVar(&timelineBefore, "before", "", "Baseline date")
	timelineCmd.Flags().StringVar(&timelineAfter, "after", "", "Comparison date")
	_ = timelineCmd.MarkFlagRequired("regulation")
	_ = timelineCmd.MarkFlagRequired("before")
	_ = timelineCmd.MarkFlagRequired("after")
}

func runTimeline(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	before, err := parseDate(timelineBefore, "before")
	HandleError(err, "Invalid date")
	after, err := parseDate(timelineAfter, "after")
	HandleError(err, "Invalid date")

	a, err := newApp(ctx)
	HandleError(err, "Startup error")
	defer a.close()

	comparison, err := a.timeline.CompareImpact(ctx, timelineRegulation, before, after)
	HandleError(err, "Timeline comparison failed")

	printTimeline(comparison)
}

func printTimeline(c *models.TimelineComparison) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 80))
	fmt.Fprintf(w, "TIMELINE COMPARISON\n")
	fmt.Fprintf(w, "%s\n", strings.Repeat("=", 80))
	fmt.Fprintf(w, "Regulation:\t%s\n", c.RegulationID)
	fmt.Fprintf(w, "Before:\t%s\n", c.BeforeDate.Format("2006-01-02"))
	fmt.Fprintf(w, "After:\t%s\n", c.AfterDate.Format("2006-01-02"))
	fmt.Fprintf(w, "Total Impact:\t%.4f -> %.4f\n", c.BeforeTotal, c.AfterTotal)

	fmt.Fprintf(w, "\nENTITY\tNAME\tBEFORE\tAFTER\tDELTA\tCHANGE\n")
	for _, d := range c.Deltas {
		fmt.Fprintf(w, "%s\t%s\t%.4f\t%.4f\t%+.4f\t%+.1f%%\n",
			d.Entity, d.DisplayName, d.Before, d.After, d.Delta, d.PercentChange)
	}
	if len(c.Deltas) == 0 {
		fmt.Fprintf(w, "(no entity moved more than the reporting threshold)\n")
	}
}
