package commands

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/regwave/regwave/internal/risk"
)

var risksDepartments bool

var risksCmd = &cobra.Command{
	Use:   "risks",
	Short: "Recalculate and print risk scores for every affected entity",
	Run:   runRisks,
}

func init() {
	risksCmd.Flags().BoolVar(&risksDepartments, "departments", false,
		"Print the department risk ranking instead of the full entity table")
}

func runRisks(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	a, err := newApp(ctx)
	HandleError(err, "Startup error")
	defer a.close()

	if risksDepartments {
		ranking, err := a.aggregator.DepartmentRiskRanking(ctx, a.tenantID)
		HandleError(err, "Risk calculation failed")
		printDepartmentRanking(ranking)
		return
	}

	results, err := a.aggregator.CalculateAllRisks(ctx, a.tenantID)
	HandleError(err, "Risk calculation failed")
	printRisks(results)
}

func printRisks(results []risk.CalculationResult) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 80))
	fmt.Fprintf(w, "RISK SCORES (%d entities)\n", len(results))
	fmt.Fprintf(w, "%s\n", strings.Repeat("=", 80))
	fmt.Fprintf(w, "ENTITY\tNAME\tBASE\tADJUSTED\tLEVEL\tTOP FACTOR\n")
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%s\t%.4f\t%.4f\t%s\t%s\n",
			r.Entity, r.DisplayName, r.BaseRiskScore, r.AdjustedRiskScore, r.RiskLevel, topFactor(r.RiskFactors))
	}
}

func printDepartmentRanking(ranking []risk.DepartmentRisk) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 80))
	fmt.Fprintf(w, "DEPARTMENT RISK RANKING\n")
	fmt.Fprintf(w, "%s\n", strings.Repeat("=", 80))
	fmt.Fprintf(w, "RANK\tCODE\tNAME\tADJUSTED\tLEVEL\n")
	for i, d := range ranking {
		fmt.Fprintf(w, "%d\t%s\t%s\t%.4f\t%s\n", i+1, d.Code, d.Name, d.AdjustedRiskScore, d.RiskLevel)
	}
}

// topFactor names the regulation contributing the most risk.
func topFactor(factors map[string]float64) string {
	if len(factors) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(factors))
	for k := range factors {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if factors[keys[i]] != factors[keys[j]] {
			return factors[keys[i]] > factors[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return fmt.Sprintf("%s (%.4f)", keys[0], factors[keys[0]])
}
