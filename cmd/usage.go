package cmd

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rootcauseai/rootcause/internal/cost"
	"github.com/rootcauseai/rootcause/internal/output"
)

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show API usage, costs, and budget status",
	Long: `Show recorded API usage and spend over a trailing window of days,
with per-day rollups and status against the configured budgets.

Examples:
  rootcause usage
  rootcause usage --days 30
  rootcause usage --daily-budget 5 --format json`,
	Args: cobra.NoArgs,
	RunE: runUsage,
}

func init() {
	usageCmd.Flags().Int("days", 7, "trailing window in days")
	usageCmd.Flags().Float64("daily-budget", 0, "daily budget in USD (overrides config)")
	usageCmd.Flags().Float64("monthly-budget", 0, "monthly budget in USD (overrides config)")

	rootCmd.AddCommand(usageCmd)
}

func runUsage(cmd *cobra.Command, args []string) error {
	days, _ := cmd.Flags().GetInt("days")
	dailyBudget, _ := cmd.Flags().GetFloat64("daily-budget")
	monthlyBudget, _ := cmd.Flags().GetFloat64("monthly-budget")

	if days < 1 {
		return fmt.Errorf("invalid --days value: %d (must be at least 1)", days)
	}

	format := output.ParseFormat(viper.GetString("format"))
	logger := newLogger(viper.GetBool("verbose"))

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if dailyBudget <= 0 {
		dailyBudget = cfg.Costs.DailyBudget
	}
	if monthlyBudget <= 0 {
		monthlyBudget = cfg.Costs.MonthlyBudget
	}

	tracker, err := cost.NewTracker(cfg.Costs.Path, logger)
	if err != nil {
		return err
	}

	stats := tracker.Stats(days)
	rollups := tracker.Rollups(days)
	budget := tracker.BudgetStatus(dailyBudget, monthlyBudget)

	out := cmd.OutOrStdout()

	if format == output.FormatJSON {
		return output.WriteJSON(out, map[string]interface{}{
			"days":                days,
			"rollups":             rollups,
			"total_cost_usd":      stats.TotalCost,
			"total_requests":      stats.TotalRequests,
			"average_daily_cost":  stats.AverageDailyCost,
			"average_per_request": stats.AverageCostPerRequest,
			"budget": map[string]interface{}{
				"daily_cost":       budget.DailyCost,
				"daily_budget":     budget.DailyBudget,
				"daily_exceeded":   budget.DailyExceeded,
				"monthly_cost":     budget.MonthlyCost,
				"monthly_budget":   budget.MonthlyBudget,
				"monthly_exceeded": budget.MonthlyExceeded,
			},
		})
	}

	if len(rollups) == 0 {
		fmt.Fprintf(out, "No usage recorded in the last %d days.\n\n", days)
	} else {
		tbl := table.NewWriter()
		if output.IsTerminal(out) {
			tbl.SetStyle(table.StyleLight)
		}

		tbl.AppendHeader(table.Row{"Date", "Requests", "Cost (USD)"})
		for _, day := range rollups {
			tbl.AppendRow(table.Row{day.Date, day.Requests, fmt.Sprintf("$%.4f", day.CostUSD)})
		}
		tbl.AppendFooter(table.Row{"Total", stats.TotalRequests, fmt.Sprintf("$%.4f", stats.TotalCost)})

		fmt.Fprintln(out, tbl.Render())
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Average per day: $%.4f\n", stats.AverageDailyCost)
		fmt.Fprintf(out, "Average per request: $%.4f\n", stats.AverageCostPerRequest)
		fmt.Fprintln(out)
	}

	fmt.Fprintf(out, "Today: $%.4f of $%.2f daily budget\n", budget.DailyCost, budget.DailyBudget)
	fmt.Fprintf(out, "This month: $%.4f of $%.2f monthly budget\n", budget.MonthlyCost, budget.MonthlyBudget)

	if budget.DailyExceeded {
		fmt.Fprintln(out, "WARNING: daily budget exceeded")
	}
	if budget.MonthlyExceeded {
		fmt.Fprintln(out, "WARNING: monthly budget exceeded")
	}

	return nil
}
