package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"modpanel/cli/style"
)

var executionsLimit int

var executionsCmd = &cobra.Command{
	Use:     "executions",
	Short:   "Show recent function executions",
	Aliases: []string{"history"},
	Args:    cobra.NoArgs,
	RunE:    runExecutions,
}

func init() {
	executionsCmd.Flags().IntVarP(&executionsLimit, "limit", "n", 20, "number of executions to show")
	rootCmd.AddCommand(executionsCmd)
}

func runExecutions(cmd *cobra.Command, args []string) error {
	entries, err := client.Executions(cmdContext(cmd))
	if err != nil {
		return fmt.Errorf("failed to fetch executions: %w", err)
	}
	if len(entries) == 0 {
		fmt.Println(style.DimText.Render("No executions yet."))
		return nil
	}
	if executionsLimit > 0 && len(entries) > executionsLimit {
		entries = entries[:executionsLimit]
	}

	fmt.Println(style.TableHeader.Render(fmt.Sprintf("  %-2s  %-20s %-22s %s", "", "FUNCTION", "WHEN", "RESULT")))
	for _, e := range entries {
		result := e.Result
		if len(result) > 60 {
			result = result[:57] + "..."
		}
		fmt.Printf("  %s  %s %s %s\n",
			style.StatusDot(e.Success),
			style.Bold.Render(padRight(e.Function.Name, 20)),
			style.DimText.Render(padRight(e.At, 22)),
			result,
		)
		if len(e.Args) > 0 && string(e.Args) != "{}" && string(e.Args) != "null" {
			fmt.Printf("      %s %s\n", style.DimText.Render("args"), string(e.Args))
		}
	}
	return nil
}
