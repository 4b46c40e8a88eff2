package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"modpanel/cli/lint"
	"modpanel/cli/style"
)

var lintCmd = &cobra.Command{
	Use:   "lint <code-file>",
	Short: "Check function code for the required class and methods",
	Args:  cobra.ExactArgs(1),
	RunE:  runLint,
}

func init() {
	rootCmd.AddCommand(lintCmd)
}

func runLint(cmd *cobra.Command, args []string) error {
	code, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read code: %w", err)
	}
	reqs := lint.Check(string(code))
	fmt.Println(lint.Render(reqs))
	if !lint.OK(reqs) {
		return fmt.Errorf("%s does not meet the function requirements", args[0])
	}
	fmt.Println(style.SuccessBox.Render("all requirements met"))
	return nil
}
