package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"modpanel/cli/api"
	"modpanel/cli/lint"
	"modpanel/cli/style"
	"modpanel/cli/testrun"
)

var (
	testCode  string
	testCases string
)

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Run function code against test cases on the server",
	Args:  cobra.NoArgs,
	RunE:  runTest,
}

func init() {
	testCmd.Flags().StringVar(&testCode, "code", "", "function code file")
	testCmd.Flags().StringVar(&testCases, "cases", "", "test cases file (JSON or YAML list of {input, expected})")
	testCmd.MarkFlagRequired("code")
	rootCmd.AddCommand(testCmd)
}

func runTest(cmd *cobra.Command, args []string) error {
	code, err := os.ReadFile(testCode)
	if err != nil {
		return fmt.Errorf("read code: %w", err)
	}
	if strings.TrimSpace(string(code)) == "" {
		return fmt.Errorf("%s is empty", testCode)
	}

	var cases []api.TestCase
	if testCases != "" {
		data, err := os.ReadFile(testCases)
		if err != nil {
			return fmt.Errorf("read test cases: %w", err)
		}
		cases, err = testrun.ParseCases(string(data))
		if err != nil {
			return err
		}
	}

	if reqs := lint.Check(string(code)); !lint.OK(reqs) {
		fmt.Println(lint.Render(reqs))
	}

	resp, err := client.TestFunction(cmdContext(cmd), string(code), cases)
	if err != nil {
		fmt.Println(style.ErrorBox.Render("✗ " + api.Message(err)))
		return fmt.Errorf("test run: %w", err)
	}
	if !resp.Success {
		msg := resp.Error
		if msg == "" {
			msg = "test run failed"
		}
		fmt.Println(style.ErrorBox.Render("✗ " + msg))
		return fmt.Errorf("%s", msg)
	}

	report := testrun.Report{Stats: resp.Stats, Results: resp.Results}
	fmt.Println(report.Render())
	if resp.Stats.Failed > 0 {
		return fmt.Errorf("%d of %d test(s) failed", resp.Stats.Failed, resp.Stats.Total)
	}
	fmt.Println(style.SuccessBox.Render(fmt.Sprintf("All %d test(s) passed", resp.Stats.Total)))
	return nil
}
