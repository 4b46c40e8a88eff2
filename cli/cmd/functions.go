package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"modpanel/cli/api"
	"modpanel/cli/lint"
	"modpanel/cli/style"
)

var (
	fnName        string
	fnDescription string
	fnType        string
	fnCode        string
	fnCases       string
	fnRevoke      bool
)

var functionsCmd = &cobra.Command{
	Use:     "functions",
	Short:   "List functions",
	Aliases: []string{"fns"},
	Args:    cobra.NoArgs,
	RunE:    runFunctions,
}

var functionCmd = &cobra.Command{
	Use:     "function",
	Short:   "Create, edit, approve or delete a function",
	Aliases: []string{"fn"},
}

var functionCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Upload a new function",
	Args:  cobra.NoArgs,
	RunE:  runFunctionCreate,
}

var functionEditCmd = &cobra.Command{
	Use:   "edit <function-id>",
	Short: "Replace a function's code and description",
	Args:  cobra.ExactArgs(1),
	RunE:  runFunctionEdit,
}

var functionToggleCmd = &cobra.Command{
	Use:   "approve <function-id>",
	Short: "Approve a function, or revoke approval with --revoke",
	Args:  cobra.ExactArgs(1),
	RunE:  runFunctionToggle,
}

var functionDeleteCmd = &cobra.Command{
	Use:   "delete <function-id>",
	Short: "Delete a function",
	Args:  cobra.ExactArgs(1),
	RunE:  runFunctionDelete,
}

func init() {
	functionCreateCmd.Flags().StringVar(&fnName, "name", "", "function name")
	functionCreateCmd.Flags().StringVar(&fnDescription, "description", "", "description")
	functionCreateCmd.Flags().StringVar(&fnType, "type", "", "function type: text/code, image or link")
	functionCreateCmd.Flags().StringVar(&fnCode, "code", "", "function code file (required)")
	functionCreateCmd.Flags().StringVar(&fnCases, "cases", "", "test cases file")
	functionCreateCmd.MarkFlagRequired("code")

	functionEditCmd.Flags().StringVar(&fnCode, "code", "", "new code file (required)")
	functionEditCmd.Flags().StringVar(&fnDescription, "description", "", "new description")
	functionEditCmd.MarkFlagRequired("code")

	functionToggleCmd.Flags().BoolVar(&fnRevoke, "revoke", false, "revoke approval instead")

	functionCmd.AddCommand(functionCreateCmd, functionEditCmd, functionToggleCmd, functionDeleteCmd)
	rootCmd.AddCommand(functionsCmd, functionCmd)
}

func runFunctions(cmd *cobra.Command, args []string) error {
	fns, err := client.Functions(cmdContext(cmd))
	if err != nil {
		return fmt.Errorf("failed to fetch functions: %w", err)
	}
	if len(fns) == 0 {
		fmt.Println(style.DimText.Render("No functions."))
		return nil
	}
	fmt.Println(style.TableHeader.Render(fmt.Sprintf("  %-4s %-24s %-10s %-10s %s", "ID", "FUNCTION", "TYPE", "STATUS", "AUTHOR")))
	for _, f := range fns {
		status := style.Warning.Render(padRight("pending", 10))
		if f.Approved {
			status = style.Healthy.Render(padRight("approved", 10))
		}
		fmt.Printf("  %-4d %s %s %s %s\n", f.ID, style.Bold.Render(padRight(f.Name, 24)), padRight(f.FunctionType, 10), status, style.DimText.Render(f.Author))
	}
	return nil
}

// readCode loads a code file and prints the requirement check when it fails.
func readCode(path string) ([]byte, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read code: %w", err)
	}
	if reqs := lint.Check(string(code)); !lint.OK(reqs) {
		fmt.Println(lint.Render(reqs))
	}
	return code, nil
}

func runFunctionCreate(cmd *cobra.Command, args []string) error {
	code, err := readCode(fnCode)
	if err != nil {
		return err
	}
	in := api.FunctionInput{
		Name:         fnName,
		Description:  fnDescription,
		FunctionType: fnType,
		File:         &api.UploadFile{Name: filepath.Base(fnCode), Data: code},
	}
	if fnCases != "" {
		cases, err := os.ReadFile(fnCases)
		if err != nil {
			return fmt.Errorf("read test cases: %w", err)
		}
		in.TestCases = string(cases)
	}

	ack, err := client.CreateFunction(cmdContext(cmd), in)
	if err != nil {
		return fmt.Errorf("save failed: %w", err)
	}
	msg := "function saved"
	if ack.ID != 0 {
		msg = fmt.Sprintf("function %d saved", ack.ID)
	}
	fmt.Println(style.SuccessBox.Render(msg))
	return nil
}

func runFunctionEdit(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	code, err := readCode(fnCode)
	if err != nil {
		return err
	}
	if err := client.UpdateFunction(cmdContext(cmd), id, string(code), fnDescription); err != nil {
		return fmt.Errorf("save failed: %w", err)
	}
	fmt.Println(style.SuccessBox.Render("function saved"))
	return nil
}

func runFunctionToggle(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	res, err := client.ToggleFunction(cmdContext(cmd), id, !fnRevoke)
	if err != nil {
		return fmt.Errorf("toggle failed: %w", err)
	}
	state := "pending"
	if res.NewStatus {
		state = "approved"
	}
	fmt.Println(style.SuccessBox.Render(fmt.Sprintf("function %d is %s", id, state)))
	return nil
}

func runFunctionDelete(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	ack, err := client.DeleteFunction(cmdContext(cmd), id)
	if err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}
	msg := ack.Message
	if msg == "" {
		msg = "function deleted"
	}
	fmt.Println(style.SuccessBox.Render(msg))
	return nil
}
