package cmd

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"modpanel/cli/execute"
	"modpanel/cli/selector"
	"modpanel/cli/style"
)

var (
	runArgs  []string
	runFiles []string
	runSave  bool
)

var runCmd = &cobra.Command{
	Use:     "run <function-id>",
	Short:   "Execute a function and print its result",
	Aliases: []string{"exec"},
	Args:    cobra.ExactArgs(1),
	RunE:    runFunction,
}

func init() {
	runCmd.Flags().StringArrayVarP(&runArgs, "arg", "a", nil, "argument as key=value (repeatable)")
	runCmd.Flags().StringArrayVarP(&runFiles, "file", "f", nil, "file to upload (repeatable)")
	runCmd.Flags().BoolVar(&runSave, "save", true, "record the execution in the history")
	rootCmd.AddCommand(runCmd)
}

func runFunction(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	fnArgs, err := parseArgs(runArgs)
	if err != nil {
		return err
	}

	c := cmdContext(cmd)
	info, err := client.Interaction(c, id)
	if err != nil {
		msg, _ := selector.ErrorMessage(err)
		fmt.Println(style.ErrorBox.Render("✗ " + msg))
		return fmt.Errorf("function %d: %w", id, err)
	}
	for _, p := range info.Interaction.Usage {
		if _, ok := fnArgs[p.Name]; !ok {
			fmt.Println(style.Warning.Render(fmt.Sprintf("  missing argument %s (%s), sending empty", p.Name, p.Prompt)))
			fnArgs[p.Name] = ""
		}
	}

	out, raw := execute.Run(c, client, id, fnArgs, runFiles)

	fmt.Println()
	fmt.Printf("  %s %s\n", style.Key.Render("Function"), style.Bold.Render(info.Name))
	if out.Success {
		fmt.Printf("  %s %s\n\n", style.Key.Render("Status"), style.Healthy.Render("succeeded"))
		fmt.Println(out.Result.Render(true))
	} else {
		fmt.Printf("  %s %s\n\n", style.Key.Render("Status"), style.Unhealthy.Render("failed"))
		fmt.Println(style.ErrorBox.Render("Execution error: " + out.Error))
	}

	if runSave {
		rec := execute.NewRecord(id, fnArgs, out, raw)
		if err := client.RecordExecution(c, rec); err != nil {
			log.Warn().Err(err).Int("function_id", id).Msg("save execution failed")
		}
	}
	if !out.Success {
		return fmt.Errorf("execution failed")
	}
	return nil
}
