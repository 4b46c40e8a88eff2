package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"modpanel/cli/api"
	"modpanel/cli/style"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream panel events (logins, executions, function changes)",
	Args:  cobra.NoArgs,
	RunE:  runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Println(style.DimText.Render("Watching " + client.WebSocketURL() + " (ctrl+c to stop)"))
	err := client.Watch(ctx, func(evt api.Event) {
		fmt.Printf("  %s %s %s\n",
			style.DimText.Render(time.Now().Format("15:04:05")),
			eventIcon(evt),
			eventMessage(evt),
		)
	})
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	return nil
}

func eventIcon(evt api.Event) string {
	switch evt.Type {
	case "function.executed":
		ok, _ := evt.Payload["success"].(bool)
		return style.StatusDot(ok)
	case "function.changed":
		return style.Warning.Render("~")
	case "user.login":
		return style.Healthy.Render("+")
	case "user.logout":
		return style.DimText.Render("-")
	}
	return style.DimText.Render("·")
}

func eventMessage(evt api.Event) string {
	p := evt.Payload
	switch evt.Type {
	case "function.executed":
		return fmt.Sprintf("%s %v executed", style.Bold.Render(fmt.Sprint(p["name"])), p["function"])
	case "function.changed":
		return fmt.Sprintf("function %v %v", p["function"], p["change"])
	case "user.login":
		return fmt.Sprintf("%s logged in", style.Bold.Render(fmt.Sprint(p["username"])))
	case "user.logout":
		return fmt.Sprintf("user %v logged out", p["id"])
	}
	return evt.Type
}
