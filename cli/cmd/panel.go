package cmd

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"modpanel/cli/panel"
)

var panelTab string

var panelCmd = &cobra.Command{
	Use:   "panel",
	Short: "Open the interactive panel",
	Args:  cobra.NoArgs,
	RunE:  runPanel,
}

func init() {
	panelCmd.Flags().StringVar(&panelTab, "tab", "execute", "start tab: execute, test, users, roles, functions, executions, login")
	rootCmd.AddCommand(panelCmd)
}

func runPanel(cmd *cobra.Command, args []string) error {
	start, err := parseTab(panelTab)
	if err != nil {
		return err
	}
	if len(client.Cookies()) == 0 && !cmd.Flags().Changed("tab") {
		start = panel.TabLogin
	}

	m := panel.New(cmdContext(cmd), client, panel.Options{
		NotifyDelay:    cfg.NotifyDelay,
		StatusInterval: cfg.StatusInterval,
		StartTab:       start,
		OnLogin:        saveSession,
		OnLogout:       clearSession,
	})
	log.Info().Str("tab", start.String()).Msg("panel started")
	_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmdContext(cmd))).Run()
	return err
}
