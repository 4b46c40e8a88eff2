package cmd

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"modpanel/cli/style"
)

var Version = "dev"

var versionShort bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		if versionShort {
			fmt.Println(Version)
			return
		}
		logo := lipgloss.NewStyle().
			Bold(true).
			Foreground(style.Primary).
			Render("modpanel")

		fmt.Println(logo)
		fmt.Println()
		fmt.Printf("  %s %s\n", style.Key.Render("Version"), style.Val.Render(Version))
		fmt.Printf("  %s %s\n", style.Key.Render("API"), style.Val.Render(cfg.BaseURL))
		if f := cfg.ConfigFileUsed(); f != "" {
			fmt.Printf("  %s %s\n", style.Key.Render("Config"), style.Val.Render(f))
		}
		fmt.Printf("  %s %s\n", style.Key.Render("Log"), style.Val.Render(cfg.LogFile))
		keyring := style.DimText.Render("off")
		if cfg.Keyring {
			keyring = style.Healthy.Render("on")
		}
		fmt.Printf("  %s %s\n", style.Key.Render("Keyring"), keyring)
		fmt.Println()
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "print only the version")
	rootCmd.AddCommand(versionCmd)
}
