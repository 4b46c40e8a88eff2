package cmd

import (
	"context"
	"io"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"modpanel/cli/api"
	"modpanel/cli/config"
	"modpanel/cli/logging"
	"modpanel/cli/session"
)

var (
	apiURL   string
	cfgFile  string
	logLevel string

	cfg     *config.Config
	client  *api.Client
	logFile io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "modpanel",
	Short: "Admin panel for a function-hosting backend",
	Long: `modpanel manages a function-hosting backend from the terminal.

Run functions and read their results, test uploaded code against test cases,
and manage users, roles and functions. Run without a subcommand, or with
"panel", for the interactive panel.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("api") {
			cfg.Set(config.BaseURLKey, apiURL)
		}
		if cmd.Flags().Changed("log-level") {
			cfg.Set(config.LogLevelKey, logLevel)
		}

		logFile, err = logging.Setup(cfg.LogFile, cfg.LogLevel)
		if err != nil {
			return err
		}

		client = api.New(cfg.BaseURL)
		client.HTTPClient.Timeout = cfg.Timeout
		if cfg.Keyring {
			cookies, err := session.Load(cfg.BaseURL)
			if err != nil {
				log.Warn().Err(err).Msg("loading session failed")
			}
			client.SetCookies(cookies)
		}
		log.Debug().
			Str("base_url", cfg.BaseURL).
			Str("config", cfg.ConfigFileUsed()).
			Msg("client ready")
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logFile != nil {
			logFile.Close()
		}
	},
	RunE:         runPanel,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "", "backend URL (overrides base_url)")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default modpanel.yaml or ~/.config/modpanel/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
}

func cmdContext(cmd *cobra.Command) context.Context {
	if c := cmd.Context(); c != nil {
		return c
	}
	return context.Background()
}

// saveSession persists the client's cookies when the keyring is enabled.
func saveSession() error {
	if !cfg.Keyring {
		return nil
	}
	return session.Save(cfg.BaseURL, client.Cookies())
}

func clearSession() error {
	if !cfg.Keyring {
		return nil
	}
	return session.Clear(cfg.BaseURL)
}
