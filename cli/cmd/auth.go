package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"modpanel/cli/api"
	"modpanel/cli/style"
)

var (
	authUser     string
	authEmail    string
	authPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and keep the session",
	Args:  cobra.NoArgs,
	RunE:  runLogin,
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account",
	Args:  cobra.NoArgs,
	RunE:  runRegister,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the session and forget it",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

func init() {
	for _, c := range []*cobra.Command{loginCmd, registerCmd} {
		c.Flags().StringVarP(&authUser, "username", "u", "", "username")
		c.Flags().StringVarP(&authPassword, "password", "p", "", "password (default $MODPANEL_PASSWORD)")
		c.MarkFlagRequired("username")
	}
	registerCmd.Flags().StringVar(&authEmail, "email", "", "email address")
	rootCmd.AddCommand(loginCmd, registerCmd, logoutCmd)
}

func password() (string, error) {
	if authPassword != "" {
		return authPassword, nil
	}
	if p := os.Getenv("MODPANEL_PASSWORD"); p != "" {
		return p, nil
	}
	return "", fmt.Errorf("no password: pass --password or set MODPANEL_PASSWORD")
}

func runLogin(cmd *cobra.Command, args []string) error {
	pw, err := password()
	if err != nil {
		return err
	}
	res, err := client.Login(cmdContext(cmd), api.Credentials{Username: authUser, Password: pw})
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	if err := saveSession(); err != nil {
		log.Warn().Err(err).Msg("saving session failed")
		fmt.Println(style.Warning.Render("logged in, but the session could not be saved: " + err.Error()))
	}
	fmt.Println(style.SuccessBox.Render("login successful"))
	log.Info().Str("user", authUser).Str("next", res.Next).Msg("logged in")
	return nil
}

func runRegister(cmd *cobra.Command, args []string) error {
	pw, err := password()
	if err != nil {
		return err
	}
	creds := api.Credentials{Username: authUser, Email: authEmail, Password: pw, ConfirmPassword: pw}
	if _, err := client.Register(cmdContext(cmd), creds); err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}
	fmt.Println(style.SuccessBox.Render("registration successful, you can log in now"))
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	err := client.Logout(cmdContext(cmd))
	if cerr := clearSession(); cerr != nil {
		log.Warn().Err(cerr).Msg("clearing session failed")
	}
	if err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}
	fmt.Println(style.SuccessBox.Render("logged out"))
	return nil
}
