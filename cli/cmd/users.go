package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"modpanel/cli/admin"
	"modpanel/cli/api"
	"modpanel/cli/style"
)

var (
	usersSearch string
	userRoleIDs []int
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "List users",
	Args:  cobra.NoArgs,
	RunE:  runUsers,
}

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage a single user",
}

var userRolesCmd = &cobra.Command{
	Use:   "roles <user-id>",
	Short: "Show a user's roles, or replace them with --role",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserRoles,
}

var statusCmd = &cobra.Command{
	Use:     "status",
	Short:   "Show which users are online",
	Aliases: []string{"s"},
	Args:    cobra.NoArgs,
	RunE:    runStatus,
}

func init() {
	usersCmd.Flags().StringVarP(&usersSearch, "search", "s", "", "filter by username, email or role name")
	userRolesCmd.Flags().IntSliceVar(&userRoleIDs, "role", nil, "role id to assign (repeatable, replaces all roles)")
	userCmd.AddCommand(userRolesCmd)
	rootCmd.AddCommand(usersCmd, userCmd, statusCmd)
}

func runUsers(cmd *cobra.Command, args []string) error {
	users, err := client.Users(cmdContext(cmd))
	if err != nil {
		return fmt.Errorf("failed to fetch users: %w", err)
	}

	var shown []api.UserSummary
	for _, u := range users {
		if admin.MatchUser(u, usersSearch) {
			shown = append(shown, u)
		}
	}
	if len(shown) == 0 {
		fmt.Println(style.DimText.Render("No users match."))
		return nil
	}

	fmt.Println(style.Banner.Render("modpanel users") + style.Subtitle.Render(fmt.Sprintf("  %d user(s)", len(shown))))
	fmt.Println()
	header := fmt.Sprintf("  %-2s  %-4s %-20s %-28s %-20s %s", "", "ID", "USER", "EMAIL", "REGISTERED", "ROLES")
	fmt.Println(style.TableHeader.Render(header))
	for _, u := range shown {
		var roles []string
		for _, r := range u.Roles {
			roles = append(roles, style.RoleBadge.Render(r.Name))
		}
		fmt.Printf("  %s  %-4d %s %s %s %s\n",
			style.StatusDot(u.Status),
			u.ID,
			style.Bold.Render(padRight(u.Username, 20)),
			padRight(u.Email, 28),
			style.DimText.Render(padRight(u.RegisteredAt, 20)),
			strings.Join(roles, " "),
		)
	}
	fmt.Println()
	return nil
}

func runUserRoles(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	c := cmdContext(cmd)

	if cmd.Flags().Changed("role") {
		seen := map[int]bool{}
		var ids []int
		for _, r := range userRoleIDs {
			if !seen[r] {
				seen[r] = true
				ids = append(ids, r)
			}
		}
		ack, err := client.UpdateUserRoles(c, id, ids)
		if err != nil {
			return fmt.Errorf("update failed: %w", err)
		}
		msg := ack.Message
		if msg == "" {
			msg = "user roles updated"
		}
		fmt.Println(style.SuccessBox.Render(msg))
	}

	user, err := client.User(c, id)
	if err != nil {
		return fmt.Errorf("failed to fetch user %d: %w", id, err)
	}
	roles, err := client.Roles(c)
	if err != nil {
		return fmt.Errorf("failed to fetch roles: %w", err)
	}
	byID := make(map[int]api.Role, len(roles))
	for _, r := range roles {
		byID[r.ID] = r
	}

	fmt.Printf("\n  %s %s\n", style.Key.Render("User"), style.Bold.Render(user.Name))
	fmt.Printf("  %s %s\n\n", style.Key.Render("ID"), style.Val.Render(strconv.Itoa(user.ID)))
	for _, rid := range user.Roles {
		r, ok := byID[rid]
		if !ok {
			fmt.Printf("    %s\n", style.DimText.Render(fmt.Sprintf("role %d", rid)))
			continue
		}
		line := style.RoleStyle(r.IsAdmin, r.IsModerator).Render(r.Name)
		switch {
		case r.IsAdmin:
			line += " (Admin)"
		case r.IsModerator:
			line += " (Moderator)"
		}
		fmt.Printf("    %s\n", line)
	}
	fmt.Println()
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	c := cmdContext(cmd)
	statuses, err := client.CheckStatus(c)
	if err != nil {
		fmt.Println(style.ErrorBox.Render("Cannot reach backend at " + cfg.BaseURL))
		return err
	}
	users, err := client.Users(c)
	if err != nil {
		return fmt.Errorf("failed to fetch users: %w", err)
	}
	names := make(map[int]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Username
	}

	online := 0
	for _, s := range statuses {
		name := names[s.ID]
		if name == "" {
			name = fmt.Sprintf("user %d", s.ID)
		}
		label := style.DimText.Render("offline")
		if s.Status {
			label = style.Healthy.Render("online")
			online++
		}
		fmt.Printf("  %s  %s %s\n", style.StatusDot(s.Status), style.Bold.Render(padRight(name, 20)), label)
	}
	fmt.Println()
	fmt.Println(style.Subtitle.Render(fmt.Sprintf("%d of %d online", online, len(statuses))))
	return nil
}
