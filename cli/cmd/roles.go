package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"modpanel/cli/api"
	"modpanel/cli/style"
)

var (
	roleName        string
	roleDescription string
	roleAdmin       bool
	roleFunctions   []int
)

var rolesCmd = &cobra.Command{
	Use:   "roles",
	Short: "List roles",
	Args:  cobra.NoArgs,
	RunE:  runRoles,
}

var roleCmd = &cobra.Command{
	Use:   "role",
	Short: "Show, create, update or delete a role",
}

var roleShowCmd = &cobra.Command{
	Use:   "show <role-id>",
	Short: "Show a role and its functions",
	Args:  cobra.ExactArgs(1),
	RunE:  runRoleShow,
}

var roleSaveCmd = &cobra.Command{
	Use:   "save [role-id]",
	Short: "Create a role, or update it when an id is given",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRoleSave,
}

var roleDeleteCmd = &cobra.Command{
	Use:   "delete <role-id>",
	Short: "Delete a role",
	Args:  cobra.ExactArgs(1),
	RunE:  runRoleDelete,
}

func init() {
	roleSaveCmd.Flags().StringVar(&roleName, "name", "", "role name (required)")
	roleSaveCmd.Flags().StringVar(&roleDescription, "description", "", "role description")
	roleSaveCmd.Flags().BoolVar(&roleAdmin, "admin", false, "grant admin rights")
	roleSaveCmd.Flags().IntSliceVar(&roleFunctions, "function", nil, "function id the role may run (repeatable)")
	roleCmd.AddCommand(roleShowCmd, roleSaveCmd, roleDeleteCmd)
	rootCmd.AddCommand(rolesCmd, roleCmd)
}

func runRoles(cmd *cobra.Command, args []string) error {
	roles, err := client.Roles(cmdContext(cmd))
	if err != nil {
		return fmt.Errorf("failed to fetch roles: %w", err)
	}
	if len(roles) == 0 {
		fmt.Println(style.DimText.Render("No roles."))
		return nil
	}
	fmt.Println(style.TableHeader.Render(fmt.Sprintf("  %-4s %-20s %s", "ID", "ROLE", "DESCRIPTION")))
	for _, r := range roles {
		name := style.RoleStyle(r.IsAdmin, r.IsModerator).Render(padRight(r.Name, 20))
		fmt.Printf("  %-4d %s %s\n", r.ID, name, style.DimText.Render(r.Description))
	}
	return nil
}

func runRoleShow(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	r, err := client.Role(cmdContext(cmd), id)
	if err != nil {
		return fmt.Errorf("failed to fetch role %d: %w", id, err)
	}
	admin := "no"
	if r.IsAdmin {
		admin = "yes"
	}
	fmt.Printf("\n  %s %s\n", style.Key.Render("Role"), style.Bold.Render(r.Name))
	fmt.Printf("  %s %s\n", style.Key.Render("ID"), style.Val.Render(strconv.Itoa(r.ID)))
	fmt.Printf("  %s %s\n", style.Key.Render("Admin"), style.Val.Render(admin))
	if r.Description != "" {
		fmt.Printf("  %s %s\n", style.Key.Render("Description"), style.Val.Render(r.Description))
	}
	fmt.Printf("\n  %s\n", style.DimText.Render("Functions:"))
	if len(r.Functions) == 0 {
		fmt.Printf("    %s\n", style.DimText.Render("none"))
	}
	for _, f := range r.Functions {
		if f.Approved {
			fmt.Printf("    %s %s\n", style.StepDone.Render("✓"), f.Name)
		} else {
			fmt.Printf("    %s\n", style.DimText.Render("✗ "+f.Name))
		}
	}
	fmt.Println()
	return nil
}

func runRoleSave(cmd *cobra.Command, args []string) error {
	if roleName == "" {
		return fmt.Errorf("enter a role name (--name)")
	}
	id := 0
	if len(args) == 1 {
		var err error
		if id, err = parseID(args[0]); err != nil {
			return err
		}
	}

	in := api.RoleInput{
		Name:        roleName,
		IsAdmin:     roleAdmin,
		Description: roleDescription,
		Functions:   []string{},
	}
	seen := map[int]bool{}
	for _, f := range roleFunctions {
		if !seen[f] {
			seen[f] = true
			in.Functions = append(in.Functions, strconv.Itoa(f))
		}
	}

	if err := client.SaveRole(cmdContext(cmd), id, in); err != nil {
		return fmt.Errorf("save failed: %w", err)
	}
	fmt.Println(style.SuccessBox.Render("role saved"))
	return nil
}

func runRoleDelete(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	if err := client.DeleteRole(cmdContext(cmd), id); err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}
	fmt.Println(style.SuccessBox.Render("role deleted"))
	return nil
}
