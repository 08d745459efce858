package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/database"
)

var identityCmd = &cobra.Command{
	Use:   "identity",
	Short: "Manage enrolled people",
}

var identityCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create an identity",
	Args:  cobra.ExactArgs(1),
	RunE:  runIdentityCreate,
}

var identityListCmd = &cobra.Command{
	Use:   "list",
	Short: "List identities",
	Args:  cobra.NoArgs,
	RunE:  runIdentityList,
}

func init() {
	rootCmd.AddCommand(identityCmd)
	identityCmd.AddCommand(identityCreateCmd)
	identityCmd.AddCommand(identityListCmd)

	identityCreateCmd.Flags().String("email", "", "Email address")
	identityCreateCmd.Flags().String("employee-id", "", "Employee ID")
	identityCreateCmd.Flags().String("department", "", "Department")

	identityListCmd.Flags().String("name", "", "Only identities with this name (ignores case and diacritics)")
	identityListCmd.Flags().Bool("json", false, "Output as JSON")
}

func runIdentityCreate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	identity := &database.Identity{
		Name:       args[0],
		Email:      mustGetString(cmd, "email"),
		EmployeeID: mustGetString(cmd, "employee-id"),
		Department: mustGetString(cmd, "department"),
	}
	if err := a.enrollment.CreateIdentity(ctx, identity); err != nil {
		return fmt.Errorf("creating identity: %w", err)
	}
	fmt.Printf("Created %s (%s)\n", identity.Name, identity.ID)
	return nil
}

func runIdentityList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	var list []database.Identity
	if name := mustGetString(cmd, "name"); name != "" {
		list, err = a.enrollment.FindIdentityByName(ctx, name)
	} else {
		list, err = a.enrollment.ListIdentities(ctx)
	}
	if err != nil {
		return fmt.Errorf("listing identities: %w", err)
	}

	if mustGetBool(cmd, "json") {
		return outputJSON(list)
	}
	if len(list) == 0 {
		fmt.Println("No identities found.")
		return nil
	}

	fmt.Printf("%-36s  %-30s  %-12s  %s\n", "ID", "NAME", "EMPLOYEE", "DEPARTMENT")
	fmt.Println(strings.Repeat("-", 96))
	for _, i := range list {
		fmt.Printf("%-36s  %-30s  %-12s  %s\n", i.ID, i.Name, i.EmployeeID, i.Department)
	}
	fmt.Printf("\n%d identities\n", len(list))
	return nil
}
