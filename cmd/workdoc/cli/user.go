package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/workdoc/workdoc/internal/model"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "user",
		Aliases: []string{"users"},
		Short:   "Manage user accounts",
		Long:    "List accounts and control whether they can sign in.",
	}

	cmd.AddCommand(newUserListCmd())
	cmd.AddCommand(newUserSetActiveCmd("deactivate", "Block an account from signing in", false))
	cmd.AddCommand(newUserSetActiveCmd("activate", "Allow a deactivated account to sign in again", true))

	return cmd
}

// ---------- user list ----------

func newUserListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all user accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUserList(contextOf(cmd), jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runUserList(ctx context.Context, jsonOutput bool) error {
	identity, st, err := openIdentity(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	users, err := identity.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	profiles := make([]model.Profile, len(users))
	for i := range users {
		profiles[i] = users[i].Profile()
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(profiles)
	}

	if len(profiles) == 0 {
		fmt.Println("No users registered. Use 'workdoc admin create' to create the first admin.")
		return nil
	}

	fmt.Printf("%-32s %-24s %-8s %-8s\n", "EMAIL", "NAME", "ROLE", "ACTIVE")
	fmt.Printf("%-32s %-24s %-8s %-8s\n", "-----", "----", "----", "------")
	for _, p := range profiles {
		active := "yes"
		if !p.IsActive {
			active = "no"
		}
		fmt.Printf("%-32s %-24s %-8s %-8s\n", p.Email, p.FullName, p.Role, active)
	}
	return nil
}

// ---------- user deactivate / activate ----------

func newUserSetActiveCmd(use, short string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:     use + " <email>",
		Short:   short,
		Example: fmt.Sprintf("  workdoc user %s intern@example.com", use),
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUserSetActive(contextOf(cmd), args[0], active)
		},
	}
}

func runUserSetActive(ctx context.Context, email string, active bool) error {
	identity, st, err := openIdentity(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	if active {
		err = identity.ActivateUser(ctx, email)
	} else {
		err = identity.DeactivateUser(ctx, email)
	}
	if err != nil {
		return fmt.Errorf("update %s: %w", email, err)
	}

	state := "deactivated"
	if active {
		state = "activated"
	}
	fmt.Printf("User %q %s\n", email, state)
	return nil
}

// contextOf returns the command context, or Background when cobra has none.
func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
