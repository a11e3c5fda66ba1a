package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/workdoc/workdoc/internal/service"
)

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage the admin account",
		Long:  "Seed the first administrator, who reviews submissions and manages accounts through the admin API.",
	}

	cmd.AddCommand(newAdminCreateCmd())

	return cmd
}

// ---------- admin create ----------

func newAdminCreateCmd() *cobra.Command {
	var (
		email     string
		password  string
		firstName string
		lastName  string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create the first admin user",
		Long: `Create the first admin user. This fails once any admin exists; further admins
cannot be created through workdoc.`,
		Example: `  workdoc admin create --email admin@example.com --first-name Ada --last-name Lovelace --password secret123
  workdoc admin create --email admin@example.com --first-name Ada --last-name Lovelace  # prompts for password`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdminCreate(contextOf(cmd), email, password, firstName, lastName)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Admin email address (required)")
	cmd.Flags().StringVar(&password, "password", "", "Admin password (prompted if omitted)")
	cmd.Flags().StringVar(&firstName, "first-name", "", "Admin first name (required)")
	cmd.Flags().StringVar(&lastName, "last-name", "", "Admin last name (required)")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("first-name")
	cmd.MarkFlagRequired("last-name")

	return cmd
}

func runAdminCreate(ctx context.Context, email, password, firstName, lastName string) error {
	if !strings.Contains(email, "@") {
		return fmt.Errorf("invalid email address: %q", email)
	}

	// Prompt for password if not provided
	if password == "" {
		fmt.Print("Password: ")
		pwBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Println()
		password = string(pwBytes)

		fmt.Print("Confirm password: ")
		confirmBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err != nil {
			return fmt.Errorf("failed to read confirmation: %w", err)
		}
		fmt.Println()

		if password != string(confirmBytes) {
			return fmt.Errorf("passwords do not match")
		}
	}

	identity, st, err := openIdentity(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	u, err := identity.CreateFirstAdmin(ctx, service.RegisterInput{
		Email:     email,
		Password:  password,
		FirstName: firstName,
		LastName:  lastName,
	})
	if err != nil {
		return fmt.Errorf("create admin: %w", err)
	}

	fmt.Printf("Created admin user %q (id %s)\n", u.Email, u.ID)
	return nil
}
