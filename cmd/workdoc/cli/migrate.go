package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
		Long:  "Apply pending schema migrations or report the current schema version. 'serve' also migrates on start.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(contextOf(cmd), true)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Print the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(contextOf(cmd), false)
		},
	})

	return cmd
}

func runMigrate(ctx context.Context, up bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	// Opening the store applies pending migrations.
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	if up {
		if err := st.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	version, err := st.SchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	fmt.Printf("Database:       %s\n", st.Driver())
	fmt.Printf("Schema version: %d\n", version)
	return nil
}
