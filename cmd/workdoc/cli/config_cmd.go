package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/workdoc/workdoc/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage workdoc configuration",
		Long:  "Initialize a default configuration file or display the current effective configuration.",
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())

	return cmd
}

// ---------- config init ----------

func newConfigInitCmd() *cobra.Command {
	var (
		force bool
		path  string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a default workdoc.yaml configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigInit(cmd.OutOrStdout(), path, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing config file")
	cmd.Flags().StringVarP(&path, "output", "o", "workdoc.yaml", "File to write")

	return cmd
}

const configHeader = `# Workdoc configuration
#
# Every key can be overridden from the environment with the WORKDOC_ prefix,
# e.g. WORKDOC_AUTH_JWT_SECRET or WORKDOC_MAIL_PASSWORD.

`

func runConfigInit(out io.Writer, path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}

	body, err := config.Default().YAML()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, append([]byte(configHeader), body...), 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Fprintf(out, "Created %s\n", path)
	fmt.Fprintln(out, "Set auth.jwt_secret and the mail settings, then run 'workdoc serve'.")
	return nil
}

// ---------- config show ----------

func newConfigShowCmd() *cobra.Command {
	var showSecrets bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the current effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd.OutOrStdout(), showSecrets)
		},
	}

	cmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "Print secrets instead of masking them")

	return cmd
}

func runConfigShow(out io.Writer, showSecrets bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if configFile := viper.ConfigFileUsed(); configFile != "" {
		fmt.Fprintf(out, "# Config file: %s\n", configFile)
	} else {
		fmt.Fprintln(out, "# Config file: (none found, using defaults)")
	}

	shown := *cfg
	if !showSecrets {
		shown = cfg.Redacted()
	}
	body, err := shown.YAML()
	if err != nil {
		return err
	}
	_, err = out.Write(body)
	return err
}
