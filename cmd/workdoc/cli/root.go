package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/workdoc/workdoc/internal/config"
)

var (
	cfgFile    string
	appVersion string // set in Execute, reported by serve and the OpenAPI document
)

// Execute creates the root command tree and runs it.
func Execute(version, commit, date string) error {
	appVersion = version
	rootCmd := newRootCmd(version, commit, date)
	return rootCmd.Execute()
}

func newRootCmd(version, commit, date string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workdoc",
		Short: "Turn daily intern work summaries into PDF reports",
		Long: `Workdoc: interns submit a daily work summary, workdoc renders it as a PDF report,
stores it, and mails it to their manager. Admins review every submission.

Configuration is read from ./workdoc.yaml (or --config) and WORKDOC_* environment
variables, e.g. WORKDOC_AUTH_JWT_SECRET.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./workdoc.yaml)")

	cobra.OnInitialize(initConfig)

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newVersionCmd(version, commit, date))
	cmd.AddCommand(newAdminCmd())
	cmd.AddCommand(newUserCmd())
	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newOpenAPICmd())
	cmd.AddCommand(newMCPCmd())
	cmd.AddCommand(newMailCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("workdoc")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}

	config.ConfigureEnv(viper.GetViper())
	viper.ReadInConfig() // Ignore error - config file is optional
}
