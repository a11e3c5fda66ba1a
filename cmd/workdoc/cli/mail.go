package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/workdoc/workdoc/internal/notify"
)

func newMailCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mail",
		Short: "Check outbound mail settings",
	}

	var timeout time.Duration
	verify := &cobra.Command{
		Use:   "verify",
		Short: "Connect to the configured SMTP server and authenticate",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(contextOf(cmd), timeout)
			defer cancel()
			return runMailVerify(ctx, timeout)
		},
	}
	verify.Flags().DurationVar(&timeout, "timeout", 15*time.Second, "Connection timeout")
	cmd.AddCommand(verify)

	return cmd
}

func runMailVerify(ctx context.Context, timeout time.Duration) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client, err := notify.NewSMTPClient(notify.SMTPConfig{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
		Timeout:  timeout,
	})
	if err != nil {
		return err
	}
	if err := notify.Verify(ctx, client); err != nil {
		return err
	}
	fmt.Printf("SMTP server %s:%d accepted the connection\n", cfg.Mail.Host, cfg.Mail.Port)
	if cfg.Mail.ManagerEmail == "" {
		fmt.Println("  warning: mail.manager_email is not set")
	}
	return nil
}
