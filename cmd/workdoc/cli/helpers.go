package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/workdoc/workdoc/internal/config"
	"github.com/workdoc/workdoc/internal/service"
	"github.com/workdoc/workdoc/internal/store"
)

// loadConfig returns the effective configuration from the config file,
// environment, and bound flags.
func loadConfig() (*config.Config, error) {
	return config.Load(viper.GetViper())
}

// newLogger builds the process logger from logging.level and logging.format.
func newLogger(w io.Writer, cfg config.LoggingConfig) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("logging.level: %w", err)
	}
	opts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(cfg.Format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("logging.format: unknown format %q (want text or json)", cfg.Format)
	}
}

// openStore opens the configured database and applies pending migrations.
func openStore(ctx context.Context, cfg *config.Config) (*store.Store, error) {
	st, err := store.NewStore(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return st, nil
}

// openIdentity opens the store and returns the account service on top of it.
// The caller closes the store.
func openIdentity(ctx context.Context) (*service.IdentityService, *store.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := newLogger(os.Stderr, cfg.Logging)
	if err != nil {
		return nil, nil, err
	}
	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return service.NewIdentityService(st, cfg.Auth.BcryptCost, logger), st, nil
}

// versionString returns a display version string.
func versionString() string {
	if appVersion == "" || appVersion == "dev" {
		return "dev"
	}
	if strings.HasPrefix(appVersion, "v") {
		return appVersion
	}
	return "v" + appVersion
}
