package cli

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/workdoc/workdoc/internal/blob"
	"github.com/workdoc/workdoc/internal/config"
	"github.com/workdoc/workdoc/internal/events"
	"github.com/workdoc/workdoc/internal/metrics"
	"github.com/workdoc/workdoc/internal/notify"
	"github.com/workdoc/workdoc/internal/render"
	"github.com/workdoc/workdoc/internal/server"
	"github.com/workdoc/workdoc/internal/service"
)

const banner = `
__      _____  ___ _  _____   ___   ___
\ \    / / _ \| _ \ |/ /   \ / _ \ / __|
 \ \/\/ / (_) |   / ' <| |) | (_) | (__
  \_/\_/ \___/|_|_\_|\_\___/ \___/ \___|
`

func newServeCmd() *cobra.Command {
	var (
		port int
		host string
		dev  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the workdoc API server",
		Long:  "Start the HTTP server that accepts submissions, renders reports, and serves the admin API.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(dev)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 5000, "HTTP listen port")
	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "HTTP listen host")
	cmd.Flags().BoolVar(&dev, "dev", false, "Enable development mode (debug logging)")

	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))

	return cmd
}

func runServe(dev bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if dev {
		cfg.Logging.Level = "debug"
	}
	logger, err := newLogger(os.Stderr, cfg.Logging)
	if err != nil {
		return err
	}

	fmt.Print(banner)
	fmt.Println()

	ctx := context.Background()

	// 1. Database
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	version, _ := st.SchemaVersion(ctx)
	logger.Info("store ready", "driver", st.Driver(), "schema_version", version)

	// 2. Document and screenshot storage
	docs, uploads, err := openBlobs(ctx, cfg)
	if err != nil {
		st.Close()
		return err
	}
	logger.Info("blob storage ready", "backend", cfg.Storage.Backend)

	// 3. Admin event broker
	broker, err := openBroker(ctx, cfg, logger)
	if err != nil {
		st.Close()
		return err
	}
	logger.Info("event broker ready", "backend", cfg.Events.Backend)
	closeAll := func() {
		broker.Close()
		st.Close()
	}

	// 4. Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	// 5. Mail
	var mailer *notify.Mailer
	client, err := notify.NewSMTPClient(notify.SMTPConfig{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
		Timeout:  30 * time.Second,
	})
	if err != nil {
		logger.Warn("mail disabled", "error", err)
	} else {
		mailer = notify.NewMailer(client, docs, cfg.Mail.From, cfg.Mail.AppURL)
	}
	if cfg.Mail.ManagerEmail == "" {
		logger.Warn("mail.manager_email is not set; send-email requests must name a recipient")
	}

	// 6. Services
	secret := cfg.Auth.JWTSecret
	if secret == "" {
		secret, err = randomSecret()
		if err != nil {
			closeAll()
			return err
		}
		logger.Warn("auth.jwt_secret is not set; using a random secret, tokens will not survive a restart")
	}
	ttl, _ := cfg.TokenTTL()
	tokens := service.NewAuthService(secret, ttl)
	identity := service.NewIdentityService(st, cfg.Auth.BcryptCost, logger)
	submissions := service.NewSubmissionService(service.SubmissionDeps{
		Store: st,
		Renderer: &render.Renderer{
			LogoPath: cfg.Render.LogoPath,
			Compress: cfg.Render.Compress,
			Location: cfg.Location(),
		},
		Documents:    docs,
		Uploads:      uploads,
		Mailer:       mailer,
		Events:       broker,
		Metrics:      collector,
		Logger:       logger,
		ManagerEmail: cfg.Mail.ManagerEmail,
		BaseURL:      cfg.Server.BaseURL,
	})

	hasAdmin, err := st.HasAnyAdmin(ctx)
	if err != nil {
		logger.Warn("failed to check for admin", "error", err)
	}
	if !hasAdmin {
		logger.Warn("no admin account found - call /api/auth/create-first-admin or run: workdoc admin create")
	}

	// 7. HTTP server
	srvCfg, err := serverConfig(cfg)
	if err != nil {
		closeAll()
		return err
	}
	srv := server.New(srvCfg, server.Deps{
		Store:       st,
		Identity:    identity,
		Tokens:      tokens,
		Submissions: submissions,
		Events:      broker,
		Metrics:     collector,
		Gatherer:    reg,
	}, logger)

	fmt.Printf("→ Workdoc %s\n", versionString())
	fmt.Printf("→ Listening on http://%s\n", cfg.Addr())
	fmt.Printf("→ OpenAPI:    http://%s/openapi.json\n", cfg.Addr())
	fmt.Printf("→ Health:     http://%s/healthz\n", cfg.Addr())
	fmt.Printf("→ Metrics:    http://%s/metrics\n", cfg.Addr())
	fmt.Println()

	return srv.ListenAndServe()
}

// serverConfig maps the file configuration onto the HTTP server settings.
func serverConfig(cfg *config.Config) (server.Config, error) {
	shutdown, err := cfg.ShutdownTimeout()
	if err != nil {
		return server.Config{}, err
	}
	maxBody, err := cfg.MaxBodyBytes()
	if err != nil {
		return server.Config{}, err
	}
	return server.Config{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		BaseURL:         cfg.Server.BaseURL,
		Version:         versionString(),
		ShutdownTimeout: shutdown,
		CORSOrigins:     cfg.Server.CORSOrigins,
		MaxBodySize:     maxBody,
		RateLimit:       cfg.Server.RateLimit,
	}, nil
}

// openBlobs returns the document and upload stores for the configured backend.
func openBlobs(ctx context.Context, cfg *config.Config) (docs, uploads blob.Store, err error) {
	switch cfg.Storage.Backend {
	case "s3":
		opts := blob.S3Options{
			Bucket:    cfg.Storage.S3.Bucket,
			Region:    cfg.Storage.S3.Region,
			Endpoint:  cfg.Storage.S3.Endpoint,
			AccessKey: cfg.Storage.S3.AccessKey,
			SecretKey: cfg.Storage.S3.SecretKey,
		}
		opts.Prefix = path.Join(cfg.Storage.S3.Prefix, "documents") + "/"
		d, err := blob.NewS3(ctx, opts)
		if err != nil {
			return nil, nil, fmt.Errorf("open document bucket: %w", err)
		}
		opts.Prefix = path.Join(cfg.Storage.S3.Prefix, "uploads") + "/"
		u, err := blob.NewS3(ctx, opts)
		if err != nil {
			return nil, nil, fmt.Errorf("open upload bucket: %w", err)
		}
		return d, u, nil
	default:
		d, err := blob.NewLocal(cfg.Storage.DocumentsDir)
		if err != nil {
			return nil, nil, fmt.Errorf("open documents dir: %w", err)
		}
		u, err := blob.NewLocal(cfg.Storage.UploadsDir)
		if err != nil {
			return nil, nil, fmt.Errorf("open uploads dir: %w", err)
		}
		return d, u, nil
	}
}

// openBroker returns the admin event broker for the configured backend.
func openBroker(ctx context.Context, cfg *config.Config, logger *slog.Logger) (events.Broker, error) {
	if cfg.Events.Backend == "redis" {
		b, err := events.NewRedisBroker(ctx, cfg.Events.RedisURL, cfg.Events.Channel, cfg.Events.QueueSize, logger)
		if err != nil {
			return nil, fmt.Errorf("open redis broker: %w", err)
		}
		return b, nil
	}
	return events.NewRegistry(cfg.Events.QueueSize), nil
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate jwt secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}
