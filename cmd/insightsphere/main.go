package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/insightsphere/insightsphere/internal/auth"
	"github.com/insightsphere/insightsphere/internal/config"
	httpapp "github.com/insightsphere/insightsphere/internal/http"
	"github.com/insightsphere/insightsphere/internal/log"
	"github.com/insightsphere/insightsphere/internal/mail"
	"github.com/insightsphere/insightsphere/internal/media"
	"github.com/insightsphere/insightsphere/internal/metrics"
	"github.com/insightsphere/insightsphere/internal/rate"
	"github.com/insightsphere/insightsphere/internal/store"
	"github.com/insightsphere/insightsphere/internal/store/postgres"
	"github.com/insightsphere/insightsphere/internal/store/sqlite"
)

const version = "0.1.0"

func main() {
	app := &cli.App{
		Name:    "insightsphere",
		Usage:   "blogging platform API server",
		Version: version,
		Action:  runServer,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "start the API server (default)",
				Action: runServer,
			},
			{
				Name:   "migrate",
				Usage:  "apply database migrations and exit",
				Action: runMigrate,
			},
			{
				Name:  "seed-admin",
				Usage: "create the admin account if none exists",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", EnvVars: []string{"ADMIN_EMAIL"}, Required: true},
					&cli.StringFlag{Name: "password", EnvVars: []string{"ADMIN_PASSWORD"}, Required: true},
				},
				Action: runSeedAdmin,
			},
			{
				Name:  "keygen",
				Usage: "print a new token signing key for INSIGHTSPHERE_TOKEN_KEY",
				Action: func(c *cli.Context) error {
					key, err := auth.GenerateKey()
					if err != nil {
						return err
					}
					fmt.Println(key)
					return nil
				},
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Error.Fatalf("%v", err)
	}
}

func openStore(cfg config.Config) (store.Store, error) {
	switch cfg.DBDriver {
	case "sqlite", "":
		return sqlite.Open(cfg.DBPath)
	case "postgres":
		return postgres.Open(cfg.DBPath)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.DBDriver)
	}
}

func newAuthService(cfg config.Config, st store.Store, mailer mail.Mailer) (*auth.Service, error) {
	if cfg.TokenKey == "" {
		log.Warn.Printf("INSIGHTSPHERE_TOKEN_KEY is not set; sessions will not survive a restart")
	}
	signer, err := auth.NewTokenSigner(cfg.TokenKey)
	if err != nil {
		return nil, fmt.Errorf("token key: %w", err)
	}
	return auth.NewService(st, signer, mailer, auth.Options{
		TokenTTL:   cfg.TokenTTL,
		VerifyTTL:  cfg.VerifyTTL,
		ResetTTL:   cfg.ResetTTL,
		BcryptCost: cfg.BcryptCost,
		ClientURL:  cfg.ClientURL,
	}), nil
}

func newMailer(cfg config.Config) mail.Mailer {
	if cfg.SMTP.Host == "" {
		log.Warn.Printf("SMTP_HOST is not set; emails are written to the log")
		return mail.LogMailer{}
	}
	return mail.NewSMTP(mail.SMTPConfig{
		Host: cfg.SMTP.Host,
		Port: cfg.SMTP.Port,
		User: cfg.SMTP.User,
		Pass: cfg.SMTP.Pass,
		From: cfg.SMTP.From,
	})
}

// newLimiter uses redis when configured and a swept in-memory limiter
// otherwise. The returned func releases it and is always safe to call.
func newLimiter(ctx context.Context, cfg config.Config) (rate.Limiter, func(), error) {
	if cfg.RedisAddr != "" {
		client, err := rate.DialRedis(cfg.RedisAddr)
		if err != nil {
			return nil, func() {}, fmt.Errorf("redis: %w", err)
		}
		log.Info.Printf("rate limits stored in redis at %s", cfg.RedisAddr)
		closeRedis := func() {
			if err := client.Close(); err != nil {
				log.Warn.Printf("close redis: %v", err)
			}
		}
		return rate.NewRedis(client, "insightsphere:rl:"), closeRedis, nil
	}
	limiter := rate.NewMemory()
	sweepCtx, stopSweep := context.WithCancel(ctx)
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				limiter.Sweep()
			}
		}
	}()
	return limiter, stopSweep, nil
}

func runServer(c *cli.Context) error {
	cfg := config.Load()

	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer st.Close()

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	mailer := newMailer(cfg)
	authSvc, err := newAuthService(cfg, st, mailer)
	if err != nil {
		return err
	}
	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		if _, err := authSvc.SeedAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
	}

	limiter, closeLimiter, err := newLimiter(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeLimiter()
	stats, err := metrics.New(cfg.StatsdAddr, cfg.Development)
	if err != nil {
		log.Warn.Printf("statsd %s: %v; metrics disabled", cfg.StatsdAddr, err)
	}
	uploads, err := media.NewStore(cfg.UploadDir)
	if err != nil {
		return fmt.Errorf("upload dir: %w", err)
	}

	server, err := httpapp.NewServer(httpapp.Deps{
		Store:   st,
		Auth:    authSvc,
		Limiter: limiter,
		Mailer:  mailer,
		Media:   uploads,
		Stats:   stats,
		Config:  cfg,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info.Printf("insightsphere listening on %s", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errc:
		return fmt.Errorf("server error: %w", err)
	case <-stop:
	}
	log.Info.Println("shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	return httpServer.Shutdown(shutdownCtx)
}

func runMigrate(c *cli.Context) error {
	cfg := config.Load()
	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("migrate %s: %w", cfg.DBDriver, err)
	}
	log.Info.Printf("%s database at %s is up to date", cfg.DBDriver, cfg.DBPath)
	return st.Close()
}

func runSeedAdmin(c *cli.Context) error {
	cfg := config.Load()
	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer st.Close()

	authSvc, err := newAuthService(cfg, st, mail.LogMailer{})
	if err != nil {
		return err
	}
	user, err := authSvc.SeedAdmin(c.Context, c.String("email"), c.String("password"))
	if err != nil {
		return err
	}
	log.Info.Printf("admin account %s (id %d) ready", user.Email, user.ID)
	return nil
}
