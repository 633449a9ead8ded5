package main

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
	"github.com/spf13/cobra"

	"github.com/polyclinic/scheduler/internal/auth"
	"github.com/polyclinic/scheduler/internal/clinic"
	"github.com/polyclinic/scheduler/internal/config"
	"github.com/polyclinic/scheduler/internal/mail"
	"github.com/polyclinic/scheduler/internal/obs"
	"github.com/polyclinic/scheduler/internal/store/pg"
)

const pingRetries = 5

// loadConfig merges all configuration sources and installs the shared logger.
func loadConfig(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return config.Config{}, nil, err
	}
	logger := obs.Setup(serviceName, obs.Version, cfg.Log.Level, cmd.ErrOrStderr())
	obs.SetLogger(logger)
	return cfg, logger, nil
}

// openPostgres connects and waits for the database to answer, retrying
// with exponential backoff while it starts up.
func openPostgres(ctx context.Context, dsn string) (*pg.Store, error) {
	store, err := pg.Open(dsn)
	if err != nil {
		return nil, err
	}
	backoff := retry.WithMaxRetries(pingRetries, retry.NewExponential(200*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := store.Ping(pingCtx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		_ = store.Close()
		return nil, oops.Code("DB_UNAVAILABLE").Wrap(err)
	}
	return store, nil
}

// openStore returns the configured clinic store, the database handle for
// readiness checks (nil in memory mode) and a close function.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (clinic.Store, *sql.DB, func() error, error) {
	if cfg.Database.Memory {
		logger.WarnContext(ctx, "using in-memory store; data is lost on restart")
		return clinic.NewInMemory(), nil, func() error { return nil }, nil
	}
	store, err := openPostgres(ctx, cfg.Database.DSN)
	if err != nil {
		return nil, nil, nil, err
	}
	return store, store.DB(), store.Close, nil
}

func newMailer(cfg config.Config, logger *slog.Logger) (auth.Mailer, error) {
	return mail.New(mail.Config{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
		From:     cfg.Mail.From,
		TLS:      cfg.Mail.TLS,
	}, logger)
}

// newServices builds the auth core and the clinic service over one store.
func newServices(cfg config.Config, store clinic.Store, mailer auth.Mailer, logger *slog.Logger) (*auth.Service, *clinic.Service, error) {
	codec, err := auth.NewTokenCodec(cfg.Auth.Secret,
		auth.WithAlgorithm(cfg.Auth.Algorithm),
		auth.WithDefaultTTL(cfg.Auth.AccessTTL()),
	)
	if err != nil {
		return nil, nil, oops.Code("CONFIG_INVALID").With("key", "auth").Wrap(err)
	}
	hasher := auth.NewBcryptHasher(cfg.Auth.BcryptCost)
	authn := auth.NewService(store, codec,
		auth.WithHasher(hasher),
		auth.WithMailer(mailer),
		auth.WithLogger(logger),
		auth.WithAccessTTL(cfg.Auth.AccessTTL()),
		auth.WithResetTTL(cfg.Auth.ResetTTL()),
		auth.WithResetURL(cfg.Auth.ResetURL),
	)
	return authn, clinic.NewService(store, hasher), nil
}

// perWindow allows n attempts per window, refilled evenly. n <= 0 disables it.
func perWindow(n int, window time.Duration) *auth.AttemptLimiter {
	if n <= 0 {
		return auth.NewAttemptLimiter(0, window)
	}
	return auth.NewAttemptLimiter(n, window/time.Duration(n))
}
