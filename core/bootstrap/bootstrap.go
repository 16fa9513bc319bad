package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"log/slog"

	coreconfig "github.com/m3rciful/wordbot/core/config"
	coredatabase "github.com/m3rciful/wordbot/core/database"
	"github.com/m3rciful/wordbot/core/logger"
)

const (
	tokenRetryAttempts = 5
	tokenRetryBackoff  = 2 * time.Second
)

// TokenIssuer acquires the bot-level word service token. Implemented by the
// word service client; pulled in as an interface to keep the bootstrap
// pipeline free of domain imports.
type TokenIssuer interface {
	BotToken(ctx context.Context, email, password string) (string, error)
}

// Options control the generic bootstrap pipeline.
type Options struct {
	Config   *coreconfig.Config
	Database coredatabase.Config

	LoggerInit func(*coreconfig.Config) error
	Connect    func(coredatabase.Config) (*sqlx.DB, error)
	Migrate    func(coredatabase.Config) error

	// Issuer, when set, is used to acquire the bot token with startup-only
	// backoff retries. Mid-session token refresh is out of scope.
	Issuer TokenIssuer
}

// Result exposes infrastructure initialized by the bootstrap pipeline.
type Result struct {
	DB *sqlx.DB
	// BotToken is the word service bot-level token, read-only after startup.
	BotToken string
}

// Run initializes the logger, connects to the database, applies migrations,
// and acquires the word service bot token.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	connect := opts.Connect
	if connect == nil {
		connect = coredatabase.Connect
	}
	db, err := connect(opts.Database)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
	}

	migrate := opts.Migrate
	if migrate == nil {
		migrate = coredatabase.RunMigrations
	}
	if err := migrate(opts.Database); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
	}

	res := &Result{DB: db}

	if opts.Issuer != nil {
		token, err := acquireBotToken(ctx, opts.Issuer, opts.Config.WordService)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("bootstrap: bot token acquisition failed: %w", err)
		}
		res.BotToken = token
	}

	return res, nil
}

func acquireBotToken(ctx context.Context, issuer TokenIssuer, cfg coreconfig.WordServiceConfig) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= tokenRetryAttempts; attempt++ {
		token, err := issuer.BotToken(ctx, cfg.Email, cfg.Password)
		if err == nil {
			logger.WS.Info("bot token acquired",
				slog.String("event", "token.bot"),
				slog.Int("attempts", attempt),
			)
			return token, nil
		}
		lastErr = err
		if attempt == tokenRetryAttempts {
			break
		}

		delay := tokenRetryBackoff * time.Duration(attempt)
		logger.WS.Warn("bot token retry",
			slog.String("event", "token.bot.retry"),
			slog.Int("attempt", attempt),
			slog.Duration("backoff", delay),
			slog.String("err", err.Error()),
		)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		case <-timer.C:
		}
	}
	return "", lastErr
}
