package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"

	"github.com/erazemk/izposoja/internal/api"
	"github.com/erazemk/izposoja/internal/auth"
	"github.com/erazemk/izposoja/internal/config"
	"github.com/erazemk/izposoja/internal/db"
	"github.com/erazemk/izposoja/internal/expiry"
	"github.com/erazemk/izposoja/internal/imaging"
	"github.com/erazemk/izposoja/internal/lending"
	"github.com/erazemk/izposoja/internal/metrics"
	"github.com/erazemk/izposoja/internal/store"
)

const usage = `Usage: izposoja [command] [flags]

Commands:
  serve    run the HTTP API (default)
  init     create and migrate the database, then exit
  expire   retire overdue items once, then exit

Flags:
  -c, -config <path>      YAML config file
  -d, -db <path>          SQLite database path (default: izposoja.sqlite3)
  -a, -addr <host:port>   listen address (default: :8080)
  -l, -log <path>         log file path (default: no file, stdout/stderr only)
  -h, -help               show this help and exit

Settings may also come from IZPOSOJA_* environment variables or a .env file.
`

func main() {
	args := os.Args[1:]
	cmd := "serve"
	if len(args) > 0 && (args[0] == "serve" || args[0] == "init" || args[0] == "expire") {
		cmd, args = args[0], args[1:]
	}

	cfg, err := parseConfig(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	closeLog, err := setupLogger(cfg.LogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	switch cmd {
	case "init":
		err = cmdInit(cfg)
	case "expire":
		err = cmdExpire(cfg)
	default:
		err = cmdServe(cfg)
	}
	if err != nil {
		slog.Error("fatal", "command", cmd, "error", err)
		closeLog()
		os.Exit(1)
	}
}

// parseConfig loads file and environment settings, then applies any flags
// given explicitly on the command line.
func parseConfig(args []string) (config.Config, error) {
	fs := flag.NewFlagSet("izposoja", flag.ContinueOnError)
	fs.Usage = func() { fmt.Fprint(os.Stdout, usage) }

	var cfgPath, dbPath, addr, logPath string
	fs.StringVar(&cfgPath, "config", "", "")
	fs.StringVar(&cfgPath, "c", "", "")
	fs.StringVar(&dbPath, "db", "", "")
	fs.StringVar(&dbPath, "d", "", "")
	fs.StringVar(&addr, "addr", "", "")
	fs.StringVar(&addr, "a", "", "")
	fs.StringVar(&logPath, "log", "", "")
	fs.StringVar(&logPath, "l", "", "")

	if err := fs.Parse(args); err != nil {
		return config.Config{}, err
	}
	if fs.NArg() > 0 {
		fs.Usage()
		return config.Config{}, fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return cfg, err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "db", "d":
			cfg.DBPath = dbPath
		case "addr", "a":
			cfg.Addr = addr
		case "log", "l":
			cfg.LogPath = logPath
		}
	})

	return cfg, cfg.Validate()
}

// openDatabase opens and migrates the database.
func openDatabase(ctx context.Context, path string) (*sql.DB, error) {
	database, err := db.Open(path)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx, database); err != nil {
		database.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	slog.Info("database ready", "path", path)
	return database, nil
}

func newService(database *sql.DB, cfg config.Config) *lending.Service {
	return lending.New(database, lending.Options{
		BcryptCost: cfg.BcryptCost,
		Images: imaging.Processor{
			MaxDimension: cfg.Images.MaxDimension,
			Quality:      cfg.Images.Quality,
			MaxBytes:     cfg.Images.MaxBytes,
		},
	})
}

func cmdInit(cfg config.Config) error {
	ctx := context.Background()
	database, err := openDatabase(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	// Generates and persists the signing secret on first run.
	if _, err := store.GetJWTSecret(ctx, database); err != nil {
		return fmt.Errorf("getting JWT secret: %w", err)
	}

	fmt.Printf("Database initialized: %s\n", cfg.DBPath)
	return nil
}

func cmdExpire(cfg config.Config) error {
	ctx := context.Background()
	database, err := openDatabase(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	svc := newService(database, cfg)
	n, err := expiry.NewScheduler(ctx, 0).RunNow(expiry.OverdueItems(svc.Loans))
	if err != nil {
		return err
	}
	fmt.Printf("Retired %d overdue item(s)\n", n)
	return nil
}

func cmdServe(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := openDatabase(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	// Load JWT secret from database (auto-generated on first run).
	secret, err := store.GetJWTSecret(ctx, database)
	if err != nil {
		return fmt.Errorf("getting JWT secret: %w", err)
	}
	tokens := auth.NewTokens(secret, cfg.TokenTTL)

	svc := newService(database, cfg)
	limiter := api.NewRateLimiter(cfg.LoginRate, cfg.LoginBurst)

	scheduler := expiry.NewScheduler(ctx, 0)
	if cfg.ExpirySchedule != "" {
		if err := scheduler.Add(cfg.ExpirySchedule, expiry.OverdueItems(svc.Loans)); err != nil {
			return fmt.Errorf("scheduling expiry: %w", err)
		}
	}
	if err := scheduler.Add("@hourly", expiry.RevokedTokens(database)); err != nil {
		return err
	}
	err = scheduler.Add("@hourly", expiry.Job{
		Name: "prune-rate-limiters",
		Run: func(_ context.Context, now time.Time) (int, error) {
			return limiter.Prune(now.Add(-time.Hour)), nil
		},
	})
	if err != nil {
		return err
	}
	scheduler.Start()

	router := api.NewRouter(svc, database, tokens, api.Options{
		AuthLimiter:   limiter,
		MaxImageBytes: cfg.Images.MaxBytes,
	})

	handler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
	}).Handler(metrics.InstrumentHandler(router))

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.LoggingMiddleware(handler),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	slog.Info("server started", "addr", cfg.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), expiry.DefaultTimeout)
	defer cancel()
	scheduler.Stop(stopCtx)

	slog.Info("server stopped, closing database")
	return nil
}
