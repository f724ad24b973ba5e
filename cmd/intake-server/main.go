package main

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/pretest/internal/config"
	"github.com/ehr/pretest/internal/domain/enrollment"
	"github.com/ehr/pretest/internal/platform/db"
	"github.com/ehr/pretest/internal/platform/telemetry"
	"github.com/ehr/pretest/migrations"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "intake-server",
		Short:        "Pretest intake and participant allocation API",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(slotsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	return logger.Level(level)
}

// warnDevAuth reports whether the admin API runs without token verification
// and logs a warning when it does.
func warnDevAuth(logger zerolog.Logger, cfg *config.Config) bool {
	if cfg.AuthMode() != "development" {
		return false
	}
	logger.Warn().
		Str("env", cfg.Env).
		Msg("admin API is unauthenticated: every request is treated as a researcher; set ENV and AUTH_* before exposing this server")
	return true
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the intake API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrationsFS(dir string) fs.FS {
	if dir != "" {
		return os.DirFS(dir)
	}
	return migrations.FS
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if dir == "" {
				dir = cfg.MigrationsDir
			}

			ctx := context.Background()
			driver, dsn, err := cfg.Driver()
			if err != nil {
				return err
			}
			if driver == db.DriverSQLite {
				conn, err := db.OpenSQLite(ctx, dsn)
				if err != nil {
					return err
				}
				defer conn.Close()
				fmt.Fprintf(cmd.OutOrStdout(), "SQLite schema is up to date at %s.\n", dsn)
				return nil
			}

			pool, err := db.NewPool(ctx, dsn, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := db.NewMigrator(pool, migrationsFS(dir)).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "", "Read migrations from this directory instead of the embedded set")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if dir == "" {
				dir = cfg.MigrationsDir
			}
			driver, dsn, err := cfg.Driver()
			if err != nil {
				return err
			}
			if driver != db.DriverPostgres {
				return fmt.Errorf("migrate status requires a postgres DATABASE_URL")
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, dsn, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, migrationsFS(dir)).Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Fprintln(out, "---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Fprintf(out, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "", "Read migrations from this directory instead of the embedded set")
	cmd.AddCommand(statusCmd)

	return cmd
}

func slotsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "slots",
		Short: "Manage the participant slot pool",
	}

	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Import pre-provisioned participant slots from CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("file")
			if path == "" {
				return fmt.Errorf("--file is required")
			}
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			slots, err := enrollment.ParseSlotsCSV(f)
			if err != nil {
				return err
			}

			alloc, closeStore, err := openAllocator()
			if err != nil {
				return err
			}
			defer closeStore()

			n, err := alloc.ImportSlots(context.Background(), slots)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d of %d slot(s); %d already present.\n", n, len(slots), len(slots)-n)
			return nil
		},
	}
	importCmd.Flags().String("file", "", "CSV file of participant_number,participant_password rows")
	cmd.AddCommand(importCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show slot pool usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			alloc, closeStore, err := openAllocator()
			if err != nil {
				return err
			}
			defer closeStore()

			st, err := alloc.Stats(context.Background())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(),
				"total=%d used=%d unused=%d intervention=%d control=%d\n",
				st.Total, st.Used, st.Unused, st.Intervention, st.Control)
			return nil
		},
	})

	return cmd
}

func openAllocator() (*enrollment.Allocator, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	st, err := openStore(context.Background(), cfg)
	if err != nil {
		return nil, nil, err
	}
	alloc := enrollment.NewAllocator(st.slots, nil, cfg.ClaimMaxAttempts, newLogger(cfg))
	return alloc, st.close, nil
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := newLogger(cfg)
	if err := cfg.Validate(); err != nil {
		logger.Error().Err(err).Msg("invalid configuration")
		return err
	}
	warnDevAuth(logger, cfg)

	ctx := context.Background()
	st, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("failed to open database")
		return err
	}
	defer st.close()
	logger.Info().Str("driver", string(st.driver)).Msg("connected to database")

	metrics := telemetry.NewRegistry()
	e := newServer(cfg, logger, st, metrics)

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("auth_mode", cfg.AuthMode()).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		return err
	}

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
