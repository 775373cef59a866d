package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/wms/internal/logging"
	"github.com/JonMunkholm/wms/internal/modules"
	"github.com/JonMunkholm/wms/internal/pipeline"
	"github.com/JonMunkholm/wms/internal/store"
)

var version = "dev"

type contextKey string

const poolKey contextKey = "pool"

// Exit codes.
const (
	exitOK = iota
	exitGeneral
	exitUsage
	exitRowErrors
)

// CmdError carries the process exit code for a failed command.
type CmdError struct {
	Err  error
	Code int
}

func (e *CmdError) Error() string { return e.Err.Error() }
func (e *CmdError) Unwrap() error { return e.Err }

func cmdErr(err error, code int) *CmdError {
	return &CmdError{Err: err, Code: code}
}

// skipDB marks commands that never touch the database.
const skipDB = "skipDB"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "wmsctl",
		Short:         "Import and export warehouse master data",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()

			level, _ := cmd.Flags().GetString("log-level")
			logging.Setup(level, "text")

			if _, ok := cmd.Annotations[skipDB]; ok {
				return nil
			}

			dbURL, _ := cmd.Flags().GetString("database-url")
			if dbURL == "" {
				dbURL = os.Getenv("DATABASE_URL")
			}
			if dbURL == "" {
				dbURL = os.Getenv("DB_URL")
			}
			if dbURL == "" {
				return cmdErr(errors.New("no database configured: set DATABASE_URL or --database-url"), exitUsage)
			}

			pool, err := pgxpool.New(cmd.Context(), dbURL)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			if err := pool.Ping(cmd.Context()); err != nil {
				pool.Close()
				return fmt.Errorf("failed to reach database: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), poolKey, pool))
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if pool := getPool(cmd); pool != nil {
				pool.Close()
			}
			return nil
		},
	}

	root.PersistentFlags().String("database-url", "", "PostgreSQL connection URL (default $DATABASE_URL)")
	root.PersistentFlags().String("log-level", "warn", "Log level: debug, info, warn, error")
	root.PersistentFlags().Bool("json", false, "Output in JSON format")

	root.AddCommand(
		newExportCmd(),
		newImportCmd(),
		newSampleCmd(),
		newModulesCmd(),
		newMigrateCmd(),
	)
	return root
}

func getPool(cmd *cobra.Command) *pgxpool.Pool {
	pool, _ := cmd.Context().Value(poolKey).(*pgxpool.Pool)
	return pool
}

func newPipeline() *pipeline.Pipeline {
	return pipeline.New(modules.Default, store.NewResolver())
}

// output opens path for writing, or returns stdout for "" and "-".
func output(cmd *cobra.Command, path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{cmd.OutOrStdout()}, nil
	}
	return os.Create(path)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// execute runs the CLI and returns the process exit code.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		var ce *CmdError
		if errors.As(err, &ce) {
			return ce.Code
		}
		return exitGeneral
	}
	return exitOK
}
