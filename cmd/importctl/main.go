// Command importctl runs canvassing imports and pending-leader maintenance
// from the command line.
package main

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/canvass/internal/logging"
	"github.com/JonMunkholm/canvass/internal/store/postgres"
)

type rootOptions struct {
	dbURL    string
	logLevel string
}

func main() {
	// A missing .env is fine; flags and the environment still apply.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts rootOptions

	cmd := &cobra.Command{
		Use:          "importctl",
		Short:        "Import canvassing spreadsheets and manage pending leader links",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupTo(cmd.ErrOrStderr(), opts.logLevel, "text")
		},
	}

	cmd.PersistentFlags().StringVar(&opts.dbURL, "db",
		cmp.Or(os.Getenv("DATABASE_URL"), os.Getenv("DB_URL")),
		"PostgreSQL connection string (default: $DATABASE_URL)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", cmp.Or(os.Getenv("LOG_LEVEL"), "warn"),
		"Log level: debug, info, warn, error")

	cmd.AddCommand(
		newPreviewCmd(),
		newSuggestCmd(),
		newImportCmd(&opts),
		newPendingCmd(&opts),
		newJournalCmd(&opts),
	)
	return cmd
}

// openStore connects to PostgreSQL and returns a close func for the pool.
func openStore(ctx context.Context, dbURL string) (*postgres.Store, func(), error) {
	if dbURL == "" {
		return nil, nil, fmt.Errorf("no database configured: pass --db or set DATABASE_URL")
	}
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping: %w", err)
	}
	return postgres.New(pool), pool.Close, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
