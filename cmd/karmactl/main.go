// karmactl runs maintenance jobs against the service database: karma
// reconciliation, stale draft pruning and system log pruning.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/config"
	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/database"
	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/llm"
	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/logging"
	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/routes"
)

const usage = `usage: karmactl <command> [flags]

commands:
  reconcile      compare stored karma with completed confessions (--fix rewrites drifting profiles)
  prune-drafts   delete in-progress confessions untouched for --older-than
  prune-logs     delete system log rows older than --older-than
`

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" {
		fmt.Fprint(out, usage)
		return nil
	}
	command, rest := args[0], args[1:]

	flags := pflag.NewFlagSet("karmactl "+command, pflag.ContinueOnError)
	fix := flags.Bool("fix", false, "rewrite drifting profiles (reconcile)")
	olderThan := flags.Duration("older-than", 7*24*time.Hour, "age threshold (prune-drafts, prune-logs)")
	logLevel := flags.String("log-level", "warn", "log level: debug, info, warn, error")
	if err := flags.Parse(rest); err != nil {
		return err
	}
	if *olderThan <= 0 {
		return fmt.Errorf("--older-than must be positive, got %s", *olderThan)
	}

	cfg := config.Load()
	slog.SetDefault(slog.New(logging.NewConsoleHandler(os.Stderr, "text", *logLevel)))

	db, err := database.Open(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}()
	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps := routes.NewDeps(cfg, db, llm.NewClient(cfg))
	cutoff := time.Now().Add(-*olderThan)

	switch command {
	case "reconcile":
		drifts, err := deps.Confessions.Reconcile(ctx, *fix)
		if err != nil {
			return err
		}
		if len(drifts) == 0 {
			fmt.Fprintln(out, "karma is consistent")
			return nil
		}
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "USER\tSTORED\tEXPECTED\tFIXED")
		for _, d := range drifts {
			fmt.Fprintf(w, "%s\t%d\t%d\t%t\n", d.UserID, d.Stored, d.Expected, d.Fixed)
		}
		return w.Flush()
	case "prune-drafts":
		n, err := deps.Confessions.PruneDrafts(ctx, cutoff)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "deleted %d drafts not updated since %s\n", n, cutoff.Format(time.RFC3339))
		return nil
	case "prune-logs":
		n, err := logging.Prune(db.WithContext(ctx), cutoff)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "deleted %d log rows older than %s\n", n, cutoff.Format(time.RFC3339))
		return nil
	default:
		fmt.Fprint(out, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}
