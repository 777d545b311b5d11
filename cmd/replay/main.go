// Command replay rebuilds account balances from an event log and verifies
// that money was conserved. Events come from a {"events": [...]} file or,
// with -database-url, straight from the Postgres event store.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"github.com/eventledger/eventledger/internal/account"
	"github.com/eventledger/eventledger/internal/eventstore"
	"github.com/eventledger/eventledger/internal/infra"
	"github.com/eventledger/eventledger/internal/logging"
	"github.com/eventledger/eventledger/internal/replay"
)

func main() {
	_ = godotenv.Load()

	var (
		file        = flag.String("file", "events.json", "replay file in {\"events\": [...]} format")
		databaseURL = flag.String("database-url", "", "read events from this Postgres database instead of -file (defaults to $DATABASE_URL with -db)")
		useDB       = flag.Bool("db", false, "read events from $DATABASE_URL")
		export      = flag.String("export", "", "write the loaded events to this file before replaying")
		asJSON      = flag.Bool("json", false, "print the report as JSON")
		logLevel    = flag.String("log-level", "warn", "log level")
	)
	flag.Parse()

	logger := logging.NewWithWriter(os.Stderr, *logLevel)
	if *useDB && *databaseURL == "" {
		*databaseURL = os.Getenv("DATABASE_URL")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	events, err := load(ctx, *file, *databaseURL, logger)
	if err != nil {
		logger.Error("load events", "error", err)
		os.Exit(1)
	}

	if *export != "" {
		if err := writeFile(*export, events); err != nil {
			logger.Error("export events", "error", err)
			os.Exit(1)
		}
	}

	report, err := replay.Run(events)
	printReport(os.Stdout, report, *asJSON)
	if err != nil {
		logger.Error("replay failed", "error", err)
		if errors.Is(err, replay.ErrNotConserved) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func load(ctx context.Context, file, databaseURL string, logger *slog.Logger) ([]account.Event, error) {
	if databaseURL != "" {
		backends, err := infra.Connect(ctx, infra.Options{DatabaseURL: databaseURL, ClientName: "eventledger-replay"}, logger)
		if err != nil {
			return nil, err
		}
		defer backends.Close(logger)
		logger.Info("reading events from postgres")
		return eventstore.NewPostgres(backends.DB).ReadAll(ctx)
	}

	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	logger.Info("reading events from file", slog.String("file", file))
	return replay.Decode(f)
}

func writeFile(path string, events []account.Event) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := replay.Encode(f, events); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func printReport(w io.Writer, report replay.Report, asJSON bool) {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		_ = enc.Encode(report)
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ACCOUNT\tBALANCE\tSTREAM BALANCE\tEVENTS\tVERSION")
	for _, acc := range report.Accounts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\n", acc.ID, acc.Balance, acc.StreamBalance, acc.EventCount, acc.Version)
	}
	_ = tw.Flush()

	fmt.Fprintf(w, "\naccounts: %d  events: %d\n", len(report.Accounts), report.EventCount)
	fmt.Fprintf(w, "total balance: %s  expected: %s\n", report.Total, report.Expected)
	if report.Conserved {
		fmt.Fprintln(w, "balance conservation: ok")
	} else {
		fmt.Fprintln(w, "balance conservation: FAILED")
	}
}
