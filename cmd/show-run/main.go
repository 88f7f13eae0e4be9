// Command show-run prints the stored records of a run.
package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/sylvlondon/hotelmonitoring/internal/app"
	"github.com/sylvlondon/hotelmonitoring/internal/platform/config"
	"github.com/sylvlondon/hotelmonitoring/pkg/model"
)

func main() {
	runID := flag.String("run", "", "run id (defaults to the most recent run)")
	format := flag.String("format", "json", "output format: json or csv")
	flag.Parse()

	_ = godotenv.Load(".env.local", ".env")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load: %v\n", err)
		os.Exit(1)
	}
	logger, logCloser, err := app.NewLogger(cfg)
	if err != nil {
		app.Fatal(nil, "logger init", err)
	}
	defer logCloser.Close()

	ctx := context.Background()
	stores, err := app.OpenStores(ctx, cfg, logger)
	if err != nil {
		app.Fatal(logger, "open stores", err)
	}
	defer stores.Close()

	id := *runID
	if id == "" {
		runs, err := stores.Runs.ListRuns(ctx, 1)
		if err != nil {
			app.Fatal(logger, "list runs", err)
		}
		if len(runs) == 0 {
			app.Fatal(logger, "list runs", errors.New("no runs stored"))
		}
		id = runs[0].RunID
	}

	records, err := stores.Records.RecordsByRunID(ctx, id)
	if err != nil {
		app.Fatal(logger, "load records", err)
	}
	if err := write(os.Stdout, *format, records); err != nil {
		app.Fatal(logger, "write records", err)
	}
}

func write(w io.Writer, format string, records []model.SheetRecord) error {
	switch format {
	case "csv":
		cw := csv.NewWriter(w)
		if err := cw.Write(model.SheetColumns); err != nil {
			return err
		}
		for _, r := range records {
			if err := cw.Write(r.Row()); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}
	return fmt.Errorf("unknown format %q", format)
}
