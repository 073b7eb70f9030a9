package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/hyperengineering/driverlib/internal/config"
	"github.com/hyperengineering/driverlib/internal/driver"
	"github.com/hyperengineering/driverlib/internal/graph"
	"github.com/hyperengineering/driverlib/internal/instance"
	"github.com/hyperengineering/driverlib/internal/period"
	"github.com/hyperengineering/driverlib/internal/store"
	"github.com/hyperengineering/driverlib/internal/types"
)

// app bundles the store with the services built on it.
type app struct {
	store     *store.SQLiteStore
	instances *instance.Service
	graph     *graph.Service
	generator *period.Generator
}

// loadConfig loads configuration honoring --config and --db.
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFromFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if dbPathOverride != "" {
		cfg.Database.Path = dbPathOverride
	}
	return cfg, nil
}

// openApp opens the store, seeds the template catalog and wires the services.
func openApp(ctx context.Context, cfg *config.Config) (*app, error) {
	db, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	if err := seedTemplates(ctx, db, cfg.Templates.SeedFile); err != nil {
		db.Close()
		return nil, err
	}

	gen := period.NewGenerator(db, graph.NewResolver(db), cfg.Generator.MaxPeriods)
	return &app{
		store:     db,
		instances: instance.NewService(db),
		graph:     graph.NewService(db, gen),
		generator: gen,
	}, nil
}

// openCommandApp is openApp for subcommands: config from flags, logs to stderr.
func openCommandApp(ctx context.Context, errOut io.Writer) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	slog.SetDefault(newLogger(errOut, config.LogConfig{Level: "warn", Format: "text"}))
	return openApp(ctx, cfg)
}

func (a *app) Close() error {
	return a.store.Close()
}

// seedTemplates inserts the configured seed list, or the built-in defaults
// when seedFile is empty. Types already present are left untouched.
func seedTemplates(ctx context.Context, s *store.SQLiteStore, seedFile string) error {
	seeds := driver.DefaultTemplates()
	if seedFile != "" {
		loaded, err := driver.LoadTemplates(seedFile)
		if err != nil {
			return fmt.Errorf("load seed file: %w", err)
		}
		seeds = loaded
	}

	n, err := s.SeedTemplates(ctx, seeds)
	if err != nil {
		return fmt.Errorf("seed templates: %w", err)
	}
	if n > 0 {
		slog.Info("templates seeded", "count", n, "seed_file", seedFile)
	}
	return nil
}

// parseInputs turns repeated k=v flags into an input bag. Values parse as a
// number, as a comma-separated number list, or else stay text.
func parseInputs(pairs []string) (types.Inputs, error) {
	in := types.Inputs{}
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("input %q must be name=value", pair)
		}
		in[k] = parseValue(v)
	}
	return in, nil
}

func parseValue(v string) any {
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	if strings.Contains(v, ",") {
		parts := strings.Split(v, ",")
		list := make([]float64, 0, len(parts))
		for _, p := range parts {
			f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil {
				return v
			}
			list = append(list, f)
		}
		return list
	}
	return v
}

// parseMapping turns repeated parent=child flags into a dependency mapping.
func parseMapping(pairs []string) (map[string]string, error) {
	m := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" || v == "" {
			return nil, fmt.Errorf("mapping %q must be output=input", pair)
		}
		m[k] = v
	}
	return m, nil
}

// printJSON marshals v to JSON and writes to the given writer.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// newTabWriter returns a configured tabwriter for aligned columns.
func newTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

// formatNumber renders a value with thousands separators and two decimals.
// Non-finite values print as-is.
func formatNumber(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return humanize.FormatFloat("#,###.##", v)
}

// formatOptional is formatNumber for values a driver may not project.
func formatOptional(v *float64) string {
	if v == nil {
		return "-"
	}
	return formatNumber(*v)
}
