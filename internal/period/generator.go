package period

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hyperengineering/driverlib/internal/driver"
	"github.com/hyperengineering/driverlib/internal/types"
)

// Store is the persistence the generator needs. Implemented by store.SQLiteStore.
type Store interface {
	GetInstance(ctx context.Context, id string) (*types.DriverInstance, error)
	UpsertResult(ctx context.Context, r types.DriverResult) (*types.DriverResult, error)
}

// InputResolver returns the inputs to calculate one period with, after any
// upstream values have been applied. Implemented by graph.Resolver.
type InputResolver interface {
	Resolve(ctx context.Context, inst *types.DriverInstance, pt types.PeriodType, periodDate string) (types.Inputs, error)
}

// Generator materializes driver results over a window. Runs for the same
// instance are serialized; different instances run independently.
type Generator struct {
	store      Store
	resolver   InputResolver
	maxPeriods int
	locks      keyedMutex
}

// NewGenerator creates a Generator. resolver may be nil, in which case
// instance inputs are used as stored.
func NewGenerator(store Store, resolver InputResolver, maxPeriods int) *Generator {
	if maxPeriods <= 0 {
		maxPeriods = DefaultMaxPeriods
	}
	return &Generator{
		store:      store,
		resolver:   resolver,
		maxPeriods: maxPeriods,
	}
}

// MaxPeriods returns the per-run period limit.
func (g *Generator) MaxPeriods() int {
	return g.maxPeriods
}

// Generate calculates and upserts one result per period of [start, end] and
// returns the persisted rows in chronological order.
//
// The first store failure stops the run. Rows written before it stay
// persisted; rerunning the window is safe because writes are keyed upserts.
func (g *Generator) Generate(ctx context.Context, inst *types.DriverInstance, start, end time.Time, pt types.PeriodType) ([]types.DriverResult, error) {
	if inst.Template == nil {
		return nil, fmt.Errorf("instance %s has no template loaded", inst.ID)
	}
	steps, err := Periods(start, end, pt, g.maxPeriods)
	if err != nil {
		return nil, err
	}

	unlock := g.locks.Lock(inst.ID)
	defer unlock()

	startedAt := time.Now()
	results := make([]types.DriverResult, 0, len(steps))
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		date := step.Date.Format(types.DateLayout)
		inputs := inst.Inputs
		if g.resolver != nil {
			inputs, err = g.resolver.Resolve(ctx, inst, pt, date)
			if err != nil {
				return results, fmt.Errorf("resolve inputs for %s: %w", date, err)
			}
		}

		out, err := driver.Calculate(inst.Template.Type, inputs, step.MonthIndex)
		if err != nil {
			return results, err
		}

		saved, err := g.store.UpsertResult(ctx, types.DriverResult{
			InstanceID:       inst.ID,
			PeriodType:       pt,
			PeriodDate:       date,
			Revenue:          out.Revenue,
			Customers:        out.Customers,
			Units:            out.Units,
			CalculatedValues: out.Breakdown,
		})
		if err != nil {
			slog.Error("result upsert failed",
				"component", "period",
				"instance_id", inst.ID,
				"period_date", date,
				"error", err,
			)
			return results, fmt.Errorf("store result for %s: %w", date, err)
		}
		results = append(results, *saved)
	}

	slog.Info("results generated",
		"component", "period",
		"instance_id", inst.ID,
		"driver_type", inst.Template.Type,
		"period_type", pt,
		"periods", len(results),
		"duration_ms", time.Since(startedAt).Milliseconds(),
	)
	return results, nil
}

// GenerateForInstance loads an instance and generates results over w, with
// empty window fields taken from the instance configuration.
func (g *Generator) GenerateForInstance(ctx context.Context, id string, w Window) ([]types.DriverResult, error) {
	inst, err := g.store.GetInstance(ctx, id)
	if err != nil {
		return nil, err
	}
	start, end, pt, err := w.resolve(inst.Configuration)
	if err != nil {
		return nil, err
	}
	return g.Generate(ctx, inst, start, end, pt)
}
