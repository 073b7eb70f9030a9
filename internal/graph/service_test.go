package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/hyperengineering/driverlib/internal/driver"
	"github.com/hyperengineering/driverlib/internal/instance"
	"github.com/hyperengineering/driverlib/internal/period"
	"github.com/hyperengineering/driverlib/internal/store"
	"github.com/hyperengineering/driverlib/internal/types"
	"github.com/hyperengineering/driverlib/internal/validation"
)

type fixture struct {
	store     *store.SQLiteStore
	instances *instance.Service
	graph     *Service
	gen       *period.Generator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if _, err := s.SeedTemplates(context.Background(), driver.DefaultTemplates()); err != nil {
		t.Fatalf("SeedTemplates: %v", err)
	}

	gen := period.NewGenerator(s, NewResolver(s), 0)
	return &fixture{
		store:     s,
		instances: instance.NewService(s),
		graph:     NewService(s, gen),
		gen:       gen,
	}
}

func (f *fixture) create(t *testing.T, dt types.DriverType, name string, inputs types.Inputs) *types.DriverInstance {
	t.Helper()
	ctx := context.Background()
	tmpl, err := f.store.GetTemplateByType(ctx, dt)
	if err != nil {
		t.Fatalf("GetTemplateByType: %v", err)
	}
	inst, err := f.instances.Create(ctx, types.NewDriverInstance{
		TemplateID: tmpl.ID,
		Name:       name,
		Inputs:     inputs,
		Configuration: types.Configuration{
			PeriodStart: "2025-01-01",
			PeriodEnd:   "2025-03-31",
			PeriodType:  types.PeriodMonth,
		},
	})
	if err != nil {
		t.Fatalf("Create(%s): %v", name, err)
	}
	return inst
}

func link(parent, child string, mapping map[string]string) types.NewDriverDependency {
	return types.NewDriverDependency{ParentInstanceID: parent, ChildInstanceID: child, Mapping: mapping}
}

func TestLink_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cac := f.create(t, types.DriverCAC, "acquisition", nil)
	retention := f.create(t, types.DriverRetention, "retention", nil)
	season := f.create(t, types.DriverSeasonality, "season", nil)

	if _, err := f.graph.Link(ctx, link(cac.ID, cac.ID, map[string]string{"customers": "cac"})); !errors.Is(err, ErrSelfDependency) {
		t.Errorf("self link error = %v, want ErrSelfDependency", err)
	}

	missing := "01ARYZ6S41TSV4RRFFQ69G5FAV"
	if _, err := f.graph.Link(ctx, link(missing, retention.ID, map[string]string{"customers": "starting_customers"})); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("missing parent error = %v, want ErrNotFound", err)
	}

	tests := []struct {
		name    string
		child   string
		mapping map[string]string
	}{
		{"unknown output", retention.ID, map[string]string{"units": "starting_customers"}},
		{"unknown input", retention.ID, map[string]string{"customers": "headcount"}},
		{"list input", season.ID, map[string]string{"ltv": "seasonality_indices"}},
		{"empty mapping", retention.ID, map[string]string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.graph.Link(ctx, link(cac.ID, tt.child, tt.mapping))
			if !errors.Is(err, validation.ErrValidationFailed) {
				t.Errorf("Link() error = %v, want ErrValidationFailed", err)
			}
		})
	}
}

func TestLink_RejectsCycleAndDuplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, types.DriverCAC, "a", nil)
	b := f.create(t, types.DriverCAC, "b", nil)
	c := f.create(t, types.DriverCAC, "c", nil)

	mapping := map[string]string{"new_customers": "marketing_spend"}
	if _, err := f.graph.Link(ctx, link(a.ID, b.ID, mapping)); err != nil {
		t.Fatalf("Link(a,b): %v", err)
	}
	if _, err := f.graph.Link(ctx, link(b.ID, c.ID, mapping)); err != nil {
		t.Fatalf("Link(b,c): %v", err)
	}

	if _, err := f.graph.Link(ctx, link(c.ID, a.ID, mapping)); !errors.Is(err, ErrCycle) {
		t.Errorf("Link(c,a) error = %v, want ErrCycle", err)
	}
	if _, err := f.graph.Link(ctx, link(a.ID, b.ID, mapping)); !errors.Is(err, store.ErrDuplicateDependency) {
		t.Errorf("duplicate Link error = %v, want ErrDuplicateDependency", err)
	}
}

func TestEdgesAndUnlink(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, types.DriverCAC, "a", nil)
	b := f.create(t, types.DriverRetention, "b", nil)

	dep, err := f.graph.Link(ctx, link(a.ID, b.ID, map[string]string{"customers": "starting_customers"}))
	if err != nil {
		t.Fatalf("Link: %v", err)
	}

	edges, err := f.graph.Edges(ctx, b.ID)
	if err != nil {
		t.Fatalf("Edges: %v", err)
	}
	if len(edges) != 1 || edges[0].ID != dep.ID {
		t.Errorf("Edges(b) = %+v, want [%s]", edges, dep.ID)
	}

	if err := f.graph.Unlink(ctx, dep.ID); err != nil {
		t.Fatalf("Unlink: %v", err)
	}
	if err := f.graph.Unlink(ctx, dep.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("second Unlink error = %v, want ErrNotFound", err)
	}
	if _, err := f.graph.Edges(ctx, "01ARYZ6S41TSV4RRFFQ69G5FAV"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Edges(missing) error = %v, want ErrNotFound", err)
	}
}

func TestRegenerate_PropagatesParentOutputs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// 50000 / 500 = 100 new customers per period
	cac := f.create(t, types.DriverCAC, "acquisition", types.Inputs{"marketing_spend": 50000.0, "cac": 500.0})
	retention := f.create(t, types.DriverRetention, "retention", types.Inputs{"starting_customers": 1000.0})

	if _, err := f.graph.Link(ctx, link(cac.ID, retention.ID, map[string]string{"customers": "starting_customers"})); err != nil {
		t.Fatalf("Link: %v", err)
	}

	regenerated, err := f.graph.Regenerate(ctx, cac.ID, period.Window{})
	if err != nil {
		t.Fatalf("Regenerate: %v", err)
	}
	if len(regenerated) != 2 || regenerated[0].InstanceID != cac.ID || regenerated[1].InstanceID != retention.ID {
		t.Fatalf("Regenerate() order = %+v, want parent then child", regenerated)
	}

	propagated := retention.Inputs.Clone()
	propagated["starting_customers"] = 100.0
	want, err := driver.Calculate(types.DriverRetention, propagated, 0)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	for _, r := range regenerated[1].Results {
		if r.Revenue != want.Revenue {
			t.Errorf("%s revenue = %v, want %v from propagated customers", r.PeriodDate, r.Revenue, want.Revenue)
		}
	}

	stored, err := f.instances.Get(ctx, retention.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if v, _ := stored.Inputs.Number("starting_customers"); v != 1000 {
		t.Errorf("stored starting_customers = %v, want 1000 (propagation is per run)", v)
	}
}

func TestResolve_MissingParentRowLeavesInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cac := f.create(t, types.DriverCAC, "acquisition", nil)
	retention := f.create(t, types.DriverRetention, "retention", types.Inputs{"starting_customers": 1000.0})

	if _, err := f.graph.Link(ctx, link(cac.ID, retention.ID, map[string]string{"customers": "starting_customers"})); err != nil {
		t.Fatalf("Link: %v", err)
	}

	// Only the child is generated; the parent has no rows yet.
	results, err := f.gen.GenerateForInstance(ctx, retention.ID, period.Window{})
	if err != nil {
		t.Fatalf("GenerateForInstance: %v", err)
	}
	want, _ := driver.Calculate(types.DriverRetention, retention.Inputs, 0)
	if results[0].Revenue != want.Revenue {
		t.Errorf("revenue = %v, want %v from stored inputs", results[0].Revenue, want.Revenue)
	}
}

func TestRegenerate_UnknownRoot(t *testing.T) {
	f := newFixture(t)
	if _, err := f.graph.Regenerate(context.Background(), "01ARYZ6S41TSV4RRFFQ69G5FAV", period.Window{}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Regenerate(missing) error = %v, want ErrNotFound", err)
	}
}
