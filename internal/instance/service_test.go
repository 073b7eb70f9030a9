package instance

import (
	"context"
	"errors"
	"testing"

	"github.com/hyperengineering/driverlib/internal/driver"
	"github.com/hyperengineering/driverlib/internal/store"
	"github.com/hyperengineering/driverlib/internal/types"
	"github.com/hyperengineering/driverlib/internal/validation"
)

func newTestService(t *testing.T) (*Service, *store.SQLiteStore) {
	t.Helper()
	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if _, err := s.SeedTemplates(context.Background(), driver.DefaultTemplates()); err != nil {
		t.Fatalf("SeedTemplates: %v", err)
	}
	return NewService(s), s
}

func templateID(t *testing.T, s *store.SQLiteStore, dt types.DriverType) string {
	t.Helper()
	tmpl, err := s.GetTemplateByType(context.Background(), dt)
	if err != nil {
		t.Fatalf("GetTemplateByType(%s): %v", dt, err)
	}
	return tmpl.ID
}

var year2025 = types.Configuration{PeriodStart: "2025-01-01", PeriodEnd: "2025-12-31", PeriodType: types.PeriodMonth}

func TestCreate_FillsDefaults(t *testing.T) {
	svc, s := newTestService(t)

	inst, err := svc.Create(context.Background(), types.NewDriverInstance{
		TemplateID:    templateID(t, s, types.DriverCAC),
		Name:          "Paid search",
		Inputs:        types.Inputs{"marketing_spend": 80000.0},
		Configuration: year2025,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if v, _ := inst.Inputs.Number("marketing_spend"); v != 80000 {
		t.Errorf("marketing_spend = %v, want caller value 80000", v)
	}
	if v, _ := inst.Inputs.Number("cac"); v != 500 {
		t.Errorf("cac = %v, want template default 500", v)
	}
	if inst.Template == nil || inst.Template.Type != types.DriverCAC {
		t.Errorf("Template = %+v, want joined cac", inst.Template)
	}
}

func TestCreate_UnknownTemplate(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Create(context.Background(), types.NewDriverInstance{
		TemplateID:    "01ARYZ6S41TSV4RRFFQ69G5FAV",
		Name:          "orphan",
		Configuration: year2025,
	})
	if !errors.Is(err, store.ErrTemplateNotFound) {
		t.Errorf("Create() error = %v, want ErrTemplateNotFound", err)
	}
}

func TestCreate_ValidationFailures(t *testing.T) {
	svc, s := newTestService(t)
	id := templateID(t, s, types.DriverRetention)

	tests := []struct {
		name  string
		in    types.NewDriverInstance
		field string
	}{
		{
			name:  "churn above 100",
			in:    types.NewDriverInstance{TemplateID: id, Name: "r", Inputs: types.Inputs{"churn_rate_pct": 150.0}, Configuration: year2025},
			field: "inputs.churn_rate_pct",
		},
		{
			name:  "text for number",
			in:    types.NewDriverInstance{TemplateID: id, Name: "r", Inputs: types.Inputs{"arpu": "lots"}, Configuration: year2025},
			field: "inputs.arpu",
		},
		{
			name:  "missing name",
			in:    types.NewDriverInstance{TemplateID: id, Configuration: year2025},
			field: "name",
		},
		{
			name: "reversed window",
			in: types.NewDriverInstance{TemplateID: id, Name: "r", Configuration: types.Configuration{
				PeriodStart: "2025-12-01", PeriodEnd: "2025-01-01", PeriodType: types.PeriodMonth,
			}},
			field: "configuration.period_end",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.in)
			var verrs *validation.ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("Create() error = %v, want ValidationErrors", err)
			}
			found := false
			for _, e := range verrs.Errors {
				if e.Field == tt.field {
					found = true
				}
			}
			if !found {
				t.Errorf("errors %+v missing field %s", verrs.Errors, tt.field)
			}
		})
	}

	stats, _ := s.GetStats(context.Background())
	if stats.InstanceCount != 0 {
		t.Errorf("InstanceCount = %d, want 0 after rejected creates", stats.InstanceCount)
	}
}

func TestUpdate_MergesInputs(t *testing.T) {
	svc, s := newTestService(t)
	ctx := context.Background()

	inst, err := svc.Create(ctx, types.NewDriverInstance{
		TemplateID:    templateID(t, s, types.DriverFunnel),
		Name:          "Inbound",
		Inputs:        types.Inputs{"leads": 500.0},
		Configuration: year2025,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	name := "Inbound (revised)"
	updated, err := svc.Update(ctx, inst.ID, types.InstanceUpdate{
		Name:   &name,
		Inputs: types.Inputs{"arpu": 2500.0},
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Name != name {
		t.Errorf("Name = %q, want %q", updated.Name, name)
	}
	if v, _ := updated.Inputs.Number("leads"); v != 500 {
		t.Errorf("leads = %v, want untouched 500", v)
	}
	if v, _ := updated.Inputs.Number("arpu"); v != 2500 {
		t.Errorf("arpu = %v, want 2500", v)
	}
	if updated.Configuration != year2025 {
		t.Errorf("Configuration = %+v, want unchanged", updated.Configuration)
	}
}

func TestUpdate_Errors(t *testing.T) {
	svc, s := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Update(ctx, "01ARYZ6S41TSV4RRFFQ69G5FAV", types.InstanceUpdate{}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Update(missing) error = %v, want ErrNotFound", err)
	}

	inst, err := svc.Create(ctx, types.NewDriverInstance{
		TemplateID:    templateID(t, s, types.DriverDiscounting),
		Name:          "Promo",
		Configuration: year2025,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	_, err = svc.Update(ctx, inst.ID, types.InstanceUpdate{Inputs: types.Inputs{"discount_pct": -5.0}})
	if !errors.Is(err, validation.ErrValidationFailed) {
		t.Errorf("Update(bad input) error = %v, want ErrValidationFailed", err)
	}

	got, err := svc.Get(ctx, inst.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if v, _ := got.Inputs.Number("discount_pct"); v != 10 {
		t.Errorf("discount_pct = %v, want stored value unchanged", v)
	}
}

func TestDeleteAndList(t *testing.T) {
	svc, s := newTestService(t)
	ctx := context.Background()

	version := "fv-1"
	for _, name := range []string{"a", "b"} {
		if _, err := svc.Create(ctx, types.NewDriverInstance{
			TemplateID:        templateID(t, s, types.DriverSalesProductivity),
			ForecastVersionID: &version,
			Name:              name,
			Configuration:     year2025,
		}); err != nil {
			t.Fatalf("Create(%s): %v", name, err)
		}
	}

	list, err := svc.List(ctx, version)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].Name != "b" {
		t.Fatalf("List() = %+v, want [b a]", list)
	}

	if err := svc.Delete(ctx, list[0].ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(ctx, list[0].ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Get(deleted) error = %v, want ErrNotFound", err)
	}
	if err := svc.Delete(ctx, list[0].ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Delete(deleted) error = %v, want ErrNotFound", err)
	}
}

func TestWithDefaults_CopiesLists(t *testing.T) {
	schema := []types.InputField{{Name: "idx", Kind: types.KindNumberList, Default: []float64{1, 1}}}

	a := WithDefaults(schema, nil)
	a["idx"].([]float64)[0] = 9
	b := WithDefaults(schema, nil)
	if b["idx"].([]float64)[0] != 1 {
		t.Error("default list shared between instances")
	}
}
