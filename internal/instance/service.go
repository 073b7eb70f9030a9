// Package instance manages the lifecycle of driver instances: a template
// bound to concrete inputs and a date window.
package instance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/hyperengineering/driverlib/internal/driver"
	"github.com/hyperengineering/driverlib/internal/store"
	"github.com/hyperengineering/driverlib/internal/types"
	"github.com/hyperengineering/driverlib/internal/validation"
)

// Store is the persistence the service needs. Implemented by store.SQLiteStore.
type Store interface {
	GetTemplate(ctx context.Context, id string) (*types.DriverTemplate, error)
	store.InstanceStore
}

// Service validates and persists driver instances. Edits never trigger
// recalculation; results are regenerated explicitly.
type Service struct {
	store Store
}

// NewService creates a Service.
func NewService(s Store) *Service {
	return &Service{store: s}
}

// Create validates a new instance against its template and persists it.
// Inputs the caller omits are filled from the template defaults.
func (s *Service) Create(ctx context.Context, in types.NewDriverInstance) (*types.DriverInstance, error) {
	tmpl, err := s.template(ctx, in.TemplateID)
	if err != nil {
		return nil, err
	}

	in.Inputs = WithDefaults(tmpl.InputSchema, in.Inputs)
	if err := validation.ValidateInstance(in.Name, in.Inputs, in.Configuration, tmpl); err != nil {
		return nil, err
	}

	inst, err := s.store.CreateInstance(ctx, in)
	if err != nil {
		return nil, err
	}

	slog.Info("instance created",
		"component", "instance",
		"instance_id", inst.ID,
		"driver_type", tmpl.Type,
	)
	return inst, nil
}

// Update applies a partial change: name and configuration are replaced when
// set, inputs are merged key by key. The merged instance is revalidated.
func (s *Service) Update(ctx context.Context, id string, upd types.InstanceUpdate) (*types.DriverInstance, error) {
	inst, err := s.store.GetInstance(ctx, id)
	if err != nil {
		return nil, err
	}
	if inst.Template == nil || !driver.Known(inst.Template.Type) {
		return nil, fmt.Errorf("instance %s: %w", id, driver.ErrUnknownDriverType)
	}

	if upd.Name != nil {
		inst.Name = *upd.Name
	}
	if len(upd.Inputs) > 0 {
		merged := inst.Inputs.Clone()
		for k, v := range upd.Inputs {
			merged[k] = v
		}
		inst.Inputs = merged
	}
	if upd.Configuration != nil {
		inst.Configuration = *upd.Configuration
	}

	if err := validation.ValidateInstance(inst.Name, inst.Inputs, inst.Configuration, inst.Template); err != nil {
		return nil, err
	}

	updated, err := s.store.UpdateInstance(ctx, inst)
	if err != nil {
		return nil, err
	}
	slog.Info("instance updated", "component", "instance", "instance_id", id)
	return updated, nil
}

// Delete removes an instance with its results and dependency edges.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteInstance(ctx, id); err != nil {
		return err
	}
	slog.Info("instance deleted", "component", "instance", "instance_id", id)
	return nil
}

// Get returns one instance with its template joined.
func (s *Service) Get(ctx context.Context, id string) (*types.DriverInstance, error) {
	return s.store.GetInstance(ctx, id)
}

// List returns instances newest first, optionally scoped to a forecast version.
func (s *Service) List(ctx context.Context, forecastVersionID string) ([]types.DriverInstance, error) {
	return s.store.ListInstances(ctx, forecastVersionID)
}

func (s *Service) template(ctx context.Context, id string) (*types.DriverTemplate, error) {
	tmpl, err := s.store.GetTemplate(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("template %q: %w", id, store.ErrTemplateNotFound)
	}
	if err != nil {
		return nil, err
	}
	if !driver.Known(tmpl.Type) {
		return nil, fmt.Errorf("template %q has type %q: %w", id, tmpl.Type, driver.ErrUnknownDriverType)
	}
	return tmpl, nil
}

// WithDefaults returns a copy of in with every absent schema field that
// declares a default filled in.
func WithDefaults(schema []types.InputField, in types.Inputs) types.Inputs {
	out := in.Clone()
	for _, f := range schema {
		if _, ok := out[f.Name]; ok || f.Default == nil {
			continue
		}
		switch d := f.Default.(type) {
		case []float64:
			out[f.Name] = slices.Clone(d)
		case []any:
			out[f.Name] = slices.Clone(d)
		default:
			out[f.Name] = d
		}
	}
	return out
}
