// Package graph manages dependency edges between driver instances and
// regenerates results along them in topological order.
package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"

	"github.com/hyperengineering/driverlib/internal/driver"
	"github.com/hyperengineering/driverlib/internal/period"
	"github.com/hyperengineering/driverlib/internal/types"
	"github.com/hyperengineering/driverlib/internal/validation"
)

var (
	// ErrCycle indicates an edge set that is not a DAG.
	ErrCycle = errors.New("dependency cycle")

	// ErrSelfDependency indicates an edge from an instance to itself.
	ErrSelfDependency = errors.New("instance cannot depend on itself")
)

// Store is the persistence the service needs. Implemented by store.SQLiteStore.
type Store interface {
	GetInstance(ctx context.Context, id string) (*types.DriverInstance, error)
	CreateDependency(ctx context.Context, dep types.NewDriverDependency) (*types.DriverDependency, error)
	GetDependencies(ctx context.Context, instanceID string) ([]types.DriverDependency, error)
	ListDependencies(ctx context.Context) ([]types.DriverDependency, error)
	DeleteDependency(ctx context.Context, id string) error
}

// Generator regenerates one instance. Implemented by period.Generator.
type Generator interface {
	GenerateForInstance(ctx context.Context, id string, w period.Window) ([]types.DriverResult, error)
}

// Service links instances and regenerates them along their edges.
type Service struct {
	store Store
	gen   Generator
}

// NewService creates a Service.
func NewService(s Store, gen Generator) *Service {
	return &Service{store: s, gen: gen}
}

// Link creates an edge feeding parent outputs into child inputs. Mapping keys
// must be outputs of the parent's driver type and values numeric inputs of
// the child's template. An edge that would close a cycle is rejected.
func (s *Service) Link(ctx context.Context, dep types.NewDriverDependency) (*types.DriverDependency, error) {
	if err := validation.ValidateDependency(dep); err != nil {
		return nil, err
	}
	if dep.ParentInstanceID == dep.ChildInstanceID {
		return nil, ErrSelfDependency
	}

	parent, err := s.store.GetInstance(ctx, dep.ParentInstanceID)
	if err != nil {
		return nil, fmt.Errorf("parent %s: %w", dep.ParentInstanceID, err)
	}
	child, err := s.store.GetInstance(ctx, dep.ChildInstanceID)
	if err != nil {
		return nil, fmt.Errorf("child %s: %w", dep.ChildInstanceID, err)
	}
	if err := validateMapping(parent, child, dep.Mapping); err != nil {
		return nil, err
	}

	edges, err := s.store.ListDependencies(ctx)
	if err != nil {
		return nil, err
	}
	if reaches(child.ID, parent.ID, edges) {
		return nil, fmt.Errorf("%w: %s already depends on %s", ErrCycle, parent.ID, child.ID)
	}

	created, err := s.store.CreateDependency(ctx, dep)
	if err != nil {
		return nil, err
	}
	slog.Info("dependency linked",
		"component", "graph",
		"dependency_id", created.ID,
		"parent_instance_id", parent.ID,
		"child_instance_id", child.ID,
	)
	return created, nil
}

func validateMapping(parent, child *types.DriverInstance, mapping map[string]string) error {
	if parent.Template == nil || child.Template == nil {
		return driver.ErrUnknownDriverType
	}
	outputs, err := driver.OutputFields(parent.Template.Type)
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(mapping))
	for k := range mapping {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var c validation.Collector
	for _, k := range keys {
		field := "mapping." + k
		if !slices.Contains(outputs, k) {
			c.Add(&validation.ValidationError{
				Field:   field,
				Message: fmt.Sprintf("is not an output of %s", parent.Template.Type),
			})
			continue
		}
		in, ok := child.Template.Field(mapping[k])
		switch {
		case !ok:
			c.Add(&validation.ValidationError{
				Field:   field,
				Message: fmt.Sprintf("target %q is not an input of %s", mapping[k], child.Template.Type),
			})
		case !in.Kind.IsNumeric():
			c.Add(&validation.ValidationError{
				Field:   field,
				Message: fmt.Sprintf("target %q is not a numeric input", mapping[k]),
			})
		}
	}
	return c.Err()
}

// Edges returns every edge touching the instance.
func (s *Service) Edges(ctx context.Context, instanceID string) ([]types.DriverDependency, error) {
	if _, err := s.store.GetInstance(ctx, instanceID); err != nil {
		return nil, err
	}
	return s.store.GetDependencies(ctx, instanceID)
}

// Unlink removes an edge.
func (s *Service) Unlink(ctx context.Context, id string) error {
	if err := s.store.DeleteDependency(ctx, id); err != nil {
		return err
	}
	slog.Info("dependency unlinked", "component", "graph", "dependency_id", id)
	return nil
}

// Regenerated reports the rows written for one instance during Regenerate.
type Regenerated struct {
	InstanceID string               `json:"instance_id"`
	Results    []types.DriverResult `json:"results"`
}

// Regenerate regenerates root and every instance downstream of it, parents
// before children, so each child reads its parents' fresh results. It stops
// at the first failure; instances already regenerated keep their new rows.
func (s *Service) Regenerate(ctx context.Context, rootID string, w period.Window) ([]Regenerated, error) {
	if _, err := s.store.GetInstance(ctx, rootID); err != nil {
		return nil, err
	}
	edges, err := s.store.ListDependencies(ctx)
	if err != nil {
		return nil, err
	}
	order, err := Order(Descendants(rootID, edges), edges)
	if err != nil {
		return nil, err
	}

	out := make([]Regenerated, 0, len(order))
	for _, id := range order {
		results, err := s.gen.GenerateForInstance(ctx, id, w)
		if err != nil {
			return out, fmt.Errorf("regenerate %s: %w", id, err)
		}
		out = append(out, Regenerated{InstanceID: id, Results: results})
	}

	slog.Info("dependents regenerated",
		"component", "graph",
		"instance_id", rootID,
		"instances", len(out),
	)
	return out, nil
}
