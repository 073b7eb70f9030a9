package graph

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/hyperengineering/driverlib/internal/driver"
	"github.com/hyperengineering/driverlib/internal/store"
	"github.com/hyperengineering/driverlib/internal/types"
)

// ResolverStore is the persistence the resolver reads from.
type ResolverStore interface {
	GetDependencies(ctx context.Context, instanceID string) ([]types.DriverDependency, error)
	GetResult(ctx context.Context, instanceID string, pt types.PeriodType, periodDate string) (*types.DriverResult, error)
}

// Resolver feeds upstream results into a child's inputs before it is
// calculated. It satisfies period.InputResolver.
type Resolver struct {
	store ResolverStore
}

// NewResolver creates a Resolver.
func NewResolver(s ResolverStore) *Resolver {
	return &Resolver{store: s}
}

// Resolve returns inst's inputs with every incoming edge applied for the
// given period: mapping[field] on the child takes the parent's field value
// from the parent's result row for the same period. A parent without a row
// for that period leaves the child input unchanged. When two edges target
// the same input, the later edge wins. The stored inputs are not modified.
func (r *Resolver) Resolve(ctx context.Context, inst *types.DriverInstance, pt types.PeriodType, periodDate string) (types.Inputs, error) {
	deps, err := r.store.GetDependencies(ctx, inst.ID)
	if err != nil {
		return nil, fmt.Errorf("load dependencies: %w", err)
	}

	in := inst.Inputs.Clone()
	for _, dep := range deps {
		if dep.ChildInstanceID != inst.ID {
			continue
		}
		res, err := r.store.GetResult(ctx, dep.ParentInstanceID, pt, periodDate)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load parent result %s: %w", dep.ParentInstanceID, err)
		}

		fields := make([]string, 0, len(dep.Mapping))
		for f := range dep.Mapping {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		for _, f := range fields {
			if v, ok := resultField(res, f); ok {
				in[dep.Mapping[f]] = v
			}
		}
	}
	return in, nil
}

func resultField(r *types.DriverResult, name string) (float64, bool) {
	switch name {
	case driver.FieldRevenue:
		return r.Revenue, true
	case driver.FieldCustomers:
		if r.Customers == nil {
			return 0, false
		}
		return *r.Customers, true
	case driver.FieldUnits:
		if r.Units == nil {
			return 0, false
		}
		return *r.Units, true
	}
	v, ok := r.CalculatedValues[name]
	return v, ok
}
