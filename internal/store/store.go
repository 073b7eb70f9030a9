package store

import (
	"context"

	"github.com/hyperengineering/driverlib/internal/types"
)

// TemplateStore reads and seeds the driver template catalog.
type TemplateStore interface {
	SeedTemplates(ctx context.Context, seeds []types.DriverTemplate) (int, error)
	ListTemplates(ctx context.Context) ([]types.DriverTemplate, error)
	GetTemplate(ctx context.Context, id string) (*types.DriverTemplate, error)
	GetTemplateByType(ctx context.Context, t types.DriverType) (*types.DriverTemplate, error)
}

// InstanceStore persists configured driver instances. Reads return the
// instance joined with its template.
type InstanceStore interface {
	CreateInstance(ctx context.Context, inst types.NewDriverInstance) (*types.DriverInstance, error)
	GetInstance(ctx context.Context, id string) (*types.DriverInstance, error)
	UpdateInstance(ctx context.Context, inst *types.DriverInstance) (*types.DriverInstance, error)
	// DeleteInstance removes the instance together with its results and every
	// dependency edge that references it.
	DeleteInstance(ctx context.Context, id string) error
	ListInstances(ctx context.Context, forecastVersionID string) ([]types.DriverInstance, error)
}

// ResultStore persists period results keyed by (instance, period type, period date).
type ResultStore interface {
	UpsertResult(ctx context.Context, r types.DriverResult) (*types.DriverResult, error)
	GetResult(ctx context.Context, instanceID string, pt types.PeriodType, periodDate string) (*types.DriverResult, error)
	ListResults(ctx context.Context, instanceID string, filter types.ResultFilter) ([]types.DriverResult, error)
}

// DependencyStore persists directed edges between instances.
type DependencyStore interface {
	CreateDependency(ctx context.Context, dep types.NewDriverDependency) (*types.DriverDependency, error)
	// GetDependencies returns edges where the instance is parent or child.
	GetDependencies(ctx context.Context, instanceID string) ([]types.DriverDependency, error)
	ListDependencies(ctx context.Context) ([]types.DriverDependency, error)
	DeleteDependency(ctx context.Context, id string) error
}

// Store defines the interface contract for all driver storage operations.
type Store interface {
	TemplateStore
	InstanceStore
	ResultStore
	DependencyStore
	GetStats(ctx context.Context) (*types.StoreStats, error)
	Close() error
}
