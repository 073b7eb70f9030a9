package types

import (
	"encoding/json"
	"time"
)

// DriverType identifies one of the built-in driver formulas.
type DriverType string

const (
	DriverVolumePrice       DriverType = "volume_price"
	DriverCAC               DriverType = "cac"
	DriverRetention         DriverType = "retention"
	DriverFunnel            DriverType = "funnel"
	DriverSeasonality       DriverType = "seasonality"
	DriverContractTerms     DriverType = "contract_terms"
	DriverSalesProductivity DriverType = "sales_productivity"
	DriverDiscounting       DriverType = "discounting"
)

// DriverTypes lists every driver type in catalog order.
var DriverTypes = []DriverType{
	DriverVolumePrice,
	DriverCAC,
	DriverRetention,
	DriverFunnel,
	DriverSeasonality,
	DriverContractTerms,
	DriverSalesProductivity,
	DriverDiscounting,
}

// ValueKind describes the shape of a single template input.
type ValueKind string

const (
	KindNumber     ValueKind = "number"
	KindPercentage ValueKind = "percentage"
	KindCurrency   ValueKind = "currency"
	KindNumberList ValueKind = "number_list"
	KindText       ValueKind = "text"
)

// IsNumeric reports whether the kind holds a single number.
func (k ValueKind) IsNumeric() bool {
	return k == KindNumber || k == KindPercentage || k == KindCurrency
}

// PeriodType is the granularity of a result row.
type PeriodType string

const (
	PeriodMonth   PeriodType = "month"
	PeriodQuarter PeriodType = "quarter"
)

// DateLayout is the ISO calendar date format used for period boundaries.
const DateLayout = "2006-01-02"

// InputField declares one named input of a driver template.
// Min and Max are nil when the field is unbounded.
type InputField struct {
	Name     string    `json:"name" yaml:"name" toml:"name"`
	Label    string    `json:"label" yaml:"label" toml:"label"`
	Kind     ValueKind `json:"kind" yaml:"kind" toml:"kind"`
	Required bool      `json:"required" yaml:"required" toml:"required"`
	Default  any       `json:"default,omitempty" yaml:"default,omitempty" toml:"default,omitempty"`
	Min      *float64  `json:"min,omitempty" yaml:"min,omitempty" toml:"min,omitempty"`
	Max      *float64  `json:"max,omitempty" yaml:"max,omitempty" toml:"max,omitempty"`
}

// DriverTemplate is catalog reference data describing a driver type and its inputs.
type DriverTemplate struct {
	ID          string       `json:"id" yaml:"-" toml:"-"`
	Type        DriverType   `json:"type" yaml:"type" toml:"type"`
	Name        string       `json:"name" yaml:"name" toml:"name"`
	Description string       `json:"description,omitempty" yaml:"description,omitempty" toml:"description,omitempty"`
	InputSchema []InputField `json:"input_schema" yaml:"input_schema" toml:"input_schema"`
	Formula     string       `json:"formula" yaml:"formula" toml:"formula"`
	CreatedAt   time.Time    `json:"created_at" yaml:"-" toml:"-"`
	UpdatedAt   time.Time    `json:"updated_at" yaml:"-" toml:"-"`
}

// Field returns the schema entry with the given name.
func (t *DriverTemplate) Field(name string) (InputField, bool) {
	for _, f := range t.InputSchema {
		if f.Name == name {
			return f, true
		}
	}
	return InputField{}, false
}

// Configuration is the date window an instance is projected over.
type Configuration struct {
	PeriodStart string     `json:"period_start"`
	PeriodEnd   string     `json:"period_end"`
	PeriodType  PeriodType `json:"period_type"`
}

// DriverInstance binds a template to concrete inputs and a date window.
type DriverInstance struct {
	ID                string          `json:"id"`
	TemplateID        string          `json:"template_id"`
	ForecastVersionID *string         `json:"forecast_version_id,omitempty"`
	Name              string          `json:"name"`
	Inputs            Inputs          `json:"inputs"`
	Configuration     Configuration   `json:"configuration"`
	Template          *DriverTemplate `json:"template,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// NewDriverInstance is the input type for creating an instance (without generated fields).
type NewDriverInstance struct {
	TemplateID        string        `json:"template_id"`
	ForecastVersionID *string       `json:"forecast_version_id,omitempty"`
	Name              string        `json:"name"`
	Inputs            Inputs        `json:"inputs"`
	Configuration     Configuration `json:"configuration"`
}

// InstanceUpdate carries a partial instance change. Nil fields are left as-is;
// Inputs are merged key by key.
type InstanceUpdate struct {
	Name          *string        `json:"name,omitempty"`
	Inputs        Inputs         `json:"inputs,omitempty"`
	Configuration *Configuration `json:"configuration,omitempty"`
}

// DriverResult is one materialized period of an instance's projection.
// (InstanceID, PeriodType, PeriodDate) is its natural key.
type DriverResult struct {
	ID               string             `json:"id"`
	InstanceID       string             `json:"instance_id"`
	PeriodType       PeriodType         `json:"period_type"`
	PeriodDate       string             `json:"period_date"`
	Revenue          float64            `json:"revenue"`
	Customers        *float64           `json:"customers,omitempty"`
	Units            *float64           `json:"units,omitempty"`
	CalculatedValues map[string]float64 `json:"calculated_values"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// MarshalJSON writes a nil CalculatedValues as {} and non-finite numbers as null.
func (r DriverResult) MarshalJSON() ([]byte, error) {
	type Alias DriverResult
	return json.Marshal(struct {
		Alias
		Revenue          *float64            `json:"revenue"`
		Customers        *float64            `json:"customers,omitempty"`
		Units            *float64            `json:"units,omitempty"`
		CalculatedValues map[string]*float64 `json:"calculated_values"`
	}{
		Alias:            Alias(r),
		Revenue:          NullableFloat(r.Revenue),
		Customers:        nullablePtr(r.Customers),
		Units:            nullablePtr(r.Units),
		CalculatedValues: NullableFloats(r.CalculatedValues),
	})
}

// ResultFilter narrows a result listing. Empty fields are ignored;
// From and To are inclusive ISO dates.
type ResultFilter struct {
	PeriodType PeriodType
	From       string
	To         string
}

// DriverDependency is a directed edge feeding a parent's output fields into
// a child's inputs. Mapping is parent output field -> child input field.
type DriverDependency struct {
	ID               string            `json:"id"`
	ParentInstanceID string            `json:"parent_instance_id"`
	ChildInstanceID  string            `json:"child_instance_id"`
	Mapping          map[string]string `json:"mapping"`
	CreatedAt        time.Time         `json:"created_at"`
}

// NewDriverDependency is the input type for creating an edge.
type NewDriverDependency struct {
	ParentInstanceID string            `json:"parent_instance_id"`
	ChildInstanceID  string            `json:"child_instance_id"`
	Mapping          map[string]string `json:"mapping"`
}

// StoreStats holds aggregate store statistics.
type StoreStats struct {
	TemplateCount   int64 `json:"template_count"`
	InstanceCount   int64 `json:"instance_count"`
	ResultCount     int64 `json:"result_count"`
	DependencyCount int64 `json:"dependency_count"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status  string     `json:"status"`
	Version string     `json:"version"`
	Stats   StoreStats `json:"stats"`
}

// CalculateRequest asks for a single stateless calculation.
type CalculateRequest struct {
	DriverType DriverType `json:"driver_type"`
	Inputs     Inputs     `json:"inputs"`
	MonthIndex int        `json:"month_index"`
}

// GenerateResponse carries the rows written by one generation run.
type GenerateResponse struct {
	InstanceID string         `json:"instance_id"`
	Results    []DriverResult `json:"results"`
}

// ListResponse wraps a collection for JSON responses.
type ListResponse[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

// NewListResponse builds a ListResponse, writing a nil slice as [].
func NewListResponse[T any](items []T) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Items: items, Total: len(items)}
}
