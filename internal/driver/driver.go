// Package driver implements the business driver formulas. Each driver type
// owns a typed input struct whose Calculate method is pure and deterministic.
package driver

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hyperengineering/driverlib/internal/types"
)

// ErrUnknownDriverType indicates a template or request names a driver type
// outside the built-in catalog.
var ErrUnknownDriverType = errors.New("unknown driver type")

// Output field names shared by every driver.
const (
	FieldRevenue   = "revenue"
	FieldCustomers = "customers"
	FieldUnits     = "units"
)

const (
	monthsPerYear        = 12
	percentageMultiplier = 100.0
)

// Result is the projection of one driver for one period.
// Customers and Units are nil for drivers that do not project them.
type Result struct {
	Revenue   float64            `json:"revenue"`
	Customers *float64           `json:"customers,omitempty"`
	Units     *float64           `json:"units,omitempty"`
	Breakdown map[string]float64 `json:"breakdown"`
}

// MarshalJSON writes non-finite numbers as null.
func (r Result) MarshalJSON() ([]byte, error) {
	out := struct {
		Revenue   *float64            `json:"revenue"`
		Customers *float64            `json:"customers,omitempty"`
		Units     *float64            `json:"units,omitempty"`
		Breakdown map[string]*float64 `json:"breakdown"`
	}{
		Revenue:   types.NullableFloat(r.Revenue),
		Breakdown: types.NullableFloats(r.Breakdown),
	}
	if r.Customers != nil {
		out.Customers = types.NullableFloat(*r.Customers)
	}
	if r.Units != nil {
		out.Units = types.NullableFloat(*r.Units)
	}
	return json.Marshal(out)
}

// Field looks up a named output: revenue, customers, units, or a breakdown key.
func (r Result) Field(name string) (float64, bool) {
	switch name {
	case FieldRevenue:
		return r.Revenue, true
	case FieldCustomers:
		if r.Customers == nil {
			return 0, false
		}
		return *r.Customers, true
	case FieldUnits:
		if r.Units == nil {
			return 0, false
		}
		return *r.Units, true
	}
	v, ok := r.Breakdown[name]
	return v, ok
}

// Driver is a decoded, strongly typed set of inputs for one driver type.
type Driver interface {
	Type() types.DriverType
	// Calculate projects one period. monthIndex is the zero-based month
	// offset from the start of the projection window.
	Calculate(monthIndex int) Result
}

// decoder builds a typed driver from an input bag.
type decoder func(in types.Inputs) Driver

var decoders = map[types.DriverType]decoder{
	types.DriverVolumePrice:       decodeVolumePrice,
	types.DriverCAC:               decodeCAC,
	types.DriverRetention:         decodeRetention,
	types.DriverFunnel:            decodeFunnel,
	types.DriverSeasonality:       decodeSeasonality,
	types.DriverContractTerms:     decodeContractTerms,
	types.DriverSalesProductivity: decodeSalesProductivity,
	types.DriverDiscounting:       decodeDiscounting,
}

// breakdownFields lists the breakdown keys each driver produces.
var breakdownFields = map[types.DriverType][]string{
	types.DriverVolumePrice:       {"adjusted_units", "adjusted_price", "units_growth_pct", "price_growth_pct"},
	types.DriverCAC:               {"new_customers", "ltv", "cac_ratio"},
	types.DriverRetention:         {"retention_rate_pct", "churned_customers", "retained_customers"},
	types.DriverFunnel:            {"opportunities", "closed_customers", "overall_conversion_pct"},
	types.DriverSeasonality:       {"base_revenue", "seasonality_index", "seasonal_adjustment_pct"},
	types.DriverContractTerms:     {"new_revenue", "renewal_revenue", "expected_renewals"},
	types.DriverSalesProductivity: {"effective_quota", "ramp_discount_pct", "total_capacity", "productivity_rate_pct"},
	types.DriverDiscounting:       {"discounted_price", "adjusted_units", "volume_lift_pct", "revenue_impact_pct"},
}

// projectsCustomers and projectsUnits mirror which optional outputs each
// driver's Calculate fills in.
var (
	projectsCustomers = map[types.DriverType]bool{
		types.DriverCAC:           true,
		types.DriverRetention:     true,
		types.DriverFunnel:        true,
		types.DriverContractTerms: true,
	}
	projectsUnits = map[types.DriverType]bool{
		types.DriverVolumePrice: true,
		types.DriverDiscounting: true,
	}
)

// Known reports whether t is a built-in driver type.
func Known(t types.DriverType) bool {
	_, ok := decoders[t]
	return ok
}

// Decode converts an input bag into the typed driver for t. Missing numeric
// inputs decode as zero; bounds are not checked here.
func Decode(t types.DriverType, in types.Inputs) (Driver, error) {
	dec, ok := decoders[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriverType, t)
	}
	return dec(in), nil
}

// Calculate decodes the inputs for t and projects the given month.
func Calculate(t types.DriverType, in types.Inputs, monthIndex int) (Result, error) {
	d, err := Decode(t, in)
	if err != nil {
		return Result{}, err
	}
	return d.Calculate(monthIndex), nil
}

// OutputFields returns every output name a driver of type t can feed into a
// dependent instance.
func OutputFields(t types.DriverType) ([]string, error) {
	if !Known(t) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriverType, t)
	}
	fields := []string{FieldRevenue}
	if projectsCustomers[t] {
		fields = append(fields, FieldCustomers)
	}
	if projectsUnits[t] {
		fields = append(fields, FieldUnits)
	}
	return append(fields, breakdownFields[t]...), nil
}

func num(in types.Inputs, name string) float64 {
	v, _ := in.Number(name)
	return v
}

func ptr(v float64) *float64 {
	return &v
}
