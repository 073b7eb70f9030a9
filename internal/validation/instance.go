package validation

import (
	"fmt"
	"sort"
	"time"

	"github.com/hyperengineering/driverlib/internal/types"
)

// MaxNameLength is the longest instance name accepted, in runes.
const MaxNameLength = 200

// ValidateInstance checks a complete instance payload against its template:
// the name, every input against the schema, and the date window.
func ValidateInstance(name string, inputs types.Inputs, cfg types.Configuration, tmpl *types.DriverTemplate) error {
	var c Collector
	c.Add(ValidateRequired("name", name))
	c.Add(ValidateMaxLength("name", name, MaxNameLength))
	c.Add(ValidateUTF8("name", name))
	c.Add(ValidateNoNullBytes("name", name))

	for _, e := range ValidateInputs(tmpl.InputSchema, inputs) {
		c.Add(&e)
	}
	for _, e := range ValidateConfiguration(cfg) {
		c.Add(&e)
	}
	return c.Err()
}

// ValidateInputs checks an input bag against a template schema: required
// fields are present, each value has the declared kind, and numbers respect
// the declared min and max. Inputs the schema does not declare are rejected.
func ValidateInputs(schema []types.InputField, in types.Inputs) []ValidationError {
	var c Collector
	declared := make(map[string]bool, len(schema))

	for _, f := range schema {
		declared[f.Name] = true
		field := "inputs." + f.Name

		if _, present := in[f.Name]; !present {
			if f.Required {
				c.Add(&ValidationError{Field: field, Message: "is required"})
			}
			continue
		}

		switch {
		case f.Kind.IsNumeric():
			v, ok := in.Number(f.Name)
			if !ok {
				c.Add(&ValidationError{Field: field, Message: "must be a number"})
				continue
			}
			c.Add(validateBounds(field, v, f))
		case f.Kind == types.KindNumberList:
			vs, ok := in.Numbers(f.Name)
			if !ok {
				c.Add(&ValidationError{Field: field, Message: "must be a list of numbers"})
				continue
			}
			for i, v := range vs {
				c.Add(validateBounds(fmt.Sprintf("%s[%d]", field, i), v, f))
			}
		case f.Kind == types.KindText:
			if _, ok := in.Text(f.Name); !ok {
				c.Add(&ValidationError{Field: field, Message: "must be a string"})
			}
		default:
			c.Add(&ValidationError{Field: field, Message: fmt.Sprintf("has unsupported kind %q", f.Kind)})
		}
	}

	// Sorted so repeated validation reports unknown fields in a stable order.
	var unknown []string
	for name := range in {
		if !declared[name] {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	for _, name := range unknown {
		c.Add(&ValidationError{Field: "inputs." + name, Message: "is not declared by the template"})
	}

	return c.Errors()
}

func validateBounds(field string, v float64, f types.InputField) *ValidationError {
	switch {
	case f.Min != nil && f.Max != nil:
		return ValidateRange(field, v, *f.Min, *f.Max)
	case f.Min != nil:
		return ValidateMin(field, v, *f.Min)
	case f.Max != nil:
		return ValidateMax(field, v, *f.Max)
	}
	return nil
}

// ValidateConfiguration checks the date window: ISO dates, start not after
// end, and a known period type.
func ValidateConfiguration(cfg types.Configuration) []ValidationError {
	var c Collector

	start, startErr := time.Parse(types.DateLayout, cfg.PeriodStart)
	if startErr != nil {
		c.Add(&ValidationError{Field: "configuration.period_start", Message: "must be a date in YYYY-MM-DD format"})
	}
	end, endErr := time.Parse(types.DateLayout, cfg.PeriodEnd)
	if endErr != nil {
		c.Add(&ValidationError{Field: "configuration.period_end", Message: "must be a date in YYYY-MM-DD format"})
	}
	if startErr == nil && endErr == nil && end.Before(start) {
		c.Add(&ValidationError{Field: "configuration.period_end", Message: "must not be before period_start"})
	}
	c.Add(ValidateEnum("configuration.period_type", string(cfg.PeriodType),
		[]string{string(types.PeriodMonth), string(types.PeriodQuarter)}))

	return c.Errors()
}

// ValidateDependency checks an edge payload before graph-level checks run.
func ValidateDependency(dep types.NewDriverDependency) error {
	var c Collector
	c.Add(ValidateULID("parent_instance_id", dep.ParentInstanceID))
	c.Add(ValidateULID("child_instance_id", dep.ChildInstanceID))
	if len(dep.Mapping) == 0 {
		c.Add(&ValidationError{Field: "mapping", Message: "must map at least one field"})
	}

	keys := make([]string, 0, len(dep.Mapping))
	for k := range dep.Mapping {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		c.Add(ValidateRequired("mapping."+k, dep.Mapping[k]))
	}
	return c.Err()
}
