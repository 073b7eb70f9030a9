package driver

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/hyperengineering/driverlib/internal/types"
)

func bound(v float64) *float64 { return &v }

func number(name, label string, def float64, min, max *float64) types.InputField {
	return types.InputField{Name: name, Label: label, Kind: types.KindNumber, Required: true, Default: def, Min: min, Max: max}
}

func currency(name, label string, def float64) types.InputField {
	return types.InputField{Name: name, Label: label, Kind: types.KindCurrency, Required: true, Default: def, Min: bound(0)}
}

func percentage(name, label string, def float64, min, max *float64) types.InputField {
	return types.InputField{Name: name, Label: label, Kind: types.KindPercentage, Required: true, Default: def, Min: min, Max: max}
}

// DefaultTemplates returns the built-in catalog, one template per driver type.
// Callers pass it (or a replacement loaded with LoadTemplates) to the store's
// seeding step; nothing here is registered implicitly.
func DefaultTemplates() []types.DriverTemplate {
	return []types.DriverTemplate{
		{
			Type:        types.DriverVolumePrice,
			Name:        "Volume x Price",
			Description: "Unit volume multiplied by average selling price, each with its own growth rate.",
			Formula:     "base_units*(1+growth_units_pct/100) * base_asp*(1+price_adjustment_pct/100)",
			InputSchema: []types.InputField{
				number("base_units", "Base units", 1000, bound(0), nil),
				percentage("growth_units_pct", "Unit growth %", 0, bound(-100), nil),
				currency("base_asp", "Base ASP", 100),
				percentage("price_adjustment_pct", "Price adjustment %", 0, bound(-100), nil),
			},
		},
		{
			Type:        types.DriverCAC,
			Name:        "Customer Acquisition",
			Description: "Marketing spend converted to new customers at a fixed CAC.",
			Formula:     "marketing_spend/cac * arpu * period_months",
			InputSchema: []types.InputField{
				currency("marketing_spend", "Marketing spend", 50000),
				{Name: "cac", Label: "CAC", Kind: types.KindCurrency, Required: true, Default: 500.0, Min: bound(0.01)},
				currency("arpu", "ARPU", 100),
				number("period_months", "Period (months)", 12, bound(1), bound(120)),
			},
		},
		{
			Type:        types.DriverRetention,
			Name:        "Retention / Churn",
			Description: "Starting customers decayed by a monthly churn rate.",
			Formula:     "starting_customers*(1-churn_rate_pct/100)^period_months * arpu * period_months",
			InputSchema: []types.InputField{
				number("starting_customers", "Starting customers", 1000, bound(0), nil),
				percentage("churn_rate_pct", "Monthly churn %", 5, bound(0), bound(100)),
				currency("arpu", "ARPU", 100),
				number("period_months", "Period (months)", 12, bound(0), bound(120)),
			},
		},
		{
			Type:        types.DriverFunnel,
			Name:        "Sales Funnel",
			Description: "Leads converted through opportunity and close stages.",
			Formula:     "leads * lead_to_opportunity_pct/100 * opportunity_to_close_pct/100 * arpu",
			InputSchema: []types.InputField{
				number("leads", "Leads", 1000, bound(0), nil),
				percentage("lead_to_opportunity_pct", "Lead to opportunity %", 20, bound(0), bound(100)),
				percentage("opportunity_to_close_pct", "Opportunity to close %", 25, bound(0), bound(100)),
				currency("arpu", "ARPU", 2000),
			},
		},
		{
			Type:        types.DriverSeasonality,
			Name:        "Seasonality",
			Description: "Base revenue scaled by a monthly seasonality index.",
			Formula:     "base_revenue * seasonality_indices[month % 12]",
			InputSchema: []types.InputField{
				currency("base_revenue", "Base revenue", 100000),
				{
					Name:     "seasonality_indices",
					Label:    "Monthly indices",
					Kind:     types.KindNumberList,
					Required: true,
					Default:  []float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1},
					Min:      bound(0),
				},
			},
		},
		{
			Type:        types.DriverContractTerms,
			Name:        "Contract Terms",
			Description: "Contract value booked up front plus expected renewals.",
			Formula:     "new_customers*arpu*contract_length_months * (1 + renewal_rate_pct/100)",
			InputSchema: []types.InputField{
				number("new_customers", "New customers", 50, bound(0), nil),
				currency("arpu", "ARPU (monthly)", 1000),
				number("contract_length_months", "Contract length (months)", 12, bound(1), bound(120)),
				percentage("renewal_rate_pct", "Renewal rate %", 80, bound(0), bound(100)),
			},
		},
		{
			Type:        types.DriverSalesProductivity,
			Name:        "Sales Productivity",
			Description: "Rep capacity discounted while new reps ramp.",
			Formula:     "sales_reps * quota_per_rep * (1 - min(ramp_up_period/12,1)*0.5)",
			InputSchema: []types.InputField{
				number("sales_reps", "Sales reps", 10, bound(0), nil),
				currency("quota_per_rep", "Quota per rep", 100000),
				number("ramp_up_period", "Ramp-up (months)", 3, bound(0), bound(24)),
			},
		},
		{
			Type:        types.DriverDiscounting,
			Name:        "Discount Elasticity",
			Description: "Price discount traded for volume through an elasticity factor.",
			Formula:     "base_asp*(1-discount_pct/100) * base_units*(1+discount_pct*volume_elasticity/100)",
			InputSchema: []types.InputField{
				currency("base_asp", "Base ASP", 100),
				percentage("discount_pct", "Discount %", 10, bound(0), bound(100)),
				number("volume_elasticity", "Volume elasticity", 1.5, bound(0), bound(10)),
				number("base_units", "Base units", 1000, bound(0), nil),
			},
		},
	}
}

type templateFile struct {
	Templates []types.DriverTemplate `yaml:"templates" toml:"templates"`
}

// LoadTemplates reads a seed list from a YAML (.yaml, .yml) or TOML (.toml)
// file. Every template must name a built-in driver type.
func LoadTemplates(path string) ([]types.DriverTemplate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading template file: %w", err)
	}

	var file templateFile
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &file)
	case ".toml":
		err = toml.Unmarshal(data, &file)
	default:
		return nil, fmt.Errorf("unsupported template file extension %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing template file: %w", err)
	}

	for i, t := range file.Templates {
		if !Known(t.Type) {
			return nil, fmt.Errorf("template %d: %w: %q", i, ErrUnknownDriverType, t.Type)
		}
	}
	return file.Templates, nil
}
