package driver

import (
	"math"

	"github.com/hyperengineering/driverlib/internal/types"
)

// VolumePrice grows a unit base and an average selling price independently.
type VolumePrice struct {
	BaseUnits          float64
	GrowthUnitsPct     float64
	BaseASP            float64
	PriceAdjustmentPct float64
}

func decodeVolumePrice(in types.Inputs) Driver {
	return VolumePrice{
		BaseUnits:          num(in, "base_units"),
		GrowthUnitsPct:     num(in, "growth_units_pct"),
		BaseASP:            num(in, "base_asp"),
		PriceAdjustmentPct: num(in, "price_adjustment_pct"),
	}
}

func (VolumePrice) Type() types.DriverType { return types.DriverVolumePrice }

func (d VolumePrice) Calculate(int) Result {
	units := d.BaseUnits * (1 + d.GrowthUnitsPct/percentageMultiplier)
	price := d.BaseASP * (1 + d.PriceAdjustmentPct/percentageMultiplier)
	return Result{
		Revenue: units * price,
		Units:   ptr(units),
		Breakdown: map[string]float64{
			"adjusted_units":   units,
			"adjusted_price":   price,
			"units_growth_pct": d.GrowthUnitsPct,
			"price_growth_pct": d.PriceAdjustmentPct,
		},
	}
}

// CAC converts marketing spend into customers at a fixed acquisition cost.
type CAC struct {
	MarketingSpend float64
	CAC            float64
	ARPU           float64
	PeriodMonths   float64
}

func decodeCAC(in types.Inputs) Driver {
	return CAC{
		MarketingSpend: num(in, "marketing_spend"),
		CAC:            num(in, "cac"),
		ARPU:           num(in, "arpu"),
		PeriodMonths:   num(in, "period_months"),
	}
}

func (CAC) Type() types.DriverType { return types.DriverCAC }

func (d CAC) Calculate(int) Result {
	customers := d.MarketingSpend / d.CAC
	ltv := d.ARPU * d.PeriodMonths
	return Result{
		Revenue:   customers * d.ARPU * d.PeriodMonths,
		Customers: ptr(customers),
		Breakdown: map[string]float64{
			"new_customers": customers,
			"ltv":           ltv,
			"cac_ratio":     ltv / d.CAC,
		},
	}
}

// Retention compounds a monthly churn rate over a customer base.
type Retention struct {
	StartingCustomers float64
	ChurnRatePct      float64
	ARPU              float64
	PeriodMonths      float64
}

func decodeRetention(in types.Inputs) Driver {
	return Retention{
		StartingCustomers: num(in, "starting_customers"),
		ChurnRatePct:      num(in, "churn_rate_pct"),
		ARPU:              num(in, "arpu"),
		PeriodMonths:      num(in, "period_months"),
	}
}

func (Retention) Type() types.DriverType { return types.DriverRetention }

func (d Retention) Calculate(int) Result {
	rate := 1 - d.ChurnRatePct/percentageMultiplier
	retained := d.StartingCustomers * math.Pow(rate, d.PeriodMonths)
	return Result{
		Revenue:   retained * d.ARPU * d.PeriodMonths,
		Customers: ptr(retained),
		Breakdown: map[string]float64{
			"retention_rate_pct": rate * percentageMultiplier,
			"churned_customers":  d.StartingCustomers - retained,
			"retained_customers": retained,
		},
	}
}

// Funnel converts leads to opportunities to closed customers.
type Funnel struct {
	Leads                 float64
	LeadToOpportunityPct  float64
	OpportunityToClosePct float64
	ARPU                  float64
}

func decodeFunnel(in types.Inputs) Driver {
	return Funnel{
		Leads:                 num(in, "leads"),
		LeadToOpportunityPct:  num(in, "lead_to_opportunity_pct"),
		OpportunityToClosePct: num(in, "opportunity_to_close_pct"),
		ARPU:                  num(in, "arpu"),
	}
}

func (Funnel) Type() types.DriverType { return types.DriverFunnel }

func (d Funnel) Calculate(int) Result {
	opportunities := d.Leads * (d.LeadToOpportunityPct / percentageMultiplier)
	customers := opportunities * (d.OpportunityToClosePct / percentageMultiplier)
	conversion := d.LeadToOpportunityPct / percentageMultiplier *
		(d.OpportunityToClosePct / percentageMultiplier) * percentageMultiplier
	return Result{
		Revenue:   customers * d.ARPU,
		Customers: ptr(customers),
		Breakdown: map[string]float64{
			"opportunities":          opportunities,
			"closed_customers":       customers,
			"overall_conversion_pct": conversion,
		},
	}
}

// Seasonality scales a base revenue by a twelve-slot monthly index.
type Seasonality struct {
	BaseRevenue float64
	Indices     []float64
}

func decodeSeasonality(in types.Inputs) Driver {
	indices, _ := in.Numbers("seasonality_indices")
	return Seasonality{
		BaseRevenue: num(in, "base_revenue"),
		Indices:     indices,
	}
}

func (Seasonality) Type() types.DriverType { return types.DriverSeasonality }

// Index returns the multiplier for monthIndex, wrapping every twelve months.
// Slots missing from Indices default to 1.
func (d Seasonality) Index(monthIndex int) float64 {
	slot := ((monthIndex % monthsPerYear) + monthsPerYear) % monthsPerYear
	if slot < len(d.Indices) {
		return d.Indices[slot]
	}
	return 1
}

func (d Seasonality) Calculate(monthIndex int) Result {
	index := d.Index(monthIndex)
	return Result{
		Revenue: d.BaseRevenue * index,
		Breakdown: map[string]float64{
			"base_revenue":            d.BaseRevenue,
			"seasonality_index":       index,
			"seasonal_adjustment_pct": (index - 1) * percentageMultiplier,
		},
	}
}

// ContractTerms books contract value up front plus expected renewals.
type ContractTerms struct {
	NewCustomers         float64
	ARPU                 float64
	ContractLengthMonths float64
	RenewalRatePct       float64
}

func decodeContractTerms(in types.Inputs) Driver {
	return ContractTerms{
		NewCustomers:         num(in, "new_customers"),
		ARPU:                 num(in, "arpu"),
		ContractLengthMonths: num(in, "contract_length_months"),
		RenewalRatePct:       num(in, "renewal_rate_pct"),
	}
}

func (ContractTerms) Type() types.DriverType { return types.DriverContractTerms }

func (d ContractTerms) Calculate(int) Result {
	renewals := d.NewCustomers * (d.RenewalRatePct / percentageMultiplier)
	newRevenue := d.NewCustomers * d.ARPU * d.ContractLengthMonths
	renewalRevenue := renewals * d.ARPU * d.ContractLengthMonths
	return Result{
		Revenue:   newRevenue + renewalRevenue,
		Customers: ptr(d.NewCustomers),
		Breakdown: map[string]float64{
			"new_revenue":       newRevenue,
			"renewal_revenue":   renewalRevenue,
			"expected_renewals": renewals,
		},
	}
}

// SalesProductivity discounts rep quota while reps ramp up, capped at 50%.
type SalesProductivity struct {
	SalesReps    float64
	QuotaPerRep  float64
	RampUpPeriod float64
}

const maxRampDiscount = 0.5

func decodeSalesProductivity(in types.Inputs) Driver {
	return SalesProductivity{
		SalesReps:    num(in, "sales_reps"),
		QuotaPerRep:  num(in, "quota_per_rep"),
		RampUpPeriod: num(in, "ramp_up_period"),
	}
}

func (SalesProductivity) Type() types.DriverType { return types.DriverSalesProductivity }

func (d SalesProductivity) Calculate(int) Result {
	rampDiscount := math.Min(d.RampUpPeriod/monthsPerYear, 1) * maxRampDiscount
	effectiveQuota := d.QuotaPerRep * (1 - rampDiscount)
	return Result{
		Revenue: d.SalesReps * effectiveQuota,
		Breakdown: map[string]float64{
			"effective_quota":       effectiveQuota,
			"ramp_discount_pct":     rampDiscount * percentageMultiplier,
			"total_capacity":        d.SalesReps * d.QuotaPerRep,
			"productivity_rate_pct": effectiveQuota / d.QuotaPerRep * percentageMultiplier,
		},
	}
}

// Discounting trades price for volume through a linear elasticity.
type Discounting struct {
	BaseASP          float64
	DiscountPct      float64
	VolumeElasticity float64
	BaseUnits        float64
}

func decodeDiscounting(in types.Inputs) Driver {
	return Discounting{
		BaseASP:          num(in, "base_asp"),
		DiscountPct:      num(in, "discount_pct"),
		VolumeElasticity: num(in, "volume_elasticity"),
		BaseUnits:        num(in, "base_units"),
	}
}

func (Discounting) Type() types.DriverType { return types.DriverDiscounting }

func (d Discounting) Calculate(int) Result {
	price := d.BaseASP * (1 - d.DiscountPct/percentageMultiplier)
	lift := d.DiscountPct * d.VolumeElasticity
	units := d.BaseUnits * (1 + lift/percentageMultiplier)
	revenue := price * units
	baseline := d.BaseASP * d.BaseUnits
	return Result{
		Revenue: revenue,
		Units:   ptr(units),
		Breakdown: map[string]float64{
			"discounted_price":   price,
			"adjusted_units":     units,
			"volume_lift_pct":    lift,
			"revenue_impact_pct": (revenue - baseline) / baseline * percentageMultiplier,
		},
	}
}
