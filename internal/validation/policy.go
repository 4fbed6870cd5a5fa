package validation

import "math"

// Bracket is one IRPEF income bracket. Limit is the upper bound of the bracket;
// zero means unbounded and is only valid for the last bracket.
type Bracket struct {
	Limit float64 `mapstructure:"limit" json:"limit"`
	Rate  float64 `mapstructure:"rate" json:"rate"`
}

// Policy holds the jurisdiction and year dependent constants used by the validators
type Policy struct {
	INPSRate              float64   `mapstructure:"inps_rate"`
	INPSTolerance         float64   `mapstructure:"inps_tolerance"`
	INPSFallbackTolerance float64   `mapstructure:"inps_fallback_tolerance"`
	IRPEFTolerance        float64   `mapstructure:"irpef_tolerance"`
	IRPEFBrackets         []Bracket `mapstructure:"irpef_brackets"`
	VATTolerance          float64   `mapstructure:"vat_tolerance"`
	StandardVATRates      []float64 `mapstructure:"standard_vat_rates"`
}

// DefaultPolicy returns the 2025 Italian figures
func DefaultPolicy() Policy {
	return Policy{
		INPSRate:              0.0919,
		INPSTolerance:         5,
		INPSFallbackTolerance: 10,
		IRPEFTolerance:        20,
		IRPEFBrackets: []Bracket{
			{Limit: 28000, Rate: 0.23},
			{Limit: 50000, Rate: 0.35},
			{Limit: 0, Rate: 0.43},
		},
		VATTolerance:     0.01,
		StandardVATRates: []float64{4, 10, 22},
	}
}

// ExpectedINPS is the employee social security contribution on a monthly gross
func (p Policy) ExpectedINPS(gross float64) float64 {
	return gross * p.INPSRate
}

// AnnualIRPEF applies the progressive brackets to an annual income
func (p Policy) AnnualIRPEF(income float64) float64 {
	tax := 0.0
	remaining := income
	lower := 0.0
	for _, b := range p.IRPEFBrackets {
		if remaining <= 0 {
			break
		}
		width := math.Inf(1)
		if b.Limit > 0 {
			width = b.Limit - lower
		}
		taxed := math.Min(remaining, width)
		tax += taxed * b.Rate
		remaining -= taxed
		lower = b.Limit
	}
	return tax
}

// MonthlyIRPEF annualizes a monthly gross, applies the brackets and returns the monthly share
func (p Policy) MonthlyIRPEF(monthlyGross float64) float64 {
	return p.AnnualIRPEF(monthlyGross*12) / 12
}

// IsStandardVATRate reports whether rate is one of the ordinary Italian VAT rates
func (p Policy) IsStandardVATRate(rate float64) bool {
	for _, r := range p.StandardVATRates {
		if ApproxEqual(r, rate, 0.001) {
			return true
		}
	}
	return false
}
