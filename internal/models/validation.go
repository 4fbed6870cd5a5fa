package models

// Severity levels for validation issues
const (
	SeverityHigh   = "high"
	SeverityMedium = "medium"
)

// Issue types
const (
	IssueIVACalculation   = "IVA_CALCULATION_ERROR"
	IssueINPSCalculation  = "INPS_CALCULATION_WARNING"
	IssueIRPEFCalculation = "IRPEF_CALCULATION_WARNING"
)

// Issue is a single validation finding
type Issue struct {
	Type     string `json:"type"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

// ValidationReport is attached to both document types.
// IsValid is true iff Errors is empty; warnings never affect validity.
type ValidationReport struct {
	IsValid  bool    `json:"is_valid"`
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
	Totals   Totals  `json:"totals"`
}

// Totals are recomputed aggregates. Only the figures relevant to the document type are set.
type Totals struct {
	Imponibile    *float64 `json:"imponibile,omitempty"`
	IVA           *float64 `json:"iva,omitempty"`
	Totale        *float64 `json:"totale,omitempty"`
	Gross         *float64 `json:"gross,omitempty"`
	Contributions *float64 `json:"contributions,omitempty"`
	Taxes         *float64 `json:"taxes,omitempty"`
	Net           *float64 `json:"net,omitempty"`
}
