package payslip

import (
	"math"

	"github.com/garyjia/tax-document-analyzer/internal/models"
	"github.com/garyjia/tax-document-analyzer/internal/validation"
)

// epsilon absorbs binary float noise at the tolerance boundary
const epsilon = 1e-9

// Validate checks the payroll arithmetic of OCR-derived figures.
// Discrepancies are medium severity warnings only, so the report is always valid.
// Net pay is carried into the totals but not reconciled against the other figures.
func Validate(data *models.PayslipData, policy validation.Policy) models.ValidationReport {
	b := validation.NewBuilder()
	gross := data.Earnings.Gross()

	expectedINPS := validation.Round2(policy.ExpectedINPS(gross))
	if diff := math.Abs(expectedINPS - data.Contributions.INPS); diff > policy.INPSTolerance+epsilon {
		b.AddWarning(models.IssueINPSCalculation,
			"Contributi INPS dichiarati %.2f, attesi %.2f (%.2f%% di %.2f): differenza %.2f",
			data.Contributions.INPS, expectedINPS, policy.INPSRate*100, gross, diff)
	}

	expectedIRPEF := validation.Round2(policy.MonthlyIRPEF(gross))
	if diff := math.Abs(expectedIRPEF - data.Taxes.IRPEF); diff > policy.IRPEFTolerance+epsilon {
		b.AddWarning(models.IssueIRPEFCalculation,
			"IRPEF dichiarata %.2f, stima mensile %.2f su imponibile annuo %.2f: differenza %.2f",
			data.Taxes.IRPEF, expectedIRPEF, gross*12, diff)
	}

	contributions := validation.Round2(data.Contributions.INPS + data.Contributions.INAIL)
	taxes := validation.Round2(data.Taxes.IRPEF + data.Taxes.RegionalSurtax + data.Taxes.MunicipalSurtax)

	return b.Build(models.Totals{
		Gross:         validation.Float(validation.Round2(gross)),
		Contributions: validation.Float(contributions),
		Taxes:         validation.Float(taxes),
		Net:           validation.Float(validation.Round2(data.NetPay)),
	})
}
