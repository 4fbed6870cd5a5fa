package payslip

import (
	"testing"

	"github.com/garyjia/tax-document-analyzer/internal/models"
	"github.com/garyjia/tax-document-analyzer/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func payslipWith(gross, inps, irpef float64) *models.PayslipData {
	return &models.PayslipData{
		Earnings:      models.Earnings{BaseSalary: gross},
		Contributions: models.Contributions{INPS: inps},
		Taxes:         models.Taxes{IRPEF: irpef},
	}
}

func TestValidate_INPSBoundary(t *testing.T) {
	policy := validation.DefaultPolicy()

	report := Validate(payslipWith(2000, 183.80, 460), policy)
	assert.True(t, report.IsValid)
	assert.Empty(t, report.Warnings)

	report = Validate(payslipWith(2000, 170.00, 460), policy)
	assert.True(t, report.IsValid, "warnings never invalidate a payslip")
	assert.Empty(t, report.Errors)
	require.Len(t, report.Warnings, 1)
	assert.Equal(t, models.IssueINPSCalculation, report.Warnings[0].Type)
	assert.Equal(t, models.SeverityMedium, report.Warnings[0].Severity)
	assert.Contains(t, report.Warnings[0].Message, "13.80")
}

func TestValidate_INPSWithinTolerance(t *testing.T) {
	report := Validate(payslipWith(2000, 178.80, 460), validation.DefaultPolicy())
	assert.Empty(t, report.Warnings)
}

func TestValidate_IRPEFWarning(t *testing.T) {
	policy := validation.DefaultPolicy()

	// 2000/month -> 460 expected
	assert.Empty(t, Validate(payslipWith(2000, 183.80, 475), policy).Warnings)

	report := Validate(payslipWith(2000, 183.80, 300), policy)
	require.Len(t, report.Warnings, 1)
	assert.Equal(t, models.IssueIRPEFCalculation, report.Warnings[0].Type)
}

func TestValidate_GrossSumsAllEarnings(t *testing.T) {
	data := &models.PayslipData{
		Earnings:      models.Earnings{BaseSalary: 1800, Allowance: 150, Overtime: 50},
		Contributions: models.Contributions{INPS: 183.80, INAIL: 4.20},
		Taxes:         models.Taxes{IRPEF: 460, RegionalSurtax: 28.50, MunicipalSurtax: 12.30},
		NetPay:        1315.40,
	}
	report := Validate(data, validation.DefaultPolicy())

	assert.Empty(t, report.Warnings)
	assert.InDelta(t, 2000.0, *report.Totals.Gross, 0.001)
	assert.InDelta(t, 188.0, *report.Totals.Contributions, 0.001)
	assert.InDelta(t, 500.8, *report.Totals.Taxes, 0.001)
	assert.InDelta(t, 1315.40, *report.Totals.Net, 0.001)
	assert.Nil(t, report.Totals.IVA)
}

func TestValidate_EmptyPayslipNeverFails(t *testing.T) {
	report := Validate(&models.PayslipData{}, validation.DefaultPolicy())
	assert.True(t, report.IsValid)
	assert.Empty(t, report.Warnings)
}
