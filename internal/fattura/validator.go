package fattura

import (
	"math"

	"github.com/garyjia/tax-document-analyzer/internal/models"
	"github.com/garyjia/tax-document-analyzer/internal/validation"
)

// epsilon absorbs binary float noise so a difference of exactly one cent is not flagged
const epsilon = 1e-9

// Validate checks each VAT summary entry and recomputes the invoice totals.
// Totals are never read from ImportoTotaleDocumento.
func Validate(body *models.InvoiceBody, policy validation.Policy) models.ValidationReport {
	b := validation.NewBuilder()

	var imponibile, iva float64
	for i, entry := range body.VATSummary {
		imponibile += entry.TaxableAmount
		iva += entry.TaxAmount

		expected := validation.Round2(entry.TaxableAmount * entry.Rate / 100)
		if math.Abs(expected-entry.TaxAmount) > policy.VATTolerance+epsilon {
			b.AddError(models.IssueIVACalculation,
				"Riepilogo IVA #%d (aliquota %.2f%%, imponibile %.2f): imposta calcolata %.2f, dichiarata %.2f",
				i+1, entry.Rate, entry.TaxableAmount, expected, entry.TaxAmount)
		}
	}

	imponibile = validation.Round2(imponibile)
	iva = validation.Round2(iva)

	return b.Build(models.Totals{
		Imponibile: validation.Float(imponibile),
		IVA:        validation.Float(iva),
		Totale:     validation.Float(validation.Round2(imponibile + iva)),
	})
}
