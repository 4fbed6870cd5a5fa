package analysis

import (
	"fmt"
	"math"

	"github.com/garyjia/tax-document-analyzer/internal/models"
	"github.com/garyjia/tax-document-analyzer/internal/validation"
)

// Offline analysis constants
const (
	offlineProvider   = "offline"
	offlineConfidence = 0.4
)

// offlineAnalysis applies rule checks directly to the structured document.
// It is used only when every provider has failed.
func offlineAnalysis(doc models.Document, policy validation.Policy) *models.AnalysisResult {
	var risks []string
	switch d := doc.(type) {
	case *models.InvoiceBody:
		risks = invoiceRisks(d, policy)
	case *models.PayslipData:
		risks = payslipRisks(d, policy)
	}

	result := &models.AnalysisResult{
		Confidence:      offlineConfidence,
		Recommendations: []string{"Ripetere l'analisi quando il servizio di intelligenza artificiale sarà disponibile"},
		Risks:           []string{},
		Optimizations:   []string{},
		Metadata: models.AnalysisMetadata{
			Provider: offlineProvider,
			Fallback: true,
		},
	}

	if len(risks) == 0 {
		result.Summary = "Analisi automatica offline: nessuna anomalia rilevata nei controlli di base"
		return result
	}

	result.Summary = fmt.Sprintf("Analisi automatica offline: %d anomalie rilevate nei controlli di base", len(risks))
	result.Risks = risks
	result.Recommendations = append([]string{"Verificare i calcoli segnalati con il proprio consulente fiscale"}, result.Recommendations...)
	return result
}

func invoiceRisks(body *models.InvoiceBody, policy validation.Policy) []string {
	var risks []string
	for i, entry := range body.VATSummary {
		if !policy.IsStandardVATRate(entry.Rate) {
			msg := fmt.Sprintf("Aliquota IVA non standard %.2f%% nel riepilogo #%d", entry.Rate, i+1)
			if entry.Nature != "" {
				msg += fmt.Sprintf(" (natura %s)", entry.Nature)
			}
			risks = append(risks, msg)
		}

		expected := validation.Round2(entry.TaxableAmount * entry.Rate / 100)
		if math.Abs(expected-entry.TaxAmount) > policy.VATTolerance+1e-9 {
			risks = append(risks, fmt.Sprintf("Imposta del riepilogo #%d pari a %.2f, attesa %.2f",
				i+1, entry.TaxAmount, expected))
		}
	}
	return risks
}

func payslipRisks(data *models.PayslipData, policy validation.Policy) []string {
	gross := data.Earnings.Gross()
	expected := validation.Round2(policy.ExpectedINPS(gross))
	if math.Abs(expected-data.Contributions.INPS) > policy.INPSFallbackTolerance+1e-9 {
		return []string{fmt.Sprintf("Contributi INPS pari a %.2f, attesi %.2f su una retribuzione lorda di %.2f",
			data.Contributions.INPS, expected, gross)}
	}
	return nil
}
