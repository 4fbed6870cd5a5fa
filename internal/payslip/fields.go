package payslip

import (
	"regexp"
	"strings"

	"github.com/garyjia/tax-document-analyzer/internal/models"
	"github.com/garyjia/tax-document-analyzer/internal/validation"
)

// amountPattern follows a label: optional colon/spaces, optional currency, then the figure
const amountPattern = `[\s:.]*(?:€|eur(?:o)?)?\s*-?\s*(\d[\d.,]*)`

// amountField is a labelled monetary value. Synonyms are tried in order.
type amountField struct {
	labels []*regexp.Regexp
	// skip discards matches whose preceding text on the same line contains any marker
	skip []string
}

func labelled(labels ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(labels))
	for i, l := range labels {
		out[i] = regexp.MustCompile(`(?i)\b` + l + amountPattern)
	}
	return out
}

var (
	baseSalaryField = amountField{labels: labelled(
		`stipendio(?:\s+base)?`,
		`retribuzione(?:\s+base|\s+ordinaria)?`,
		`paga\s+base`,
		`minimo\s+(?:contrattuale|tabellare)`,
	)}
	allowanceField = amountField{labels: labelled(
		`superminimo(?:\s+assorbibile)?`,
		`indennit[aà](?:\s+di\s+funzione)?`,
		`assegno\s+ad\s+personam`,
	)}
	overtimeField = amountField{labels: labelled(
		`(?:lavoro\s+)?straordinari[oi]?`,
	)}
	inpsField = amountField{labels: labelled(
		`contributi\s+inps`,
		`contributo\s+ivs`,
		`inps`,
		`contributi\s+previdenziali`,
	), skip: []string{"imponibil"}}
	inailField = amountField{labels: labelled(
		`inail`,
	)}
	irpefField = amountField{labels: labelled(
		`ritenut[ae]\s+irpef`,
		`irpef(?:\s+netta)?`,
	), skip: []string{"addizional", "imponibil"}}
	regionalSurtaxField = amountField{labels: labelled(
		`addizional[ei]\s+regional[ei](?:\s+irpef)?`,
	)}
	municipalSurtaxField = amountField{labels: labelled(
		`addizional[ei]\s+comunal[ei](?:\s+irpef)?`,
	)}
	netPayField = amountField{labels: labelled(
		`netto\s+(?:in\s+busta|a\s+pagare|del\s+mese)`,
		`retribuzione\s+netta`,
		`netto`,
	)}

	fiscalCodeRegex = regexp.MustCompile(`\b[A-Z]{6}\d{2}[A-Z]\d{2}[A-Z]\d{3}[A-Z]\b`)
	nameRegex       = regexp.MustCompile(`(?im)\b(?:cognome\s+e\s+nome|nominativo|dipendente|nome)[ \t]*:?[ \t]*([A-Za-zÀ-ÿ' ]+[A-Za-zÀ-ÿ])`)
	employeeIDRegex = regexp.MustCompile(`(?i)\b(?:matricola|codice\s+dipendente|cod\.\s*dip\.?)[\s:.nN°]*([A-Z0-9][A-Z0-9/-]*)`)

	months      = `(?:gennaio|febbraio|marzo|aprile|maggio|giugno|luglio|agosto|settembre|ottobre|novembre|dicembre)`
	periodRegex = regexp.MustCompile(`(?i)\b(?:periodo(?:\s+di\s+paga)?|mese(?:\s+di\s+retribuzione)?|competenza)[\s:]*(` +
		months + `\s+\d{4}|\d{1,2}[/-]\d{4})`)
	bareMonthRegex = regexp.MustCompile(`(?i)\b(` + months + `\s+\d{4})\b`)
)

// ParseFields extracts payslip fields from recognized text.
// First match wins; missing text fields are nil and missing amounts are 0.
func ParseFields(text string) models.PayslipData {
	return models.PayslipData{
		Identity: models.Identity{
			Name:       findName(text),
			FiscalCode: findFiscalCode(text),
			EmployeeID: firstGroup(employeeIDRegex, text),
		},
		Earnings: models.Earnings{
			BaseSalary: baseSalaryField.find(text),
			Allowance:  allowanceField.find(text),
			Overtime:   overtimeField.find(text),
		},
		Contributions: models.Contributions{
			INPS:  inpsField.find(text),
			INAIL: inailField.find(text),
		},
		Taxes: models.Taxes{
			IRPEF:           irpefField.find(text),
			RegionalSurtax:  regionalSurtaxField.find(text),
			MunicipalSurtax: municipalSurtaxField.find(text),
		},
		NetPay: netPayField.find(text),
		Period: findPeriod(text),
	}
}

func (f amountField) find(text string) float64 {
	for _, re := range f.labels {
		for _, loc := range re.FindAllStringSubmatchIndex(text, -1) {
			if precededBy(text, loc[0], f.skip) {
				continue
			}
			raw := strings.TrimRight(text[loc[2]:loc[3]], ".,")
			return validation.ParseAmount(raw)
		}
	}
	return 0
}

// precededBy reports whether any marker appears in the same line before pos
func precededBy(text string, pos int, markers []string) bool {
	start := strings.LastIndexByte(text[:pos], '\n') + 1
	prefix := strings.ToLower(text[start:pos])
	for _, m := range markers {
		if strings.Contains(prefix, m) {
			return true
		}
	}
	return false
}

func findFiscalCode(text string) *string {
	if m := fiscalCodeRegex.FindString(strings.ToUpper(text)); m != "" {
		return &m
	}
	return nil
}

func findName(text string) *string {
	m := nameRegex.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	name := strings.Join(strings.Fields(m[1]), " ")
	if name == "" {
		return nil
	}
	return &name
}

func findPeriod(text string) *string {
	if p := firstGroup(periodRegex, text); p != nil {
		return p
	}
	return firstGroup(bareMonthRegex, text)
}

func firstGroup(re *regexp.Regexp, text string) *string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	v := strings.TrimSpace(m[1])
	if v == "" {
		return nil
	}
	return &v
}
