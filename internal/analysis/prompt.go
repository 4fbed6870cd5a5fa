package analysis

import (
	"bytes"
	"fmt"
	"os"
	"text/template"

	"github.com/garyjia/tax-document-analyzer/internal/models"
	"gopkg.in/yaml.v3"
)

// PromptConfig holds the prompt blocks sent to every provider
type PromptConfig struct {
	Reference    string `yaml:"reference"`
	Invoice      string `yaml:"invoice"`
	Payslip      string `yaml:"payslip"`
	OutputSchema string `yaml:"output_schema"`
}

// DefaultPrompts returns the built-in Italian prompts
func DefaultPrompts() *PromptConfig {
	return &PromptConfig{
		Reference: `Riferimenti fiscali italiani 2025:
- IRPEF: 23% fino a 28.000 €, 35% da 28.000 a 50.000 €, 43% oltre 50.000 €.
- Aliquote IVA: 4% (beni di prima necessità), 5% (alcune prestazioni socio-sanitarie), 10% (ridotta), 22% (ordinaria).
- Contributi INPS a carico del dipendente: 9,19% della retribuzione lorda.
- Split payment: per le fatture verso la Pubblica Amministrazione l'IVA è versata direttamente dal committente (EsigibilitaIVA "S").`,
		Invoice: `Analizza la seguente fattura elettronica italiana. Verifica la coerenza dell'IVA,
il regime fiscale, eventuali nature di esenzione e i rischi di contestazione.

Fattura:
{{.Document}}`,
		Payslip: `Analizza la seguente busta paga italiana estratta tramite OCR. Verifica contributi INPS,
ritenute IRPEF e addizionali, e segnala possibili ottimizzazioni per il dipendente.

Busta paga:
{{.Document}}`,
		OutputSchema: `Rispondi esclusivamente con un unico oggetto JSON racchiuso tra ` + "```json e ```" + ` con queste chiavi:
{"summary": string, "confidence": numero tra 0 e 1, "recommendations": [string], "risks": [string], "optimizations": [string]}`,
	}
}

// LoadPrompts loads prompt configuration from a YAML file. Blocks left empty keep their defaults.
func LoadPrompts(promptsPath string) (*PromptConfig, error) {
	data, err := os.ReadFile(promptsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts file: %w", err)
	}

	var loaded PromptConfig
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("failed to unmarshal prompts: %w", err)
	}

	prompts := DefaultPrompts()
	if loaded.Reference != "" {
		prompts.Reference = loaded.Reference
	}
	if loaded.Invoice != "" {
		prompts.Invoice = loaded.Invoice
	}
	if loaded.Payslip != "" {
		prompts.Payslip = loaded.Payslip
	}
	if loaded.OutputSchema != "" {
		prompts.OutputSchema = loaded.OutputSchema
	}

	if _, err := prompts.Build(models.DocumentTypeInvoice, []byte("{}")); err != nil {
		return nil, err
	}
	if _, err := prompts.Build(models.DocumentTypePayslip, []byte("{}")); err != nil {
		return nil, err
	}
	return prompts, nil
}

// Build renders the full prompt: reference block, type instruction with the document, output schema
func (p *PromptConfig) Build(docType models.DocumentType, document []byte) (string, error) {
	var instruction string
	switch docType {
	case models.DocumentTypeInvoice:
		instruction = p.Invoice
	case models.DocumentTypePayslip:
		instruction = p.Payslip
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidDocumentType, docType)
	}

	body, err := renderTemplate(instruction, struct{ Document string }{Document: string(document)})
	if err != nil {
		return "", err
	}

	return p.Reference + "\n\n" + body + "\n\n" + p.OutputSchema, nil
}

// renderTemplate renders a template with provided data
func renderTemplate(templateStr string, data interface{}) (string, error) {
	tmpl, err := template.New("prompt").Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}
