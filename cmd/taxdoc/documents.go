package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/garyjia/tax-document-analyzer/internal/application/service"
	"github.com/garyjia/tax-document-analyzer/internal/models"
)

var invoiceCmd = &cobra.Command{
	Use:   "invoice [xml-file | s3://bucket/key]",
	Short: "Parse and validate a FatturaElettronica invoice",
	Example: `  taxdoc invoice IT01234567890_FPA01.xml
  taxdoc invoice s3://fatture/2025/IT01234567890_FPA01.xml --json
  taxdoc invoice fattura.xml --no-analyze --xlsx fattura.xlsx`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDocument(cmd, args[0], models.DocumentTypeInvoice)
	},
}

var payslipCmd = &cobra.Command{
	Use:   "payslip [pdf-file | s3://bucket/key]",
	Short: "Extract and check a scanned payslip (busta paga)",
	Example: `  taxdoc payslip cedolino_marzo.pdf
  taxdoc payslip cedolino_marzo.pdf --json --no-analyze`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDocument(cmd, args[0], models.DocumentTypePayslip)
	},
}

var processCmd = &cobra.Command{
	Use:   "process [file | s3://bucket/key]",
	Short: "Process a document, detecting its type from the extension",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDocument(cmd, args[0], "")
	},
}

func init() {
	for _, c := range []*cobra.Command{invoiceCmd, payslipCmd, processCmd} {
		c.Flags().Bool("no-analyze", false, "Skip the language model assessment")
		c.Flags().String("xlsx", "", "Also write an Excel report to this path")
		rootCmd.AddCommand(c)
	}
}

func runDocument(cmd *cobra.Command, ref string, kind models.DocumentType) error {
	s, err := active()
	if err != nil {
		return err
	}
	noAnalyze, _ := cmd.Flags().GetBool("no-analyze")
	xlsxPath, _ := cmd.Flags().GetString("xlsx")

	s.logger.Info("Processing document",
		zap.String("ref", ref),
		zap.String("type", string(kind)),
		zap.Bool("analyze", !noAnalyze))

	result, err := s.container.Documents().Process(cmd.Context(), ref, kind, !noAnalyze)
	if err != nil {
		return err
	}

	if xlsxPath != "" {
		if err := writeReport(s, xlsxPath, result.Record()); err != nil {
			return err
		}
	}

	if s.jsonOut {
		return printJSON(s, result)
	}
	printResult(s, result)
	return nil
}

func writeReport(s *session, path string, record *models.AnalysisRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	if err := s.container.Exporter().WriteTo(f, record); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	s.logger.Info("Report written", zap.String("path", path))
	return nil
}

func printJSON(s *session, v interface{}) error {
	enc := json.NewEncoder(s.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printResult(s *session, r *service.ProcessResult) {
	w := s.out
	fmt.Fprintf(w, "Documento: %s (%s)\n", r.SourceName, r.DocumentType)
	if r.RecordID != 0 {
		fmt.Fprintf(w, "Archivio:  #%d\n", r.RecordID)
	}

	switch {
	case r.Invoice != nil:
		h := r.Invoice.Document.Header
		fmt.Fprintf(w, "Cedente:   %s (P.IVA %s%s)\n", h.Issuer.DisplayName, h.Issuer.VATCountry, h.Issuer.VATNumber)
		fmt.Fprintf(w, "Cliente:   %s\n", h.Recipient.DisplayName)
		if d := r.Invoice.Document.Body.Document; d.Number != "" {
			fmt.Fprintf(w, "Numero:    %s del %s\n", d.Number, d.Date)
		}
	case r.Payslip != nil:
		p := r.Payslip.Parsed
		if p.Identity.Name != nil {
			fmt.Fprintf(w, "Dipendente: %s\n", *p.Identity.Name)
		}
		if p.Period != nil {
			fmt.Fprintf(w, "Periodo:   %s\n", *p.Period)
		}
		fmt.Fprintf(w, "Lordo:     %.2f  Netto: %.2f\n", p.Earnings.Gross(), p.NetPay)
	}

	printValidation(s, r.Validation)
	if r.Analysis != nil {
		printAnalysis(s, r.Analysis)
	}
}

func printValidation(s *session, v models.ValidationReport) {
	w := s.out
	status := "valido"
	if !v.IsValid {
		status = "NON valido"
	}
	fmt.Fprintf(w, "\nEsito: %s\n", status)

	t := v.Totals
	for _, row := range []struct {
		label string
		value *float64
	}{
		{"Imponibile", t.Imponibile}, {"IVA", t.IVA}, {"Totale", t.Totale},
		{"Lordo", t.Gross}, {"Contributi", t.Contributions}, {"Imposte", t.Taxes}, {"Netto", t.Net},
	} {
		if row.value != nil {
			fmt.Fprintf(w, "  %-11s %12.2f\n", row.label, *row.value)
		}
	}

	for _, e := range v.Errors {
		fmt.Fprintf(w, "  ERRORE [%s] %s\n", e.Type, e.Message)
	}
	for _, e := range v.Warnings {
		fmt.Fprintf(w, "  AVVISO [%s] %s\n", e.Type, e.Message)
	}
}

func printAnalysis(s *session, a *models.AnalysisResult) {
	w := s.out
	source := a.Metadata.Provider
	if a.Metadata.Model != "" {
		source += "/" + a.Metadata.Model
	}
	fmt.Fprintf(w, "\nAnalisi (%s, affidabilità %.0f%%)\n", source, a.Confidence*100)
	fmt.Fprintf(w, "  %s\n", a.Summary)

	for _, section := range []struct {
		title string
		items []string
	}{
		{"Raccomandazioni", a.Recommendations},
		{"Rischi", a.Risks},
		{"Ottimizzazioni", a.Optimizations},
	} {
		if len(section.items) == 0 {
			continue
		}
		fmt.Fprintf(w, "  %s:\n", section.title)
		for _, item := range section.items {
			fmt.Fprintf(w, "    - %s\n", strings.TrimSpace(item))
		}
	}
}
