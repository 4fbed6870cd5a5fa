package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/garyjia/tax-document-analyzer/internal/models"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [json-file | -]",
	Short: "Analyze an already structured invoice body or payslip",
	Long: `Sends a structured document (the "body" of a parsed invoice or the "parsed"
figures of a payslip) to the analysis engine and prints the assessment.`,
	Example: `  taxdoc invoice fattura.xml --json --no-analyze | jq .invoice.document.body > body.json
  taxdoc analyze --type invoice body.json`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().String("type", "", "Document type: invoice or payslip")
	_ = analyzeCmd.MarkFlagRequired("type")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	s, err := active()
	if err != nil {
		return err
	}
	docType, _ := cmd.Flags().GetString("type")

	var data []byte
	if args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return fmt.Errorf("failed to read document: %w", err)
	}

	result, err := s.container.Documents().Analyze(cmd.Context(), models.DocumentType(docType), json.RawMessage(data))
	if err != nil {
		return err
	}

	if s.jsonOut {
		return printJSON(s, result)
	}
	printAnalysis(s, result)
	return nil
}
