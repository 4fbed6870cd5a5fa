package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent analyses stored in the database",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := active()
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")

		records, err := s.container.Documents().History(cmd.Context(), limit)
		if err != nil {
			return err
		}
		if s.jsonOut {
			return printJSON(s, records)
		}

		for _, r := range records {
			provider, confidence := "-", "-"
			if r.Analysis != nil {
				provider = r.Analysis.Metadata.Provider
				confidence = fmt.Sprintf("%.2f", r.Analysis.Confidence)
			}
			fmt.Fprintf(s.out, "#%-5d %s  %-8s %-5t %-12s %-5s %s\n",
				r.ID, r.CreatedAt.Local().Format("2006-01-02 15:04"), r.DocumentType,
				r.Validation.IsValid, provider, confidence, r.SourceName)
		}
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export [id]",
	Short: "Write a stored analysis as an Excel report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := active()
		if err != nil {
			return err
		}
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid id %q", args[0])
		}

		output, _ := cmd.Flags().GetString("output")
		if output == "" {
			dir := s.container.Config().Report.OutputDir
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create report directory: %w", err)
			}
			output = filepath.Join(dir, fmt.Sprintf("analisi_%d.xlsx", id))
		}

		record, err := s.container.Documents().Get(cmd.Context(), id)
		if err != nil {
			return err
		}
		if err := writeReport(s, output, record); err != nil {
			return err
		}
		fmt.Fprintln(s.out, output)
		return nil
	},
}

func init() {
	historyCmd.Flags().Int("limit", 20, "Number of records to list")
	exportCmd.Flags().StringP("output", "o", "", "Output path (default: analisi_<id>.xlsx in the report directory)")
	rootCmd.AddCommand(historyCmd, exportCmd)
}
