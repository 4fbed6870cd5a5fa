package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const pingPrompt = `Rispondi solo con la parola "ok".`

// ProviderCheck is the outcome of one provider round trip
type ProviderCheck struct {
	Name      string `json:"name"`
	Model     string `json:"model"`
	OK        bool   `json:"ok"`
	LatencyMs int64  `json:"latency_ms"`
	Reply     string `json:"reply,omitempty"`
	Error     string `json:"error,omitempty"`
}

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "Inspect the configured language model providers",
}

var providersCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Send a short prompt to every provider and report latency",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := active()
		if err != nil {
			return err
		}
		timeout, _ := cmd.Flags().GetDuration("timeout")

		providers := s.container.Providers()
		if len(providers) == 0 {
			fmt.Fprintln(s.out, "No providers configured: analyses use offline rules.")
			return nil
		}

		checks := make([]ProviderCheck, 0, len(providers))
		failed := 0
		for _, p := range providers {
			check := ProviderCheck{Name: p.Name(), Model: p.Model()}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			start := time.Now()
			reply, err := p.SendPrompt(ctx, pingPrompt)
			cancel()

			check.LatencyMs = time.Since(start).Milliseconds()
			if err != nil {
				check.Error = err.Error()
				failed++
				s.logger.Warn("Provider check failed", zap.String("provider", p.Name()), zap.Error(err))
			} else {
				check.OK = true
				check.Reply = truncate(reply, 80)
			}
			checks = append(checks, check)
		}

		if s.jsonOut {
			if err := printJSON(s, checks); err != nil {
				return err
			}
		} else {
			for _, c := range checks {
				status := "ok"
				if !c.OK {
					status = "FAIL " + c.Error
				}
				fmt.Fprintf(s.out, "%-12s %-40s %6d ms  %s\n", c.Name, c.Model, c.LatencyMs, status)
			}
		}

		if failed == len(checks) {
			return fmt.Errorf("all %d providers failed", failed)
		}
		return nil
	},
}

func init() {
	providersCheckCmd.Flags().Duration("timeout", 30*time.Second, "Per provider timeout")
	providersCmd.AddCommand(providersCheckCmd)
	rootCmd.AddCommand(providersCmd)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
