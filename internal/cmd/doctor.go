package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Kruthik-JP/guard-rail-NER/internal/config"
	"github.com/Kruthik-JP/guard-rail-NER/internal/doctor"
)

var (
	doctorJSON         bool
	doctorSkipUpstream bool
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run preflight checks on the guardrail installation",
	RunE:  runDoctor,
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorJSON, "json", false, "output the report as JSON")
	doctorCmd.Flags().BoolVar(&doctorSkipUpstream, "skip-upstream", false, "skip backend connectivity checks")
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	report := doctor.Run(cmd.Context(), cfg, doctor.Options{SkipUpstream: doctorSkipUpstream})

	if doctorJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		for _, c := range report.Checks {
			marker := map[string]string{"pass": "ok", "warn": "warn", "fail": "FAIL"}[c.Status]
			fmt.Printf("[%-4s] %-22s %s\n", marker, c.Name, c.Message)
			if c.Fix != "" && c.Status != "pass" {
				fmt.Printf("       fix: %s\n", c.Fix)
			}
		}
		fmt.Printf("\n%d pass, %d warn, %d fail\n", report.Summary.Pass, report.Summary.Warn, report.Summary.Fail)
	}

	if report.Status == "fail" {
		return fmt.Errorf("doctor found failing checks")
	}
	return nil
}
