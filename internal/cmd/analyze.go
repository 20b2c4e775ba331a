package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Kruthik-JP/guard-rail-NER/internal/config"
	"github.com/Kruthik-JP/guard-rail-NER/internal/guardrail"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [text]",
	Short: "Report detected entities, topics, and risk score for text",
	Long:  "Analyzes text (from arguments or stdin) and prints the risk report as JSON.",
	RunE:  runAnalyze,
}

var sanitizeCmd = &cobra.Command{
	Use:   "sanitize [text]",
	Short: "Redact sensitive content from text",
	Long:  "Sanitizes text (from arguments or stdin) and prints the redacted result.",
	RunE:  runSanitize,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(sanitizeCmd)
}

// readInput joins args, falling back to stdin when no args are given.
func readInput(args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return string(data), nil
}

// buildFacade constructs just the guardrail facade, without index or
// generation backends.
func buildFacade(ctx context.Context) (*guardrail.Facade, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	embedder, err := buildEmbedder(cfg)
	if err != nil {
		return nil, err
	}
	return buildGuardrail(ctx, cfg, embedder)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	text, err := readInput(args)
	if err != nil {
		return err
	}
	guard, err := buildFacade(ctx)
	if err != nil {
		return err
	}

	report := guard.Analyze(ctx, text)
	out, err := json.MarshalIndent(map[string]interface{}{
		"contains_sensitive": report.ContainsSensitive,
		"risk_score":         report.RiskScore,
		"entity_types":       report.EntityTypes(),
		"spans":              report.Spans,
		"semantic":           report.Semantic,
	}, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func runSanitize(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	text, err := readInput(args)
	if err != nil {
		return err
	}
	guard, err := buildFacade(ctx)
	if err != nil {
		return err
	}

	fmt.Println(guard.Sanitize(ctx, text))
	return nil
}
