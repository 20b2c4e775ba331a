// Package doctor provides preflight checks for a guardrail installation.
// Used by `guardrail doctor` before first serve and when debugging a broken
// deployment.
package doctor

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/Kruthik-JP/guard-rail-NER/internal/config"
	"github.com/Kruthik-JP/guard-rail-NER/internal/detector"
	"github.com/Kruthik-JP/guard-rail-NER/internal/guardrail"
	"github.com/Kruthik-JP/guard-rail-NER/internal/index"
	"github.com/Kruthik-JP/guard-rail-NER/internal/ingest"
	"github.com/Kruthik-JP/guard-rail-NER/internal/policy"
	"github.com/Kruthik-JP/guard-rail-NER/internal/semantic"
)

// CheckResult is a single doctor check outcome.
type CheckResult struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Status   string `json:"status"` // pass, warn, fail
	Message  string `json:"message"`
	Fix      string `json:"fix,omitempty"`
}

// Summary tallies pass/warn/fail counts.
type Summary struct {
	Pass int `json:"pass"`
	Warn int `json:"warn"`
	Fail int `json:"fail"`
}

// Report is the complete doctor output.
type Report struct {
	Status  string        `json:"status"` // worst of all checks
	Checks  []CheckResult `json:"checks"`
	Summary Summary       `json:"summary"`
}

// Options controls which checks to run.
type Options struct {
	SkipUpstream bool // Skip backend connectivity checks (for CI/offline)
}

// Run executes all doctor checks against the given configuration.
func Run(ctx context.Context, cfg *config.Config, opts Options) *Report {
	report := &Report{}

	report.Checks = append(report.Checks, checkDataDir(cfg))
	report.Checks = append(report.Checks, checkRecognizers(cfg))
	report.Checks = append(report.Checks, checkTopics())
	report.Checks = append(report.Checks, checkBlockPolicy(ctx, cfg))
	report.Checks = append(report.Checks, checkIndexDB(cfg))
	report.Checks = append(report.Checks, checkDocumentsDir(cfg))
	report.Checks = append(report.Checks, checkProviderKeys(cfg))
	if !opts.SkipUpstream {
		report.Checks = append(report.Checks, checkUpstream(ctx, cfg)...)
	}

	for _, c := range report.Checks {
		switch c.Status {
		case "pass":
			report.Summary.Pass++
		case "warn":
			report.Summary.Warn++
		case "fail":
			report.Summary.Fail++
		}
	}

	report.Status = "pass"
	if report.Summary.Warn > 0 {
		report.Status = "warn"
	}
	if report.Summary.Fail > 0 {
		report.Status = "fail"
	}
	return report
}

func checkDataDir(cfg *config.Config) CheckResult {
	if err := cfg.EnsureDataDir(); err != nil {
		return CheckResult{
			Name: "data_dir_writable", Category: "config", Status: "fail",
			Message: fmt.Sprintf("%s — %v", cfg.DataDir, err),
			Fix:     "Ensure directory exists and is writable",
		}
	}
	testFile := filepath.Join(cfg.DataDir, ".doctor-write-test")
	if err := os.WriteFile(testFile, []byte("ok"), 0o600); err != nil {
		return CheckResult{
			Name: "data_dir_writable", Category: "config", Status: "fail",
			Message: fmt.Sprintf("%s not writable — %v", cfg.DataDir, err),
		}
	}
	_ = os.Remove(testFile)
	return CheckResult{
		Name: "data_dir_writable", Category: "config", Status: "pass",
		Message: fmt.Sprintf("%s (writable)", cfg.DataDir),
	}
}

func checkRecognizers(cfg *config.Config) CheckResult {
	opts := []detector.Option{}
	if cfg.PatternsFile != "" {
		opts = append(opts, detector.WithPatternFile(cfg.PatternsFile))
	}
	det, err := detector.New(opts...)
	if err != nil {
		return CheckResult{
			Name: "recognizers_valid", Category: "detection", Status: "fail",
			Message: fmt.Sprintf("%v", err),
			Fix:     "Check recognizer YAML syntax and regex patterns",
		}
	}
	return CheckResult{
		Name: "recognizers_valid", Category: "detection", Status: "pass",
		Message: fmt.Sprintf("%d recognizer(s)", det.RecognizerCount()),
	}
}

func checkTopics() CheckResult {
	topics, err := semantic.DefaultTopics()
	if err != nil {
		return CheckResult{
			Name: "topics_valid", Category: "detection", Status: "fail",
			Message: fmt.Sprintf("%v", err),
		}
	}
	return CheckResult{
		Name: "topics_valid", Category: "detection", Status: "pass",
		Message: fmt.Sprintf("%d topic(s)", len(topics)),
	}
}

func checkBlockPolicy(ctx context.Context, cfg *config.Config) CheckResult {
	ceiling := guardrail.RiskCeilingFor(cfg.RiskCeiling, guardrail.ModeByName(cfg.DetectionMode))
	engine, err := policy.NewEngine(ctx, ceiling, cfg.PolicyFile)
	if err != nil {
		return CheckResult{
			Name: "block_policy_valid", Category: "policy", Status: "fail",
			Message: fmt.Sprintf("%v", err),
			Fix:     "Check Rego syntax in the policy file",
		}
	}
	return CheckResult{
		Name: "block_policy_valid", Category: "policy", Status: "pass",
		Message: fmt.Sprintf("risk ceiling %.2f", engine.RiskCeiling()),
	}
}

func checkIndexDB(cfg *config.Config) CheckResult {
	store, err := index.NewStore(cfg.IndexDBPath())
	if err != nil {
		return CheckResult{
			Name: "index_db", Category: "index", Status: "fail",
			Message: fmt.Sprintf("%v", err),
		}
	}
	count := store.Count()
	_ = store.Close()
	if count == 0 {
		return CheckResult{
			Name: "index_db", Category: "index", Status: "warn",
			Message: cfg.IndexDBPath() + " (empty)",
			Fix:     "Run 'guardrail index' to build the index",
		}
	}
	return CheckResult{
		Name: "index_db", Category: "index", Status: "pass",
		Message: fmt.Sprintf("%s (%d chunks)", cfg.IndexDBPath(), count),
	}
}

func checkDocumentsDir(cfg *config.Config) CheckResult {
	docs, err := ingest.LoadDir(cfg.DocumentsDir)
	if err != nil {
		return CheckResult{
			Name: "documents_dir", Category: "index", Status: "warn",
			Message: fmt.Sprintf("%s — %v", cfg.DocumentsDir, err),
			Fix:     "Create the directory or set documents_dir",
		}
	}
	if len(docs) == 0 {
		return CheckResult{
			Name: "documents_dir", Category: "index", Status: "warn",
			Message: cfg.DocumentsDir + " contains no .txt or .md files",
		}
	}
	return CheckResult{
		Name: "documents_dir", Category: "index", Status: "pass",
		Message: fmt.Sprintf("%s (%d document(s))", cfg.DocumentsDir, len(docs)),
	}
}

func checkProviderKeys(cfg *config.Config) CheckResult {
	needsKey := cfg.LLMProvider == "openai" || cfg.EmbedProvider == "openai"
	if needsKey && cfg.OpenAIAPIKey == "" {
		return CheckResult{
			Name: "provider_keys", Category: "backend", Status: "warn",
			Message: "OpenAI provider configured but no API key found; generation degrades to mock",
			Fix:     "Set OPENAI_API_KEY or GUARDRAIL_OPENAI_API_KEY",
		}
	}
	return CheckResult{
		Name: "provider_keys", Category: "backend", Status: "pass",
		Message: fmt.Sprintf("llm=%s embed=%s", cfg.LLMProvider, cfg.EmbedProvider),
	}
}

func checkUpstream(ctx context.Context, cfg *config.Config) []CheckResult {
	if cfg.LLMProvider != "ollama" && cfg.EmbedProvider != "ollama" {
		return nil
	}

	client := &http.Client{Timeout: 5 * time.Second}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, cfg.OllamaBaseURL, nil)
	if err != nil {
		return []CheckResult{{
			Name: "ollama_reachable", Category: "backend", Status: "fail",
			Message: fmt.Sprintf("Invalid URL: %v", err),
		}}
	}
	start := time.Now()
	resp, err := client.Do(req)
	latency := time.Since(start)
	if err != nil {
		return []CheckResult{{
			Name: "ollama_reachable", Category: "backend", Status: "fail",
			Message: fmt.Sprintf("Connection failed: %v", err),
			Fix:     "Check that Ollama is running and ollama_base_url is correct",
		}}
	}
	resp.Body.Close()

	results := []CheckResult{{
		Name: "ollama_reachable", Category: "backend", Status: "pass",
		Message: fmt.Sprintf("%s — %dms", cfg.OllamaBaseURL, latency.Milliseconds()),
	}}
	if latency > time.Second {
		results = append(results, CheckResult{
			Name: "ollama_latency", Category: "backend", Status: "warn",
			Message: fmt.Sprintf("%.1fs (> 1s threshold)", latency.Seconds()),
		})
	}
	return results
}
