package doctor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kruthik-JP/guard-rail-NER/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		DataDir:       t.TempDir(),
		DetectionMode: "moderate",
		MinConfidence: 0.7,
		RiskCeiling:   0.8,
		DocumentsDir:  t.TempDir(),
		ChunkSize:     800,
		EmbedProvider: "openai",
		LLMProvider:   "openai",
		OpenAIAPIKey:  "sk-test",
	}
}

func checkByName(report *Report, name string) *CheckResult {
	for i := range report.Checks {
		if report.Checks[i].Name == name {
			return &report.Checks[i]
		}
	}
	return nil
}

func TestRunHealthyInstall(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.DocumentsDir, "resume.txt"), []byte("resume body"), 0o600))

	report := Run(context.Background(), cfg, Options{SkipUpstream: true})

	assert.Zero(t, report.Summary.Fail)
	for _, name := range []string{"data_dir_writable", "recognizers_valid", "topics_valid", "block_policy_valid", "documents_dir", "provider_keys"} {
		check := checkByName(report, name)
		require.NotNil(t, check, name)
		assert.Equal(t, "pass", check.Status, name)
	}
	// No index has been built yet.
	assert.Equal(t, "warn", checkByName(report, "index_db").Status)
	assert.Equal(t, "warn", report.Status)
}

func TestRunModeDerivedRiskCeiling(t *testing.T) {
	cfg := testConfig(t)
	cfg.RiskCeiling = 0
	cfg.DetectionMode = "strict"

	report := Run(context.Background(), cfg, Options{SkipUpstream: true})

	check := checkByName(report, "block_policy_valid")
	require.NotNil(t, check)
	assert.Equal(t, "pass", check.Status)
	assert.Contains(t, check.Message, "0.30")
}

func TestRunMissingAPIKey(t *testing.T) {
	cfg := testConfig(t)
	cfg.OpenAIAPIKey = ""

	report := Run(context.Background(), cfg, Options{SkipUpstream: true})

	check := checkByName(report, "provider_keys")
	require.NotNil(t, check)
	assert.Equal(t, "warn", check.Status)
	assert.Contains(t, check.Fix, "OPENAI_API_KEY")
}

func TestRunBrokenPolicyFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.PolicyFile = filepath.Join(t.TempDir(), "broken.rego")
	require.NoError(t, os.WriteFile(cfg.PolicyFile, []byte("not rego {"), 0o600))

	report := Run(context.Background(), cfg, Options{SkipUpstream: true})

	check := checkByName(report, "block_policy_valid")
	require.NotNil(t, check)
	assert.Equal(t, "fail", check.Status)
	assert.Equal(t, "fail", report.Status)
}

func TestRunEmptyDocumentsDir(t *testing.T) {
	cfg := testConfig(t)

	report := Run(context.Background(), cfg, Options{SkipUpstream: true})

	check := checkByName(report, "documents_dir")
	require.NotNil(t, check)
	assert.Equal(t, "warn", check.Status)
}

func TestRunSkipsUpstreamForOpenAI(t *testing.T) {
	cfg := testConfig(t)

	report := Run(context.Background(), cfg, Options{})
	assert.Nil(t, checkByName(report, "ollama_reachable"))
}
