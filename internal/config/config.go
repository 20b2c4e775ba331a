// Package config holds operator-level configuration for a guardrail
// installation.
//
// Everything here is infrastructure config set by whoever deploys the
// service: data directory, detection thresholds, embedding and generation
// backends, listen address. Set via env vars (GUARDRAIL_*) or a config file
// (guardrail.config.yaml). API keys may come from a .env file in development;
// nothing in this package persists them.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Viper keys. Each maps to an env var with the GUARDRAIL_ prefix
// (e.g. "detection_mode" → GUARDRAIL_DETECTION_MODE) and to a YAML field
// in guardrail.config.yaml.
const (
	KeyDataDir           = "data_dir"
	KeyListenAddr        = "listen_addr"
	KeyDetectionMode     = "detection_mode"
	KeyMinConfidence     = "min_confidence"
	KeySemanticThreshold = "semantic_threshold"
	KeyRiskCeiling       = "risk_ceiling"
	KeyPatternsFile      = "patterns_file"
	KeyPolicyFile        = "policy_file"
	KeyDocumentsDir      = "documents_dir"
	KeyChunkSize         = "chunk_size"
	KeyEmbedProvider     = "embedding_provider"
	KeyEmbedModel        = "embedding_model"
	KeyLLMProvider       = "llm_provider"
	KeyLLMModel          = "llm_model"
	KeyOpenAIAPIKey      = "openai_api_key"
	KeyOpenAIBaseURL     = "openai_base_url"
	KeyOllamaBaseURL     = "ollama_base_url"
	KeyRateLimitRPS      = "rate_limit_rps"
	KeyRateLimitBurst    = "rate_limit_burst"
	KeyOTelEnabled       = "otel_enabled"
)

// Defaults.
const (
	DefaultListenAddr    = ":8080"
	DefaultDetectionMode = "moderate"
	DefaultMinConfidence = 0.7
	DefaultRiskCeiling   = 0.8
	DefaultDocumentsDir  = "documents"
	DefaultChunkSize     = 800
	DefaultEmbedProvider = "openai"
	DefaultEmbedModel    = "text-embedding-3-small"
	DefaultLLMProvider   = "openai"
	DefaultLLMModel      = "gpt-4o-mini"
	DefaultOllamaURL     = "http://localhost:11434"
	DefaultRateLimitRPS  = 10.0
	DefaultRateBurst     = 20
)

var validModes = map[string]bool{
	"strict":   true,
	"moderate": true,
	"lenient":  true,
}

// Config holds resolved operator-level configuration for a guardrail process.
type Config struct {
	DataDir           string
	ListenAddr        string
	DetectionMode     string
	MinConfidence     float64
	SemanticThreshold float64 // 0 means: derive from detection mode
	RiskCeiling       float64 // 0 means: derive from detection mode
	PatternsFile      string // optional recognizer YAML layered over built-ins
	PolicyFile        string // optional Rego module replacing the built-in block policy
	DocumentsDir      string
	ChunkSize         int
	EmbedProvider     string
	EmbedModel        string
	LLMProvider       string
	LLMModel          string
	OpenAIAPIKey      string
	OpenAIBaseURL     string
	OllamaBaseURL     string
	RateLimitRPS      float64
	RateLimitBurst    int
	OTelEnabled       bool
}

// IndexDBPath returns the full path to the index SQLite database.
func (c *Config) IndexDBPath() string {
	return filepath.Join(c.DataDir, "index.db")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *Config) EnsureDataDir() error {
	return os.MkdirAll(c.DataDir, 0o700)
}

func init() {
	viper.SetEnvPrefix("GUARDRAIL")
	viper.AutomaticEnv()
	viper.SetDefault(KeyListenAddr, DefaultListenAddr)
	viper.SetDefault(KeyDetectionMode, DefaultDetectionMode)
	viper.SetDefault(KeyMinConfidence, DefaultMinConfidence)
	viper.SetDefault(KeyRiskCeiling, DefaultRiskCeiling)
	viper.SetDefault(KeyDocumentsDir, DefaultDocumentsDir)
	viper.SetDefault(KeyChunkSize, DefaultChunkSize)
	viper.SetDefault(KeyEmbedProvider, DefaultEmbedProvider)
	viper.SetDefault(KeyEmbedModel, DefaultEmbedModel)
	viper.SetDefault(KeyLLMProvider, DefaultLLMProvider)
	viper.SetDefault(KeyLLMModel, DefaultLLMModel)
	viper.SetDefault(KeyOllamaBaseURL, DefaultOllamaURL)
	viper.SetDefault(KeyRateLimitRPS, DefaultRateLimitRPS)
	viper.SetDefault(KeyRateLimitBurst, DefaultRateBurst)
}

// Load reads configuration from Viper (which merges env vars, config file,
// and defaults) and returns a validated Config.
func Load() (*Config, error) {
	cfg := &Config{
		DataDir:           resolveDataDir(),
		ListenAddr:        viper.GetString(KeyListenAddr),
		DetectionMode:     viper.GetString(KeyDetectionMode),
		MinConfidence:     viper.GetFloat64(KeyMinConfidence),
		SemanticThreshold: viper.GetFloat64(KeySemanticThreshold),
		RiskCeiling:       viper.GetFloat64(KeyRiskCeiling),
		PatternsFile:      viper.GetString(KeyPatternsFile),
		PolicyFile:        viper.GetString(KeyPolicyFile),
		DocumentsDir:      viper.GetString(KeyDocumentsDir),
		ChunkSize:         viper.GetInt(KeyChunkSize),
		EmbedProvider:     viper.GetString(KeyEmbedProvider),
		EmbedModel:        viper.GetString(KeyEmbedModel),
		LLMProvider:       viper.GetString(KeyLLMProvider),
		LLMModel:          viper.GetString(KeyLLMModel),
		OpenAIAPIKey:      resolveAPIKey(),
		OpenAIBaseURL:     viper.GetString(KeyOpenAIBaseURL),
		OllamaBaseURL:     viper.GetString(KeyOllamaBaseURL),
		RateLimitRPS:      viper.GetFloat64(KeyRateLimitRPS),
		RateLimitBurst:    viper.GetInt(KeyRateLimitBurst),
		OTelEnabled:       viper.GetBool(KeyOTelEnabled),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func resolveDataDir() string {
	if dir := viper.GetString(KeyDataDir); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".guardrail"
	}
	return filepath.Join(home, ".guardrail")
}

// resolveAPIKey falls back to the unprefixed OPENAI_API_KEY for single-user
// development convenience.
func resolveAPIKey() string {
	if key := viper.GetString(KeyOpenAIAPIKey); key != "" {
		return key
	}
	return os.Getenv("OPENAI_API_KEY")
}

func (c *Config) validate() error {
	if !validModes[c.DetectionMode] {
		return fmt.Errorf("detection_mode must be strict, moderate, or lenient (got %q)", c.DetectionMode)
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("min_confidence must be in [0, 1] (got %g)", c.MinConfidence)
	}
	if c.SemanticThreshold < 0 || c.SemanticThreshold > 1 {
		return fmt.Errorf("semantic_threshold must be in [0, 1] (got %g)", c.SemanticThreshold)
	}
	if c.RiskCeiling < 0 || c.RiskCeiling > 1 {
		return fmt.Errorf("risk_ceiling must be in [0, 1] (got %g)", c.RiskCeiling)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive (got %d)", c.ChunkSize)
	}
	return nil
}
