package detector

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/Kruthik-JP/guard-rail-NER/patterns"
)

// RecognizerFile is the top-level YAML structure for a recognizer config file.
// Mirrors Presidio's recognizer registry YAML format.
type RecognizerFile struct {
	Recognizers []RecognizerConfig `yaml:"recognizers"`
}

// RecognizerConfig mirrors Presidio's YAML recognizer schema with local
// extensions for checksum validation gates.
type RecognizerConfig struct {
	Name               string            `yaml:"name" json:"name"`
	SupportedEntity    string            `yaml:"supported_entity" json:"supported_entity"`
	Enabled            *bool             `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	Patterns           []PatternConfig   `yaml:"patterns,omitempty" json:"patterns,omitempty"`
	SupportedLanguages []LanguageContext `yaml:"supported_languages,omitempty" json:"supported_languages,omitempty"`
	// Validation extensions (Presidio ignores unknown fields)
	ValidateLuhn     bool `yaml:"validate_luhn,omitempty" json:"validate_luhn,omitempty"`
	ValidateIBAN     bool `yaml:"validate_iban,omitempty" json:"validate_iban,omitempty"`
	ValidateVerhoeff bool `yaml:"validate_verhoeff,omitempty" json:"validate_verhoeff,omitempty"`
}

// PatternConfig is a single regex pattern within a recognizer.
type PatternConfig struct {
	Name  string  `yaml:"name" json:"name"`
	Regex string  `yaml:"regex" json:"regex"`
	Score float64 `yaml:"score" json:"score"`
}

// LanguageContext holds context words for a specific language.
type LanguageContext struct {
	Language string   `yaml:"language" json:"language"`
	Context  []string `yaml:"context,omitempty" json:"context,omitempty"`
}

// isEnabled returns true if the recognizer is enabled (defaults to true when nil).
func (r *RecognizerConfig) isEnabled() bool {
	if r.Enabled == nil {
		return true
	}
	return *r.Enabled
}

// contextWords returns the context words for the configured language, falling
// back to the first language block when no exact match exists.
func (r *RecognizerConfig) contextWords(language string) []string {
	for _, lc := range r.SupportedLanguages {
		if lc.Language == language {
			return lc.Context
		}
	}
	if len(r.SupportedLanguages) > 0 {
		return r.SupportedLanguages[0].Context
	}
	return nil
}

// Pattern is a compiled, ready-to-use detection pattern.
type Pattern struct {
	Name             string
	Entity           string
	Regex            *regexp.Regexp
	Score            float64
	ContextWords     []string
	ValidateLuhn     bool
	ValidateIBAN     bool
	ValidateVerhoeff bool
}

// ParseRecognizerFile parses recognizer YAML bytes into a RecognizerFile.
func ParseRecognizerFile(data []byte) (*RecognizerFile, error) {
	var rf RecognizerFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parsing recognizer YAML: %w", err)
	}
	return &rf, nil
}

// LoadRecognizerFile reads and parses a recognizer YAML file from disk.
// Returns nil (not an error) if the file does not exist, so callers can
// treat a missing operator config as a no-op.
func LoadRecognizerFile(path string) (*RecognizerFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading recognizer file %s: %w", path, err)
	}
	return ParseRecognizerFile(data)
}

// DefaultRecognizers returns the built-in recognizers parsed from the embedded
// pii.yaml file. This is the first layer in the merge chain.
func DefaultRecognizers() ([]RecognizerConfig, error) {
	rf, err := ParseRecognizerFile(patterns.PIIYAML())
	if err != nil {
		return nil, fmt.Errorf("parsing embedded PII patterns: %w", err)
	}
	return rf.Recognizers, nil
}

// MergeRecognizers performs a layered merge: embedded defaults, then operator
// overrides. Later layers override earlier ones by matching on the recognizer
// Name field. New recognizers are appended.
func MergeRecognizers(layers ...[]RecognizerConfig) []RecognizerConfig {
	index := make(map[string]int)
	var merged []RecognizerConfig

	for _, layer := range layers {
		for _, rc := range layer {
			if idx, exists := index[rc.Name]; exists {
				merged[idx] = rc
			} else {
				index[rc.Name] = len(merged)
				merged = append(merged, rc)
			}
		}
	}

	return merged
}

// FilterByEntities applies enabled/disabled entity filters to a recognizer list.
// If enabled is non-empty, only recognizers with a matching supported_entity are
// kept (whitelist). Then any recognizer in disabled is removed (blacklist).
func FilterByEntities(recognizers []RecognizerConfig, enabled, disabled []string) []RecognizerConfig {
	result := recognizers

	if len(enabled) > 0 {
		allowed := make(map[string]bool, len(enabled))
		for _, e := range enabled {
			allowed[e] = true
		}
		var filtered []RecognizerConfig
		for _, r := range result {
			if allowed[r.SupportedEntity] {
				filtered = append(filtered, r)
			}
		}
		result = filtered
	}

	if len(disabled) > 0 {
		blocked := make(map[string]bool, len(disabled))
		for _, e := range disabled {
			blocked[e] = true
		}
		var filtered []RecognizerConfig
		for _, r := range result {
			if !blocked[r.SupportedEntity] {
				filtered = append(filtered, r)
			}
		}
		result = filtered
	}

	return result
}

// CompilePatterns converts recognizer configs into the compiled []Pattern slice
// used by the Detector at runtime. Disabled recognizers are skipped. Each regex
// pattern in a recognizer produces one Pattern entry.
func CompilePatterns(recognizers []RecognizerConfig, language string) ([]Pattern, error) {
	var compiled []Pattern

	for _, rec := range recognizers {
		if !rec.isEnabled() {
			continue
		}
		ctxWords := rec.contextWords(language)
		for _, p := range rec.Patterns {
			re, err := regexp.Compile(p.Regex)
			if err != nil {
				return nil, fmt.Errorf("compiling pattern %q in recognizer %q: %w", p.Name, rec.Name, err)
			}
			compiled = append(compiled, Pattern{
				Name:             rec.Name,
				Entity:           rec.SupportedEntity,
				Regex:            re,
				Score:            p.Score,
				ContextWords:     ctxWords,
				ValidateLuhn:     rec.ValidateLuhn,
				ValidateIBAN:     rec.ValidateIBAN,
				ValidateVerhoeff: rec.ValidateVerhoeff,
			})
		}
	}

	return compiled, nil
}
