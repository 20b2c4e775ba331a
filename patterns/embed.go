// Package patterns provides embedded default recognizer and topic definitions.
// pii.yaml uses the Presidio-compatible recognizer format; topics.yaml holds the
// ordered sensitive-topic phrases and their keyword substitution rules.
package patterns

import _ "embed"

//go:embed pii.yaml
var piiYAML []byte

//go:embed topics.yaml
var topicsYAML []byte

// PIIYAML returns the embedded default PII recognizer definitions.
func PIIYAML() []byte { return piiYAML }

// TopicsYAML returns the embedded sensitive-topic definitions used by the
// semantic matcher and the keyword redaction pass.
func TopicsYAML() []byte { return topicsYAML }
