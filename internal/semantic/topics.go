package semantic

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/Kruthik-JP/guard-rail-NER/patterns"
)

// KeywordRule is a literal substitution applied by the redactor when its topic
// is the best semantic match. Literal matching is exact and case-sensitive.
type KeywordRule struct {
	Literal string `yaml:"literal"`
	Token   string `yaml:"token"`
}

// Topic is a sensitive-topic phrase with optional keyword substitution rules.
type Topic struct {
	Phrase   string        `yaml:"phrase"`
	Keywords []KeywordRule `yaml:"keywords,omitempty"`
}

type topicsFile struct {
	Topics []Topic `yaml:"topics"`
}

// ParseTopics parses topic YAML bytes into an ordered topic list.
func ParseTopics(data []byte) ([]Topic, error) {
	var tf topicsFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("parsing topics YAML: %w", err)
	}
	return tf.Topics, nil
}

// DefaultTopics returns the embedded sensitive-topic list. Order matters:
// similarity ties resolve to the earliest topic.
func DefaultTopics() ([]Topic, error) {
	topics, err := ParseTopics(patterns.TopicsYAML())
	if err != nil {
		return nil, fmt.Errorf("parsing embedded topics: %w", err)
	}
	return topics, nil
}
