// Package ingest loads source documents from disk and segments them into
// chunks sized for embedding.
package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
)

// DefaultChunkSize is the target chunk length in characters. Segmentation is
// paragraph-aware, so actual chunks land near this size rather than exactly
// on it.
const DefaultChunkSize = 800

var loadableExtensions = map[string]bool{
	".txt": true,
	".md":  true,
}

// Document is a loaded source file before sanitization and chunking.
type Document struct {
	Source string
	Text   string
}

var whitespaceRun = regexp.MustCompile(`[ \t]+`)

// normalizeText collapses horizontal whitespace runs and normalizes line
// endings while preserving paragraph breaks.
func normalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = whitespaceRun.ReplaceAllString(text, " ")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// LoadDir reads every .txt and .md file directly under dir. Unreadable files
// are skipped with a warning so one bad file cannot sink an ingest run.
func LoadDir(dir string) ([]Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading documents directory %s: %w", dir, err)
	}

	var docs []Document
	for _, entry := range entries {
		if entry.IsDir() || !loadableExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("skipping unreadable document")
			continue
		}
		text := normalizeText(string(raw))
		if text == "" {
			continue
		}
		docs = append(docs, Document{Source: entry.Name(), Text: text})
	}
	return docs, nil
}

// ChunkText splits text into segments of roughly maxChars characters.
// Paragraph boundaries are preferred; a single paragraph longer than maxChars
// is split on word boundaries. maxChars <= 0 selects DefaultChunkSize.
func ChunkText(text string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = DefaultChunkSize
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var chunks []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}

	for _, paragraph := range strings.Split(text, "\n\n") {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}
		if current.Len() > 0 && current.Len()+len(paragraph)+2 > maxChars {
			flush()
		}
		if len(paragraph) > maxChars {
			flush()
			chunks = append(chunks, splitWords(paragraph, maxChars)...)
			continue
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(paragraph)
	}
	flush()
	return chunks
}

// splitWords breaks an oversized paragraph on word boundaries.
func splitWords(paragraph string, maxChars int) []string {
	var chunks []string
	var current strings.Builder
	for _, word := range strings.Fields(paragraph) {
		if current.Len() > 0 && current.Len()+len(word)+1 > maxChars {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}
