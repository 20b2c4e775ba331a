package ingest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"crlf", "line one\r\nline two", "line one\nline two"},
		{"tab runs", "a\t\tb   c", "a b c"},
		{"trailing line space", "  padded  \nnext  ", "padded\nnext"},
		{"paragraph break kept", "first\n\nsecond", "first\n\nsecond"},
		{"empty", "   \n\t ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeText(tt.in))
		})
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "resume.txt"), []byte("resume body"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("notes body"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "image.png"), []byte{0x89, 0x50}, 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty.txt"), []byte("  \n "), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o700))

	docs, err := LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	bySource := map[string]string{}
	for _, d := range docs {
		bySource[d.Source] = d.Text
	}
	assert.Equal(t, "resume body", bySource["resume.txt"])
	assert.Equal(t, "notes body", bySource["notes.md"])
}

func TestLoadDirMissing(t *testing.T) {
	_, err := LoadDir(filepath.Join(t.TempDir(), "does-not-exist"))
	assert.Error(t, err)
}

func TestChunkTextParagraphBoundaries(t *testing.T) {
	text := "first paragraph here\n\nsecond paragraph here\n\nthird paragraph here"

	chunks := ChunkText(text, 45)
	require.Len(t, chunks, 2)
	assert.Equal(t, "first paragraph here\n\nsecond paragraph here", chunks[0])
	assert.Equal(t, "third paragraph here", chunks[1])
}

func TestChunkTextOversizedParagraph(t *testing.T) {
	words := make([]string, 100)
	for i := range words {
		words[i] = "word"
	}
	text := strings.Join(words, " ")

	chunks := ChunkText(text, 50)
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 50)
		assert.NotContains(t, c, "  ")
	}
	assert.Equal(t, text, strings.Join(chunks, " "))
}

func TestChunkTextDefaults(t *testing.T) {
	assert.Nil(t, ChunkText("   ", 100))

	chunks := ChunkText("short text", 0)
	require.Len(t, chunks, 1)
	assert.Equal(t, "short text", chunks[0])
}
