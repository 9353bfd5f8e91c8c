package internal

import (
	"strings"
	"testing"

	"github.com/kiosk404/ragrelay/internal/ragrelay/service/knowledge/entity"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"
)

func TestChunkMarkdownSmallDocument(t *testing.T) {
	chunks := ChunkMarkdown("# Title\n\nBody line.", entity.ChunkingConfig{Tokens: 100})
	require.Len(t, chunks, 1)
	require.Equal(t, 1, chunks[0].StartLine)
	require.Equal(t, 3, chunks[0].EndLine)
	require.Equal(t, HashText("# Title\n\nBody line."), chunks[0].Hash)
}

func TestChunkMarkdownBlankDocument(t *testing.T) {
	require.Empty(t, ChunkMarkdown(" \n\n\t", entity.ChunkingConfig{Tokens: 10}))
}

func TestChunkMarkdownOverlap(t *testing.T) {
	lines := []string{
		strings.Repeat("a", 20),
		strings.Repeat("b", 20),
		strings.Repeat("c", 20),
		strings.Repeat("d", 20),
	}
	// 48 bytes per chunk, 8 bytes of overlap: one line is carried over
	chunks := ChunkMarkdown(strings.Join(lines, "\n"), entity.ChunkingConfig{Tokens: 12, Overlap: 2})
	require.Len(t, chunks, 3)
	require.Equal(t, [2]int{1, 2}, [2]int{chunks[0].StartLine, chunks[0].EndLine})
	require.Equal(t, [2]int{2, 3}, [2]int{chunks[1].StartLine, chunks[1].EndLine})
	require.Equal(t, [2]int{3, 4}, [2]int{chunks[2].StartLine, chunks[2].EndLine})
}

func TestChunkMarkdownSplitsLongLines(t *testing.T) {
	chunks := ChunkMarkdown(strings.Repeat("x", 100), entity.ChunkingConfig{Tokens: 8})
	require.Len(t, chunks, 4)
	for _, c := range chunks {
		require.LessOrEqual(t, len(c.Text), 32)
		require.Equal(t, 1, c.StartLine)
	}
}

func TestChunkMarkdownProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	lineGen := gen.AlphaString()
	properties.Property("chunks respect the size limit and cover every line", prop.ForAll(
		func(lines []string, tokens, overlap int) bool {
			content := strings.Join(lines, "\n")
			maxChars := max(32, tokens*4)
			chunks := ChunkMarkdown(content, entity.ChunkingConfig{Tokens: tokens, Overlap: overlap})

			covered := make(map[int]bool)
			for _, c := range chunks {
				if len(c.Text) > maxChars || c.StartLine > c.EndLine {
					return false
				}
				for l := c.StartLine; l <= c.EndLine; l++ {
					covered[l] = true
				}
			}
			for i, l := range lines {
				if strings.TrimSpace(l) != "" && !covered[i+1] {
					return false
				}
			}
			return true
		},
		gen.SliceOf(lineGen),
		gen.IntRange(0, 64),
		gen.IntRange(0, 16),
	))
	properties.TestingRun(t)
}
