package internal

import (
	"strings"

	"github.com/kiosk404/ragrelay/internal/ragrelay/service/knowledge/entity"
)

// ChunkMarkdown splits a document into line-aligned chunks of at most
// max(32, Tokens*4) bytes. Lines longer than that are cut into segments.
// The last Overlap*4 bytes of a chunk (rounded up to whole lines) are
// repeated at the start of the next one.
func ChunkMarkdown(content string, cfg entity.ChunkingConfig) []entity.Chunk {
	if strings.TrimSpace(content) == "" {
		return nil
	}
	maxChars := max(32, cfg.Tokens*4)
	overlapChars := max(0, cfg.Overlap*4)

	type lineEntry struct {
		line   string
		lineNo int
	}

	var (
		chunks       []entity.Chunk
		current      []lineEntry
		currentChars int
	)

	flush := func() {
		if len(current) == 0 {
			return
		}
		parts := make([]string, len(current))
		for i, entry := range current {
			parts[i] = entry.line
		}
		text := strings.Join(parts, "\n")
		if strings.TrimSpace(text) == "" {
			return
		}
		chunks = append(chunks, entity.Chunk{
			StartLine: current[0].lineNo,
			EndLine:   current[len(current)-1].lineNo,
			Text:      text,
			Hash:      HashText(text),
		})
	}

	carryOverlap := func() {
		if overlapChars <= 0 {
			current = nil
			currentChars = 0
			return
		}
		acc := 0
		start := len(current)
		for start > 0 && acc < overlapChars {
			start--
			acc += len(current[start].line) + 1
		}
		current = append([]lineEntry(nil), current[start:]...)
		currentChars = acc
	}

	for i, line := range strings.Split(content, "\n") {
		segments := []string{line}
		if len(line) > maxChars {
			segments = segments[:0]
			for start := 0; start < len(line); start += maxChars {
				segments = append(segments, line[start:min(start+maxChars, len(line))])
			}
		}
		for _, segment := range segments {
			size := len(segment) + 1
			if currentChars+size > maxChars && len(current) > 0 {
				flush()
				carryOverlap()
				// an overlap that cannot fit next to the new line is dropped
				if currentChars+size > maxChars {
					current = nil
					currentChars = 0
				}
			}
			current = append(current, lineEntry{line: segment, lineNo: i + 1})
			currentChars += size
		}
	}
	flush()
	return chunks
}
