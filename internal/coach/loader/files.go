package loader

import (
	"sort"
	"strings"
)

const (
	chunkSize         = 1200 // characters per chunk, paragraph-aligned
	maxRelevantChunks = 3
)

// ProcessAttachment chunks an attachment and extracts the chunks most
// relevant to the query.
func ProcessAttachment(att Attachment, query string) ProcessedFile {
	chunks := ChunkText(att.Content)
	return ProcessedFile{
		Name:     att.Name,
		Chunks:   chunks,
		Relevant: RelevantChunks(chunks, query, maxRelevantChunks),
	}
}

// ChunkText splits text into chunks of roughly chunkSize characters,
// breaking on paragraph boundaries so no chunk starts mid-thought. A
// single oversized paragraph becomes its own chunk.
func ChunkText(content string) []string {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}

	paragraphs := strings.Split(content, "\n\n")
	var chunks []string
	var current strings.Builder

	for _, para := range paragraphs {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if current.Len() > 0 && current.Len()+len(para) > chunkSize {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

// RelevantChunks keeps the chunks sharing the most words with the
// query, up to max, preserving their original order. An empty query
// keeps the leading chunks.
func RelevantChunks(chunks []string, query string, max int) []string {
	if len(chunks) == 0 || max <= 0 {
		return nil
	}
	if len(chunks) <= max {
		return chunks
	}

	queryWords := wordSet(query)
	if len(queryWords) == 0 {
		return chunks[:max]
	}

	type scored struct {
		index int
		score int
	}
	ranked := make([]scored, len(chunks))
	for i, chunk := range chunks {
		score := 0
		for word := range wordSet(chunk) {
			if queryWords[word] {
				score++
			}
		}
		ranked[i] = scored{index: i, score: score}
	}

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	keep := ranked[:max]
	sort.Slice(keep, func(i, j int) bool { return keep[i].index < keep[j].index })

	out := make([]string, len(keep))
	for i, k := range keep {
		out[i] = chunks[k.index]
	}
	return out
}

func wordSet(s string) map[string]bool {
	words := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(s)) {
		w = strings.Trim(w, ".,!?;:\"'()[]")
		if len(w) > 2 {
			words[w] = true
		}
	}
	return words
}
