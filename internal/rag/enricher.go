package rag

import (
	"fmt"
	"strings"

	"github.com/evolutia/examgen/internal/material"
)

// channelHeadings maps channels to their prompt block headings.
var channelHeadings = map[string]string{
	ChannelSimilar:  "SIMILAR EXERCISES FROM THE COURSE",
	ChannelConcepts: "RELATED CONCEPT MATERIAL",
	ChannelReading:  "COURSE READING CONTEXT",
	ChannelPeers:    "EXERCISES OF COMPARABLE COMPLEXITY",
}

// Enricher composes retrieved context into prompt text. All methods are
// deterministic string composition: identical inputs produce byte-identical
// output. Channels appear in fixed order; within a channel, hits keep the
// index's ranking order.
type Enricher struct {
	// MaxHitLen bounds the length of each injected hit, in bytes.
	MaxHitLen int
}

// NewEnricher returns an Enricher with the default truncation bound.
func NewEnricher() *Enricher {
	return &Enricher{MaxHitLen: 600}
}

// BuildPrompt appends a labeled block per non-empty channel to the base
// prompt. With an empty context the base prompt is returned unchanged.
func (e *Enricher) BuildPrompt(base string, ex material.Exercise, an material.Analysis, c Context) string {
	if c.Empty() {
		return base
	}

	var b strings.Builder
	b.WriteString(base)
	b.WriteString("\n\nCOURSE CONTEXT (retrieved reference material, ranked by similarity):\n")
	e.writeChannels(&b, c)
	b.WriteString("\nUse the retrieved material only as style and difficulty reference. Do not copy it.")
	return b.String()
}

// Flatten renders the whole context as a free-text summary, for prompts
// that take context as a plain string (quiz and de-novo creation).
func (e *Enricher) Flatten(c Context) string {
	if c.Empty() {
		return "No reference material available."
	}
	var b strings.Builder
	e.writeChannels(&b, c)
	return strings.TrimRight(b.String(), "\n")
}

func (e *Enricher) writeChannels(b *strings.Builder, c Context) {
	for _, ch := range channelOrder {
		hits := c[ch]
		if len(hits) == 0 {
			continue
		}
		fmt.Fprintf(b, "\n## %s\n", channelHeadings[ch])
		for i, h := range hits {
			fmt.Fprintf(b, "[%d] (similarity %.2f)", i+1, h.Similarity)
			if l := h.Metadata["label"]; l != "" {
				fmt.Fprintf(b, " [%s]", l)
			}
			b.WriteString("\n")
			b.WriteString(e.truncate(h.Content))
			b.WriteString("\n")
		}
	}
}

func (e *Enricher) truncate(s string) string {
	max := e.MaxHitLen
	if max <= 0 {
		max = 600
	}
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
