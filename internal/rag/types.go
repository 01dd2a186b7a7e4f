package rag

import (
	"context"

	"github.com/evolutia/examgen/internal/material"
)

// Hit is one ranked match returned by the retrieval index.
type Hit struct {
	// Content is the matched chunk text.
	Content string

	// Similarity is the match score in [0, 1], higher is closer.
	Similarity float64

	// Metadata carries chunk attributes: "label", "source", "type"
	// ("exercise" or "reading"), "topic", "complexity".
	Metadata map[string]string
}

// Retrieval channel names, in the fixed order used for prompt assembly.
const (
	ChannelSimilar  = "similar_exercises"
	ChannelConcepts = "related_concepts"
	ChannelReading  = "reading_context"
	ChannelPeers    = "complexity_examples"
)

// channelOrder fixes the ordering of channels in enriched prompts.
var channelOrder = []string{ChannelSimilar, ChannelConcepts, ChannelReading, ChannelPeers}

// Context maps a channel name to its ranked hits. Assembled per
// generation attempt and discarded after prompt construction.
type Context map[string][]Hit

// Empty reports whether no channel produced any hit.
func (c Context) Empty() bool {
	for _, hits := range c {
		if len(hits) > 0 {
			return false
		}
	}
	return true
}

// References extracts provenance identifiers from the similar-exercise
// and reading channels: the exercise label when present, otherwise the
// source path.
func (c Context) References() []string {
	var refs []string
	for _, h := range c[ChannelSimilar] {
		if l := h.Metadata["label"]; l != "" {
			refs = append(refs, l)
		} else if s := h.Metadata["source"]; s != "" {
			refs = append(refs, s)
		}
	}
	for _, h := range c[ChannelReading] {
		if s := h.Metadata["source"]; s != "" {
			refs = append(refs, s)
		}
	}
	return refs
}

// Index is the persisted semantic index over exercises and reading
// material. Implementations live outside the core generation logic; the
// bundled SQLiteIndex is a term-frequency stand-in for a real embedding
// store.
type Index interface {
	// SimilarExercises finds exercises close to the given free text,
	// excluding the one identified by excludeLabel.
	SimilarExercises(ctx context.Context, text, excludeLabel string, topK int) ([]Hit, error)

	// RelatedConcepts finds material matching the given concept tags.
	RelatedConcepts(ctx context.Context, concepts []string, topK int) ([]Hit, error)

	// ReadingContext finds non-exercise reading material for a topic.
	ReadingContext(ctx context.Context, topic string, topK int) ([]Hit, error)

	// ByComplexity finds exercises whose complexity score falls within
	// score*(1±tolerance).
	ByComplexity(ctx context.Context, score, tolerance float64, topK int) ([]Hit, error)

	// Search is the free-form query used by the CLI query command.
	Search(ctx context.Context, query string, topK int) ([]Hit, error)

	// IsIndexed reports whether the index holds any documents.
	IsIndexed(ctx context.Context) (bool, error)

	// IndexMaterials (re)builds the index from the given materials,
	// using the analyzer for complexity metadata.
	IndexMaterials(ctx context.Context, exercises []material.Exercise, readings []material.Reading, analyzer material.Analyzer, clearExisting bool) error
}
