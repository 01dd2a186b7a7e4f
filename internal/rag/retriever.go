package rag

import (
	"context"

	"go.uber.org/zap"

	"github.com/evolutia/examgen/internal/material"
)

// RetrieverConfig holds the per-channel fan-out limits.
type RetrieverConfig struct {
	SimilarK      int
	ConceptsK     int
	ReadingK      int
	PeersK        int
	PeerTolerance float64
}

// DefaultRetrieverConfig returns the standard channel limits.
func DefaultRetrieverConfig() RetrieverConfig {
	return RetrieverConfig{
		SimilarK:      5,
		ConceptsK:     3,
		ReadingK:      2,
		PeersK:        3,
		PeerTolerance: 0.3,
	}
}

// Retriever is a façade over the Index exposing the four retrieval
// channels. Every channel is independently guarded: a failing channel
// degrades to an empty result and a warning, it never aborts the others.
type Retriever struct {
	index Index
	cfg   RetrieverConfig
	log   *zap.Logger
}

// NewRetriever creates a Retriever. A nil index is allowed and makes
// every retrieval short-circuit to an empty Context.
func NewRetriever(index Index, cfg RetrieverConfig, log *zap.Logger) *Retriever {
	if log == nil {
		log = zap.NewNop()
	}
	return &Retriever{index: index, cfg: cfg, log: log}
}

// Enabled reports whether an index backs this retriever. Runs without
// one degrade to ungrounded generation.
func (r *Retriever) Enabled() bool {
	return r.index != nil
}

// Retrieve gathers context for a variation attempt on an existing
// exercise.
func (r *Retriever) Retrieve(ctx context.Context, ex material.Exercise, an material.Analysis) Context {
	out := Context{}
	if r.index == nil {
		return out
	}

	out[ChannelSimilar] = r.channel(ChannelSimilar, func() ([]Hit, error) {
		return r.index.SimilarExercises(ctx, ex.Content, ex.Label, r.cfg.SimilarK)
	})

	if len(an.Concepts) > 0 {
		out[ChannelConcepts] = r.channel(ChannelConcepts, func() ([]Hit, error) {
			return r.index.RelatedConcepts(ctx, an.Concepts, r.cfg.ConceptsK)
		})
	}

	if ex.Topic != "" {
		out[ChannelReading] = r.channel(ChannelReading, func() ([]Hit, error) {
			return r.index.ReadingContext(ctx, ex.Topic, r.cfg.ReadingK)
		})
	}

	if an.MathComplexity > 0 {
		out[ChannelPeers] = r.channel(ChannelPeers, func() ([]Hit, error) {
			return r.index.ByComplexity(ctx, an.MathComplexity, r.cfg.PeerTolerance, r.cfg.PeersK)
		})
	}

	return out
}

// TopicContext gathers context for de-novo creation: reading material for
// the topic plus exercises related to the search terms (tags and topic).
func (r *Retriever) TopicContext(ctx context.Context, topic string, terms []string) Context {
	out := Context{}
	if r.index == nil {
		return out
	}

	out[ChannelReading] = r.channel(ChannelReading, func() ([]Hit, error) {
		return r.index.ReadingContext(ctx, topic, 3)
	})

	if len(terms) > 0 {
		out[ChannelConcepts] = r.channel(ChannelConcepts, func() ([]Hit, error) {
			return r.index.RelatedConcepts(ctx, terms, 3)
		})
	}

	return out
}

// channel runs one retrieval call, converting any failure into an empty
// result.
func (r *Retriever) channel(name string, fn func() ([]Hit, error)) []Hit {
	hits, err := fn()
	if err != nil {
		r.log.Warn("retrieval channel failed, continuing without it",
			zap.String("channel", name), zap.Error(err))
		return nil
	}
	return hits
}
