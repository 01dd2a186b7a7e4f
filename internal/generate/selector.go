package generate

import (
	"math/rand"
	"sort"
	"strings"

	"github.com/evolutia/examgen/internal/material"
)

// Selector picks which source exercise each variation attempt starts
// from. Candidates are ranked by complexity once per run; each pick
// samples uniformly from the top half of the pool so repeated attempts
// do not hammer a single exercise.
type Selector struct {
	pool []Candidate
	rng  *rand.Rand
}

// NewSelector ranks the candidates by complexity (descending) and keeps
// the top 2*count as the sampling pool. A non-positive count keeps the
// whole ranking.
func NewSelector(candidates []Candidate, count int, seed int64) *Selector {
	ranked := make([]Candidate, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Analysis.MathComplexity > ranked[j].Analysis.MathComplexity
	})

	if count > 0 && len(ranked) > count*2 {
		ranked = ranked[:count*2]
	}

	return &Selector{pool: ranked, rng: rand.New(rand.NewSource(seed))}
}

// Pick returns one candidate sampled from the top half of the pool (at
// least five entries when available). Returns false on an empty pool.
func (s *Selector) Pick() (Candidate, bool) {
	if len(s.pool) == 0 {
		return Candidate{}, false
	}
	n := len(s.pool) / 2
	if n < 5 {
		n = 5
	}
	if n > len(s.pool) {
		n = len(s.pool)
	}
	return s.pool[s.rng.Intn(n)], true
}

// PoolSize reports how many candidates survived ranking.
func (s *Selector) PoolSize() int {
	return len(s.pool)
}

// FilterCandidates applies the topic and tag filters to the extracted
// material. Tag matching is a case-insensitive substring check against
// the exercise content and its front matter tags.
func FilterCandidates(candidates []Candidate, topics, tags []string) []Candidate {
	if len(topics) == 0 && len(tags) == 0 {
		return candidates
	}

	topicSet := make(map[string]bool, len(topics))
	for _, t := range topics {
		topicSet[strings.ToLower(t)] = true
	}

	var out []Candidate
	for _, c := range candidates {
		if len(topicSet) > 0 && !topicSet[strings.ToLower(c.Exercise.Topic)] {
			continue
		}
		if len(tags) > 0 && !matchesTags(c.Exercise, tags) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func matchesTags(ex material.Exercise, tags []string) bool {
	haystack := strings.ToLower(ex.Content)
	if fmTags, ok := ex.Frontmatter["tags"].([]any); ok {
		for _, t := range fmTags {
			if s, ok := t.(string); ok {
				haystack += " " + strings.ToLower(s)
			}
		}
	}
	for _, tag := range tags {
		if strings.Contains(haystack, strings.ToLower(tag)) {
			return true
		}
	}
	return false
}

// topicAt round-robins over the requested topics for creation mode.
func topicAt(topics []string, i int) string {
	if len(topics) == 0 {
		return ""
	}
	return topics[i%len(topics)]
}
