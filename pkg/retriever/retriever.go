// Package retriever turns a free-text query into a bounded, source-diversified,
// score-ordered set of passages for prompt injection. It embeds the query,
// over-fetches candidates from the vector index, then runs a per-source
// quota selection so one document cannot crowd out every other source.
package retriever

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/bookbinderco/stacks/pkg/embeddings"
	"github.com/bookbinderco/stacks/pkg/vector"
)

// ErrInvalidQuery is returned when the query text is empty or whitespace-only.
// It is rejected before any collaborator call is made.
var ErrInvalidQuery = errors.New("invalid query")

const (
	// DefaultTopK is the result budget used when the caller passes k <= 0.
	DefaultTopK = 5

	// DefaultOverfetchFactor is the multiple of k requested from the index.
	// Over-fetching compensates for the quota step discarding same-source
	// candidates; without it a single relevant document could starve the rest.
	DefaultOverfetchFactor = 10
)

// Retriever fetches and ranks passages for a query. It is stateless and safe
// for concurrent use; the embedder and index are injected at construction.
type Retriever struct {
	embedder  embeddings.Embedder
	index     vector.Index
	overfetch int
	logger    *zap.Logger
}

// Option configures a Retriever created with New.
type Option func(*Retriever)

// WithOverfetchFactor overrides the candidate over-fetch multiple.
// Values below 1 are clamped to 1.
func WithOverfetchFactor(factor int) Option {
	return func(r *Retriever) {
		if factor < 1 {
			factor = 1
		}
		r.overfetch = factor
	}
}

// New creates a Retriever with the given collaborators.
func New(embedder embeddings.Embedder, index vector.Index, logger *zap.Logger, opts ...Option) *Retriever {
	r := &Retriever{
		embedder:  embedder,
		index:     index,
		overfetch: DefaultOverfetchFactor,
		logger:    logger,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Fetch returns up to k passages relevant to query, sorted by similarity
// descending, with at most each source's quota of passages per source.
// An empty result is a normal outcome; errors only come from the query
// itself (ErrInvalidQuery) or the two collaborators (vector.ErrEmbedding,
// vector.ErrIndex).
func (r *Retriever) Fetch(ctx context.Context, query string, k int, scoreFloor float32) ([]vector.Candidate, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query text is empty", ErrInvalidQuery)
	}

	if k <= 0 {
		k = DefaultTopK
	}

	embedding, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	candidates, err := r.index.Search(ctx, embedding, k*r.overfetch, scoreFloor)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}

	selected := selectDiverse(candidates, k, scoreFloor)

	r.logger.Debug("retrieved passages",
		zap.String("query", query),
		zap.Int("k", k),
		zap.Float32("score_floor", scoreFloor),
		zap.Int("candidates", len(candidates)),
		zap.Int("selected", len(selected)),
	)

	return selected, nil
}

// sourceGroup holds one source's candidates, ranked by similarity descending.
type sourceGroup struct {
	source   string
	members  []vector.Candidate
	maxScore float32
	avgScore float32
}

// quota returns the maximum number of passages this group may contribute.
// A very relevant document may legitimately dominate the answer; a marginal
// one contributes at most a single chunk.
func (g *sourceGroup) quota() int {
	switch {
	case g.maxScore > 0.75:
		return 5
	case g.maxScore > 0.65:
		return 4
	case g.maxScore > 0.55:
		return 3
	case g.maxScore > 0.45:
		return 2
	default:
		return 1
	}
}

// selectDiverse runs the two-pass quota selection over the candidate list:
// a breadth pass visiting sources in descending max-score order, then a
// backfill pass that lets the most relevant sources fill any remaining budget
// up to their quota. The result is re-sorted by similarity descending and
// capped at k.
func selectDiverse(candidates []vector.Candidate, k int, scoreFloor float32) []vector.Candidate {
	groups := groupBySource(candidates, scoreFloor)

	selected := make([]vector.Candidate, 0, k)
	taken := make(map[string]int, len(groups))

	// Breadth pass: each source contributes up to its quota, best first.
	for _, g := range groups {
		if len(selected) >= k {
			break
		}
		limit := min(g.quota(), len(g.members))
		for i := 0; i < limit && len(selected) < k; i++ {
			selected = append(selected, g.members[i])
			taken[g.source]++
		}
	}

	// Backfill pass: revisit sources in the same order for any quota-eligible
	// members the breadth pass left behind.
	if len(selected) < k {
		for _, g := range groups {
			if len(selected) >= k {
				break
			}
			limit := min(g.quota(), len(g.members))
			for i := taken[g.source]; i < limit && len(selected) < k; i++ {
				selected = append(selected, g.members[i])
				taken[g.source]++
			}
		}
	}

	// Selection order is source-major; callers expect strict relevance order.
	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].Similarity > selected[j].Similarity
	})

	if len(selected) > k {
		selected = selected[:k]
	}

	return selected
}

// groupBySource buckets candidates by source name, ordered by descending
// max score. Candidates with empty text or a score below the floor are
// dropped first so they never count against a source's quota.
func groupBySource(candidates []vector.Candidate, scoreFloor float32) []*sourceGroup {
	var groups []*sourceGroup
	bySource := make(map[string]*sourceGroup)

	for _, c := range candidates {
		if strings.TrimSpace(c.Text) == "" || c.Similarity < scoreFloor {
			continue
		}

		g, ok := bySource[c.Source]
		if !ok {
			g = &sourceGroup{source: c.Source}
			bySource[c.Source] = g
			groups = append(groups, g)
		}
		g.members = append(g.members, c)
	}

	for _, g := range groups {
		sort.SliceStable(g.members, func(i, j int) bool {
			return g.members[i].Similarity > g.members[j].Similarity
		})

		var sum float32
		for _, m := range g.members {
			sum += m.Similarity
		}
		g.maxScore = g.members[0].Similarity
		g.avgScore = sum / float32(len(g.members))
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].maxScore > groups[j].maxScore
	})

	return groups
}
