// Package recall keeps an in-memory index of conversation turns so chat
// prompts can be grounded in earlier exchanges. Nothing is persisted;
// the index lives and dies with the daemon.
package recall

import (
	"context"
	"sync"

	"github.com/coder/hnsw"
	"github.com/google/uuid"
)

// Turn is one recorded conversation exchange half.
type Turn struct {
	Role string // "user" or "assistant"
	Text string // redacted before it got here
}

// Embedding produces a vector for a piece of text.
type Embedding interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Index is an HNSW nearest-neighbor index over embedded turns.
type Index struct {
	embedder Embedding
	maxTurns int

	mu    sync.RWMutex
	graph *hnsw.Graph[string]
	turns map[string]Turn
	order []string // insertion order, oldest first, for eviction
}

// NewIndex creates an index capped at maxTurns entries. maxTurns <= 0
// means 200.
func NewIndex(embedder Embedding, maxTurns int) *Index {
	if maxTurns <= 0 {
		maxTurns = 200
	}
	return &Index{
		embedder: embedder,
		maxTurns: maxTurns,
		graph:    hnsw.NewGraph[string](),
		turns:    make(map[string]Turn),
	}
}

// Record redacts and embeds one turn, then inserts it. The oldest turn
// is evicted once the cap is reached.
func (ix *Index) Record(ctx context.Context, role, text string) error {
	redacted := Redact(text, "")
	vec, err := ix.embedder.Embed(ctx, redacted)
	if err != nil {
		return err
	}

	key := uuid.NewString()

	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.graph.Add(hnsw.MakeNode(key, vec))
	ix.turns[key] = Turn{Role: role, Text: redacted}
	ix.order = append(ix.order, key)

	for len(ix.order) > ix.maxTurns {
		oldest := ix.order[0]
		ix.order = ix.order[1:]
		ix.graph.Delete(oldest)
		delete(ix.turns, oldest)
	}
	return nil
}

// Relevant returns up to k recorded turns nearest the query.
func (ix *Index) Relevant(ctx context.Context, query string, k int) ([]Turn, error) {
	if k <= 0 {
		return nil, nil
	}

	vec, err := ix.embedder.Embed(ctx, Redact(query, ""))
	if err != nil {
		return nil, err
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if ix.graph.Len() == 0 {
		return nil, nil
	}

	neighbors := ix.graph.Search(vec, k)
	turns := make([]Turn, 0, len(neighbors))
	for _, n := range neighbors {
		if turn, ok := ix.turns[n.Key]; ok {
			turns = append(turns, turn)
		}
	}
	return turns, nil
}

// Len reports the number of recorded turns.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.turns)
}
