package retriever

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/logscout-dev/logscout/pkg/logstore"
)

// DefaultTopK is the default number of matches returned per search.
const DefaultTopK = 25

// embedBatchSize bounds how many texts go into one embeddings request.
const embedBatchSize = 50

// Match is one scored search hit: the indexed text plus the record's metadata
// attributes.
type Match struct {
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata"`
	Score    float32           `json:"score"`
}

type entry struct {
	text      string
	metadata  map[string]string
	embedding []float32
}

// Index is an in-memory brute-force cosine similarity index over log records.
// It is built once at startup and read-only afterwards.
type Index struct {
	entries  []entry
	embedder Embedder
	topK     int
}

// BuildIndex embeds every record's text and assembles the index. Metadata per
// entry mirrors what the retriever exposes to the summarizer: timestamp,
// service, severity and process runtime.
func BuildIndex(ctx context.Context, store *logstore.Store, embedder Embedder, topK int) (*Index, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	records := store.Records()
	entries := make([]entry, 0, len(records))

	for start := 0; start < len(records); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(records) {
			end = len(records)
		}
		batch := records[start:end]

		texts := make([]string, len(batch))
		for i, rec := range batch {
			texts[i] = rec.EmbeddingText()
		}

		embeddings, err := embedder.Embed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed batch at %d: %w", start, err)
		}

		for i, rec := range batch {
			ts, _ := rec.Value(logstore.ColumnTimestamp)
			svc, _ := rec.Value("ServiceName")
			sev, _ := rec.Value("SeverityText")
			entries = append(entries, entry{
				text: texts[i],
				metadata: map[string]string{
					"timestamp":       ts,
					"ServiceName":     svc,
					"SeverityText":    sev,
					"process_runtime": rec.RuntimeName(),
				},
				embedding: embeddings[i],
			})
		}
	}

	return &Index{entries: entries, embedder: embedder, topK: topK}, nil
}

// Len returns the number of indexed entries.
func (ix *Index) Len() int {
	return len(ix.entries)
}

// Search embeds the query and returns up to topK matches ordered by
// descending cosine similarity. topK <= 0 uses the index default.
func (ix *Index) Search(ctx context.Context, query string, topK int) ([]Match, error) {
	if topK <= 0 {
		topK = ix.topK
	}

	embeddings, err := ix.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	qv := embeddings[0]

	matches := make([]Match, 0, len(ix.entries))
	for _, e := range ix.entries {
		matches = append(matches, Match{
			Text:     e.text,
			Metadata: e.metadata,
			Score:    cosineSimilarity(qv, e.embedding),
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
