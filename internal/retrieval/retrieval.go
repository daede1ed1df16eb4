// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package retrieval indexes the Markdown policy and marketing corpus
// and ranks paragraph chunks against queries with TF-IDF cosine
// similarity. The index is built once at startup and is safe for
// concurrent readers.
package retrieval

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/pdiddy/retail-copilot/pkg/types"
)

// maxFeatures caps the vocabulary at the most frequent terms.
const maxFeatures = 1000

// DefaultTopK is the number of chunks returned when the caller does
// not say otherwise.
const DefaultTopK = 5

var tokenPattern = regexp.MustCompile(`\w\w+`)

// stopwords are dropped before unigrams and bigrams are formed.
var stopwords = map[string]bool{
	"a": true, "about": true, "above": true, "after": true, "again": true,
	"all": true, "also": true, "am": true, "an": true, "and": true,
	"any": true, "are": true, "as": true, "at": true, "be": true,
	"because": true, "been": true, "before": true, "being": true,
	"between": true, "both": true, "but": true, "by": true, "can": true,
	"could": true, "did": true, "do": true, "does": true, "doing": true,
	"down": true, "during": true, "each": true, "few": true, "for": true,
	"from": true, "further": true, "had": true, "has": true, "have": true,
	"having": true, "he": true, "her": true, "here": true, "hers": true,
	"him": true, "his": true, "how": true, "if": true, "in": true,
	"into": true, "is": true, "it": true, "its": true, "just": true,
	"me": true, "more": true, "most": true, "my": true, "no": true,
	"nor": true, "not": true, "now": true, "of": true, "off": true,
	"on": true, "once": true, "only": true, "or": true, "other": true,
	"our": true, "out": true, "over": true, "own": true, "same": true,
	"she": true, "should": true, "so": true, "some": true, "such": true,
	"than": true, "that": true, "the": true, "their": true, "them": true,
	"then": true, "there": true, "these": true, "they": true, "this": true,
	"those": true, "through": true, "to": true, "too": true, "under": true,
	"until": true, "up": true, "very": true, "was": true, "we": true,
	"were": true, "what": true, "when": true, "where": true, "which": true,
	"while": true, "who": true, "whom": true, "why": true, "will": true,
	"with": true, "you": true, "your": true,
}

// Index is an in-memory TF-IDF index over document chunks. Immutable
// after Open.
type Index struct {
	chunks  []types.EvidenceChunk
	vocab   map[string]int
	idf     []float64
	vectors [][]float64
}

// Open reads every .md file under cfg.DocsDir, splits each on blank
// lines into paragraph chunks, and builds the index. Chunk IDs are
// "<filename-without-extension>::chunk<n>" with n counted per file.
func Open(cfg types.RetrievalConfig) (*Index, error) {
	entries, err := os.ReadDir(cfg.DocsDir)
	if err != nil {
		return nil, fmt.Errorf("reading docs dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".md") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var chunks []types.EvidenceChunk
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(cfg.DocsDir, name))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		source := strings.TrimSuffix(name, ".md")
		n := 0
		for _, para := range strings.Split(string(data), "\n\n") {
			para = strings.TrimSpace(para)
			if para == "" {
				continue
			}
			chunks = append(chunks, types.EvidenceChunk{
				ID:      fmt.Sprintf("%s::chunk%d", source, n),
				Content: para,
				Source:  source,
			})
			n++
		}
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("no document chunks found in %s", cfg.DocsDir)
	}

	ix := &Index{chunks: chunks}
	ix.build()
	return ix, nil
}

// build selects the vocabulary and computes one normalized TF-IDF
// vector per chunk.
func (ix *Index) build() {
	perChunk := make([]map[string]int, len(ix.chunks))
	totals := make(map[string]int)
	for i, chunk := range ix.chunks {
		counts := make(map[string]int)
		for _, term := range terms(chunk.Content) {
			counts[term]++
			totals[term] += 1
		}
		perChunk[i] = counts
	}

	// Keep the most frequent terms; ties break lexicographically so
	// the vocabulary is deterministic.
	type termCount struct {
		term  string
		count int
	}
	ranked := make([]termCount, 0, len(totals))
	for term, count := range totals {
		ranked = append(ranked, termCount{term, count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].term < ranked[j].term
	})
	if len(ranked) > maxFeatures {
		ranked = ranked[:maxFeatures]
	}

	ix.vocab = make(map[string]int, len(ranked))
	for i, tc := range ranked {
		ix.vocab[tc.term] = i
	}

	// Smoothed inverse document frequency.
	df := make([]int, len(ix.vocab))
	for _, counts := range perChunk {
		for term := range counts {
			if col, ok := ix.vocab[term]; ok {
				df[col]++
			}
		}
	}
	n := float64(len(ix.chunks))
	ix.idf = make([]float64, len(ix.vocab))
	for col, d := range df {
		ix.idf[col] = math.Log((1+n)/(1+float64(d))) + 1
	}

	ix.vectors = make([][]float64, len(ix.chunks))
	for i, counts := range perChunk {
		vec := make([]float64, len(ix.vocab))
		for term, count := range counts {
			if col, ok := ix.vocab[term]; ok {
				vec[col] = float64(count) * ix.idf[col]
			}
		}
		normalize(vec)
		ix.vectors[i] = vec
	}
}

// Retrieve returns the topK highest-scoring chunks for the query,
// best first. It never fails: a query with no indexed terms still
// returns chunks, all scored zero.
func (ix *Index) Retrieve(query string, topK int) []types.EvidenceChunk {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if topK > len(ix.chunks) {
		topK = len(ix.chunks)
	}

	qv := make([]float64, len(ix.vocab))
	for _, term := range terms(query) {
		if col, ok := ix.vocab[term]; ok {
			qv[col] += ix.idf[col]
		}
	}
	normalize(qv)

	order := make([]int, len(ix.chunks))
	scores := make([]float64, len(ix.chunks))
	for i, vec := range ix.vectors {
		order[i] = i
		scores[i] = dot(qv, vec)
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	out := make([]types.EvidenceChunk, 0, topK)
	for _, i := range order[:topK] {
		chunk := ix.chunks[i]
		chunk.Score = scores[i]
		out = append(out, chunk)
	}
	return out
}

// Chunks returns every indexed chunk in corpus order.
func (ix *Index) Chunks() []types.EvidenceChunk {
	out := make([]types.EvidenceChunk, len(ix.chunks))
	copy(out, ix.chunks)
	return out
}

// Len returns the number of indexed chunks.
func (ix *Index) Len() int { return len(ix.chunks) }

// terms tokenizes text into lowercase unigrams and bigrams, with
// stopwords removed before bigrams are formed.
func terms(text string) []string {
	words := tokenPattern.FindAllString(strings.ToLower(text), -1)
	kept := words[:0]
	for _, w := range words {
		if !stopwords[w] {
			kept = append(kept, w)
		}
	}

	out := make([]string, 0, 2*len(kept))
	out = append(out, kept...)
	for i := 0; i+1 < len(kept); i++ {
		out = append(out, kept[i]+" "+kept[i+1])
	}
	return out
}

func normalize(vec []float64) {
	var sum float64
	for _, v := range vec {
		sum += v * v
	}
	if sum == 0 {
		return
	}
	norm := math.Sqrt(sum)
	for i := range vec {
		vec[i] /= norm
	}
}

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
