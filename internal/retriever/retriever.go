// Package retriever implements the two read paths over the vector store:
// finding individual relevant chunks across all résumés, and ranking
// whole résumés against a job description. Adapted from this codebase's
// query-orchestration shape (embed the query, fan out to the store,
// post-process results), simplified to a single vector query per call
// since this domain has no full-text or graph leg to fuse with.
package retriever

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"cvmatch/internal/apperr"
	"cvmatch/internal/embedding"
	"cvmatch/internal/model"
	"cvmatch/internal/vectorstore"
)

const component = "retriever"

// Retriever answers similarity queries against the vector store.
type Retriever struct {
	embedder embedding.Embedder
	store    vectorstore.Store
}

// New builds a Retriever.
func New(embedder embedding.Embedder, store vectorstore.Store) *Retriever {
	return &Retriever{embedder: embedder, store: store}
}

// FindSimilarChunksParams holds the tunable knobs for FindSimilarChunks,
// defaulted at the RPC boundary per spec.md §6.
type FindSimilarChunksParams struct {
	JDText            string
	MinScore          float64
	MaxChunksToQuery  int
	MaxReturnedChunks int
	PerCvLimit        int
}

// FindSimilarChunks implements spec.md §4.5.1: embed the job description,
// query the store for the MaxChunksToQuery most similar chunks across all
// résumés, then walk the descending-score results applying, in order,
// a score floor, a blank-text guard, a per-cv_id cap, and section-aware
// dedup, accepting until MaxReturnedChunks hits are kept. Bullet-section
// hits (experience, projects) are returned ahead of summary hits,
// preserving acceptance order within each group.
func (r *Retriever) FindSimilarChunks(ctx context.Context, p FindSimilarChunksParams) ([]model.ChunkHit, error) {
	jd := strings.TrimSpace(p.JDText)
	if jd == "" {
		return nil, apperr.New(apperr.InvalidInput, component, "jd_text must not be blank")
	}
	if p.MinScore < 0 || p.MinScore > 1 {
		return nil, apperr.New(apperr.InvalidInput, component, fmt.Sprintf("min_score %v out of range [0,1]", p.MinScore))
	}

	vecs, err := r.embedder.EmbedBatch(ctx, []string{jd})
	if err != nil {
		return nil, err
	}

	matches, err := r.store.Query(ctx, vecs[0], p.MaxChunksToQuery, nil)
	if err != nil {
		return nil, err
	}

	sortDescending(matches)

	seen := make(map[string]bool)
	perCv := make(map[string]int)
	var bulletHits, summaryHits []model.ChunkHit

	for _, m := range matches {
		if len(bulletHits)+len(summaryHits) >= p.MaxReturnedChunks {
			break
		}
		if m.Score < p.MinScore {
			continue
		}
		text := strings.TrimSpace(m.Metadata["text"])
		if text == "" {
			continue
		}
		cvID := m.Metadata["cv_id"]
		section := m.Metadata["section"]

		if p.PerCvLimit > 0 && perCv[cvID] >= p.PerCvLimit {
			continue
		}

		key := dedupKey(section, text, m.Score)
		if seen[key] {
			continue
		}
		seen[key] = true
		perCv[cvID]++

		hit := model.ChunkHit{
			Text:    text,
			Section: section,
			CvID:    cvID,
			Score:   m.Score,
		}
		if model.BulletSections[section] {
			bulletHits = append(bulletHits, hit)
		} else {
			summaryHits = append(summaryHits, hit)
		}
	}

	out := make([]model.ChunkHit, 0, len(bulletHits)+len(summaryHits))
	out = append(out, bulletHits...)
	out = append(out, summaryHits...)
	if len(out) > p.MaxReturnedChunks {
		out = out[:p.MaxReturnedChunks]
	}
	return out, nil
}

// dedupKey returns the dedup key for a candidate hit. Experience and
// project hits (and any section outside the named set) dedup on
// (section, normalized text); summary hits dedup on (rounded score,
// normalized text), since near-identical summaries can otherwise differ
// only in floating-point noise.
func dedupKey(section, text string, score float64) string {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if section == model.SectionSummary {
		return fmt.Sprintf("summary:%.3f:%s", score, normalized)
	}
	return section + ":" + normalized
}

// SearchTopKCVsParams holds the tunable knobs for SearchTopKCVs.
type SearchTopKCVsParams struct {
	JDText   string
	TopK     int
	RawTopK  int
}

// SearchTopKCVs implements spec.md §4.5.2: embed the job description,
// query the store for the RawTopK most similar chunks, sum each chunk's
// score into its cv_id's aggregate, then return the TopK résumés ranked
// by descending aggregate score.
func (r *Retriever) SearchTopKCVs(ctx context.Context, p SearchTopKCVsParams) ([]model.CvHit, error) {
	jd := strings.TrimSpace(p.JDText)
	if jd == "" {
		return nil, apperr.New(apperr.InvalidInput, component, "jd_text must not be blank")
	}

	vecs, err := r.embedder.EmbedBatch(ctx, []string{jd})
	if err != nil {
		return nil, err
	}

	matches, err := r.store.Query(ctx, vecs[0], p.RawTopK, nil)
	if err != nil {
		return nil, err
	}

	aggregate := make(map[string]float64)
	order := make([]string, 0)
	for _, m := range matches {
		cvID := m.Metadata["cv_id"]
		if cvID == "" {
			continue
		}
		if _, ok := aggregate[cvID]; !ok {
			order = append(order, cvID)
		}
		aggregate[cvID] += m.Score
	}

	hits := make([]model.CvHit, 0, len(order))
	for _, cvID := range order {
		hits = append(hits, model.CvHit{CvID: cvID, AggregateScore: aggregate[cvID]})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].AggregateScore > hits[j].AggregateScore
	})

	if p.TopK > 0 && len(hits) > p.TopK {
		hits = hits[:p.TopK]
	}
	return hits, nil
}

func sortDescending(matches []model.Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
}
