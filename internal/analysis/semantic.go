package analysis

import (
	"context"
	"fmt"

	"github.com/ZanzyTHEbar/introscore/internal/rubric"
	"github.com/ZanzyTHEbar/introscore/internal/textmetrics"
)

// SemanticEnhancer blends embedding similarity into the content and
// engagement totals. The ideal descriptions are embedded once at
// construction; each evaluation embeds only the transcript.
type SemanticEnhancer struct {
	embedder   Embedder
	content    semanticTarget
	engagement semanticTarget
}

type semanticTarget struct {
	criterion rubric.SemanticCriterion
	vectors   [][]float64
}

// SemanticScores holds the similarity breakdown for both blendable criteria.
type SemanticScores struct {
	Content    Similarity `json:"content"`
	Engagement Similarity `json:"engagement"`
}

func NewSemanticEnhancer(ctx context.Context, embedder Embedder, r *rubric.Rubric) (*SemanticEnhancer, error) {
	if embedder == nil {
		return nil, ErrUnavailable
	}

	content := r.Semantic.Content
	engagement := r.Semantic.Engagement

	texts := make([]string, 0, len(content.Descriptions)+len(engagement.Descriptions))
	texts = append(texts, content.Descriptions...)
	texts = append(texts, engagement.Descriptions...)

	vectors, err := embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed criterion descriptions: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embed criterion descriptions: got %d vectors for %d texts", len(vectors), len(texts))
	}

	split := len(content.Descriptions)
	return &SemanticEnhancer{
		embedder:   embedder,
		content:    semanticTarget{criterion: content, vectors: vectors[:split]},
		engagement: semanticTarget{criterion: engagement, vectors: vectors[split:]},
	}, nil
}

// Similarities embeds transcript and compares it with every description.
func (s *SemanticEnhancer) Similarities(ctx context.Context, transcript string) (SemanticScores, error) {
	vectors, err := s.embedder.Embed(ctx, []string{transcript})
	if err != nil {
		return SemanticScores{}, fmt.Errorf("embed transcript: %w", err)
	}
	if len(vectors) != 1 {
		return SemanticScores{}, fmt.Errorf("embed transcript: got %d vectors", len(vectors))
	}
	return SemanticScores{
		Content:    similarity(vectors[0], s.content.vectors),
		Engagement: similarity(vectors[0], s.engagement.vectors),
	}, nil
}

func similarity(v []float64, refs [][]float64) Similarity {
	out := Similarity{All: make([]float64, len(refs))}
	if len(refs) == 0 {
		return out
	}
	var sum float64
	for i, ref := range refs {
		sim := CosineSimilarity(v, ref)
		sum += sim
		if i == 0 || sim > out.Max {
			out.Max = sim
		}
		out.All[i] = textmetrics.Round(sim, 3)
	}
	out.Max = textmetrics.Round(out.Max, 3)
	out.Avg = textmetrics.Round(sum/float64(len(refs)), 3)
	return out
}

// EnhanceContent overwrites the content total with the blended score.
func (s *SemanticEnhancer) EnhanceContent(report *ContentReport, sim Similarity) {
	enh := enhance(report.Total, report.Max, sim, s.content.criterion)
	report.setTotal(enh.EnhancedScore)
	report.Details.SemanticEnhancement = enh
	report.Details.ScoringMethod = enh.Method
}

// EnhanceEngagement overwrites the engagement score with the blended score.
func (s *SemanticEnhancer) EnhanceEngagement(report *EngagementReport, sim Similarity) {
	enh := enhance(report.Score, report.Max, sim, s.engagement.criterion)
	report.Score = enh.EnhancedScore
	report.Details.SemanticEnhancement = enh
	report.Details.ScoringMethod = enh.Method
}

func enhance(base, max int, sim Similarity, c rubric.SemanticCriterion) *Enhancement {
	return &Enhancement{
		EnhancedScore:        Blend(base, max, sim.Avg, c.WeightBase, c.WeightSemantic),
		OriginalScore:        base,
		SemanticContribution: SemanticContribution(sim.Avg, c.WeightSemantic, max),
		SemanticSimilarity:   sim.Avg,
		Similarity:           sim,
		Method:               c.Method,
	}
}
