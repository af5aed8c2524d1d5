package analysis

import (
	"strings"

	"github.com/ZanzyTHEbar/introscore/internal/rubric"
	"github.com/ZanzyTHEbar/introscore/internal/textmetrics"
)

// AnalyzeContent scores salutation, keyword coverage and flow. The scoring
// method is left for the evaluator to fill in.
func AnalyzeContent(r *rubric.Rubric, transcript string) ContentReport {
	lowered := strings.ToLower(transcript)

	salutation := analyzeSalutation(r, transcript)
	keywords := analyzeKeywords(r, lowered)
	flow := analyzeFlow(r, transcript, lowered)

	report := ContentReport{
		SalutationScore: salutation.Score,
		KeywordsScore:   keywords.Score,
		FlowScore:       flow.Score,
		Max:             r.Max.Content,
		Details: ContentDetails{
			Salutation: salutation,
			Keywords:   keywords,
			Flow:       flow,
			MaxScore:   r.Max.Content,
		},
	}
	report.setTotal(salutation.Score + keywords.Score + flow.Score)
	return report
}

// ExtractName returns the introduced name, capitalized, or "".
func ExtractName(r *rubric.Rubric, transcript string) string {
	return r.ExtractName(strings.ToLower(transcript))
}

func analyzeSalutation(r *rubric.Rubric, transcript string) SalutationEvidence {
	tier, phrase, ok := r.MatchSalutation(textmetrics.FirstSentence(transcript))
	if !ok {
		return SalutationEvidence{
			SubScore: NewSubScore(0, r.Max.Salutation),
			Level:    rubric.LevelNone,
		}
	}
	return SalutationEvidence{
		SubScore:    NewSubScore(tier.Score, r.Max.Salutation),
		Level:       tier.Level,
		PhraseFound: phrase,
	}
}

func scoreGroup(g rubric.KeywordGroup, lowered string) KeywordBucket {
	bucket := KeywordBucket{Max: g.Cap, Found: []string{}}
	for i := range g.Categories {
		cat := &g.Categories[i]
		if cat.Matches(lowered) {
			bucket.Score += cat.Score
			bucket.Found = append(bucket.Found, cat.Name)
		}
	}
	bucket.Score = clampInt(bucket.Score, 0, g.Cap)
	bucket.Count = len(bucket.Found)
	return bucket
}

func analyzeKeywords(r *rubric.Rubric, lowered string) KeywordEvidence {
	must := scoreGroup(r.MustHave, lowered)
	good := scoreGroup(r.GoodToHave, lowered)
	return KeywordEvidence{
		SubScore:   NewSubScore(must.Score+good.Score, r.Max.Keywords),
		MustHave:   must,
		GoodToHave: good,
		NameFound:  r.ExtractName(lowered),
	}
}

// analyzeFlow awards full marks when the transcript opens with a greeting or
// contains a closing anywhere, and partial credit otherwise. It does not
// check the order of the middle sections.
func analyzeFlow(r *rubric.Rubric, transcript, lowered string) FlowEvidence {
	sentences := textmetrics.Sentences(transcript)
	if len(sentences) == 0 {
		return FlowEvidence{
			SubScore: NewSubScore(0, r.Max.Flow),
			Reason:   "No sentences found",
		}
	}

	_, _, salutationFirst := r.MatchSalutation(sentences[0])
	closing := r.HasClosing(lowered)

	ev := FlowEvidence{
		HasSalutationFirst: salutationFirst,
		HasClosing:         closing,
	}
	if salutationFirst || closing {
		ev.SubScore = NewSubScore(r.Max.Flow, r.Max.Flow)
		ev.OrderFollowed = true
		return ev
	}
	ev.SubScore = NewSubScore(r.Flow.Partial, r.Max.Flow)
	return ev
}
