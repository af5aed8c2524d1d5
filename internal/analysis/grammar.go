package analysis

import (
	"context"
	"errors"
	"math"

	"github.com/ZanzyTHEbar/introscore/internal/rubric"
	"github.com/ZanzyTHEbar/introscore/internal/textmetrics"
)

const (
	// MaxReportedIssues caps the grammar issues kept as evidence.
	MaxReportedIssues = 5

	grammarUnavailableNote = "Grammar checker not available, assuming no errors"
	grammarFailedNote      = "Error in grammar check, assuming no errors"
)

// AnalyzeLanguage scores grammar through checker and vocabulary through the
// type-token ratio. A failing or missing checker yields full grammar marks.
func AnalyzeLanguage(ctx context.Context, r *rubric.Rubric, checker GrammarChecker, transcript string) LanguageReport {
	if checker == nil {
		checker = NoGrammarChecker{}
	}
	issues, err := checker.Check(ctx, transcript)
	return languageReport(r, transcript, issues, err)
}

func languageReport(r *rubric.Rubric, transcript string, issues []GrammarIssue, checkErr error) LanguageReport {
	tokens := textmetrics.Tokenize(transcript)
	grammar := grammarEvidence(r, len(tokens), issues, checkErr)
	vocabulary := vocabularyEvidence(r, tokens)

	total := clampInt(grammar.Score+vocabulary.Score, 0, r.Max.Language)
	return LanguageReport{
		GrammarScore:    grammar.Score,
		VocabularyScore: vocabulary.Score,
		Total:           total,
		Max:             r.Max.Language,
		Percentage:      percentOf(total, r.Max.Language),
		Details: LanguageDetails{
			Grammar:    grammar,
			Vocabulary: vocabulary,
		},
	}
}

func grammarEvidence(r *rubric.Rubric, words int, issues []GrammarIssue, checkErr error) GrammarEvidence {
	if checkErr != nil {
		ev := GrammarEvidence{
			SubScore:  NewSubScore(r.Max.Grammar, r.Max.Grammar),
			WordCount: words,
			Errors:    []GrammarIssue{},
			Note:      grammarUnavailableNote,
		}
		if !errors.Is(checkErr, ErrUnavailable) {
			ev.Note = grammarFailedNote
			ev.Error = checkErr.Error()
		}
		return ev
	}

	var per100 float64
	if words > 0 {
		per100 = float64(len(issues)) / float64(words) * 100
	}
	quality := 1 - math.Min(per100/10, 1)

	kept := issues
	if len(kept) > MaxReportedIssues {
		kept = kept[:MaxReportedIssues]
	}

	return GrammarEvidence{
		SubScore:     NewSubScore(r.Grammar.Score(quality), r.Max.Grammar),
		Available:    true,
		ErrorCount:   len(issues),
		ErrorsPer100: textmetrics.Round(per100, 2),
		WordCount:    words,
		Errors:       append([]GrammarIssue{}, kept...),
	}
}

func vocabularyEvidence(r *rubric.Rubric, tokens []string) VocabularyEvidence {
	unique := textmetrics.UniqueCount(tokens)
	var ttr float64
	if len(tokens) > 0 {
		ttr = textmetrics.Round(float64(unique)/float64(len(tokens)), 3)
	}
	return VocabularyEvidence{
		SubScore:    NewSubScore(r.Vocabulary.Score(ttr), r.Max.Vocabulary),
		TTR:         ttr,
		TotalWords:  len(tokens),
		UniqueWords: unique,
	}
}
