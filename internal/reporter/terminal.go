package reporter

import (
	"fmt"
	"io"
	"strings"

	"github.com/ZanzyTHEbar/introscore/internal/analysis"
	"github.com/charmbracelet/lipgloss"
)

const ruleWidth = 60

type styles struct {
	enabled bool

	title   lipgloss.Style
	section lipgloss.Style
	label   lipgloss.Style
	note    lipgloss.Style
	good    lipgloss.Style
	fair    lipgloss.Style
	poor    lipgloss.Style
}

func newStyles(enabled bool) styles {
	return styles{
		enabled: enabled,
		title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")),
		section: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		label:   lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		note:    lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("11")),
		good:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
		fair:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11")),
		poor:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
	}
}

func (s styles) render(st lipgloss.Style, text string) string {
	if !s.enabled {
		return text
	}
	return st.Render(text)
}

// score colours by share of the maximum
func (s styles) score(got, max int) string {
	text := fmt.Sprintf("%d/%d", got, max)
	switch {
	case max == 0:
		return text
	case got*100 >= max*80:
		return s.render(s.good, text)
	case got*100 >= max*50:
		return s.render(s.fair, text)
	default:
		return s.render(s.poor, text)
	}
}

// TerminalReporter prints the human-readable evaluation summary
type TerminalReporter struct {
	w io.Writer
	s styles
}

func NewTerminalReporter(w io.Writer, styled bool) *TerminalReporter {
	return &TerminalReporter{w: w, s: newStyles(styled)}
}

func (r *TerminalReporter) Report(res *analysis.EvaluationResult) error {
	p := &printer{w: r.w}
	s := r.s
	rule := strings.Repeat("=", ruleWidth)

	p.line("")
	p.line(rule)
	p.line(s.render(s.title, "STUDENT INTRODUCTION EVALUATION REPORT"))
	p.line(rule)

	r.section(p, "METADATA", 0)
	p.field("Word Count", res.Metadata.WordCount)
	p.field("Sentence Count", res.Metadata.SentenceCount)
	p.field("Duration", fmt.Sprintf("%d seconds", res.Metadata.DurationSeconds))
	p.field("Speech Rate", fmt.Sprintf("%.1f WPM", res.Metadata.WPM))

	cs := res.Scores.ContentAndStructure
	r.section(p, "CONTENT & STRUCTURE", cs.Max)
	p.field("Salutation", s.score(cs.SalutationScore, cs.Details.Salutation.MaxScore))
	p.field("Keywords", s.score(cs.KeywordsScore, cs.Details.Keywords.MaxScore))
	p.field("Flow", s.score(cs.FlowScore, cs.Details.Flow.MaxScore))
	if enh := cs.Details.SemanticEnhancement; enh != nil {
		p.field("Semantic", r.enhancement(enh))
	}
	p.field("Total", fmt.Sprintf("%s (%.1f%%)", s.score(cs.Total, cs.Max), cs.Percentage))
	r.notes(p, cs.Details.SemanticNote)

	sr := res.Scores.SpeechRate
	r.section(p, "SPEECH RATE", sr.Max)
	p.field("WPM", fmt.Sprintf("%.1f (%s)", sr.WPM, sr.Label))
	p.field("Score", s.score(sr.Score, sr.Max))
	r.notes(p, sr.Error)

	lg := res.Scores.LanguageAndGrammar
	r.section(p, "LANGUAGE & GRAMMAR", lg.Max)
	p.field("Grammar", s.score(lg.GrammarScore, lg.Details.Grammar.MaxScore))
	p.field("Vocabulary", fmt.Sprintf("%s (TTR %.3f)", s.score(lg.VocabularyScore, lg.Details.Vocabulary.MaxScore), lg.Details.Vocabulary.TTR))
	p.field("Total", fmt.Sprintf("%s (%.1f%%)", s.score(lg.Total, lg.Max), lg.Percentage))
	r.notes(p, lg.Details.Grammar.Note, lg.Details.Grammar.Error)

	cl := res.Scores.Clarity
	r.section(p, "CLARITY", cl.Max)
	p.field("Filler Words", fmt.Sprintf("%d (%.2f%%)", cl.FillerCount, cl.FillerRate))
	p.field("Score", s.score(cl.Score, cl.Max))

	eg := res.Scores.Engagement
	r.section(p, "ENGAGEMENT", eg.Max)
	p.field("Sentiment", eg.Interpretation)
	p.field("Sentiment Score", fmt.Sprintf("%.3f", eg.SentimentCompoundNormalized))
	if enh := eg.Details.SemanticEnhancement; enh != nil {
		p.field("Semantic", r.enhancement(enh))
	}
	p.field("Score", s.score(eg.Score, eg.Max))
	r.notes(p, eg.Details.SemanticNote, eg.Details.Error)

	p.line("")
	p.line(rule)
	p.line(fmt.Sprintf("FINAL SCORE: %s (%.1f%%)", s.score(res.FinalScore, res.MaxScore), res.Percentage))
	p.line("GRADE: " + s.render(s.title, res.Grade))
	p.line(rule)
	p.line("")

	return p.err
}

func (r *TerminalReporter) section(p *printer, title string, points int) {
	p.line("")
	if points > 0 {
		title = fmt.Sprintf("%s (%d points)", title, points)
	}
	p.line(r.s.render(r.s.section, title))
}

func (r *TerminalReporter) enhancement(e *analysis.Enhancement) string {
	return fmt.Sprintf("%d -> %d (similarity %.3f, %s)", e.OriginalScore, e.EnhancedScore, e.SemanticSimilarity, e.Method)
}

func (r *TerminalReporter) notes(p *printer, notes ...string) {
	for _, n := range notes {
		if n != "" {
			p.line("  " + r.s.render(r.s.note, "note: "+n))
		}
	}
}

// printer keeps the first write error
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) line(s string) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintln(p.w, s)
}

func (p *printer) field(label string, value any) {
	p.line(fmt.Sprintf("  %s: %v", label, value))
}
