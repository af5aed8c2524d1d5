// Package rubric holds the scoring rubric as data: salutation tiers, keyword
// categories, filler words, closing phrases, range tables and the semantic
// criteria. A Rubric is immutable once compiled and safe to share.
package rubric

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

// Salutation tier levels.
const (
	LevelExcellent = "Excellent"
	LevelGood      = "Good"
	LevelNormal    = "Normal"
	LevelNone      = "None"
)

// MaxScores are the per-criterion ceilings of the 100-point rubric.
type MaxScores struct {
	Salutation int `yaml:"salutation"`
	Keywords   int `yaml:"keywords"`
	Flow       int `yaml:"flow"`
	Content    int `yaml:"content"`
	SpeechRate int `yaml:"speech_rate"`
	Grammar    int `yaml:"grammar"`
	Vocabulary int `yaml:"vocabulary"`
	Language   int `yaml:"language"`
	Clarity    int `yaml:"clarity"`
	Engagement int `yaml:"engagement"`
	Total      int `yaml:"total"`
}

// SalutationTier is one level of greeting quality. Phrases are matched as
// lowercase substrings of the first sentence.
type SalutationTier struct {
	Level   string   `yaml:"level"`
	Score   int      `yaml:"score"`
	Phrases []string `yaml:"phrases"`
}

// KeywordCategory is a content element detected when any of its patterns
// matches the lowercased transcript.
type KeywordCategory struct {
	Name     string   `yaml:"name"`
	Score    int      `yaml:"score"`
	Patterns []string `yaml:"patterns"`

	compiled []*regexp.Regexp
}

// Matches reports whether any pattern matches lowered, which must already be
// lowercase.
func (k *KeywordCategory) Matches(lowered string) bool {
	for _, re := range k.compiled {
		if re.MatchString(lowered) {
			return true
		}
	}
	return false
}

// KeywordGroup is a scored set of categories whose sum is capped.
type KeywordGroup struct {
	Cap        int               `yaml:"cap"`
	Categories []KeywordCategory `yaml:"categories"`
}

// Flow holds the structure heuristic scores.
type Flow struct {
	Partial int `yaml:"partial"`
}

// SemanticCriterion describes one criterion the embedding blend applies to.
type SemanticCriterion struct {
	Descriptions   []string `yaml:"descriptions"`
	WeightBase     float64  `yaml:"weight_base"`
	WeightSemantic float64  `yaml:"weight_semantic"`
	Method         string   `yaml:"method"`
	FallbackMethod string   `yaml:"fallback_method"`
}

// Semantic groups the blendable criteria.
type Semantic struct {
	Content    SemanticCriterion `yaml:"content"`
	Engagement SemanticCriterion `yaml:"engagement"`
}

// Rubric is the full scoring configuration.
type Rubric struct {
	Max            MaxScores        `yaml:"max"`
	Salutations    []SalutationTier `yaml:"salutations"`
	MustHave       KeywordGroup     `yaml:"must_have"`
	GoodToHave     KeywordGroup     `yaml:"good_to_have"`
	NamePatterns   []string         `yaml:"name_patterns"`
	Closing        []string         `yaml:"closing"`
	Flow           Flow             `yaml:"flow"`
	Fillers        []string         `yaml:"fillers"`
	SpeechRate     Bands            `yaml:"speech_rate"`
	Grammar        Bands            `yaml:"grammar"`
	Vocabulary     Bands            `yaml:"vocabulary"`
	Clarity        Bands            `yaml:"clarity"`
	Engagement     Bands            `yaml:"engagement"`
	Interpretation Bands            `yaml:"interpretation"`
	Semantic       Semantic         `yaml:"semantic"`

	closing  []*regexp.Regexp
	names    []*regexp.Regexp
	fillers  []filler
	compiled bool
}

// filler is a single-word filler matched on word boundaries, or a phrase
// counted as a literal substring.
type filler struct {
	word   string
	phrase bool
	re     *regexp.Regexp
}

// Compile validates the rubric and prepares its regular expressions.
func (r *Rubric) Compile() error {
	if err := r.Validate(); err != nil {
		return err
	}

	for i := range r.Salutations {
		for j, p := range r.Salutations[i].Phrases {
			r.Salutations[i].Phrases[j] = strings.ToLower(p)
		}
	}

	for _, g := range []*KeywordGroup{&r.MustHave, &r.GoodToHave} {
		for i := range g.Categories {
			cat := &g.Categories[i]
			res, err := compileAll(cat.Patterns)
			if err != nil {
				return fmt.Errorf("keyword category %q: %w", cat.Name, err)
			}
			cat.compiled = res
		}
	}

	var err error
	if r.closing, err = compileAll(r.Closing); err != nil {
		return fmt.Errorf("closing phrases: %w", err)
	}
	if r.names, err = compileAll(r.NamePatterns); err != nil {
		return fmt.Errorf("name patterns: %w", err)
	}

	r.fillers = r.fillers[:0]
	for _, f := range r.Fillers {
		w := strings.ToLower(strings.TrimSpace(f))
		if strings.Contains(w, " ") {
			r.fillers = append(r.fillers, filler{word: w, phrase: true})
			continue
		}
		r.fillers = append(r.fillers, filler{word: w, re: regexp.MustCompile(`\b` + regexp.QuoteMeta(w) + `\b`)})
	}

	r.compiled = true
	return nil
}

// Compiled reports whether Compile succeeded.
func (r *Rubric) Compiled() bool {
	return r.compiled
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

// Validate checks the structural invariants of the rubric.
func (r *Rubric) Validate() error {
	m := r.Max
	if m.Salutation+m.Keywords+m.Flow != m.Content {
		return fmt.Errorf("content max %d does not equal salutation+keywords+flow %d", m.Content, m.Salutation+m.Keywords+m.Flow)
	}
	if m.Grammar+m.Vocabulary != m.Language {
		return fmt.Errorf("language max %d does not equal grammar+vocabulary %d", m.Language, m.Grammar+m.Vocabulary)
	}
	if sum := m.Content + m.SpeechRate + m.Language + m.Clarity + m.Engagement; sum != m.Total {
		return fmt.Errorf("category maxima sum to %d, total is %d", sum, m.Total)
	}
	if len(r.Salutations) == 0 {
		return fmt.Errorf("no salutation tiers defined")
	}
	for _, tier := range r.Salutations {
		if tier.Score < 0 || tier.Score > m.Salutation {
			return fmt.Errorf("salutation tier %q score %d outside [0, %d]", tier.Level, tier.Score, m.Salutation)
		}
	}
	if r.MustHave.Cap+r.GoodToHave.Cap > m.Keywords {
		return fmt.Errorf("keyword caps %d+%d exceed keyword max %d", r.MustHave.Cap, r.GoodToHave.Cap, m.Keywords)
	}
	if r.Flow.Partial < 0 || r.Flow.Partial > m.Flow {
		return fmt.Errorf("flow partial score %d outside [0, %d]", r.Flow.Partial, m.Flow)
	}

	tables := []struct {
		name    string
		bands   Bands
		ceiling int
	}{
		{"speech_rate", r.SpeechRate, m.SpeechRate},
		{"grammar", r.Grammar, m.Grammar},
		{"vocabulary", r.Vocabulary, m.Vocabulary},
		{"clarity", r.Clarity, m.Clarity},
		{"engagement", r.Engagement, m.Engagement},
		{"interpretation", r.Interpretation, 0},
	}
	for _, tbl := range tables {
		if err := tbl.bands.validate(tbl.name, tbl.ceiling); err != nil {
			return err
		}
	}

	for name, c := range map[string]SemanticCriterion{"content": r.Semantic.Content, "engagement": r.Semantic.Engagement} {
		if len(c.Descriptions) == 0 {
			return fmt.Errorf("semantic %s: no descriptions", name)
		}
		if c.WeightBase < 0 || c.WeightSemantic < 0 || math.Abs(c.WeightBase+c.WeightSemantic-1) > 1e-9 {
			return fmt.Errorf("semantic %s: weights %.2f/%.2f must be non-negative and sum to 1", name, c.WeightBase, c.WeightSemantic)
		}
	}

	return nil
}

// MatchSalutation returns the first tier, in declaration order, with a phrase
// contained in sentence. ok is false when nothing matches.
func (r *Rubric) MatchSalutation(sentence string) (tier SalutationTier, phrase string, ok bool) {
	lowered := strings.ToLower(sentence)
	for _, t := range r.Salutations {
		for _, p := range t.Phrases {
			if strings.Contains(lowered, p) {
				return t, p, true
			}
		}
	}
	return SalutationTier{}, "", false
}

// HasClosing reports whether lowered contains any closing phrase.
func (r *Rubric) HasClosing(lowered string) bool {
	for _, re := range r.closing {
		if re.MatchString(lowered) {
			return true
		}
	}
	return false
}

// ExtractName returns the first captured name, capitalized, or "".
func (r *Rubric) ExtractName(lowered string) string {
	for _, re := range r.names {
		if m := re.FindStringSubmatch(lowered); len(m) > 1 && m[1] != "" {
			return strings.ToUpper(m[1][:1]) + m[1][1:]
		}
	}
	return ""
}

// CountFillers counts each filler in lowered and returns the total and the
// non-zero per-filler counts.
func (r *Rubric) CountFillers(lowered string) (int, map[string]int) {
	total := 0
	details := make(map[string]int)
	for _, f := range r.fillers {
		var n int
		if f.phrase {
			n = strings.Count(lowered, f.word)
		} else {
			n = len(f.re.FindAllStringIndex(lowered, -1))
		}
		if n > 0 {
			details[f.word] = n
			total += n
		}
	}
	return total, details
}
