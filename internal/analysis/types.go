package analysis

// SubScore is a score with its ceiling. NewSubScore keeps 0 <= Score <= MaxScore.
type SubScore struct {
	Score    int `json:"score"`
	MaxScore int `json:"max_score"`
}

func NewSubScore(score, max int) SubScore {
	return SubScore{Score: clampInt(score, 0, max), MaxScore: max}
}

// Criterion is implemented by every category report
type Criterion interface {
	CriterionName() string
	CriterionTotal() int
	CriterionMax() int
}

type SalutationEvidence struct {
	SubScore
	Level       string `json:"level"`
	PhraseFound string `json:"phrase_found"`
}

type KeywordBucket struct {
	Score int      `json:"score"`
	Max   int      `json:"max"`
	Found []string `json:"found"`
	Count int      `json:"count"`
}

type KeywordEvidence struct {
	SubScore
	MustHave   KeywordBucket `json:"must_have"`
	GoodToHave KeywordBucket `json:"good_to_have"`
	NameFound  string        `json:"name_found,omitempty"`
}

type FlowEvidence struct {
	SubScore
	OrderFollowed      bool   `json:"order_followed"`
	HasSalutationFirst bool   `json:"has_salutation_first"`
	HasClosing         bool   `json:"has_closing"`
	Reason             string `json:"reason,omitempty"`
}

// Similarity is the cosine similarity of a transcript against each ideal
// description of one criterion.
type Similarity struct {
	Max float64   `json:"max_similarity"`
	Avg float64   `json:"avg_similarity"`
	All []float64 `json:"all_similarities"`
}

// Enhancement records a semantic blend applied to a category total.
type Enhancement struct {
	EnhancedScore        int        `json:"enhanced_score"`
	OriginalScore        int        `json:"original_score"`
	SemanticContribution float64    `json:"semantic_contribution"`
	SemanticSimilarity   float64    `json:"semantic_similarity"`
	Similarity           Similarity `json:"similarity"`
	Method               string     `json:"method"`
}

type ContentDetails struct {
	Salutation          SalutationEvidence `json:"salutation"`
	Keywords            KeywordEvidence    `json:"keywords"`
	Flow                FlowEvidence       `json:"flow"`
	TotalScore          int                `json:"total_score"`
	MaxScore            int                `json:"max_score"`
	Percentage          float64            `json:"percentage"`
	ScoringMethod       string             `json:"scoring_method"`
	SemanticEnhancement *Enhancement       `json:"semantic_enhancement,omitempty"`
	SemanticNote        string             `json:"semantic_note,omitempty"`
}

// ContentReport covers content and structure: salutation, keywords and flow.
type ContentReport struct {
	SalutationScore int            `json:"salutation_score"`
	KeywordsScore   int            `json:"keywords_score"`
	FlowScore       int            `json:"flow_score"`
	Total           int            `json:"total"`
	Max             int            `json:"max"`
	Percentage      float64        `json:"percentage"`
	Details         ContentDetails `json:"details"`
}

func (r ContentReport) CriterionName() string { return "content_and_structure" }
func (r ContentReport) CriterionTotal() int   { return r.Total }
func (r ContentReport) CriterionMax() int     { return r.Max }

// setTotal overwrites the category total and everything derived from it.
func (r *ContentReport) setTotal(total int) {
	r.Total = clampInt(total, 0, r.Max)
	r.Details.TotalScore = r.Total
	r.Percentage = percentOf(r.Total, r.Max)
	r.Details.Percentage = r.Percentage
}

type SpeechRateReport struct {
	WPM             float64 `json:"wpm"`
	WordCount       int     `json:"word_count"`
	DurationSeconds int     `json:"duration_seconds"`
	Label           string  `json:"label"`
	Score           int     `json:"score"`
	Max             int     `json:"max"`
	Error           string  `json:"error,omitempty"`
}

func (r SpeechRateReport) CriterionName() string { return "speech_rate" }
func (r SpeechRateReport) CriterionTotal() int   { return r.Score }
func (r SpeechRateReport) CriterionMax() int     { return r.Max }

type GrammarEvidence struct {
	SubScore
	Available    bool           `json:"available"`
	ErrorCount   int            `json:"error_count"`
	ErrorsPer100 float64        `json:"errors_per_100"`
	WordCount    int            `json:"word_count"`
	Errors       []GrammarIssue `json:"errors"`
	Note         string         `json:"note,omitempty"`
	Error        string         `json:"error,omitempty"`
}

type VocabularyEvidence struct {
	SubScore
	TTR         float64 `json:"ttr"`
	TotalWords  int     `json:"total_words"`
	UniqueWords int     `json:"unique_words"`
}

type LanguageDetails struct {
	Grammar    GrammarEvidence    `json:"grammar"`
	Vocabulary VocabularyEvidence `json:"vocabulary"`
}

type LanguageReport struct {
	GrammarScore    int             `json:"grammar_score"`
	VocabularyScore int             `json:"vocabulary_score"`
	Total           int             `json:"total"`
	Max             int             `json:"max"`
	Percentage      float64         `json:"percentage"`
	Details         LanguageDetails `json:"details"`
}

func (r LanguageReport) CriterionName() string { return "language_and_grammar" }
func (r LanguageReport) CriterionTotal() int   { return r.Total }
func (r LanguageReport) CriterionMax() int     { return r.Max }

type ClarityDetails struct {
	FillerCount   int            `json:"filler_count"`
	FillerRate    float64        `json:"filler_rate"`
	TotalWords    int            `json:"total_words"`
	FillerDetails map[string]int `json:"filler_details"`
}

type ClarityReport struct {
	FillerCount int            `json:"filler_count"`
	FillerRate  float64        `json:"filler_rate"`
	Score       int            `json:"score"`
	Max         int            `json:"max"`
	Details     ClarityDetails `json:"details"`
}

func (r ClarityReport) CriterionName() string { return "clarity" }
func (r ClarityReport) CriterionTotal() int   { return r.Score }
func (r ClarityReport) CriterionMax() int     { return r.Max }

type EngagementDetails struct {
	SentimentCompound   float64      `json:"sentiment_compound"`
	SentimentPositive   float64      `json:"sentiment_positive"`
	SentimentNeutral    float64      `json:"sentiment_neutral"`
	SentimentNegative   float64      `json:"sentiment_negative"`
	CompoundNormalized  float64      `json:"compound_normalized"`
	Interpretation      string       `json:"interpretation"`
	ScoringMethod       string       `json:"scoring_method"`
	SemanticEnhancement *Enhancement `json:"semantic_enhancement,omitempty"`
	SemanticNote        string       `json:"semantic_note,omitempty"`
	Error               string       `json:"error,omitempty"`
}

type EngagementReport struct {
	SentimentCompoundNormalized float64           `json:"sentiment_compound_normalized"`
	SentimentPositive           float64           `json:"sentiment_positive"`
	Interpretation              string            `json:"interpretation"`
	Score                       int               `json:"score"`
	Max                         int               `json:"max"`
	Details                     EngagementDetails `json:"details"`
}

func (r EngagementReport) CriterionName() string { return "engagement" }
func (r EngagementReport) CriterionTotal() int   { return r.Score }
func (r EngagementReport) CriterionMax() int     { return r.Max }

type Scores struct {
	ContentAndStructure ContentReport    `json:"content_and_structure"`
	SpeechRate          SpeechRateReport `json:"speech_rate"`
	LanguageAndGrammar  LanguageReport   `json:"language_and_grammar"`
	Clarity             ClarityReport    `json:"clarity"`
	Engagement          EngagementReport `json:"engagement"`
}

type Metadata struct {
	WordCount       int     `json:"word_count"`
	SentenceCount   int     `json:"sentence_count"`
	DurationSeconds int     `json:"duration_seconds"`
	WPM             float64 `json:"wpm"`
}

// EvaluationResult is the complete scored evaluation of one transcript.
type EvaluationResult struct {
	Transcript string   `json:"transcript"`
	Metadata   Metadata `json:"metadata"`
	Scores     Scores   `json:"scores"`
	FinalScore int      `json:"final_score"`
	MaxScore   int      `json:"max_score"`
	Percentage float64  `json:"percentage"`
	Grade      string   `json:"grade"`
}

// Criteria returns the five category reports in rubric order.
func (r *EvaluationResult) Criteria() []Criterion {
	return []Criterion{
		r.Scores.ContentAndStructure,
		r.Scores.SpeechRate,
		r.Scores.LanguageAndGrammar,
		r.Scores.Clarity,
		r.Scores.Engagement,
	}
}

// Fallbacks names the collaborators whose failure was absorbed while
// producing r.
func (r *EvaluationResult) Fallbacks() []string {
	var out []string
	if !r.Scores.LanguageAndGrammar.Details.Grammar.Available {
		out = append(out, "grammar")
	}
	if r.Scores.Engagement.Details.Error != "" {
		out = append(out, "sentiment")
	}
	if r.Scores.ContentAndStructure.Details.SemanticNote != "" || r.Scores.Engagement.Details.SemanticNote != "" {
		out = append(out, "semantic")
	}
	return out
}
