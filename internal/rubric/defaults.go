package rubric

import "math"

var inf = math.Inf(1)

// Default returns a freshly compiled copy of the standard 100-point rubric.
func Default() *Rubric {
	r := defaultRubric()
	if err := r.Compile(); err != nil {
		panic("rubric: default rubric invalid: " + err.Error())
	}
	return r
}

// qualityBands is the shared ≥0.9 / ≥0.7 / ≥0.5 / ≥0.3 ladder scaled to top.
func qualityBands(top, second, third, fourth, floor int) Bands {
	return Bands{
		{Min: 0.9, Max: inf, Score: top},
		{Min: 0.7, Max: 0.9, Score: second},
		{Min: 0.5, Max: 0.7, Score: third},
		{Min: 0.3, Max: 0.5, Score: fourth},
		{Min: -inf, Max: 0.3, Score: floor},
	}
}

func defaultRubric() *Rubric {
	return &Rubric{
		Max: MaxScores{
			Salutation: 5,
			Keywords:   30,
			Flow:       5,
			Content:    40,
			SpeechRate: 10,
			Grammar:    10,
			Vocabulary: 10,
			Language:   20,
			Clarity:    15,
			Engagement: 15,
			Total:      100,
		},
		Salutations: []SalutationTier{
			{Level: LevelExcellent, Score: 5, Phrases: []string{"i am excited to introduce", "feeling great", "i'm excited to introduce"}},
			{Level: LevelGood, Score: 4, Phrases: []string{"good morning", "good afternoon", "good evening", "good day", "hello everyone"}},
			{Level: LevelNormal, Score: 2, Phrases: []string{"hi", "hello", "hey"}},
		},
		MustHave: KeywordGroup{
			Cap: 20,
			Categories: []KeywordCategory{
				{Name: "name", Score: 4, Patterns: []string{`\bmyself\s+(\w+)`, `\bmy\s+name\s+is\s+(\w+)`, `\bi\s+am\s+(\w+)`, `\bi'm\s+(\w+)`}},
				{Name: "age", Score: 4, Patterns: []string{`\b(\d+)\s+years?\s+old\b`, `\bage\s+(\d+)`, `\bi\s+am\s+(\d+)`}},
				{Name: "school_class", Score: 4, Patterns: []string{`\bclass\s+\d+`, `\bgrade\s+\d+`, `\bschool\b`, `\bstudying\s+in`, `\bsection\b`}},
				{Name: "family", Score: 4, Patterns: []string{`\bfamily\b`, `\bmother\b`, `\bfather\b`, `\bparents\b`, `\bsibling`, `\bbrother\b`, `\bsister\b`}},
				{Name: "hobbies", Score: 4, Patterns: []string{`\bhobb`, `\blike\s+to\b`, `\benjoy\b`, `\blove\s+to\b`, `\bplay\b`, `\binterest`}},
			},
		},
		GoodToHave: KeywordGroup{
			Cap: 10,
			Categories: []KeywordCategory{
				{Name: "about_family", Score: 2, Patterns: []string{`\bspecial\s+thing\s+about\s+my\s+family\b`, `\bfamily\s+is\b`, `\bkind\s+hearted\b`}},
				{Name: "origin", Score: 2, Patterns: []string{`\bi\s+am\s+from\b`, `\blive\s+in\b`, `\bparents\s+are\s+from\b`, `\bcity\b`, `\bvillage\b`}},
				{Name: "ambition", Score: 2, Patterns: []string{`\bgoal\b`, `\bdream\b`, `\bambition\b`, `\bwant\s+to\s+be\b`, `\baspire\b`, `\bfuture\b`}},
				{Name: "fun_fact", Score: 2, Patterns: []string{`\bfun\s+fact\b`, `\binteresting\s+thing\b`, `\bunique\b`, `\bspecial\b`, `\bdon't\s+know\s+about\s+me\b`}},
				{Name: "strengths", Score: 2, Patterns: []string{`\bstrength\b`, `\bachievement\b`, `\bgood\s+at\b`, `\bexcel\b`, `\btalent\b`}},
			},
		},
		NamePatterns: []string{`myself\s+(\w+)`, `my\s+name\s+is\s+(\w+)`, `i\s+am\s+(\w+)`, `i'm\s+(\w+)`},
		Closing:      []string{`\bthank\s+you\b`, `\bthanks\b`, `\bthank\s+you\s+for\s+listening\b`},
		Flow:         Flow{Partial: 2},
		Fillers: []string{
			"um", "uh", "like", "you know", "so", "actually", "basically",
			"right", "i mean", "well", "kinda", "sort of", "okay", "hmm", "ah",
		},
		// Ascending with shared edges: first match wins, so 140.8 is Fast
		// and every integer lands where the 0-80/81-110/111-140/141-160/161+
		// table puts it.
		SpeechRate: Bands{
			{Min: 0, Max: 80, Score: 2, Label: "Too Slow"},
			{Min: 80, Max: 110, Score: 6, Label: "Slow"},
			{Min: 110, Max: 140, Score: 10, Label: "Ideal"},
			{Min: 140, Max: 160, Score: 6, Label: "Fast"},
			{Min: 160, Max: inf, Score: 2, Label: "Too Fast"},
		},
		Grammar:    qualityBands(10, 8, 6, 4, 2),
		Vocabulary: qualityBands(10, 8, 6, 4, 2),
		// Upper bounds inclusive.
		Clarity: Bands{
			{Min: 0, Max: 3, Score: 15},
			{Min: 3, Max: 6, Score: 12},
			{Min: 6, Max: 9, Score: 9},
			{Min: 9, Max: 12, Score: 6},
			{Min: 12, Max: inf, Score: 3},
		},
		Engagement: qualityBands(15, 12, 9, 6, 3),
		Interpretation: Bands{
			{Min: 0.7, Max: inf, Label: "Positive (enthusiastic, confident)"},
			{Min: 0.5, Max: 0.7, Label: "Neutral (factual, calm)"},
			{Min: -inf, Max: 0.5, Label: "Negative (disinterested, anxious)"},
		},
		Semantic: Semantic{
			Content: SemanticCriterion{
				Descriptions: []string{
					"A complete self-introduction with name, age, class, school, and family details",
					"Includes personal hobbies, interests, and activities the student enjoys",
					"Mentions unique facts, goals, or achievements about themselves",
				},
				WeightBase:     0.7,
				WeightSemantic: 0.3,
				Method:         "Rule-based (70%) + Semantic (30%)",
				FallbackMethod: "Rule-based only",
			},
			Engagement: SemanticCriterion{
				Descriptions: []string{
					"Enthusiastic and positive tone showing confidence",
					"Engaging delivery that captures attention",
					"Expresses excitement and genuine interest",
				},
				WeightBase:     0.6,
				WeightSemantic: 0.4,
				Method:         "Sentiment (60%) + Semantic (40%)",
				FallbackMethod: "Sentiment-based only",
			},
		},
	}
}
