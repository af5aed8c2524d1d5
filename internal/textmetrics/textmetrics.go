// Package textmetrics holds the tokenizer and the counting helpers every
// analyzer shares. Nothing here returns an error: empty or odd input yields
// zero counts.
package textmetrics

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"
)

// FirstSentenceFallback is the number of runes used as the "first sentence"
// when the text carries no terminator at all.
const FirstSentenceFallback = 100

var (
	wordPattern     = regexp.MustCompile(`[\p{L}\p{N}_]+`)
	sentenceBreaker = regexp.MustCompile(`[.!?]+`)
)

// Tokenize lowercases text and returns its word tokens in order.
// A token is a maximal run of letters, digits or underscores, so
// punctuation never produces a token and "don't" yields "don" and "t".
func Tokenize(text string) []string {
	return wordPattern.FindAllString(strings.ToLower(text), -1)
}

// WordCount returns len(Tokenize(text)) without keeping the slice around.
func WordCount(text string) int {
	return len(wordPattern.FindAllStringIndex(text, -1))
}

// Sentences splits on runs of '.', '!' and '?' and keeps the trimmed,
// non-empty fragments.
func Sentences(text string) []string {
	parts := sentenceBreaker.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// SentenceCount returns len(Sentences(text)).
func SentenceCount(text string) int {
	return len(Sentences(text))
}

// FirstSentence returns the text before the first terminator. Without any
// terminator it falls back to the first FirstSentenceFallback runes.
// The result is not trimmed or lowercased.
func FirstSentence(text string) string {
	if loc := sentenceBreaker.FindStringIndex(text); loc != nil {
		return text[:loc[0]]
	}
	if utf8.RuneCountInString(text) <= FirstSentenceFallback {
		return text
	}
	runes := []rune(text)
	return string(runes[:FirstSentenceFallback])
}

// UniqueCount returns the number of distinct tokens.
func UniqueCount(tokens []string) int {
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		seen[t] = struct{}{}
	}
	return len(seen)
}

// VocabularyRichness is the type-token ratio of text rounded to three
// decimals, or 0 when text has no tokens.
func VocabularyRichness(text string) float64 {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return 0
	}
	return Round(float64(UniqueCount(tokens))/float64(len(tokens)), 3)
}

// WordsPerMinute returns words/seconds*60 rounded to one decimal.
// Non-positive seconds yield 0.
func WordsPerMinute(words, seconds int) float64 {
	if seconds <= 0 {
		return 0
	}
	return Round(float64(words)/float64(seconds)*60, 1)
}

// Round rounds half away from zero to the given number of decimals.
func Round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}

// Percentage returns part/whole*100 rounded to one decimal, 0 when whole is 0.
func Percentage(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return Round(float64(part)/float64(whole)*100, 1)
}
