package scoring

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	maxIdealWords     = 500
	idealWordsPerWord = 10
	idealSentenceLen  = 20
	complexWordLen    = 12
	minKeywordLen     = 4
)

var (
	sentenceSplit   = regexp.MustCompile(`[.!?]+`)
	answerPatterns  = regexp.MustCompile(`(?i)because|due to|therefore|thus|hence|as a result`)
	transitionWords = regexp.MustCompile(`(?i)however|furthermore|additionally|moreover|therefore|consequently|meanwhile|similarly`)
	passiveVoice    = regexp.MustCompile(`(?i)\b(is|are|was|were|be|been|being)\s+\w+ed\b`)

	questionWords = []string{"what", "how", "why", "when", "where", "who"}

	keywordStopwords = map[string]struct{}{
		"that": {}, "this": {}, "with": {}, "from": {}, "about": {},
	}
)

// WordCount returns the number of whitespace-separated tokens in s.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

// Sentences splits s on runs of sentence-terminal punctuation and drops
// blank fragments.
func Sentences(s string) []string {
	parts := sentenceSplit.Split(s, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

// LengthScore rates words against an ideal budget of ten words per prompt
// word, capped at 500.
func LengthScore(words, promptWords int) float64 {
	ideal := min(promptWords*idealWordsPerWord, maxIdealWords)
	return math.Min(float64(words)/floor1(ideal), 1) * 100
}

// AnswerPatternScore rates how many causal connectives text carries per
// question word found in prompt.
func AnswerPatternScore(text, prompt string) float64 {
	lower := strings.ToLower(prompt)
	questions := 0
	for _, w := range questionWords {
		if strings.Contains(lower, w) {
			questions++
		}
	}
	answers := len(answerPatterns.FindAllStringIndex(text, -1))
	return math.Min(float64(answers)/floor1(questions), 1) * 100
}

// CoherenceByLength peaks at twenty words per sentence and loses five
// points per word of deviation.
func CoherenceByLength(words, sentences int) float64 {
	avg := float64(words) / floor1(sentences)
	return math.Max(0, 100-math.Abs(avg-idealSentenceLen)*5)
}

// CoherenceByTransitions expects one transition word per five sentences.
func CoherenceByTransitions(text string, sentences int) float64 {
	transitions := len(transitionWords.FindAllStringIndex(text, -1))
	per := math.Max(float64(sentences)/5, 1)
	return math.Min(float64(transitions)/per, 1) * 100
}

// ClarityByComplexity penalises words longer than twelve characters.
func ClarityByComplexity(text string) float64 {
	fields := strings.Fields(text)
	long := 0
	for _, w := range fields {
		if utf8.RuneCountInString(w) > complexWordLen {
			long++
		}
	}
	ratio := float64(long) / floor1(len(fields))
	return math.Max(0, 100-ratio*500)
}

// ClarityByVoice penalises passive constructions per sentence.
func ClarityByVoice(text string, sentences int) float64 {
	passive := len(passiveVoice.FindAllStringIndex(text, -1))
	ratio := float64(passive) / floor1(sentences)
	return math.Max(0, 100-ratio*100)
}

// PromptKeywords returns the lower-cased prompt tokens longer than four
// characters, minus stopwords. Duplicates are kept.
func PromptKeywords(prompt string) []string {
	var out []string
	for _, w := range strings.Fields(strings.ToLower(prompt)) {
		if utf8.RuneCountInString(w) <= minKeywordLen {
			continue
		}
		if _, stop := keywordStopwords[w]; stop {
			continue
		}
		out = append(out, w)
	}
	return out
}

// Relevance is the share of prompt keywords found in text, case-insensitive.
func Relevance(text, prompt string) float64 {
	keywords := PromptKeywords(prompt)
	lower := strings.ToLower(text)
	matched := 0
	for _, k := range keywords {
		if strings.Contains(lower, k) {
			matched++
		}
	}
	return math.Min(float64(matched)/floor1(len(keywords)), 1) * 100
}

func floor1(n int) float64 {
	if n < 1 {
		return 1
	}
	return float64(n)
}
