package scoring

// ScoreSet is the four-dimension quality assessment of one candidate text
// relative to its prompt. Every field is in [0,100].
type ScoreSet struct {
	Completeness float64 `json:"completeness" yaml:"completeness"`
	Coherence    float64 `json:"coherence" yaml:"coherence"`
	Clarity      float64 `json:"clarity" yaml:"clarity"`
	Relevance    float64 `json:"relevance" yaml:"relevance"`
}

// Score computes the ScoreSet of text against prompt.
// It is pure: identical inputs always yield identical outputs.
func Score(text, prompt string) ScoreSet {
	words := WordCount(text)
	sentences := len(Sentences(text))

	completeness := 0.6*LengthScore(words, WordCount(prompt)) +
		0.4*AnswerPatternScore(text, prompt)

	coherence := 0.5*CoherenceByLength(words, sentences) +
		0.5*CoherenceByTransitions(text, sentences)

	clarity := 0.6*ClarityByComplexity(text) +
		0.4*ClarityByVoice(text, sentences)

	return ScoreSet{
		Completeness: clamp(completeness),
		Coherence:    clamp(coherence),
		Clarity:      clamp(clarity),
		Relevance:    clamp(Relevance(text, prompt)),
	}
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
