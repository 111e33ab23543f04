package extraction

import "inkwell/internal/textutil"

// Assessment summarizes how usable an extraction looks.
type Assessment struct {
	Score     float64
	WordCount int
}

// Assess rates extracted text on a 0 to 1 scale: the share of word-forming
// characters, with replacement markers counted double against it. Empty
// text scores zero.
func Assess(text string) Assessment {
	stats := textutil.Analyze(text)
	if stats.Runes == 0 {
		return Assessment{}
	}
	score := float64(stats.Letters+stats.Digits) / float64(stats.Runes)
	score -= 2 * float64(stats.Replacements) / float64(stats.Runes)
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return Assessment{Score: score, WordCount: stats.Words}
}
