package textutil

import (
	"unicode"
	"unicode/utf8"
)

// Stats summarizes the character makeup of a block of extracted text.
type Stats struct {
	Runes        int
	Letters      int
	Digits       int
	Words        int
	Lines        int
	Replacements int
}

// Analyze walks text once and tallies its composition. Replacement markers
// (U+FFFD) count both literal markers emitted by the engine and invalid
// UTF-8 sequences, which decode to the same rune.
func Analyze(text string) Stats {
	var s Stats
	if text == "" {
		return s
	}
	s.Lines = 1
	inWord := false
	for _, r := range text {
		s.Runes++
		switch {
		case r == utf8.RuneError:
			s.Replacements++
		case unicode.IsLetter(r):
			s.Letters++
		case unicode.IsDigit(r):
			s.Digits++
		case r == '\n':
			s.Lines++
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if !inWord {
				s.Words++
				inWord = true
			}
		} else {
			inWord = false
		}
	}
	return s
}

// WordCount reports the number of letter or digit runs in text.
func WordCount(text string) int {
	return Analyze(text).Words
}
