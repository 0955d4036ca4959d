// Package letters implements the letter progression toward SKATE.
package letters

import "strings"

// Word is the sequence a rider spells by missing tricks. Completing it loses the match.
const Word = "SKATE"

// Sanitize canonicalizes stored letters: uppercases, drops characters that are
// not part of Word, and keeps only the longest in-order prefix of Word.
func Sanitize(letters string) string {
	n := 0
	for _, r := range strings.ToUpper(letters) {
		if !strings.ContainsRune(Word, r) {
			continue
		}
		if n < len(Word) && byte(r) == Word[n] {
			n++
			continue
		}
		// A letter out of order or repeated ends the valid prefix
		break
	}
	return Word[:n]
}

// NextLetters returns current plus the next missing letter of Word.
// It saturates at the full word and never removes letters.
func NextLetters(current string) string {
	n := len(Sanitize(current))
	if n >= len(Word) {
		return Word
	}
	return Word[:n+1]
}

// IsFinished returns true iff letters spells the whole word once characters
// outside Word are dropped
func IsFinished(letters string) bool {
	kept := strings.Map(func(r rune) rune {
		if strings.ContainsRune(Word, r) {
			return r
		}
		return -1
	}, strings.ToUpper(letters))
	return kept == Word
}
