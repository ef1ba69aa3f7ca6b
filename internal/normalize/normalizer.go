// Package normalize turns raw extracted text into comparable segments.
package normalize

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ppiankov/openplag/internal/model"
)

const (
	DefaultMinSegmentChars = 20
	DefaultMaxSegmentChars = 1000
)

var paragraphBreak = regexp.MustCompile(`\n[ \t]*\n`)

// abbreviations that end with a period but rarely end a sentence
var abbreviations = map[string]bool{
	"e.g": true, "i.e": true, "etc": true, "vs": true, "cf": true, "al": true,
	"mr": true, "mrs": true, "ms": true, "dr": true, "prof": true, "st": true,
	"fig": true, "vol": true, "pp": true, "jr": true, "sr": true,
}

// Normalizer splits text into sentence segments
type Normalizer struct {
	minChars int
	maxChars int
}

// New creates a normalizer. Non-positive limits fall back to defaults.
func New(minChars, maxChars int) *Normalizer {
	if minChars <= 0 {
		minChars = DefaultMinSegmentChars
	}
	if maxChars <= 0 {
		maxChars = DefaultMaxSegmentChars
	}
	if maxChars < minChars {
		maxChars = minChars
	}
	return &Normalizer{minChars: minChars, maxChars: maxChars}
}

// Normalize splits raw text on paragraph and sentence boundaries and
// returns unembedded segments numbered from 0. Fragments shorter than the
// minimum length and segments that are mostly non-letters are dropped.
func (n *Normalizer) Normalize(raw string) []model.Segment {
	text := clean(raw)

	var segments []model.Segment
	for _, para := range paragraphBreak.Split(text, -1) {
		para = strings.Join(strings.Fields(para), " ")
		if para == "" {
			continue
		}
		for _, sentence := range splitSentences(para) {
			for _, piece := range n.chunk(sentence) {
				if utf8.RuneCountInString(piece) < n.minChars || !mostlyLetters(piece) {
					continue
				}
				segments = append(segments, model.Segment{
					Position: len(segments),
					Text:     piece,
				})
			}
		}
	}
	return segments
}

// clean normalizes line endings and strips control characters
func clean(raw string) string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.ReplaceAll(raw, "\r", "\n")
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t':
			return r
		case r == utf8.RuneError, unicode.IsControl(r):
			return -1
		case unicode.IsSpace(r):
			return ' '
		}
		return r
	}, raw)
}

// splitSentences splits a single-line paragraph on terminators followed by
// whitespace, skipping known abbreviations and single-letter initials.
func splitSentences(para string) []string {
	var sentences []string
	runes := []rune(para)
	start := 0

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		// Swallow closing quotes and brackets after the terminator
		end := i + 1
		for end < len(runes) && strings.ContainsRune(`"')]”’`, runes[end]) {
			end++
		}
		if end < len(runes) && runes[end] != ' ' {
			continue
		}
		if r == '.' && isAbbreviation(runes[start:i]) {
			continue
		}
		if s := strings.TrimSpace(string(runes[start:end])); s != "" {
			sentences = append(sentences, s)
		}
		start = end
		i = end - 1
	}

	if start < len(runes) {
		if s := strings.TrimSpace(string(runes[start:])); s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

// isAbbreviation checks the word right before a period
func isAbbreviation(before []rune) bool {
	j := len(before)
	for j > 0 && before[j-1] != ' ' {
		j--
	}
	word := strings.ToLower(strings.TrimLeft(string(before[j:]), `"'(`))
	if word == "" {
		return false
	}
	if utf8.RuneCountInString(word) == 1 && unicode.IsLetter([]rune(word)[0]) {
		return true
	}
	return abbreviations[word]
}

// chunk cuts an over-long sentence into pieces on word boundaries
func (n *Normalizer) chunk(sentence string) []string {
	if utf8.RuneCountInString(sentence) <= n.maxChars {
		return []string{sentence}
	}

	var pieces []string
	var current strings.Builder
	length := 0
	for _, word := range strings.Fields(sentence) {
		wl := utf8.RuneCountInString(word)
		if length > 0 && length+1+wl > n.maxChars {
			pieces = append(pieces, current.String())
			current.Reset()
			length = 0
		}
		if length > 0 {
			current.WriteByte(' ')
			length++
		}
		current.WriteString(word)
		length += wl
	}
	if current.Len() > 0 {
		pieces = append(pieces, current.String())
	}
	return pieces
}

// mostlyLetters filters separators, page numbers and similar noise
func mostlyLetters(s string) bool {
	letters, other := 0, 0
	for _, r := range s {
		switch {
		case unicode.IsLetter(r):
			letters++
		case unicode.IsSpace(r):
		default:
			other++
		}
	}
	return letters > 0 && letters >= other
}
