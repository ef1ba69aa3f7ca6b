package web

import (
	"sort"
	"strings"
	"unicode"

	"github.com/ppiankov/openplag/internal/model"
)

const (
	minQueryChars = 40
	maxQueryChars = 200
)

var queryStopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "for": true, "from": true, "has": true, "have": true,
	"in": true, "is": true, "it": true, "its": true, "of": true, "on": true,
	"or": true, "that": true, "the": true, "this": true, "to": true, "was": true,
	"were": true, "which": true, "with": true, "we": true, "our": true, "their": true,
	"these": true, "those": true, "there": true, "been": true, "can": true, "not": true,
}

// SelectQueries picks up to max distinctive segments to search for. Long
// sentences with few stopwords identify a source best; repeated sentences
// (headers, boilerplate) are skipped. The choice is deterministic.
func SelectQueries(segments []model.Segment, max int) []string {
	if max <= 0 {
		return nil
	}

	type candidate struct {
		text     string
		position int
		score    float64
	}

	seen := make(map[string]int)
	for _, s := range segments {
		seen[strings.ToLower(s.Text)]++
	}

	var candidates []candidate
	for _, s := range segments {
		if len([]rune(s.Text)) < minQueryChars || seen[strings.ToLower(s.Text)] > 1 {
			continue
		}
		words := strings.FieldsFunc(strings.ToLower(s.Text), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '\''
		})
		if len(words) == 0 {
			continue
		}
		stop := 0
		for _, w := range words {
			if queryStopwords[w] {
				stop++
			}
		}
		content := 1 - float64(stop)/float64(len(words))
		length := min(len([]rune(s.Text)), maxQueryChars)
		candidates = append(candidates, candidate{
			text:     s.Text,
			position: s.Position,
			score:    float64(length) * content,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].position < candidates[j].position
	})

	queries := make([]string, 0, max)
	for _, c := range candidates {
		if len(queries) == max {
			break
		}
		queries = append(queries, truncateQuery(c.text))
	}
	return queries
}

// truncateQuery cuts text to maxQueryChars on a word boundary
func truncateQuery(text string) string {
	runes := []rune(text)
	if len(runes) <= maxQueryChars {
		return text
	}
	cut := string(runes[:maxQueryChars])
	if i := strings.LastIndexByte(cut, ' '); i > maxQueryChars/2 {
		cut = cut[:i]
	}
	return strings.TrimSpace(cut)
}
