// file: internal/matcher/matcher.go
// version: 2.0.0
// guid: 1f2a3b4c-5d6e-7f8a-9b0c-1d2e3f4a5b6c

package matcher

import (
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Candidate is one hit returned by a free-text site search.
type Candidate struct {
	Title   string
	Authors []string
	ISBN    string
}

// Query is what the user searched for.
type Query struct {
	Title  string
	Author string
	ISBN   string
}

// DefaultMinScore is the score below which a text hit is not trusted.
const DefaultMinScore = 45

// ScoreCandidate rates c against q. Title carries most of the weight; the
// author score uses the best of the candidate's authors. An exact ISBN
// match wins outright.
func ScoreCandidate(q Query, c Candidate) int {
	if q.ISBN != "" && c.ISBN != "" && compact(q.ISBN) == compact(c.ISBN) {
		return 100
	}
	title := 0
	if q.Title != "" {
		title = ScoreMatch(q.Title, c.Title)
		if title < 80 && fuzzy.MatchNormalizedFold(q.Title, c.Title) {
			// every query rune appears in order, e.g. "lotr" in "Lord of the Rings"
			title = max(title, 60)
		}
	}
	author := 0
	if q.Author != "" {
		for _, a := range c.Authors {
			author = max(author, scoreAuthor(q.Author, a))
		}
	}
	switch {
	case q.Title != "" && q.Author != "":
		return (title*7 + author*3) / 10
	case q.Title != "":
		return title
	default:
		return author
	}
}

// scoreAuthor also accepts "Last, First" against "First Last".
func scoreAuthor(query, author string) int {
	s := ScoreMatch(query, author)
	if last, first, ok := strings.Cut(author, ","); ok {
		s = max(s, ScoreMatch(query, strings.TrimSpace(first)+" "+strings.TrimSpace(last)))
	}
	return s
}

// Best returns the index of the best candidate scoring at least minScore.
func Best(q Query, candidates []Candidate, minScore int) (int, int, bool) {
	bestIdx, bestScore := -1, -1
	for i, c := range candidates {
		if s := ScoreCandidate(q, c); s > bestScore {
			bestIdx, bestScore = i, s
		}
	}
	if bestIdx < 0 || bestScore < minScore {
		return -1, 0, false
	}
	return bestIdx, bestScore, true
}

func compact(s string) string {
	return strings.ReplaceAll(normalize(s), " ", "")
}
