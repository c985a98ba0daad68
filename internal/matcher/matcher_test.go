// file: internal/matcher/matcher_test.go
// version: 2.0.0
// guid: 8c1d2e3f-4a5b-6c7d-8e9f-0a1b2c3d4e5f

package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScoreCandidate(t *testing.T) {
	q := Query{Title: "Dune", Author: "Frank Herbert"}

	exact := ScoreCandidate(q, Candidate{Title: "Dune", Authors: []string{"Frank Herbert"}})
	reversed := ScoreCandidate(q, Candidate{Title: "Dune", Authors: []string{"Herbert, Frank"}})
	other := ScoreCandidate(q, Candidate{Title: "Dune Messiah", Authors: []string{"Frank Herbert"}})
	wrong := ScoreCandidate(q, Candidate{Title: "Emma", Authors: []string{"Jane Austen"}})

	assert.Equal(t, 100, exact)
	assert.Equal(t, 100, reversed)
	assert.Less(t, other, exact)
	assert.Less(t, wrong, DefaultMinScore)
}

func TestScoreCandidateISBNWins(t *testing.T) {
	q := Query{Title: "Something", ISBN: "978-0-306-40615-7"}
	assert.Equal(t, 100, ScoreCandidate(q, Candidate{Title: "Else", ISBN: "9780306406157"}))
}

func TestScoreCandidateFoldsAccents(t *testing.T) {
	q := Query{Title: "Wuthering Heights", Author: "Emily Bronte"}
	c := Candidate{Title: "Wuthering Heights", Authors: []string{"Emily Brontë"}}
	assert.Equal(t, 100, ScoreCandidate(q, c))
}

func TestBest(t *testing.T) {
	cands := []Candidate{
		{Title: "The Hobbit: Graphic Novel"},
		{Title: "The Hobbit", Authors: []string{"J.R.R. Tolkien"}},
		{Title: "Unrelated"},
	}
	idx, score, ok := Best(Query{Title: "The Hobbit", Author: "Tolkien"}, cands, DefaultMinScore)
	assert.True(t, ok)
	assert.Equal(t, 1, idx)
	assert.Greater(t, score, DefaultMinScore)

	_, _, ok = Best(Query{Title: "Neuromancer"}, cands, DefaultMinScore)
	assert.False(t, ok)

	_, _, ok = Best(Query{Title: "x"}, nil, 0)
	assert.False(t, ok)
}

func TestSplitSeries(t *testing.T) {
	tests := []struct {
		in, title, series, num string
		ok                     bool
	}{
		{"Dune (Dune Chronicles, #1)", "Dune", "Dune Chronicles", "1", true},
		{"Mistborn (Mistborn #1.5)", "Mistborn", "Mistborn", "1.5", true},
		{"Discworld Book 3: Equal Rites", "Equal Rites", "Discworld", "3", true},
		{"Saga Vol. 2 - Second", "Second", "Saga", "2", true},
		{"Culture #4: Use of Weapons", "Use of Weapons", "Culture", "4", true},
		{"Just a Title", "Just a Title", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			title, series, num, ok := SplitSeries(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.title, title)
			assert.Equal(t, tt.series, series)
			assert.Equal(t, tt.num, num)
		})
	}
}

func TestSeriesEntry(t *testing.T) {
	assert.Equal(t, "Dune #1", SeriesEntry("Dune", "1"))
	assert.Equal(t, "Dune", SeriesEntry(" Dune ", ""))
	assert.Equal(t, "", SeriesEntry("", "1"))
}
