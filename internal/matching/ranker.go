package matching

import (
	"fmt"
	"sort"
)

// maxExplainLabels caps the label intersections attached to a Match.
const maxExplainLabels = 5

// Match is one fellow-mentor decision produced by a matching run.
type Match struct {
	FellowID          string         `json:"fellowId"`
	MentorID          string         `json:"mentorId"`
	Score             float64        `json:"score"`
	Breakdown         ScoreBreakdown `json:"breakdown"`
	IsPrimary         bool           `json:"isPrimary"`
	Note              string         `json:"note"`
	MatchingInterests []string       `json:"matchingInterests"`
	MatchingExpertise []string       `json:"matchingExpertise"`
}

// Ranker builds per-fellow shortlists. Greedy: each fellow is ranked independently.
type Ranker struct {
	scorer *Scorer
}

func NewRanker(scorer *Scorer) *Ranker {
	return &Ranker{scorer: scorer}
}

// Rank scores every mentor in the pool and returns up to k matches ordered by
// score descending, then mentor ID ascending. The first entry is primary.
// The pool is expected to be eligible already.
func (r *Ranker) Rank(f FellowProfile, pool []MentorProfile, k int) []Match {
	if k <= 0 || len(pool) == 0 {
		return []Match{}
	}

	matches := make([]Match, 0, len(pool))
	for _, m := range pool {
		matches = append(matches, r.explain(f, m, r.scorer.Score(f, m)))
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].MentorID < matches[j].MentorID
	})

	if k > len(matches) {
		k = len(matches)
	}
	matches = matches[:k]
	matches[0].IsPrimary = true
	return matches
}

func (r *Ranker) explain(f FellowProfile, m MentorProfile, b ScoreBreakdown) Match {
	return Match{
		FellowID:          f.ID,
		MentorID:          m.ID,
		Score:             b.Total,
		Breakdown:         b,
		Note:              fmt.Sprintf("Compatibility: %.1f/100", b.Total),
		MatchingInterests: f.Interests.Intersect(m.Keywords).head(maxExplainLabels),
		MatchingExpertise: f.Interests.Union(f.Skills).Intersect(m.Expertise).head(maxExplainLabels),
	}
}
