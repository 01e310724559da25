package matching

import "fmt"

const optimalNote = "Optimal primary assignment (Hungarian)"

// Assignment is the output of a global-optimal solve.
type Assignment struct {
	Matches    map[string]Match
	Unmatched  []string
	TotalScore float64
}

// Solver computes the one-to-one primary assignment maximizing total compatibility.
type Solver struct {
	scorer *Scorer
}

func NewSolver(scorer *Scorer) *Solver {
	return &Solver{scorer: scorer}
}

// Solve assigns at most one mentor to each fellow and at most one fellow to
// each mentor, covering min(len(fellows), len(pool)) pairs. Fellows left
// without a mentor are listed in Unmatched in input order.
func (s *Solver) Solve(fellows []FellowProfile, pool []MentorProfile) (*Assignment, error) {
	out := &Assignment{
		Matches:   make(map[string]Match, len(fellows)),
		Unmatched: []string{},
	}
	if len(fellows) == 0 {
		return out, nil
	}
	if len(pool) == 0 {
		for _, f := range fellows {
			out.Unmatched = append(out.Unmatched, f.ID)
		}
		return out, nil
	}

	// Costs are always laid out with the shorter side as rows.
	transposed := len(fellows) > len(pool)
	rows, cols := len(fellows), len(pool)
	if transposed {
		rows, cols = cols, rows
	}
	cost := make([][]float64, rows)
	for r := range cost {
		cost[r] = make([]float64, cols)
	}
	for i, f := range fellows {
		for j, m := range pool {
			c := 100 - s.scorer.Score(f, m).Total
			if transposed {
				cost[j][i] = c
			} else {
				cost[i][j] = c
			}
		}
	}

	cols4rows, err := hungarian(cost)
	if err != nil {
		return nil, fmt.Errorf("solve %dx%d assignment: %w", rows, cols, err)
	}

	mentorOf := make([]int, len(fellows))
	for i := range mentorOf {
		mentorOf[i] = -1
	}
	for r, c := range cols4rows {
		if transposed {
			mentorOf[c] = r
		} else {
			mentorOf[r] = c
		}
	}

	for i, f := range fellows {
		j := mentorOf[i]
		if j < 0 {
			out.Unmatched = append(out.Unmatched, f.ID)
			continue
		}
		m := pool[j]
		b := s.scorer.Score(f, m)
		match := Match{
			FellowID:          f.ID,
			MentorID:          m.ID,
			Score:             b.Total,
			Breakdown:         b,
			IsPrimary:         true,
			Note:              optimalNote,
			MatchingInterests: f.Interests.Intersect(m.Keywords).head(maxExplainLabels),
			MatchingExpertise: f.Interests.Union(f.Skills).Intersect(m.Expertise).head(maxExplainLabels),
		}
		out.Matches[f.ID] = match
		out.TotalScore += b.Total
	}

	return out, nil
}
