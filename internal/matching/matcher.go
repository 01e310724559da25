package matching

import (
	"errors"
	"fmt"
)

// Mode selects the consumer of the scorer for one run.
type Mode string

const (
	ModeGreedyTopK    Mode = "greedy-topk"
	ModeGlobalOptimal Mode = "global-optimal"
)

// ErrInvalidRequest is returned for requests the matcher cannot interpret.
var ErrInvalidRequest = errors.New("invalid matching request")

// ParseMode accepts the canonical mode names.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeGreedyTopK, ModeGlobalOptimal:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("%w: unknown mode %q", ErrInvalidRequest, s)
	}
}

// Request is the full input of one matching run. All slices are treated as
// immutable snapshots.
type Request struct {
	Fellows    []FellowProfile  `json:"fellows" yaml:"fellows"`
	Mentors    []MentorProfile  `json:"mentors" yaml:"mentors"`
	Ledger     CapacityLedger   `json:"ledger,omitempty" yaml:"ledger"`
	Activities []MentorActivity `json:"activities,omitempty" yaml:"activities"`
	Mode       Mode             `json:"mode" yaml:"mode"`
	K          int              `json:"k,omitempty" yaml:"k"`
}

// RunStats accumulates counters for a single run and is returned with its Result.
type RunStats struct {
	Fellows         int     `json:"fellows"`
	Mentors         int     `json:"mentors"`
	EligibleMentors int     `json:"eligibleMentors"`
	Matches         int     `json:"matches"`
	TotalScore      float64 `json:"totalScore"`
}

// Result is the output of one matching run.
//
// Greedy runs fill Shortlists; global-optimal runs fill Assignments and Unmatched.
type Result struct {
	Mode              Mode               `json:"mode"`
	Shortlists        map[string][]Match `json:"shortlists,omitempty"`
	Assignments       map[string]Match   `json:"assignments,omitempty"`
	Unmatched         []string           `json:"unmatched"`
	NoEligibleMentors bool               `json:"noEligibleMentors"`
	Stats             RunStats           `json:"stats"`
}

// Matcher wires the tracker, scorer, ranker and solver together.
// It holds no per-run state and is safe for concurrent use.
type Matcher struct {
	scorer *Scorer
	ranker *Ranker
	solver *Solver
}

func NewMatcher(cfg ScorerConfig) *Matcher {
	scorer := NewScorer(cfg)
	return &Matcher{
		scorer: scorer,
		ranker: NewRanker(scorer),
		solver: NewSolver(scorer),
	}
}

func (m *Matcher) Scorer() *Scorer {
	return m.scorer
}

// Run validates and normalizes the request, filters the mentor pool through a
// WorkloadTracker and dispatches to the selected mode.
func (m *Matcher) Run(req Request) (*Result, error) {
	fellows, err := normalizeFellows(req.Fellows)
	if err != nil {
		return nil, err
	}

	switch req.Mode {
	case ModeGreedyTopK:
		if req.K < 1 {
			return nil, fmt.Errorf("%w: k must be at least 1, got %d", ErrInvalidRequest, req.K)
		}
	case ModeGlobalOptimal:
	default:
		return nil, fmt.Errorf("%w: unknown mode %q", ErrInvalidRequest, req.Mode)
	}

	tracker := NewWorkloadTracker(req.Mentors, req.Ledger, req.Activities)
	pool := tracker.Eligible()

	res := &Result{
		Mode:              req.Mode,
		Unmatched:         []string{},
		NoEligibleMentors: len(pool) == 0,
		Stats: RunStats{
			Fellows:         len(fellows),
			Mentors:         len(tracker.order),
			EligibleMentors: len(pool),
		},
	}

	if req.Mode == ModeGreedyTopK {
		res.Shortlists = make(map[string][]Match, len(fellows))
		for _, f := range fellows {
			shortlist := m.ranker.Rank(f, pool, req.K)
			res.Shortlists[f.ID] = shortlist
			res.Stats.Matches += len(shortlist)
			if len(shortlist) > 0 {
				res.Stats.TotalScore += shortlist[0].Score
			}
		}
		return res, nil
	}

	assignment, err := m.solver.Solve(fellows, pool)
	if err != nil {
		return nil, err
	}
	res.Assignments = assignment.Matches
	res.Unmatched = assignment.Unmatched
	res.Stats.Matches = len(assignment.Matches)
	res.Stats.TotalScore = assignment.TotalScore
	return res, nil
}

// normalizeFellows drops later duplicates and rejects records without an ID.
func normalizeFellows(in []FellowProfile) ([]FellowProfile, error) {
	out := make([]FellowProfile, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for i, f := range in {
		if f.ID == "" {
			return nil, fmt.Errorf("%w: fellow at index %d has no id", ErrInvalidRequest, i)
		}
		if _, ok := seen[f.ID]; ok {
			continue
		}
		seen[f.ID] = struct{}{}
		out = append(out, NormalizeFellow(f))
	}
	return out, nil
}
