package matching

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRequest(mode Mode) Request {
	return Request{
		Mode: mode,
		K:    2,
		Fellows: []FellowProfile{
			{ID: "f1", Interests: NewLabelSet("language-brain", "memory")},
			{ID: "f2", Interests: NewLabelSet("fmri"), Skills: NewLabelSet("python")},
			{ID: "f3", Interests: NewLabelSet("eeg")},
		},
		Mentors: []MentorProfile{
			{ID: "m1", Affiliation: "Princeton", Keywords: NewLabelSet("language-brain", "memory"), MaxCapacity: 2, Active: true, SpeaksLocalLanguage: true},
			{ID: "m2", Affiliation: "KAIST", Expertise: NewLabelSet("fmri", "python"), MaxCapacity: 1, Active: true},
			{ID: "m3", Keywords: NewLabelSet("eeg"), MaxCapacity: 1, Active: false},
		},
	}
}

func TestMatcher_GreedyTopK(t *testing.T) {
	res, err := NewMatcher(ScorerConfig{}).Run(sampleRequest(ModeGreedyTopK))
	require.NoError(t, err)

	assert.Equal(t, ModeGreedyTopK, res.Mode)
	assert.False(t, res.NoEligibleMentors)
	assert.Nil(t, res.Assignments)
	require.Len(t, res.Shortlists, 3)
	for id, shortlist := range res.Shortlists {
		require.Len(t, shortlist, 2, id)
		assert.True(t, shortlist[0].IsPrimary)
		for _, m := range shortlist {
			assert.NotEqual(t, "m3", m.MentorID)
		}
	}
	assert.Equal(t, "m1", res.Shortlists["f1"][0].MentorID)
	assert.Equal(t, "m2", res.Shortlists["f2"][0].MentorID)
	assert.Equal(t, RunStats{
		Fellows:         3,
		Mentors:         3,
		EligibleMentors: 2,
		Matches:         6,
		TotalScore:      res.Shortlists["f1"][0].Score + res.Shortlists["f2"][0].Score + res.Shortlists["f3"][0].Score,
	}, res.Stats)
}

func TestMatcher_GlobalOptimalReportsUnmatched(t *testing.T) {
	res, err := NewMatcher(ScorerConfig{}).Run(sampleRequest(ModeGlobalOptimal))
	require.NoError(t, err)

	require.Len(t, res.Assignments, 2)
	assert.Equal(t, "m1", res.Assignments["f1"].MentorID)
	assert.Equal(t, "m2", res.Assignments["f2"].MentorID)
	assert.Equal(t, []string{"f3"}, res.Unmatched)
	assert.Nil(t, res.Shortlists)
	assert.Equal(t, 2, res.Stats.Matches)
}

func TestMatcher_LedgerGatesEligibility(t *testing.T) {
	req := sampleRequest(ModeGlobalOptimal)
	req.Ledger = CapacityLedger{"m2": {MaxCapacity: 1, CurrentLoad: 1, Active: true}}

	res, err := NewMatcher(ScorerConfig{}).Run(req)
	require.NoError(t, err)

	require.Len(t, res.Assignments, 1)
	assert.Equal(t, "m1", res.Assignments["f1"].MentorID)
	assert.ElementsMatch(t, []string{"f2", "f3"}, res.Unmatched)
	assert.Equal(t, 1, res.Stats.EligibleMentors)
}

func TestMatcher_NoEligibleMentors(t *testing.T) {
	for _, mode := range []Mode{ModeGreedyTopK, ModeGlobalOptimal} {
		t.Run(string(mode), func(t *testing.T) {
			req := sampleRequest(mode)
			for i := range req.Mentors {
				req.Mentors[i].Active = false
			}

			res, err := NewMatcher(ScorerConfig{}).Run(req)
			require.NoError(t, err)

			assert.True(t, res.NoEligibleMentors)
			assert.Empty(t, res.Assignments)
			for _, shortlist := range res.Shortlists {
				assert.Empty(t, shortlist)
			}
			assert.Equal(t, 0, res.Stats.Matches)
		})
	}
}

func TestMatcher_InvalidRequests(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Request)
	}{
		{"unknown mode", func(r *Request) { r.Mode = "round-robin" }},
		{"k below one", func(r *Request) { r.Mode = ModeGreedyTopK; r.K = 0 }},
		{"fellow without id", func(r *Request) { r.Fellows[0].ID = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := sampleRequest(ModeGreedyTopK)
			tt.mutate(&req)

			_, err := NewMatcher(ScorerConfig{}).Run(req)
			assert.True(t, errors.Is(err, ErrInvalidRequest))
		})
	}
}

func TestMatcher_DuplicateFellowsKeepFirst(t *testing.T) {
	req := sampleRequest(ModeGlobalOptimal)
	req.Fellows = append(req.Fellows, FellowProfile{ID: "f1", Interests: NewLabelSet("eeg")})

	res, err := NewMatcher(ScorerConfig{}).Run(req)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Stats.Fellows)
	assert.Equal(t, "m1", res.Assignments["f1"].MentorID)
}

func TestMatcher_Deterministic(t *testing.T) {
	for _, mode := range []Mode{ModeGreedyTopK, ModeGlobalOptimal} {
		t.Run(string(mode), func(t *testing.T) {
			matcher := NewMatcher(ScorerConfig{})

			first, err := matcher.Run(sampleRequest(mode))
			require.NoError(t, err)
			second, err := matcher.Run(sampleRequest(mode))
			require.NoError(t, err)

			a, err := Fingerprint(first)
			require.NoError(t, err)
			b, err := Fingerprint(second)
			require.NoError(t, err)
			assert.Equal(t, a, b)
			assert.Len(t, a, 16)
		})
	}
}

func TestFingerprint_ChangesWithResult(t *testing.T) {
	matcher := NewMatcher(ScorerConfig{})
	greedy, err := matcher.Run(sampleRequest(ModeGreedyTopK))
	require.NoError(t, err)
	optimal, err := matcher.Run(sampleRequest(ModeGlobalOptimal))
	require.NoError(t, err)

	a, _ := Fingerprint(greedy)
	b, _ := Fingerprint(optimal)
	assert.NotEqual(t, a, b)

	_, err = Fingerprint(nil)
	assert.Error(t, err)
}

func TestParseMode(t *testing.T) {
	mode, err := ParseMode("global-optimal")
	require.NoError(t, err)
	assert.Equal(t, ModeGlobalOptimal, mode)

	_, err = ParseMode("hungarian")
	assert.True(t, errors.Is(err, ErrInvalidRequest))
}
