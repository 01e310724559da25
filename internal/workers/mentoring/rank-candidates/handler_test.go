package rankcandidates

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	apperrors "mentor-matching/internal/common/errors"
	"mentor-matching/internal/common/logger"
	"mentor-matching/internal/matching"
	"mentor-matching/internal/repository"
	"mentor-matching/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

type fakeSnapshots struct {
	snap    *repository.Snapshot
	err     error
	queries []repository.SnapshotQuery
}

func (f *fakeSnapshots) Load(_ context.Context, q repository.SnapshotQuery) (*repository.Snapshot, error) {
	f.queries = append(f.queries, q)
	if f.err != nil {
		return nil, f.err
	}
	// hand out a copy so the handler cannot leak state between calls
	cp := *f.snap
	return &cp, nil
}

type fakeSearch struct {
	ids    []string
	err    error
	labels []string
}

func (f *fakeSearch) Search(_ context.Context, labels []string, _ int) ([]string, error) {
	f.labels = labels
	return f.ids, f.err
}

func createTestConfig() *Config {
	return &Config{Timeout: 5 * time.Second, DefaultTopK: 2, MaxPoolSize: 50}
}

func createSnapshot() *repository.Snapshot {
	return &repository.Snapshot{
		Fellows: []matching.FellowProfile{
			{ID: "f1", Interests: matching.LabelSet{"fmri", "memory"}, Skills: matching.LabelSet{"python"}},
		},
		Mentors: []matching.MentorProfile{
			{ID: "m3", Active: true, MaxCapacity: 3},
			{ID: "m1", Active: true, MaxCapacity: 3, Expertise: matching.LabelSet{"fmri", "memory"}},
			{ID: "m2", Active: true, MaxCapacity: 3, Keywords: matching.LabelSet{"robotics"}},
		},
		Ledger:     matching.CapacityLedger{},
		Activities: []matching.MentorActivity{},
	}
}

func createHandler(t *testing.T, snaps SnapshotSource, search MentorSearcher) *Handler {
	h := NewHandler(createTestConfig(), snaps, search, matching.NewMatcher(matching.ScorerConfig{}), nil, logger.NewTestLogger(t))
	h.newRunID = func() string { return "run-1" }
	return h
}

func decodeOutput(t *testing.T, client *testutil.FakeJobClient) Output {
	t.Helper()
	completed := client.Gateway.Completed()
	require.Len(t, completed, 1)
	var out Output
	require.NoError(t, json.Unmarshal([]byte(completed[0].Variables), &out))
	return out
}

func shortlistIDs(matches []matching.Match) []string {
	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.MentorID
	}
	return ids
}

// ==========================
// Handle
// ==========================

func TestHandler_Handle_Success(t *testing.T) {
	snaps := &fakeSnapshots{snap: createSnapshot()}
	h := createHandler(t, snaps, nil)
	client := testutil.NewFakeJobClient()

	job, err := testutil.NewJob(1, TaskType, 3, map[string]interface{}{"fellowId": "f1"})
	require.NoError(t, err)
	h.Handle(client, job)

	out := decodeOutput(t, client)
	assert.Equal(t, "run-1", out.RunID)
	assert.Equal(t, "f1", out.FellowID)
	assert.Equal(t, matching.ModeGreedyTopK, out.Mode)
	assert.Equal(t, []string{"m1", "m2"}, shortlistIDs(out.Shortlist))
	assert.False(t, out.NoEligibleMentors)
	assert.Equal(t, 3, out.Stats.EligibleMentors)
	assert.Len(t, out.Digest, 16)

	require.Len(t, snaps.queries, 1)
	assert.Equal(t, []string{"f1"}, snaps.queries[0].FellowIDs)
}

func TestHandler_Handle_InvalidInput(t *testing.T) {
	h := createHandler(t, &fakeSnapshots{snap: createSnapshot()}, nil)
	client := testutil.NewFakeJobClient()

	job, err := testutil.NewJob(2, TaskType, 3, map[string]interface{}{"k": 0})
	require.NoError(t, err)
	h.Handle(client, job)

	thrown := client.Gateway.Thrown()
	require.Len(t, thrown, 1)
	assert.Equal(t, "INPUT_VALIDATION_FAILED", thrown[0].ErrorCode)
	assert.Empty(t, client.Gateway.Completed())
}

func TestHandler_Handle_StoreFailureIsRetried(t *testing.T) {
	snaps := &fakeSnapshots{err: apperrors.NewProfileLoadFailedError("fellow", errors.New("connection refused"))}
	h := createHandler(t, snaps, nil)
	client := testutil.NewFakeJobClient()

	job, err := testutil.NewJob(3, TaskType, 3, map[string]interface{}{"fellowId": "f1"})
	require.NoError(t, err)
	h.Handle(client, job)

	failed := client.Gateway.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, int32(2), failed[0].Retries)
	assert.Empty(t, client.Gateway.Thrown())
}

func TestHandler_Handle_SearchFailureScoresFullPool(t *testing.T) {
	search := &fakeSearch{err: errors.New("index missing")}
	h := createHandler(t, &fakeSnapshots{snap: createSnapshot()}, search)
	client := testutil.NewFakeJobClient()

	job, err := testutil.NewJob(4, TaskType, 1, map[string]interface{}{"fellowId": "f1", "useSearchPrefilter": true})
	require.NoError(t, err)
	h.Handle(client, job)

	assert.Empty(t, client.Gateway.Failed())
	assert.Empty(t, client.Gateway.Thrown())

	out := decodeOutput(t, client)
	assert.Equal(t, []string{"m1", "m2"}, shortlistIDs(out.Shortlist))
	assert.Equal(t, 3, out.Stats.EligibleMentors)
	assert.NotEmpty(t, search.labels)
}

// ==========================
// Execute
// ==========================

func TestHandler_Execute_Prefilter(t *testing.T) {
	search := &fakeSearch{ids: []string{"m3", "m2"}}
	h := createHandler(t, &fakeSnapshots{snap: createSnapshot()}, search)

	out, err := h.Execute(context.Background(), &Input{FellowID: "f1", UseSearchPrefilter: true})
	require.NoError(t, err)

	assert.Equal(t, []string{"m2", "m3"}, shortlistIDs(out.Shortlist))
	assert.ElementsMatch(t, []string{"fmri", "memory", "python"}, search.labels)
}

func TestHandler_Execute_PrefilterEmptyKeepsPool(t *testing.T) {
	h := createHandler(t, &fakeSnapshots{snap: createSnapshot()}, &fakeSearch{ids: []string{}})

	out, err := h.Execute(context.Background(), &Input{FellowID: "f1", K: 1, UseSearchPrefilter: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"m1"}, shortlistIDs(out.Shortlist))
}

func TestHandler_Execute_InlineFellow(t *testing.T) {
	snaps := &fakeSnapshots{snap: createSnapshot()}
	h := createHandler(t, snaps, nil)

	fellow := &matching.FellowProfile{ID: "guest", Interests: matching.LabelSet{"robotics"}}
	out, err := h.Execute(context.Background(), &Input{Fellow: fellow, K: 1})
	require.NoError(t, err)

	assert.Equal(t, "guest", out.FellowID)
	assert.Equal(t, []string{"m2"}, shortlistIDs(out.Shortlist))
	assert.Empty(t, snaps.queries[0].FellowIDs)
}

func TestHandler_Execute_NoEligibleMentors(t *testing.T) {
	snap := createSnapshot()
	snap.Ledger = matching.CapacityLedger{
		"m1": {MaxCapacity: 1, CurrentLoad: 1, Active: true},
		"m2": {MaxCapacity: 2, CurrentLoad: 0, Active: false},
		"m3": {MaxCapacity: 3, CurrentLoad: 3, Active: true},
	}
	h := createHandler(t, &fakeSnapshots{snap: snap}, nil)

	out, err := h.Execute(context.Background(), &Input{FellowID: "f1"})
	require.NoError(t, err)

	assert.True(t, out.NoEligibleMentors)
	assert.NotNil(t, out.Shortlist)
	assert.Empty(t, out.Shortlist)
}

func TestHandler_Execute_Deterministic(t *testing.T) {
	h := createHandler(t, &fakeSnapshots{snap: createSnapshot()}, nil)

	first, err := h.Execute(context.Background(), &Input{FellowID: "f1", K: 3})
	require.NoError(t, err)
	second, err := h.Execute(context.Background(), &Input{FellowID: "f1", K: 3})
	require.NoError(t, err)

	assert.Equal(t, first.Digest, second.Digest)
	assert.Equal(t, first.Shortlist, second.Shortlist)
}
