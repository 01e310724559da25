package matching

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkloadTracker_LedgerOverridesSnapshot(t *testing.T) {
	mentors := []MentorProfile{
		{ID: "m2", Name: "Second", MaxCapacity: 2, CurrentLoad: 0, Active: true},
		{ID: "m1", Name: "First", MaxCapacity: 0, CurrentLoad: -1, Active: true},
		{ID: "m3", MaxCapacity: 2, CurrentLoad: 0, Active: true},
		{ID: "m2", Name: "Duplicate", MaxCapacity: 9, Active: true},
		{ID: ""},
	}
	ledger := CapacityLedger{
		"m3": {MaxCapacity: 2, CurrentLoad: 2, Active: true},
	}

	tracker := NewWorkloadTracker(mentors, ledger, nil)

	m1, ok := tracker.Mentor("m1")
	require.True(t, ok)
	assert.Equal(t, DefaultMaxCapacity, m1.MaxCapacity)
	assert.Equal(t, 0, m1.CurrentLoad)

	m2, _ := tracker.Mentor("m2")
	assert.Equal(t, "Second", m2.Name)

	assert.Equal(t, 3, tracker.AvailableSlots("m1"))
	assert.Equal(t, 2, tracker.AvailableSlots("m2"))
	assert.Equal(t, 0, tracker.AvailableSlots("m3"))
	assert.Equal(t, 0, tracker.AvailableSlots("unknown"))

	assert.False(t, tracker.IsEligible("m3"))
	assert.False(t, tracker.IsEligible("unknown"))

	eligible := tracker.Eligible()
	require.Len(t, eligible, 2)
	assert.Equal(t, "m1", eligible[0].ID)
	assert.Equal(t, "m2", eligible[1].ID)
}

func TestWorkloadTracker_InactiveMentorsAreNeverEligible(t *testing.T) {
	tracker := NewWorkloadTracker([]MentorProfile{
		{ID: "m1", MaxCapacity: 3, Active: false},
		{ID: "m2", MaxCapacity: 3, Active: true},
	}, CapacityLedger{"m2": {MaxCapacity: 3, Active: false}}, nil)

	assert.Empty(t, tracker.Eligible())
}

func TestWorkloadTracker_DirectoryDeactivationWinsOverLedger(t *testing.T) {
	tracker := NewWorkloadTracker([]MentorProfile{
		{ID: "m1", MaxCapacity: 3, Active: false},
	}, CapacityLedger{"m1": {MaxCapacity: 3, CurrentLoad: 1, Active: true}}, nil)

	m1, ok := tracker.Mentor("m1")
	require.True(t, ok)
	assert.False(t, m1.Active)
	assert.Equal(t, 1, m1.CurrentLoad)
	assert.False(t, tracker.IsEligible("m1"))
	assert.Empty(t, tracker.Eligible())

	res, err := NewMatcher(ScorerConfig{}).Run(Request{
		Fellows: []FellowProfile{{ID: "f1", Interests: NewLabelSet("memory")}},
		Mentors: []MentorProfile{{ID: "m1", Keywords: NewLabelSet("memory"), Active: false}},
		Ledger:  CapacityLedger{"m1": {MaxCapacity: 3, Active: true}},
		Mode:    ModeGlobalOptimal,
	})
	require.NoError(t, err)
	assert.Empty(t, res.Assignments)
	assert.True(t, res.NoEligibleMentors)
	assert.Equal(t, []string{"f1"}, res.Unmatched)
}

func TestWorkloadTracker_Report(t *testing.T) {
	day := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	tracker := NewWorkloadTracker(
		[]MentorProfile{
			{ID: "m2", Name: "Kim", MaxCapacity: 3, CurrentLoad: 1, Active: true},
			{ID: "m1", Name: "Lee", MaxCapacity: 2, CurrentLoad: 2, Active: true},
		},
		nil,
		[]MentorActivity{
			{MentorID: "m1", Type: "meeting", FellowID: "f1", Date: day, DurationHours: 1.5},
			{MentorID: "m1", Type: "review", Date: day, DurationHours: 2},
			{MentorID: "m2", Type: "meeting", DurationHours: -4},
			{MentorID: "ghost", DurationHours: 3},
		},
	)

	report := tracker.Report()

	require.Len(t, report, 2)
	assert.Equal(t, MentorWorkload{
		MentorID: "m1", Name: "Lee", Active: true,
		CurrentLoad: 2, MaxCapacity: 2, AvailableSlots: 0, ActivityHours: 3.5,
	}, report[0])
	assert.Equal(t, MentorWorkload{
		MentorID: "m2", Name: "Kim", Active: true,
		CurrentLoad: 1, MaxCapacity: 3, AvailableSlots: 2, ActivityHours: 0,
	}, report[1])
	assert.Equal(t, 3.0, tracker.ActivityHours("ghost"))
}
