package repository

import (
	"context"
	"errors"

	apperrors "mentor-matching/internal/common/errors"
	"mentor-matching/internal/matching"
)

// SnapshotQuery selects the inputs of one matching run.
type SnapshotQuery struct {
	FellowIDs      []string
	CohortYear     int
	MentorIDs      []string
	WithActivities bool
}

// Snapshot is a consistent read of profiles and capacity for one run.
type Snapshot struct {
	Fellows    []matching.FellowProfile
	Mentors    []matching.MentorProfile
	Ledger     matching.CapacityLedger
	Activities []matching.MentorActivity
}

// LedgerReader is the read side of the capacity ledger.
type LedgerReader interface {
	Read(ctx context.Context, ids []string) (matching.CapacityLedger, error)
}

// SnapshotLoader assembles snapshots. Profiles may come from cache; the
// ledger is always read fresh.
type SnapshotLoader struct {
	profiles ProfileSource
	ledger   LedgerReader
}

func NewSnapshotLoader(profiles ProfileSource, ledger LedgerReader) *SnapshotLoader {
	return &SnapshotLoader{profiles: profiles, ledger: ledger}
}

// Load returns StandardErrors so workers can hand them to the error handler.
func (l *SnapshotLoader) Load(ctx context.Context, q SnapshotQuery) (*Snapshot, error) {
	snap := &Snapshot{Fellows: []matching.FellowProfile{}, Activities: []matching.MentorActivity{}}

	var err error
	switch {
	case len(q.FellowIDs) > 0:
		snap.Fellows, err = l.profiles.FellowsByID(ctx, q.FellowIDs)
	case q.CohortYear > 0:
		snap.Fellows, err = l.profiles.FellowsByCohort(ctx, q.CohortYear)
	}
	if err != nil {
		return nil, profileError("fellow", err)
	}

	snap.Mentors, err = l.profiles.Mentors(ctx, q.MentorIDs)
	if err != nil {
		return nil, profileError("mentor", err)
	}

	ids := mentorIDs(snap.Mentors)
	if len(ids) == 0 {
		snap.Ledger = matching.CapacityLedger{}
	} else if snap.Ledger, err = l.ledger.Read(ctx, ids); err != nil {
		return nil, apperrors.NewLedgerReadFailedError(err)
	}

	if q.WithActivities && len(ids) > 0 {
		snap.Activities, err = l.profiles.Activities(ctx, ids)
		if err != nil {
			return nil, profileError("activity", err)
		}
	}

	return snap, nil
}

// Request turns the snapshot into a matcher request.
func (s *Snapshot) Request(mode matching.Mode, k int) matching.Request {
	return matching.Request{
		Fellows:    s.Fellows,
		Mentors:    s.Mentors,
		Ledger:     s.Ledger,
		Activities: s.Activities,
		Mode:       mode,
		K:          k,
	}
}

func profileError(kind string, err error) error {
	var missing *MissingProfilesError
	if errors.As(err, &missing) {
		return apperrors.NewInputValidationError(missing.Error())
	}
	return apperrors.NewProfileLoadFailedError(kind, err)
}
