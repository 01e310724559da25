// Package repository loads matching snapshots from Postgres, Redis and
// Elasticsearch and commits assignments to the capacity ledger.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"mentor-matching/internal/matching"

	"github.com/lib/pq"
)

// ProfileSource reads immutable fellow and mentor snapshots.
type ProfileSource interface {
	FellowsByID(ctx context.Context, ids []string) ([]matching.FellowProfile, error)
	FellowsByCohort(ctx context.Context, year int) ([]matching.FellowProfile, error)
	Mentors(ctx context.Context, ids []string) ([]matching.MentorProfile, error)
	Activities(ctx context.Context, mentorIDs []string) ([]matching.MentorActivity, error)
}

// MissingProfilesError lists requested IDs that have no row.
type MissingProfilesError struct {
	Kind string
	IDs  []string
}

func (e *MissingProfilesError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, strings.Join(e.IDs, ", "))
}

// ProfileStore is the Postgres-backed ProfileSource.
type ProfileStore struct {
	db *sql.DB
}

func NewProfileStore(db *sql.DB) *ProfileStore {
	return &ProfileStore{db: db}
}

const (
	fellowColumns = `SELECT id, interests, skills FROM fellows`
	mentorColumns = `SELECT id, name, affiliation, expertise, keywords, max_capacity, active, speaks_local_language FROM mentors`
)

// FellowsByID returns fellows in the order of ids. Unknown IDs are an error.
func (s *ProfileStore) FellowsByID(ctx context.Context, ids []string) ([]matching.FellowProfile, error) {
	if len(ids) == 0 {
		return []matching.FellowProfile{}, nil
	}

	rows, err := s.db.QueryContext(ctx, fellowColumns+` WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("query fellows: %w", err)
	}
	found, err := scanFellows(rows)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]matching.FellowProfile, len(found))
	for _, f := range found {
		byID[f.ID] = f
	}

	out := make([]matching.FellowProfile, 0, len(ids))
	var missing []string
	for _, id := range ids {
		f, ok := byID[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		out = append(out, f)
	}
	if len(missing) > 0 {
		return nil, &MissingProfilesError{Kind: "fellows", IDs: missing}
	}
	return out, nil
}

// FellowsByCohort returns the cohort ordered by fellow ID.
func (s *ProfileStore) FellowsByCohort(ctx context.Context, year int) ([]matching.FellowProfile, error) {
	rows, err := s.db.QueryContext(ctx, fellowColumns+` WHERE cohort_year = $1 ORDER BY id`, year)
	if err != nil {
		return nil, fmt.Errorf("query cohort %d: %w", year, err)
	}
	return scanFellows(rows)
}

func scanFellows(rows *sql.Rows) ([]matching.FellowProfile, error) {
	defer rows.Close()

	out := []matching.FellowProfile{}
	for rows.Next() {
		var (
			f                 matching.FellowProfile
			interests, skills []string
		)
		if err := rows.Scan(&f.ID, pq.Array(&interests), pq.Array(&skills)); err != nil {
			return nil, fmt.Errorf("scan fellow: %w", err)
		}
		f.Interests = matching.NewLabelSet(interests...)
		f.Skills = matching.NewLabelSet(skills...)
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fellows: %w", err)
	}
	return out, nil
}

// Mentors returns the requested mentors, or every mentor when ids is empty,
// ordered by ID. Unknown IDs are skipped.
func (s *ProfileStore) Mentors(ctx context.Context, ids []string) ([]matching.MentorProfile, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if len(ids) == 0 {
		rows, err = s.db.QueryContext(ctx, mentorColumns+` ORDER BY id`)
	} else {
		rows, err = s.db.QueryContext(ctx, mentorColumns+` WHERE id = ANY($1) ORDER BY id`, pq.Array(ids))
	}
	if err != nil {
		return nil, fmt.Errorf("query mentors: %w", err)
	}
	defer rows.Close()

	out := []matching.MentorProfile{}
	for rows.Next() {
		var (
			m                   matching.MentorProfile
			expertise, keywords []string
		)
		if err := rows.Scan(
			&m.ID, &m.Name, &m.Affiliation,
			pq.Array(&expertise), pq.Array(&keywords),
			&m.MaxCapacity, &m.Active, &m.SpeaksLocalLanguage,
		); err != nil {
			return nil, fmt.Errorf("scan mentor: %w", err)
		}
		m.Expertise = matching.NewLabelSet(expertise...)
		m.Keywords = matching.NewLabelSet(keywords...)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mentors: %w", err)
	}
	return out, nil
}

// Activities returns recorded activities for the given mentors.
func (s *ProfileStore) Activities(ctx context.Context, mentorIDs []string) ([]matching.MentorActivity, error) {
	if len(mentorIDs) == 0 {
		return []matching.MentorActivity{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT mentor_id, activity_type, COALESCE(fellow_id, ''), activity_date, duration_hours
		FROM mentor_activities
		WHERE mentor_id = ANY($1)
		ORDER BY mentor_id, activity_date, id`, pq.Array(mentorIDs))
	if err != nil {
		return nil, fmt.Errorf("query activities: %w", err)
	}
	defer rows.Close()

	out := []matching.MentorActivity{}
	for rows.Next() {
		var a matching.MentorActivity
		if err := rows.Scan(&a.MentorID, &a.Type, &a.FellowID, &a.Date, &a.DurationHours); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activities: %w", err)
	}
	return out, nil
}

func mentorIDs(mentors []matching.MentorProfile) []string {
	ids := make([]string, 0, len(mentors))
	for _, m := range mentors {
		ids = append(ids, m.ID)
	}
	sort.Strings(ids)
	return ids
}
