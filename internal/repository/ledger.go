package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"mentor-matching/internal/common/database"
	"mentor-matching/internal/matching"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ErrCapacityExceeded is matched by every CapacityError.
var ErrCapacityExceeded = errors.New("mentor capacity exceeded")

// CapacityError reports the first mentor that cannot take the requested fellows.
type CapacityError struct {
	MentorID  string
	Requested int
	Available int
	Inactive  bool
}

func (e *CapacityError) Error() string {
	if e.Inactive {
		return fmt.Sprintf("mentor %s is inactive", e.MentorID)
	}
	return fmt.Sprintf("mentor %s: %d requested, %d available", e.MentorID, e.Requested, e.Available)
}

func (e *CapacityError) Is(target error) bool {
	return target == ErrCapacityExceeded
}

// AssignmentRecord is one committed fellow-mentor decision.
type AssignmentRecord struct {
	FellowID  string  `json:"fellowId"`
	MentorID  string  `json:"mentorId"`
	Score     float64 `json:"score"`
	IsPrimary bool    `json:"isPrimary"`
}

// CommitResult summarizes a successful ledger commit.
type CommitResult struct {
	RunID       string                    `json:"runId"`
	Inserted    int                       `json:"inserted"`
	Assignments []string                  `json:"assignmentIds"`
	Workload    []matching.MentorWorkload `json:"workload"`
}

// LedgerStore owns the mentor_workload table. Matching runs read it; only
// Commit writes it.
type LedgerStore struct {
	db    *sql.DB
	newID func() string
}

func NewLedgerStore(db *sql.DB) *LedgerStore {
	return &LedgerStore{db: db, newID: uuid.NewString}
}

// Read returns ledger entries for the given mentors, or all entries when ids is empty.
func (s *LedgerStore) Read(ctx context.Context, ids []string) (matching.CapacityLedger, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if len(ids) == 0 {
		rows, err = s.db.QueryContext(ctx, `SELECT mentor_id, max_capacity, current_load, active FROM mentor_workload`)
	} else {
		rows, err = s.db.QueryContext(ctx,
			`SELECT mentor_id, max_capacity, current_load, active FROM mentor_workload WHERE mentor_id = ANY($1)`,
			pq.Array(ids))
	}
	if err != nil {
		return nil, fmt.Errorf("query ledger: %w", err)
	}
	defer rows.Close()

	ledger := make(matching.CapacityLedger)
	for rows.Next() {
		var (
			id string
			c  matching.Capacity
		)
		if err := rows.Scan(&id, &c.MaxCapacity, &c.CurrentLoad, &c.Active); err != nil {
			return nil, fmt.Errorf("scan ledger: %w", err)
		}
		ledger[id] = c
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger: %w", err)
	}
	return ledger, nil
}

// Commit records the assignments of one run and increments mentor load in a
// single transaction. Ledger rows are locked in mentor ID order, and the whole
// commit is rejected when any mentor would exceed capacity.
func (s *LedgerStore) Commit(ctx context.Context, runID string, records []AssignmentRecord) (*CommitResult, error) {
	if len(records) == 0 {
		return &CommitResult{RunID: runID, Assignments: []string{}, Workload: []matching.MentorWorkload{}}, nil
	}

	requested := make(map[string]int)
	for _, r := range records {
		requested[r.MentorID]++
	}
	ids := make([]string, 0, len(requested))
	for id := range requested {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	result := &CommitResult{RunID: runID}
	err := database.WithTx(ctx, s.db, nil, func(tx *sql.Tx) error {
		// Seed ledger rows from the mentor directory on first assignment.
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO mentor_workload (mentor_id, max_capacity, current_load, active)
			SELECT id, max_capacity, 0, active FROM mentors WHERE id = ANY($1)
			ON CONFLICT (mentor_id) DO NOTHING`, pq.Array(ids)); err != nil {
			return fmt.Errorf("seed ledger: %w", err)
		}

		// A mentor deactivated in the directory stays inactive even though
		// the ledger row was seeded while they were active.
		rows, err := tx.QueryContext(ctx, `
			SELECT w.mentor_id, w.max_capacity, w.current_load, w.active AND m.active
			FROM mentor_workload w
			JOIN mentors m ON m.id = w.mentor_id
			WHERE w.mentor_id = ANY($1)
			ORDER BY w.mentor_id
			FOR UPDATE OF w`, pq.Array(ids))
		if err != nil {
			return fmt.Errorf("lock ledger: %w", err)
		}
		current := make(map[string]matching.Capacity, len(ids))
		for rows.Next() {
			var (
				id string
				c  matching.Capacity
			)
			if err := rows.Scan(&id, &c.MaxCapacity, &c.CurrentLoad, &c.Active); err != nil {
				rows.Close()
				return fmt.Errorf("scan ledger: %w", err)
			}
			current[id] = c
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate ledger: %w", err)
		}

		var missing []string
		for _, id := range ids {
			c, ok := current[id]
			if !ok {
				missing = append(missing, id)
				continue
			}
			if !c.Active {
				return &CapacityError{MentorID: id, Requested: requested[id], Inactive: true}
			}
			if available := c.MaxCapacity - c.CurrentLoad; requested[id] > available {
				return &CapacityError{MentorID: id, Requested: requested[id], Available: max(available, 0)}
			}
		}
		if len(missing) > 0 {
			return &MissingProfilesError{Kind: "mentors", IDs: missing}
		}

		for _, r := range records {
			id := s.newID()
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO mentor_assignments (id, run_id, fellow_id, mentor_id, score, is_primary)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				id, runID, r.FellowID, r.MentorID, r.Score, r.IsPrimary); err != nil {
				return fmt.Errorf("insert assignment %s->%s: %w", r.FellowID, r.MentorID, err)
			}
			result.Assignments = append(result.Assignments, id)
		}

		for _, id := range ids {
			if _, err := tx.ExecContext(ctx, `
				UPDATE mentor_workload
				SET current_load = current_load + $2, updated_at = NOW()
				WHERE mentor_id = $1`, id, requested[id]); err != nil {
				return fmt.Errorf("update load for %s: %w", id, err)
			}
			c := current[id]
			c.CurrentLoad += requested[id]
			result.Workload = append(result.Workload, matching.MentorWorkload{
				MentorID:       id,
				Active:         c.Active,
				CurrentLoad:    c.CurrentLoad,
				MaxCapacity:    c.MaxCapacity,
				AvailableSlots: c.MaxCapacity - c.CurrentLoad,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.Inserted = len(result.Assignments)
	return result, nil
}

// CommittedAssignments returns the assignment IDs already recorded for runID.
// A non-empty result means the run was committed before.
func (s *LedgerStore) CommittedAssignments(ctx context.Context, runID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM mentor_assignments WHERE run_id = $1 ORDER BY created_at, id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query assignments for run %s: %w", runID, err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan assignment id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
