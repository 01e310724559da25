// internal/workers/mentoring/commit-assignments/models.go
package commitassignments

import (
	"mentor-matching/internal/matching"
	"mentor-matching/internal/repository"
)

type Input struct {
	RunID       string                     `json:"runId"`
	Assignments map[string]AssignmentInput `json:"assignments"`
}

// AssignmentInput accepts the match objects produced by mentor-assign-primary;
// fields other than these are ignored.
type AssignmentInput struct {
	FellowID  string  `json:"fellowId"`
	MentorID  string  `json:"mentorId"`
	Score     float64 `json:"score"`
	IsPrimary bool    `json:"isPrimary"`
}

type Output struct {
	RunID            string                    `json:"runId"`
	Inserted         int                       `json:"inserted"`
	AssignmentIDs    []string                  `json:"assignmentIds"`
	Workload         []matching.MentorWorkload `json:"workload"`
	AlreadyCommitted bool                      `json:"alreadyCommitted"`
	EventPublished   bool                      `json:"eventPublished"`
}

// CommittedEvent is the payload of mentor.assignments.committed.
type CommittedEvent struct {
	Assignments []repository.AssignmentRecord `json:"assignments"`
	Workload    []matching.MentorWorkload     `json:"workload"`
}
