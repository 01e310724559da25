// internal/workers/mentoring/assign-primary/models.go
package assignprimary

import "mentor-matching/internal/matching"

type Input struct {
	CohortYear              int      `json:"cohortYear,omitempty"`
	FellowIDs               []string `json:"fellowIds,omitempty"`
	MentorIDs               []string `json:"mentorIds,omitempty"`
	FailOnNoEligibleMentors bool     `json:"failOnNoEligibleMentors,omitempty"`
}

type Output struct {
	RunID             string                    `json:"runId"`
	Mode              matching.Mode             `json:"mode"`
	Assignments       map[string]matching.Match `json:"assignments"`
	Unmatched         []string                  `json:"unmatched"`
	NoEligibleMentors bool                      `json:"noEligibleMentors"`
	TotalScore        float64                   `json:"totalScore"`
	Stats             matching.RunStats         `json:"stats"`
	Digest            string                    `json:"digest"`
}
