// internal/workers/mentoring/rank-candidates/models.go
package rankcandidates

import "mentor-matching/internal/matching"

type Input struct {
	FellowID           string                  `json:"fellowId,omitempty"`
	Fellow             *matching.FellowProfile `json:"fellow,omitempty"`
	K                  int                     `json:"k,omitempty"`
	MentorIDs          []string                `json:"mentorIds,omitempty"`
	UseSearchPrefilter bool                    `json:"useSearchPrefilter,omitempty"`
}

type Output struct {
	RunID             string            `json:"runId"`
	FellowID          string            `json:"fellowId"`
	Mode              matching.Mode     `json:"mode"`
	Shortlist         []matching.Match  `json:"shortlist"`
	NoEligibleMentors bool              `json:"noEligibleMentors"`
	Stats             matching.RunStats `json:"stats"`
	Digest            string            `json:"digest"`
}
