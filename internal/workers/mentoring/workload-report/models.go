// internal/workers/mentoring/workload-report/models.go
package workloadreport

import (
	"time"

	"mentor-matching/internal/matching"
)

type Input struct {
	MentorIDs            []string `json:"mentorIds,omitempty"`
	IncludeInactive      bool     `json:"includeInactive,omitempty"`
	IncludeActivityHours bool     `json:"includeActivityHours,omitempty"`
}

type Output struct {
	Workload            []matching.MentorWorkload `json:"workload"`
	Mentors             int                       `json:"mentors"`
	EligibleMentors     int                       `json:"eligibleMentors"`
	TotalAvailableSlots int                       `json:"totalAvailableSlots"`
	GeneratedAt         time.Time                 `json:"generatedAt"`
}
