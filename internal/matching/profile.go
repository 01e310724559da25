package matching

import "time"

// DefaultMaxCapacity is used when a mentor record carries no positive capacity.
const DefaultMaxCapacity = 3

// FellowProfile is the read-only view of a fellow used for matching.
type FellowProfile struct {
	ID        string   `json:"id" yaml:"id"`
	Interests LabelSet `json:"interests" yaml:"interests"`
	// Skills merges programming, ML and domain-tool skills.
	Skills LabelSet `json:"skills" yaml:"skills"`
}

// MentorProfile is the read-only view of a mentor used for matching.
type MentorProfile struct {
	ID                  string   `json:"id" yaml:"id"`
	Name                string   `json:"name,omitempty" yaml:"name"`
	Affiliation         string   `json:"affiliation,omitempty" yaml:"affiliation"`
	Expertise           LabelSet `json:"expertise" yaml:"expertise"`
	Keywords            LabelSet `json:"keywords" yaml:"keywords"`
	MaxCapacity         int      `json:"maxCapacity" yaml:"maxCapacity"`
	CurrentLoad         int      `json:"currentLoad" yaml:"currentLoad"`
	Active              bool     `json:"active" yaml:"active"`
	SpeaksLocalLanguage bool     `json:"speaksLocalLanguage" yaml:"speaksLocalLanguage"`
}

// MentorActivity is one externally recorded mentoring activity.
type MentorActivity struct {
	MentorID      string    `json:"mentorId" yaml:"mentorId"`
	Type          string    `json:"type,omitempty" yaml:"type"`
	FellowID      string    `json:"fellowId,omitempty" yaml:"fellowId"`
	Date          time.Time `json:"date,omitempty" yaml:"date"`
	DurationHours float64   `json:"durationHours" yaml:"durationHours"`
}

// NormalizeFellow fills missing sets so the scorer never sees nil.
func NormalizeFellow(f FellowProfile) FellowProfile {
	f.Interests = NewLabelSet(f.Interests...)
	f.Skills = NewLabelSet(f.Skills...)
	return f
}

// NormalizeMentor applies defaults: empty sets, positive capacity, non-negative load.
func NormalizeMentor(m MentorProfile) MentorProfile {
	m.Expertise = NewLabelSet(m.Expertise...)
	m.Keywords = NewLabelSet(m.Keywords...)
	if m.MaxCapacity <= 0 {
		m.MaxCapacity = DefaultMaxCapacity
	}
	if m.CurrentLoad < 0 {
		m.CurrentLoad = 0
	}
	return m
}

// AvailableSlots is max(0, MaxCapacity - CurrentLoad).
func (m MentorProfile) AvailableSlots() int {
	if slots := m.MaxCapacity - m.CurrentLoad; slots > 0 {
		return slots
	}
	return 0
}
