package matching

import "sort"

// Capacity is one capacity ledger entry.
type Capacity struct {
	MaxCapacity int  `json:"maxCapacity" yaml:"maxCapacity"`
	CurrentLoad int  `json:"currentLoad" yaml:"currentLoad"`
	Active      bool `json:"active" yaml:"active"`
}

// CapacityLedger is the externally owned capacity state keyed by mentor ID.
// When an entry exists it overrides the capacity fields of the mentor snapshot.
type CapacityLedger map[string]Capacity

// MentorWorkload is one row of the workload report.
type MentorWorkload struct {
	MentorID       string  `json:"mentorId"`
	Name           string  `json:"name,omitempty"`
	Active         bool    `json:"active"`
	CurrentLoad    int     `json:"currentLoad"`
	MaxCapacity    int     `json:"maxCapacity"`
	AvailableSlots int     `json:"availableSlots"`
	ActivityHours  float64 `json:"activityHours"`
}

// WorkloadTracker is a read-only capacity view over a mentor pool.
type WorkloadTracker struct {
	mentors map[string]MentorProfile
	order   []string
	hours   map[string]float64
}

// NewWorkloadTracker normalizes the mentors, applies ledger overrides and sums
// activity hours. Later duplicates of a mentor ID are ignored.
func NewWorkloadTracker(mentors []MentorProfile, ledger CapacityLedger, activities []MentorActivity) *WorkloadTracker {
	t := &WorkloadTracker{
		mentors: make(map[string]MentorProfile, len(mentors)),
		order:   make([]string, 0, len(mentors)),
		hours:   make(map[string]float64),
	}

	for _, m := range mentors {
		if m.ID == "" {
			continue
		}
		if _, dup := t.mentors[m.ID]; dup {
			continue
		}
		if c, ok := ledger[m.ID]; ok {
			m.MaxCapacity = c.MaxCapacity
			m.CurrentLoad = c.CurrentLoad
			// Either side can deactivate a mentor.
			m.Active = m.Active && c.Active
		}
		t.mentors[m.ID] = NormalizeMentor(m)
		t.order = append(t.order, m.ID)
	}

	for _, a := range activities {
		if a.DurationHours > 0 {
			t.hours[a.MentorID] += a.DurationHours
		}
	}

	return t
}

// Mentor returns the tracked snapshot of a mentor.
func (t *WorkloadTracker) Mentor(id string) (MentorProfile, bool) {
	m, ok := t.mentors[id]
	return m, ok
}

// AvailableSlots returns 0 for unknown mentors.
func (t *WorkloadTracker) AvailableSlots(id string) int {
	m, ok := t.mentors[id]
	if !ok {
		return 0
	}
	return m.AvailableSlots()
}

func (t *WorkloadTracker) ActivityHours(id string) float64 {
	return t.hours[id]
}

// IsEligible reports whether the mentor is active and has a free slot.
func (t *WorkloadTracker) IsEligible(id string) bool {
	m, ok := t.mentors[id]
	return ok && m.Active && m.CurrentLoad < m.MaxCapacity
}

// Eligible returns the eligible mentors sorted by ID.
func (t *WorkloadTracker) Eligible() []MentorProfile {
	out := make([]MentorProfile, 0, len(t.order))
	for _, id := range t.order {
		if t.IsEligible(id) {
			out = append(out, t.mentors[id])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Report returns one row per tracked mentor sorted by ID.
func (t *WorkloadTracker) Report() []MentorWorkload {
	out := make([]MentorWorkload, 0, len(t.order))
	for _, id := range t.order {
		m := t.mentors[id]
		out = append(out, MentorWorkload{
			MentorID:       id,
			Name:           m.Name,
			Active:         m.Active,
			CurrentLoad:    m.CurrentLoad,
			MaxCapacity:    m.MaxCapacity,
			AvailableSlots: m.AvailableSlots(),
			ActivityHours:  t.hours[id],
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MentorID < out[j].MentorID })
	return out
}
