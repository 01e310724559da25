package matching

import (
	"math"
	"strings"
)

// Component budgets. They sum to 100.
const (
	InterestWeight     = 40.0
	SkillWeight        = 30.0
	AvailabilityWeight = 15.0
	LanguageWeight     = 10.0
	CultureWeight      = 5.0
	CareerWeight       = 5.0
	CareerBaseline     = 2.5
)

// DefaultPrestigeAffiliations is the fixed allow-list for the career component.
var DefaultPrestigeAffiliations = []string{"princeton", "mit", "stanford", "harvard", "bnl"}

// DefaultCultureMarkers are keyword fragments that reference the fellows' country.
var DefaultCultureMarkers = []string{"korea"}

// ScoreBreakdown is the per-component explanation of a compatibility score.
type ScoreBreakdown struct {
	Interest     float64 `json:"interest"`
	Skill        float64 `json:"skill"`
	Availability float64 `json:"availability"`
	Language     float64 `json:"language"`
	Career       float64 `json:"career"`
	Total        float64 `json:"total"`
}

// ScorerConfig tunes the allow-lists used by the scorer. Empty lists fall back to defaults.
type ScorerConfig struct {
	PrestigeAffiliations []string `json:"prestigeAffiliations,omitempty" yaml:"prestigeAffiliations"`
	CultureMarkers       []string `json:"cultureMarkers,omitempty" yaml:"cultureMarkers"`
}

// Scorer computes compatibility between one fellow and one mentor.
type Scorer struct {
	prestige []string
	culture  []string
}

func NewScorer(cfg ScorerConfig) *Scorer {
	prestige := lowerAll(cfg.PrestigeAffiliations)
	if len(prestige) == 0 {
		prestige = DefaultPrestigeAffiliations
	}
	culture := lowerAll(cfg.CultureMarkers)
	if len(culture) == 0 {
		culture = DefaultCultureMarkers
	}
	return &Scorer{prestige: prestige, culture: culture}
}

// Score returns the breakdown for the pair. Ratios are taken against the mentor's
// label sets so that mentors with large sets are not rewarded by coincidence.
func (s *Scorer) Score(f FellowProfile, m MentorProfile) ScoreBreakdown {
	var b ScoreBreakdown

	mentorAll := m.Keywords.Union(m.Expertise)
	if mentorAll.Len() > 0 {
		b.Interest = InterestWeight * float64(f.Interests.Intersect(mentorAll).Len()) / float64(mentorAll.Len())
	}

	if m.Expertise.Len() > 0 {
		b.Skill = SkillWeight * float64(f.Skills.Intersect(m.Expertise).Len()) / float64(m.Expertise.Len())
	}

	if m.CurrentLoad < m.MaxCapacity {
		b.Availability = AvailabilityWeight
	}

	switch {
	case m.SpeaksLocalLanguage:
		b.Language = LanguageWeight
	case m.Keywords.AnyContains(s.culture):
		b.Language = CultureWeight
	}

	b.Career = CareerBaseline
	if s.prestigious(m.Affiliation) {
		b.Career = CareerWeight
	}

	b.Total = b.Interest + b.Skill + b.Availability + b.Language + b.Career
	b.Total = math.Min(math.Max(b.Total, 0), 100)
	return b
}

func (s *Scorer) prestigious(affiliation string) bool {
	aff := strings.ToLower(affiliation)
	for _, p := range s.prestige {
		if strings.Contains(aff, p) {
			return true
		}
	}
	return false
}

func lowerAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			out = append(out, v)
		}
	}
	return out
}
