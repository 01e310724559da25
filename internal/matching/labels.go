package matching

import (
	"encoding/json"
	"sort"
	"strings"
)

// LabelSet is a sorted, deduplicated set of lower-cased labels.
//
// The zero value is an empty set. NewLabelSet and the decoders produce
// normalized sets; the set operations normalize any operand that is not.
type LabelSet []string

// NewLabelSet normalizes values into a LabelSet. Blank entries are dropped.
func NewLabelSet(values ...string) LabelSet {
	if len(values) == 0 {
		return LabelSet{}
	}

	seen := make(map[string]struct{}, len(values))
	out := make(LabelSet, 0, len(values))
	for _, v := range values {
		label := strings.ToLower(strings.TrimSpace(v))
		if label == "" {
			continue
		}
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		out = append(out, label)
	}
	sort.Strings(out)
	return out
}

// UnmarshalJSON normalizes labels coming from job variables or snapshot files.
func (s *LabelSet) UnmarshalJSON(data []byte) error {
	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = NewLabelSet(raw...)
	return nil
}

// UnmarshalYAML normalizes labels read by gopkg.in/yaml.v3.
func (s *LabelSet) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw []string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	*s = NewLabelSet(raw...)
	return nil
}

// Len counts distinct labels.
func (s LabelSet) Len() int {
	return len(s.normalized())
}

func (s LabelSet) Contains(label string) bool {
	s = s.normalized()
	label = strings.ToLower(strings.TrimSpace(label))
	i := sort.SearchStrings(s, label)
	return i < len(s) && s[i] == label
}

// Union returns the sorted union of both sets.
func (s LabelSet) Union(other LabelSet) LabelSet {
	s, other = s.normalized(), other.normalized()
	out := make(LabelSet, 0, len(s)+len(other))
	i, j := 0, 0
	for i < len(s) && j < len(other) {
		switch {
		case s[i] == other[j]:
			out = append(out, s[i])
			i++
			j++
		case s[i] < other[j]:
			out = append(out, s[i])
			i++
		default:
			out = append(out, other[j])
			j++
		}
	}
	out = append(out, s[i:]...)
	out = append(out, other[j:]...)
	return out
}

// Intersect returns the sorted intersection of both sets.
func (s LabelSet) Intersect(other LabelSet) LabelSet {
	s, other = s.normalized(), other.normalized()
	out := LabelSet{}
	i, j := 0, 0
	for i < len(s) && j < len(other) {
		switch {
		case s[i] == other[j]:
			out = append(out, s[i])
			i++
			j++
		case s[i] < other[j]:
			i++
		default:
			j++
		}
	}
	return out
}

// normalized returns s unchanged when it is already strictly ascending,
// lower-cased and trimmed, and a normalized copy otherwise.
func (s LabelSet) normalized() LabelSet {
	for i, label := range s {
		if label == "" || label != strings.ToLower(strings.TrimSpace(label)) || (i > 0 && s[i-1] >= label) {
			return NewLabelSet(s...)
		}
	}
	return s
}

// AnyContains reports whether some label contains one of the markers as a substring.
func (s LabelSet) AnyContains(markers []string) bool {
	for _, label := range s.normalized() {
		for _, m := range markers {
			if m != "" && strings.Contains(label, m) {
				return true
			}
		}
	}
	return false
}

func (s LabelSet) head(n int) []string {
	if len(s) <= n {
		return append([]string{}, s...)
	}
	return append([]string{}, s[:n]...)
}
