package skillgraph

import (
	"fmt"
	"strings"
)

// Crumb depths used for grouping related skills.
const (
	topicDepth   = 2 // topic → concept
	conceptDepth = 3 // topic → concept → subconcept
)

// Path is the structured form of a skill id such as "math_8_1.2.3.2":
// subject "math", grade 8, breadcrumb ["1","2","3","2"].
type Path struct {
	Subject string
	Grade   Grade
	Crumbs  []string
}

// ParseID splits a skill id into subject, grade and breadcrumb. The subject
// may itself contain underscores; grade and breadcrumb are the last two
// underscore-separated fields.
func ParseID(id string) (Path, error) {
	last := strings.LastIndex(id, "_")
	if last <= 0 || last == len(id)-1 {
		return Path{}, fmt.Errorf("skill id %q: want <subject>_<grade>_<breadcrumb>", id)
	}
	crumbPart := id[last+1:]
	rest := id[:last]

	mid := strings.LastIndex(rest, "_")
	if mid <= 0 || mid == len(rest)-1 {
		return Path{}, fmt.Errorf("skill id %q: want <subject>_<grade>_<breadcrumb>", id)
	}
	grade, err := ParseGrade(rest[mid+1:])
	if err != nil {
		return Path{}, fmt.Errorf("skill id %q: %w", id, err)
	}

	crumbs := strings.Split(crumbPart, ".")
	for _, c := range crumbs {
		if c == "" {
			return Path{}, fmt.Errorf("skill id %q: empty breadcrumb segment", id)
		}
	}

	return Path{
		Subject: rest[:mid],
		Grade:   grade,
		Crumbs:  crumbs,
	}, nil
}

// String renders the breadcrumb, e.g. "1.2.3.2".
func (p Path) String() string {
	return strings.Join(p.Crumbs, ".")
}

// Depth returns the number of breadcrumb segments.
func (p Path) Depth() int {
	return len(p.Crumbs)
}

// Topic returns the first two segments, or "" when the path is shallower.
func (p Path) Topic() string {
	return p.prefix(topicDepth)
}

// Concept returns the first three segments, or "" when the path is shallower.
func (p Path) Concept() string {
	return p.prefix(conceptDepth)
}

func (p Path) prefix(n int) string {
	if len(p.Crumbs) < n {
		return ""
	}
	return strings.Join(p.Crumbs[:n], ".")
}

// groupKey identifies a set of skills sharing subject, grade and a breadcrumb prefix.
// An empty prefix denotes the whole grade.
type groupKey struct {
	subject string
	grade   Grade
	prefix  string
}
