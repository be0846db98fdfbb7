package skillgraph

import (
	"fmt"
	"strconv"
	"strings"
)

// Grade is an ordinal grade level, Kindergarten (0) through Grade 12.
type Grade int

const (
	GradeK  Grade = 0
	Grade12 Grade = 12
)

// String returns "K" for kindergarten and the number otherwise.
func (g Grade) String() string {
	if g == GradeK {
		return "K"
	}
	return strconv.Itoa(int(g))
}

// Valid reports whether g lies in K..12.
func (g Grade) Valid() bool {
	return g >= GradeK && g <= Grade12
}

// ParseGrade parses "K", "k" or a number in 0..12.
func ParseGrade(s string) (Grade, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "K") {
		return GradeK, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid grade %q", s)
	}
	g := Grade(n)
	if !g.Valid() {
		return 0, fmt.Errorf("grade %d out of range K..12", n)
	}
	return g, nil
}

// Skill is an immutable catalog entry.
type Skill struct {
	ID             string
	Name           string
	Grade          Grade
	Prerequisites  []string
	ForgettingRate float64 // λ, per mastery.Config.DecayUnit
	Difficulty     float64 // informational, [0,1]

	// Path is parsed from ID when the catalog is built.
	Path Path
}

// Subject returns the subject encoded in the skill's path.
func (s Skill) Subject() string {
	return s.Path.Subject
}
