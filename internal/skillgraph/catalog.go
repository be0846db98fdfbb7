// Package skillgraph holds the read-only skill catalog: skill metadata,
// prerequisite edges and the breadcrumb groupings used for cascades.
package skillgraph

import (
	"slices"
	"sort"

	"github.com/abhisek/dash/internal/errs"
)

// Catalog is an immutable, indexed view of all skills. It is safe for
// concurrent reads; replace it wholesale through a Ref, never mutate it.
type Catalog struct {
	skills  []Skill
	byID    map[string]int
	groups  map[groupKey][]int
	byGrade map[Grade][]int
	grades  []Grade
}

// New validates skills and builds a Catalog with precomputed indices.
// Skills are ordered by grade, then id.
func New(skills []Skill) (*Catalog, error) {
	owned := make([]Skill, len(skills))
	for i, s := range skills {
		s.Prerequisites = slices.Clone(s.Prerequisites)
		owned[i] = s
	}

	if err := validateSkills(owned); err != nil {
		return nil, err
	}

	sort.SliceStable(owned, func(i, j int) bool {
		if owned[i].Grade != owned[j].Grade {
			return owned[i].Grade < owned[j].Grade
		}
		return owned[i].ID < owned[j].ID
	})

	c := &Catalog{
		skills:  owned,
		byID:    make(map[string]int, len(owned)),
		groups:  make(map[groupKey][]int),
		byGrade: make(map[Grade][]int),
	}

	for i := range c.skills {
		s := &c.skills[i]
		c.byID[s.ID] = i

		if _, seen := c.byGrade[s.Grade]; !seen {
			c.grades = append(c.grades, s.Grade)
		}
		c.byGrade[s.Grade] = append(c.byGrade[s.Grade], i)

		gradeKey := groupKey{subject: s.Subject(), grade: s.Grade}
		c.groups[gradeKey] = append(c.groups[gradeKey], i)
		if topic := s.Path.Topic(); topic != "" {
			k := groupKey{subject: s.Subject(), grade: s.Grade, prefix: topic}
			c.groups[k] = append(c.groups[k], i)
		}
		if concept := s.Path.Concept(); concept != "" {
			// Concept prefixes have three segments, topic prefixes two, so
			// the keys never collide.
			k := groupKey{subject: s.Subject(), grade: s.Grade, prefix: concept}
			c.groups[k] = append(c.groups[k], i)
		}
	}

	return c, nil
}

// MustNew is like New but panics on an invalid skill set. Intended for
// tests and fixed in-code catalogs.
func MustNew(skills []Skill) *Catalog {
	c, err := New(skills)
	if err != nil {
		panic(err)
	}
	return c
}

// Len returns the number of skills.
func (c *Catalog) Len() int {
	return len(c.skills)
}

// Get returns a skill by ID.
func (c *Catalog) Get(id string) (Skill, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Skill{}, false
	}
	return c.skills[i], true
}

// Skill returns a skill by ID, or a NotFoundError.
func (c *Catalog) Skill(id string) (Skill, error) {
	s, ok := c.Get(id)
	if !ok {
		return Skill{}, errs.NotFound("skill", id)
	}
	return s, nil
}

// Has reports whether id is in the catalog.
func (c *Catalog) Has(id string) bool {
	_, ok := c.byID[id]
	return ok
}

// All returns every skill, ordered by grade then id.
func (c *Catalog) All() []Skill {
	return slices.Clone(c.skills)
}

// Each calls fn for every skill in catalog order without copying the slice.
func (c *Catalog) Each(fn func(Skill)) {
	for i := range c.skills {
		fn(c.skills[i])
	}
}

// Grades returns the grades that have at least one skill, ascending.
func (c *Catalog) Grades() []Grade {
	return slices.Clone(c.grades)
}

// ByGrade returns all skills at grade g across subjects.
func (c *Catalog) ByGrade(g Grade) []Skill {
	return c.collect(c.byGrade[g])
}

// GradeGroup returns all skills of subject at grade g.
func (c *Catalog) GradeGroup(subject string, g Grade) []Skill {
	return c.collect(c.groups[groupKey{subject: subject, grade: g}])
}

// PrefixGroup returns the skills of subject at grade g whose breadcrumb
// starts with prefix. Only topic (two-segment) and concept (three-segment)
// prefixes are indexed; an empty prefix yields nothing.
func (c *Catalog) PrefixGroup(subject string, g Grade, prefix string) []Skill {
	if prefix == "" {
		return nil
	}
	return c.collect(c.groups[groupKey{subject: subject, grade: g, prefix: prefix}])
}

// Prerequisites returns the direct prerequisite skills for a given skill ID.
func (c *Catalog) Prerequisites(id string) []Skill {
	s, ok := c.Get(id)
	if !ok {
		return nil
	}
	result := make([]Skill, 0, len(s.Prerequisites))
	for _, prereqID := range s.Prerequisites {
		if p, ok := c.Get(prereqID); ok {
			result = append(result, p)
		}
	}
	return result
}

func (c *Catalog) collect(idx []int) []Skill {
	if len(idx) == 0 {
		return nil
	}
	out := make([]Skill, len(idx))
	for i, j := range idx {
		out[i] = c.skills[j]
	}
	return out
}
