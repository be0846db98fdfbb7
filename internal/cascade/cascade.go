// Package cascade resolves which skills are related to an answered skill
// through its breadcrumb, and at what rate an answer propagates to them.
package cascade

import (
	"fmt"

	"github.com/abhisek/dash/internal/skillgraph"
)

// Category names the breadcrumb rule that related a skill to the answered one.
type Category string

const (
	SameConcept       Category = "same-concept"
	SameTopic         Category = "same-topic"
	SameGrade         Category = "same-grade"
	LowerGradeConcept Category = "lower-grade-concept"
)

// Rates holds the propagation strength per category.
type Rates struct {
	SameConcept       float64 `yaml:"same_concept"`
	SameTopic         float64 `yaml:"same_topic"`
	SameGrade         float64 `yaml:"same_grade"`
	LowerGradeConcept float64 `yaml:"lower_grade_concept"`
}

// DefaultRates returns the reference rates. The lower-grade rate equals the
// same-concept rate so that struggling at grade g pulls the analogous g-1
// skill down fast enough to trigger remediation.
func DefaultRates() Rates {
	return Rates{
		SameConcept:       0.03,
		SameTopic:         0.02,
		SameGrade:         0.01,
		LowerGradeConcept: 0.03,
	}
}

// Validate checks every rate lies in [0,1].
func (r Rates) Validate() error {
	for name, v := range map[string]float64{
		"same_concept":        r.SameConcept,
		"same_topic":          r.SameTopic,
		"same_grade":          r.SameGrade,
		"lower_grade_concept": r.LowerGradeConcept,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("cascade rate %s must be in [0, 1], got %g", name, v)
		}
	}
	return nil
}

// Rate returns the rate configured for a category.
func (r Rates) Rate(c Category) float64 {
	switch c {
	case SameConcept:
		return r.SameConcept
	case SameTopic:
		return r.SameTopic
	case SameGrade:
		return r.SameGrade
	case LowerGradeConcept:
		return r.LowerGradeConcept
	default:
		return 0
	}
}

// Target is one related skill and the rate it receives.
type Target struct {
	SkillID  string
	Category Category
	Rate     float64
}

// Resolver computes cascade targets against a catalog.
type Resolver struct {
	catalog *skillgraph.Catalog
	rates   Rates
}

// NewResolver returns a Resolver over catalog.
func NewResolver(catalog *skillgraph.Catalog, rates Rates) *Resolver {
	return &Resolver{catalog: catalog, rates: rates}
}

// Resolve returns every skill related to skillID, each exactly once within
// the current grade (most specific category wins) plus the lower-grade
// same-concept skills. The answered skill itself is never included. All
// categories are confined to the answered skill's subject. Locked skills
// are not filtered here; callers skip them when applying updates.
func (r *Resolver) Resolve(skillID string) ([]Target, error) {
	skill, err := r.catalog.Skill(skillID)
	if err != nil {
		return nil, err
	}

	subject := skill.Subject()
	grade := skill.Grade
	concept := skill.Path.Concept()
	topic := skill.Path.Topic()

	seen := map[string]bool{skillID: true}
	var targets []Target

	add := func(skills []skillgraph.Skill, cat Category) {
		for _, s := range skills {
			if seen[s.ID] {
				continue
			}
			seen[s.ID] = true
			targets = append(targets, Target{SkillID: s.ID, Category: cat, Rate: r.rates.Rate(cat)})
		}
	}

	add(r.catalog.PrefixGroup(subject, grade, concept), SameConcept)
	add(r.catalog.PrefixGroup(subject, grade, topic), SameTopic)
	add(r.catalog.GradeGroup(subject, grade), SameGrade)

	if grade > skillgraph.GradeK {
		// Lower-grade skills live at a different grade and so can never
		// collide with the current-grade categories above.
		add(r.catalog.PrefixGroup(subject, grade-1, concept), LowerGradeConcept)
	}

	return targets, nil
}
