// Package scheduler decides what a learner should practice next: it ranks
// candidate skills, unlocks the next grade when the current one is mastered
// and picks an unseen question for the top-ranked skill that has one.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/abhisek/dash/internal/learner"
	"github.com/abhisek/dash/internal/mastery"
	"github.com/abhisek/dash/internal/skillgraph"
)

// Question is a practice item tagged with the skills it exercises.
type Question struct {
	ID       string
	Prompt   string
	SkillIDs []string
}

// QuestionFinder looks up questions. FindUnseen returns a question tagged
// with skillID whose id is not in excluded, or nil when there is none.
type QuestionFinder interface {
	FindUnseen(ctx context.Context, skillID string, excluded []string) (*Question, error)
}

// Candidate is a skill eligible for practice with its current effective strength.
type Candidate struct {
	Skill    skillgraph.Skill
	Strength float64
}

// GradeUnlock records one grade advance.
type GradeUnlock struct {
	From     skillgraph.Grade
	To       skillgraph.Grade
	Unlocked []string
}

// Outcome is the result of Next. Question is nil when no candidate has an
// unseen question; Unlocks is non-empty when the learner's grade advanced,
// in which case the state was mutated and must be saved.
type Outcome struct {
	Question *Question
	Skill    skillgraph.Skill
	Strength float64
	Unlocks  []GradeUnlock
}

// Exhausted reports whether no question could be selected.
func (o *Outcome) Exhausted() bool {
	return o.Question == nil
}

// Scheduler ranks and unlocks skills over one catalog.
type Scheduler struct {
	catalog *skillgraph.Catalog
	model   *mastery.Model
	cfg     Config
}

// New creates a scheduler.
func New(catalog *skillgraph.Catalog, model *mastery.Model, cfg Config) *Scheduler {
	return &Scheduler{catalog: catalog, model: model, cfg: cfg}
}

// Config returns the scheduler's thresholds.
func (s *Scheduler) Config() Config {
	return s.cfg
}

// Strength returns the effective strength of skillID for st at now. A skill
// with no state entry reports what the cold-start rule would assign.
func (s *Scheduler) Strength(st *learner.State, skillID string, now time.Time) float64 {
	sk, ok := s.catalog.Get(skillID)
	if !ok {
		return mastery.Locked
	}
	return s.strength(st, sk, now)
}

func (s *Scheduler) strength(st *learner.State, sk skillgraph.Skill, now time.Time) float64 {
	ss, ok := st.Skill(sk.ID)
	if !ok {
		return s.initialStrength(sk.Grade, st.Grade)
	}
	return s.model.Effective(*ss, sk.ForgettingRate, now)
}

// Candidates returns the skills eligible for practice, weakest first and,
// among equals, highest grade first. A skill is eligible when it is
// unlocked, below the practice threshold and every prerequisite is at or
// above the practice threshold.
func (s *Scheduler) Candidates(st *learner.State, now time.Time) []Candidate {
	var out []Candidate
	s.catalog.Each(func(sk skillgraph.Skill) {
		strength := s.strength(st, sk, now)
		if strength < 0 || strength >= s.cfg.PracticeThreshold {
			return
		}
		for _, pre := range s.catalog.Prerequisites(sk.ID) {
			if s.strength(st, pre, now) < s.cfg.PracticeThreshold {
				return
			}
		}
		out = append(out, Candidate{Skill: sk, Strength: strength})
	})

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Strength != b.Strength {
			return a.Strength < b.Strength
		}
		if a.Skill.Grade != b.Skill.Grade {
			return a.Skill.Grade > b.Skill.Grade
		}
		return a.Skill.ID < b.Skill.ID
	})
	return out
}

// GradeMastered reports whether every skill at the learner's current grade
// is at or above the mastery threshold. A grade with no skills is mastered.
func (s *Scheduler) GradeMastered(st *learner.State, now time.Time) bool {
	for _, sk := range s.catalog.ByGrade(st.Grade) {
		if s.strength(st, sk, now) < s.cfg.MasteryThreshold {
			return false
		}
	}
	return true
}

// TryUnlock advances the learner one grade when there is nothing left to
// practice and the current grade is mastered. Skills of the new grade that
// are locked become ready at strength zero. It returns nil when nothing
// changed. The state is mutated in place.
func (s *Scheduler) TryUnlock(st *learner.State, now time.Time) *GradeUnlock {
	if len(s.Candidates(st, now)) > 0 {
		return nil
	}
	return s.unlock(st, now)
}

func (s *Scheduler) unlock(st *learner.State, now time.Time) *GradeUnlock {
	if st.Grade >= skillgraph.Grade12 {
		return nil
	}
	if !s.GradeMastered(st, now) {
		return nil
	}

	next := st.Grade + 1
	u := &GradeUnlock{From: st.Grade, To: next}
	for _, sk := range s.catalog.ByGrade(next) {
		ss, ok := st.Skill(sk.ID)
		if !ok {
			ss = &mastery.SkillState{MemoryStrength: mastery.Locked}
			st.Skills[sk.ID] = ss
		}
		if !ss.IsLocked() {
			continue
		}
		ss.MemoryStrength = mastery.Unpracticed
		ss.LastPracticeTime = nil
		u.Unlocked = append(u.Unlocked, sk.ID)
	}
	st.Grade = next
	st.UpdatedAt = now
	return u
}

// Next selects the next question for st. When no candidate exists it keeps
// unlocking grades while the unlock condition holds, then re-ranks. Each
// candidate in rank order is offered to finder until one yields a question
// the learner has not seen. The state may be mutated by unlocks.
func (s *Scheduler) Next(ctx context.Context, st *learner.State, finder QuestionFinder, now time.Time) (*Outcome, error) {
	out := &Outcome{}

	cands := s.Candidates(st, now)
	for len(cands) == 0 {
		u := s.unlock(st, now)
		if u == nil {
			break
		}
		out.Unlocks = append(out.Unlocks, *u)
		cands = s.Candidates(st, now)
	}

	excluded := st.SeenQuestions()
	for _, c := range cands {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		q, err := finder.FindUnseen(ctx, c.Skill.ID, excluded)
		if err != nil {
			return nil, fmt.Errorf("find question for %s: %w", c.Skill.ID, err)
		}
		if q != nil {
			out.Question = q
			out.Skill = c.Skill
			out.Strength = c.Strength
			return out, nil
		}
	}
	return out, nil
}
