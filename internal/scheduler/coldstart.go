package scheduler

import (
	"time"

	"github.com/abhisek/dash/internal/learner"
	"github.com/abhisek/dash/internal/mastery"
	"github.com/abhisek/dash/internal/skillgraph"
)

// ColdStart creates a learner state covering every catalog skill: below
// grade at the cold-start prior, at grade ready to learn, above grade locked.
func (s *Scheduler) ColdStart(studentID string, grade skillgraph.Grade, now time.Time) *learner.State {
	st := learner.New(studentID, grade, now)
	st.Skills = make(map[string]*mastery.SkillState, s.catalog.Len())
	s.catalog.Each(func(sk skillgraph.Skill) {
		st.Skills[sk.ID] = &mastery.SkillState{MemoryStrength: s.initialStrength(sk.Grade, grade)}
	})
	return st
}

// Reconcile adds states for catalog skills the learner has no entry for
// (skills added by a catalog reload), using the cold-start rule against the
// learner's current grade. It returns the ids added.
func (s *Scheduler) Reconcile(st *learner.State) []string {
	var added []string
	s.catalog.Each(func(sk skillgraph.Skill) {
		if _, ok := st.Skills[sk.ID]; ok {
			return
		}
		st.Skills[sk.ID] = &mastery.SkillState{MemoryStrength: s.initialStrength(sk.Grade, st.Grade)}
		added = append(added, sk.ID)
	})
	return added
}

func (s *Scheduler) initialStrength(skillGrade, learnerGrade skillgraph.Grade) float64 {
	switch {
	case skillGrade < learnerGrade:
		return s.cfg.ColdStartPrior
	case skillGrade == learnerGrade:
		return mastery.Unpracticed
	default:
		return mastery.Locked
	}
}
