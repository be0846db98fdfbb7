package scheduler

import (
	"time"

	"github.com/abhisek/dash/internal/learner"
	"github.com/abhisek/dash/internal/mastery"
	"github.com/abhisek/dash/internal/skillgraph"
)

// GradeProgress summarizes one grade of a learner's state.
type GradeProgress struct {
	Grade  skillgraph.Grade
	Total  int
	Phases map[mastery.Phase]int
	// MeanStrength averages effective strength over unlocked skills; zero
	// when every skill of the grade is locked.
	MeanStrength float64
}

// Mastered returns the number of mastered skills.
func (g GradeProgress) Mastered() int {
	return g.Phases[mastery.PhaseMastered]
}

// Progress is a read-only snapshot of a learner's standing.
type Progress struct {
	StudentID  string
	Grade      skillgraph.Grade
	Grades     []GradeProgress
	Candidates int
	Answered   int
	Correct    int
	Weakest    []Candidate
}

// Accuracy returns the correct ratio over the retained history.
func (p Progress) Accuracy() float64 {
	if p.Answered == 0 {
		return 0
	}
	return float64(p.Correct) / float64(p.Answered)
}

// weakestLimit caps Progress.Weakest.
const weakestLimit = 5

// Progress reports per-grade phase counts at now. It does not mutate st.
func (s *Scheduler) Progress(st *learner.State, now time.Time) Progress {
	p := Progress{StudentID: st.StudentID, Grade: st.Grade}

	for _, g := range s.catalog.Grades() {
		gp := GradeProgress{Grade: g, Phases: make(map[mastery.Phase]int)}
		var sum float64
		var unlocked int
		for _, sk := range s.catalog.ByGrade(g) {
			v := s.strength(st, sk, now)
			gp.Total++
			gp.Phases[mastery.PhaseOf(v, s.cfg.MasteryThreshold)]++
			if v >= 0 {
				sum += v
				unlocked++
			}
		}
		if unlocked > 0 {
			gp.MeanStrength = sum / float64(unlocked)
		}
		p.Grades = append(p.Grades, gp)
	}

	cands := s.Candidates(st, now)
	p.Candidates = len(cands)
	if len(cands) > weakestLimit {
		cands = cands[:weakestLimit]
	}
	p.Weakest = cands

	for _, rec := range st.History {
		p.Answered++
		if rec.Correct {
			p.Correct++
		}
	}
	return p
}
