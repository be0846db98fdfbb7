package attempt

import (
	"time"

	"github.com/abhisek/dash/internal/cascade"
	"github.com/abhisek/dash/internal/errs"
	"github.com/abhisek/dash/internal/learner"
	"github.com/abhisek/dash/internal/mastery"
	"github.com/abhisek/dash/internal/scheduler"
	"github.com/abhisek/dash/internal/skillgraph"
)

// Source says why a skill's strength changed.
type Source string

const (
	SourceDirect       Source = "direct"
	SourcePrerequisite Source = "prerequisite"
	SourceCascade      Source = "cascade"
)

// Update is the net change to one skill. Before is the effective strength
// when the attempt arrived; After is the value written.
type Update struct {
	SkillID  string
	Source   Source
	Category cascade.Category // set when Source is SourceCascade
	Before   float64
	After    float64
}

// Delta returns After - Before.
func (u Update) Delta() float64 {
	return u.After - u.Before
}

// Result describes a processed attempt.
type Result struct {
	// Updates has one entry per affected skill, in the order each skill was
	// first touched. Source and Category describe the first touch.
	Updates []Update
	// Applications counts every individual update, including repeated
	// cascades onto the same skill.
	Applications int
	// Unlock is set when the attempt completed the learner's grade.
	Unlock *scheduler.GradeUnlock
}

// Update returns the entry for skillID.
func (r *Result) Update(skillID string) (Update, bool) {
	for _, u := range r.Updates {
		if u.SkillID == skillID {
			return u, true
		}
	}
	return Update{}, false
}

// Processor applies attempts to learner states.
type Processor struct {
	catalog      *skillgraph.Catalog
	model        *mastery.Model
	resolver     *cascade.Resolver
	sched        *scheduler.Scheduler
	historyLimit int
}

// NewProcessor wires a processor. historyLimit bounds the learner's answer
// history; zero or less keeps everything.
func NewProcessor(catalog *skillgraph.Catalog, model *mastery.Model, resolver *cascade.Resolver, sched *scheduler.Scheduler, historyLimit int) *Processor {
	return &Processor{
		catalog:      catalog,
		model:        model,
		resolver:     resolver,
		sched:        sched,
		historyLimit: historyLimit,
	}
}

// working accumulates updates before they are committed.
type working struct {
	order   []string
	updates map[string]*Update
}

func (w *working) current(id string) (float64, bool) {
	if u, ok := w.updates[id]; ok {
		return u.After, true
	}
	return 0, false
}

func (w *working) set(id string, src Source, cat cascade.Category, before, after float64) {
	if u, ok := w.updates[id]; ok {
		u.After = after
		return
	}
	w.updates[id] = &Update{SkillID: id, Source: src, Category: cat, Before: before, After: after}
	w.order = append(w.order, id)
}

// Process applies a to st at now. Every update is computed before st is
// touched, so an error leaves st unchanged.
//
// Targeted skills get the direct update from their pre-attempt effective
// strength. On a correct answer their prerequisites are reinforced. Then
// each targeted skill's cascade is applied in input order. Targeted skills
// are never reinforced or cascaded onto, locked skills are never touched,
// and a skill reached more than once compounds. Only targeted skills have
// their practice time and counters bumped.
func (p *Processor) Process(st *learner.State, a Attempt, now time.Time) (*Result, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	if a.StudentID != st.StudentID {
		return nil, errs.Invalid("student_id", "attempt for %q applied to %q", a.StudentID, st.StudentID)
	}

	targets := a.Targets()
	direct := make(map[string]bool, len(targets))
	for _, id := range targets {
		if _, err := p.catalog.Skill(id); err != nil {
			return nil, err
		}
		if p.sched.Strength(st, id, now) < 0 {
			return nil, errs.Invalid("skill_ids", "skill %s is locked", id)
		}
		direct[id] = true
	}

	w := &working{updates: make(map[string]*Update)}
	res := &Result{}

	for _, id := range targets {
		before := p.sched.Strength(st, id, now)
		w.set(id, SourceDirect, "", before, p.model.Direct(before, a.Correct, a.ResponseTime))
		res.Applications++
	}

	// value returns the working strength of id, or its effective strength
	// if nothing has touched it yet.
	value := func(id string) (cur, before float64) {
		before = p.sched.Strength(st, id, now)
		if v, ok := w.current(id); ok {
			return v, before
		}
		return before, before
	}

	if a.Correct {
		for _, id := range targets {
			for _, pre := range p.catalog.Prerequisites(id) {
				if direct[pre.ID] {
					continue
				}
				cur, before := value(pre.ID)
				if cur < 0 {
					continue
				}
				w.set(pre.ID, SourcePrerequisite, "", before, p.model.Reinforce(cur))
				res.Applications++
			}
		}
	}

	for _, id := range targets {
		related, err := p.resolver.Resolve(id)
		if err != nil {
			return nil, err
		}
		for _, tg := range related {
			if direct[tg.SkillID] {
				continue
			}
			cur, before := value(tg.SkillID)
			if cur < 0 {
				continue
			}
			w.set(tg.SkillID, SourceCascade, tg.Category, before, mastery.Propagate(cur, tg.Rate, a.Correct))
			res.Applications++
		}
	}

	// Commit.
	for _, id := range w.order {
		u := w.updates[id]
		ss, ok := st.Skills[id]
		if !ok {
			ss = &mastery.SkillState{}
			st.Skills[id] = ss
		}
		if direct[id] {
			t := now
			ss.LastPracticeTime = &t
			ss.PracticeCount++
			if a.Correct {
				ss.CorrectCount++
			}
		}
		// Secondary updates keep the decay clock, so the stored value is
		// re-anchored to it.
		sk, _ := p.catalog.Get(id)
		ss.MemoryStrength = p.model.Anchor(u.After, sk.ForgettingRate, ss.LastPracticeTime, now)
		res.Updates = append(res.Updates, *u)
	}

	st.AppendAnswer(learner.AnswerRecord{
		QuestionID:   a.QuestionID,
		SkillIDs:     targets,
		Correct:      a.Correct,
		ResponseTime: a.ResponseTime,
		Timestamp:    now,
	}, p.historyLimit)
	st.UpdatedAt = now

	res.Unlock = p.sched.TryUnlock(st, now)
	return res, nil
}
