// Package learner holds a student's per-skill knowledge state and bounded
// answer history.
package learner

import (
	"maps"
	"slices"
	"time"

	"github.com/abhisek/dash/internal/mastery"
	"github.com/abhisek/dash/internal/skillgraph"
)

// DefaultHistoryLimit bounds AnswerHistory.
const DefaultHistoryLimit = 1000

// AnswerRecord is one processed attempt.
type AnswerRecord struct {
	QuestionID   string        `json:"question_id"`
	SkillIDs     []string      `json:"skill_ids"`
	Correct      bool          `json:"correct"`
	ResponseTime time.Duration `json:"response_time"`
	Timestamp    time.Time     `json:"timestamp"`
}

// State is one student's mutable learning record. It is owned by a single
// request at a time; see the engine for serialization.
type State struct {
	StudentID string                         `json:"student_id"`
	Grade     skillgraph.Grade               `json:"grade_level"`
	Skills    map[string]*mastery.SkillState `json:"skill_states"`
	History   []AnswerRecord                 `json:"answer_history"`
	CreatedAt time.Time                      `json:"created_at"`
	UpdatedAt time.Time                      `json:"updated_at"`

	// Version is the stored revision this state was loaded at; zero for a
	// state that has never been saved. The store bumps it on every save.
	Version int64 `json:"-"`
}

// New returns an empty state for studentID at grade.
func New(studentID string, grade skillgraph.Grade, now time.Time) *State {
	return &State{
		StudentID: studentID,
		Grade:     grade,
		Skills:    make(map[string]*mastery.SkillState),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Skill returns the state for skillID. A skill added to the catalog after the
// student was created has no entry; it is reported as not found.
func (s *State) Skill(skillID string) (*mastery.SkillState, bool) {
	st, ok := s.Skills[skillID]
	return st, ok
}

// AppendAnswer records an attempt, keeping only the most recent limit entries.
// A non-positive limit keeps everything.
func (s *State) AppendAnswer(rec AnswerRecord, limit int) {
	rec.SkillIDs = slices.Clone(rec.SkillIDs)
	s.History = append(s.History, rec)
	if limit > 0 && len(s.History) > limit {
		s.History = slices.Clone(s.History[len(s.History)-limit:])
	}
}

// SeenQuestions returns the ids of every question in the history, most
// recent first, without duplicates.
func (s *State) SeenQuestions() []string {
	seen := make(map[string]bool, len(s.History))
	ids := make([]string, 0, len(s.History))
	for i := len(s.History) - 1; i >= 0; i-- {
		id := s.History[i].QuestionID
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

// Clone returns a deep copy.
func (s *State) Clone() *State {
	out := *s
	out.Skills = make(map[string]*mastery.SkillState, len(s.Skills))
	for id, st := range s.Skills {
		cp := *st
		if st.LastPracticeTime != nil {
			t := *st.LastPracticeTime
			cp.LastPracticeTime = &t
		}
		out.Skills[id] = &cp
	}
	out.History = slices.Clone(s.History)
	for i := range out.History {
		out.History[i].SkillIDs = slices.Clone(out.History[i].SkillIDs)
	}
	return &out
}

// SkillIDs returns the ids of every tracked skill, sorted.
func (s *State) SkillIDs() []string {
	return slices.Sorted(maps.Keys(s.Skills))
}
