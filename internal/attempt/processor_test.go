package attempt

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/dash/internal/cascade"
	"github.com/abhisek/dash/internal/errs"
	"github.com/abhisek/dash/internal/learner"
	"github.com/abhisek/dash/internal/mastery"
	"github.com/abhisek/dash/internal/scheduler"
	"github.com/abhisek/dash/internal/skillgraph"
)

var t0 = time.Date(2025, 9, 1, 9, 0, 0, 0, time.UTC)

const ideal = 5 * time.Second

func skill(id string, grade skillgraph.Grade, prereqs ...string) skillgraph.Skill {
	return skillgraph.Skill{ID: id, Grade: grade, ForgettingRate: 0.1, Prerequisites: prereqs}
}

type fixture struct {
	sched *scheduler.Scheduler
	proc  *Processor
}

func newFixture(skills []skillgraph.Skill, historyLimit int) fixture {
	c := skillgraph.MustNew(skills)
	model := mastery.NewModel(mastery.DefaultConfig())
	sched := scheduler.New(c, model, scheduler.DefaultConfig())
	res := cascade.NewResolver(c, cascade.DefaultRates())
	return fixture{sched: sched, proc: NewProcessor(c, model, res, sched, historyLimit)}
}

func answer(student, question string, correct bool, skills ...string) Attempt {
	return Attempt{StudentID: student, QuestionID: question, SkillIDs: skills, Correct: correct, ResponseTime: ideal}
}

func TestProcess_EndToEndScenario(t *testing.T) {
	f := newFixture([]skillgraph.Skill{
		skill("math_1_1.2.3.1", 1),
		skill("math_2_1.2.3.1", 2),
		skill("math_3_1.2.3.2", 3),
		skill("math_3_2.1.1.1", 3),
		skill("math_4_1.2.3.1", 4),
		skill("math_5_1.2.3.1", 5),
	}, learner.DefaultHistoryLimit)

	st := f.sched.ColdStart("s1", 3, t0)
	assert.Equal(t, 0.9, st.Skills["math_2_1.2.3.1"].MemoryStrength)
	assert.Equal(t, 0.0, st.Skills["math_3_1.2.3.2"].MemoryStrength)
	assert.Equal(t, -1.0, st.Skills["math_4_1.2.3.1"].MemoryStrength)

	st.Skills["math_3_2.1.1.1"].MemoryStrength = 0.9

	now := t0.Add(time.Minute)
	res, err := f.proc.Process(st, answer("s1", "q1", true, "math_3_1.2.3.2"), now)
	require.NoError(t, err)

	assert.InDelta(t, 0.3, st.Skills["math_3_1.2.3.2"].MemoryStrength, 1e-12)
	assert.InDelta(t, 0.901, st.Skills["math_3_2.1.1.1"].MemoryStrength, 1e-12)
	assert.InDelta(t, 0.903, st.Skills["math_2_1.2.3.1"].MemoryStrength, 1e-12)
	assert.Equal(t, -1.0, st.Skills["math_4_1.2.3.1"].MemoryStrength, "locked skill untouched")
	assert.Equal(t, 0.9, st.Skills["math_1_1.2.3.1"].MemoryStrength, "two grades down untouched")

	direct := st.Skills["math_3_1.2.3.2"]
	require.NotNil(t, direct.LastPracticeTime)
	assert.True(t, direct.LastPracticeTime.Equal(now))
	assert.Equal(t, 1, direct.PracticeCount)
	assert.Equal(t, 1, direct.CorrectCount)
	assert.Nil(t, st.Skills["math_3_2.1.1.1"].LastPracticeTime, "cascade does not reset practice time")
	assert.Zero(t, st.Skills["math_3_2.1.1.1"].PracticeCount)

	require.Len(t, res.Updates, 3)
	u, ok := res.Update("math_2_1.2.3.1")
	require.True(t, ok)
	assert.Equal(t, SourceCascade, u.Source)
	assert.Equal(t, cascade.LowerGradeConcept, u.Category)
	assert.Equal(t, 0.9, u.Before)
	assert.Nil(t, res.Unlock)

	require.Len(t, st.History, 1)
	assert.Equal(t, "q1", st.History[0].QuestionID)
	assert.True(t, st.UpdatedAt.Equal(now))
}

func TestProcess_RepeatedIncorrectDrivesRemediation(t *testing.T) {
	f := newFixture([]skillgraph.Skill{
		skill("math_7_1.2.3.1", 7),
		skill("math_8_1.2.3.2", 8),
	}, learner.DefaultHistoryLimit)
	st := f.sched.ColdStart("s1", 8, t0)

	isCandidate := func(id string) bool {
		for _, c := range f.sched.Candidates(st, t0) {
			if c.Skill.ID == id {
				return true
			}
		}
		return false
	}
	require.False(t, isCandidate("math_7_1.2.3.1"))

	var n int
	for n = 1; n <= 20; n++ {
		_, err := f.proc.Process(st, answer("s1", fmt.Sprintf("q%d", n), false, "math_8_1.2.3.2"), t0)
		require.NoError(t, err)
		if f.sched.Strength(st, "math_7_1.2.3.1", t0) < 0.7 {
			break
		}
	}
	// 0.9 * 0.97^n first drops below 0.7 at n = 9.
	assert.Equal(t, 9, n)
	assert.True(t, isCandidate("math_7_1.2.3.1"))
	assert.Equal(t, 9, st.Skills["math_8_1.2.3.2"].PracticeCount)
	assert.Zero(t, st.Skills["math_8_1.2.3.2"].CorrectCount)
}

func TestProcess_PrerequisiteReinforcement(t *testing.T) {
	skills := []skillgraph.Skill{
		skill("math_2_3.1.1.1", 2),
		skill("math_3_1.1.1.1", 3, "math_2_3.1.1.1"),
	}

	t.Run("correct reinforces", func(t *testing.T) {
		f := newFixture(skills, 0)
		st := f.sched.ColdStart("s1", 3, t0)
		res, err := f.proc.Process(st, answer("s1", "q1", true, "math_3_1.1.1.1"), t0)
		require.NoError(t, err)
		assert.InDelta(t, 0.905, st.Skills["math_2_3.1.1.1"].MemoryStrength, 1e-12)
		u, _ := res.Update("math_2_3.1.1.1")
		assert.Equal(t, SourcePrerequisite, u.Source)
		assert.Nil(t, st.Skills["math_2_3.1.1.1"].LastPracticeTime)
	})

	t.Run("incorrect leaves prerequisites alone", func(t *testing.T) {
		f := newFixture(skills, 0)
		st := f.sched.ColdStart("s1", 3, t0)
		res, err := f.proc.Process(st, answer("s1", "q1", false, "math_3_1.1.1.1"), t0)
		require.NoError(t, err)
		assert.Equal(t, 0.9, st.Skills["math_2_3.1.1.1"].MemoryStrength)
		_, touched := res.Update("math_2_3.1.1.1")
		assert.False(t, touched)
	})
}

func TestProcess_MultiSkill(t *testing.T) {
	f := newFixture([]skillgraph.Skill{
		skill("math_3_1.1.1.1", 3),
		skill("math_3_1.1.1.2", 3),
		skill("math_3_1.1.1.3", 3),
	}, 0)
	st := f.sched.ColdStart("s1", 3, t0)
	st.Skills["math_3_1.1.1.1"].MemoryStrength = 0.5
	st.Skills["math_3_1.1.1.3"].MemoryStrength = 0.9

	res, err := f.proc.Process(st, answer("s1", "q1", true, "math_3_1.1.1.1", "math_3_1.1.1.2", "math_3_1.1.1.1"), t0)
	require.NoError(t, err)

	// Direct skills are updated from their own pre-attempt value only.
	assert.InDelta(t, 0.65, st.Skills["math_3_1.1.1.1"].MemoryStrength, 1e-12)
	assert.InDelta(t, 0.3, st.Skills["math_3_1.1.1.2"].MemoryStrength, 1e-12)
	assert.Equal(t, 1, st.Skills["math_3_1.1.1.1"].PracticeCount, "duplicate ids collapse")

	// The sibling is reached from both targets and compounds.
	first := 0.9 + 0.03*(1-0.9)
	want := first + 0.03*(1-first)
	assert.InDelta(t, want, st.Skills["math_3_1.1.1.3"].MemoryStrength, 1e-12)

	u, _ := res.Update("math_3_1.1.1.3")
	assert.Equal(t, 0.9, u.Before)
	assert.InDelta(t, want, u.After, 1e-12)
	assert.Equal(t, 4, res.Applications)
	assert.Equal(t, []string{"math_3_1.1.1.1", "math_3_1.1.1.2"}, st.History[0].SkillIDs)
}

func TestProcess_SlowAnswerEarnsLess(t *testing.T) {
	f := newFixture([]skillgraph.Skill{skill("math_3_1.1.1.1", 3)}, 0)
	st := f.sched.ColdStart("s1", 3, t0)
	a := answer("s1", "q1", true, "math_3_1.1.1.1")
	a.ResponseTime = 10 * time.Second
	_, err := f.proc.Process(st, a, t0)
	require.NoError(t, err)
	assert.InDelta(t, 0.15, st.Skills["math_3_1.1.1.1"].MemoryStrength, 1e-12)
}

func TestProcess_UsesDecayedStrength(t *testing.T) {
	f := newFixture([]skillgraph.Skill{skill("math_3_1.1.1.1", 3)}, 0)
	st := f.sched.ColdStart("s1", 3, t0)
	practiced := t0
	st.Skills["math_3_1.1.1.1"].MemoryStrength = 0.6
	st.Skills["math_3_1.1.1.1"].LastPracticeTime = &practiced

	later := t0.Add(48 * time.Hour)
	eff := f.sched.Strength(st, "math_3_1.1.1.1", later)
	_, err := f.proc.Process(st, answer("s1", "q1", false, "math_3_1.1.1.1"), later)
	require.NoError(t, err)
	assert.InDelta(t, eff*0.8, st.Skills["math_3_1.1.1.1"].MemoryStrength, 1e-12)
}

func TestProcess_TriggersUnlock(t *testing.T) {
	f := newFixture([]skillgraph.Skill{
		skill("math_2_1.1.1.1", 2),
		skill("math_3_1.1.1.1", 3),
		skill("math_4_1.1.1.1", 4),
	}, 0)
	st := f.sched.ColdStart("s1", 3, t0)
	st.Skills["math_3_1.1.1.1"].MemoryStrength = 0.75

	res, err := f.proc.Process(st, answer("s1", "q1", true, "math_3_1.1.1.1"), t0)
	require.NoError(t, err)
	require.NotNil(t, res.Unlock)
	assert.Equal(t, skillgraph.Grade(4), res.Unlock.To)
	assert.Equal(t, skillgraph.Grade(4), st.Grade)
	assert.Equal(t, 0.0, st.Skills["math_4_1.1.1.1"].MemoryStrength)
}

func TestProcess_RejectsWithoutMutation(t *testing.T) {
	f := newFixture([]skillgraph.Skill{
		skill("math_3_1.1.1.1", 3),
		skill("math_4_1.1.1.1", 4),
	}, 0)

	tests := []struct {
		name    string
		attempt Attempt
		want    error
	}{
		{"unknown skill", answer("s1", "q1", true, "math_3_1.1.1.1", "math_3_9.9.9.9"), errs.ErrNotFound},
		{"locked skill", answer("s1", "q1", true, "math_3_1.1.1.1", "math_4_1.1.1.1"), errs.ErrValidation},
		{"no skills", answer("s1", "q1", true), errs.ErrValidation},
		{"empty question", answer("s1", "", true, "math_3_1.1.1.1"), errs.ErrValidation},
		{"wrong student", answer("s2", "q1", true, "math_3_1.1.1.1"), errs.ErrValidation},
		{"negative time", Attempt{StudentID: "s1", QuestionID: "q1", SkillIDs: []string{"math_3_1.1.1.1"}, ResponseTime: -time.Second}, errs.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := f.sched.ColdStart("s1", 3, t0)
			before := st.Clone()
			_, err := f.proc.Process(st, tt.attempt, t0)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Process() error = %v, want %v", err, tt.want)
			}
			assert.Equal(t, before, st)
		})
	}
}

func TestProcess_HistoryLimit(t *testing.T) {
	f := newFixture([]skillgraph.Skill{skill("math_3_1.1.1.1", 3)}, 3)
	st := f.sched.ColdStart("s1", 3, t0)
	for i := 0; i < 5; i++ {
		_, err := f.proc.Process(st, answer("s1", fmt.Sprintf("q%d", i), false, "math_3_1.1.1.1"), t0)
		require.NoError(t, err)
	}
	require.Len(t, st.History, 3)
	assert.Equal(t, "q2", st.History[0].QuestionID)
}

func TestParseCorrectness(t *testing.T) {
	tests := []struct {
		in      string
		want    bool
		wantErr bool
	}{
		{"true", true, false},
		{" Yes ", true, false},
		{"1", true, false},
		{"false", false, false},
		{"N", false, false},
		{"0", false, false},
		{"maybe", false, true},
		{"", false, true},
	}
	for _, tt := range tests {
		got, err := ParseCorrectness(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseCorrectness(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseCorrectness(%q) = %v, want %v", tt.in, got, tt.want)
		}
		if err != nil && !errors.Is(err, errs.ErrValidation) {
			t.Errorf("ParseCorrectness(%q) error is not a validation error", tt.in)
		}
	}
}

func TestProcess_SecondaryUpdatesKeepDecayClock(t *testing.T) {
	tests := []struct {
		name    string
		correct bool
	}{
		{"correct answer lifts sibling", true},
		{"incorrect answer lowers sibling by rate", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture([]skillgraph.Skill{
				skill("math_3_1.1.1.1", 3),
				skill("math_3_2.1.1.1", 3),
			}, learner.DefaultHistoryLimit)
			st := f.sched.ColdStart("s1", 3, t0)
			tenDaysAgo := t0.Add(-10 * 24 * time.Hour)
			st.Skills["math_3_2.1.1.1"] = &mastery.SkillState{MemoryStrength: 0.9, LastPracticeTime: &tenDaysAgo, PracticeCount: 4}

			before := f.sched.Strength(st, "math_3_2.1.1.1", t0)
			require.InDelta(t, 0.9*math.Exp(-1), before, 1e-12)

			_, err := f.proc.Process(st, answer("s1", "q1", tt.correct, "math_3_1.1.1.1"), t0)
			require.NoError(t, err)

			after := f.sched.Strength(st, "math_3_2.1.1.1", t0)
			want := mastery.Propagate(before, cascade.DefaultRates().SameGrade, tt.correct)
			assert.InDelta(t, want, after, 1e-9)
			if tt.correct {
				assert.Greater(t, after, before)
			} else {
				assert.Less(t, after, before)
			}

			sib := st.Skills["math_3_2.1.1.1"]
			assert.True(t, sib.LastPracticeTime.Equal(tenDaysAgo), "cascade keeps the practice time")
			assert.Equal(t, 4, sib.PracticeCount)
		})
	}
}

func TestProcess_RepeatedCorrectNeverErodesSibling(t *testing.T) {
	f := newFixture([]skillgraph.Skill{
		skill("math_3_1.1.1.1", 3),
		skill("math_3_1.1.1.2", 3),
	}, learner.DefaultHistoryLimit)
	st := f.sched.ColdStart("s1", 3, t0)
	yesterday := t0.Add(-24 * time.Hour)
	st.Skills["math_3_1.1.1.2"] = &mastery.SkillState{MemoryStrength: 0.95, LastPracticeTime: &yesterday, PracticeCount: 6}

	initial := f.sched.Strength(st, "math_3_1.1.1.2", t0)
	var last float64
	for i := range 10 {
		now := t0.Add(time.Duration(i) * time.Minute)
		before := f.sched.Strength(st, "math_3_1.1.1.2", now)
		_, err := f.proc.Process(st, answer("s1", fmt.Sprintf("q%d", i), true, "math_3_1.1.1.1"), now)
		require.NoError(t, err)
		last = f.sched.Strength(st, "math_3_1.1.1.2", now)
		assert.Greater(t, last, before, "answer %d", i)
	}
	assert.Greater(t, last, initial)
}
