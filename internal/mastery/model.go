// Package mastery models per-skill memory strength: exponential forgetting
// and the strength change caused by a single answer.
package mastery

import (
	"math"
	"time"
)

// Model computes effective strengths and answer updates. It is pure: the
// current time is always passed in.
type Model struct {
	cfg Config
}

// NewModel returns a Model using cfg.
func NewModel(cfg Config) *Model {
	return &Model{cfg: cfg}
}

// Config returns the model's tuning.
func (m *Model) Config() Config {
	return m.cfg
}

// Effective returns the state's strength decayed to now:
// strength * exp(-λ * elapsed), clamped to [0,1]. Locked states return -1
// and never-practiced states return their stored value.
func (m *Model) Effective(st SkillState, lambda float64, now time.Time) float64 {
	if st.MemoryStrength < 0 {
		return Locked
	}
	if st.LastPracticeTime == nil {
		return st.MemoryStrength
	}
	elapsed := now.Sub(*st.LastPracticeTime)
	if elapsed < 0 {
		elapsed = 0
	}
	units := float64(elapsed) / float64(m.cfg.DecayUnit)
	return Clamp(st.MemoryStrength * math.Exp(-lambda*units))
}

// Anchor returns the value to store so that Effective at now reports v while
// the state keeps its last practice time. A never-practiced or locked state
// stores v as is. The result is capped at 1, in which case Effective reports
// less than v after a long gap.
func (m *Model) Anchor(v, lambda float64, last *time.Time, now time.Time) float64 {
	if v < 0 || last == nil {
		return v
	}
	elapsed := now.Sub(*last)
	if elapsed <= 0 {
		return v
	}
	units := float64(elapsed) / float64(m.cfg.DecayUnit)
	return Clamp(v * math.Exp(lambda*units))
}

// TimePenalty scales the correct-answer boost for slow responses. It is 1 at
// or below the ideal time and ideal/rt above it, so it stays in (0,1] and
// never rewards a slower answer.
func (m *Model) TimePenalty(rt time.Duration) float64 {
	ideal := m.cfg.IdealResponseTime
	if ideal <= 0 || rt <= ideal {
		return 1.0
	}
	return float64(ideal) / float64(rt)
}

// Direct returns the new strength of the answered skill given its current
// effective strength s. Correct answers get a diminishing-returns boost;
// incorrect answers a flat multiplicative penalty.
func (m *Model) Direct(s float64, correct bool, rt time.Duration) float64 {
	if s < 0 {
		return s
	}
	if correct {
		boost := m.cfg.LearningRate * (1 - s) * m.TimePenalty(rt)
		return Clamp(s + boost)
	}
	return Clamp(s * m.cfg.IncorrectPenalty)
}

// Reinforce returns a prerequisite's strength after a correct answer on a
// dependent skill. Incorrect answers leave prerequisites untouched, so there
// is no counterpart.
func (m *Model) Reinforce(s float64) float64 {
	if s < 0 {
		return s
	}
	return Clamp(s + m.cfg.PrereqRate*(1-s))
}

// Propagate applies the cascade rule at rate r to a related skill's current
// effective strength cs: cs + r(1-cs) when correct, cs(1-r) when incorrect.
// Locked strengths are returned unchanged.
func Propagate(cs, r float64, correct bool) float64 {
	if cs < 0 {
		return cs
	}
	if correct {
		return Clamp(cs + r*(1-cs))
	}
	return Clamp(cs * (1 - r))
}

// Clamp limits v to [0,1].
func Clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
