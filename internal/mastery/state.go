package mastery

import "time"

// Strength sentinels.
const (
	Locked      = -1.0 // skill above the learner's grade frontier
	Unpracticed = 0.0  // reachable, never practiced
)

// SkillState is one learner's record for one skill.
type SkillState struct {
	MemoryStrength   float64    `json:"memory_strength"`
	LastPracticeTime *time.Time `json:"last_practice_time,omitempty"`
	PracticeCount    int        `json:"practice_count"`
	CorrectCount     int        `json:"correct_count"`
}

// IsLocked reports whether the skill is above the grade frontier.
func (s SkillState) IsLocked() bool {
	return s.MemoryStrength < 0
}

// Accuracy returns the correct ratio over all direct practice.
func (s SkillState) Accuracy() float64 {
	if s.PracticeCount == 0 {
		return 0.0
	}
	return float64(s.CorrectCount) / float64(s.PracticeCount)
}

// Phase is a skill's position in the LOCKED → READY → PRACTICING → MASTERED
// lifecycle. PRACTICING and MASTERED move back and forth with forgetting and
// cascades; nothing returns to LOCKED.
type Phase string

const (
	PhaseLocked     Phase = "locked"
	PhaseReady      Phase = "ready"
	PhasePracticing Phase = "practicing"
	PhaseMastered   Phase = "mastered"
)

// PhaseOf classifies an effective strength against the mastery threshold.
func PhaseOf(strength, threshold float64) Phase {
	switch {
	case strength < 0:
		return PhaseLocked
	case strength == Unpracticed:
		return PhaseReady
	case strength >= threshold:
		return PhaseMastered
	default:
		return PhasePracticing
	}
}

// Icon returns the display icon for a phase.
func (p Phase) Icon() string {
	switch p {
	case PhaseLocked:
		return "🔒"
	case PhaseReady:
		return "🔓"
	case PhasePracticing:
		return "📖"
	case PhaseMastered:
		return "✅"
	default:
		return "?"
	}
}
