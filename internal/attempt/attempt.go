// Package attempt turns one answered question into a complete, consistent
// set of skill-strength updates on a learner's state.
package attempt

import (
	"slices"
	"strings"
	"time"

	"github.com/abhisek/dash/internal/errs"
)

// Attempt is one reported answer.
type Attempt struct {
	StudentID    string
	QuestionID   string
	SkillIDs     []string
	Correct      bool
	ResponseTime time.Duration
}

// Validate checks the attempt's shape. It does not consult the catalog.
func (a Attempt) Validate() error {
	if strings.TrimSpace(a.StudentID) == "" {
		return errs.Invalid("student_id", "must not be empty")
	}
	if strings.TrimSpace(a.QuestionID) == "" {
		return errs.Invalid("question_id", "must not be empty")
	}
	if len(a.SkillIDs) == 0 {
		return errs.Invalid("skill_ids", "must list at least one skill")
	}
	for i, id := range a.SkillIDs {
		if strings.TrimSpace(id) == "" {
			return errs.Invalid("skill_ids", "entry %d is empty", i)
		}
	}
	if a.ResponseTime < 0 {
		return errs.Invalid("response_time", "must not be negative, got %s", a.ResponseTime)
	}
	return nil
}

// Targets returns the attempt's skill ids with duplicates removed, in first
// occurrence order.
func (a Attempt) Targets() []string {
	out := make([]string, 0, len(a.SkillIDs))
	for _, id := range a.SkillIDs {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

// ParseCorrectness resolves a reported correctness value to a bool.
func ParseCorrectness(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "t", "1", "yes", "y", "correct":
		return true, nil
	case "false", "f", "0", "no", "n", "incorrect", "wrong":
		return false, nil
	default:
		return false, errs.Invalid("correct", "cannot interpret %q as true or false", v)
	}
}
