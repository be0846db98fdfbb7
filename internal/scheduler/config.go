package scheduler

import "fmt"

// Config holds the scheduler's thresholds.
type Config struct {
	// PracticeThreshold: a skill at or above it no longer needs practice,
	// and a prerequisite must reach it before dependents become candidates.
	PracticeThreshold float64 `yaml:"practice_threshold"`
	// MasteryThreshold: every skill of the current grade must reach it
	// before the next grade unlocks.
	MasteryThreshold float64 `yaml:"mastery_threshold"`
	// ColdStartPrior is the assumed strength of below-grade skills for a new learner.
	ColdStartPrior float64 `yaml:"cold_start_prior"`
}

// DefaultConfig returns the reference thresholds.
func DefaultConfig() Config {
	return Config{
		PracticeThreshold: 0.7,
		MasteryThreshold:  0.8,
		ColdStartPrior:    0.9,
	}
}

// Validate checks 0 < practice <= mastery <= 1 and prior in [0,1].
func (c Config) Validate() error {
	if c.PracticeThreshold <= 0 || c.PracticeThreshold > 1 {
		return fmt.Errorf("practice_threshold must be in (0, 1], got %g", c.PracticeThreshold)
	}
	if c.MasteryThreshold < c.PracticeThreshold || c.MasteryThreshold > 1 {
		return fmt.Errorf("mastery_threshold must be in [practice_threshold, 1], got %g", c.MasteryThreshold)
	}
	if c.ColdStartPrior < 0 || c.ColdStartPrior > 1 {
		return fmt.Errorf("cold_start_prior must be in [0, 1], got %g", c.ColdStartPrior)
	}
	return nil
}
