package mastery

import (
	"fmt"
	"time"
)

// Config holds the memory model's tunable constants.
type Config struct {
	// LearningRate scales the boost for a correct direct answer.
	LearningRate float64 `yaml:"learning_rate"`
	// IdealResponseTime is the response time at or below which a correct
	// answer earns the full boost.
	IdealResponseTime time.Duration `yaml:"ideal_response_time"`
	// IncorrectPenalty multiplies the strength after an incorrect direct answer.
	IncorrectPenalty float64 `yaml:"incorrect_penalty"`
	// PrereqRate is the reinforcement a correct answer gives each direct prerequisite.
	PrereqRate float64 `yaml:"prereq_rate"`
	// DecayUnit is the time unit forgetting rates are expressed in.
	DecayUnit time.Duration `yaml:"decay_unit"`
}

// DefaultConfig returns the reference tuning.
func DefaultConfig() Config {
	return Config{
		LearningRate:      0.3,
		IdealResponseTime: 5 * time.Second,
		IncorrectPenalty:  0.8,
		PrereqRate:        0.05,
		DecayUnit:         24 * time.Hour,
	}
}

// Validate checks that every constant lies in its usable range.
func (c Config) Validate() error {
	if c.LearningRate <= 0 || c.LearningRate > 1 {
		return fmt.Errorf("learning_rate must be in (0, 1], got %g", c.LearningRate)
	}
	if c.IdealResponseTime < 0 {
		return fmt.Errorf("ideal_response_time must be >= 0, got %s", c.IdealResponseTime)
	}
	if c.IncorrectPenalty < 0 || c.IncorrectPenalty > 1 {
		return fmt.Errorf("incorrect_penalty must be in [0, 1], got %g", c.IncorrectPenalty)
	}
	if c.PrereqRate < 0 || c.PrereqRate > 1 {
		return fmt.Errorf("prereq_rate must be in [0, 1], got %g", c.PrereqRate)
	}
	if c.DecayUnit <= 0 {
		return fmt.Errorf("decay_unit must be > 0, got %s", c.DecayUnit)
	}
	return nil
}
