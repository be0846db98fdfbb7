// Package config assembles engine configuration from defaults, an optional
// YAML file and DASH_ environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/abhisek/dash/internal/cascade"
	"github.com/abhisek/dash/internal/errs"
	"github.com/abhisek/dash/internal/learner"
	"github.com/abhisek/dash/internal/mastery"
	"github.com/abhisek/dash/internal/scheduler"
)

// Config holds all engine configuration.
type Config struct {
	DBPath       string     `yaml:"db_path"`
	CatalogPath  string     `yaml:"catalog_path"`
	HistoryLimit int        `yaml:"history_limit"`
	Lock         LockConfig `yaml:"lock"`
	Log          LogConfig  `yaml:"log"`
	Tuning       Tuning     `yaml:"tuning"`
}

// LockConfig selects the per-student lock. An empty RedisURL means an
// in-process lock.
type LockConfig struct {
	RedisURL string        `yaml:"redis_url"`
	TTL      time.Duration `yaml:"ttl"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// Tuning holds the learning-model constants.
type Tuning struct {
	Memory    mastery.Config   `yaml:"memory"`
	Cascade   cascade.Rates    `yaml:"cascade"`
	Scheduler scheduler.Config `yaml:"scheduler"`
}

// Default returns the reference configuration.
func Default() Config {
	return Config{
		HistoryLimit: learner.DefaultHistoryLimit,
		Lock:         LockConfig{TTL: 30 * time.Second},
		Log:          LogConfig{Level: "info", Format: "text"},
		Tuning: Tuning{
			Memory:    mastery.DefaultConfig(),
			Cascade:   cascade.DefaultRates(),
			Scheduler: scheduler.DefaultConfig(),
		},
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty) and the environment, then validates it.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromEnv returns defaults overlaid with DASH_ environment variables.
func FromEnv() (Config, error) {
	cfg := Default()
	if err := cfg.ApplyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile overlays the YAML document at path onto c. Keys absent from the
// file keep their current values.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return &errs.ConfigurationError{Problems: []string{fmt.Sprintf("parse %s", path)}, Err: err}
	}
	return nil
}

// ApplyEnv overlays DASH_ environment variables onto c.
func (c *Config) ApplyEnv() error {
	var problems []string
	e := envReader{problems: &problems}

	c.DBPath = e.str("DASH_DB", c.DBPath)
	c.CatalogPath = e.str("DASH_CATALOG", c.CatalogPath)
	c.HistoryLimit = e.int("DASH_HISTORY_LIMIT", c.HistoryLimit)

	c.Lock.RedisURL = e.str("DASH_LOCK_REDIS_URL", c.Lock.RedisURL)
	c.Lock.TTL = e.duration("DASH_LOCK_TTL", c.Lock.TTL)

	c.Log.Level = e.str("DASH_LOG_LEVEL", c.Log.Level)
	c.Log.Format = e.str("DASH_LOG_FORMAT", c.Log.Format)

	m := &c.Tuning.Memory
	m.LearningRate = e.float("DASH_LEARNING_RATE", m.LearningRate)
	m.IdealResponseTime = e.duration("DASH_IDEAL_RESPONSE_TIME", m.IdealResponseTime)
	m.IncorrectPenalty = e.float("DASH_INCORRECT_PENALTY", m.IncorrectPenalty)
	m.PrereqRate = e.float("DASH_PREREQ_RATE", m.PrereqRate)
	m.DecayUnit = e.duration("DASH_DECAY_UNIT", m.DecayUnit)

	s := &c.Tuning.Scheduler
	s.PracticeThreshold = e.float("DASH_PRACTICE_THRESHOLD", s.PracticeThreshold)
	s.MasteryThreshold = e.float("DASH_MASTERY_THRESHOLD", s.MasteryThreshold)
	s.ColdStartPrior = e.float("DASH_COLD_START_PRIOR", s.ColdStartPrior)

	if len(problems) > 0 {
		return &errs.ConfigurationError{Problems: problems}
	}
	return nil
}

// Validate checks every section and reports all problems together.
func (c Config) Validate() error {
	var problems []string
	add := func(section string, err error) {
		if err != nil {
			problems = append(problems, section+": "+err.Error())
		}
	}

	if c.HistoryLimit < 0 {
		problems = append(problems, fmt.Sprintf("history_limit must not be negative, got %d", c.HistoryLimit))
	}
	if c.Lock.RedisURL != "" && c.Lock.TTL <= 0 {
		problems = append(problems, fmt.Sprintf("lock.ttl must be positive, got %s", c.Lock.TTL))
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		problems = append(problems, err.Error())
	}
	if f := strings.ToLower(c.Log.Format); f != "text" && f != "json" {
		problems = append(problems, fmt.Sprintf("log.format must be 'text' or 'json', got %q", c.Log.Format))
	}
	add("tuning.memory", c.Tuning.Memory.Validate())
	add("tuning.cascade", c.Tuning.Cascade.Validate())
	add("tuning.scheduler", c.Tuning.Scheduler.Validate())

	if len(problems) > 0 {
		return &errs.ConfigurationError{Problems: problems}
	}
	return nil
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log.level must be debug, info, warn or error, got %q", s)
	}
	return l, nil
}

// NewLogger builds a logger writing to w.
func (l LogConfig) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := ParseLevel(l.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(l.Format) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, errors.New("log.format must be 'text' or 'json'")
	}
}

// envReader reads typed variables, collecting parse problems instead of
// silently falling back.
type envReader struct {
	problems *[]string
}

func (e envReader) str(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (e envReader) int(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		*e.problems = append(*e.problems, fmt.Sprintf("%s: not an integer: %q", key, v))
		return fallback
	}
	return i
}

func (e envReader) float(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		*e.problems = append(*e.problems, fmt.Sprintf("%s: not a number: %q", key, v))
		return fallback
	}
	return f
}

func (e envReader) duration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*e.problems = append(*e.problems, fmt.Sprintf("%s: not a duration: %q", key, v))
		return fallback
	}
	return d
}
