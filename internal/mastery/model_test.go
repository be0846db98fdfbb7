package mastery

import (
	"math"
	"testing"
	"time"
)

const eps = 1e-9

var t0 = time.Date(2025, 9, 1, 9, 0, 0, 0, time.UTC)

func practicedAt(strength float64, at time.Time) SkillState {
	return SkillState{MemoryStrength: strength, LastPracticeTime: &at}
}

func TestEffective_ZeroElapsedReturnsStored(t *testing.T) {
	m := NewModel(DefaultConfig())
	got := m.Effective(practicedAt(0.6, t0), 0.1, t0)
	if math.Abs(got-0.6) > eps {
		t.Errorf("Effective at zero elapsed = %f, want 0.6", got)
	}
}

func TestEffective_StrictlyDecreasing(t *testing.T) {
	m := NewModel(DefaultConfig())
	st := practicedAt(0.9, t0)

	prev := m.Effective(st, 0.1, t0)
	for days := 1; days <= 60; days++ {
		cur := m.Effective(st, 0.1, t0.Add(time.Duration(days)*24*time.Hour))
		if cur >= prev {
			t.Fatalf("day %d: effective %f not below previous %f", days, cur, prev)
		}
		prev = cur
	}
}

func TestEffective_MatchesExponential(t *testing.T) {
	m := NewModel(DefaultConfig())
	got := m.Effective(practicedAt(0.8, t0), 0.1, t0.Add(3*24*time.Hour))
	want := 0.8 * math.Exp(-0.3)
	if math.Abs(got-want) > eps {
		t.Errorf("Effective = %f, want %f", got, want)
	}
}

func TestEffective_HigherLambdaDecaysFaster(t *testing.T) {
	m := NewModel(DefaultConfig())
	st := practicedAt(0.9, t0)
	later := t0.Add(5 * 24 * time.Hour)
	if slow, fast := m.Effective(st, 0.05, later), m.Effective(st, 0.5, later); fast >= slow {
		t.Errorf("λ=0.5 gave %f, λ=0.05 gave %f; want faster decay for larger λ", fast, slow)
	}
}

func TestEffective_LockedNeverDecays(t *testing.T) {
	m := NewModel(DefaultConfig())
	for _, st := range []SkillState{
		{MemoryStrength: Locked},
		practicedAt(Locked, t0),
	} {
		for _, d := range []time.Duration{0, time.Hour, 400 * 24 * time.Hour} {
			if got := m.Effective(st, 0.3, t0.Add(d)); got != Locked {
				t.Errorf("Effective(locked, +%s) = %f, want -1", d, got)
			}
		}
	}
}

func TestEffective_NeverPracticedDoesNotDecay(t *testing.T) {
	m := NewModel(DefaultConfig())
	st := SkillState{MemoryStrength: 0.9}
	if got := m.Effective(st, 0.3, t0.Add(1000*24*time.Hour)); got != 0.9 {
		t.Errorf("Effective(never practiced) = %f, want 0.9", got)
	}
}

func TestEffective_ClockSkewDoesNotInflate(t *testing.T) {
	m := NewModel(DefaultConfig())
	got := m.Effective(practicedAt(0.5, t0), 0.1, t0.Add(-48*time.Hour))
	if got != 0.5 {
		t.Errorf("Effective before last practice = %f, want 0.5", got)
	}
}

func TestTimePenalty(t *testing.T) {
	m := NewModel(DefaultConfig())
	tests := []struct {
		rt   time.Duration
		want float64
	}{
		{0, 1.0},
		{2 * time.Second, 1.0},
		{5 * time.Second, 1.0},
		{10 * time.Second, 0.5},
		{20 * time.Second, 0.25},
	}
	for _, tt := range tests {
		if got := m.TimePenalty(tt.rt); math.Abs(got-tt.want) > eps {
			t.Errorf("TimePenalty(%s) = %f, want %f", tt.rt, got, tt.want)
		}
	}

	prev := 1.0
	for s := 1; s <= 120; s++ {
		p := m.TimePenalty(time.Duration(s) * time.Second)
		if p <= 0 || p > 1 {
			t.Fatalf("TimePenalty(%ds) = %f out of (0,1]", s, p)
		}
		if p > prev {
			t.Fatalf("TimePenalty(%ds) = %f increased from %f", s, p, prev)
		}
		prev = p
	}
}

func TestTimePenalty_DisabledWithZeroIdeal(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IdealResponseTime = 0
	m := NewModel(cfg)
	if got := m.TimePenalty(time.Minute); got != 1.0 {
		t.Errorf("TimePenalty with zero ideal = %f, want 1", got)
	}
}

func TestDirect_ReferenceValues(t *testing.T) {
	m := NewModel(DefaultConfig())
	ideal := 5 * time.Second

	if got := m.Direct(0, true, ideal); math.Abs(got-0.3) > eps {
		t.Errorf("Direct(0, correct) = %f, want 0.3", got)
	}
	if got := m.Direct(0.5, false, ideal); math.Abs(got-0.4) > eps {
		t.Errorf("Direct(0.5, incorrect) = %f, want 0.4", got)
	}
	// Slow answers shrink the boost: 0 + 0.3*1*0.5.
	if got := m.Direct(0, true, 10*time.Second); math.Abs(got-0.15) > eps {
		t.Errorf("Direct(0, correct, 10s) = %f, want 0.15", got)
	}
}

func TestDirect_Asymmetry(t *testing.T) {
	m := NewModel(DefaultConfig())
	for _, s := range []float64{0.01, 0.2, 0.5, 0.77, 0.99} {
		if up := m.Direct(s, true, time.Second); up <= s {
			t.Errorf("Direct(%f, correct) = %f, want increase", s, up)
		}
		if down := m.Direct(s, false, time.Second); down >= s {
			t.Errorf("Direct(%f, incorrect) = %f, want decrease", s, down)
		}
	}
	if got := m.Direct(1, true, time.Second); got != 1 {
		t.Errorf("Direct(1, correct) = %f, want 1", got)
	}
	if got := m.Direct(0, false, time.Second); got != 0 {
		t.Errorf("Direct(0, incorrect) = %f, want 0", got)
	}
}

func TestDirect_DiminishingReturns(t *testing.T) {
	m := NewModel(DefaultConfig())
	weak := m.Direct(0.1, true, time.Second) - 0.1
	strong := m.Direct(0.8, true, time.Second) - 0.8
	if weak <= strong {
		t.Errorf("boost at 0.1 = %f, at 0.8 = %f; want larger boost when weak", weak, strong)
	}
}

func TestReinforce(t *testing.T) {
	m := NewModel(DefaultConfig())
	if got := m.Reinforce(0.9); math.Abs(got-0.905) > eps {
		t.Errorf("Reinforce(0.9) = %f, want 0.905", got)
	}
	if got := m.Reinforce(Locked); got != Locked {
		t.Errorf("Reinforce(locked) = %f, want -1", got)
	}
}

func TestPropagate_ReferenceValues(t *testing.T) {
	tests := []struct {
		cs, r   float64
		correct bool
		want    float64
	}{
		{0.9, 0.01, true, 0.901},
		{0.9, 0.03, true, 0.903},
		{0.9, 0.03, false, 0.873},
		{0.5, 0.02, false, 0.49},
		{Locked, 0.03, true, Locked},
		{Locked, 0.03, false, Locked},
	}
	for _, tt := range tests {
		if got := Propagate(tt.cs, tt.r, tt.correct); math.Abs(got-tt.want) > eps {
			t.Errorf("Propagate(%f, %f, %v) = %f, want %f", tt.cs, tt.r, tt.correct, got, tt.want)
		}
	}
}

func TestUpdatesStayInUnitInterval(t *testing.T) {
	m := NewModel(DefaultConfig())
	for s := 0.0; s <= 1.0; s += 0.05 {
		for r := 0.0; r <= 1.0; r += 0.1 {
			for _, correct := range []bool{true, false} {
				if v := Propagate(s, r, correct); v < 0 || v > 1 {
					t.Fatalf("Propagate(%f, %f, %v) = %f out of [0,1]", s, r, correct, v)
				}
			}
		}
		for _, rt := range []time.Duration{0, time.Second, time.Minute} {
			for _, correct := range []bool{true, false} {
				if v := m.Direct(s, correct, rt); v < 0 || v > 1 {
					t.Fatalf("Direct(%f, %v, %s) = %f out of [0,1]", s, correct, rt, v)
				}
			}
		}
		if v := m.Reinforce(s); v < 0 || v > 1 {
			t.Fatalf("Reinforce(%f) = %f out of [0,1]", s, v)
		}
	}
}

func TestPhaseOf(t *testing.T) {
	tests := []struct {
		strength float64
		want     Phase
	}{
		{Locked, PhaseLocked},
		{0, PhaseReady},
		{0.3, PhasePracticing},
		{0.79, PhasePracticing},
		{0.8, PhaseMastered},
		{1, PhaseMastered},
	}
	for _, tt := range tests {
		if got := PhaseOf(tt.strength, 0.8); got != tt.want {
			t.Errorf("PhaseOf(%f) = %s, want %s", tt.strength, got, tt.want)
		}
	}
}

func TestSkillStateAccuracy(t *testing.T) {
	if got := (SkillState{}).Accuracy(); got != 0 {
		t.Errorf("Accuracy() with no practice = %f, want 0", got)
	}
	if got := (SkillState{PracticeCount: 4, CorrectCount: 3}).Accuracy(); got != 0.75 {
		t.Errorf("Accuracy() = %f, want 0.75", got)
	}
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	mutations := map[string]func(*Config){
		"learning rate zero":   func(c *Config) { c.LearningRate = 0 },
		"learning rate > 1":    func(c *Config) { c.LearningRate = 1.5 },
		"negative ideal":       func(c *Config) { c.IdealResponseTime = -time.Second },
		"penalty > 1":          func(c *Config) { c.IncorrectPenalty = 1.2 },
		"negative prereq rate": func(c *Config) { c.PrereqRate = -0.1 },
		"zero decay unit":      func(c *Config) { c.DecayUnit = 0 },
	}
	for name, mutate := range mutations {
		cfg := DefaultConfig()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestAnchor(t *testing.T) {
	m := NewModel(DefaultConfig())
	last := t0
	tests := []struct {
		name   string
		v      float64
		last   *time.Time
		now    time.Time
		want   float64 // effective strength at now after anchoring
		stored float64
	}{
		{"never practiced stores as is", 0.4, nil, t0.Add(72 * time.Hour), 0.4, 0.4},
		{"locked stays locked", Locked, &last, t0.Add(72 * time.Hour), Locked, Locked},
		{"zero elapsed", 0.5, &last, t0, 0.5, 0.5},
		{"three days", 0.5, &last, t0.Add(72 * time.Hour), 0.5, 0.5 * math.Exp(0.3)},
		{"capped at one", 0.9, &last, t0.Add(30 * 24 * time.Hour), math.Exp(-3), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stored := m.Anchor(tt.v, 0.1, tt.last, tt.now)
			if math.Abs(stored-tt.stored) > eps {
				t.Errorf("Anchor = %f, want %f", stored, tt.stored)
			}
			st := SkillState{MemoryStrength: stored, LastPracticeTime: tt.last}
			if got := m.Effective(st, 0.1, tt.now); math.Abs(got-tt.want) > eps {
				t.Errorf("Effective after Anchor = %f, want %f", got, tt.want)
			}
		})
	}
}
