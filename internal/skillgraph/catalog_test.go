package skillgraph

import (
	"errors"
	"testing"

	"github.com/abhisek/dash/internal/errs"
)

func testSkills() []Skill {
	return []Skill{
		{ID: "math_3_1.2.3.2", Grade: 3, ForgettingRate: 0.1},
		{ID: "math_3_1.2.3.1", Grade: 3, ForgettingRate: 0.1},
		{ID: "math_3_1.2.4.1", Grade: 3, ForgettingRate: 0.1},
		{ID: "math_3_2.1.1.1", Grade: 3, ForgettingRate: 0.1, Prerequisites: []string{"math_2_1.2.3.1"}},
		{ID: "math_2_1.2.3.1", Grade: 2, ForgettingRate: 0.1},
		{ID: "ela_3_1.2.3.1", Grade: 3, ForgettingRate: 0.1},
		{ID: "math_4_1.2.3.1", Grade: 4, ForgettingRate: 0.1, Prerequisites: []string{"math_3_1.2.3.2"}},
	}
}

func TestNew_OrdersByGradeThenID(t *testing.T) {
	c := MustNew(testSkills())
	all := c.All()
	if len(all) != 7 {
		t.Fatalf("All() len = %d, want 7", len(all))
	}
	for i := 1; i < len(all); i++ {
		prev, cur := all[i-1], all[i]
		if cur.Grade < prev.Grade || (cur.Grade == prev.Grade && cur.ID < prev.ID) {
			t.Errorf("skill %q (grade %v) appears after %q (grade %v)", cur.ID, cur.Grade, prev.ID, prev.Grade)
		}
	}
}

func TestNew_ParsesPaths(t *testing.T) {
	c := MustNew(testSkills())
	s, ok := c.Get("math_3_1.2.3.2")
	if !ok {
		t.Fatal("expected skill to exist")
	}
	if s.Subject() != "math" || s.Path.Concept() != "1.2.3" {
		t.Errorf("path = %+v, want subject math concept 1.2.3", s.Path)
	}
}

func TestNew_DoesNotAliasInput(t *testing.T) {
	in := testSkills()
	c := MustNew(in)
	in[3].Prerequisites[0] = "mutated"

	s, _ := c.Get("math_3_2.1.1.1")
	if s.Prerequisites[0] != "math_2_1.2.3.1" {
		t.Errorf("catalog prerequisites changed with input slice: %v", s.Prerequisites)
	}
}

func TestSkill_NotFound(t *testing.T) {
	c := MustNew(testSkills())
	_, err := c.Skill("nonexistent")
	if !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("Skill(nonexistent) err = %v, want ErrNotFound", err)
	}
}

func TestGroups(t *testing.T) {
	c := MustNew(testSkills())

	tests := []struct {
		name string
		got  []Skill
		want []string
	}{
		{"concept", c.PrefixGroup("math", 3, "1.2.3"), []string{"math_3_1.2.3.1", "math_3_1.2.3.2"}},
		{"topic", c.PrefixGroup("math", 3, "1.2"), []string{"math_3_1.2.3.1", "math_3_1.2.3.2", "math_3_1.2.4.1"}},
		{"grade", c.GradeGroup("math", 3), []string{"math_3_1.2.3.1", "math_3_1.2.3.2", "math_3_1.2.4.1", "math_3_2.1.1.1"}},
		{"lower grade concept", c.PrefixGroup("math", 2, "1.2.3"), []string{"math_2_1.2.3.1"}},
		{"other subject", c.GradeGroup("ela", 3), []string{"ela_3_1.2.3.1"}},
		{"empty prefix", c.PrefixGroup("math", 3, ""), nil},
		{"missing grade", c.GradeGroup("math", 9), nil},
	}
	for _, tt := range tests {
		if len(tt.got) != len(tt.want) {
			t.Errorf("%s: got %d skills, want %d", tt.name, len(tt.got), len(tt.want))
			continue
		}
		for i, s := range tt.got {
			if s.ID != tt.want[i] {
				t.Errorf("%s[%d] = %q, want %q", tt.name, i, s.ID, tt.want[i])
			}
		}
	}
}

func TestByGradeAndGrades(t *testing.T) {
	c := MustNew(testSkills())
	if n := len(c.ByGrade(3)); n != 5 {
		t.Errorf("ByGrade(3) = %d skills, want 5", n)
	}
	grades := c.Grades()
	want := []Grade{2, 3, 4}
	if len(grades) != len(want) {
		t.Fatalf("Grades() = %v, want %v", grades, want)
	}
	for i := range want {
		if grades[i] != want[i] {
			t.Errorf("Grades()[%d] = %v, want %v", i, grades[i], want[i])
		}
	}
}

func TestPrerequisites(t *testing.T) {
	c := MustNew(testSkills())

	prereqs := c.Prerequisites("math_4_1.2.3.1")
	if len(prereqs) != 1 || prereqs[0].ID != "math_3_1.2.3.2" {
		t.Errorf("Prerequisites = %v, want [math_3_1.2.3.2]", prereqs)
	}
	if c.Prerequisites("nonexistent") != nil {
		t.Error("Prerequisites(nonexistent) should be nil")
	}
}
