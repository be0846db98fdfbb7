package cmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/dash/internal/errs"
	"github.com/abhisek/dash/internal/store"
)

const testCatalog = `
skills:
  - {id: math_2_1.1.1.1, grade_level: 2, forgetting_rate: 0.1}
  - {id: math_3_1.1.1.1, grade_level: 3, forgetting_rate: 0.1, name: Add within 100}
  - {id: math_4_1.1.1.1, grade_level: 4, forgetting_rate: 0.1}
`

const testQuestions = `
questions:
  - id: q1
    prompt: "45 + 38 = ?"
    skills: [math_3_1.1.1.1]
`

func execute(args ...string) error {
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(context.Background())
}

func writeTemp(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestCLIPracticeFlow(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "dash.db")
	catalog := writeTemp(t, dir, "catalog.yaml", testCatalog)
	bank := writeTemp(t, dir, "questions.yaml", testQuestions)

	require.NoError(t, execute("catalog", "validate", catalog))
	require.NoError(t, execute("--db", db, "catalog", "import", catalog))
	require.NoError(t, execute("--db", db, "catalog", "list", "--grade", "3"))
	require.NoError(t, execute("--db", db, "question", "import", bank))
	require.NoError(t, execute("--db", db, "question", "show", "q1"))
	require.NoError(t, execute("--db", db, "learner", "enroll", "--student", "s1", "--grade", "3"))
	require.NoError(t, execute("--db", db, "learner", "list"))

	require.NoError(t, execute("--db", db, "next", "--student", "s1"))
	require.NoError(t, execute("--db", db, "answer", "--student", "s1", "--question", "q1", "--correct", "yes", "--time", "4s"))

	err := execute("--db", db, "next", "--student", "s1")
	assert.True(t, errors.Is(err, errs.ErrNoQuestionAvailable), "got %v", err)

	require.NoError(t, execute("--db", db, "stats", "--student", "s1"))

	s, err := store.Open(db)
	require.NoError(t, err)
	defer s.Close()
	st, err := s.LearnerRepo().Load(context.Background(), "s1")
	require.NoError(t, err)
	assert.InDelta(t, 0.3, st.Skills["math_3_1.1.1.1"].MemoryStrength, 1e-9)
	assert.InDelta(t, 0.903, st.Skills["math_2_1.1.1.1"].MemoryStrength, 1e-9)
	assert.Len(t, st.History, 1)
}

func TestCLIRejectsBadInput(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "dash.db")
	catalog := writeTemp(t, dir, "catalog.yaml", testCatalog)
	require.NoError(t, execute("--db", db, "catalog", "import", catalog))

	broken := writeTemp(t, dir, "broken.yaml", "skills:\n  - {id: math_3_1.1.1.1, grade_level: 3, forgetting_rate: 0.1, prerequisites: [math_2_9.9.9.9]}\n")
	err := execute("--db", db, "catalog", "import", broken)
	assert.True(t, errors.Is(err, errs.ErrConfiguration), "got %v", err)

	unknown := writeTemp(t, dir, "unknown.yaml", "questions:\n  - {id: q9, prompt: p, skills: [math_5_1.1.1.1]}\n")
	err = execute("--db", db, "question", "import", unknown)
	assert.True(t, errors.Is(err, errs.ErrConfiguration), "got %v", err)

	err = execute("--db", db, "learner", "enroll", "--student", "s2", "--grade", "13")
	assert.Error(t, err)

	err = execute("--db", db, "stats", "--student", "nobody")
	assert.True(t, errors.Is(err, errs.ErrNotFound), "got %v", err)
}

func TestCLIWritesMetricsTextfile(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "dash.db")
	out := filepath.Join(dir, "dash.prom")
	catalog := writeTemp(t, dir, "catalog.yaml", testCatalog)
	bank := writeTemp(t, dir, "questions.yaml", testQuestions)

	require.NoError(t, execute("--db", db, "catalog", "import", catalog))
	require.NoError(t, execute("--db", db, "question", "import", bank))
	require.NoError(t, execute("--db", db, "learner", "enroll", "--student", "m1", "--grade", "3"))
	t.Cleanup(func() { rootCmd.PersistentFlags().Set("metrics-textfile", "") })
	require.NoError(t, execute("--db", db, "--metrics-textfile", out,
		"answer", "--student", "m1", "--question", "q1", "--correct", "yes", "--time", "4s"))

	body, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(body), `dash_attempt_processed_total{correct="true"}`)
}
