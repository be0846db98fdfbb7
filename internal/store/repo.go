package store

import (
	"context"
	"time"

	"github.com/abhisek/dash/internal/learner"
	"github.com/abhisek/dash/internal/scheduler"
	"github.com/abhisek/dash/internal/skillgraph"
)

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit  int       // max results (0 = unlimited)
	After  int64     // sequence > After
	Before int64     // sequence < Before
	From   time.Time // timestamp >= From
	To     time.Time // timestamp <= To
}

// LearnerRepo persists learner states keyed by student id.
type LearnerRepo interface {
	// Load returns the stored state, or an errs.NotFoundError.
	Load(ctx context.Context, studentID string) (*learner.State, error)

	// Create stores a new state. It fails with errs.ErrConflict if the
	// student already exists.
	Create(ctx context.Context, st *learner.State) error

	// Save overwrites a previously loaded state. It fails with
	// errs.ErrConflict if the stored version moved since st was loaded.
	// On success st.Version is advanced.
	Save(ctx context.Context, st *learner.State) error

	// List returns every student id, sorted.
	List(ctx context.Context) ([]string, error)
}

// SkillRepo stores the skill catalog. It is a skillgraph.Source.
type SkillRepo interface {
	LoadSkills(ctx context.Context) ([]skillgraph.Skill, error)

	// ReplaceAll swaps the stored catalog for skills atomically.
	ReplaceAll(ctx context.Context, skills []skillgraph.Skill) error
}

// QuestionRepo stores practice questions and their skill tags.
type QuestionRepo interface {
	// FindUnseen returns the question with the lowest id tagged with
	// skillID and not listed in excluded, or nil if there is none.
	FindUnseen(ctx context.Context, skillID string, excluded []string) (*scheduler.Question, error)

	// Get returns a question by id, or an errs.NotFoundError.
	Get(ctx context.Context, id string) (*scheduler.Question, error)

	// Upsert inserts or replaces questions and their skill tags.
	Upsert(ctx context.Context, questions []scheduler.Question) error

	// CountBySkill returns the number of questions tagged with each skill.
	CountBySkill(ctx context.Context) (map[string]int, error)
}

// AnswerEventData captures one processed attempt.
type AnswerEventData struct {
	StudentID     string
	QuestionID    string
	SkillIDs      []string
	Correct       bool
	ResponseTime  time.Duration
	Affected      int
	Grade         skillgraph.Grade
	UnlockedGrade *skillgraph.Grade
	Timestamp     time.Time
}

// AnswerEvent is a stored AnswerEventData with its identity and ordering.
type AnswerEvent struct {
	ID       string
	Sequence int64
	AnswerEventData
}

// EventRepo provides append and query access to answer events.
type EventRepo interface {
	// AppendAnswerEvent records an attempt in the global sequence.
	AppendAnswerEvent(ctx context.Context, data AnswerEventData) error

	// QueryAnswerEvents returns a student's events in sequence order.
	QueryAnswerEvents(ctx context.Context, studentID string, opts QueryOpts) ([]AnswerEvent, error)
}
