// Package engine runs the learner-facing operations. Each call serializes on
// the student, loads their state, computes on a copy with the pure scheduler
// and attempt packages, and saves the result once.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/abhisek/dash/internal/attempt"
	"github.com/abhisek/dash/internal/cascade"
	"github.com/abhisek/dash/internal/config"
	"github.com/abhisek/dash/internal/errs"
	"github.com/abhisek/dash/internal/learner"
	"github.com/abhisek/dash/internal/lock"
	"github.com/abhisek/dash/internal/mastery"
	"github.com/abhisek/dash/internal/metrics"
	"github.com/abhisek/dash/internal/scheduler"
	"github.com/abhisek/dash/internal/skillgraph"
	"github.com/abhisek/dash/internal/store"
)

// Options configures an Engine. Zero values get defaults.
type Options struct {
	Tuning       config.Tuning
	HistoryLimit int

	// Locker serializes operations per student. Defaults to an in-process
	// lock.KeyedMutex.
	Locker lock.Locker

	// Events receives every processed attempt. Optional.
	Events store.EventRepo

	Metrics *metrics.Metrics
	Logger  *slog.Logger

	// Now is the clock. Defaults to time.Now in UTC.
	Now func() time.Time
}

// Engine wires the catalog, the learner and question stores, and the
// per-student lock.
type Engine struct {
	catalog   *skillgraph.Ref
	learners  store.LearnerRepo
	questions scheduler.QuestionFinder

	tuning       config.Tuning
	historyLimit int
	locker       lock.Locker
	events       store.EventRepo
	metrics      *metrics.Metrics
	logger       *slog.Logger
	now          func() time.Time
}

// New creates an Engine.
func New(catalog *skillgraph.Ref, learners store.LearnerRepo, questions scheduler.QuestionFinder, opts Options) (*Engine, error) {
	if catalog == nil || catalog.Load() == nil {
		return nil, &errs.ConfigurationError{Problems: []string{"no skill catalog loaded"}}
	}
	if learners == nil || questions == nil {
		return nil, &errs.ConfigurationError{Problems: []string{"learner and question stores are required"}}
	}

	if opts.Tuning == (config.Tuning{}) {
		opts.Tuning = config.Default().Tuning
	}
	t := opts.Tuning
	var problems []string
	for _, c := range []struct {
		name string
		err  error
	}{
		{"memory", t.Memory.Validate()},
		{"cascade", t.Cascade.Validate()},
		{"scheduler", t.Scheduler.Validate()},
	} {
		if c.err != nil {
			problems = append(problems, c.name+": "+c.err.Error())
		}
	}
	if len(problems) > 0 {
		return nil, &errs.ConfigurationError{Problems: problems}
	}

	e := &Engine{
		catalog:      catalog,
		learners:     learners,
		questions:    questions,
		tuning:       t,
		historyLimit: opts.HistoryLimit,
		locker:       opts.Locker,
		events:       opts.Events,
		metrics:      opts.Metrics,
		logger:       opts.Logger,
		now:          opts.Now,
	}
	if e.locker == nil {
		e.locker = lock.NewKeyedMutex()
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.now == nil {
		e.now = func() time.Time { return time.Now().UTC() }
	}
	return e, nil
}

// Catalog returns the catalog currently in use.
func (e *Engine) Catalog() *skillgraph.Catalog {
	return e.catalog.Load()
}

// ReloadCatalog rebuilds the catalog from src and swaps it in. Requests
// already running keep the catalog they started with. On failure the
// current catalog stays.
func (e *Engine) ReloadCatalog(ctx context.Context, src skillgraph.Source) (*skillgraph.Catalog, error) {
	c, err := e.catalog.Reload(ctx, src)
	if err != nil {
		e.metrics.ObserveCatalog(0, err)
		e.logger.Error("catalog reload failed", slog.Any("error", err))
		return nil, err
	}
	e.metrics.ObserveCatalog(c.Len(), nil)
	e.logger.Info("catalog reloaded", slog.Int("skills", c.Len()))
	return c, nil
}

// components is the computation stack bound to one catalog snapshot.
type components struct {
	catalog   *skillgraph.Catalog
	scheduler *scheduler.Scheduler
	processor *attempt.Processor
}

func (e *Engine) components() components {
	cat := e.catalog.Load()
	model := mastery.NewModel(e.tuning.Memory)
	sched := scheduler.New(cat, model, e.tuning.Scheduler)
	resolver := cascade.NewResolver(cat, e.tuning.Cascade)
	return components{
		catalog:   cat,
		scheduler: sched,
		processor: attempt.NewProcessor(cat, model, resolver, sched, e.historyLimit),
	}
}

// Enroll cold-starts a new learner at grade. It fails with errs.ErrConflict
// if the student already exists.
func (e *Engine) Enroll(ctx context.Context, studentID string, grade skillgraph.Grade) (*learner.State, error) {
	const op = "enroll"
	if err := validateEnroll(studentID, grade); err != nil {
		return nil, e.fail(op, err)
	}

	unlock, err := e.locker.Lock(ctx, studentID)
	if err != nil {
		return nil, e.fail(op, fmt.Errorf("lock student %s: %w", studentID, err))
	}
	defer unlock()

	st, err := e.enroll(ctx, e.components(), studentID, grade)
	if err != nil {
		return nil, e.fail(op, err)
	}
	return st, nil
}

// EnsureLearner loads the learner, cold-starting them at grade if they do
// not exist yet. created reports whether a cold start happened.
func (e *Engine) EnsureLearner(ctx context.Context, studentID string, grade skillgraph.Grade) (st *learner.State, created bool, err error) {
	const op = "ensure_learner"
	if err := validateEnroll(studentID, grade); err != nil {
		return nil, false, e.fail(op, err)
	}

	unlock, err := e.locker.Lock(ctx, studentID)
	if err != nil {
		return nil, false, e.fail(op, fmt.Errorf("lock student %s: %w", studentID, err))
	}
	defer unlock()

	st, err = e.learners.Load(ctx, studentID)
	switch {
	case err == nil:
		return st, false, nil
	case !errors.Is(err, errs.ErrNotFound):
		return nil, false, e.fail(op, err)
	}

	st, err = e.enroll(ctx, e.components(), studentID, grade)
	if err != nil {
		return nil, false, e.fail(op, err)
	}
	return st, true, nil
}

func (e *Engine) enroll(ctx context.Context, c components, studentID string, grade skillgraph.Grade) (*learner.State, error) {
	st := c.scheduler.ColdStart(studentID, grade, e.now())
	if err := e.learners.Create(ctx, st); err != nil {
		return nil, fmt.Errorf("create learner %s: %w", studentID, err)
	}
	e.metrics.ObserveEnroll(grade.String())
	e.logger.Info("cold start",
		slog.String("student_id", studentID),
		slog.String("grade", grade.String()),
		slog.Int("skills", len(st.Skills)))
	return st, nil
}

// NextQuestion selects the learner's next question. An exhausted search is
// not an error: the outcome has a nil Question. Grade unlocks made while
// searching are saved either way.
func (e *Engine) NextQuestion(ctx context.Context, studentID string) (*scheduler.Outcome, error) {
	const op = "next_question"
	start := time.Now()

	unlock, err := e.locker.Lock(ctx, studentID)
	if err != nil {
		return nil, e.fail(op, fmt.Errorf("lock student %s: %w", studentID, err))
	}
	defer unlock()

	stored, err := e.learners.Load(ctx, studentID)
	if err != nil {
		return nil, e.fail(op, err)
	}

	c := e.components()
	now := e.now()
	st := stored.Clone()
	added := c.scheduler.Reconcile(st)

	out, err := c.scheduler.Next(ctx, st, e.questions, now)
	if err != nil {
		return nil, e.fail(op, err)
	}

	if len(added) > 0 || len(out.Unlocks) > 0 {
		if err := e.learners.Save(ctx, st); err != nil {
			return nil, e.fail(op, fmt.Errorf("save learner %s: %w", studentID, err))
		}
	}

	for _, u := range out.Unlocks {
		e.logUnlock(studentID, u)
	}
	e.metrics.ObserveSelection(!out.Exhausted(), time.Since(start))
	if out.Exhausted() {
		e.logger.Info("no question available",
			slog.String("student_id", studentID),
			slog.String("grade", st.Grade.String()))
	} else {
		e.logger.Debug("question selected",
			slog.String("student_id", studentID),
			slog.String("question_id", out.Question.ID),
			slog.String("skill_id", out.Skill.ID),
			slog.Float64("strength", out.Strength))
	}
	return out, nil
}

// SubmitAnswer applies an attempt to the learner and saves the result. The
// stored state is untouched unless every update succeeds.
func (e *Engine) SubmitAnswer(ctx context.Context, a attempt.Attempt) (*attempt.Result, error) {
	const op = "submit_answer"
	start := time.Now()

	if err := a.Validate(); err != nil {
		return nil, e.fail(op, err)
	}

	unlock, err := e.locker.Lock(ctx, a.StudentID)
	if err != nil {
		return nil, e.fail(op, fmt.Errorf("lock student %s: %w", a.StudentID, err))
	}
	defer unlock()

	stored, err := e.learners.Load(ctx, a.StudentID)
	if err != nil {
		return nil, e.fail(op, err)
	}

	c := e.components()
	now := e.now()
	st := stored.Clone()
	c.scheduler.Reconcile(st)

	res, err := c.processor.Process(st, a, now)
	if err != nil {
		return nil, e.fail(op, err)
	}
	if err := e.learners.Save(ctx, st); err != nil {
		return nil, e.fail(op, fmt.Errorf("save learner %s: %w", a.StudentID, err))
	}

	e.recordAnswer(ctx, st, a, res, now)

	e.metrics.ObserveAttempt(a.Correct, len(res.Updates), time.Since(start))
	for _, u := range res.Updates {
		e.metrics.ObserveUpdate(updateLabel(u))
	}
	e.logger.Info("attempt processed",
		slog.String("student_id", a.StudentID),
		slog.String("question_id", a.QuestionID),
		slog.Bool("correct", a.Correct),
		slog.Int("affected", len(res.Updates)))
	if res.Unlock != nil {
		e.logUnlock(a.StudentID, *res.Unlock)
	}
	return res, nil
}

// Progress reports the learner's standing. It does not modify stored state.
func (e *Engine) Progress(ctx context.Context, studentID string) (scheduler.Progress, error) {
	const op = "progress"
	stored, err := e.learners.Load(ctx, studentID)
	if err != nil {
		return scheduler.Progress{}, e.fail(op, err)
	}
	c := e.components()
	st := stored.Clone()
	c.scheduler.Reconcile(st)
	return c.scheduler.Progress(st, e.now()), nil
}

// recordAnswer appends the attempt to the event log. The saved learner
// state is authoritative, so a failure here is logged and dropped.
func (e *Engine) recordAnswer(ctx context.Context, st *learner.State, a attempt.Attempt, res *attempt.Result, now time.Time) {
	if e.events == nil {
		return
	}
	data := store.AnswerEventData{
		StudentID:    a.StudentID,
		QuestionID:   a.QuestionID,
		SkillIDs:     a.Targets(),
		Correct:      a.Correct,
		ResponseTime: a.ResponseTime,
		Affected:     len(res.Updates),
		Grade:        st.Grade,
		Timestamp:    now,
	}
	if res.Unlock != nil {
		g := res.Unlock.To
		data.UnlockedGrade = &g
	}
	if err := e.events.AppendAnswerEvent(ctx, data); err != nil {
		e.logger.Warn("failed to record answer event",
			slog.String("student_id", a.StudentID),
			slog.String("question_id", a.QuestionID),
			slog.Any("error", err))
	}
}

func (e *Engine) logUnlock(studentID string, u scheduler.GradeUnlock) {
	e.metrics.ObserveUnlock(u.To.String())
	e.logger.Info("grade unlocked",
		slog.String("student_id", studentID),
		slog.String("from", u.From.String()),
		slog.String("to", u.To.String()),
		slog.Int("skills", len(u.Unlocked)))
}

// fail counts err against op and returns it unchanged.
func (e *Engine) fail(op string, err error) error {
	e.metrics.ObserveError(op, errorKind(err))
	return err
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return "not_found"
	case errors.Is(err, errs.ErrValidation):
		return "validation"
	case errors.Is(err, errs.ErrConflict):
		return "conflict"
	case errors.Is(err, errs.ErrConfiguration):
		return "configuration"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded), errors.Is(err, lock.ErrNotAcquired):
		return "canceled"
	default:
		return "internal"
	}
}

func updateLabel(u attempt.Update) string {
	if u.Source == attempt.SourceCascade {
		return string(u.Category)
	}
	return string(u.Source)
}

func validateEnroll(studentID string, grade skillgraph.Grade) error {
	if studentID == "" {
		return errs.Invalid("student_id", "must not be empty")
	}
	if !grade.Valid() {
		return errs.Invalid("grade", "%d is outside K..12", grade)
	}
	return nil
}
