package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/abhisek/dash/internal/skillgraph"
)

// sequenceCounter manages the global monotonic sequence number assigned to
// every answer event. Event ids are random uuids, so they can't order events;
// the counter gives every event a single increasing position, enabling:
//
//   - Total ordering across students and processes sharing the database
//   - Incremental reads (query for sequence > last seen)
//   - Append-only guarantees (events are never reordered)
//
// The mutex serializes within the process; the RETURNING clause makes the
// increment atomic at the database level.
type sequenceCounter struct {
	mu  sync.Mutex
	drv *entsql.Driver
}

// newSequenceCounter creates a counter and seeds its row.
func newSequenceCounter(ctx context.Context, drv *entsql.Driver) (*sequenceCounter, error) {
	seed := builder().Insert(sequenceTable).
		Columns("id", "next_val").
		Values(1, 1).
		OnConflict(entsql.ConflictColumns("id"), entsql.DoNothing())
	if _, err := exec(ctx, drv, seed); err != nil {
		return nil, fmt.Errorf("seed sequence: %w", err)
	}
	return &sequenceCounter{drv: drv}, nil
}

// Next atomically returns the next sequence number and increments the counter.
func (sc *sequenceCounter) Next(ctx context.Context) (int64, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	stmt, args := builder().Update(sequenceTable).
		Add("next_val", 1).
		Where(entsql.EQ("id", 1)).
		Returning("next_val").
		Query()
	rows := &entsql.Rows{}
	if err := sc.drv.Query(ctx, stmt, args, rows); err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	defer rows.Close()
	next, err := entsql.ScanInt64(rows)
	if err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	return next - 1, nil
}

// eventRepo implements EventRepo.
type eventRepo struct {
	drv *entsql.Driver
	seq *sequenceCounter
}

func (r *eventRepo) AppendAnswerEvent(ctx context.Context, data AnswerEventData) error {
	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	skillIDs, err := json.Marshal(data.SkillIDs)
	if err != nil {
		return fmt.Errorf("marshal skill ids: %w", err)
	}
	var unlocked any
	if data.UnlockedGrade != nil {
		unlocked = int(*data.UnlockedGrade)
	}
	ts := data.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	ins := builder().Insert(answerEventsTable).
		Columns("id", "sequence", "timestamp", "student_id", "question_id", "skill_ids",
			"correct", "time_ms", "affected", "grade", "unlocked_grade").
		Values(uuid.NewString(), seqNum, ts.UTC(), data.StudentID, data.QuestionID, string(skillIDs),
			data.Correct, data.ResponseTime.Milliseconds(), data.Affected, int(data.Grade), unlocked)
	if _, err := exec(ctx, r.drv, ins); err != nil {
		return fmt.Errorf("save answer event: %w", err)
	}
	return nil
}

type answerEventRow struct {
	ID            string    `sql:"id"`
	Sequence      int64     `sql:"sequence"`
	Timestamp     time.Time `sql:"timestamp"`
	StudentID     string    `sql:"student_id"`
	QuestionID    string    `sql:"question_id"`
	SkillIDs      string    `sql:"skill_ids"`
	Correct       bool      `sql:"correct"`
	TimeMs        int64     `sql:"time_ms"`
	Affected      int       `sql:"affected"`
	Grade         int       `sql:"grade"`
	UnlockedGrade *int      `sql:"unlocked_grade"`
}

func (r *eventRepo) QueryAnswerEvents(ctx context.Context, studentID string, opts QueryOpts) ([]AnswerEvent, error) {
	preds := []*entsql.Predicate{entsql.EQ("student_id", studentID)}
	if opts.After > 0 {
		preds = append(preds, entsql.GT("sequence", opts.After))
	}
	if opts.Before > 0 {
		preds = append(preds, entsql.LT("sequence", opts.Before))
	}
	if !opts.From.IsZero() {
		preds = append(preds, entsql.GTE("timestamp", opts.From.UTC()))
	}
	if !opts.To.IsZero() {
		preds = append(preds, entsql.LTE("timestamp", opts.To.UTC()))
	}

	t := builder().Table(answerEventsTable)
	sel := builder().Select(t.Columns(
		"id", "sequence", "timestamp", "student_id", "question_id", "skill_ids",
		"correct", "time_ms", "affected", "grade", "unlocked_grade")...).
		From(t).
		Where(entsql.And(preds...)).
		OrderBy(t.C("sequence"))
	if opts.Limit > 0 {
		sel = sel.Limit(opts.Limit)
	}

	var rows []answerEventRow
	if err := query(ctx, r.drv, sel, &rows); err != nil {
		return nil, fmt.Errorf("query answer events: %w", err)
	}

	events := make([]AnswerEvent, 0, len(rows))
	for _, row := range rows {
		var ids []string
		if err := json.Unmarshal([]byte(row.SkillIDs), &ids); err != nil {
			return nil, fmt.Errorf("decode skill ids of event %s: %w", row.ID, err)
		}
		ev := AnswerEvent{
			ID:       row.ID,
			Sequence: row.Sequence,
			AnswerEventData: AnswerEventData{
				StudentID:    row.StudentID,
				QuestionID:   row.QuestionID,
				SkillIDs:     ids,
				Correct:      row.Correct,
				ResponseTime: time.Duration(row.TimeMs) * time.Millisecond,
				Affected:     row.Affected,
				Grade:        skillgraph.Grade(row.Grade),
				Timestamp:    row.Timestamp,
			},
		}
		if row.UnlockedGrade != nil {
			g := skillgraph.Grade(*row.UnlockedGrade)
			ev.UnlockedGrade = &g
		}
		events = append(events, ev)
	}
	return events, nil
}
