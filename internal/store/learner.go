package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/dash/internal/errs"
	"github.com/abhisek/dash/internal/learner"
)

// learnerRepo implements LearnerRepo. The full state is stored as one JSON
// document; grade and timestamps are duplicated into columns for listing.
type learnerRepo struct {
	drv *entsql.Driver
}

type learnerRow struct {
	ID        string    `sql:"id"`
	Grade     int       `sql:"grade"`
	State     string    `sql:"state"`
	Version   int64     `sql:"version"`
	CreatedAt time.Time `sql:"created_at"`
	UpdatedAt time.Time `sql:"updated_at"`
}

func (r *learnerRepo) Load(ctx context.Context, studentID string) (*learner.State, error) {
	t := builder().Table(learnersTable)
	sel := builder().Select(t.Columns("id", "grade", "state", "version", "created_at", "updated_at")...).
		From(t).
		Where(entsql.EQ(t.C("id"), studentID))

	var rows []learnerRow
	if err := query(ctx, r.drv, sel, &rows); err != nil {
		return nil, fmt.Errorf("query learner %s: %w", studentID, err)
	}
	if len(rows) == 0 {
		return nil, errs.NotFound("student", studentID)
	}

	var st learner.State
	if err := json.Unmarshal([]byte(rows[0].State), &st); err != nil {
		return nil, fmt.Errorf("decode learner %s: %w", studentID, err)
	}
	st.Version = rows[0].Version
	return &st, nil
}

func (r *learnerRepo) Create(ctx context.Context, st *learner.State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode learner %s: %w", st.StudentID, err)
	}

	ins := builder().Insert(learnersTable).
		Columns("id", "grade", "state", "version", "created_at", "updated_at").
		Values(st.StudentID, int(st.Grade), string(data), 1, st.CreatedAt.UTC(), st.UpdatedAt.UTC()).
		OnConflict(entsql.ConflictColumns("id"), entsql.DoNothing())
	res, err := exec(ctx, r.drv, ins)
	if err != nil {
		return fmt.Errorf("insert learner %s: %w", st.StudentID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("student %q already exists: %w", st.StudentID, errs.ErrConflict)
	}
	st.Version = 1
	return nil
}

func (r *learnerRepo) Save(ctx context.Context, st *learner.State) error {
	if st.Version == 0 {
		return fmt.Errorf("save learner %s: state was never stored: %w", st.StudentID, errs.ErrConflict)
	}
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode learner %s: %w", st.StudentID, err)
	}

	upd := builder().Update(learnersTable).
		Set("grade", int(st.Grade)).
		Set("state", string(data)).
		Set("updated_at", st.UpdatedAt.UTC()).
		Add("version", 1).
		Where(entsql.And(
			entsql.EQ("id", st.StudentID),
			entsql.EQ("version", st.Version),
		))
	res, err := exec(ctx, r.drv, upd)
	if err != nil {
		return fmt.Errorf("update learner %s: %w", st.StudentID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update learner %s: %w", st.StudentID, err)
	}
	if n == 0 {
		return fmt.Errorf("learner %s changed since version %d: %w", st.StudentID, st.Version, errs.ErrConflict)
	}
	st.Version++
	return nil
}

func (r *learnerRepo) List(ctx context.Context) ([]string, error) {
	t := builder().Table(learnersTable)
	sel := builder().Select(t.C("id")).From(t).OrderBy(t.C("id"))

	var ids []string
	if err := query(ctx, r.drv, sel, &ids); err != nil {
		return nil, fmt.Errorf("list learners: %w", err)
	}
	return ids, nil
}
