package store

import (
	"context"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/dash/internal/errs"
	"github.com/abhisek/dash/internal/scheduler"
)

// questionRepo implements QuestionRepo.
type questionRepo struct {
	drv *entsql.Driver
}

type questionRow struct {
	ID     string `sql:"id"`
	Prompt string `sql:"prompt"`
}

type questionSkillRow struct {
	QuestionID string `sql:"question_id"`
	SkillID    string `sql:"skill_id"`
}

func (r *questionRepo) FindUnseen(ctx context.Context, skillID string, excluded []string) (*scheduler.Question, error) {
	t := builder().Table(questionSkillTable)
	preds := []*entsql.Predicate{entsql.EQ(t.C("skill_id"), skillID)}
	if len(excluded) > 0 {
		args := make([]any, len(excluded))
		for i, id := range excluded {
			args[i] = id
		}
		preds = append(preds, entsql.NotIn(t.C("question_id"), args...))
	}
	sel := builder().Select(t.C("question_id")).
		From(t).
		Where(entsql.And(preds...)).
		OrderBy(t.C("question_id")).
		Limit(1)

	var ids []string
	if err := query(ctx, r.drv, sel, &ids); err != nil {
		return nil, fmt.Errorf("find question for %s: %w", skillID, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return r.get(ctx, r.drv, ids[0])
}

func (r *questionRepo) Get(ctx context.Context, id string) (*scheduler.Question, error) {
	return r.get(ctx, r.drv, id)
}

func (r *questionRepo) get(ctx context.Context, q dialect.ExecQuerier, id string) (*scheduler.Question, error) {
	qt := builder().Table(questionsTable)
	sel := builder().Select(qt.Columns("id", "prompt")...).
		From(qt).
		Where(entsql.EQ(qt.C("id"), id))
	var rows []questionRow
	if err := query(ctx, q, sel, &rows); err != nil {
		return nil, fmt.Errorf("query question %s: %w", id, err)
	}
	if len(rows) == 0 {
		return nil, errs.NotFound("question", id)
	}

	st := builder().Table(questionSkillTable)
	tags := builder().Select(st.C("skill_id")).
		From(st).
		Where(entsql.EQ(st.C("question_id"), id)).
		OrderBy(st.C("skill_id"))
	var skills []string
	if err := query(ctx, q, tags, &skills); err != nil {
		return nil, fmt.Errorf("query skills of question %s: %w", id, err)
	}

	return &scheduler.Question{ID: rows[0].ID, Prompt: rows[0].Prompt, SkillIDs: skills}, nil
}

func (r *questionRepo) Upsert(ctx context.Context, questions []scheduler.Question) error {
	now := time.Now().UTC()
	return withTx(ctx, r.drv, func(tx dialect.Tx) error {
		for _, q := range questions {
			ins := builder().Insert(questionsTable).
				Columns("id", "prompt", "created_at").
				Values(q.ID, q.Prompt, now).
				OnConflict(
					entsql.ConflictColumns("id"),
					entsql.ResolveWith(func(u *entsql.UpdateSet) {
						u.SetExcluded("prompt")
					}),
				)
			if _, err := exec(ctx, tx, ins); err != nil {
				return fmt.Errorf("upsert question %s: %w", q.ID, err)
			}

			del := builder().Delete(questionSkillTable).Where(entsql.EQ("question_id", q.ID))
			if _, err := exec(ctx, tx, del); err != nil {
				return fmt.Errorf("clear skills of question %s: %w", q.ID, err)
			}
			for _, skillID := range q.SkillIDs {
				tag := builder().Insert(questionSkillTable).
					Columns("question_id", "skill_id").
					Values(q.ID, skillID).
					OnConflict(entsql.ConflictColumns("question_id", "skill_id"), entsql.DoNothing())
				if _, err := exec(ctx, tx, tag); err != nil {
					return fmt.Errorf("tag question %s with %s: %w", q.ID, skillID, err)
				}
			}
		}
		return nil
	})
}

func (r *questionRepo) CountBySkill(ctx context.Context) (map[string]int, error) {
	t := builder().Table(questionSkillTable)
	sel := builder().Select(t.C("question_id"), t.C("skill_id")).From(t)

	var rows []questionSkillRow
	if err := query(ctx, r.drv, sel, &rows); err != nil {
		return nil, fmt.Errorf("count questions: %w", err)
	}
	counts := make(map[string]int)
	for _, row := range rows {
		counts[row.SkillID]++
	}
	return counts, nil
}
