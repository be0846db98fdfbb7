package store

import (
	"context"
	"encoding/json"
	"fmt"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/dash/internal/skillgraph"
)

// skillRepo implements SkillRepo.
type skillRepo struct {
	drv *entsql.Driver
}

type skillRow struct {
	ID             string  `sql:"id"`
	Name           string  `sql:"name"`
	Grade          int     `sql:"grade"`
	Prerequisites  string  `sql:"prerequisites"`
	ForgettingRate float64 `sql:"forgetting_rate"`
	Difficulty     float64 `sql:"difficulty"`
}

func (r *skillRepo) LoadSkills(ctx context.Context) ([]skillgraph.Skill, error) {
	t := builder().Table(skillsTable)
	sel := builder().Select(t.Columns("id", "name", "grade", "prerequisites", "forgetting_rate", "difficulty")...).
		From(t).
		OrderBy(t.C("grade"), t.C("id"))

	var rows []skillRow
	if err := query(ctx, r.drv, sel, &rows); err != nil {
		return nil, fmt.Errorf("query skills: %w", err)
	}

	skills := make([]skillgraph.Skill, 0, len(rows))
	for _, row := range rows {
		var prereqs []string
		if err := json.Unmarshal([]byte(row.Prerequisites), &prereqs); err != nil {
			return nil, fmt.Errorf("decode prerequisites of %s: %w", row.ID, err)
		}
		skills = append(skills, skillgraph.Skill{
			ID:             row.ID,
			Name:           row.Name,
			Grade:          skillgraph.Grade(row.Grade),
			Prerequisites:  prereqs,
			ForgettingRate: row.ForgettingRate,
			Difficulty:     row.Difficulty,
		})
	}
	return skills, nil
}

func (r *skillRepo) ReplaceAll(ctx context.Context, skills []skillgraph.Skill) error {
	return withTx(ctx, r.drv, func(tx dialect.Tx) error {
		if _, err := exec(ctx, tx, builder().Delete(skillsTable)); err != nil {
			return fmt.Errorf("clear skills: %w", err)
		}
		for _, sk := range skills {
			prereqs := sk.Prerequisites
			if prereqs == nil {
				prereqs = []string{}
			}
			data, err := json.Marshal(prereqs)
			if err != nil {
				return fmt.Errorf("encode prerequisites of %s: %w", sk.ID, err)
			}
			ins := builder().Insert(skillsTable).
				Columns("id", "name", "grade", "prerequisites", "forgetting_rate", "difficulty").
				Values(sk.ID, sk.Name, int(sk.Grade), string(data), sk.ForgettingRate, sk.Difficulty)
			if _, err := exec(ctx, tx, ins); err != nil {
				return fmt.Errorf("insert skill %s: %w", sk.ID, err)
			}
		}
		return nil
	})
}
