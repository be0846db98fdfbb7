package store

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

// Table names.
const (
	learnersTable      = "learners"
	skillsTable        = "skills"
	questionsTable     = "questions"
	questionSkillTable = "question_skills"
	answerEventsTable  = "answer_events"
	sequenceTable      = "global_sequence"
)

var (
	// learnersColumns holds the columns for the "learners" table.
	learnersColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Unique: true},
		{Name: "grade", Type: field.TypeInt},
		{Name: "state", Type: field.TypeString, Size: 2147483647},
		{Name: "version", Type: field.TypeInt64, Default: 1},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "updated_at", Type: field.TypeTime},
	}
	// learnersTableSchema holds the schema information for the "learners" table.
	learnersTableSchema = &schema.Table{
		Name:       learnersTable,
		Columns:    learnersColumns,
		PrimaryKey: []*schema.Column{learnersColumns[0]},
	}

	// skillsColumns holds the columns for the "skills" table.
	skillsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Unique: true},
		{Name: "name", Type: field.TypeString, Default: ""},
		{Name: "grade", Type: field.TypeInt},
		{Name: "prerequisites", Type: field.TypeString, Default: "[]"},
		{Name: "forgetting_rate", Type: field.TypeFloat64},
		{Name: "difficulty", Type: field.TypeFloat64, Default: 0},
	}
	// skillsTableSchema holds the schema information for the "skills" table.
	skillsTableSchema = &schema.Table{
		Name:       skillsTable,
		Columns:    skillsColumns,
		PrimaryKey: []*schema.Column{skillsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "skill_grade", Unique: false, Columns: []*schema.Column{skillsColumns[2]}},
		},
	}

	// questionsColumns holds the columns for the "questions" table.
	questionsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Unique: true},
		{Name: "prompt", Type: field.TypeString, Size: 2147483647, Default: ""},
		{Name: "created_at", Type: field.TypeTime},
	}
	// questionsTableSchema holds the schema information for the "questions" table.
	questionsTableSchema = &schema.Table{
		Name:       questionsTable,
		Columns:    questionsColumns,
		PrimaryKey: []*schema.Column{questionsColumns[0]},
	}

	// questionSkillsColumns holds the columns for the "question_skills" table.
	questionSkillsColumns = []*schema.Column{
		{Name: "question_id", Type: field.TypeString},
		{Name: "skill_id", Type: field.TypeString},
	}
	// questionSkillsTableSchema holds the schema information for the "question_skills" table.
	questionSkillsTableSchema = &schema.Table{
		Name:       questionSkillTable,
		Columns:    questionSkillsColumns,
		PrimaryKey: []*schema.Column{questionSkillsColumns[0], questionSkillsColumns[1]},
		Indexes: []*schema.Index{
			{Name: "questionskill_skill_id_question_id", Unique: false, Columns: []*schema.Column{questionSkillsColumns[1], questionSkillsColumns[0]}},
		},
	}

	// answerEventsColumns holds the columns for the "answer_events" table.
	answerEventsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Unique: true},
		{Name: "sequence", Type: field.TypeInt64, Unique: true},
		{Name: "timestamp", Type: field.TypeTime},
		{Name: "student_id", Type: field.TypeString},
		{Name: "question_id", Type: field.TypeString},
		{Name: "skill_ids", Type: field.TypeString},
		{Name: "correct", Type: field.TypeBool},
		{Name: "time_ms", Type: field.TypeInt64},
		{Name: "affected", Type: field.TypeInt},
		{Name: "grade", Type: field.TypeInt},
		{Name: "unlocked_grade", Type: field.TypeInt, Nullable: true},
	}
	// answerEventsTableSchema holds the schema information for the "answer_events" table.
	answerEventsTableSchema = &schema.Table{
		Name:       answerEventsTable,
		Columns:    answerEventsColumns,
		PrimaryKey: []*schema.Column{answerEventsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "answerevent_student_id_sequence", Unique: false, Columns: []*schema.Column{answerEventsColumns[3], answerEventsColumns[1]}},
			{Name: "answerevent_question_id", Unique: false, Columns: []*schema.Column{answerEventsColumns[4]}},
		},
	}

	// globalSequenceColumns holds the columns for the "global_sequence" table.
	globalSequenceColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Unique: true},
		{Name: "next_val", Type: field.TypeInt64, Default: 1},
	}
	// globalSequenceTableSchema holds the schema information for the "global_sequence" table.
	globalSequenceTableSchema = &schema.Table{
		Name:       sequenceTable,
		Columns:    globalSequenceColumns,
		PrimaryKey: []*schema.Column{globalSequenceColumns[0]},
	}

	// tables holds all the tables in the schema.
	tables = []*schema.Table{
		learnersTableSchema,
		skillsTableSchema,
		questionsTableSchema,
		questionSkillsTableSchema,
		answerEventsTableSchema,
		globalSequenceTableSchema,
	}
)

// migrate creates or extends every table in append-only mode.
func migrate(ctx context.Context, drv dialect.Driver) error {
	m, err := schema.NewMigrate(drv)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	return m.Create(ctx, tables...)
}
