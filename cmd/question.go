package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/dash/internal/questions"
	"github.com/abhisek/dash/internal/skillgraph"
)

var questionCmd = &cobra.Command{
	Use:   "question",
	Short: "Manage the question bank",
}

var questionImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Add or replace questions from a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		qs, err := questions.ReadFile(args[0])
		if err != nil {
			return err
		}

		s, _, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := cmd.Context()
		c, err := skillgraph.Load(ctx, s.SkillRepo())
		if err != nil {
			return fmt.Errorf("%w\nimport a catalog before importing questions", err)
		}
		if err := questions.CheckSkills(qs, c); err != nil {
			return err
		}
		if err := s.QuestionRepo().Upsert(ctx, qs); err != nil {
			return fmt.Errorf("store questions: %w", err)
		}
		fmt.Printf("Imported %d questions.\n", len(qs))
		return nil
	},
}

var questionShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a question and its skill tags",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, _, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		q, err := s.QuestionRepo().Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("ID:     %s\n", q.ID)
		fmt.Printf("Skills: %v\n", q.SkillIDs)
		fmt.Printf("\n%s\n", q.Prompt)
		return nil
	},
}

func init() {
	questionCmd.AddCommand(questionImportCmd)
	questionCmd.AddCommand(questionShowCmd)
}
