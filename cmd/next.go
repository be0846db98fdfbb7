package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/dash/internal/errs"
	"github.com/abhisek/dash/internal/skillgraph"
)

var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Pick the next question for a learner",
	Long: "Pick the next question for a learner. With --grade, an unknown learner is\n" +
		"enrolled at that grade first. Exits with status 2 when no question is available.",
	RunE: func(cmd *cobra.Command, args []string) error {
		student, _ := cmd.Flags().GetString("student")
		gradeFlag, _ := cmd.Flags().GetString("grade")

		rt, err := openRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.close()

		ctx := cmd.Context()
		if gradeFlag != "" {
			grade, err := skillgraph.ParseGrade(gradeFlag)
			if err != nil {
				return err
			}
			if _, created, err := rt.engine.EnsureLearner(ctx, student, grade); err != nil {
				return err
			} else if created {
				fmt.Printf("Enrolled %s at grade %s.\n", student, grade)
			}
		}

		out, err := rt.engine.NextQuestion(ctx, student)
		if err != nil {
			return err
		}
		for _, u := range out.Unlocks {
			fmt.Printf("Grade %s unlocked (%d new skills).\n", u.To, len(u.Unlocked))
		}
		if out.Exhausted() {
			fmt.Println("No questions available.")
			return errs.ErrNoQuestionAvailable
		}

		q := out.Question
		fmt.Printf("Question: %s\n", q.ID)
		fmt.Printf("Skill:    %s (strength %.2f)\n", out.Skill.ID, out.Strength)
		fmt.Printf("Tags:     %v\n", q.SkillIDs)
		fmt.Printf("\n%s\n", q.Prompt)
		return nil
	},
}

func init() {
	nextCmd.Flags().String("student", "", "Student id")
	nextCmd.Flags().String("grade", "", "Enroll the student at this grade if they are new (K, 1..12)")
	nextCmd.MarkFlagRequired("student")
}
