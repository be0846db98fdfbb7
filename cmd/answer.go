package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/dash/internal/attempt"
)

var answerCmd = &cobra.Command{
	Use:   "answer",
	Short: "Record a learner's answer and update their skill strengths",
	RunE: func(cmd *cobra.Command, args []string) error {
		student, _ := cmd.Flags().GetString("student")
		questionID, _ := cmd.Flags().GetString("question")
		skills, _ := cmd.Flags().GetStringSlice("skills")
		correctFlag, _ := cmd.Flags().GetString("correct")
		rt, _ := cmd.Flags().GetDuration("time")

		correct, err := attempt.ParseCorrectness(correctFlag)
		if err != nil {
			return err
		}

		r, err := openRuntime(cmd)
		if err != nil {
			return err
		}
		defer r.close()

		ctx := cmd.Context()
		if len(skills) == 0 {
			q, err := r.store.QuestionRepo().Get(ctx, questionID)
			if err != nil {
				return fmt.Errorf("%w\npass --skills for questions outside the bank", err)
			}
			skills = q.SkillIDs
		}

		res, err := r.engine.SubmitAnswer(ctx, attempt.Attempt{
			StudentID:    student,
			QuestionID:   questionID,
			SkillIDs:     skills,
			Correct:      correct,
			ResponseTime: rt,
		})
		if err != nil {
			return err
		}

		// Header.
		fmt.Printf("%-24s  %-20s  %6s  %6s  %7s\n", "Skill", "Source", "Before", "After", "Delta")
		fmt.Println(strings.Repeat("─", 72))
		for _, u := range res.Updates {
			src := string(u.Source)
			if u.Source == attempt.SourceCascade {
				src = string(u.Category)
			}
			fmt.Printf("%-24s  %-20s  %6.3f  %6.3f  %+7.3f\n", u.SkillID, src, u.Before, u.After, u.Delta())
		}
		fmt.Printf("\n%d skills updated (%d applications)\n", len(res.Updates), res.Applications)
		if res.Unlock != nil {
			fmt.Printf("Grade %s unlocked (%d new skills).\n", res.Unlock.To, len(res.Unlock.Unlocked))
		}
		return nil
	},
}

func init() {
	answerCmd.Flags().String("student", "", "Student id")
	answerCmd.Flags().String("question", "", "Question id")
	answerCmd.Flags().StringSlice("skills", nil, "Skills the question targets (default: the question's tags)")
	answerCmd.Flags().String("correct", "", "Whether the answer was correct (yes/no, true/false, 1/0)")
	answerCmd.Flags().Duration("time", 5*time.Second, "Response time")
	answerCmd.MarkFlagRequired("student")
	answerCmd.MarkFlagRequired("question")
	answerCmd.MarkFlagRequired("correct")
}
