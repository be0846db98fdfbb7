package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/dash/internal/mastery"
	"github.com/abhisek/dash/internal/store"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show a learner's progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		student, _ := cmd.Flags().GetString("student")
		limit, _ := cmd.Flags().GetInt("events")

		rt, err := openRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.close()

		ctx := cmd.Context()
		p, err := rt.engine.Progress(ctx, student)
		if err != nil {
			return err
		}

		fmt.Printf("Student %s, grade %s\n", p.StudentID, p.Grade)
		fmt.Printf("Answered %d (%.0f%% correct), %d skills ready to practice\n\n",
			p.Answered, 100*p.Accuracy(), p.Candidates)

		phases := []mastery.Phase{mastery.PhaseLocked, mastery.PhaseReady, mastery.PhasePracticing, mastery.PhaseMastered}

		// Header.
		fmt.Printf("%5s  %5s", "Grade", "Total")
		for _, ph := range phases {
			fmt.Printf("  %s %-10s", ph.Icon(), ph)
		}
		fmt.Printf("  %s\n", "Mean")
		fmt.Println(strings.Repeat("─", 80))
		for _, g := range p.Grades {
			fmt.Printf("%5s  %5d", g.Grade, g.Total)
			for _, ph := range phases {
				fmt.Printf("  %-13d", g.Phases[ph])
			}
			fmt.Printf("  %.2f\n", g.MeanStrength)
		}

		if len(p.Weakest) > 0 {
			fmt.Println("\nWeakest skills:")
			for _, c := range p.Weakest {
				fmt.Printf("  %-24s  %.3f\n", c.Skill.ID, c.Strength)
			}
		}

		if limit <= 0 {
			return nil
		}
		events, err := rt.store.EventRepo().QueryAnswerEvents(ctx, student, store.QueryOpts{})
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}
		if len(events) > limit {
			events = events[len(events)-limit:]
		}
		fmt.Println("\nRecent answers:")
		for _, e := range events {
			ok := "✓"
			if !e.Correct {
				ok = "✗"
			}
			fmt.Printf("  %-5d  %-19s  %-20s  %s  %6s  %3d affected\n",
				e.Sequence,
				e.Timestamp.Local().Format("2006-01-02 15:04:05"),
				e.QuestionID,
				ok,
				e.ResponseTime,
				e.Affected,
			)
		}
		return nil
	},
}

func init() {
	statsCmd.Flags().String("student", "", "Student id")
	statsCmd.Flags().Int("events", 10, "Number of recent answers to show (0 to hide)")
	statsCmd.MarkFlagRequired("student")
}
