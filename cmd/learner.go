package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/dash/internal/skillgraph"
)

var learnerCmd = &cobra.Command{
	Use:   "learner",
	Short: "Manage learners",
}

var learnerEnrollCmd = &cobra.Command{
	Use:   "enroll",
	Short: "Create a learner at a starting grade",
	RunE: func(cmd *cobra.Command, args []string) error {
		student, _ := cmd.Flags().GetString("student")
		gradeFlag, _ := cmd.Flags().GetString("grade")
		grade, err := skillgraph.ParseGrade(gradeFlag)
		if err != nil {
			return err
		}

		rt, err := openRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.close()

		st, err := rt.engine.Enroll(cmd.Context(), student, grade)
		if err != nil {
			return err
		}
		fmt.Printf("Enrolled %s at grade %s (%d skills tracked).\n", st.StudentID, st.Grade, len(st.Skills))
		return nil
	},
}

var learnerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List enrolled learners",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, _, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		ids, err := s.LearnerRepo().List(cmd.Context())
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			fmt.Println("No learners enrolled.")
			return nil
		}
		for _, id := range ids {
			fmt.Println(id)
		}
		return nil
	},
}

func init() {
	learnerEnrollCmd.Flags().String("student", "", "Student id")
	learnerEnrollCmd.Flags().String("grade", "", "Starting grade (K, 1..12)")
	learnerEnrollCmd.MarkFlagRequired("student")
	learnerEnrollCmd.MarkFlagRequired("grade")

	learnerCmd.AddCommand(learnerEnrollCmd)
	learnerCmd.AddCommand(learnerListCmd)
}
