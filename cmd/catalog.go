package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/dash/internal/skillgraph"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the skill catalog",
}

var catalogImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Validate a catalog file and replace the stored catalog with it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, err := skillgraph.Load(ctx, skillgraph.FileSource{Path: args[0]})
		if err != nil {
			return err
		}

		s, _, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.SkillRepo().ReplaceAll(ctx, c.All()); err != nil {
			return fmt.Errorf("store catalog: %w", err)
		}
		fmt.Printf("Imported %d skills across %d grades.\n", c.Len(), len(c.Grades()))
		return nil
	},
}

var catalogValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check a catalog file without importing it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := skillgraph.Load(cmd.Context(), skillgraph.FileSource{Path: args[0]})
		if err != nil {
			return err
		}
		fmt.Printf("OK: %d skills.\n", c.Len())
		return nil
	},
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored skills (optionally filtered by grade)",
	RunE: func(cmd *cobra.Command, args []string) error {
		gradeFlag, _ := cmd.Flags().GetString("grade")

		s, _, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := cmd.Context()
		c, err := skillgraph.Load(ctx, s.SkillRepo())
		if err != nil {
			return err
		}
		counts, err := s.QuestionRepo().CountBySkill(ctx)
		if err != nil {
			return err
		}

		skills := c.All()
		if gradeFlag != "" {
			g, err := skillgraph.ParseGrade(gradeFlag)
			if err != nil {
				return err
			}
			skills = c.ByGrade(g)
			if len(skills) == 0 {
				return fmt.Errorf("no skills found for grade %s", g)
			}
		}

		// Header.
		fmt.Printf("%-24s  %-32s  %5s  %6s  %9s  %s\n",
			"ID", "Name", "Grade", "Lambda", "Questions", "Prerequisites")
		fmt.Println(strings.Repeat("─", 110))

		for _, sk := range skills {
			name := sk.Name
			if len(name) > 32 {
				name = name[:29] + "..."
			}
			fmt.Printf("%-24s  %-32s  %5s  %6.3f  %9d  %s\n",
				sk.ID, name, sk.Grade, sk.ForgettingRate, counts[sk.ID],
				strings.Join(sk.Prerequisites, ", "))
		}

		fmt.Printf("\n%d skills\n", len(skills))
		return nil
	},
}

func init() {
	catalogListCmd.Flags().String("grade", "", "Filter by grade level (K, 1..12)")

	catalogCmd.AddCommand(catalogImportCmd)
	catalogCmd.AddCommand(catalogValidateCmd)
	catalogCmd.AddCommand(catalogListCmd)
}
