// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/coursereq/pkg/types"
)

var queryCmd = &cobra.Command{
	Use:   "query [code]",
	Short: "Show a course's requisites or the courses that require one",
	Long: `Query reads the SQLite index built by store.

  coursereq query "CS 3110"                show the requisite trees of CS 3110
  coursereq query --requires "CS 2800"     list courses that mention CS 2800
  coursereq query --requires "CS 2800" --kind corequisite`,
	Args: cobra.MaximumNArgs(1),
	RunE: runQuery,
}

func runQuery(cmd *cobra.Command, args []string) error {
	requires, _ := cmd.Flags().GetString("requires")
	kind, _ := cmd.Flags().GetString("kind")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	if requires == "" && len(args) == 0 {
		return fmt.Errorf("give a course code or --requires")
	}

	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()
	ctx := context.Background()

	if requires != "" {
		k := types.RequisiteKind(kind)
		switch k {
		case "", types.KindPrerequisite, types.KindCorequisite:
		default:
			return fmt.Errorf("unsupported kind %q: use prerequisite or corequisite", kind)
		}
		courses, err := s.Dependents(ctx, strings.TrimSpace(requires), k)
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeValue(os.Stdout, courses, true)
		}
		for _, c := range courses {
			fmt.Println(c)
		}
		return nil
	}

	r, err := s.Requisites(ctx, strings.TrimSpace(args[0]))
	if err != nil {
		return err
	}
	return writeValue(os.Stdout, r.Result(), jsonOutput)
}

var checkCmd = &cobra.Command{
	Use:   "check <code>",
	Short: "Check whether completed courses satisfy a course's requisites",
	Long: `Check evaluates the stored requisite trees of a course against a list
of completed courses and reports what is still missing. It exits non-zero
when the course is not yet open to the student.

  coursereq check "CS 4820" --completed "CS 2110,CS 2800,CS 3110"`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	completed, _ := cmd.Flags().GetStringSlice("completed")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	result, err := s.Check(context.Background(), strings.TrimSpace(args[0]), completed)
	if err != nil {
		return err
	}
	if err := writeValue(os.Stdout, result, jsonOutput); err != nil {
		return err
	}
	if !result.Eligible() {
		return fmt.Errorf("requisites of %s not satisfied", result.Course)
	}
	return nil
}

func init() {
	queryCmd.Flags().String("requires", "", "list courses whose requisites mention this course")
	queryCmd.Flags().String("kind", "", "restrict --requires to prerequisite or corequisite")
	queryCmd.Flags().Bool("json", false, "output as JSON")

	checkCmd.Flags().StringSlice("completed", nil, "comma-separated completed course codes")
	checkCmd.Flags().Bool("json", false, "output as JSON")

	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(checkCmd)
}
