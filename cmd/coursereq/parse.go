// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/coursereq/internal/parse"
	"github.com/pdiddy/coursereq/pkg/types"
)

var parseCmd = &cobra.Command{
	Use:   "parse <expression>",
	Short: "Parse one requisite expression into a tree",
	Long: `Parse reads a boolean expression over course codes, e.g.

  coursereq parse "((CS 2110 OR CS 2112) AND CS 2800)"

and prints its tree. An empty expression means no requirement. A top-level
list missing its outer parentheses is accepted. With --coreq a second
expression is parsed as the corequisites and both results are printed,
even when one of them is malformed.`,
	Args: cobra.ExactArgs(1),
	RunE: runParse,
}

// pairOutput is what parse prints for --coreq.
type pairOutput struct {
	Prerequisites types.RequisiteField `json:"prerequisites" yaml:"prerequisites"`
	Corequisites  types.RequisiteField `json:"corequisites" yaml:"corequisites"`
}

func runParse(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	p := parse.Parser{MaxDepth: viper.GetInt("parse.max_depth")}

	if !cmd.Flags().Changed("coreq") {
		n, err := p.Parse(args[0])
		if err != nil {
			return err
		}
		return writeValue(os.Stdout, types.ToDoc(n), jsonOutput)
	}

	coreq, _ := cmd.Flags().GetString("coreq")
	r := p.ParsePair(args[0], coreq)
	out := pairOutput{
		Prerequisites: fieldOf(args[0], r.Prerequisites),
		Corequisites:  fieldOf(coreq, r.Corequisites),
	}
	if err := writeValue(os.Stdout, out, jsonOutput); err != nil {
		return err
	}
	return r.Err()
}

func fieldOf(raw string, out parse.Outcome) types.RequisiteField {
	f := types.RequisiteField{Raw: raw}
	if out.Err != nil {
		f.Error = out.Err.Error()
		return f
	}
	doc := types.ToDoc(out.Node)
	f.Expr = &doc
	return f
}

// writeValue prints v as indented JSON or as YAML.
func writeValue(w io.Writer, v any, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding yaml: %w", err)
	}
	return enc.Close()
}

func init() {
	parseCmd.Flags().String("coreq", "", "corequisite expression to parse alongside")
	parseCmd.Flags().Bool("json", false, "output as JSON")

	rootCmd.AddCommand(parseCmd)
}
