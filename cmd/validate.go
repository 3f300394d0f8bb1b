package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Rana718/seriesgen/internal/population"
	"github.com/Rana718/seriesgen/internal/spec"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a specification before generating",
	Long:  `Check that a specification carries the metadata every period relies on: number_of_rows, id and uuid_columns.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := spec.Load(specFile)
		if err != nil {
			return err
		}
		if err := spec.Validate(s); err != nil {
			color.Red("❌ %s is not usable", specFile)
			return err
		}
		printSpecSummary(cmd.OutOrStdout(), specFile, s)
		return nil
	},
}

func printSpecSummary(w io.Writer, path string, s *spec.Spec) {
	color.New(color.FgGreen, color.Bold).Fprintf(w, "✅ %s is valid\n", path)
	fmt.Fprintf(w, "   rows:        %d\n", s.Metadata.NumberOfRows)
	fmt.Fprintf(w, "   id:          %s\n", s.Metadata.ID)
	fmt.Fprintf(w, "   driving key: %s\n", s.Metadata.UUIDColumns[0])
	fmt.Fprintf(w, "   identifiers: %s\n", strings.Join(s.Metadata.UUIDColumns, ", "))
	fmt.Fprintf(w, "   columns:     %d\n", s.Columns.Len())
	fmt.Fprintf(w, "   reference:   %s\n", population.ReferenceTable(s.Metadata.ID))
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().StringVarP(&specFile, "specification", "s", "", "Path to the specification (YAML)")
	validateCmd.MarkFlagRequired("specification")
}
