package cmd

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Rana718/seriesgen/internal/period"
)

var (
	advanceFrom      string
	advanceTo        string
	advanceUnit      string
	advanceMagnitude int
	advanceTimes     int
)

var advanceCmd = &cobra.Command{
	Use:     "advance",
	Short:   "Preview how a date window moves between periods",
	Example: `  seriesgen advance --from 2024-01-01 --to 2024-01-31 --unit months --magnitude 1 --times 3`,
	RunE: func(cmd *cobra.Command, args []string) error {
		unit, err := period.ParseUnit(advanceUnit)
		if err != nil {
			return err
		}
		return printWindows(cmd.OutOrStdout(), advanceFrom, advanceTo,
			period.Cadence{Unit: unit, Magnitude: advanceMagnitude}, advanceTimes)
	},
}

// printWindows prints the window of every period, the first being the input
// window itself. Period i+1 is i cadences after the input window.
func printWindows(w io.Writer, from, to string, c period.Cadence, times int) error {
	if times < 1 {
		return fmt.Errorf("--times must be at least 1, got %d", times)
	}
	cyan := color.New(color.FgCyan)
	cyan.Fprintf(w, "period 1")
	fmt.Fprintf(w, "  %s..%s\n", from, to)

	for i := 1; i <= times; i++ {
		start, end, err := period.Advance(from, to, c.Times(i))
		if err != nil {
			return err
		}
		cyan.Fprintf(w, "period %d", i+1)
		fmt.Fprintf(w, "  %s..%s\n", start, end)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(advanceCmd)
	advanceCmd.Flags().StringVar(&advanceFrom, "from", "", "Window start (YYYY-MM-DD)")
	advanceCmd.Flags().StringVar(&advanceTo, "to", "", "Window end (YYYY-MM-DD)")
	advanceCmd.Flags().StringVar(&advanceUnit, "unit", "months", "Period unit: days, weeks or months")
	advanceCmd.Flags().IntVar(&advanceMagnitude, "magnitude", 1, "Periods units per step")
	advanceCmd.Flags().IntVar(&advanceTimes, "times", 1, "Number of steps to preview")
	advanceCmd.MarkFlagRequired("from")
	advanceCmd.MarkFlagRequired("to")
}
