package pipeline

import (
	"fmt"
	"strings"
)

// Window is the date range a column covered in one period.
type Window struct {
	Column string
	From   string
	To     string
}

type PeriodReport struct {
	Period   int
	New      int
	Existing int
	Total    int
	Windows  []Window
}

type Report struct {
	ReferenceTable string
	Periods        []PeriodReport
}

func (r *Report) String() string {
	var b strings.Builder
	for _, p := range r.Periods {
		fmt.Fprintf(&b, "dataset %d: %d rows (%d new, %d existing)", p.Period, p.Total, p.New, p.Existing)
		for _, w := range p.Windows {
			fmt.Fprintf(&b, " %s=%s..%s", w.Column, w.From, w.To)
		}
		b.WriteString("\n")
	}
	return b.String()
}
