package spec

import (
	"fmt"

	serr "github.com/Rana718/seriesgen/internal/errors"
	"github.com/Rana718/seriesgen/internal/period"
)

// Phase is the lifecycle state of a period.
type Phase int

const (
	// PhaseInitial generates new records only and seeds the population.
	PhaseInitial Phase = iota + 1
	// PhaseTransition establishes the pairing of the existing stream.
	PhaseTransition
	// PhaseSteady reuses the pairing set up by the transition.
	PhaseSteady
)

func (p Phase) String() string {
	switch p {
	case PhaseInitial:
		return "initial"
	case PhaseTransition:
		return "transition"
	case PhaseSteady:
		return "steady"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

func PhaseFor(periodNum int) Phase {
	switch {
	case periodNum <= 1:
		return PhaseInitial
	case periodNum == 2:
		return PhaseTransition
	default:
		return PhaseSteady
	}
}

// PeriodContext carries everything a mutation needs about the period being
// produced.
type PeriodContext struct {
	Period int
	// Quota is the row count of the variant being built.
	Quota   int
	Cadence period.Cadence
	// IdentifierColumns is the declared uuid_columns of the base
	// specification. Index 0 is the driving key.
	IdentifierColumns []string
	DateColumns       []string
	StaticColumns     []string
	ReferenceTable    string
	// Origin is the first-period specification. When set, date windows are
	// placed Period-1 cadences after its windows rather than one cadence
	// after the input's.
	Origin *Spec
}

// MutateForNew builds the new-stream variant: fresh seeds, the new-record
// quota, and every date window moved one cadence forward.
func MutateForNew(s *Spec, ctx PeriodContext) (*Spec, error) {
	out, err := advance(s, ctx)
	if err != nil {
		return nil, err
	}
	for _, name := range ctx.IdentifierColumns {
		if d, ok := out.Columns.Get(name); ok && d.UUIDSeed != nil {
			d.SetUUIDSeed(*d.UUIDSeed + 1)
		}
	}
	return out, nil
}

// MutateForExistingSecondPeriod builds the first existing-stream variant.
// Identifier and static columns become categorical draws from the reference
// population: the driving key picks an entity and every other identity column
// is derived from that same entity.
func MutateForExistingSecondPeriod(s *Spec, ctx PeriodContext) (*Spec, error) {
	if len(ctx.IdentifierColumns) == 0 {
		return nil, serr.New(serr.CategoryConfiguration, serr.CodeMissingField,
			"at least one unique identifier column is required")
	}
	if ctx.ReferenceTable == "" {
		return nil, serr.New(serr.CategoryConfiguration, serr.CodeMissingField,
			"reference table is required for existing records")
	}

	out, err := advance(s, ctx)
	if err != nil {
		return nil, err
	}

	driving := ctx.IdentifierColumns[0]
	derived := make([]string, 0, len(ctx.IdentifierColumns)+len(ctx.StaticColumns))
	seen := map[string]bool{driving: true}
	for _, name := range append(cloneStrings(ctx.IdentifierColumns[1:]), ctx.StaticColumns...) {
		if seen[name] || !out.Columns.Has(name) {
			continue
		}
		seen[name] = true
		derived = append(derived, name)
	}

	for i, name := range ctx.IdentifierColumns {
		if !out.Columns.Has(name) {
			continue
		}
		out.Metadata.RemoveUUIDColumn(name)
		out.Metadata.AddCategoricalColumn(name)
		if i == 0 {
			out.Columns.Set(name, NewPairedCategorical(PairedDriving, derived, ctx.Quota, ctx.ReferenceTable))
		}
	}
	for _, name := range derived {
		out.Columns.Set(name, NewPairedCategorical(PairedDerived, []string{driving}, ctx.Quota, ctx.ReferenceTable))
	}
	return out, nil
}

// MutateForExistingSubsequentPeriod advances seeds, quota and dates of an
// existing-stream variant and leaves its pairing untouched.
func MutateForExistingSubsequentPeriod(s *Spec, ctx PeriodContext) (*Spec, error) {
	return advance(s, ctx)
}

func advance(s *Spec, ctx PeriodContext) (*Spec, error) {
	if ctx.Quota < 0 {
		return nil, serr.Newf(serr.CategoryConfiguration, serr.CodeInvalidValue,
			"row quota must not be negative, got %d", ctx.Quota)
	}
	out := s.Clone()
	out.Metadata.SetRandomSeed(out.Metadata.RandomSeed + 1)
	out.Metadata.SetNumberOfRows(ctx.Quota)

	for _, name := range ctx.DateColumns {
		d, ok := out.Columns.Get(name)
		if !ok {
			continue
		}
		from, to, c := d.From, d.To, ctx.Cadence
		if ctx.Origin != nil && ctx.Period > 1 {
			if o, ok := ctx.Origin.Columns.Get(name); ok {
				from, to, c = o.From, o.To, ctx.Cadence.Times(ctx.Period-1)
			}
		}
		from, to, err := period.Advance(from, to, c)
		if err != nil {
			return nil, fmt.Errorf("date column %s: %w", name, err)
		}
		d.SetWindow(from, to)
	}
	return out, nil
}
