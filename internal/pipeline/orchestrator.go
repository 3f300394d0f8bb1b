package pipeline

import (
	"context"
	"math/rand"

	"go.uber.org/zap"

	"github.com/Rana718/seriesgen/internal/dataset"
	"github.com/Rana718/seriesgen/internal/engine"
	serr "github.com/Rana718/seriesgen/internal/errors"
	"github.com/Rana718/seriesgen/internal/output"
	"github.com/Rana718/seriesgen/internal/population"
	"github.com/Rana718/seriesgen/internal/spec"
)

type Orchestrator struct {
	cfg        RunConfig
	engine     engine.Engine
	population Population
	sink       output.Sink
	logger     *zap.Logger

	referenceTable string
	identifiers    []string
	rng            *rand.Rand
}

func New(cfg RunConfig, eng engine.Engine, pop Population, sink output.Sink, logger *zap.Logger) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if eng == nil || pop == nil || sink == nil {
		return nil, serr.New(serr.CategoryConfiguration, serr.CodeMissingField, "engine, population and sink are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		cfg:            cfg,
		engine:         eng,
		population:     pop,
		sink:           sink,
		logger:         logger.Named("pipeline"),
		referenceTable: population.ReferenceTable(cfg.Base.Metadata.ID),
		identifiers:    append([]string(nil), cfg.Base.Metadata.UUIDColumns...),
	}, nil
}

// Run produces every period in order and stops at the first failure. The
// population keeps everything committed up to that point; temporary tables
// are purged after a successful run unless KeepReference is set.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	o.rng = rand.New(rand.NewSource(o.cfg.shuffleSeed()))
	total := o.cfg.Base.Metadata.NumberOfRows
	newQuota, existingQuota := Quotas(total, o.cfg.NewFraction)

	o.logger.Info("starting series",
		zap.String("table", o.cfg.Base.Metadata.ID),
		zap.String("reference", o.referenceTable),
		zap.Int("periods", o.cfg.Periods),
		zap.Int("rows", total),
		zap.Int("new_quota", newQuota),
		zap.Int("existing_quota", existingQuota),
		zap.Stringer("cadence", o.cfg.Cadence))

	report := &Report{ReferenceTable: o.referenceTable}
	state := &PipelineState{NewQuota: newQuota, ExistingQuota: existingQuota}

	for p := 1; p <= o.cfg.Periods; p++ {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		state.Period = p

		var (
			pr  PeriodReport
			err error
		)
		if spec.PhaseFor(p) == spec.PhaseInitial {
			pr, err = o.initial(ctx, state)
		} else {
			pr, err = o.subsequent(ctx, state)
		}
		if err != nil {
			return report, err
		}
		report.Periods = append(report.Periods, pr)
	}

	if !o.cfg.KeepReference {
		if err := o.population.Purge(ctx); err != nil {
			return report, err
		}
		o.logger.Info("purged temporary tables")
	}
	return report, nil
}

func (o *Orchestrator) initial(ctx context.Context, state *PipelineState) (PeriodReport, error) {
	exists, err := o.population.Exists(ctx, o.referenceTable)
	if err != nil {
		return PeriodReport{}, err
	}
	if exists {
		o.logger.Warn("reference table already holds records, new entities are appended",
			zap.String("reference", o.referenceTable))
	}

	rows, err := o.engine.Generate(ctx, o.cfg.Base, o.cfg.LinkedColumns)
	if err != nil {
		return PeriodReport{}, inPeriod(err, state.Period, output.StreamNew)
	}
	o.logger.Info("generated records",
		zap.Int("period", state.Period),
		zap.String("stream", output.StreamNew),
		zap.Int("rows", rows.Len()))

	if err := o.population.Commit(ctx, o.referenceTable, rows); err != nil {
		return PeriodReport{}, err
	}
	state.ColumnOrder = rows.Columns
	if rows.Len() > 0 {
		order, err := o.population.ColumnOrder(ctx, o.referenceTable)
		if err != nil {
			return PeriodReport{}, err
		}
		state.ColumnOrder = order
	}

	if err := o.sink.WriteDataset(ctx, state.Period, rows); err != nil {
		return PeriodReport{}, err
	}
	if err := o.sink.WriteSpec(ctx, state.Period, output.StreamNew, o.cfg.Base); err != nil {
		return PeriodReport{}, err
	}

	state.NewSpec = o.cfg.Base.Clone()
	state.ExistingSpec = o.cfg.Base.Clone()

	return PeriodReport{
		Period:  state.Period,
		New:     rows.Len(),
		Total:   rows.Len(),
		Windows: o.windows(o.cfg.Base),
	}, nil
}

func (o *Orchestrator) subsequent(ctx context.Context, state *PipelineState) (PeriodReport, error) {
	newSpec, err := spec.MutateForNew(state.NewSpec, o.periodContext(state.Period, state.NewQuota))
	if err != nil {
		return PeriodReport{}, inPeriod(err, state.Period, output.StreamNew)
	}
	newRows, err := o.engine.Generate(ctx, newSpec, o.cfg.LinkedColumns)
	if err != nil {
		return PeriodReport{}, inPeriod(err, state.Period, output.StreamNew)
	}
	o.logger.Info("generated records",
		zap.Int("period", state.Period),
		zap.String("stream", output.StreamNew),
		zap.Int("rows", newRows.Len()))

	mutate := spec.MutateForExistingSubsequentPeriod
	if spec.PhaseFor(state.Period) == spec.PhaseTransition {
		mutate = spec.MutateForExistingSecondPeriod
	}
	existingSpec, err := mutate(state.ExistingSpec, o.periodContext(state.Period, state.ExistingQuota))
	if err != nil {
		return PeriodReport{}, inPeriod(err, state.Period, output.StreamExisting)
	}
	existingRows, err := o.engine.Generate(ctx, existingSpec, nil)
	if err != nil {
		return PeriodReport{}, inPeriod(err, state.Period, output.StreamExisting)
	}
	o.logger.Info("generated records",
		zap.Int("period", state.Period),
		zap.String("stream", output.StreamExisting),
		zap.Int("rows", existingRows.Len()))

	combined, err := dataset.Assemble(newRows, existingRows, state.ColumnOrder, o.rng)
	if err != nil {
		return PeriodReport{}, inPeriod(err, state.Period, "")
	}

	if err := o.population.Commit(ctx, o.referenceTable, newRows); err != nil {
		return PeriodReport{}, err
	}
	if err := o.sink.WriteDataset(ctx, state.Period, combined); err != nil {
		return PeriodReport{}, err
	}
	if err := o.sink.WriteSpec(ctx, state.Period, output.StreamNew, newSpec); err != nil {
		return PeriodReport{}, err
	}
	if err := o.sink.WriteSpec(ctx, state.Period, output.StreamExisting, existingSpec); err != nil {
		return PeriodReport{}, err
	}

	state.NewSpec = newSpec
	state.ExistingSpec = existingSpec

	return PeriodReport{
		Period:   state.Period,
		New:      newRows.Len(),
		Existing: existingRows.Len(),
		Total:    combined.Len(),
		Windows:  o.windows(newSpec),
	}, nil
}

func (o *Orchestrator) periodContext(p, quota int) spec.PeriodContext {
	return spec.PeriodContext{
		Period:            p,
		Quota:             quota,
		Cadence:           o.cfg.Cadence,
		IdentifierColumns: o.identifiers,
		DateColumns:       o.cfg.DateColumns,
		StaticColumns:     o.cfg.StaticColumns,
		ReferenceTable:    o.referenceTable,
		Origin:            o.cfg.Base,
	}
}

func (o *Orchestrator) windows(s *spec.Spec) []Window {
	var out []Window
	for _, name := range o.cfg.DateColumns {
		if d, ok := s.Columns.Get(name); ok {
			out = append(out, Window{Column: name, From: d.From, To: d.To})
		}
	}
	return out
}

// inPeriod tags err with the period and stream it came from, keeping its
// category and code when it already has one.
func inPeriod(err error, p int, stream string) error {
	if se, ok := err.(*serr.SeriesError); ok {
		return se.InPeriod(p, stream)
	}
	var inner *serr.SeriesError
	if serr.As(err, &inner) {
		return serr.Wrap(inner.Category, inner.Code, "failed", err).InPeriod(p, stream)
	}
	return serr.Wrap(serr.CategoryGeneration, serr.CodeEngineFailed, "failed", err).InPeriod(p, stream)
}
