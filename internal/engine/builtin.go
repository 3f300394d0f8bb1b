package engine

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Rana718/seriesgen/internal/dataset"
	serr "github.com/Rana718/seriesgen/internal/errors"
	"github.com/Rana718/seriesgen/internal/period"
	"github.com/Rana718/seriesgen/internal/population"
	"github.com/Rana718/seriesgen/internal/spec"
)

// Builtin is a small deterministic engine: the same specification always
// yields the same rows. It does not model distributions.
type Builtin struct {
	population population.Reader
	logger     *zap.Logger
}

// NewBuiltin returns an engine resolving anonymising sets through r. r may be
// nil when no specification references a table.
func NewBuiltin(r population.Reader, logger *zap.Logger) *Builtin {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builtin{population: r, logger: logger.Named("engine")}
}

type continuousParams struct {
	Min       *float64 `yaml:"target_min"`
	Max       *float64 `yaml:"target_max"`
	Precision string   `yaml:"precision"`
}

// entitySet is the chosen entities of one driving key, one per output row.
type entitySet struct {
	rows []dataset.Row
}

// Generate ignores linked: Builtin only pairs columns declared as paired in
// the specification.
func (b *Builtin) Generate(ctx context.Context, s *spec.Spec, _ [][]string) (*dataset.Table, error) {
	n := s.Metadata.NumberOfRows
	if n < 0 {
		return nil, serr.Newf(serr.CategoryGeneration, serr.CodeEngineFailed, "negative row count %d", n)
	}
	rng := rand.New(rand.NewSource(int64(s.Metadata.RandomSeed)))
	names := s.Columns.Names()
	out := dataset.NewTable(names)
	for i := 0; i < n; i++ {
		out.Append(make(dataset.Row, len(names)))
	}

	entities := make(map[string]*entitySet)
	for _, col := range names {
		d, _ := s.Columns.Get(col)
		if d.State != spec.PairedDriving {
			continue
		}
		set, err := b.drawEntities(ctx, rng, col, d, n)
		if err != nil {
			return nil, err
		}
		entities[col] = set
	}

	for _, col := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		d, _ := s.Columns.Get(col)
		if err := b.fillColumn(rng, out, col, d, entities); err != nil {
			return nil, err
		}
	}

	b.logger.Debug("generated rows",
		zap.String("table", s.Metadata.ID),
		zap.Int("rows", n),
		zap.Int("seed", s.Metadata.RandomSeed))
	return out, nil
}

// drawEntities samples `uniques` distinct entities of the anonymising set
// and spreads them over n rows.
func (b *Builtin) drawEntities(ctx context.Context, rng *rand.Rand, col string, d *spec.ColumnDescriptor, n int) (*entitySet, error) {
	if b.population == nil {
		return nil, serr.Newf(serr.CategoryGeneration, serr.CodeEngineFailed,
			"column %s draws from %s but no population reader is configured", col, d.AnonymisingSet)
	}
	ref, err := b.population.Rows(ctx, d.AnonymisingSet)
	if err != nil {
		return nil, serr.Wrap(serr.CategoryGeneration, serr.CodeEngineFailed,
			fmt.Sprintf("failed to read anonymising set %s", d.AnonymisingSet), err)
	}

	seen := make(map[string]bool, ref.Len())
	var distinct []dataset.Row
	for _, r := range ref.Rows {
		key, ok := r[col]
		if !ok {
			return nil, serr.Newf(serr.CategoryGeneration, serr.CodeEngineFailed,
				"anonymising set %s has no column %s", d.AnonymisingSet, col)
		}
		if !seen[key] {
			seen[key] = true
			distinct = append(distinct, r)
		}
	}

	uniques := n
	if d.Uniques != nil {
		uniques = *d.Uniques
	}
	if uniques > n {
		uniques = n
	}
	if n > 0 && uniques <= 0 {
		uniques = 1
	}
	if uniques > len(distinct) {
		return nil, serr.Wrap(serr.CategoryGeneration, serr.CodeUnsatisfiable,
			fmt.Sprintf("column %s", col),
			fmt.Errorf("asked for %d unique entities, %s holds %d", uniques, d.AnonymisingSet, len(distinct)))
	}

	perm := rng.Perm(len(distinct))
	chosen := make([]dataset.Row, uniques)
	for i := range chosen {
		chosen[i] = distinct[perm[i]]
	}
	set := &entitySet{rows: make([]dataset.Row, n)}
	for i := range set.rows {
		set.rows[i] = chosen[i%uniques]
	}
	rng.Shuffle(n, func(i, j int) { set.rows[i], set.rows[j] = set.rows[j], set.rows[i] })
	return set, nil
}

func (b *Builtin) fillColumn(rng *rand.Rand, out *dataset.Table, col string, d *spec.ColumnDescriptor, entities map[string]*entitySet) error {
	switch d.State {
	case spec.PairedDriving:
		for i, r := range out.Rows {
			r[col] = entities[col].rows[i][col]
		}
		return nil
	case spec.PairedDerived:
		if len(d.PairedColumns) == 0 {
			return serr.Newf(serr.CategoryGeneration, serr.CodeEngineFailed, "column %s is derived but names no driving column", col)
		}
		set, ok := entities[d.PairedColumns[0]]
		if !ok {
			return serr.Newf(serr.CategoryGeneration, serr.CodeEngineFailed,
				"column %s is paired to %s which is not a driving column", col, d.PairedColumns[0])
		}
		for i, r := range out.Rows {
			v, ok := set.rows[i][col]
			if !ok {
				return serr.Newf(serr.CategoryGeneration, serr.CodeEngineFailed,
					"anonymising set %s has no column %s", d.AnonymisingSet, col)
			}
			r[col] = v
		}
		return nil
	}

	gen, err := b.freshGenerator(rng, col, d)
	if err != nil {
		return err
	}
	miss := 0.0
	if d.MissProbability != nil {
		miss = *d.MissProbability
	}
	for i, r := range out.Rows {
		v := gen(i)
		if miss > 0 && rng.Float64() < miss {
			v = ""
		}
		r[col] = v
	}
	return nil
}

func (b *Builtin) freshGenerator(rng *rand.Rand, col string, d *spec.ColumnDescriptor) (func(i int) string, error) {
	switch d.Kind {
	case spec.KindUUID:
		src := rng
		if d.UUIDSeed != nil {
			src = rand.New(rand.NewSource(int64(*d.UUIDSeed)))
		}
		return func(int) string {
			return uuid.Must(uuid.NewRandomFromReader(src)).String()
		}, nil

	case spec.KindDate:
		from, err := time.Parse(period.DateLayout, d.From)
		if err != nil {
			return nil, serr.Wrap(serr.CategoryConfiguration, serr.CodeInvalidDate, fmt.Sprintf("column %s: from", col), err)
		}
		to, err := time.Parse(period.DateLayout, d.To)
		if err != nil {
			return nil, serr.Wrap(serr.CategoryConfiguration, serr.CodeInvalidDate, fmt.Sprintf("column %s: to", col), err)
		}
		if to.Before(from) {
			return nil, serr.Newf(serr.CategoryGeneration, serr.CodeEngineFailed, "column %s: window ends before it starts", col)
		}
		days := int(to.Sub(from).Hours()/24) + 1
		return func(int) string {
			return from.AddDate(0, 0, rng.Intn(days)).Format(period.DateLayout)
		}, nil

	case spec.KindContinuous:
		params := continuousParams{}
		if _, err := d.Extra("distribution_parameters", &params); err != nil {
			return nil, serr.Wrap(serr.CategoryConfiguration, serr.CodeInvalidValue, fmt.Sprintf("column %s: distribution_parameters", col), err)
		}
		lo, hi := 0.0, 100.0
		if params.Min != nil {
			lo = *params.Min
		}
		if params.Max != nil {
			hi = *params.Max
		}
		if hi < lo {
			lo, hi = hi, lo
		}
		var precision string
		if _, err := d.Extra("precision", &precision); err != nil {
			return nil, serr.Wrap(serr.CategoryConfiguration, serr.CodeInvalidValue, fmt.Sprintf("column %s: precision", col), err)
		}
		if params.Precision != "" {
			precision = params.Precision
		}
		return func(int) string {
			v := lo + rng.Float64()*(hi-lo)
			if precision == "integer" {
				return strconv.FormatInt(int64(math.Round(v)), 10)
			}
			return strconv.FormatFloat(v, 'f', 2, 64)
		}, nil

	default:
		labels := categoryLabels(d.OriginalValueList())
		if d.Uniques != nil && *d.Uniques > 0 && *d.Uniques < len(labels) {
			labels = labels[:*d.Uniques]
		}
		if len(labels) > 0 {
			return func(int) string { return pick(rng, labels) }, nil
		}
		return func(i int) string { return valueFor(rng, col, i+1) }, nil
	}
}
