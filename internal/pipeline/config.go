// Package pipeline drives a series run period by period: it mutates the
// working specifications, asks the engine for rows, grows the reference
// population and hands every artifact to the sink.
package pipeline

import (
	"context"
	"math/big"

	"github.com/Rana718/seriesgen/internal/dataset"
	serr "github.com/Rana718/seriesgen/internal/errors"
	"github.com/Rana718/seriesgen/internal/period"
	"github.com/Rana718/seriesgen/internal/spec"
)

// RunConfig is fixed for the whole run.
type RunConfig struct {
	Base          *spec.Spec
	DateColumns   []string
	StaticColumns []string
	Cadence       period.Cadence
	Periods       int
	NewFraction   *big.Rat
	// LinkedColumns reaches the engine for period 1 and the new stream only.
	LinkedColumns [][]string
	// ShuffleSeed 0 falls back to the base random_seed.
	ShuffleSeed   int64
	KeepReference bool
}

// PipelineState is what one period hands to the next.
type PipelineState struct {
	Period        int
	NewSpec       *spec.Spec
	ExistingSpec  *spec.Spec
	NewQuota      int
	ExistingQuota int
	ColumnOrder   []string
}

// Population is the reference store as the orchestrator uses it.
type Population interface {
	Commit(ctx context.Context, table string, rows *dataset.Table) error
	Exists(ctx context.Context, table string) (bool, error)
	ColumnOrder(ctx context.Context, table string) ([]string, error)
	Purge(ctx context.Context) error
}

func (c RunConfig) Validate() error {
	if c.Base == nil {
		return serr.New(serr.CategoryConfiguration, serr.CodeMissingField, "base specification is required")
	}
	if err := spec.Validate(c.Base); err != nil {
		return err
	}
	if c.Periods <= 0 {
		return serr.Newf(serr.CategoryConfiguration, serr.CodeInvalidValue, "period count must be positive, got %d", c.Periods)
	}
	if c.Periods > 1 {
		if err := c.Cadence.Validate(); err != nil {
			return err
		}
	}
	if c.NewFraction == nil {
		return serr.New(serr.CategoryConfiguration, serr.CodeMissingField, "fraction of new records is required")
	}
	if c.NewFraction.Sign() < 0 || c.NewFraction.Cmp(big.NewRat(1, 1)) > 0 {
		return serr.Newf(serr.CategoryConfiguration, serr.CodeInvalidValue, "fraction of new records %s must be between 0 and 1", c.NewFraction.RatString())
	}
	return nil
}

func (c RunConfig) shuffleSeed() int64 {
	if c.ShuffleSeed != 0 {
		return c.ShuffleSeed
	}
	return int64(c.Base.Metadata.RandomSeed)
}

// Quotas splits total into new and existing rows. The new share is floored.
func Quotas(total int, fraction *big.Rat) (int, int) {
	n := new(big.Rat).Mul(big.NewRat(int64(total), 1), fraction)
	newRows := new(big.Int).Quo(n.Num(), n.Denom()).Int64()
	return int(newRows), total - int(newRows)
}
