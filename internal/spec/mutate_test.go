package spec

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	serr "github.com/Rana718/seriesgen/internal/errors"
	"github.com/Rana718/seriesgen/internal/period"
)

func periodCtx(quota int) PeriodContext {
	return PeriodContext{
		Period:            2,
		Quota:             quota,
		Cadence:           period.Cadence{Unit: period.Months, Magnitude: 1},
		IdentifierColumns: []string{"id", "record_id"},
		DateColumns:       []string{"visit_date", "not_in_spec"},
		StaticColumns:     []string{"birth_year", "region"},
		ReferenceTable:    "temp_patients_reference",
	}
}

func TestPhaseFor(t *testing.T) {
	assert.Equal(t, PhaseInitial, PhaseFor(1))
	assert.Equal(t, PhaseTransition, PhaseFor(2))
	assert.Equal(t, PhaseSteady, PhaseFor(3))
	assert.Equal(t, PhaseSteady, PhaseFor(12))
}

func TestMutateForNew(t *testing.T) {
	base := decode(t, patientSpec)
	out, err := MutateForNew(base, periodCtx(30))
	require.NoError(t, err)

	assert.Equal(t, 30, out.Metadata.NumberOfRows)
	assert.Equal(t, 8, out.Metadata.RandomSeed)

	id, _ := out.Columns.Get("id")
	record, _ := out.Columns.Get("record_id")
	assert.Equal(t, 4, *id.UUIDSeed)
	assert.Equal(t, 12, *record.UUIDSeed)

	visit, _ := out.Columns.Get("visit_date")
	assert.Equal(t, "2024-02-01", visit.From)
	assert.Equal(t, "2024-02-29", visit.To)

	// input untouched
	assert.Equal(t, 7, base.Metadata.RandomSeed)
	baseID, _ := base.Columns.Get("id")
	assert.Equal(t, 3, *baseID.UUIDSeed)
}

func TestMutateForNew_WindowsFollowOrigin(t *testing.T) {
	origin := decode(t, patientSpec)
	ctx := periodCtx(30)
	ctx.Origin = origin

	second, err := MutateForNew(origin, ctx)
	require.NoError(t, err)
	ctx.Period = 3
	third, err := MutateForNew(second, ctx)
	require.NoError(t, err)

	visit, _ := third.Columns.Get("visit_date")
	assert.Equal(t, "2024-03-01", visit.From)
	assert.Equal(t, "2024-03-31", visit.To)

	// one step from the clamped February end keeps the 29th
	ctx.Origin = nil
	chained, err := MutateForNew(second, ctx)
	require.NoError(t, err)
	visit, _ = chained.Columns.Get("visit_date")
	assert.Equal(t, "2024-03-29", visit.To)
}

func TestMutateForNew_NoUUIDSeed(t *testing.T) {
	src := `metadata:
  number_of_rows: 5
  random_seed: 0
  id: t
  uuid_columns: [id]
columns:
  id:
    type: uuid
`
	out, err := MutateForNew(decode(t, src), PeriodContext{Quota: 2, Cadence: period.Cadence{Unit: period.Days, Magnitude: 1}, IdentifierColumns: []string{"id"}})
	require.NoError(t, err)
	id, _ := out.Columns.Get("id")
	assert.Nil(t, id.UUIDSeed)
	assert.False(t, id.Has("uuid_seed"))
}

func TestMutateForExistingSecondPeriod(t *testing.T) {
	base := decode(t, patientSpec)
	out, err := MutateForExistingSecondPeriod(base, periodCtx(70))
	require.NoError(t, err)

	assert.Equal(t, 70, out.Metadata.NumberOfRows)
	assert.Equal(t, 8, out.Metadata.RandomSeed)

	driving, _ := out.Columns.Get("id")
	assert.Equal(t, KindCategorical, driving.Kind)
	assert.Equal(t, PairedDriving, driving.State)
	assert.Equal(t, []string{"record_id", "birth_year", "region"}, driving.PairedColumns)
	assert.Equal(t, 70, *driving.Uniques)
	assert.Equal(t, 0.0, *driving.MissProbability)
	assert.False(t, *driving.CrossJoin)
	assert.Equal(t, OriginalValuesRandom, driving.OriginalValuesLabel())
	assert.Equal(t, "temp_patients_reference", driving.AnonymisingSet)
	assert.Nil(t, driving.UUIDSeed, "identity seed belongs to the fresh descriptor only")

	for _, name := range []string{"record_id", "birth_year", "region"} {
		d, ok := out.Columns.Get(name)
		require.True(t, ok, name)
		assert.Equal(t, PairedDerived, d.State, name)
		assert.Equal(t, []string{"id"}, d.PairedColumns, name)
		assert.Equal(t, OriginalValuesPaired, d.OriginalValuesLabel(), name)
		assert.Equal(t, "temp_patients_reference", d.AnonymisingSet, name)
		assert.Equal(t, 70, *d.Uniques, name)
	}

	assert.Empty(t, out.Metadata.UUIDColumns)
	assert.Equal(t, []string{"region", "id", "record_id"}, out.Metadata.CategoricalColumns)

	visit, _ := out.Columns.Get("visit_date")
	assert.Equal(t, "2024-02-01", visit.From)
	assert.Equal(t, KindDate, visit.Kind)

	// column order is unchanged by the rewrite
	assert.Equal(t, base.Columns.Names(), out.Columns.Names())
	assert.Equal(t, []string{"id", "record_id"}, base.Metadata.UUIDColumns)
}

func TestMutateForExistingSecondPeriod_BookkeepingIdempotent(t *testing.T) {
	ctx := periodCtx(70)
	once, err := MutateForExistingSecondPeriod(decode(t, patientSpec), ctx)
	require.NoError(t, err)
	twice, err := MutateForExistingSecondPeriod(once, ctx)
	require.NoError(t, err)

	if diff := cmp.Diff(once.Metadata.CategoricalColumns, twice.Metadata.CategoricalColumns); diff != "" {
		t.Errorf("categorical_columns changed (-once +twice):\n%s", diff)
	}
	assert.Empty(t, twice.Metadata.UUIDColumns)
}

func TestMutateForExistingSecondPeriod_CreatesCategoricalList(t *testing.T) {
	src := `metadata:
  number_of_rows: 10
  random_seed: 1
  id: t
  uuid_columns: [id]
columns:
  id:
    type: uuid
    uuid_seed: 0
`
	out, err := MutateForExistingSecondPeriod(decode(t, src), PeriodContext{
		Quota: 4, Cadence: period.Cadence{Unit: period.Days, Magnitude: 1},
		IdentifierColumns: []string{"id"}, ReferenceTable: "temp_t_reference",
	})
	require.NoError(t, err)
	assert.True(t, out.Metadata.Has("categorical_columns"))
	assert.Equal(t, []string{"id"}, out.Metadata.CategoricalColumns)
	id, _ := out.Columns.Get("id")
	assert.Empty(t, id.PairedColumns)
}

func TestMutateForExistingSecondPeriod_RequiresReferenceTable(t *testing.T) {
	ctx := periodCtx(70)
	ctx.ReferenceTable = ""
	_, err := MutateForExistingSecondPeriod(decode(t, patientSpec), ctx)
	assert.ErrorIs(t, err, serr.ErrMissingField)
}

func TestMutateForExistingSubsequentPeriod_KeepsPairing(t *testing.T) {
	ctx := periodCtx(70)
	ctx.Origin = decode(t, patientSpec)
	second, err := MutateForExistingSecondPeriod(ctx.Origin, ctx)
	require.NoError(t, err)

	ctx.Period = 3
	third, err := MutateForExistingSubsequentPeriod(second, ctx)
	require.NoError(t, err)

	assert.Equal(t, second.Metadata.RandomSeed+1, third.Metadata.RandomSeed)
	visit, _ := third.Columns.Get("visit_date")
	assert.Equal(t, "2024-03-01", visit.From)
	assert.Equal(t, "2024-03-31", visit.To)

	for _, name := range []string{"id", "record_id", "birth_year", "region"} {
		a, _ := second.Columns.Get(name)
		b, _ := third.Columns.Get(name)
		assert.Equal(t, a.State, b.State, name)
		assert.Equal(t, a.PairedColumns, b.PairedColumns, name)
		assert.Equal(t, a.AnonymisingSet, b.AnonymisingSet, name)
	}
	assert.Equal(t, second.Metadata.CategoricalColumns, third.Metadata.CategoricalColumns)
}

func TestMutate_InvalidCadence(t *testing.T) {
	ctx := periodCtx(30)
	ctx.Cadence = period.Cadence{Unit: "fortnights", Magnitude: 1}
	_, err := MutateForNew(decode(t, patientSpec), ctx)
	assert.ErrorIs(t, err, serr.ErrInvalidPeriodUnit)
}

func TestProperty_MutateForNew(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)
	base := decode(t, patientSpec)

	properties.Property("row count equals quota and seed strictly increases", prop.ForAll(
		func(quota int, seed int) bool {
			in := base.Clone()
			in.Metadata.SetRandomSeed(seed)
			out, err := MutateForNew(in, periodCtx(quota))
			if err != nil {
				return false
			}
			return out.Metadata.NumberOfRows == quota && out.Metadata.RandomSeed > in.Metadata.RandomSeed
		},
		gen.IntRange(0, 1_000_000),
		gen.IntRange(-1000, 1_000_000),
	))

	properties.TestingRun(t)
}
