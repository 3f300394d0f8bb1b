package spec

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	serr "github.com/Rana718/seriesgen/internal/errors"
)

const patientSpec = `metadata:
  number_of_rows: 100
  uuid_columns:
  - id
  - record_id
  categorical_columns:
  - region
  inline_limit: 30
  random_seed: 7
  id: patients
columns:
  id:
    type: uuid
    frequency_distribution:
    - frequency | probability_vector
    - 1 | 1.000000
    miss_probability: 0.0
    anonymising_set: uuid
    uuid_seed: 3
  record_id:
    type: uuid
    miss_probability: 0.0
    uuid_seed: 11
  region:
    type: categorical
    paired_columns: []
    uniques: 4
    original_values:
    - North
    - South
    - East
    - West
    cross_join_all_unique_values: false
    miss_probability: 0.0
    anonymising_set: random
  birth_year:
    type: continuous
    distribution_parameters:
      target_min: 1940
      target_max: 2005
  visit_date:
    type: date
    cross_join_all_unique_values: false
    miss_probability: 0.0
    from: "2024-01-01"
    to: "2024-01-31"
    frequency: D
constraints:
  custom_constraints: {}
`

func decode(t *testing.T, src string) *Spec {
	t.Helper()
	s, err := Decode(strings.NewReader(src))
	require.NoError(t, err)
	return s
}

func TestDecode(t *testing.T) {
	s := decode(t, patientSpec)

	assert.Equal(t, 100, s.Metadata.NumberOfRows)
	assert.Equal(t, 7, s.Metadata.RandomSeed)
	assert.Equal(t, "patients", s.Metadata.ID)
	assert.Equal(t, []string{"id", "record_id"}, s.Metadata.UUIDColumns)
	assert.Equal(t, []string{"id", "record_id", "region", "birth_year", "visit_date"}, s.Columns.Names())

	id, ok := s.Columns.Get("id")
	require.True(t, ok)
	assert.Equal(t, KindUUID, id.Kind)
	require.NotNil(t, id.UUIDSeed)
	assert.Equal(t, 3, *id.UUIDSeed)

	region, _ := s.Columns.Get("region")
	assert.Equal(t, []string{"North", "South", "East", "West"}, region.OriginalValueList())
	assert.Equal(t, Fresh, region.State)

	visit, _ := s.Columns.Get("visit_date")
	assert.Equal(t, "2024-01-01", visit.From)
	assert.Equal(t, "2024-01-31", visit.To)

	birth, _ := s.Columns.Get("birth_year")
	var params struct {
		Min float64 `yaml:"target_min"`
		Max float64 `yaml:"target_max"`
	}
	found, err := birth.Extra("distribution_parameters", &params)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 1940.0, params.Min)
}

func TestEncode_PreservesKeyOrder(t *testing.T) {
	s := decode(t, patientSpec)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, s))
	out := buf.String()

	// keys are anchored to their line and indentation so that "columns:"
	// cannot match inside "uuid_columns:"
	lines := "\n" + out
	order := []string{"\nmetadata:", "\n  number_of_rows:", "\n  uuid_columns:", "\n  categorical_columns:",
		"\n  inline_limit:", "\n  random_seed:", "\n  id: patients", "\ncolumns:", "\n    frequency_distribution:",
		"\n    uuid_seed: 3", "\n  record_id:", "\n  region:", "\n  birth_year:", "\n      target_min:", "\n  visit_date:",
		"\n    frequency: D", "\nconstraints:"}
	last := -1
	for _, key := range order {
		idx := strings.Index(lines, key)
		require.GreaterOrEqual(t, idx, 0, "missing %q in\n%s", key, out)
		assert.Greater(t, idx, last, "%q out of order", key)
		last = idx
	}

	again := decode(t, out)
	assert.Equal(t, s.Columns.Names(), again.Columns.Names())
	assert.Equal(t, s.Metadata.UUIDColumns, again.Metadata.UUIDColumns)
}

func TestSaveLoad(t *testing.T) {
	s := decode(t, patientSpec)
	path := filepath.Join(t.TempDir(), "nested", "spec.yaml")

	require.NoError(t, Save(path, s))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, s.Metadata.RandomSeed, loaded.Metadata.RandomSeed)
	assert.Equal(t, s.Columns.Names(), loaded.Columns.Names())
}

func TestDecode_Empty(t *testing.T) {
	_, err := Decode(strings.NewReader(""))
	assert.Error(t, err)
}

func TestClone_DoesNotAlias(t *testing.T) {
	s := decode(t, patientSpec)
	cp := s.Clone()

	d, _ := cp.Columns.Get("visit_date")
	d.SetWindow("2030-01-01", "2030-01-02")
	cp.Metadata.RemoveUUIDColumn("id")
	cp.Metadata.AddCategoricalColumn("id")
	id, _ := cp.Columns.Get("id")
	id.SetUUIDSeed(99)

	orig, _ := s.Columns.Get("visit_date")
	assert.Equal(t, "2024-01-01", orig.From)
	assert.Equal(t, []string{"id", "record_id"}, s.Metadata.UUIDColumns)
	assert.Equal(t, []string{"region"}, s.Metadata.CategoricalColumns)
	origID, _ := s.Columns.Get("id")
	assert.Equal(t, 3, *origID.UUIDSeed)
}

func TestStateInferredOnLoad(t *testing.T) {
	src := `metadata:
  number_of_rows: 10
  id: t
  uuid_columns: []
columns:
  id:
    type: categorical
    paired_columns:
    - sex
    uniques: 10
    original_values: random
    anonymising_set: temp_t_reference
  sex:
    type: categorical
    paired_columns:
    - id
    original_values: See paired column
    anonymising_set: temp_t_reference
  colour:
    type: categorical
    original_values: random
`
	s := decode(t, src)
	id, _ := s.Columns.Get("id")
	sex, _ := s.Columns.Get("sex")
	colour, _ := s.Columns.Get("colour")
	assert.Equal(t, PairedDriving, id.State)
	assert.Equal(t, PairedDerived, sex.State)
	assert.Equal(t, Fresh, colour.State)
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(decode(t, patientSpec)))

	tests := []struct {
		name string
		drop string
	}{
		{"missing rows", "  number_of_rows: 100\n"},
		{"missing id", "  id: patients\n"},
		{"missing uuid columns", "  uuid_columns:\n  - id\n  - record_id\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := decode(t, strings.Replace(patientSpec, tt.drop, "", 1))
			err := Validate(s)
			require.Error(t, err)
			assert.ErrorIs(t, err, serr.ErrMissingField)
		})
	}

	t.Run("undefined identifier column", func(t *testing.T) {
		s := decode(t, strings.Replace(patientSpec, "  - record_id\n", "  - record_id\n  - ghost\n", 1))
		assert.ErrorIs(t, Validate(s), serr.ErrMissingField)
	})

	t.Run("non-positive rows", func(t *testing.T) {
		s := decode(t, strings.Replace(patientSpec, "number_of_rows: 100", "number_of_rows: 0", 1))
		err := Validate(s)
		require.Error(t, err)
		cat, _ := serr.CategoryOf(err)
		assert.Equal(t, serr.CategoryConfiguration, cat)
	})

	if diff := cmp.Diff([]string{"id", "record_id"}, decode(t, patientSpec).Metadata.UUIDColumns); diff != "" {
		t.Errorf("validate must not touch metadata (-want +got):\n%s", diff)
	}
}
