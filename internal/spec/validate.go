package spec

import (
	serr "github.com/Rana718/seriesgen/internal/errors"
)

// Validate checks the metadata every mutation step relies on. It must pass
// before the first period runs.
func Validate(s *Spec) error {
	if s == nil {
		return serr.New(serr.CategoryConfiguration, serr.CodeMissingField, "specification is empty")
	}
	m := &s.Metadata

	if !m.Has("number_of_rows") {
		return missing("metadata.number_of_rows")
	}
	if m.NumberOfRows <= 0 {
		return serr.Newf(serr.CategoryConfiguration, serr.CodeInvalidValue,
			"metadata.number_of_rows must be positive, got %d", m.NumberOfRows)
	}
	if !m.Has("id") || m.ID == "" {
		return missing("metadata.id")
	}
	if !isIdentifier(m.ID) {
		return serr.Newf(serr.CategoryConfiguration, serr.CodeInvalidValue,
			"metadata.id %q must be a valid table identifier", m.ID)
	}
	if !m.Has("uuid_columns") || len(m.UUIDColumns) == 0 {
		return missing("metadata.uuid_columns")
	}
	if s.Columns == nil || s.Columns.Len() == 0 {
		return missing("columns")
	}
	for _, name := range m.UUIDColumns {
		if !s.Columns.Has(name) {
			return serr.Newf(serr.CategoryConfiguration, serr.CodeMissingField,
				"unique identifier column %q is not defined under columns", name)
		}
	}
	return nil
}

func missing(field string) error {
	return serr.Newf(serr.CategoryConfiguration, serr.CodeMissingField, "%s is required", field)
}

func isIdentifier(s string) bool {
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return s != ""
}
