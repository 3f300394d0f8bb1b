// Package engine turns a specification into rows. The pipeline only depends
// on the Engine interface; Builtin and Exec are the two shipped backends.
package engine

import (
	"context"

	"github.com/Rana718/seriesgen/internal/dataset"
	"github.com/Rana718/seriesgen/internal/spec"
)

// Engine generates the rows of one specification. linked lists the column
// groups whose values must stay consistent with each other; it is empty for
// the existing stream, whose pairing is carried by the specification.
type Engine interface {
	Generate(ctx context.Context, s *spec.Spec, linked [][]string) (*dataset.Table, error)
}

var (
	_ Engine = (*Builtin)(nil)
	_ Engine = (*Exec)(nil)
)
