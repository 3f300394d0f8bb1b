package dataset

import (
	"fmt"
	"math/rand"
)

// Assemble reorders both row sets to order, concatenates them and shuffles
// the result uniformly so new and aged rows cannot be told apart by position.
func Assemble(newRows, existingRows *Table, order []string, rng *rand.Rand) (*Table, error) {
	if rng == nil {
		return nil, fmt.Errorf("assemble: a random source is required")
	}

	fresh, err := Reindex(newRows, order)
	if err != nil {
		return nil, fmt.Errorf("new records: %w", err)
	}
	existing, err := Reindex(existingRows, order)
	if err != nil {
		return nil, fmt.Errorf("existing records: %w", err)
	}

	out := &Table{
		Columns: append([]string(nil), order...),
		Rows:    make([]Row, 0, len(fresh.Rows)+len(existing.Rows)),
	}
	out.Rows = append(out.Rows, fresh.Rows...)
	out.Rows = append(out.Rows, existing.Rows...)

	rng.Shuffle(len(out.Rows), func(i, j int) {
		out.Rows[i], out.Rows[j] = out.Rows[j], out.Rows[i]
	})
	return out, nil
}
