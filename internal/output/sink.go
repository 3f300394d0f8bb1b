// Package output persists what each period produces: the assembled dataset
// and the specifications that generated it.
package output

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/Rana718/seriesgen/internal/dataset"
	serr "github.com/Rana718/seriesgen/internal/errors"
	"github.com/Rana718/seriesgen/internal/spec"
)

const (
	StreamNew      = "new"
	StreamExisting = "existing"
)

type Sink interface {
	WriteDataset(ctx context.Context, period int, t *dataset.Table) error
	WriteSpec(ctx context.Context, period int, stream string, s *spec.Spec) error
}

func DatasetName(period int) string {
	return fmt.Sprintf("dataset_%d.csv", period)
}

func SpecName(period int, stream string) string {
	return fmt.Sprintf("%s_specification_dataset_%d.yaml", stream, period)
}

// Dir writes every artifact into a single local directory.
type Dir struct {
	root   string
	logger *zap.Logger
}

func NewDir(root string, logger *zap.Logger) (*Dir, error) {
	if root == "" {
		root = "."
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, serr.Wrap(serr.CategoryPersistence, serr.CodeWriteFailed, fmt.Sprintf("failed to create output dir %s", root), err)
	}
	return &Dir{root: root, logger: logger.Named("output")}, nil
}

func (d *Dir) Root() string { return d.root }

func (d *Dir) WriteDataset(ctx context.Context, period int, t *dataset.Table) error {
	_, err := d.writeDataset(ctx, period, t)
	return err
}

func (d *Dir) WriteSpec(ctx context.Context, period int, stream string, s *spec.Spec) error {
	_, err := d.writeSpec(ctx, period, stream, s)
	return err
}

func (d *Dir) writeDataset(ctx context.Context, period int, t *dataset.Table) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path := filepath.Join(d.root, DatasetName(period))
	f, err := os.Create(path)
	if err != nil {
		return "", writeErr(path, err)
	}
	if err := dataset.WriteCSV(f, t); err != nil {
		f.Close()
		return "", writeErr(path, err)
	}
	if err := f.Close(); err != nil {
		return "", writeErr(path, err)
	}
	d.logger.Debug("wrote dataset", zap.String("path", path), zap.Int("rows", t.Len()))
	return path, nil
}

func (d *Dir) writeSpec(ctx context.Context, period int, stream string, s *spec.Spec) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path := filepath.Join(d.root, SpecName(period, stream))
	if err := spec.Save(path, s); err != nil {
		return "", writeErr(path, err)
	}
	d.logger.Debug("wrote specification", zap.String("path", path), zap.String("stream", stream))
	return path, nil
}

func writeErr(path string, err error) error {
	return serr.Wrap(serr.CategoryPersistence, serr.CodeWriteFailed, fmt.Sprintf("failed to write %s", path), err)
}
