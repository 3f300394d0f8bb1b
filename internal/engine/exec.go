package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/Rana718/seriesgen/internal/dataset"
	serr "github.com/Rana718/seriesgen/internal/errors"
	"github.com/Rana718/seriesgen/internal/spec"
)

const (
	SpecPlaceholder   = "{spec}"
	OutputPlaceholder = "{out}"

	// LinkedColumnsEnv carries the linked-column declaration to the command
	// as JSON. It is unset when the call has no linked columns.
	LinkedColumnsEnv = "SERIESGEN_LINKED_COLUMNS"
)

// Exec hands each specification to an external generator. The command gets
// the path of a YAML specification and the path it must write a CSV to.
type Exec struct {
	command []string
	logger  *zap.Logger
}

func NewExec(command []string, logger *zap.Logger) (*Exec, error) {
	if len(command) == 0 {
		return nil, serr.New(serr.CategoryConfiguration, serr.CodeMissingField, "engine.command is required for the exec engine")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exec{
		command: append([]string(nil), command...),
		logger:  logger.Named("engine"),
	}, nil
}

func (e *Exec) Generate(ctx context.Context, s *spec.Spec, linked [][]string) (*dataset.Table, error) {
	dir, err := os.MkdirTemp("", "seriesgen-engine-*")
	if err != nil {
		return nil, serr.Wrap(serr.CategoryPersistence, serr.CodeWriteFailed, "failed to create engine work dir", err)
	}
	defer os.RemoveAll(dir)

	specPath := filepath.Join(dir, "spec.yaml")
	outPath := filepath.Join(dir, "out.csv")
	if err := spec.Save(specPath, s); err != nil {
		return nil, serr.Wrap(serr.CategoryPersistence, serr.CodeWriteFailed, "failed to hand over specification", err)
	}

	args := make([]string, len(e.command))
	for i, a := range e.command {
		a = strings.ReplaceAll(a, SpecPlaceholder, specPath)
		args[i] = strings.ReplaceAll(a, OutputPlaceholder, outPath)
	}

	env, err := linkedEnv(linked)
	if err != nil {
		return nil, err
	}

	var combined bytes.Buffer
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stdout = &combined
	cmd.Stderr = &combined
	cmd.Env = env

	e.logger.Debug("running engine command", zap.Strings("args", args))
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(combined.String())
		if exitErr, ok := err.(*exec.ExitError); ok {
			return nil, serr.Wrap(serr.CategoryGeneration, serr.CodeEngineFailed,
				fmt.Sprintf("engine exited with code %d", exitErr.ExitCode()), fmt.Errorf("%s", msg))
		}
		return nil, serr.Wrap(serr.CategoryGeneration, serr.CodeEngineFailed, "failed to run engine", err)
	}

	f, err := os.Open(outPath)
	if err != nil {
		return nil, serr.Wrap(serr.CategoryGeneration, serr.CodeEngineFailed, "engine produced no output", err)
	}
	defer f.Close()

	t, err := dataset.ReadCSV(f)
	if err != nil {
		return nil, serr.Wrap(serr.CategoryGeneration, serr.CodeEngineFailed, "engine output is not valid CSV", err)
	}
	return t, nil
}

// linkedEnv is the command environment with LinkedColumnsEnv set to linked,
// or removed when linked is empty.
func linkedEnv(linked [][]string) ([]string, error) {
	env := make([]string, 0, len(os.Environ())+1)
	for _, kv := range os.Environ() {
		if !strings.HasPrefix(kv, LinkedColumnsEnv+"=") {
			env = append(env, kv)
		}
	}
	if len(linked) == 0 {
		return env, nil
	}
	raw, err := json.Marshal(linked)
	if err != nil {
		return nil, serr.Wrap(serr.CategoryConfiguration, serr.CodeInvalidValue, "failed to encode linked columns", err)
	}
	return append(env, LinkedColumnsEnv+"="+string(raw)), nil
}
