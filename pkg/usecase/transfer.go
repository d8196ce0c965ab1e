package usecase

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/ccdrover/ccdrover/pkg/domain/interfaces"
	"github.com/ccdrover/ccdrover/pkg/domain/model"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/sync/errgroup"
)

// Transfer moves cases between the store and JSON files on disk, for
// exchanging findings between machines
type Transfer struct {
	Store interfaces.CaseStore
}

// Export writes a stored case to path as JSON
func (t *Transfer) Export(ctx context.Context, id, path string) error {
	rec, err := t.Store.GetCase(ctx, id)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return goerr.Wrap(err, "failed to encode case", goerr.V("case_id", id))
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return goerr.Wrap(err, "failed to write case file", goerr.V("path", path))
	}
	return nil
}

// Absorb imports every .json case file under dir into the store and
// returns how many cases were added. Unreadable files are logged and
// skipped rather than aborting the whole import.
func (t *Transfer) Absorb(ctx context.Context, dir string) (int, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return 0, goerr.Wrap(err, "failed to scan case dir", goerr.V("dir", dir))
	}

	var absorbed atomic.Int64
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(8)

	for _, path := range paths {
		eg.Go(func() error {
			c, err := ReadCaseFile(path)
			if err != nil {
				ctxlog.From(egCtx).Warn("skipping unreadable case file",
					"path", path, "error", err)
				return nil
			}
			if _, err := t.Store.PutCase(egCtx, c); err != nil {
				return err
			}
			absorbed.Add(1)
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return int(absorbed.Load()), err
	}
	return int(absorbed.Load()), nil
}

// ReadCaseFile loads a case from a JSON file, accepting both exported
// records and bare cases
func ReadCaseFile(path string) (*model.Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read case file")
	}

	var rec model.CaseRecord
	if err := json.Unmarshal(data, &rec); err == nil && rec.Case != nil {
		if err := rec.Case.Validate(); err == nil {
			return rec.Case, nil
		}
	}

	var c model.Case
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, goerr.Wrap(err, "not a case file")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}
