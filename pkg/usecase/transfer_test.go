package usecase_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ccdrover/ccdrover/pkg/domain/model"
	"github.com/ccdrover/ccdrover/pkg/infra/store"
	"github.com/ccdrover/ccdrover/pkg/usecase"
	"github.com/m-mizutani/gt"
)

func TestExportAndAbsorb(t *testing.T) {
	ctx := context.Background()
	s, err := store.New(filepath.Join(t.TempDir(), "cases.db"))
	gt.NoError(t, err)
	defer s.Close()

	transfer := &usecase.Transfer{Store: s}

	c := &model.Case{
		Marker: "DCEMarker3_",
		Code:   "void DCEMarker3_(void); int main(void) { return 0; }",
		BadSetting: model.CompilationSetting{
			Project:  model.ProjectLLVM,
			Revision: "main",
			OptLevel: model.O2,
		},
		GoodSettings: []model.CompilationSetting{
			{Project: model.ProjectLLVM, Revision: "llvmorg-15.0.0", OptLevel: model.O2},
		},
	}
	id, err := s.PutCase(ctx, c)
	gt.NoError(t, err)

	dir := t.TempDir()
	exported := filepath.Join(dir, "case.json")
	gt.NoError(t, transfer.Export(ctx, id, exported))

	t.Run("absorb imports exported records", func(t *testing.T) {
		// junk files must be skipped, not fatal
		gt.NoError(t, os.WriteFile(filepath.Join(dir, "junk.json"), []byte("{"), 0o644))

		n, err := transfer.Absorb(ctx, dir)
		gt.NoError(t, err)
		gt.Equal(t, n, 1)

		records, err := s.ListCases(ctx)
		gt.NoError(t, err)
		gt.Equal(t, len(records), 2)
	})
}
