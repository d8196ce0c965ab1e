package compiler_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ccdrover/ccdrover/pkg/domain/model"
	"github.com/ccdrover/ccdrover/pkg/infra/compiler"
	"github.com/m-mizutani/gt"
)

func TestParseVersionOutput(t *testing.T) {
	tests := []struct {
		name        string
		output      string
		wantProject model.CompilerProject
		wantRev     string
		wantOK      bool
	}{
		{
			name:        "gcc release",
			output:      "Using built-in specs.\nCOLLECT_GCC=gcc\ngcc version 12.2.0 (Debian 12.2.0-14)\n",
			wantProject: model.ProjectGCC,
			wantRev:     "12.2.0",
			wantOK:      true,
		},
		{
			name:        "clang release",
			output:      "Debian clang version 14.0.6\nTarget: x86_64-pc-linux-gnu\n",
			wantProject: model.ProjectLLVM,
			wantRev:     "14.0.6",
			wantOK:      true,
		},
		{
			name:        "clang trunk build",
			output:      "clang version 17.0.0 (https://github.com/llvm/llvm-project 1a2b3c)\n",
			wantProject: model.ProjectLLVM,
			wantRev:     "17.0.0",
			wantOK:      true,
		},
		{
			name:   "not a compiler",
			output: "GNU Make 4.3\n",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			project, rev, ok := compiler.ParseVersionOutput(tt.output)
			gt.Equal(t, ok, tt.wantOK)
			if tt.wantOK {
				gt.Equal(t, project, tt.wantProject)
				gt.Equal(t, rev, tt.wantRev)
			}
		})
	}
}

func TestCache(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	mkBuild := func(name string) {
		binDir := filepath.Join(root, name, "bin")
		gt.NoError(t, os.MkdirAll(binDir, 0o755))
		bin := "gcc"
		if name[0] == 'c' {
			bin = "clang"
		}
		gt.NoError(t, os.WriteFile(filepath.Join(binDir, bin), []byte("#!/bin/sh\n"), 0o755))
	}
	mkBuild("gcc-abc123")
	mkBuild("gcc-def456")
	mkBuild("clang-987fed")
	// entry without a binary must be ignored
	gt.NoError(t, os.MkdirAll(filepath.Join(root, "gcc-broken"), 0o755))

	cache, err := compiler.NewCache(root)
	gt.NoError(t, err)

	t.Run("revisions are scanned per project", func(t *testing.T) {
		revs, err := cache.Revisions(model.ProjectGCC)
		gt.NoError(t, err)
		gt.Equal(t, len(revs), 2)

		revs, err = cache.Revisions(model.ProjectLLVM)
		gt.NoError(t, err)
		gt.Equal(t, revs, []string{"987fed"})
	})

	t.Run("provide hits a cached build", func(t *testing.T) {
		path, err := cache.Provide(ctx, model.ProjectGCC, "abc123")
		gt.NoError(t, err)
		gt.Equal(t, path, filepath.Join(root, "gcc-abc123", "bin", "gcc"))
	})

	t.Run("provide misses an unbuilt revision", func(t *testing.T) {
		_, err := cache.Provide(ctx, model.ProjectLLVM, "nothere")
		gt.Error(t, err)
	})
}
