package gitrepo_test

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ccdrover/ccdrover/pkg/domain/model"
	"github.com/ccdrover/ccdrover/pkg/infra/gitrepo"
	"github.com/m-mizutani/gt"
)

func initRepo(t *testing.T, commits int) (string, []string) {
	t.Helper()
	dir := t.TempDir()

	git := func(args ...string) string {
		t.Helper()
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=t", "GIT_AUTHOR_EMAIL=t@example.com",
			"GIT_COMMITTER_NAME=t", "GIT_COMMITTER_EMAIL=t@example.com",
		)
		out, err := cmd.CombinedOutput()
		gt.NoError(t, err)
		return strings.TrimSpace(string(out))
	}

	git("init", "-b", "master")
	var shas []string
	for i := 0; i < commits; i++ {
		name := filepath.Join(dir, "f.txt")
		gt.NoError(t, os.WriteFile(name, []byte(strings.Repeat("x", i+1)), 0o644))
		git("add", "f.txt")
		git("commit", "-m", "step")
		shas = append(shas, git("rev-parse", "HEAD"))
	}
	return dir, shas
}

func TestRepo(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	ctx := context.Background()
	dir, shas := initRepo(t, 5)

	repo, err := gitrepo.Open(ctx, dir, model.ProjectGCC)
	gt.NoError(t, err)

	t.Run("trunk aliases to the main branch", func(t *testing.T) {
		commit, err := repo.RevToCommit(ctx, "trunk")
		gt.NoError(t, err)
		gt.Equal(t, commit, shas[len(shas)-1])
	})

	t.Run("ancestry", func(t *testing.T) {
		ok, err := repo.IsAncestor(ctx, shas[0], shas[4])
		gt.NoError(t, err)
		gt.Equal(t, ok, true)

		ok, err = repo.IsAncestor(ctx, shas[4], shas[0])
		gt.NoError(t, err)
		gt.Equal(t, ok, false)
	})

	t.Run("first parent path excludes the good end", func(t *testing.T) {
		path, err := repo.FirstParentPath(ctx, shas[1], shas[4])
		gt.NoError(t, err)
		gt.Equal(t, path, []string{shas[4], shas[3], shas[2]})
	})

	t.Run("bisection midpoint lies inside the range", func(t *testing.T) {
		mid, err := repo.NextBisection(ctx, shas[0], shas[4])
		gt.NoError(t, err)
		ok, err := repo.IsAncestor(ctx, shas[0], mid)
		gt.NoError(t, err)
		gt.Equal(t, ok, true)
		gt.V(t, mid != shas[0]).Equal(true)
	})

	t.Run("exact tag lookup", func(t *testing.T) {
		cmd := exec.Command("git", "tag", "releases/gcc-1.0", shas[2])
		cmd.Dir = dir
		gt.NoError(t, cmd.Run())

		tag, err := repo.RevToTag(ctx, shas[2])
		gt.NoError(t, err)
		gt.Equal(t, tag, "releases/gcc-1.0")

		// only exact matches count, never an approximate tag~N
		tag, err = repo.RevToTag(ctx, shas[1])
		gt.NoError(t, err)
		gt.Equal(t, tag, "")
	})

	t.Run("commit time is populated", func(t *testing.T) {
		ts, err := repo.CommitTime(ctx, shas[0])
		gt.NoError(t, err)
		gt.V(t, ts.IsZero()).Equal(false)
	})
}
