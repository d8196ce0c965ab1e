package usecase

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ccdrover/ccdrover/pkg/domain/model"
	"github.com/ccdrover/ccdrover/pkg/infra/compiler"
	"github.com/ccdrover/ccdrover/pkg/infra/gitrepo"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
)

func TestSortByPosition(t *testing.T) {
	position := map[string]int{"d": 0, "c": 1, "b": 2, "a": 3}
	revs := []string{"a", "d", "b"}
	sortByPosition(revs, position)
	gt.Equal(t, revs, []string{"d", "b", "a"})
}

// historyRepo builds a linear throwaway history and returns its
// commit hashes, oldest first
func historyRepo(t *testing.T, commits int) (string, []string, func(args ...string) string) {
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
	return dir, shas, git
}

// stubChecker answers interestingness probes from a fixed verdict
// table keyed by commit hash
type stubChecker struct {
	repo        *gitrepo.Repo
	interesting map[string]bool
	unbuilt     map[string]bool
}

func (s *stubChecker) IsInteresting(ctx context.Context, c *model.Case) (bool, error) {
	commit, err := s.repo.RevToCommit(ctx, c.BadSetting.Revision)
	if err != nil {
		return false, err
	}
	if s.unbuilt[commit] {
		return false, goerr.Wrap(compiler.ErrRevisionNotBuilt, "no build", goerr.V("rev", commit))
	}
	verdict, ok := s.interesting[commit]
	if !ok {
		return false, goerr.New("probed an unexpected revision", goerr.V("rev", commit))
	}
	return verdict, nil
}

func bisectCaseFor(goodRev, badRev string) *model.Case {
	return &model.Case{
		Marker: "DCEMarker0_",
		Code:   "void DCEMarker0_(void);\nint main() { return 0; }",
		BadSetting: model.CompilationSetting{
			Project: model.ProjectGCC, Revision: badRev, OptLevel: model.O3,
		},
		GoodSettings: []model.CompilationSetting{
			{Project: model.ProjectGCC, Revision: goodRev, OptLevel: model.O3},
		},
	}
}

func TestBisect(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	ctx := context.Background()

	newBisector := func(repo *gitrepo.Repo, checker *stubChecker) *Bisector {
		cache, err := compiler.NewCache(t.TempDir())
		gt.NoError(t, err)
		return &Bisector{Repo: repo, Cache: cache, Checker: checker}
	}

	t.Run("finds the introducing commit", func(t *testing.T) {
		dir, shas, _ := historyRepo(t, 10)
		repo, err := gitrepo.Open(ctx, dir, model.ProjectGCC)
		gt.NoError(t, err)

		// the regression lands at shas[6]
		interesting := map[string]bool{}
		for i, sha := range shas {
			interesting[sha] = i >= 6
		}
		checker := &stubChecker{repo: repo, interesting: interesting}

		commit, timings, err := newBisector(repo, checker).Bisect(ctx, bisectCaseFor(shas[0], shas[9]))
		gt.NoError(t, err)
		gt.Equal(t, commit, shas[6])
		gt.V(t, timings.BisectSteps > 0).Equal(true)
	})

	t.Run("skips over an unbuildable revision", func(t *testing.T) {
		dir, shas, _ := historyRepo(t, 10)
		repo, err := gitrepo.Open(ctx, dir, model.ProjectGCC)
		gt.NoError(t, err)

		interesting := map[string]bool{}
		for i, sha := range shas {
			interesting[sha] = i >= 8
		}
		checker := &stubChecker{
			repo:        repo,
			interesting: interesting,
			unbuilt:     map[string]bool{shas[5]: true},
		}

		commit, _, err := newBisector(repo, checker).Bisect(ctx, bisectCaseFor(shas[0], shas[9]))
		gt.NoError(t, err)
		gt.Equal(t, commit, shas[8])
	})

	t.Run("cached builds narrow the range first", func(t *testing.T) {
		dir, shas, _ := historyRepo(t, 10)
		repo, err := gitrepo.Open(ctx, dir, model.ProjectGCC)
		gt.NoError(t, err)

		// every commit has a cached build, so phase one alone must
		// pin down the flip
		cacheDir := t.TempDir()
		for _, sha := range shas {
			bin := filepath.Join(cacheDir, "gcc-"+sha, "bin")
			gt.NoError(t, os.MkdirAll(bin, 0o755))
			gt.NoError(t, os.WriteFile(filepath.Join(bin, "gcc"), []byte("#!/bin/sh\n"), 0o755))
		}
		cache, err := compiler.NewCache(cacheDir)
		gt.NoError(t, err)

		interesting := map[string]bool{}
		for i, sha := range shas {
			interesting[sha] = i >= 4
		}
		checker := &stubChecker{repo: repo, interesting: interesting}

		b := &Bisector{Repo: repo, Cache: cache, Checker: checker}
		commit, _, err := b.Bisect(ctx, bisectCaseFor(shas[0], shas[9]))
		gt.NoError(t, err)
		gt.Equal(t, commit, shas[4])
	})

	t.Run("finds the fixing commit when the merge base is interesting", func(t *testing.T) {
		dir, shas, git := historyRepo(t, 6)
		repo, err := gitrepo.Open(ctx, dir, model.ProjectGCC)
		gt.NoError(t, err)

		// the good setting lives on a branch where the bug was fixed
		git("checkout", "-b", "fix", shas[2])
		gt.NoError(t, os.WriteFile(filepath.Join(dir, "g.txt"), []byte("fixed"), 0o644))
		git("add", "g.txt")
		git("commit", "-m", "fix")
		fixCommit := git("rev-parse", "HEAD")
		git("checkout", "master")

		interesting := map[string]bool{fixCommit: false}
		for _, sha := range shas {
			interesting[sha] = true
		}
		checker := &stubChecker{repo: repo, interesting: interesting}

		commit, _, err := newBisector(repo, checker).Bisect(ctx, bisectCaseFor(fixCommit, shas[5]))
		gt.NoError(t, err)
		gt.Equal(t, commit, fixCommit)
	})
}
