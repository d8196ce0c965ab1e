package gitrepo

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ccdrover/ccdrover/pkg/domain/model"
	"github.com/ccdrover/ccdrover/pkg/utils/cmdx"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
)

// Repo wraps a local checkout of a compiler project's git history.
// Revision lookups are memoized; Pull invalidates the memo.
type Repo struct {
	Dir     string
	Project model.CompilerProject

	mu      sync.Mutex
	commits map[string]string
}

// Open validates that dir is a git checkout and wraps it
func Open(ctx context.Context, dir string, project model.CompilerProject) (*Repo, error) {
	r := &Repo{Dir: dir, Project: project, commits: map[string]string{}}
	if _, err := r.git(ctx, "rev-parse", "--git-dir"); err != nil {
		return nil, goerr.Wrap(err, "not a git checkout", goerr.V("dir", dir))
	}
	return r, nil
}

func (r *Repo) git(ctx context.Context, args ...string) (string, error) {
	out, err := cmdx.Run(ctx, "git", args, cmdx.WithDir(r.Dir))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out.Stdout), nil
}

// RevToCommit resolves a revision spec to a full commit hash. The
// aliases trunk, master and main all resolve to the project's actual
// main branch, so scenario files work across gcc and llvm.
func (r *Repo) RevToCommit(ctx context.Context, rev string) (string, error) {
	switch rev {
	case "trunk", "master", "main":
		rev = r.Project.MainBranch()
	}

	r.mu.Lock()
	if commit, ok := r.commits[rev]; ok {
		r.mu.Unlock()
		return commit, nil
	}
	r.mu.Unlock()

	commit, err := r.git(ctx, "rev-parse", rev)
	if err != nil {
		return "", goerr.Wrap(err, "failed to resolve revision",
			goerr.V("rev", rev),
			goerr.V("project", r.Project.String()))
	}

	r.mu.Lock()
	r.commits[rev] = commit
	r.mu.Unlock()
	return commit, nil
}

// IsAncestor reports whether a is an ancestor of b
func (r *Repo) IsAncestor(ctx context.Context, a, b string) (bool, error) {
	_, err := r.git(ctx, "merge-base", "--is-ancestor", a, b)
	if err != nil {
		if cmdx.ExitCode(err) == 1 {
			return false, nil
		}
		return false, goerr.Wrap(err, "merge-base --is-ancestor failed")
	}
	return true, nil
}

// MergeBase returns the common ancestor of two commits
func (r *Repo) MergeBase(ctx context.Context, a, b string) (string, error) {
	base, err := r.git(ctx, "merge-base", a, b)
	if err != nil {
		return "", goerr.Wrap(err, "merge-base failed", goerr.V("a", a), goerr.V("b", b))
	}
	return base, nil
}

// FirstParentPath lists the commits between good and bad along the
// first-parent chain, newest first, excluding good itself
func (r *Repo) FirstParentPath(ctx context.Context, good, bad string) ([]string, error) {
	out, err := r.git(ctx, "rev-list", "--first-parent", bad, "^"+good)
	if err != nil {
		return nil, goerr.Wrap(err, "rev-list failed", goerr.V("good", good), goerr.V("bad", bad))
	}
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}

// NextBisection returns the midpoint commit git would test next
// between good and bad, following first parents only. An exhausted
// range yields an empty string.
func (r *Repo) NextBisection(ctx context.Context, good, bad string) (string, error) {
	out, err := r.git(ctx, "rev-list", "--bisect", "--first-parent", bad, "^"+good)
	if err != nil {
		return "", goerr.Wrap(err, "rev-list --bisect failed")
	}
	return out, nil
}

// Ancestor resolves rev~n
func (r *Repo) Ancestor(ctx context.Context, rev string, n int) (string, error) {
	return r.RevToCommit(ctx, fmt.Sprintf("%s~%d", rev, n))
}

// CommitTime returns the committer timestamp of a revision
func (r *Repo) CommitTime(ctx context.Context, rev string) (time.Time, error) {
	out, err := r.git(ctx, "show", "-s", "--format=%ct", rev)
	if err != nil {
		return time.Time{}, goerr.Wrap(err, "failed to read commit time", goerr.V("rev", rev))
	}
	sec, err := strconv.ParseInt(out, 10, 64)
	if err != nil {
		return time.Time{}, goerr.Wrap(err, "unexpected commit time format", goerr.V("output", out))
	}
	return time.Unix(sec, 0).UTC(), nil
}

// RevToTag returns the tag pointing exactly at a revision, or an
// empty string when the revision is not a tagged release. Reports use
// it to label good settings with their release name.
func (r *Repo) RevToTag(ctx context.Context, rev string) (string, error) {
	out, err := r.git(ctx, "describe", "--exact-match", rev)
	if err != nil {
		if cmdx.ExitCode(err) > 0 {
			return "", nil
		}
		return "", goerr.Wrap(err, "describe --exact-match failed", goerr.V("rev", rev))
	}
	return out, nil
}

// Pull updates the checkout from its remote and drops memoized
// revision lookups, since branch heads may have moved
func (r *Repo) Pull(ctx context.Context) error {
	ctxlog.From(ctx).Info("updating compiler checkout",
		"dir", r.Dir,
		"project", r.Project.String())

	if _, err := r.git(ctx, "pull", "--ff-only", "origin", r.Project.MainBranch()); err != nil {
		return goerr.Wrap(err, "git pull failed", goerr.V("dir", r.Dir))
	}

	r.mu.Lock()
	r.commits = map[string]string{}
	r.mu.Unlock()
	return nil
}
