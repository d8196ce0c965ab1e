package usecase

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/ccdrover/ccdrover/pkg/domain/model"
	"github.com/ccdrover/ccdrover/pkg/infra/compiler"
	"github.com/ccdrover/ccdrover/pkg/infra/gitrepo"
	"github.com/fatih/color"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
)

// Reporter assembles a textual bug report for a bisected and reduced
// case: the renamed source, bad/good/bisection assembly, compiler
// info and commit links, ready to paste into a bug tracker.
type Reporter struct {
	Repo    *gitrepo.Repo
	Checker *Checker
	Out     io.Writer
	NoColor bool
}

var fileDirective = regexp.MustCompile(`\.file\s+"([^"]*)"`)

// normalizeFileDirective rewrites the random temp file name in the
// assembly's .file directive to case.c so reports are reproducible
func normalizeFileDirective(asm string) string {
	m := fileDirective.FindStringSubmatch(asm)
	if m == nil || m[1] == "" {
		return asm
	}
	return strings.ReplaceAll(asm, m[1], "case.c")
}

// renameMarkers makes the report's source read naturally: the case
// marker becomes foo, all sibling markers become bar-prefixed
func renameMarkers(code, marker string) string {
	prefix := model.MarkerPrefix(marker)
	code = strings.ReplaceAll(code, marker, "foo")
	return strings.ReplaceAll(code, prefix, "bar")
}

// Report writes the bug report for a case. The case is re-validated
// against the current upstream main first; a case main no longer
// reproduces is reported as possibly fixed.
func (r *Reporter) Report(ctx context.Context, c *model.Case, pull bool) error {
	if c.ReducedCode == "" {
		return goerr.New("case has not been reduced yet", goerr.V("marker", c.Marker))
	}
	if c.Bisection == "" {
		return goerr.New("case has not been bisected yet", goerr.V("marker", c.Marker))
	}

	ok, err := r.Checker.IsInteresting(ctx, c)
	if err != nil {
		return err
	}
	if !ok {
		return goerr.New("case is not interesting anymore", goerr.V("marker", c.Marker))
	}

	if pull {
		if err := r.Repo.Pull(ctx); err != nil {
			return err
		}
	}

	// report against the freshest trunk that still reproduces
	mainCommit, err := r.Repo.RevToCommit(ctx, "trunk")
	if err != nil {
		return err
	}
	probe := c.Clone()
	probe.BadSetting = c.BadSetting.WithRevision(mainCommit)
	onMain, err := r.Checker.IsInteresting(ctx, probe)
	if err != nil {
		return err
	}
	reportCase := c
	if onMain {
		reportCase = probe
	} else {
		ctxlog.From(ctx).Warn("case does not reproduce on current main, possibly fixed")
	}

	goodSetting, err := r.pickGoodSetting(ctx, reportCase)
	if err != nil {
		return err
	}

	return r.write(ctx, reportCase, goodSetting, !onMain)
}

// pickGoodSetting chooses the newest good setting on the bad
// setting's optimization level for the report
func (r *Reporter) pickGoodSetting(ctx context.Context, c *model.Case) (model.CompilationSetting, error) {
	var best model.CompilationSetting
	var bestTime time.Time
	for _, gs := range c.GoodSettings {
		if gs.OptLevel != c.BadSetting.OptLevel || gs.Project != c.BadSetting.Project {
			continue
		}
		commit, err := r.Repo.RevToCommit(ctx, gs.Revision)
		if err != nil {
			return best, err
		}
		ts, err := r.Repo.CommitTime(ctx, commit)
		if err != nil {
			return best, err
		}
		if bestTime.IsZero() || ts.After(bestTime) {
			best, bestTime = gs, ts
		}
	}
	if bestTime.IsZero() {
		return best, goerr.New("no good setting matches the bad setting's opt level")
	}
	return best, nil
}

// settingTag renders a setting with its release tag when the revision
// points exactly at one, falling back to the raw revision
func (r *Reporter) settingTag(ctx context.Context, s model.CompilationSetting) string {
	tag, err := r.Repo.RevToTag(ctx, s.Revision)
	if err != nil || tag == "" {
		return s.String()
	}
	return fmt.Sprintf("%s-%s %s", s.Project.BinaryName(), tag, s.OptLevel.Flag())
}

func (r *Reporter) asm(ctx context.Context, source string, s model.CompilationSetting) (string, error) {
	cs, err := r.Checker.resolve(ctx, s)
	if err != nil {
		return "", err
	}
	program := &model.SourceProgram{Code: source, Language: model.LangC}
	res, err := cs.Compile(ctx, program, compiler.OutputAssembly, nil, time.Minute)
	if err != nil {
		return "", err
	}
	defer res.Close()
	asm, err := res.Read()
	if err != nil {
		return "", err
	}
	return normalizeFileDirective(asm), nil
}

func (r *Reporter) write(ctx context.Context, c *model.Case, good model.CompilationSetting, possiblyFixed bool) error {
	heading := color.New(color.FgCyan, color.Bold)
	warn := color.New(color.FgYellow)
	if r.NoColor {
		heading.DisableColor()
		warn.DisableColor()
	}

	source := renameMarkers(c.ReducedCode, c.Marker)
	badStr := c.BadSetting.String() + " (trunk)"
	goodStr := r.settingTag(ctx, good)

	if possiblyFixed {
		warn.Fprintln(r.Out, "note: does not reproduce on current main, possibly fixed")
		fmt.Fprintln(r.Out)
	}

	heading.Fprintln(r.Out, "cat case.c")
	fmt.Fprintln(r.Out, source)
	fmt.Fprintf(r.Out, "%s can not eliminate foo but %s can.\n\n", badStr, goodStr)

	for _, s := range []struct {
		label   string
		setting model.CompilationSetting
	}{
		{badStr, c.BadSetting},
		{goodStr, good},
	} {
		asm, err := r.asm(ctx, source, s.setting)
		if err != nil {
			return err
		}
		heading.Fprintf(r.Out, "%s -S -o /dev/stdout case.c\n", s.label)
		fmt.Fprintln(r.Out, asm)
		fmt.Fprintln(r.Out)
	}

	for _, s := range []model.CompilationSetting{c.BadSetting, good} {
		cs, err := r.Checker.resolve(ctx, s)
		if err != nil {
			return err
		}
		info, err := cs.Compiler.VerboseInfo(ctx)
		if err != nil {
			return err
		}
		heading.Fprintf(r.Out, "%s-%s -v\n", s.Project.BinaryName(), s.Revision)
		fmt.Fprintln(r.Out, info)
		fmt.Fprintln(r.Out)
	}

	heading.Fprintf(r.Out, "Started with %s\n", c.BadSetting.Project.CommitLink(c.Bisection))
	fmt.Fprintln(r.Out, strings.Repeat("-", 48))

	bisectSetting := c.BadSetting.WithRevision(c.Bisection)
	asm, err := r.asm(ctx, source, bisectSetting)
	if err != nil {
		return err
	}
	heading.Fprintf(r.Out, "%s -S -o /dev/stdout case.c\n", bisectSetting.String())
	fmt.Fprintln(r.Out, asm)
	fmt.Fprintln(r.Out, strings.Repeat("-", 48))

	prev, err := r.Repo.Ancestor(ctx, c.Bisection, 1)
	if err != nil {
		return err
	}
	prevSetting := c.BadSetting.WithRevision(prev)
	asm, err = r.asm(ctx, source, prevSetting)
	if err != nil {
		return err
	}
	heading.Fprintf(r.Out, "Previous commit %s\n", c.BadSetting.Project.CommitLink(prev))
	fmt.Fprintln(r.Out, asm)
	return nil
}
