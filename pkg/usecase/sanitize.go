package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/ccdrover/ccdrover/pkg/domain/model"
	"github.com/ccdrover/ccdrover/pkg/infra/compiler"
	"github.com/ccdrover/ccdrover/pkg/utils/cmdx"
	"github.com/m-mizutani/ctxlog"
)

// checkedWarnings are substrings whose presence in compiler output
// marks a generated program as broken. Collected from years of csmith
// false positives.
var checkedWarnings = []string{
	"cast from pointer to integer",
	"cast to smaller integer type",
	"comparison between pointer and integer",
	"control reaches end",
	"conversions than data arguments",
	"declaration does not declare anything",
	"division by zero",
	"eliding middle term",
	"end of non-void function",
	"excess elements in struct initializer",
	"expects type",
	"incompatible implicit",
	"incompatible integer to",
	"incompatible pointer",
	"incompatible redeclaration",
	"invalid in C99",
	"no return statement in function returning non-void",
	"no semicolon at end",
	"ordered comparison between pointer",
	"ordered comparison of pointer with integer",
	"past the end of the array",
	"pointer from integer",
	"return type defaults",
	"return type of 'main' is not 'int'",
	"should return a value",
	"specifies type",
	"too few arguments for format",
	"type defaults to",
	"type specifier missing",
	"undefined behavior",
	"uninitialized",
	"useless type name in empty declaration",
	"Wimplicit-int",
	"without a cast",
}

var warningFlags = []string{
	"-Wall",
	"-Wextra",
	"-Wpedantic",
	"-Wno-builtin-declaration-mismatch",
}

// Sanitizer rules out obviously broken generated programs before they
// enter the pipeline: compiler warnings from both system compilers,
// clang's UB and address sanitizers, and CompCert interpretation.
type Sanitizer struct {
	GCC   *compiler.Exe
	Clang *compiler.Exe
	CComp *compiler.CComp

	CheckWarnings    bool
	UseUBSanitizer   bool
	UseMemSanitizer  bool
	WarningsOptLevel model.OptLevel

	CompileTimeout time.Duration
	RunTimeout     time.Duration
	CCompTimeout   time.Duration
}

// NewSanitizer builds a sanitizer around the system gcc and clang.
// CompCert is picked up when installed, skipped otherwise.
func NewSanitizer(ctx context.Context) (*Sanitizer, error) {
	gcc, err := compiler.Detect(ctx, "gcc")
	if err != nil {
		return nil, err
	}
	clang, err := compiler.Detect(ctx, "clang")
	if err != nil {
		return nil, err
	}
	ccomp, err := compiler.FindCComp()
	if err != nil {
		return nil, err
	}

	return &Sanitizer{
		GCC:              gcc,
		Clang:            clang,
		CComp:            ccomp,
		CheckWarnings:    true,
		UseUBSanitizer:   true,
		WarningsOptLevel: model.O3,
		CompileTimeout:   8 * time.Second,
		RunTimeout:       4 * time.Second,
		CCompTimeout:     16 * time.Second,
	}, nil
}

// Check runs all enabled checks and reports the first failure
func (s *Sanitizer) Check(ctx context.Context, program *model.SourceProgram) (model.SanitizationResult, error) {
	if s.CheckWarnings {
		if res := s.checkWarnings(ctx, program); !res.Ok() {
			return res, nil
		}
	}
	if s.UseUBSanitizer {
		if res := s.checkSanitizer(ctx, program, "undefined,address"); !res.Ok() {
			return res, nil
		}
	}
	if s.UseMemSanitizer {
		if res := s.checkSanitizer(ctx, program, "memory"); !res.Ok() {
			return res, nil
		}
	}
	if s.CComp != nil {
		if res := s.checkCComp(ctx, program); !res.Ok() {
			return res, nil
		}
	}
	return model.SanitizationResult{}, nil
}

func (s *Sanitizer) checkWarnings(ctx context.Context, program *model.SourceProgram) model.SanitizationResult {
	for _, exe := range []*compiler.Exe{s.GCC, s.Clang} {
		setting := &compiler.Setting{Compiler: exe, OptLevel: s.WarningsOptLevel}
		res, err := setting.Compile(ctx, program, compiler.OutputObject, warningFlags, s.CompileTimeout)
		if err != nil {
			if cmdx.IsTimeout(err) {
				return model.SanitizationResult{Timeout: true}
			}
			// a program one compiler rejects outright is just as broken
			return model.SanitizationResult{WarningsFailed: true}
		}
		output := res.Output
		res.Close()

		for _, line := range strings.Split(output, "\n") {
			for _, warning := range checkedWarnings {
				if strings.Contains(line, warning) {
					ctxlog.From(ctx).Debug("rejected by compiler warning",
						"compiler", exe.Project.String(),
						"warning", warning)
					return model.SanitizationResult{WarningsFailed: true}
				}
			}
		}
	}
	return model.SanitizationResult{}
}

func (s *Sanitizer) checkSanitizer(ctx context.Context, program *model.SourceProgram, sanitizers string) model.SanitizationResult {
	setting := &compiler.Setting{Compiler: s.Clang, OptLevel: model.O0}
	flags := append(append([]string{}, warningFlags...),
		"-fsanitize="+sanitizers,
		"-fno-sanitize-recover=all")

	res, err := setting.Compile(ctx, program, compiler.OutputExecutable, flags, s.CompileTimeout)
	if err != nil {
		if cmdx.IsTimeout(err) {
			return model.SanitizationResult{Timeout: true}
		}
		return model.SanitizationResult{SanitizerFailed: true}
	}
	defer res.Close()

	env := map[string]string{"ASAN_OPTIONS": "detect_stack_use_after_return=1"}
	if err := res.Run(ctx, env, s.RunTimeout); err != nil {
		if cmdx.IsTimeout(err) {
			return model.SanitizationResult{Timeout: true}
		}
		return model.SanitizationResult{SanitizerFailed: true}
	}
	return model.SanitizationResult{}
}

func (s *Sanitizer) checkCComp(ctx context.Context, program *model.SourceProgram) model.SanitizationResult {
	ok, err := s.CComp.Check(ctx, program, s.CCompTimeout)
	if err != nil {
		if cmdx.IsTimeout(err) {
			return model.SanitizationResult{Timeout: true}
		}
		return model.SanitizationResult{CCompFailed: true}
	}
	if !ok {
		return model.SanitizationResult{CCompFailed: true}
	}
	return model.SanitizationResult{}
}
