package compiler

import (
	"context"
	"regexp"
	"time"

	"github.com/ccdrover/ccdrover/pkg/domain/model"
)

var agnosticScrubs = []struct {
	pattern     *regexp.Regexp
	replacement string
}{
	// clang does not understand malloc attributes with arguments
	{regexp.MustCompile(`__attribute__ \(\(__malloc__ \(.*, .*\)\)\)`), ""},
	// clang does not understand the f128 builtins
	{regexp.MustCompile(`extern int [^;]*f128[^;]*;`), ""},
	// gcc dislikes the FloatNx typedefs in clang output and vice versa
	{regexp.MustCompile(`typedef [^;]*_Float\d+x?;`), ""},
	{regexp.MustCompile(`_Float32x`), "double"},
	{regexp.MustCompile(`_Float64x`), "long double"},
	{regexp.MustCompile(`_Float32`), "float"},
	{regexp.MustCompile(`_Float64`), "double"},
}

// Preprocess runs the program through the compiler's preprocessor
// (-P -E). When agnostic is set, compiler specific constructs are
// scrubbed so the result compiles with both gcc and clang.
func (s *Setting) Preprocess(ctx context.Context, program *model.SourceProgram, agnostic bool, timeout time.Duration) (*model.SourceProgram, error) {
	res, err := s.Compile(ctx, program, OutputAssembly, []string{"-P", "-E"}, timeout)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	code, err := res.Read()
	if err != nil {
		return nil, err
	}

	if agnostic {
		code = ScrubCompilerSpecific(code)
	}
	return program.WithPreprocessedCode(code), nil
}

// ScrubCompilerSpecific removes constructs that only one of gcc and
// clang accepts from preprocessed code
func ScrubCompilerSpecific(code string) string {
	for _, s := range agnosticScrubs {
		code = s.pattern.ReplaceAllString(code, s.replacement)
	}
	return code
}
