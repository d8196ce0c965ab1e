package compiler_test

import (
	"strings"
	"testing"

	"github.com/ccdrover/ccdrover/pkg/domain/model"
	"github.com/ccdrover/ccdrover/pkg/infra/compiler"
	"github.com/m-mizutani/gt"
)

func TestCommand(t *testing.T) {
	setting := &compiler.Setting{
		Compiler: &compiler.Exe{Project: model.ProjectGCC, Path: "/usr/bin/gcc"},
		OptLevel: model.O3,
		Flags:    []string{"-march=native"},
	}
	program := &model.SourceProgram{
		Code:          "int main(void) { return 0; }",
		Language:      model.LangC,
		DefinedMacros: []string{"FOO=1"},
		IncludePaths:  []string{"/opt/include"},
	}

	t.Run("assembly output", func(t *testing.T) {
		args := setting.Command(program, compiler.OutputAssembly, "in.c", "out.s", nil)
		joined := strings.Join(args, " ")
		gt.Equal(t, args[0], "-O3")
		gt.Equal(t, args[1], "-xc")
		gt.V(t, strings.Contains(joined, "-march=native")).Equal(true)
		gt.V(t, strings.Contains(joined, "-DFOO=1")).Equal(true)
		gt.V(t, strings.Contains(joined, "-I/opt/include")).Equal(true)
		gt.V(t, strings.Contains(joined, "-S")).Equal(true)
		gt.Equal(t, args[len(args)-2], "-o")
		gt.Equal(t, args[len(args)-1], "out.s")
	})

	t.Run("executable links the language runtime", func(t *testing.T) {
		cpp := &model.SourceProgram{Code: "int main() {}", Language: model.LangCPP}
		args := setting.Command(cpp, compiler.OutputExecutable, "in.cpp", "a.exe", nil)
		gt.V(t, strings.Contains(strings.Join(args, " "), "-lstdc++")).Equal(true)
	})

	t.Run("extra flags come before the source", func(t *testing.T) {
		args := setting.Command(program, compiler.OutputAssembly, "in.c", "out.s", []string{"-P", "-E"})
		joined := strings.Join(args, " ")
		gt.V(t, strings.Index(joined, "-P") < strings.Index(joined, "in.c")).Equal(true)
	})
}

func TestScrubCompilerSpecific(t *testing.T) {
	in := `typedef float _Float32;
extern int __isinff128 (_Float128 __value) __attribute__ ((__nothrow__ , __leaf__)) f128_stub;
extern void *malloc (size_t __size) __attribute__ ((__malloc__ (free, 1)));
_Float64x x;
`
	out := compiler.ScrubCompilerSpecific(in)
	gt.V(t, strings.Contains(out, "typedef float _Float32")).Equal(false)
	gt.V(t, strings.Contains(out, "f128")).Equal(false)
	gt.V(t, strings.Contains(out, "__malloc__ (free, 1)")).Equal(false)
	gt.V(t, strings.Contains(out, "long double x;")).Equal(true)
}
