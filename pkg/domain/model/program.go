package model

import (
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// Language denotes the source language of a program
type Language int

const (
	LangC Language = iota
	LangCPP
)

// Flag returns the compiler driver flag selecting the input language
func (l Language) Flag() string {
	if l == LangCPP {
		return "-xc++"
	}
	return "-xc"
}

// LinkerFlag returns the linker flag needed for executables of this
// language, or an empty string if none is required
func (l Language) LinkerFlag() string {
	if l == LangCPP {
		return "-lstdc++"
	}
	return ""
}

// Suffix returns the file suffix for sources of this language
func (l Language) Suffix() string {
	if l == LangCPP {
		return ".cpp"
	}
	return ".c"
}

func (l Language) String() string {
	if l == LangCPP {
		return "c++"
	}
	return "c"
}

// SourceProgram is a C or C++ program together with the macro
// definitions, include paths and flags needed to compile it
type SourceProgram struct {
	Code               string   `json:"code"`
	Language           Language `json:"language"`
	DefinedMacros      []string `json:"defined_macros,omitempty"`
	IncludePaths       []string `json:"include_paths,omitempty"`
	SystemIncludePaths []string `json:"system_include_paths,omitempty"`
	Flags              []string `json:"flags,omitempty"`
}

// Validate rejects macro definitions and include paths that already
// carry their compiler flag prefix; those are always added by
// CompilationFlags
func (p *SourceProgram) Validate() error {
	for _, m := range p.DefinedMacros {
		if strings.HasPrefix(strings.TrimSpace(m), "-D") {
			return goerr.New("macro definition must not include -D", goerr.V("macro", m))
		}
	}
	for _, path := range p.IncludePaths {
		if strings.HasPrefix(strings.TrimSpace(path), "-I") {
			return goerr.New("include path must not include -I", goerr.V("path", path))
		}
	}
	for _, path := range p.SystemIncludePaths {
		if strings.HasPrefix(strings.TrimSpace(path), "-isystem") {
			return goerr.New("system include path must not include -isystem", goerr.V("path", path))
		}
	}
	return nil
}

// CompilationFlags expands the program's flags, macros and include
// paths into compiler arguments
func (p *SourceProgram) CompilationFlags() []string {
	flags := make([]string, 0, len(p.Flags)+len(p.DefinedMacros)+len(p.IncludePaths)+len(p.SystemIncludePaths))
	flags = append(flags, p.Flags...)
	for _, m := range p.DefinedMacros {
		flags = append(flags, "-D"+m)
	}
	for _, path := range p.IncludePaths {
		flags = append(flags, "-I"+path)
	}
	for _, path := range p.SystemIncludePaths {
		flags = append(flags, "-isystem"+path)
	}
	return flags
}

// WithCode returns a copy of the program with its code replaced
func (p *SourceProgram) WithCode(code string) *SourceProgram {
	cpy := *p
	cpy.Code = code
	return &cpy
}

// WithPreprocessedCode returns a copy with the code replaced and all
// macros and include paths dropped, as they are resolved by the
// preprocessor
func (p *SourceProgram) WithPreprocessedCode(code string) *SourceProgram {
	cpy := *p
	cpy.Code = code
	cpy.DefinedMacros = nil
	cpy.IncludePaths = nil
	cpy.SystemIncludePaths = nil
	return &cpy
}
