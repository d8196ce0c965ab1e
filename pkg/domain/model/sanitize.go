package model

// SanitizationResult reports why a generated program was rejected.
// The zero value means the program passed all checks.
type SanitizationResult struct {
	WarningsFailed  bool
	SanitizerFailed bool
	CCompFailed     bool
	Timeout         bool
}

// Ok reports whether the program passed sanitization
func (r SanitizationResult) Ok() bool {
	return !(r.WarningsFailed || r.SanitizerFailed || r.CCompFailed || r.Timeout)
}

// Reason returns a short label of the failed check for logging
func (r SanitizationResult) Reason() string {
	switch {
	case r.Timeout:
		return "timeout"
	case r.WarningsFailed:
		return "compiler_warnings"
	case r.SanitizerFailed:
		return "sanitizer"
	case r.CCompFailed:
		return "ccomp"
	default:
		return "ok"
	}
}
