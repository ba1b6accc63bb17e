// Package compiler is the gateway to the external language compiler. It
// drives a Python subprocess to produce the JSON syntax tree and the
// semantic diagnostics the analysis core consumes, tolerating multi-second
// latency and occasional failure.
package compiler

import (
	"errors"
	"fmt"
)

// ErrVersionNotFound means the source has no version pragma and no default
// version is configured.
var ErrVersionNotFound = errors.New("compiler version not found")

// Stage identifies which gateway pipeline failed.
type Stage int

const (
	// StageParse is the fast AST extraction used by navigation.
	StageParse Stage = iota
	// StageCompile is the full semantic analysis used by diagnostics.
	StageCompile
)

func (s Stage) String() string {
	if s == StageCompile {
		return "compile"
	}
	return "parse"
}

// GatewayError is a compiler failure with a best-effort source location.
// Line and Col are 0-based; Line is -1 when no location could be parsed.
type GatewayError struct {
	Stage   Stage
	Message string
	Line    int
	Col     int
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("compiler %s failed: %s", e.Stage, e.Message)
}

// HasLocation reports whether the error carries a usable source position.
func (e *GatewayError) HasLocation() bool { return e.Line >= 0 }
