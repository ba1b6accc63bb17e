package compiler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"couleuvre/src/ast"
	"couleuvre/src/internal/common"
)

// errorLocationPattern extracts "line 6:17" style positions from compiler
// error text: 1-based line, 0-based column.
var errorLocationPattern = regexp.MustCompile(`line\s+(\d+):(\d+)`)

// errorTypePattern extracts the exception class from a compiler traceback.
var errorTypePattern = regexp.MustCompile(`vyper\.exceptions\.(\w+)`)

// Gateway runs the external compiler in a Python subprocess. It is
// stateless and safe for concurrent use; callers own cancellation through
// the context.
type Gateway struct {
	python string
}

// New creates a gateway around the given Python interpreter. An empty
// interpreter path selects "python3".
func New(python string) *Gateway {
	if python == "" {
		python = "python3"
	}
	return &Gateway{python: python}
}

// astScript drives the compiler far enough to emit the module's JSON
// syntax tree, with imports resolved so their absolute paths appear in
// import_info.
const astScript = `
import json
from pathlib import Path
from vyper.compiler import CompilerData
from vyper.compiler.input_bundle import FilesystemInputBundle
from vyper.semantics.analysis.imports import resolve_imports

search_paths = [Path(p) for p in json.loads(%s)]
input_bundle = FilesystemInputBundle(search_paths)
file = input_bundle.load_file(json.loads(%s))
module = CompilerData(file, input_bundle).vyper_module
try:
    with input_bundle.search_path(Path(module.resolved_path).parent):
        resolve_imports(module, input_bundle)
except Exception:
    pass
print(json.dumps(module.to_dict()))
`

// compileScript runs semantic analysis up to the annotated module, which
// catches type and semantic errors without generating bytecode, and
// reports the outcome as JSON.
const compileScript = `
import json
import traceback
from pathlib import Path

try:
    from vyper.compiler import CompilerData
    from vyper.compiler.input_bundle import FilesystemInputBundle

    search_paths = [Path(p) for p in json.loads(%s)]
    input_bundle = FilesystemInputBundle(search_paths)
    file = input_bundle.load_file(json.loads(%s))
    compiler_data = CompilerData(file, input_bundle)
    _ = compiler_data.annotated_vyper_module
    print(json.dumps({"success": True}))
except Exception as e:
    info = {
        "success": False,
        "error_type": type(e).__name__,
        "message": str(e),
        "traceback": traceback.format_exc(),
    }
    if hasattr(e, "annotations") and e.annotations:
        node = e.annotations[0]
        if hasattr(node, "lineno"):
            info["lineno"] = node.lineno
            info["col_offset"] = getattr(node, "col_offset", 0)
            info["end_lineno"] = getattr(node, "end_lineno", node.lineno)
            info["end_col_offset"] = getattr(node, "end_col_offset", info["col_offset"] + 1)
    print(json.dumps(info))
`

// Parse produces the typed AST for one source file. A non-nil source
// stands in for the on-disk content (unsaved buffer); it is materialized
// as a scratch file beside the original so relative imports still resolve.
func (g *Gateway) Parse(ctx context.Context, path, source, workspaceRoot string) (*ast.Node, error) {
	effectivePath, cleanup, sanitize, err := g.materialize(path, source)
	if err != nil {
		return nil, &GatewayError{Stage: StageParse, Message: err.Error(), Line: -1}
	}
	defer cleanup()

	stdout, stderr, err := g.run(ctx, astScript, effectivePath, workspaceRoot)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		message := sanitize(strings.TrimSpace(stderr))
		if message == "" {
			message = err.Error()
		}
		line, col := ParseErrorLocation(message)
		return nil, &GatewayError{Stage: StageParse, Message: message, Line: line, Col: col}
	}

	root, err := ast.Decode([]byte(stdout))
	if err != nil {
		return nil, &GatewayError{Stage: StageParse, Message: sanitize(err.Error()), Line: -1}
	}
	common.CompilerLogger.Debug("parsed AST for %s", path)
	return root, nil
}

// compileResult is the JSON shape the compile driver script prints.
type compileResult struct {
	Success      bool   `json:"success"`
	ErrorType    string `json:"error_type"`
	Message      string `json:"message"`
	Traceback    string `json:"traceback"`
	Lineno       *int   `json:"lineno"`
	ColOffset    int    `json:"col_offset"`
	EndLineno    *int   `json:"end_lineno"`
	EndColOffset *int   `json:"end_col_offset"`
}

// CompileDiagnostics runs the full semantic pipeline and reports failures
// as structured diagnostics. A clean compile returns an empty slice.
func (g *Gateway) CompileDiagnostics(ctx context.Context, path, source, workspaceRoot string) ([]Diagnostic, error) {
	effectivePath, cleanup, sanitize, err := g.materialize(path, source)
	if err != nil {
		return nil, &GatewayError{Stage: StageCompile, Message: err.Error(), Line: -1}
	}
	defer cleanup()

	stdout, stderr, err := g.run(ctx, compileScript, effectivePath, workspaceRoot)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var result compileResult
	if jsonErr := json.Unmarshal([]byte(stdout), &result); jsonErr != nil {
		// The driver itself failed before printing a result.
		message := sanitize(strings.TrimSpace(stderr))
		if message == "" && err != nil {
			message = err.Error()
		}
		if message == "" {
			return nil, &GatewayError{Stage: StageCompile, Message: "no compiler output", Line: -1}
		}
		line, col := ParseErrorLocation(message)
		return []Diagnostic{{Message: message, StartLine: max(line, 0), StartCol: max(col, 0), EndLine: max(line, 0), EndCol: max(col, 0) + 1, Severity: SeverityError}}, nil
	}

	if result.Success {
		return nil, nil
	}

	errorType := result.ErrorType
	message := sanitize(result.Message)
	if message == "" {
		message = "unknown compilation error"
	}
	if errorType == "" || errorType == "Exception" {
		if match := errorTypePattern.FindStringSubmatch(sanitize(result.Traceback)); match != nil {
			errorType = match[1]
		}
	}

	diag := Diagnostic{Severity: severityFor(errorType)}
	if result.Lineno != nil {
		// Structured location from the compiler's own AST annotations.
		diag.StartLine = *result.Lineno - 1
		diag.StartCol = result.ColOffset
		diag.EndLine = diag.StartLine
		if result.EndLineno != nil {
			diag.EndLine = *result.EndLineno - 1
		}
		diag.EndCol = diag.StartCol + 1
		if result.EndColOffset != nil {
			diag.EndCol = *result.EndColOffset
		}
	} else {
		line, col := ParseErrorLocation(message)
		if line < 0 {
			line, col = ParseErrorLocation(sanitize(result.Traceback))
		}
		diag.StartLine = max(line, 0)
		diag.StartCol = max(col, 0)
		diag.EndLine = diag.StartLine
		diag.EndCol = diag.StartCol + 1
	}

	if errorType != "" {
		diag.Message = fmt.Sprintf("[%s] %s", errorType, message)
	} else {
		diag.Message = message
	}
	return []Diagnostic{diag}, nil
}

// Diagnostic is a gateway-level finding with 0-based positions, mapped to
// the editor protocol by the server.
type Diagnostic struct {
	Message   string
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
	Severity  Severity
}

type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func severityFor(errorType string) Severity {
	switch errorType {
	case "DeprecationWarning", "SyntaxWarning":
		return SeverityWarning
	default:
		return SeverityError
	}
}

// ParseErrorLocation extracts a 0-based (line, col) from compiler error
// text in the "line 6:17" format. Returns (-1, 0) when absent.
func ParseErrorLocation(message string) (int, int) {
	match := errorLocationPattern.FindStringSubmatch(message)
	if match == nil {
		return -1, 0
	}
	var line, col int
	fmt.Sscanf(match[1], "%d", &line)
	fmt.Sscanf(match[2], "%d", &col)
	return line - 1, col
}

// run executes a driver script in the configured interpreter with the
// compiler's search paths injected.
func (g *Gateway) run(ctx context.Context, scriptTemplate, path, workspaceRoot string) (string, string, error) {
	searchPaths := g.searchPaths(ctx)
	pathsJSON, _ := json.Marshal(searchPaths)
	pathJSON, _ := json.Marshal(path)
	// Driver args pass through json twice: marshalled here, decoded by the
	// script, so arbitrary path characters survive.
	script := fmt.Sprintf(scriptTemplate, quotePy(string(pathsJSON)), quotePy(string(pathJSON)))

	cmd := exec.CommandContext(ctx, g.python, "-c", script)
	if workspaceRoot != "" {
		cmd.Dir = workspaceRoot
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// searchPaths mirrors the compiler's module lookup: the interpreter's
// sys.path plus the working directory, so files importing installed
// packages still analyze.
func (g *Gateway) searchPaths(ctx context.Context) []string {
	cmd := exec.CommandContext(ctx, g.python, "-c", "import json, sys; print(json.dumps(sys.path))")
	out, err := cmd.Output()
	if err != nil {
		common.CompilerLogger.Warn("unable to read sys.path from %s: %v", g.python, err)
		return []string{"."}
	}
	var paths []string
	if err := json.Unmarshal(bytes.TrimSpace(out), &paths); err != nil {
		common.CompilerLogger.Warn("unable to decode sys.path from %s", g.python)
		return []string{"."}
	}
	for _, p := range paths {
		if p == "." {
			return paths
		}
	}
	return append(paths, ".")
}

// quotePy embeds a JSON string as a Python string literal.
func quotePy(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// materialize returns the path the compiler should read. When source is
// non-empty it is written to a scratch file beside the original, and the
// returned sanitizer rewrites the scratch name back to the original in
// any compiler message.
func (g *Gateway) materialize(path, source string) (string, func(), func(string) string, error) {
	identity := func(s string) string { return s }
	if source == "" {
		return path, func() {}, identity, nil
	}

	suffix := filepath.Ext(path)
	if suffix == "" {
		suffix = ".vy"
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "couleuvre-*"+suffix)
	if err != nil {
		return "", func() {}, identity, fmt.Errorf("failed to create scratch file: %w", err)
	}
	if _, err := tmp.WriteString(source); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", func() {}, identity, fmt.Errorf("failed to write scratch file: %w", err)
	}
	tmp.Close()

	scratchName := filepath.Base(tmp.Name())
	originalName := filepath.Base(path)
	sanitize := func(s string) string { return strings.ReplaceAll(s, scratchName, originalName) }
	cleanup := func() { os.Remove(tmp.Name()) }
	return tmp.Name(), cleanup, sanitize, nil
}
