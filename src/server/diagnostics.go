package server

import (
	"go.lsp.dev/protocol"

	"couleuvre/src/compiler"
)

const diagnosticSource = "couleuvre"

// toProtocolDiagnostics maps gateway diagnostics (0-based positions) onto
// the wire representation.
func toProtocolDiagnostics(diags []compiler.Diagnostic) []protocol.Diagnostic {
	out := make([]protocol.Diagnostic, 0, len(diags))
	for _, d := range diags {
		severity := protocol.DiagnosticSeverityError
		if d.Severity == compiler.SeverityWarning {
			severity = protocol.DiagnosticSeverityWarning
		}
		out = append(out, protocol.Diagnostic{
			Range: protocol.Range{
				Start: protocol.Position{Line: uint32(max(d.StartLine, 0)), Character: uint32(max(d.StartCol, 0))},
				End:   protocol.Position{Line: uint32(max(d.EndLine, 0)), Character: uint32(max(d.EndCol, 0))},
			},
			Severity: severity,
			Source:   diagnosticSource,
			Message:  d.Message,
		})
	}
	return out
}

// missingVersionDiagnostic flags a document with no version pragma when no
// default version is configured either.
func missingVersionDiagnostic() protocol.Diagnostic {
	return protocol.Diagnostic{
		Range: protocol.Range{
			Start: protocol.Position{Line: 0, Character: 0},
			End:   protocol.Position{Line: 0, Character: 1},
		},
		Severity: protocol.DiagnosticSeverityWarning,
		Source:   diagnosticSource,
		Message:  "no version pragma found; set compiler.default_version or add '# pragma version'",
	}
}

// parseErrorDiagnostic renders a failed parse as a single error marker at
// the reported location, or at the file start when none was parsed.
func parseErrorDiagnostic(err *compiler.GatewayError) protocol.Diagnostic {
	line, col := 0, 0
	if err.HasLocation() {
		line, col = err.Line, err.Col
	}
	return protocol.Diagnostic{
		Range: protocol.Range{
			Start: protocol.Position{Line: uint32(line), Character: uint32(col)},
			End:   protocol.Position{Line: uint32(line), Character: uint32(col + 1)},
		},
		Severity: protocol.DiagnosticSeverityError,
		Source:   diagnosticSource,
		Message:  err.Message,
	}
}
