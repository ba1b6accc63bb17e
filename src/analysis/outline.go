package analysis

import "go.lsp.dev/protocol"

// DocumentSymbols returns the outline for a module: top-level definitions
// with their nested declarations as children.
func DocumentSymbols(m *Module) []protocol.DocumentSymbol {
	return m.Symbols.DocumentSymbols()
}
