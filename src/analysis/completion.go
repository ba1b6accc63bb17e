package analysis

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"go.lsp.dev/protocol"

	"couleuvre/src/ast"
)

// triggerPattern matches the identifier before the dot that triggered
// completion: "self." or "SomeImport.".
var triggerPattern = regexp.MustCompile(`([A-Za-z_][A-Za-z_0-9]*)\.$`)

// CompletionTrigger extracts the identifier before a trailing dot on the
// cursor line, or "" when the position is not a member-access context.
func CompletionTrigger(lineText string, character int) string {
	if character > len(lineText) {
		character = len(lineText)
	}
	match := triggerPattern.FindStringSubmatch(lineText[:character])
	if match == nil {
		return ""
	}
	return match[1]
}

// Completions suggests members for "self." and "<alias>." from the cached
// module. Callers pass the last successfully parsed module: a document
// mid-keystroke is frequently invalid and must not force a reparse.
func Completions(m *Module, loader ModuleLoader, lineText string, pos protocol.Position) []protocol.CompletionItem {
	trigger := CompletionTrigger(lineText, int(pos.Character))
	if trigger == "" {
		return nil
	}
	var items []protocol.CompletionItem
	if trigger == "self" {
		items = selfCompletions(m)
	} else {
		items = importedCompletions(m, loader, trigger)
	}
	// Map iteration order is random; clients expect a stable list.
	sort.Slice(items, func(i, j int) bool { return items[i].Label < items[j].Label })
	return items
}

// selfCompletions lists mutable state variables and internal functions.
// Constants and immutables are not reachable through self.
func selfCompletions(m *Module) []protocol.CompletionItem {
	var items []protocol.CompletionItem

	for _, node := range m.Variables {
		if node.Kind != ast.KindVariableDecl || node.IsConstant || node.IsImmutable {
			continue
		}
		name := Identifier(node)
		if name == "" {
			continue
		}
		detail := variableType(node)
		if detail == "" {
			detail = "state variable"
		}
		items = append(items, protocol.CompletionItem{
			Label:         name,
			Kind:          protocol.CompletionItemKindVariable,
			Detail:        detail,
			Documentation: fmt.Sprintf("State variable: %s", name),
		})
	}

	for _, node := range m.Functions {
		if !isInternalFunction(node) {
			continue
		}
		name := node.Name
		if name == "" || strings.HasPrefix(name, "__") {
			continue
		}
		signature := functionSignature(node)
		items = append(items, protocol.CompletionItem{
			Label:            name,
			Kind:             protocol.CompletionItemKindFunction,
			Detail:           signature,
			Documentation:    fmt.Sprintf("Internal function: %s%s", name, signature),
			InsertText:       fmt.Sprintf("%s($0)", name),
			InsertTextFormat: protocol.InsertTextFormatSnippet,
		})
	}

	return items
}

// importedCompletions lists the external namespace of an imported module.
func importedCompletions(m *Module, loader ModuleLoader, alias string) []protocol.CompletionItem {
	if loader == nil {
		return nil
	}
	path, ok := m.Imports[alias]
	if !ok {
		return nil
	}
	imported, _, ok := loader.ModuleForPath(path)
	if !ok || imported == nil {
		return nil
	}

	var items []protocol.CompletionItem
	for name, entry := range imported.ExternalNamespace() {
		node := entry.Node
		switch node.Kind {
		case ast.KindFunctionDef:
			signature := functionSignature(node)
			items = append(items, protocol.CompletionItem{
				Label:            name,
				Kind:             protocol.CompletionItemKindFunction,
				Detail:           signature,
				Documentation:    fmt.Sprintf("Function: %s%s", name, signature),
				InsertText:       fmt.Sprintf("%s($0)", name),
				InsertTextFormat: protocol.InsertTextFormatSnippet,
			})
		case ast.KindVariableDecl, ast.KindAnnAssign:
			detail := variableType(node)
			if detail == "" {
				detail = "variable"
			}
			items = append(items, protocol.CompletionItem{
				Label:  name,
				Kind:   protocol.CompletionItemKindVariable,
				Detail: detail,
			})
		case ast.KindStructDef:
			items = append(items, protocol.CompletionItem{Label: name, Kind: protocol.CompletionItemKindStruct, Detail: "struct"})
		case ast.KindInterfaceDef:
			items = append(items, protocol.CompletionItem{Label: name, Kind: protocol.CompletionItemKindInterface, Detail: "interface"})
		case ast.KindEventDef:
			items = append(items, protocol.CompletionItem{Label: name, Kind: protocol.CompletionItemKindEvent, Detail: "event"})
		case ast.KindFlagDef:
			items = append(items, protocol.CompletionItem{Label: name, Kind: protocol.CompletionItemKindEnum, Detail: "flag"})
		default:
			items = append(items, protocol.CompletionItem{Label: name, Kind: protocol.CompletionItemKindText})
		}
	}
	return items
}

// isInternalFunction reports whether a function lacks an external or
// public decorator.
func isInternalFunction(fn *ast.Node) bool {
	for _, decorator := range fn.Decorators {
		switch decorator.Kind {
		case ast.KindName:
			if decorator.Name == "external" || decorator.Name == "public" {
				return false
			}
		case ast.KindCall:
			if decorator.Func != nil && decorator.Func.Kind == ast.KindName &&
				(decorator.Func.Name == "external" || decorator.Func.Name == "public") {
				return false
			}
		}
	}
	return true
}

// functionSignature renders "(a: uint256, b) -> uint256" for display.
func functionSignature(fn *ast.Node) string {
	var params []string
	for _, arg := range fn.Args {
		if arg.Kind != ast.KindArg {
			continue
		}
		if arg.Annotation != nil && arg.Annotation.Kind == ast.KindName {
			params = append(params, fmt.Sprintf("%s: %s", arg.Name, arg.Annotation.Name))
		} else {
			params = append(params, arg.Name)
		}
	}
	signature := fmt.Sprintf("(%s)", strings.Join(params, ", "))
	if fn.Returns != nil && fn.Returns.Kind == ast.KindName {
		signature += fmt.Sprintf(" -> %s", fn.Returns.Name)
	}
	return signature
}

// variableType renders the annotation of a variable declaration, unwrapping
// subscripted types like DynArray[uint256, 10] to their base name.
func variableType(node *ast.Node) string {
	ann := node.Annotation
	if ann == nil {
		return ""
	}
	switch ann.Kind {
	case ast.KindName:
		return ann.Name
	case ast.KindSubscript:
		if ann.Value != nil && ann.Value.Kind == ast.KindName {
			return ann.Value.Name
		}
	}
	return ""
}
