package ast

import (
	"encoding/json"
	"fmt"
	"sort"
)

// ast_type values whose wire spelling differs from the Kind name.
var kindAliases = map[string]string{
	"EnumDef": "FlagDef",
}

var kindsByName = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames))
	for k, name := range kindNames {
		m[name] = k
	}
	return m
}()

// Decode maps the compiler gateway's JSON syntax tree onto the typed node
// model and links parent references. The root must be a Module.
func Decode(data []byte) (*Node, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode AST JSON: %w", err)
	}

	d := &decoder{nextSyntheticID: -1}
	root := d.object(raw)
	if root == nil {
		return nil, fmt.Errorf("AST JSON has no ast_type discriminator")
	}
	if root.Kind != KindModule {
		return nil, fmt.Errorf("expected AST root to be a Module, got %s", root.Kind)
	}
	LinkParents(root)
	return root, nil
}

type decoder struct {
	// Fallback ids for nodes the gateway did not number. Gateway ids are
	// non-negative, so synthetic ids count down from -1.
	nextSyntheticID int
}

// Keys that carry span/identity metadata rather than child nodes.
var metaKeys = map[string]bool{
	"ast_type": true, "node_id": true, "src": true,
	"lineno": true, "col_offset": true, "end_lineno": true, "end_col_offset": true,
}

func (d *decoder) object(m map[string]interface{}) *Node {
	typeName, ok := m["ast_type"].(string)
	if !ok {
		return nil
	}
	if alias, ok := kindAliases[typeName]; ok {
		typeName = alias
	}
	kind, known := kindsByName[typeName]
	if !known {
		kind = KindUnknown
	}

	n := &Node{
		Kind:      kind,
		ID:        d.nodeID(m),
		StartLine: intField(m, "lineno", 1),
		StartCol:  intField(m, "col_offset", 0),
		EndLine:   intField(m, "end_lineno", intField(m, "lineno", 1)),
		EndCol:    intField(m, "end_col_offset", intField(m, "col_offset", 0)+1),
	}

	handled := map[string]bool{}
	take := func(key string) (interface{}, bool) {
		v, ok := m[key]
		if ok {
			handled[key] = true
		}
		return v, ok
	}

	if v, ok := take("target"); ok {
		n.Target = d.child(v)
	}
	if v, ok := take("annotation"); ok {
		n.Annotation = d.child(v)
	}
	if v, ok := take("value"); ok {
		n.Value = d.child(v)
	}
	if v, ok := take("func"); ok {
		n.Func = d.child(v)
	}
	if v, ok := take("iter"); ok {
		n.Iter = d.child(v)
	}
	if v, ok := take("test"); ok {
		n.Test = d.child(v)
	}
	if v, ok := take("returns"); ok {
		n.Returns = d.child(v)
	}
	if v, ok := take("body"); ok {
		n.Body = d.list(v)
	}
	if v, ok := take("orelse"); ok {
		n.OrElse = d.list(v)
	}
	if v, ok := take("decorator_list"); ok {
		n.Decorators = d.list(v)
	}

	if v, ok := take("args"); ok {
		switch args := v.(type) {
		case []interface{}:
			n.Args = d.list(args)
		case map[string]interface{}:
			// FunctionDef wraps its parameters in an arguments node;
			// flatten to the parameter list, keeping defaults reachable.
			if inner, ok := args["args"]; ok {
				n.Args = d.list(inner)
			}
			if defaults, ok := args["defaults"]; ok {
				n.Extra = append(n.Extra, d.list(defaults)...)
			}
		}
	}

	if id, ok := m["id"].(string); ok {
		n.Name = id
		handled["id"] = true
	}
	if name, ok := m["name"].(string); ok {
		n.Name = name
		handled["name"] = true
	}
	if arg, ok := m["arg"].(string); ok {
		n.Name = arg
		handled["arg"] = true
	}
	if attr, ok := m["attr"].(string); ok {
		n.Attr = attr
		handled["attr"] = true
	}
	if alias, ok := m["alias"].(string); ok {
		n.Alias = alias
		handled["alias"] = true
	}
	if info, ok := m["import_info"].(map[string]interface{}); ok {
		if path, ok := info["resolved_path"].(string); ok {
			n.ResolvedPath = path
		}
		handled["import_info"] = true
	}
	if path, ok := m["resolved_path"].(string); ok && n.ResolvedPath == "" {
		n.ResolvedPath = path
		handled["resolved_path"] = true
	}
	n.IsConstant, _ = m["is_constant"].(bool)
	n.IsImmutable, _ = m["is_immutable"].(bool)
	n.IsPublic, _ = m["is_public"].(bool)

	// Sweep remaining fields for nested nodes so the walker reaches every
	// identifier, even under kinds the model has no named slot for.
	keys := make([]string, 0, len(m))
	for key := range m {
		if !metaKeys[key] && !handled[key] {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	for _, key := range keys {
		switch v := m[key].(type) {
		case map[string]interface{}:
			if child := d.object(v); child != nil {
				n.Extra = append(n.Extra, child)
			}
		case []interface{}:
			n.Extra = append(n.Extra, d.list(v)...)
		}
	}

	return n
}

func (d *decoder) child(v interface{}) *Node {
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil
	}
	return d.object(m)
}

func (d *decoder) list(v interface{}) []*Node {
	items, ok := v.([]interface{})
	if !ok {
		return nil
	}
	var nodes []*Node
	for _, item := range items {
		if child := d.child(item); child != nil {
			nodes = append(nodes, child)
		}
	}
	return nodes
}

func (d *decoder) nodeID(m map[string]interface{}) int {
	if id, ok := m["node_id"].(float64); ok {
		return int(id)
	}
	id := d.nextSyntheticID
	d.nextSyntheticID--
	return id
}

func intField(m map[string]interface{}, key string, fallback int) int {
	if v, ok := m[key].(float64); ok {
		return int(v)
	}
	return fallback
}
