package params

import (
	"sort"
	"strings"

	"github.com/spf13/cast"
)

// Rewriter derives namespace-scoped, override-applied documents from a shared source.
type Rewriter struct {
	convertTypes bool
}

// NewRewriter creates a rewriter that converts string override values to
// booleans and numbers where they parse as such.
func NewRewriter() *Rewriter {
	return &Rewriter{convertTypes: true}
}

// NewRawRewriter creates a rewriter that stores override values untouched.
func NewRawRewriter() *Rewriter {
	return &Rewriter{}
}

// Rewrite applies overrides to a copy of src and, when namespace is not
// empty, nests the result under the namespace key.
//
// A plain override key replaces every leaf of that name at any depth and is
// added at the top level when no such leaf exists. A dotted key ("a.b.c")
// sets exactly that path, creating intermediate mappings.
func (r *Rewriter) Rewrite(src Document, namespace string, overrides map[string]interface{}) Document {
	root := src.Map()

	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := r.convertValue(overrides[key])
		if strings.Contains(key, ".") {
			setPath(root, strings.Split(key, "."), value)
			continue
		}
		if !replaceLeaf(root, key, value) {
			root[key] = value
		}
	}

	if ns := NormalizeNamespace(namespace); ns != "" {
		return Document{root: map[string]interface{}{ns: root}}
	}
	return Document{root: root}
}

// RewriteSource parses data and rewrites it. Malformed data fails with *ParseError.
func (r *Rewriter) RewriteSource(data []byte, format Format, namespace string, overrides map[string]interface{}) (Document, error) {
	doc, err := Parse(data, format)
	if err != nil {
		return Document{}, err
	}
	return r.Rewrite(doc, namespace, overrides), nil
}

// RewriteFile reads the file at path and rewrites it.
func (r *Rewriter) RewriteFile(path, namespace string, overrides map[string]interface{}) (Document, error) {
	doc, err := ReadFile(path)
	if err != nil {
		return Document{}, err
	}
	return r.Rewrite(doc, namespace, overrides), nil
}

// replaceLeaf replaces every non-mapping value stored under key, recursing
// through nested mappings. It reports whether anything was replaced.
func replaceLeaf(m map[string]interface{}, key string, value interface{}) bool {
	found := false
	for k, v := range m {
		if child, ok := v.(map[string]interface{}); ok {
			if replaceLeaf(child, key, value) {
				found = true
			}
			continue
		}
		if k == key {
			m[k] = normalize(value)
			found = true
		}
	}
	return found
}

func setPath(m map[string]interface{}, parts []string, value interface{}) {
	current := m
	for _, part := range parts[:len(parts)-1] {
		child, ok := current[part].(map[string]interface{})
		if !ok {
			child = make(map[string]interface{})
			current[part] = child
		}
		current = child
	}
	current[parts[len(parts)-1]] = normalize(value)
}

func (r *Rewriter) convertValue(value interface{}) interface{} {
	s, ok := value.(string)
	if !ok || !r.convertTypes {
		return value
	}
	return ConvertString(s)
}

// ConvertString turns "true"/"false" and numeric strings into typed values;
// anything else is returned unchanged.
func ConvertString(s string) interface{} {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return s
	}
	switch strings.ToLower(trimmed) {
	case "true":
		return true
	case "false":
		return false
	}
	if strings.ContainsAny(trimmed, ".eE") {
		if f, err := cast.ToFloat64E(trimmed); err == nil {
			return f
		}
		return s
	}
	if i, err := cast.ToIntE(trimmed); err == nil {
		return i
	}
	return s
}
