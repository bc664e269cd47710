package params

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Document is an immutable hierarchical key/value parameter document.
// Values handed in are deep-copied and values handed out are copies, so a
// Document can be shared between plan entries without any of them seeing
// another's changes.
type Document struct {
	root map[string]interface{}
}

// NewDocument builds a Document from a decoded mapping.
func NewDocument(m map[string]interface{}) Document {
	if m == nil {
		return Document{}
	}
	return Document{root: normalizeMap(m)}
}

// IsEmpty reports whether the document has no keys.
func (d Document) IsEmpty() bool {
	return len(d.root) == 0
}

// Len returns the number of top-level keys.
func (d Document) Len() int {
	return len(d.root)
}

// Keys returns the sorted top-level keys.
func (d Document) Keys() []string {
	keys := make([]string, 0, len(d.root))
	for k := range d.root {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Map returns a deep copy of the document contents.
func (d Document) Map() map[string]interface{} {
	if d.root == nil {
		return map[string]interface{}{}
	}
	return normalizeMap(d.root)
}

// Get looks up a dotted path such as "robot1.measurement_server.ros__parameters.autostart".
func (d Document) Get(path string) (interface{}, bool) {
	if path == "" {
		return nil, false
	}
	var current interface{} = d.root
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return normalize(current), true
}

// Scoped returns the section stored under namespace. An empty namespace
// returns the document itself; a missing section returns an empty document.
func (d Document) Scoped(namespace string) Document {
	ns := NormalizeNamespace(namespace)
	if ns == "" {
		return d
	}
	section, ok := d.root[ns].(map[string]interface{})
	if !ok {
		return Document{}
	}
	return NewDocument(section)
}

// Equal reports whether both documents hold the same keys and values.
func (d Document) Equal(other Document) bool {
	return reflect.DeepEqual(d.Map(), other.Map())
}

// Flatten returns every leaf keyed by its dotted path.
func (d Document) Flatten() map[string]interface{} {
	out := make(map[string]interface{})
	flattenInto(out, "", d.root)
	return out
}

func flattenInto(out map[string]interface{}, prefix string, m map[string]interface{}) {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if child, ok := v.(map[string]interface{}); ok && len(child) > 0 {
			flattenInto(out, key, child)
			continue
		}
		out[key] = normalize(v)
	}
}

// Encode renders the document as YAML.
func (d Document) Encode() ([]byte, error) {
	data, err := yaml.Marshal(d.Map())
	if err != nil {
		return nil, fmt.Errorf("encode parameters: %w", err)
	}
	return data, nil
}

func (d Document) MarshalYAML() (interface{}, error) {
	return d.Map(), nil
}

func (d Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Map())
}

// NormalizeNamespace strips surrounding slashes and whitespace.
func NormalizeNamespace(namespace string) string {
	return strings.Trim(strings.TrimSpace(namespace), "/")
}

func normalizeMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = normalize(v)
	}
	return out
}

// normalize deep-copies a decoded value and coerces the mapping and slice
// shapes produced by the YAML and TOML decoders into map[string]interface{}
// and []interface{}.
func normalize(value interface{}) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		return normalizeMap(v)
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, item := range v {
			out[fmt.Sprint(k)] = normalize(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = normalize(item)
		}
		return out
	case []map[string]interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = normalizeMap(item)
		}
		return out
	case []string:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = item
		}
		return out
	default:
		return value
	}
}
