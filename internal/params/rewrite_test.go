package params

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dcParams = `
measurement_server:
  ros__parameters:
    autostart: false
    measurement_plugins: ["cpu", "memory"]
    cpu:
      topic_output: "/dc/measurement/cpu"
destination_server:
  ros__parameters:
    destination_plugins: ["flb_stdout"]
lifecycle_manager:
  ros__parameters:
    autostart: false
`

func mustParse(t *testing.T, data string) Document {
	t.Helper()
	doc, err := Parse([]byte(data), FormatYAML)
	require.NoError(t, err)
	return doc
}

func TestRewrite_ReplacesLeafAtAnyDepth(t *testing.T) {
	src := mustParse(t, dcParams)
	r := NewRewriter()

	got := r.Rewrite(src, "", map[string]interface{}{"autostart": true})

	v, ok := got.Get("measurement_server.ros__parameters.autostart")
	require.True(t, ok)
	assert.Equal(t, true, v)

	v, ok = got.Get("lifecycle_manager.ros__parameters.autostart")
	require.True(t, ok)
	assert.Equal(t, true, v)

	_, ok = got.Get("autostart")
	assert.False(t, ok, "existing leaves are replaced, nothing is added at the top")
}

func TestRewrite_AddsMissingKeyAtTop(t *testing.T) {
	src := mustParse(t, "a: 1\nb:\n  c: 2\n")

	got := NewRewriter().Rewrite(src, "robot1", map[string]interface{}{"autostart": true})

	scoped := got.Scoped("robot1")
	v, ok := scoped.Get("autostart")
	require.True(t, ok)
	assert.Equal(t, true, v)

	// every other key is unchanged
	v, _ = scoped.Get("a")
	assert.Equal(t, 1, v)
	v, _ = scoped.Get("b.c")
	assert.Equal(t, 2, v)
}

func TestRewrite_NamespaceScoping(t *testing.T) {
	src := mustParse(t, dcParams)
	r := NewRewriter()

	tests := []struct {
		name      string
		namespace string
		wantKeys  []string
	}{
		{name: "root namespace", namespace: "", wantKeys: []string{"destination_server", "lifecycle_manager", "measurement_server"}},
		{name: "plain namespace", namespace: "robot1", wantKeys: []string{"robot1"}},
		{name: "slashes trimmed", namespace: "/robot1/", wantKeys: []string{"robot1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Rewrite(src, tt.namespace, map[string]interface{}{"autostart": true})
			assert.Equal(t, tt.wantKeys, got.Keys())
			assert.Equal(t, src.Keys(), got.Scoped(tt.namespace).Keys())
		})
	}
}

func TestRewrite_DoesNotMutateSource(t *testing.T) {
	src := mustParse(t, dcParams)
	before := src.Map()
	r := NewRewriter()

	first := r.Rewrite(src, "a", map[string]interface{}{"autostart": true})
	second := r.Rewrite(src, "b", map[string]interface{}{"autostart": "false"})

	assert.Equal(t, before, src.Map())
	assert.NotEqual(t, first.Map(), second.Map())

	v, _ := second.Get("b.measurement_server.ros__parameters.autostart")
	assert.Equal(t, false, v)
}

func TestRewrite_DottedPath(t *testing.T) {
	src := mustParse(t, dcParams)

	got := NewRewriter().Rewrite(src, "", map[string]interface{}{
		"measurement_server.ros__parameters.cpu.topic_output": "/other",
		"group_server.ros__parameters.enabled":                "true",
	})

	v, _ := got.Get("measurement_server.ros__parameters.cpu.topic_output")
	assert.Equal(t, "/other", v)
	v, ok := got.Get("group_server.ros__parameters.enabled")
	require.True(t, ok)
	assert.Equal(t, true, v)
}

func TestRewrite_ReturnedDocumentIsIsolated(t *testing.T) {
	src := mustParse(t, dcParams)
	got := NewRewriter().Rewrite(src, "", nil)

	m := got.Map()
	m["measurement_server"] = "clobbered"

	assert.True(t, got.Equal(src))
}

func TestConvertString(t *testing.T) {
	tests := []struct {
		in   string
		want interface{}
	}{
		{in: "True", want: true},
		{in: "false", want: false},
		{in: "10", want: 10},
		{in: "2.5", want: 2.5},
		{in: "1e3", want: 1000.0},
		{in: "dc_container", want: "dc_container"},
		{in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ConvertString(tt.in))
		})
	}
}

func TestRawRewriter_KeepsStrings(t *testing.T) {
	got := NewRawRewriter().Rewrite(Document{}, "", map[string]interface{}{"autostart": "True"})
	v, _ := got.Get("autostart")
	assert.Equal(t, "True", v)
}

func TestRewriteSource_ParseError(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "invalid yaml", data: "a: [1, 2\n"},
		{name: "scalar root", data: "just a string\n"},
		{name: "list root", data: "- a\n- b\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRewriter().RewriteSource([]byte(tt.data), FormatYAML, "ns", map[string]interface{}{"autostart": true})
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrParse))

			var parseErr *ParseError
			assert.True(t, errors.As(err, &parseErr))
		})
	}
}

func TestParse_EmptySourceIsEmptyDocument(t *testing.T) {
	doc, err := Parse([]byte("   \n"), FormatYAML)
	require.NoError(t, err)
	assert.True(t, doc.IsEmpty())
}

func TestParse_TOML(t *testing.T) {
	data := `
[measurement_server.ros__parameters]
autostart = false
measurement_plugins = ["cpu"]
`
	doc, err := Parse([]byte(data), FormatTOML)
	require.NoError(t, err)

	v, ok := doc.Get("measurement_server.ros__parameters.measurement_plugins")
	require.True(t, ok)
	assert.Equal(t, []interface{}{"cpu"}, v)

	_, err = Parse([]byte("[broken"), FormatTOML)
	assert.ErrorIs(t, err, ErrParse)
}

func TestRewriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dc_params.yaml")
	require.NoError(t, os.WriteFile(path, []byte(dcParams), 0644))

	doc, err := NewRewriter().RewriteFile(path, "robot1", map[string]interface{}{"autostart": true})
	require.NoError(t, err)
	v, _ := doc.Get("robot1.destination_server.ros__parameters.destination_plugins")
	assert.Equal(t, []interface{}{"flb_stdout"}, v)

	_, err = NewRewriter().RewriteFile(filepath.Join(dir, "missing.yaml"), "", nil)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrParse))
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, FormatTOML, FormatFromPath("/etc/dc/params.TOML"))
	assert.Equal(t, FormatYAML, FormatFromPath("params.yml"))
	assert.Equal(t, FormatYAML, FormatFromPath("params"))
}
