// Package render prints a planned launch as a table, YAML or JSON.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"bringupctl/internal/color"
	"bringupctl/internal/executor"
	"bringupctl/internal/launch"
	"bringupctl/internal/lifecycle"
	"bringupctl/internal/topology"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"gopkg.in/yaml.v3"
)

// Format selects the output encoding.
type Format string

const (
	FormatTable Format = "table"
	FormatYAML  Format = "yaml"
	FormatJSON  Format = "json"
)

// ParseFormat validates an --output value.
func ParseFormat(raw string) (Format, error) {
	switch f := Format(strings.ToLower(raw)); f {
	case FormatTable, FormatYAML, FormatJSON:
		return f, nil
	case "":
		return FormatTable, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want table, yaml or json)", raw)
	}
}

// Report is everything a plan prints.
type Report struct {
	LaunchID  string                 `yaml:"launchId,omitempty" json:"launchId,omitempty"`
	Request   launch.Request         `yaml:"request" json:"request"`
	Topology  topology.Topology      `yaml:"topology" json:"topology"`
	Records   []executor.StartRecord `yaml:"records" json:"records"`
	Lifecycle lifecycle.Config       `yaml:"lifecycle" json:"lifecycle"`
	Startup   []lifecycle.Step       `yaml:"startup,omitempty" json:"startup,omitempty"`
	Shutdown  []lifecycle.Step       `yaml:"shutdown,omitempty" json:"shutdown,omitempty"`
}

// Write renders r to w in the given format.
func Write(w io.Writer, format Format, r Report) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case FormatTable, "":
		_, err := io.WriteString(w, Table(r))
		return err
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

const maxColumnWidth = 48

var columns = []string{"#", "SERVICE", "KIND", "ROLE", "TARGET", "CONTAINER", "RESPAWN"}

// Table renders the records one per row followed by the lifecycle summary.
func Table(r Report) string {
	rows := make([][]string, 0, len(r.Records))
	for _, rec := range r.Records {
		rows = append(rows, []string{
			fmt.Sprintf("%d", rec.Index),
			rec.ServiceID,
			string(rec.Kind),
			string(rec.Role),
			target(rec),
			dash(rec.ContainerTarget),
			respawn(rec),
		})
	}

	widths := make([]int, len(columns))
	for i, c := range columns {
		widths[i] = runewidth.StringWidth(c)
	}
	for _, row := range rows {
		for i, cell := range row {
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = min(w, maxColumnWidth)
			}
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s topology, namespace %q\n\n", r.Topology, r.Request.Namespace)
	b.WriteString(line(columns, widths, func(i int, s string) string { return color.HeaderStyle.Render(s) }))
	for ri := range rows {
		kind := r.Records[ri].Kind
		b.WriteString(line(rows[ri], widths, func(i int, s string) string {
			if i == 2 {
				return kindStyle(kind).Render(s)
			}
			return s
		}))
	}

	members := strings.Join(r.Lifecycle.Membership, ", ")
	fmt.Fprintf(&b, "\n%s members=[%s] autostart=%t bond_timeout=%s\n",
		color.MutedStyle.Render("lifecycle:"), members, r.Lifecycle.Autostart, r.Lifecycle.BondTimeout)
	if len(r.Startup) > 0 {
		fmt.Fprintf(&b, "%s %s\n", color.MutedStyle.Render("startup:"), steps(r.Startup))
	}
	if len(r.Shutdown) > 0 {
		fmt.Fprintf(&b, "%s %s\n", color.MutedStyle.Render("shutdown:"), steps(r.Shutdown))
	}
	return b.String()
}

// line pads every cell to its column width before styling so escape codes
// never count toward the width.
func line(cells []string, widths []int, style func(int, string) string) string {
	parts := make([]string, len(cells))
	for i, cell := range cells {
		cell = runewidth.Truncate(cell, widths[i], "…")
		parts[i] = style(i, runewidth.FillRight(cell, widths[i]))
	}
	return strings.TrimRight(strings.Join(parts, "  "), " ") + "\n"
}

func steps(s []lifecycle.Step) string {
	parts := make([]string, len(s))
	for i, st := range s {
		parts[i] = fmt.Sprintf("%s %s", st.Transition, st.Service)
	}
	return strings.Join(parts, " -> ")
}

func kindStyle(k executor.Kind) lipgloss.Style {
	switch k {
	case executor.KindComponent:
		return color.ComponentStyle
	case executor.KindFragment:
		return color.FragmentStyle
	default:
		return color.ProcessStyle
	}
}

func target(rec executor.StartRecord) string {
	switch {
	case rec.Fragment != "":
		return rec.Package + "/" + rec.Fragment
	case rec.Plugin != "":
		return rec.Plugin
	default:
		return rec.Package + "/" + rec.Executable
	}
}

func respawn(rec executor.StartRecord) string {
	if rec.Respawn == nil || !rec.Respawn.Respawn {
		return "-"
	}
	return "after " + rec.Respawn.RespawnDelay.String()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
