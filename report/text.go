package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Styles controls how Render decorates the text report.
type Styles struct {
	Title   lipgloss.Style
	Label   lipgloss.Style
	Value   lipgloss.Style
	Error   lipgloss.Style
	Dim     lipgloss.Style
	Enabled bool
}

// Plain renders without any terminal styling.
var Plain = Styles{}

// Colored returns the styles used on a terminal.
func Colored() Styles {
	return Styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		Label:   lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		Value:   lipgloss.NewStyle().Foreground(lipgloss.Color("15")),
		Error:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		Dim:     lipgloss.NewStyle().Faint(true),
		Enabled: true,
	}
}

func (s Styles) render(st lipgloss.Style, text string) string {
	if !s.Enabled {
		return text
	}
	return st.Render(text)
}

// Render formats r as a human readable report.
func Render(r *Report, s Styles) string {
	var b strings.Builder
	line := func(label string, value any) {
		fmt.Fprintf(&b, "  %s %s\n", s.render(s.Label, fmt.Sprintf("%-12s", label+":")), s.render(s.Value, fmt.Sprint(value)))
	}

	b.WriteString(s.render(s.Title, r.Location))
	b.WriteByte('\n')

	if e := r.Error; e != nil {
		kind := e.Kind
		if kind == "" {
			kind = "error"
		}
		fmt.Fprintf(&b, "  %s %s\n", s.render(s.Error, "["+kind+"]"), e.Description)
		if e.Op != "" {
			line("op", e.Op)
		}
		line("message", e.Message)
		for _, v := range e.Violations {
			fmt.Fprintf(&b, "    - %s %s", v.Path, s.render(s.Dim, "("+v.Kind+")"))
			if v.Message != "" {
				fmt.Fprintf(&b, " %s", v.Message)
			}
			b.WriteByte('\n')
		}
		return b.String()
	}

	a := r.Asset
	if a == nil {
		return b.String()
	}
	line("container", a.Container)
	line("version", a.Version)
	if a.Generator != "" {
		line("generator", a.Generator)
	}
	if a.Copyright != "" {
		line("copyright", a.Copyright)
	}
	c := a.Counts
	line("scenes", c.Scenes)
	line("nodes", c.Nodes)
	line("meshes", c.Meshes)
	line("materials", c.Materials)
	line("textures", c.Textures)
	line("accessors", c.Accessors)
	line("animations", c.Animations)
	if len(a.ExtensionsUsed) > 0 {
		line("extensions", strings.Join(a.ExtensionsUsed, ", "))
	}
	for _, buf := range a.Buffers {
		where := buf.URI
		if buf.Embedded {
			where = "<glb>"
		} else if strings.HasPrefix(where, "data:") {
			where = "<data uri>"
		}
		line(fmt.Sprintf("buffer %d", buf.Index), fmt.Sprintf("%d bytes %s %s", buf.Bytes, where, s.render(s.Dim, shortDigest(buf.BLAKE3))))
	}
	for _, img := range a.Images {
		where := img.URI
		if img.Borrowed {
			where = "<bufferView>"
		} else if strings.HasPrefix(where, "data:") {
			where = "<data uri>"
		}
		line(fmt.Sprintf("image %d", img.Index), fmt.Sprintf("%dx%d %s %s", img.Width, img.Height, img.Format, where))
	}
	line("fetches", a.Fetches)
	line("duration", fmt.Sprintf("%dms", a.DurationMs))
	for _, stage := range a.StageNames() {
		fmt.Fprintf(&b, "    %s\n", s.render(s.Dim, fmt.Sprintf("%-9s %dms", stage, a.StageMs[stage])))
	}
	return b.String()
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}
