package cli

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/roach88/stepwise/internal/ir"
)

// Step glyphs, so events read without relying on color alone.
const (
	glyphCall      = "→"
	glyphReturn    = "←"
	glyphLine      = "·"
	glyphException = "✗"
)

// maxSourceWidth caps the source column of the step table.
const maxSourceWidth = 48

var (
	colorGreen  = lipgloss.Color("42")
	colorRed    = lipgloss.Color("196")
	colorYellow = lipgloss.Color("214")
	colorBlue   = lipgloss.Color("39")
	colorCyan   = lipgloss.Color("51")
	colorDim    = lipgloss.Color("240")
)

// styles binds the palette to one output stream. A stream that is not a
// terminal gets plain text.
type styles struct {
	header    lipgloss.Style
	dim       lipgloss.Style
	call      lipgloss.Style
	ret       lipgloss.Style
	exception lipgloss.Style
	created   lipgloss.Style
	updated   lipgloss.Style
	deleted   lipgloss.Style
	ok        lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		header:    r.NewStyle().Bold(true).Foreground(colorCyan),
		dim:       r.NewStyle().Foreground(colorDim),
		call:      r.NewStyle().Foreground(colorBlue),
		ret:       r.NewStyle().Foreground(colorCyan),
		exception: r.NewStyle().Bold(true).Foreground(colorRed),
		created:   r.NewStyle().Foreground(colorGreen),
		updated:   r.NewStyle().Foreground(colorYellow),
		deleted:   r.NewStyle().Foreground(colorRed),
		ok:        r.NewStyle().Foreground(colorGreen),
	}
}

// renderTrace writes the human-readable form of a trace.
func renderTrace(w io.Writer, r *ir.TraceResult) {
	st := newStyles(w)

	fmt.Fprintln(w, st.header.Render(fmt.Sprintf("Trace %s", r.TraceID)))
	fmt.Fprintf(w, "  status: %s  steps: %d  duration: %dms  seed: %d\n",
		statusText(st, r), r.StepCount, r.DurationMs, r.Seed)
	if len(r.Steps) > 0 {
		fmt.Fprintln(w)
	}

	width := sourceWidth(r.Steps)
	for _, s := range r.Steps {
		renderStep(w, st, s, width)
	}

	if r.Error != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, st.exception.Render(r.Error.Error()))
	}
	if r.Truncated {
		fmt.Fprintln(w)
		fmt.Fprintln(w, st.updated.Render(fmt.Sprintf("Stopped after %d steps (step limit reached)", r.StepCount)))
	}
	if r.Stdout != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, st.header.Render("Output"))
		for _, line := range strings.Split(strings.TrimSuffix(r.Stdout, "\n"), "\n") {
			fmt.Fprintf(w, "  %s\n", line)
		}
	}
}

func statusText(st styles, r *ir.TraceResult) string {
	status := r.Status()
	switch status {
	case "completed":
		return st.ok.Render(status)
	case "truncated":
		return st.updated.Render(status)
	default:
		return st.exception.Render(status)
	}
}

func sourceWidth(steps []ir.Step) int {
	width := 0
	for _, s := range steps {
		if n := runewidth.StringWidth(strings.TrimSpace(s.SourceLine)); n > width {
			width = n
		}
	}
	return min(width, maxSourceWidth)
}

// renderStep writes one step row, followed by its annotation and output.
func renderStep(w io.Writer, st styles, s ir.Step, width int) {
	source := runewidth.Truncate(strings.TrimSpace(s.SourceLine), width, "…")
	source = runewidth.FillRight(source, width)

	row := fmt.Sprintf("%4d %s %-9s L%-3d %s", s.Index, eventGlyph(s.Event), s.Event, s.LineNumber, source)
	switch s.Event {
	case ir.EventCall:
		row = st.call.Render(row)
	case ir.EventReturn:
		row = st.ret.Render(row)
	case ir.EventException:
		row = st.exception.Render(row)
	}

	if changes := changeSummary(st, s.Changes); changes != "" {
		row += "  " + changes
	}
	fmt.Fprintln(w, row)

	if s.ControlFlow != nil {
		fmt.Fprintf(w, "%s%s\n", strings.Repeat(" ", 7), st.dim.Render(flowText(s.ControlFlow)))
	}
	if s.Output != "" {
		for _, line := range strings.Split(strings.TrimSuffix(s.Output, "\n"), "\n") {
			fmt.Fprintf(w, "%s%s\n", strings.Repeat(" ", 7), st.dim.Render("> "+line))
		}
	}
}

func eventGlyph(e ir.Event) string {
	switch e {
	case ir.EventCall:
		return glyphCall
	case ir.EventReturn:
		return glyphReturn
	case ir.EventException:
		return glyphException
	default:
		return glyphLine
	}
}

// changeSummary renders a change as "+x=1 ~y: 1→2 -z", each bucket in
// name order.
func changeSummary(st styles, c ir.Change) string {
	var parts []string
	for _, name := range sortedKeys(c.Created) {
		parts = append(parts, st.created.Render(fmt.Sprintf("+%s=%s", name, formatValue(c.Created[name]))))
	}
	for _, name := range sortedKeys(c.Updated) {
		u := c.Updated[name]
		parts = append(parts, st.updated.Render(fmt.Sprintf("~%s: %s→%s", name, formatValue(u.From), formatValue(u.To))))
	}
	for _, name := range sortedKeys(c.Deleted) {
		parts = append(parts, st.deleted.Render("-"+name))
	}
	return strings.Join(parts, " ")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func flowText(cf *ir.ControlFlow) string {
	switch cf.Type {
	case ir.FlowFunctionCall:
		return fmt.Sprintf("call %s (depth %d)", cf.Function, cf.CallDepth)
	case ir.FlowFunctionReturn:
		if cf.ReturnValue != nil {
			return fmt.Sprintf("%s returned %s", cf.Function, formatValue(*cf.ReturnValue))
		}
		return fmt.Sprintf("%s returned", cf.Function)
	case ir.FlowConditional:
		return "condition tested"
	case ir.FlowLoop:
		return "loop header"
	case ir.FlowReturnStatement:
		return "return statement"
	case ir.FlowException:
		if cf.ExceptionMessage == "" {
			return "raised " + cf.ExceptionType
		}
		return fmt.Sprintf("raised %s: %s", cf.ExceptionType, cf.ExceptionMessage)
	default:
		return string(cf.Type)
	}
}

// formatValue renders a typed value the way the script would print its
// repr.
func formatValue(v ir.TypedValue) string {
	switch v.Kind {
	case ir.KindNone:
		return "None"
	case ir.KindBool:
		if b, _ := v.Value.(bool); b {
			return "True"
		}
		return "False"
	case ir.KindFloat:
		return formatFloat(v.Value)
	case ir.KindString:
		s, _ := v.Value.(string)
		return quoteString(s)
	case ir.KindSequence:
		items := formatItems(v.Items())
		if v.Type == "tuple" {
			if len(items) == 1 {
				return "(" + items[0] + ",)"
			}
			return "(" + strings.Join(items, ", ") + ")"
		}
		return "[" + strings.Join(items, ", ") + "]"
	case ir.KindSet:
		items := formatItems(v.Items())
		if len(items) == 0 {
			return v.Type + "()"
		}
		return "{" + strings.Join(items, ", ") + "}"
	case ir.KindMapping:
		entries := v.Entries()
		parts := make([]string, len(entries))
		for i, e := range entries {
			parts[i] = e.Key + ": " + formatValue(e.Value)
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return fmt.Sprint(v.Value)
	}
}

func formatItems(items []ir.TypedValue) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = formatValue(item)
	}
	return out
}

func formatFloat(v any) string {
	f, ok := v.(float64)
	if !ok {
		return fmt.Sprint(v) // "nan", "inf", "-inf"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eIN") {
		s += ".0"
	}
	return s
}

func quoteString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "'", `\'`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	s = strings.ReplaceAll(s, "\t", `\t`)
	return "'" + s + "'"
}
