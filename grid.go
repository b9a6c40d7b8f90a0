package rowform

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Format is a grid output format.
type Format string

const (
	Table    Format = "table"
	Markdown Format = "markdown"
	HTML     Format = "html"
	CSV      Format = "csv"
	TSV      Format = "tsv"
	JSON     Format = "json"
	JSONL    Format = "jsonl"
	YAML     Format = "yaml"
)

var formats = []Format{Table, Markdown, HTML, CSV, TSV, JSON, JSONL, YAML}

// String returns the format name.
func (f Format) String() string { return string(f) }

// Formats returns all supported grid formats.
func Formats() []Format {
	out := make([]Format, len(formats))
	copy(out, formats)
	return out
}

// ParseFormat parses a format name.
func ParseFormat(s string) (Format, error) {
	for _, f := range formats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// BorderStyle controls table border characters.
type BorderStyle int

const (
	BorderRounded BorderStyle = iota // ╭─╮╰╯│┬┴├┤┼
	BorderNone                       // No borders, space-separated columns
	BorderASCII                      // +-+|
	BorderHeavy                      // ┏━┓┗┛┃┳┻┣┫╋
	BorderDouble                     // ╔═╗╚╝║╦╩╠╣╬
)

// Alignment controls column text alignment.
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignCenter
	AlignRight
)

// Column describes one grid column. Exactly one of Value, Field, or Edit
// supplies the cell text.
type Column[R any] struct {
	Header string
	Align  Alignment
	// MaxWidth truncates cells with "...". Zero means no limit.
	MaxWidth int
	// Wrap wraps cells wider than this onto extra lines. Zero means no wrapping.
	Wrap int
	// Style wraps the fully formatted cell, after width calculations.
	Style func(string) string

	Value func(*R) string
	Field Accessor[R]
	Edit  bool
}

// TextColumn returns a read-only column computed from the row.
func TextColumn[R any](header string, value func(*R) string) Column[R] {
	return Column[R]{Header: header, Value: value}
}

// FieldColumn returns a column showing a field. While the row is open the
// draft value is shown instead of the live one.
func FieldColumn[R any](header string, f Accessor[R]) Column[R] {
	return Column[R]{Header: header, Field: f}
}

// EditColumn returns the column rendered by the orchestrator's template.
func EditColumn[R any](header string) Column[R] {
	return Column[R]{Header: header, Edit: true}
}

// RowStatus summarizes a row's edit state for row styling.
type RowStatus struct {
	State     State
	Dimmed    bool
	Dirty     bool
	HasErrors bool
}

// Grid renders rows through an [Orchestrator]. It plays the host table: it
// asks the orchestrator for every edit cell and reflects each row's state.
type Grid[R any] struct {
	Orchestrator *Orchestrator[R]
	Columns      []Column[R]

	Title   string
	Caption string
	Border  BorderStyle
	// NumberHeader, when set, prepends a row number column with this header.
	NumberHeader string
	// Marker prepends a status column: "*" editing, "~" saving, "!" save
	// failed, "-" locked by the policy.
	Marker bool
	// RowStyle wraps every formatted line of a row.
	RowStyle func(RowStatus) func(string) string
}

type renderedRow struct {
	number    int
	cells     []string
	status    RowStatus
	errors    map[string][]string
	saveError string
}

// Write renders rows in format f.
func (g *Grid[R]) Write(ctx context.Context, w io.Writer, f Format, rows ...*R) error {
	data, err := g.render(ctx, rows)
	if err != nil {
		return err
	}
	switch f {
	case Table:
		return g.writeTable(w, data)
	case Markdown:
		return g.writeMarkdown(w, data)
	case HTML:
		return g.writeHTML(w, data)
	case CSV:
		return g.writeCSV(w, data)
	case TSV:
		return g.writeTSV(w, data)
	case JSON:
		return g.writeJSON(w, data)
	case JSONL:
		return g.writeJSONL(w, data)
	case YAML:
		return g.writeYAML(w, data)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
	}
}

// Render renders rows as a text table and returns the result.
func (g *Grid[R]) Render(ctx context.Context, rows ...*R) (string, error) {
	var sb strings.Builder
	if err := g.Write(ctx, &sb, Table, rows...); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (g *Grid[R]) header() []string {
	var out []string
	if g.Marker {
		out = append(out, "")
	}
	if g.NumberHeader != "" {
		out = append(out, g.NumberHeader)
	}
	for _, c := range g.Columns {
		out = append(out, c.Header)
	}
	return out
}

// prefix returns the number of leading generated columns.
func (g *Grid[R]) prefix() int {
	n := 0
	if g.Marker {
		n++
	}
	if g.NumberHeader != "" {
		n++
	}
	return n
}

func (g *Grid[R]) render(ctx context.Context, rows []*R) ([]renderedRow, error) {
	if err := g.check(); err != nil {
		return nil, err
	}
	out := make([]renderedRow, len(rows))
	for i, row := range rows {
		r, err := g.renderRow(ctx, i+1, row)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

func (g *Grid[R]) check() error {
	for _, c := range g.Columns {
		if c.Edit && g.Orchestrator == nil {
			return ErrNoOrchestrator
		}
	}
	return nil
}

func (g *Grid[R]) renderRow(ctx context.Context, n int, row *R) (renderedRow, error) {
	st := g.status(row)
	r := renderedRow{number: n, status: st}
	if g.Orchestrator != nil {
		r.saveError = g.Orchestrator.SaveError(row)
		if d := g.Orchestrator.Draft(row); d != nil {
			r.errors = d.AllErrors()
		}
	}
	if g.Marker {
		r.cells = append(r.cells, marker(st, r.saveError != ""))
	}
	if g.NumberHeader != "" {
		r.cells = append(r.cells, strconv.Itoa(n))
	}
	for _, c := range g.Columns {
		text, err := g.cell(ctx, c, row)
		if err != nil {
			return renderedRow{}, fmt.Errorf("row %d column %q: %w", n, c.Header, err)
		}
		r.cells = append(r.cells, text)
	}
	return r, nil
}

func (g *Grid[R]) cell(ctx context.Context, c Column[R], row *R) (string, error) {
	switch {
	case c.Edit:
		return g.Orchestrator.CellText(ctx, row)
	case c.Value != nil:
		return c.Value(row), nil
	case c.Field != nil:
		if g.Orchestrator != nil {
			if d := g.Orchestrator.Draft(row); d != nil {
				return d.Text(c.Field.Name()), nil
			}
		}
		return c.Field.FormatAny(c.Field.Load(row)), nil
	}
	return "", nil
}

func (g *Grid[R]) status(row *R) RowStatus {
	if g.Orchestrator == nil {
		return RowStatus{}
	}
	st := RowStatus{State: g.Orchestrator.State(row)}
	if d := g.Orchestrator.Draft(row); d != nil {
		st.Dirty = d.Dirty()
		st.HasErrors = d.HasErrors()
	}
	st.Dimmed = st.State == Reading && !g.Orchestrator.CanEnterEdit(row)
	return st
}

func marker(st RowStatus, saveFailed bool) string {
	switch {
	case st.State == Saving:
		return "~"
	case st.State == Editing && saveFailed:
		return "!"
	case st.State == Editing:
		return "*"
	case st.Dimmed:
		return "-"
	}
	return ""
}

func (g *Grid[R]) aligns() []Alignment {
	out := make([]Alignment, g.prefix(), g.prefix()+len(g.Columns))
	if g.NumberHeader != "" {
		out[len(out)-1] = AlignRight
	}
	for _, c := range g.Columns {
		out = append(out, c.Align)
	}
	return out
}
