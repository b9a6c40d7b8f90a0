package rowform

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/template"
)

// Cell is the view of one row handed to a [Template]. Draft is nil while the
// row is Reading.
type Cell[R any] struct {
	Row   *R
	State State
	Draft *Draft[R]

	// CanEdit is false when the policy would refuse to open this row.
	CanEdit bool
	// Dimmed marks rows locked out while another row is open under Block.
	Dimmed bool
	// ShowEditButton is set in Button trigger mode for rows not yet open.
	ShowEditButton bool
	SaveError      string

	ctx context.Context
	o   *Orchestrator[R]
}

func (c *Cell[R]) Reading() bool { return c.State == Reading }
func (c *Cell[R]) Editing() bool { return c.State == Editing }
func (c *Cell[R]) Saving() bool  { return c.State == Saving }

// Edit opens the row for editing.
func (c *Cell[R]) Edit() bool { return c.o.EnterEdit(c.ctx, c.Row) }

// Save runs the save callback recorded for the row.
func (c *Cell[R]) Save() bool {
	save, _ := c.o.registry.Actions(c.Row)
	if save == nil {
		return false
	}
	return save(c.ctx)
}

// Cancel runs the cancel callback recorded for the row.
func (c *Cell[R]) Cancel() bool {
	_, cancel := c.o.registry.Actions(c.Row)
	if cancel == nil {
		return false
	}
	return cancel()
}

// Get returns the draft value of field, or the live value while Reading.
func (c *Cell[R]) Get(field string) any {
	if c.Draft != nil {
		return c.Draft.Get(field)
	}
	if acc, ok := c.o.fields[field]; ok {
		return acc.Load(c.Row)
	}
	return nil
}

// Text returns Get(field) formatted for display.
func (c *Cell[R]) Text(field string) string {
	v := c.Get(field)
	if acc, ok := c.o.fields[field]; ok {
		return acc.FormatAny(v)
	}
	return FormatValue(v)
}

// Set writes a draft value. It is a no-op while Reading.
func (c *Cell[R]) Set(field string, v any) {
	if c.Draft != nil {
		c.Draft.Set(field, v)
	}
}

// Validate validates one field of the draft.
func (c *Cell[R]) Validate(field string) []string {
	if c.Draft == nil {
		return nil
	}
	return c.Draft.Validate(c.ctx, field)
}

func (c *Cell[R]) Dirty(field string) bool {
	return c.Draft != nil && c.Draft.IsDirty(field)
}

func (c *Cell[R]) RowDirty() bool {
	return c.Draft != nil && c.Draft.Dirty()
}

func (c *Cell[R]) Errors(field string) []string {
	if c.Draft == nil {
		return nil
	}
	return c.Draft.Errors(field)
}

func (c *Cell[R]) Required(field string) bool {
	return c.o.validator.Required(field)
}

// Template renders a cell. Render is called on every state change of the row.
type Template[R any] interface {
	Render(w io.Writer, c *Cell[R]) error
}

// TemplateFunc adapts a function to [Template].
type TemplateFunc[R any] func(w io.Writer, c *Cell[R]) error

func (f TemplateFunc[R]) Render(w io.Writer, c *Cell[R]) error { return f(w, c) }

type goTemplate[R any] struct {
	tmpl *template.Template
}

// GoTemplate returns a Template that executes a Go text/template against the
// *Cell. The template may call the cell's methods:
//
//	{{if .Editing}}[{{.Text "Name"}}]{{else}}{{.Text "Name"}}{{end}}
//
// The function "join" (strings.Join) is available.
func GoTemplate[R any](text string) (Template[R], error) {
	tmpl, err := template.New("cell").Funcs(template.FuncMap{
		"join": strings.Join,
	}).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTemplate, err)
	}
	return goTemplate[R]{tmpl: tmpl}, nil
}

func (g goTemplate[R]) Render(w io.Writer, c *Cell[R]) error {
	return g.tmpl.Execute(w, c)
}
