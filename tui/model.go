// Package tui hosts a rowform orchestrator in a Bubble Tea program: a table of
// rows with a field editor for the row under the cursor.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/bjaus/rowform"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// SaveDoneMsg is delivered when an asynchronous save finishes.
type SaveDoneMsg[R any] struct {
	Row *R
	OK  bool
}

// EditOpenedMsg is delivered when a row opened off the event loop is ready.
type EditOpenedMsg[R any] struct {
	Row *R
	OK  bool
}

// Model is the Bubble Tea model of an editable table.
type Model[R any] struct {
	ctx    context.Context
	o      *rowform.Orchestrator[R]
	grid   rowform.Grid[R]
	rows   []*R
	fields []string

	cursor int
	field  int
	input  textinput.Model
	help   help.Model
	keys   KeyMap
	status string
	width  int
}

// New returns a model showing rows with the given columns. A cursor column
// and a status marker are prepended.
func New[R any](ctx context.Context, o *rowform.Orchestrator[R], columns []rowform.Column[R], rows []*R) *Model[R] {
	m := &Model[R]{
		ctx:    ctx,
		o:      o,
		rows:   rows,
		fields: o.Fields(),
		input:  textinput.New(),
		help:   help.New(),
		keys:   DefaultKeyMap(),
	}
	cursor := rowform.TextColumn("", func(r *R) string {
		if r == m.current() {
			return ">"
		}
		return ""
	})
	m.grid = rowform.Grid[R]{
		Orchestrator: o,
		Columns:      append([]rowform.Column[R]{cursor}, columns...),
		Border:       rowform.BorderRounded,
		Marker:       true,
		RowStyle:     rowStyle,
	}
	return m
}

// SetKeys replaces the keyboard shortcuts.
func (m *Model[R]) SetKeys(keys KeyMap) { m.keys = keys }

// Cursor returns the index of the selected row.
func (m *Model[R]) Cursor() int { return m.cursor }

// Status returns the last status line.
func (m *Model[R]) Status() string { return m.status }

func (m *Model[R]) current() *R {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return nil
	}
	return m.rows[m.cursor]
}

func (m *Model[R]) Init() tea.Cmd { return nil }

func (m *Model[R]) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case SaveDoneMsg[R]:
		if msg.OK {
			m.status = "saved"
		} else if errMsg := m.o.SaveError(msg.Row); errMsg != "" {
			m.status = "save failed: " + errMsg
		} else {
			m.status = "fix the highlighted fields"
		}
		if msg.Row == m.current() {
			m.loadInput()
		}
		return m, nil

	case EditOpenedMsg[R]:
		m.opened(msg.Row, msg.OK)
		return m, nil

	case tea.KeyMsg:
		row := m.current()
		switch m.o.State(row) {
		case rowform.Editing:
			return m.updateEditing(msg, row)
		case rowform.Saving:
			switch {
			case key.Matches(msg, m.keys.Quit) && msg.String() == "ctrl+c":
				return m, tea.Quit
			case key.Matches(msg, m.keys.RowUp):
				return m, m.moveOpen(-1)
			case key.Matches(msg, m.keys.RowDown):
				return m, m.moveOpen(1)
			}
			return m, nil
		}
		return m.updateBrowsing(msg, row)
	}
	return m, nil
}

func (m *Model[R]) updateBrowsing(msg tea.KeyMsg, row *R) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		m.move(-1)
	case key.Matches(msg, m.keys.Down):
		m.move(1)
	case key.Matches(msg, m.keys.CancelAll):
		n := m.o.CancelAll()
		m.status = fmt.Sprintf("cancelled %d row(s)", n)
	case key.Matches(msg, m.keys.Edit):
		if row == nil {
			return m, nil
		}
		return m, m.openRow(row)
	}
	return m, nil
}

func (m *Model[R]) updateEditing(msg tea.KeyMsg, row *R) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Save):
		m.commitInput(row)
		m.input.Blur()
		m.status = "saving..."
		return m, m.saveCmd(row)
	case key.Matches(msg, m.keys.Cancel):
		m.o.CancelEdit(row)
		m.input.Blur()
		m.status = "cancelled"
		return m, nil
	case key.Matches(msg, m.keys.RowUp):
		m.commitInput(row)
		return m, m.moveOpen(-1)
	case key.Matches(msg, m.keys.RowDown):
		m.commitInput(row)
		return m, m.moveOpen(1)
	case key.Matches(msg, m.keys.NextField):
		m.commitInput(row)
		m.focusField(m.field + 1)
		return m, nil
	case key.Matches(msg, m.keys.PrevField):
		m.commitInput(row)
		m.focusField(m.field - 1)
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// saveCmd runs the save path off the event loop. The draft is frozen for the
// duration, so the loop only reads it meanwhile.
func (m *Model[R]) saveCmd(row *R) tea.Cmd {
	o, ctx := m.o, m.ctx
	return func() tea.Msg {
		return SaveDoneMsg[R]{Row: row, OK: o.SaveEdit(ctx, row)}
	}
}

// openRow asks the orchestrator to open row. Under SaveCurrent that may save
// another row, so it runs off the event loop and reports an EditOpenedMsg.
func (m *Model[R]) openRow(row *R) tea.Cmd {
	o, ctx := m.o, m.ctx
	enter := func() bool {
		if o.Trigger() == rowform.RowClick {
			return o.HandleRowClick(ctx, row)
		}
		return o.EnterEdit(ctx, row)
	}
	if o.Policy() == rowform.SaveCurrent {
		return func() tea.Msg {
			return EditOpenedMsg[R]{Row: row, OK: enter()}
		}
	}
	m.opened(row, enter())
	return nil
}

func (m *Model[R]) opened(row *R, ok bool) {
	if !ok {
		m.status = "another row is being edited"
		return
	}
	m.status = ""
	if row == m.current() {
		m.field = 0
		m.loadInput()
	}
}

// moveOpen moves the cursor and opens the row it lands on.
func (m *Model[R]) moveOpen(delta int) tea.Cmd {
	from := m.current()
	m.move(delta)
	row := m.current()
	if row == nil || row == from || m.o.State(row) != rowform.Reading {
		return nil
	}
	return m.openRow(row)
}

func (m *Model[R]) move(delta int) {
	if len(m.rows) == 0 {
		return
	}
	m.cursor = min(max(m.cursor+delta, 0), len(m.rows)-1)
	m.field = 0
	m.loadInput()
}

func (m *Model[R]) focusField(i int) {
	if len(m.fields) == 0 {
		return
	}
	m.field = (i + len(m.fields)) % len(m.fields)
	m.loadInput()
}

// loadInput shows the focused field of an open row in the input.
func (m *Model[R]) loadInput() {
	d := m.o.Draft(m.current())
	if d == nil || len(m.fields) == 0 {
		m.input.Blur()
		m.input.SetValue("")
		return
	}
	m.input.SetValue(d.Text(m.fields[m.field]))
	m.input.CursorEnd()
	m.input.Focus()
}

// commitInput parses the input into the draft and validates the field.
func (m *Model[R]) commitInput(row *R) {
	d := m.o.Draft(row)
	if d == nil || len(m.fields) == 0 {
		return
	}
	field := m.fields[m.field]
	if d.Text(field) == m.input.Value() {
		return
	}
	if err := d.SetText(field, m.input.Value()); err != nil {
		return
	}
	d.Validate(m.ctx, field)
}

func (m *Model[R]) View() string {
	var b strings.Builder
	table, err := m.grid.Render(m.ctx, m.rows...)
	if err != nil {
		b.WriteString(errorStyle.Render(err.Error()))
		b.WriteString("\n")
	} else {
		b.WriteString(table)
	}

	row := m.current()
	if d := m.o.Draft(row); d != nil {
		b.WriteString("\n")
		for i, field := range m.fields {
			label := field
			if m.o.Validator().Required(field) {
				label += "*"
			}
			if d.IsDirty(field) {
				label += " •"
			}
			b.WriteString(labelStyle.Render(label))
			if i == m.field && m.o.State(row) == rowform.Editing {
				b.WriteString(focusStyle.Render(m.input.View()))
			} else {
				b.WriteString(d.Text(field))
			}
			b.WriteString("\n")
			for _, e := range d.Errors(field) {
				b.WriteString(errorStyle.Render("  " + e))
				b.WriteString("\n")
			}
		}
		if msg := m.o.SaveError(row); msg != "" {
			b.WriteString(errorStyle.Render("save failed: " + msg))
			b.WriteString("\n")
		}
	}

	if m.status != "" {
		b.WriteString("\n" + m.status + "\n")
	}
	bindings := m.keys.browseHelp()
	if m.o.State(row) != rowform.Reading {
		bindings = m.keys.editHelp()
	}
	b.WriteString("\n" + helpStyle.Render(m.help.ShortHelpView(bindings)) + "\n")
	return b.String()
}
