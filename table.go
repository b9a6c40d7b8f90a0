package rowform

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/mattn/go-runewidth"
)

type borderChars struct {
	topLeft, topRight, bottomLeft, bottomRight string
	horizontal, vertical                       string
	topTee, bottomTee, leftTee, rightTee       string
	cross                                      string
}

var borderSets = map[BorderStyle]borderChars{
	BorderRounded: {
		topLeft: "╭", topRight: "╮", bottomLeft: "╰", bottomRight: "╯",
		horizontal: "─", vertical: "│",
		topTee: "┬", bottomTee: "┴", leftTee: "├", rightTee: "┤",
		cross: "┼",
	},
	BorderASCII: {
		topLeft: "+", topRight: "+", bottomLeft: "+", bottomRight: "+",
		horizontal: "-", vertical: "|",
		topTee: "+", bottomTee: "+", leftTee: "+", rightTee: "+",
		cross: "+",
	},
	BorderHeavy: {
		topLeft: "┏", topRight: "┓", bottomLeft: "┗", bottomRight: "┛",
		horizontal: "━", vertical: "┃",
		topTee: "┳", bottomTee: "┻", leftTee: "┣", rightTee: "┫",
		cross: "╋",
	},
	BorderDouble: {
		topLeft: "╔", topRight: "╗", bottomLeft: "╚", bottomRight: "╝",
		horizontal: "═", vertical: "║",
		topTee: "╦", bottomTee: "╩", leftTee: "╠", rightTee: "╣",
		cross: "╬",
	},
}

// tableLayout is a grid resolved to strings with final column widths.
type tableLayout struct {
	header    []string
	rows      [][]string
	rowStyles []func(string) string
	widths    []int
	wraps     []int
	aligns    []Alignment
	styles    []func(string) string
}

func (g *Grid[R]) layout(data []renderedRow) tableLayout {
	p := g.prefix()
	l := tableLayout{aligns: g.aligns()}
	if slices.ContainsFunc(g.Columns, func(c Column[R]) bool { return c.Header != "" }) || g.NumberHeader != "" {
		l.header = g.header()
	}
	for _, r := range data {
		l.rows = append(l.rows, r.cells)
		var style func(string) string
		if g.RowStyle != nil {
			style = g.RowStyle(r.status)
		}
		l.rowStyles = append(l.rowStyles, style)
	}

	numCols := p + len(g.Columns)
	l.widths = computeWidths(numCols, l.header, l.rows)
	l.wraps = make([]int, numCols)
	l.styles = make([]func(string) string, numCols)
	for i, c := range g.Columns {
		col := p + i
		if c.MaxWidth > 0 && l.widths[col] > c.MaxWidth {
			l.widths[col] = c.MaxWidth
		}
		l.wraps[col] = c.Wrap
		l.styles[col] = c.Style
	}
	return l
}

func (g *Grid[R]) writeTable(w io.Writer, data []renderedRow) error {
	if len(data) == 0 {
		return nil
	}
	l := g.layout(data)

	var err error
	if g.Border == BorderNone {
		err = l.renderPlain(w)
	} else {
		bc, ok := borderSets[g.Border]
		if !ok {
			bc = borderSets[BorderRounded]
		}
		err = l.renderBordered(w, g.Title, bc)
	}
	if err != nil {
		return err
	}

	if g.Caption != "" {
		if _, err := fmt.Fprintln(w, g.Caption); err != nil {
			return err
		}
	}
	return nil
}

func computeWidths(numCols int, header []string, rows [][]string) []int {
	widths := make([]int, numCols)
	measure := func(cells []string) {
		for i, cell := range cells {
			if i >= numCols {
				break
			}
			for line := range strings.SplitSeq(cell, "\n") {
				if w := runewidth.StringWidth(line); w > widths[i] {
					widths[i] = w
				}
			}
		}
	}
	measure(header)
	for _, row := range rows {
		measure(row)
	}
	return widths
}

// --- Cell wrapping ---

func wrapCell(s string, width int) []string {
	if width <= 0 || runewidth.StringWidth(s) <= width {
		return []string{s}
	}
	var lines []string
	for len(s) > 0 {
		line := runewidth.Truncate(s, width, "")
		if line == "" {
			// A rune wider than the wrap width still has to advance.
			r := []rune(s)
			line = string(r[0])
		}
		lines = append(lines, line)
		s = s[len(line):]
	}
	return lines
}

// cellLines splits a cell on newlines and wraps each line.
func (l tableLayout) cellLines(cells []string) [][]string {
	out := make([][]string, len(l.widths))
	for i, width := range l.widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		wrap := l.wraps[i]
		if wrap <= 0 || wrap >= width {
			wrap = 0
		}
		for line := range strings.SplitSeq(cell, "\n") {
			out[i] = append(out[i], wrapCell(line, wrap)...)
		}
	}
	return out
}

func maxLines(cells [][]string) int {
	n := 1
	for _, lines := range cells {
		n = max(n, len(lines))
	}
	return n
}

// formatLines returns the formatted, styled cells of each visual line of a row.
func (l tableLayout) formatLines(cells []string) [][]string {
	split := l.cellLines(cells)
	n := maxLines(split)
	out := make([][]string, n)
	for line := range n {
		parts := make([]string, len(l.widths))
		for i, width := range l.widths {
			cell := ""
			if line < len(split[i]) {
				cell = split[i][line]
			}
			formatted := formatTableCell(cell, width, l.aligns[i])
			if l.styles[i] != nil {
				formatted = l.styles[i](formatted)
			}
			parts[i] = formatted
		}
		out[line] = parts
	}
	return out
}

// --- Plain table (BorderNone) ---

func (l tableLayout) renderPlain(w io.Writer) error {
	if len(l.header) > 0 {
		if err := l.writePlainRow(w, l.header, nil); err != nil {
			return err
		}
		sep := make([]string, len(l.widths))
		for i, width := range l.widths {
			sep[i] = strings.Repeat("-", width)
		}
		if _, err := fmt.Fprintln(w, strings.Join(sep, "  ")); err != nil {
			return err
		}
	}
	for i, row := range l.rows {
		if err := l.writePlainRow(w, row, l.rowStyles[i]); err != nil {
			return err
		}
	}
	return nil
}

func (l tableLayout) writePlainRow(w io.Writer, cells []string, style func(string) string) error {
	for _, parts := range l.formatLines(cells) {
		text := strings.TrimRight(strings.Join(parts, "  "), " ")
		if style != nil {
			text = style(text)
		}
		if _, err := fmt.Fprintln(w, text); err != nil {
			return err
		}
	}
	return nil
}

// --- Bordered table ---

func (l tableLayout) renderBordered(w io.Writer, title string, bc borderChars) error {
	if title != "" {
		if err := drawHLine(w, l.widths, bc.topLeft, bc.horizontal, bc.horizontal, bc.topRight); err != nil {
			return err
		}
		inner := tableInnerWidth(l.widths) - 2
		if _, err := fmt.Fprintf(w, "%s %s %s\n", bc.vertical, alignCell(title, inner, AlignCenter), bc.vertical); err != nil {
			return err
		}
		if err := drawHLine(w, l.widths, bc.leftTee, bc.horizontal, bc.topTee, bc.rightTee); err != nil {
			return err
		}
	} else {
		if err := drawHLine(w, l.widths, bc.topLeft, bc.horizontal, bc.topTee, bc.topRight); err != nil {
			return err
		}
	}

	if len(l.header) > 0 {
		if err := l.drawBorderedRow(w, l.header, bc.vertical, nil); err != nil {
			return err
		}
		if err := drawHLine(w, l.widths, bc.leftTee, bc.horizontal, bc.cross, bc.rightTee); err != nil {
			return err
		}
	}
	for i, row := range l.rows {
		if err := l.drawBorderedRow(w, row, bc.vertical, l.rowStyles[i]); err != nil {
			return err
		}
	}
	return drawHLine(w, l.widths, bc.bottomLeft, bc.horizontal, bc.bottomTee, bc.bottomRight)
}

// tableInnerWidth returns the width between the outer vertical borders. Each
// cell contributes its width plus one space of padding per side, and cells are
// separated by a single border character.
func tableInnerWidth(widths []int) int {
	n := 0
	for _, w := range widths {
		n += w + 2
	}
	if len(widths) > 1 {
		n += len(widths) - 1
	}
	return n
}

func drawHLine(w io.Writer, widths []int, left, fill, mid, right string) error {
	var sb strings.Builder
	sb.WriteString(left)
	for i, width := range widths {
		sb.WriteString(strings.Repeat(fill, width+2))
		if i < len(widths)-1 {
			sb.WriteString(mid)
		}
	}
	sb.WriteString(right)
	_, err := fmt.Fprintln(w, sb.String())
	return err
}

func (l tableLayout) drawBorderedRow(w io.Writer, cells []string, vert string, style func(string) string) error {
	for _, parts := range l.formatLines(cells) {
		var sb strings.Builder
		sb.WriteString(vert)
		for i, part := range parts {
			sb.WriteString(" ")
			sb.WriteString(part)
			sb.WriteString(" ")
			if i < len(parts)-1 {
				sb.WriteString(vert)
			}
		}
		sb.WriteString(vert)
		line := sb.String()
		if style != nil {
			line = style(line)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func formatTableCell(s string, width int, align Alignment) string {
	if width > 0 && runewidth.StringWidth(s) > width {
		if width <= 3 {
			s = runewidth.Truncate(s, width, "")
		} else {
			s = runewidth.Truncate(s, width, "...")
		}
	}
	return alignCell(s, width, align)
}

func alignCell(s string, width int, align Alignment) string {
	pad := width - runewidth.StringWidth(s)
	if pad <= 0 {
		return s
	}
	switch align {
	case AlignRight:
		return strings.Repeat(" ", pad) + s
	case AlignCenter:
		left := pad / 2
		return strings.Repeat(" ", left) + s + strings.Repeat(" ", pad-left)
	default:
		return s + strings.Repeat(" ", pad)
	}
}
