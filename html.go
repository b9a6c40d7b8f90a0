package rowform

import (
	"fmt"
	"html"
	"io"
	"strings"
)

// writeHTML renders an HTML table. Each row carries its state as a class
// ("editing", "saving", "locked") and a data-dirty attribute while open.
// Edit cells are written verbatim so templates can emit form controls;
// every other cell is escaped.
func (g *Grid[R]) writeHTML(w io.Writer, data []renderedRow) error {
	if len(data) == 0 {
		return nil
	}
	aligns := g.aligns()
	p := g.prefix()
	raw := make([]bool, len(aligns))
	for i, c := range g.Columns {
		raw[p+i] = c.Edit
	}

	if _, err := fmt.Fprintln(w, "<table>"); err != nil {
		return err
	}
	if g.Title != "" {
		if _, err := fmt.Fprintf(w, "  <caption>%s</caption>\n", html.EscapeString(g.Title)); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintln(w, "  <thead>\n    <tr>"); err != nil {
		return err
	}
	for i, col := range g.header() {
		if _, err := fmt.Fprintf(w, "      <th%s>%s</th>\n", alignStyle(aligns, i), html.EscapeString(col)); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w, "    </tr>\n  </thead>\n  <tbody>"); err != nil {
		return err
	}

	for _, r := range data {
		if _, err := fmt.Fprintf(w, "    <tr%s>\n", rowAttrs(r.status)); err != nil {
			return err
		}
		for i, cell := range r.cells {
			if !raw[i] {
				cell = html.EscapeString(cell)
			}
			if _, err := fmt.Fprintf(w, "      <td%s>%s</td>\n", alignStyle(aligns, i), cell); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w, "    </tr>"); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w, "  </tbody>"); err != nil {
		return err
	}
	if g.Caption != "" {
		if _, err := fmt.Fprintf(w, "  <tfoot><tr><td colspan=\"%d\">%s</td></tr></tfoot>\n", len(aligns), html.EscapeString(g.Caption)); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "</table>")
	return err
}

func rowAttrs(st RowStatus) string {
	var classes []string
	switch {
	case st.State == Editing:
		classes = append(classes, "editing")
	case st.State == Saving:
		classes = append(classes, "saving")
	case st.Dimmed:
		classes = append(classes, "locked")
	}
	if st.HasErrors {
		classes = append(classes, "invalid")
	}
	if len(classes) == 0 {
		return ""
	}
	attrs := fmt.Sprintf(` class="%s"`, strings.Join(classes, " "))
	if st.State != Reading {
		attrs += fmt.Sprintf(` data-dirty="%t"`, st.Dirty)
	}
	return attrs
}

func alignStyle(aligns []Alignment, col int) string {
	if col >= len(aligns) {
		return ""
	}
	switch aligns[col] {
	case AlignRight:
		return ` style="text-align: right"`
	case AlignCenter:
		return ` style="text-align: center"`
	default:
		return ""
	}
}
