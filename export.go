package rowform

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Record is the structured form of one rendered row, used by the JSON,
// JSONL, and YAML formats. Values are keyed by column header; generated
// marker and number columns are folded into State and Row.
type Record struct {
	Row       int                 `json:"row" yaml:"row"`
	State     string              `json:"state" yaml:"state"`
	Locked    bool                `json:"locked,omitempty" yaml:"locked,omitempty"`
	Dirty     bool                `json:"dirty,omitempty" yaml:"dirty,omitempty"`
	SaveError string              `json:"save_error,omitempty" yaml:"save_error,omitempty"`
	Errors    map[string][]string `json:"errors,omitempty" yaml:"errors,omitempty"`
	Values    map[string]string   `json:"values" yaml:"values"`
}

func (g *Grid[R]) record(r renderedRow) Record {
	rec := Record{
		Row:       r.number,
		State:     r.status.State.String(),
		Locked:    r.status.Dimmed,
		Dirty:     r.status.Dirty,
		SaveError: r.saveError,
		Errors:    r.errors,
		Values:    make(map[string]string, len(g.Columns)),
	}
	p := g.prefix()
	for i, c := range g.Columns {
		key := c.Header
		if key == "" {
			key = "column" + strconv.Itoa(i+1)
		}
		rec.Values[key] = r.cells[p+i]
	}
	return rec
}

func (g *Grid[R]) writeCSV(w io.Writer, data []renderedRow) error {
	if len(data) == 0 {
		return nil
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(g.header()); err != nil {
		return err
	}
	for _, r := range data {
		if err := cw.Write(r.cells); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

var tsvEscaper = strings.NewReplacer("\t", " ", "\r\n", " ", "\n", " ")

func writeTSVRow(w io.Writer, cells []string) error {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = tsvEscaper.Replace(c)
	}
	_, err := fmt.Fprintln(w, strings.Join(out, "\t"))
	return err
}

func (g *Grid[R]) writeTSV(w io.Writer, data []renderedRow) error {
	if len(data) == 0 {
		return nil
	}
	if err := writeTSVRow(w, g.header()); err != nil {
		return err
	}
	for _, r := range data {
		if err := writeTSVRow(w, r.cells); err != nil {
			return err
		}
	}
	return nil
}

func (g *Grid[R]) records(data []renderedRow) []Record {
	out := make([]Record, len(data))
	for i, r := range data {
		out[i] = g.record(r)
	}
	return out
}

func newJSONEncoder(w io.Writer) *json.Encoder {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc
}

func (g *Grid[R]) writeJSON(w io.Writer, data []renderedRow) error {
	return newJSONEncoder(w).Encode(g.records(data))
}

func (g *Grid[R]) writeJSONL(w io.Writer, data []renderedRow) error {
	enc := newJSONEncoder(w)
	for _, r := range data {
		if err := enc.Encode(g.record(r)); err != nil {
			return err
		}
	}
	return nil
}

func (g *Grid[R]) writeYAML(w io.Writer, data []renderedRow) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(g.records(data)); err != nil {
		return err
	}
	return enc.Close()
}
