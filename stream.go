package rowform

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"iter"
)

// WriteSeq renders rows from seq as they arrive. CSV, TSV, JSONL, and JSON
// write each row immediately; the layout formats (Table, Markdown, HTML)
// and YAML need every row first, so they collect. Iteration stops at the
// first error or when ctx is done.
func (g *Grid[R]) WriteSeq(ctx context.Context, w io.Writer, f Format, seq iter.Seq[*R]) error {
	switch f {
	case CSV, TSV, JSON, JSONL:
	case Table, Markdown, HTML, YAML:
		var rows []*R
		for row := range seq {
			rows = append(rows, row)
		}
		return g.Write(ctx, w, f, rows...)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
	}
	if err := g.check(); err != nil {
		return err
	}

	var emit func(n int, r renderedRow) error
	finish := func(n int) error { return nil }
	switch f {
	case CSV:
		cw := csv.NewWriter(w)
		emit = func(n int, r renderedRow) error {
			if n == 1 {
				if err := cw.Write(g.header()); err != nil {
					return err
				}
			}
			if err := cw.Write(r.cells); err != nil {
				return err
			}
			cw.Flush()
			return cw.Error()
		}
	case TSV:
		emit = func(n int, r renderedRow) error {
			if n == 1 {
				if err := writeTSVRow(w, g.header()); err != nil {
					return err
				}
			}
			return writeTSVRow(w, r.cells)
		}
	case JSONL:
		enc := newJSONEncoder(w)
		emit = func(_ int, r renderedRow) error { return enc.Encode(g.record(r)) }
	case JSON:
		enc := newJSONEncoder(w)
		emit = func(n int, r renderedRow) error {
			sep := ","
			if n == 1 {
				sep = "["
			}
			if _, err := io.WriteString(w, sep); err != nil {
				return err
			}
			return enc.Encode(g.record(r))
		}
		finish = func(n int) error {
			end := "]\n"
			if n == 0 {
				end = "[]\n"
			}
			_, err := io.WriteString(w, end)
			return err
		}
	}

	n := 0
	for row := range seq {
		if err := ctx.Err(); err != nil {
			return err
		}
		n++
		r, err := g.renderRow(ctx, n, row)
		if err != nil {
			return err
		}
		if err := emit(n, r); err != nil {
			return err
		}
	}
	return finish(n)
}

// WriteChan renders rows received from ch. It is a thin wrapper around
// [Grid.WriteSeq].
func (g *Grid[R]) WriteChan(ctx context.Context, w io.Writer, f Format, ch <-chan *R) error {
	return g.WriteSeq(ctx, w, f, chanSeq(ch))
}

func chanSeq[R any](ch <-chan *R) iter.Seq[*R] {
	return func(yield func(*R) bool) {
		for row := range ch {
			if !yield(row) {
				return
			}
		}
	}
}
