package rowform_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/bjaus/rowform"
)

// --- Test types ---

type person struct {
	Name   string `rowform:"required,maxlen=10"`
	Email  string `rowform:"email"`
	Age    int    `rowform:"min=0,max=150"`
	Tags   []string
	Joined time.Time
}

var (
	nameField = rowform.NewField("Name",
		func(p *person) string { return p.Name },
		func(p *person, v string) { p.Name = v })
	emailField = rowform.NewField("Email",
		func(p *person) string { return p.Email },
		func(p *person, v string) { p.Email = v })
	ageField = rowform.NewField("Age",
		func(p *person) int { return p.Age },
		func(p *person, v int) { p.Age = v })
	tagsField = rowform.NewField("Tags",
		func(p *person) []string { return p.Tags },
		func(p *person, v []string) { p.Tags = v })
	joinedField = rowform.NewField("Joined",
		func(p *person) time.Time { return p.Joined },
		func(p *person, v time.Time) { p.Joined = v })
)

func personFields() []rowform.Accessor[person] {
	return []rowform.Accessor[person]{nameField, emailField, ageField}
}

// stateTemplate renders the lifecycle state and flags of a cell.
var stateTemplate = rowform.TemplateFunc[person](func(w io.Writer, c *rowform.Cell[person]) error {
	_, err := fmt.Fprintf(w, "%s edit=%t dim=%t", c.State, c.CanEdit, c.Dimmed)
	return err
})

// --- Event recorder ---

type recorder struct {
	mu     sync.Mutex
	events []string
	saved  []rowform.SavedEvent[person]
	cancel []rowform.CancelledEvent[person]
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, s)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	copy(out, r.events)
	return out
}

// wire installs the recorder's hooks on opts. Rows are identified by Name.
func (r *recorder) wire(opts *rowform.Options[person]) {
	opts.OnStateChanged = func(e rowform.StateChangedEvent[person]) {
		r.add(fmt.Sprintf("%s:%s->%s", e.Row.Name, e.From, e.To))
	}
	opts.OnSaved = func(e rowform.SavedEvent[person]) {
		r.mu.Lock()
		r.saved = append(r.saved, e)
		r.mu.Unlock()
		r.add(e.Row.Name + ":saved")
	}
	opts.OnCancelled = func(e rowform.CancelledEvent[person]) {
		r.mu.Lock()
		r.cancel = append(r.cancel, e)
		r.mu.Unlock()
		r.add(fmt.Sprintf("%s:cancelled dirty=%t", e.Row.Name, e.WasDirty))
	}
}

func newOrchestrator(policy rowform.Policy, rec *recorder, mutate ...func(*rowform.Options[person])) (*rowform.Orchestrator[person], error) {
	opts := rowform.Options[person]{
		Policy:   policy,
		Fields:   personFields(),
		Template: stateTemplate,
	}
	if rec != nil {
		rec.wire(&opts)
	}
	for _, m := range mutate {
		m(&opts)
	}
	return rowform.New(opts)
}

var errBackend = errors.New("backend down")

func failingSave(ctx context.Context, req rowform.SaveRequest[person]) error {
	return errBackend
}
