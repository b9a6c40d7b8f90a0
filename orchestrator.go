package rowform

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
	"weak"

	"github.com/oklog/ulid/v2"
)

// Options configures an [Orchestrator]. Template is required.
type Options[R any] struct {
	// Policy defaults to Block.
	Policy Policy
	// Trigger defaults to Button.
	Trigger Trigger

	// Fields are the editable fields. Every field is validated on save.
	Fields   []Accessor[R]
	Template Template[R]

	// Validator defaults to one built from the rowform struct tags of R.
	// Tags are also registered on a supplied validator for fields it does
	// not already know.
	Validator *Validator[R]

	// Save persists the row. When nil, a save commits the draft to the row
	// and succeeds.
	Save SaveFunc[R]

	OnBeforeEdit   func(*BeforeEditEvent[R])
	OnStateChanged func(StateChangedEvent[R])
	OnSaved        func(SavedEvent[R])
	OnCancelled    func(CancelledEvent[R])

	// Refresh asks the host to re-render row.
	Refresh func(row *R)

	Logger  *slog.Logger
	Metrics MetricsRecorder
}

// Orchestrator coordinates the edit sessions of one grid: which rows may open,
// the Reading, Editing, and Saving transitions, and the events around them.
//
// Operations are expected to be dispatched one at a time by the host. The
// save function and custom validators may block; a host that runs them off
// its event loop may keep dispatching other operations meanwhile.
type Orchestrator[R any] struct {
	policy    Policy
	trigger   Trigger
	order     []Accessor[R]
	fields    map[string]Accessor[R]
	template  Template[R]
	validator *Validator[R]
	registry  *Registry[R]
	opts      Options[R]
	log       *slog.Logger
	metrics   MetricsRecorder
}

// New validates opts and returns an orchestrator.
func New[R any](opts Options[R]) (*Orchestrator[R], error) {
	if opts.Template == nil {
		return nil, ErrMissingTemplate
	}
	policy := opts.Policy
	if policy == "" {
		policy = Block
	}
	if _, err := ParsePolicy(string(policy)); err != nil {
		return nil, err
	}
	trigger := opts.Trigger
	if trigger == "" {
		trigger = Button
	}
	if _, err := ParseTrigger(string(trigger)); err != nil {
		return nil, err
	}

	validator := opts.Validator
	if validator == nil {
		validator = NewValidator[R]()
	}
	fields := make(map[string]Accessor[R], len(opts.Fields))
	for _, f := range opts.Fields {
		name := f.Name()
		if _, dup := fields[name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateField, name)
		}
		fields[name] = f
		if err := validator.RegisterStructField(name, f.StructField()); err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
	}

	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}

	registry := NewRegistry(opts.Fields...)
	registry.dropped = metrics.ActiveSessions

	return &Orchestrator[R]{
		policy:    policy,
		trigger:   trigger,
		order:     opts.Fields,
		fields:    fields,
		template:  opts.Template,
		validator: validator,
		registry:  registry,
		opts:      opts,
		log:       log.With("component", "rowform"),
		metrics:   metrics,
	}, nil
}

func (o *Orchestrator[R]) Policy() Policy           { return o.policy }
func (o *Orchestrator[R]) Trigger() Trigger         { return o.trigger }
func (o *Orchestrator[R]) Registry() *Registry[R]   { return o.registry }
func (o *Orchestrator[R]) Validator() *Validator[R] { return o.validator }
func (o *Orchestrator[R]) IsActive(row *R) bool     { return o.registry.IsActive(row) }
func (o *Orchestrator[R]) ActiveCount() int         { return o.registry.ActiveCount() }
func (o *Orchestrator[R]) State(row *R) State       { return o.registry.State(row) }
func (o *Orchestrator[R]) SaveError(row *R) string  { return o.registry.SaveError(row) }
func (o *Orchestrator[R]) Draft(row *R) *Draft[R]   { return o.registry.Draft(row) }

// Fields returns the editable field names in declaration order.
func (o *Orchestrator[R]) Fields() []string {
	names := make([]string, len(o.order))
	for i, f := range o.order {
		names[i] = f.Name()
	}
	return names
}

// CanEnterEdit reports whether EnterEdit would open row under the policy.
// Hosts use it to disable the edit control of locked rows.
func (o *Orchestrator[R]) CanEnterEdit(row *R) bool {
	if row == nil {
		return false
	}
	if o.policy != Block || o.registry.IsActive(row) {
		return true
	}
	return o.registry.FirstActive() == nil
}

// EnterEdit opens row for editing and reports whether it is open afterwards.
// Opening a row that is already open returns its existing session untouched.
// A refusal by the before-edit hook or by the Block policy returns false
// without any event.
func (o *Orchestrator[R]) EnterEdit(ctx context.Context, row *R) bool {
	if row == nil {
		return false
	}
	if o.registry.IsActive(row) {
		return true
	}

	if o.opts.OnBeforeEdit != nil {
		ev := &BeforeEditEvent[R]{Row: row}
		o.opts.OnBeforeEdit(ev)
		if ev.Cancel {
			o.log.Debug("edit cancelled by hook")
			return false
		}
	}

	if cur := o.registry.FirstActive(); cur != nil && cur != row && o.policy != AllowMultiple {
		switch o.policy {
		case Block:
			o.metrics.PolicyRejected(o.policy)
			o.log.Debug("edit refused", "policy", o.policy)
			return false
		case CancelCurrent:
			if o.registry.State(cur) == Editing {
				o.CancelEdit(cur)
			}
		case SaveCurrent:
			if o.registry.State(cur) == Editing && !o.SaveEdit(ctx, cur) {
				o.log.Debug("previous row kept open", "policy", o.policy, "session", o.sessionID(cur))
			}
		}
	}

	key := weak.Make(row)
	draft, created := o.registry.GetOrCreate(row, o.saveAction(key), o.cancelAction(key))
	if !created {
		return true
	}
	draft.setValidator(o.validator.Func())
	o.metrics.ActiveSessions(o.registry.ActiveCount())
	o.stateChanged(row, draft.ID(), Reading, Editing)
	o.refresh(row)
	return true
}

// HandleRowClick opens row when the trigger mode is RowClick.
func (o *Orchestrator[R]) HandleRowClick(ctx context.Context, row *R) bool {
	if o.trigger != RowClick {
		return false
	}
	return o.EnterEdit(ctx, row)
}

// The recorded callbacks capture the row weakly so the registry never keeps
// it alive.
func (o *Orchestrator[R]) saveAction(key weak.Pointer[R]) SaveAction {
	return func(ctx context.Context) bool {
		row := key.Value()
		if row == nil {
			return false
		}
		return o.SaveEdit(ctx, row)
	}
}

func (o *Orchestrator[R]) cancelAction(key weak.Pointer[R]) CancelAction {
	return func() bool {
		row := key.Value()
		if row == nil {
			return false
		}
		return o.CancelEdit(row)
	}
}

// SaveEdit validates and saves row, reporting whether the row was saved and
// closed. Validation errors are stored on the draft; a failed save leaves the
// row Editing with its message available from SaveError.
func (o *Orchestrator[R]) SaveEdit(ctx context.Context, row *R) bool {
	draft := o.registry.Draft(row)
	if draft == nil || o.registry.State(row) != Editing {
		return false
	}

	values := make(map[string]any, len(o.order))
	for _, f := range o.order {
		values[f.Name()] = draft.Get(f.Name())
	}
	errs := o.validator.ValidateAll(ctx, values, row)
	if !o.registry.holds(row, draft, Editing) {
		o.log.Debug("save abandoned, session replaced", "session", draft.ID().String())
		return false
	}
	draft.setErrors(errs)
	if len(errs) > 0 {
		o.metrics.ValidationFailed(len(errs))
		o.log.Debug("save blocked by validation", "session", draft.ID().String(), "fields", len(errs))
		o.refresh(row)
		return false
	}

	if !o.registry.transition(row, draft, Editing, Saving) {
		return false
	}
	o.registry.setSaveError(row, draft, "")
	draft.setFrozen(true)
	o.stateChanged(row, draft.ID(), Editing, Saving)
	o.refresh(row)

	changes := draft.Changes()
	start := time.Now()
	var err error
	if o.opts.Save != nil {
		err = o.opts.Save(ctx, SaveRequest[R]{
			Row:     row,
			Session: draft.ID(),
			Values:  draft.Values(),
			Changes: changes,
			Draft:   draft,
		})
	}
	o.metrics.SaveFinished(err == nil, time.Since(start))

	if err != nil {
		o.registry.setSaveError(row, draft, err.Error())
		draft.setFrozen(false)
		if o.registry.transition(row, draft, Saving, Editing) {
			o.stateChanged(row, draft.ID(), Saving, Editing)
		}
		o.log.Warn("save failed", "session", draft.ID().String(), "error", err)
		o.refresh(row)
		return false
	}

	if !o.registry.removeSession(row, draft, Saving) {
		o.log.Debug("save discarded, session reset", "session", draft.ID().String())
		return false
	}
	o.metrics.ActiveSessions(o.registry.ActiveCount())
	committed := draft.Commit(nil)
	if o.opts.OnSaved != nil {
		o.opts.OnSaved(SavedEvent[R]{Row: row, Session: draft.ID(), Values: committed, Changes: changes})
	}
	o.stateChanged(row, draft.ID(), Saving, Reading)
	o.log.Info("row saved", "session", draft.ID().String(), "changed", len(changes))
	o.refresh(row)
	return true
}

// CancelEdit discards row's draft and closes it. Rows that are not open, or
// are Saving, are left alone and false is returned.
func (o *Orchestrator[R]) CancelEdit(row *R) bool {
	draft := o.registry.Draft(row)
	if draft == nil {
		return false
	}
	wasDirty := draft.Dirty()
	if !o.registry.removeSession(row, draft, Editing) {
		return false
	}
	draft.Revert()
	o.metrics.ActiveSessions(o.registry.ActiveCount())
	if o.opts.OnCancelled != nil {
		o.opts.OnCancelled(CancelledEvent[R]{Row: row, Session: draft.ID(), WasDirty: wasDirty})
	}
	o.stateChanged(row, draft.ID(), Editing, Reading)
	o.refresh(row)
	return true
}

// CancelAll cancels every Editing row in activation order.
func (o *Orchestrator[R]) CancelAll() int {
	n := 0
	for row := range o.registry.All() {
		if o.registry.State(row) == Editing && o.CancelEdit(row) {
			n++
		}
	}
	return n
}

// Reset drops every session without events, for hosts that discard their rows.
func (o *Orchestrator[R]) Reset() {
	o.registry.ClearAll()
	o.metrics.ActiveSessions(0)
}

// Cell builds the template view of row.
func (o *Orchestrator[R]) Cell(ctx context.Context, row *R) *Cell[R] {
	state := o.registry.State(row)
	c := &Cell[R]{
		Row:       row,
		State:     state,
		CanEdit:   o.CanEnterEdit(row),
		SaveError: o.registry.SaveError(row),
		ctx:       ctx,
		o:         o,
	}
	if state != Reading {
		c.Draft = o.registry.Draft(row)
	}
	c.Dimmed = state == Reading && !c.CanEdit
	c.ShowEditButton = o.trigger == Button && state == Reading && c.CanEdit
	return c
}

// RenderCell renders row's cell through the template.
func (o *Orchestrator[R]) RenderCell(ctx context.Context, w io.Writer, row *R) error {
	return o.template.Render(w, o.Cell(ctx, row))
}

// CellText renders row's cell to a string.
func (o *Orchestrator[R]) CellText(ctx context.Context, row *R) (string, error) {
	var sb strings.Builder
	if err := o.RenderCell(ctx, &sb, row); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (o *Orchestrator[R]) stateChanged(row *R, id ulid.ULID, from, to State) {
	o.metrics.Transition(from, to)
	o.log.Debug("row state changed", "session", id.String(), "from", from.String(), "to", to.String())
	if o.opts.OnStateChanged != nil {
		o.opts.OnStateChanged(StateChangedEvent[R]{Row: row, Session: id, From: from, To: to})
	}
}

func (o *Orchestrator[R]) refresh(row *R) {
	if o.opts.Refresh != nil {
		o.opts.Refresh(row)
	}
}

func (o *Orchestrator[R]) sessionID(row *R) string {
	if d := o.registry.Draft(row); d != nil {
		return d.ID().String()
	}
	return ""
}
