package rowform

import (
	"context"
	"iter"
	"runtime"
	"slices"
	"sync"
	"weak"
)

// SaveAction runs the save path for the row it was recorded for.
type SaveAction func(ctx context.Context) bool

// CancelAction runs the cancel path for the row it was recorded for.
type CancelAction func() bool

type session[R any] struct {
	draft    *Draft[R]
	state    State
	saveErr  string
	onSave   SaveAction
	onCancel CancelAction
	seq      uint64
	cleanup  runtime.Cleanup
}

// Registry associates rows with their edit sessions without keeping the rows
// alive. When a row is collected its entry is dropped.
//
// Entries are dropped by runtime cleanups. The runtime may batch allocations
// smaller than 16 bytes that hold no pointers, and cleanups attached to those
// may never run, so sessions of such rows stay until Remove or ClearAll. They
// are not counted or yielded once the row is gone.
//
// All methods are safe for concurrent use. Unknown rows are a no-op for every
// method.
type Registry[R any] struct {
	mu      sync.Mutex
	entries map[weak.Pointer[R]]*session[R]
	seq     uint64
	fields  []Accessor[R]
	// dropped is called with the live count after a collected row's entry
	// is removed.
	dropped func(active int)
}

// NewRegistry returns a registry whose drafts track fields.
func NewRegistry[R any](fields ...Accessor[R]) *Registry[R] {
	return &Registry[R]{
		entries: make(map[weak.Pointer[R]]*session[R]),
		fields:  fields,
	}
}

// IsActive reports whether row has a session.
func (r *Registry[R]) IsActive(row *R) bool {
	if row == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[weak.Make(row)]
	return ok
}

// ActiveCount returns the number of live rows with a session.
func (r *Registry[R]) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.live()
}

// live counts entries whose row has not been collected. Callers hold r.mu.
func (r *Registry[R]) live() int {
	n := 0
	for key := range r.entries {
		if key.Value() != nil {
			n++
		}
	}
	return n
}

// FirstActive returns the earliest activated row that is still alive, or nil.
func (r *Registry[R]) FirstActive() *R {
	r.mu.Lock()
	defer r.mu.Unlock()
	var (
		first *R
		best  uint64
	)
	for key, s := range r.entries {
		row := key.Value()
		if row == nil {
			continue
		}
		if first == nil || s.seq < best {
			first, best = row, s.seq
		}
	}
	return first
}

// All yields the live active rows in activation order.
func (r *Registry[R]) All() iter.Seq[*R] {
	return func(yield func(*R) bool) {
		r.mu.Lock()
		type ordered struct {
			row *R
			seq uint64
		}
		rows := make([]ordered, 0, len(r.entries))
		for key, s := range r.entries {
			if row := key.Value(); row != nil {
				rows = append(rows, ordered{row, s.seq})
			}
		}
		r.mu.Unlock()
		slices.SortFunc(rows, func(a, b ordered) int {
			switch {
			case a.seq < b.seq:
				return -1
			case a.seq > b.seq:
				return 1
			}
			return 0
		})
		for _, o := range rows {
			if !yield(o.row) {
				return
			}
		}
	}
}

// GetOrCreate returns the draft of row, creating a session in the Editing
// state if none exists. The check and insert happen under one lock, so two
// concurrent calls for the same row share a single draft. The boolean reports
// whether this call created the session.
func (r *Registry[R]) GetOrCreate(row *R, onSave SaveAction, onCancel CancelAction) (*Draft[R], bool) {
	if row == nil {
		return nil, false
	}
	key := weak.Make(row)
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.entries[key]; ok {
		return s.draft, false
	}
	r.seq++
	s := &session[R]{
		draft:    NewDraft(row, r.fields...),
		state:    Editing,
		onSave:   onSave,
		onCancel: onCancel,
		seq:      r.seq,
	}
	s.cleanup = runtime.AddCleanup(row, r.drop, key)
	r.entries[key] = s
	return s.draft, true
}

// drop runs after a row has been collected.
func (r *Registry[R]) drop(key weak.Pointer[R]) {
	r.mu.Lock()
	_, ok := r.entries[key]
	delete(r.entries, key)
	n := r.live()
	hook := r.dropped
	r.mu.Unlock()
	if ok && hook != nil {
		hook(n)
	}
}

// Remove detaches row's session and reports whether there was one.
func (r *Registry[R]) Remove(row *R) bool {
	if row == nil {
		return false
	}
	key := weak.Make(row)
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.entries[key]
	if !ok {
		return false
	}
	s.cleanup.Stop()
	delete(r.entries, key)
	return true
}

// ClearAll removes every session.
func (r *Registry[R]) ClearAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.entries {
		s.cleanup.Stop()
	}
	clear(r.entries)
}

// Draft returns row's draft, or nil when row is not active.
func (r *Registry[R]) Draft(row *R) *Draft[R] {
	s := r.lookup(row)
	if s == nil {
		return nil
	}
	return s.draft
}

// State returns row's lifecycle state. Rows without a session are Reading.
func (r *Registry[R]) State(row *R) State {
	if row == nil {
		return Reading
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.entries[weak.Make(row)]; ok {
		return s.state
	}
	return Reading
}

// SaveError returns the message of row's last failed save.
func (r *Registry[R]) SaveError(row *R) string {
	if row == nil {
		return ""
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.entries[weak.Make(row)]; ok {
		return s.saveErr
	}
	return ""
}

// Actions returns the save and cancel callbacks recorded for row.
func (r *Registry[R]) Actions(row *R) (SaveAction, CancelAction) {
	s := r.lookup(row)
	if s == nil {
		return nil, nil
	}
	return s.onSave, s.onCancel
}

func (r *Registry[R]) lookup(row *R) *session[R] {
	if row == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries[weak.Make(row)]
}

// owned returns row's session when it still belongs to draft. Callers hold
// r.mu.
func (r *Registry[R]) owned(row *R, draft *Draft[R]) *session[R] {
	if row == nil || draft == nil {
		return nil
	}
	s, ok := r.entries[weak.Make(row)]
	if !ok || s.draft != draft {
		return nil
	}
	return s
}

// holds reports whether draft is row's session and it is in state.
func (r *Registry[R]) holds(row *R, draft *Draft[R], state State) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.owned(row, draft)
	return s != nil && s.state == state
}

// transition moves the session of draft from one state to another. It
// reports false when row's session has since been replaced or is not in the
// from state.
func (r *Registry[R]) transition(row *R, draft *Draft[R], from, to State) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.owned(row, draft)
	if s == nil || s.state != from {
		return false
	}
	s.state = to
	return true
}

// removeSession detaches row's session only while it belongs to draft and is
// in state.
func (r *Registry[R]) removeSession(row *R, draft *Draft[R], state State) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.owned(row, draft)
	if s == nil || s.state != state {
		return false
	}
	s.cleanup.Stop()
	delete(r.entries, weak.Make(row))
	return true
}

func (r *Registry[R]) setSaveError(row *R, draft *Draft[R], msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s := r.owned(row, draft); s != nil {
		s.saveErr = msg
	}
}
