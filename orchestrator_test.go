package rowform_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bjaus/rowform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Setup ---

func TestNewRequiresTemplate(t *testing.T) {
	t.Parallel()
	_, err := rowform.New(rowform.Options[person]{Fields: personFields()})
	require.ErrorIs(t, err, rowform.ErrMissingTemplate)
}

func TestNewDefaults(t *testing.T) {
	t.Parallel()
	o, err := newOrchestrator("", nil)
	require.NoError(t, err)
	assert.Equal(t, rowform.Block, o.Policy())
	assert.Equal(t, rowform.Button, o.Trigger())
	assert.Equal(t, []string{"Name", "Email", "Age"}, o.Fields())
	assert.True(t, o.Validator().Required("Name"))
	assert.Equal(t, []string{"email"}, o.Validator().Rules("Email"))
}

type badTagRow struct {
	Code string `rowform:"shiny"`
}

func TestNewSetupErrors(t *testing.T) {
	t.Parallel()
	tests := map[string]struct {
		mutate func(*rowform.Options[person])
		want   error
	}{
		"invalid policy": {
			mutate: func(o *rowform.Options[person]) { o.Policy = "sometimes" },
			want:   rowform.ErrInvalidPolicy,
		},
		"invalid trigger": {
			mutate: func(o *rowform.Options[person]) { o.Trigger = "hover" },
			want:   rowform.ErrInvalidTrigger,
		},
		"duplicate field": {
			mutate: func(o *rowform.Options[person]) { o.Fields = append(o.Fields, nameField) },
			want:   rowform.ErrDuplicateField,
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := newOrchestrator(rowform.Block, nil, tt.mutate)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNewRejectsBadTag(t *testing.T) {
	t.Parallel()
	code := rowform.NewField("Code",
		func(r *badTagRow) string { return r.Code },
		func(r *badTagRow, v string) { r.Code = v })
	_, err := rowform.New(rowform.Options[badTagRow]{
		Fields: []rowform.Accessor[badTagRow]{code},
		Template: rowform.TemplateFunc[badTagRow](func(w io.Writer, c *rowform.Cell[badTagRow]) error {
			return nil
		}),
	})
	require.ErrorIs(t, err, rowform.ErrInvalidRule)
	assert.Contains(t, err.Error(), `field "Code"`)
}

func TestNewKeepsSuppliedValidatorRules(t *testing.T) {
	t.Parallel()
	v := rowform.NewValidator[person]()
	require.NoError(t, v.RegisterField("Name", "minlen=2"))
	o, err := newOrchestrator(rowform.Block, nil, func(opts *rowform.Options[person]) {
		opts.Validator = v
	})
	require.NoError(t, err)
	assert.Same(t, v, o.Validator())
	assert.Equal(t, []string{"minlen"}, v.Rules("Name"))
	assert.Equal(t, []string{"min", "max"}, v.Rules("Age"))
}

// --- Enter edit ---

func TestEnterEditIsIdempotent(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	o, err := newOrchestrator(rowform.Block, rec)
	require.NoError(t, err)
	ctx := context.Background()
	a := &person{Name: "A"}

	require.True(t, o.EnterEdit(ctx, a))
	d := o.Draft(a)
	d.Set("Name", "changed")

	require.True(t, o.EnterEdit(ctx, a))
	assert.Same(t, d, o.Draft(a))
	assert.Equal(t, "changed", d.Get("Name"), "re-entry keeps the draft")
	assert.Equal(t, []string{"A:reading->editing"}, rec.list())
	assert.Equal(t, 1, o.ActiveCount())
	runtime.KeepAlive(a)
}

func TestEnterEditNilRow(t *testing.T) {
	t.Parallel()
	o, err := newOrchestrator(rowform.Block, nil)
	require.NoError(t, err)
	assert.False(t, o.EnterEdit(context.Background(), nil))
	assert.False(t, o.CanEnterEdit(nil))
	assert.False(t, o.SaveEdit(context.Background(), nil))
	assert.False(t, o.CancelEdit(nil))
}

func TestBeforeEditCanCancel(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	var asked []string
	o, err := newOrchestrator(rowform.Block, rec, func(opts *rowform.Options[person]) {
		opts.OnBeforeEdit = func(e *rowform.BeforeEditEvent[person]) {
			asked = append(asked, e.Row.Name)
			e.Cancel = e.Row.Name == "locked"
		}
	})
	require.NoError(t, err)
	ctx := context.Background()
	locked, open := &person{Name: "locked"}, &person{Name: "open"}

	assert.False(t, o.EnterEdit(ctx, locked))
	assert.False(t, o.IsActive(locked))
	assert.True(t, o.EnterEdit(ctx, open))
	assert.Equal(t, []string{"locked", "open"}, asked)
	assert.Equal(t, []string{"open:reading->editing"}, rec.list())
}

func TestBlockPolicy(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	o, err := newOrchestrator(rowform.Block, rec)
	require.NoError(t, err)
	ctx := context.Background()
	a, b := &person{Name: "A"}, &person{Name: "B"}

	require.True(t, o.EnterEdit(ctx, a))
	assert.True(t, o.CanEnterEdit(a))
	assert.False(t, o.CanEnterEdit(b))

	assert.False(t, o.EnterEdit(ctx, b))
	assert.Equal(t, rowform.Editing, o.State(a))
	assert.Equal(t, rowform.Reading, o.State(b))
	assert.Equal(t, []string{"A:reading->editing"}, rec.list())

	require.True(t, o.CancelEdit(a))
	assert.True(t, o.CanEnterEdit(b))
	assert.True(t, o.EnterEdit(ctx, b))
}

func TestCancelCurrentPolicy(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	o, err := newOrchestrator(rowform.CancelCurrent, rec)
	require.NoError(t, err)
	ctx := context.Background()
	a, b := &person{Name: "A", Age: 30}, &person{Name: "B"}

	require.True(t, o.EnterEdit(ctx, a))
	o.Draft(a).Set("Age", 31)
	assert.True(t, o.CanEnterEdit(b))

	require.True(t, o.EnterEdit(ctx, b))
	assert.Equal(t, []string{
		"A:reading->editing",
		"A:cancelled dirty=true",
		"A:editing->reading",
		"B:reading->editing",
	}, rec.list())
	assert.False(t, o.IsActive(a))
	assert.Equal(t, 30, a.Age, "the row keeps its original values")
	assert.True(t, o.IsActive(b))
}

func TestSaveCurrentPolicy(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	o, err := newOrchestrator(rowform.SaveCurrent, rec)
	require.NoError(t, err)
	ctx := context.Background()
	a, b := &person{Name: "A"}, &person{Name: "B"}

	require.True(t, o.EnterEdit(ctx, a))
	o.Draft(a).Set("Age", 40)
	require.True(t, o.EnterEdit(ctx, b))

	assert.Equal(t, 40, a.Age)
	assert.False(t, o.IsActive(a))
	assert.True(t, o.IsActive(b))
	assert.Equal(t, []string{
		"A:reading->editing",
		"A:editing->saving",
		"A:saved",
		"A:saving->reading",
		"B:reading->editing",
	}, rec.list())
}

func TestSaveCurrentWithValidationFailure(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	o, err := newOrchestrator(rowform.SaveCurrent, rec)
	require.NoError(t, err)
	ctx := context.Background()
	a, b := &person{Name: "A"}, &person{Name: "B"}

	require.True(t, o.EnterEdit(ctx, a))
	o.Draft(a).Set("Name", "")

	require.True(t, o.EnterEdit(ctx, b))
	assert.Equal(t, rowform.Editing, o.State(a))
	assert.Equal(t, []string{"Name is required"}, o.Draft(a).Errors("Name"))
	assert.Equal(t, rowform.Editing, o.State(b))
	assert.Equal(t, 2, o.ActiveCount())
	assert.Equal(t, []string{"A:reading->editing", "B:reading->editing"}, rec.list())
	runtime.KeepAlive(a)
	runtime.KeepAlive(b)
}

func TestAllowMultiplePolicy(t *testing.T) {
	t.Parallel()
	o, err := newOrchestrator(rowform.AllowMultiple, nil)
	require.NoError(t, err)
	ctx := context.Background()
	rows := []*person{{Name: "A"}, {Name: "B"}, {Name: "C"}}
	for _, p := range rows {
		require.True(t, o.EnterEdit(ctx, p))
	}
	assert.Equal(t, 3, o.ActiveCount())
	for _, p := range rows {
		assert.Equal(t, rowform.Editing, o.State(p))
	}
}

func TestPolicySkipsRowBeingSaved(t *testing.T) {
	t.Parallel()
	for _, policy := range []rowform.Policy{rowform.CancelCurrent, rowform.SaveCurrent} {
		t.Run(policy.String(), func(t *testing.T) {
			t.Parallel()
			release := make(chan struct{})
			started := make(chan struct{})
			o, err := newOrchestrator(policy, nil, func(opts *rowform.Options[person]) {
				opts.Save = func(ctx context.Context, req rowform.SaveRequest[person]) error {
					close(started)
					<-release
					return nil
				}
			})
			require.NoError(t, err)
			ctx := context.Background()
			a, b := &person{Name: "A"}, &person{Name: "B"}

			require.True(t, o.EnterEdit(ctx, a))
			done := make(chan bool)
			go func() { done <- o.SaveEdit(ctx, a) }()
			<-started

			require.Equal(t, rowform.Saving, o.State(a))
			require.True(t, o.EnterEdit(ctx, b))
			assert.Equal(t, rowform.Saving, o.State(a))

			close(release)
			assert.True(t, <-done)
			assert.False(t, o.IsActive(a))
			assert.True(t, o.IsActive(b))
		})
	}
}

func TestHandleRowClick(t *testing.T) {
	t.Parallel()
	tests := map[string]struct {
		trigger rowform.Trigger
		opens   bool
	}{
		"row click": {trigger: rowform.RowClick, opens: true},
		"button":    {trigger: rowform.Button, opens: false},
		"custom":    {trigger: rowform.Custom, opens: false},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			o, err := newOrchestrator(rowform.Block, nil, func(opts *rowform.Options[person]) {
				opts.Trigger = tt.trigger
			})
			require.NoError(t, err)
			p := &person{Name: "A"}
			assert.Equal(t, tt.opens, o.HandleRowClick(context.Background(), p))
			assert.Equal(t, tt.opens, o.IsActive(p))
		})
	}
}

// --- Save ---

func TestSaveSuccess(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	var req rowform.SaveRequest[person]
	var frozen bool
	o, err := newOrchestrator(rowform.Block, rec, func(opts *rowform.Options[person]) {
		opts.Save = func(ctx context.Context, r rowform.SaveRequest[person]) error {
			req = r
			frozen = r.Draft.Frozen()
			r.Draft.Set("Name", "ignored while saving")
			return nil
		}
	})
	require.NoError(t, err)
	ctx := context.Background()
	p := &person{Name: "Ada", Age: 36}

	require.True(t, o.EnterEdit(ctx, p))
	id := o.Draft(p).ID()
	o.Draft(p).Set("Age", 37)

	require.True(t, o.SaveEdit(ctx, p))
	assert.False(t, o.IsActive(p))
	assert.Equal(t, rowform.Reading, o.State(p))
	assert.Equal(t, 37, p.Age)
	assert.Equal(t, "Ada", p.Name)

	assert.True(t, frozen)
	assert.Same(t, p, req.Row)
	assert.Equal(t, id, req.Session)
	assert.Equal(t, map[string]any{"Age": 37}, req.Changes)
	assert.Equal(t, map[string]any{"Name": "Ada", "Email": "", "Age": 37}, req.Values)

	assert.Equal(t, []string{
		"Ada:reading->editing",
		"Ada:editing->saving",
		"Ada:saved",
		"Ada:saving->reading",
	}, rec.list())
	require.Len(t, rec.saved, 1)
	assert.Equal(t, id, rec.saved[0].Session)
	assert.Equal(t, map[string]any{"Age": 37}, rec.saved[0].Changes)
	assert.Equal(t, 37, rec.saved[0].Values["Age"])
}

func TestSaveWithoutSaveFuncCommits(t *testing.T) {
	t.Parallel()
	o, err := newOrchestrator(rowform.Block, nil)
	require.NoError(t, err)
	ctx := context.Background()
	p := &person{Name: "Ada"}

	require.True(t, o.EnterEdit(ctx, p))
	o.Draft(p).Set("Email", "ada@example.com")
	require.True(t, o.SaveEdit(ctx, p))
	assert.Equal(t, "ada@example.com", p.Email)
	assert.False(t, o.IsActive(p))
}

func TestSaveBlockedByValidation(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	called := false
	refreshed := 0
	o, err := newOrchestrator(rowform.Block, rec, func(opts *rowform.Options[person]) {
		opts.Save = func(context.Context, rowform.SaveRequest[person]) error {
			called = true
			return nil
		}
		opts.Refresh = func(*person) { refreshed++ }
	})
	require.NoError(t, err)
	ctx := context.Background()
	p := &person{Name: "Ada"}

	require.True(t, o.EnterEdit(ctx, p))
	d := o.Draft(p)
	d.Set("Email", "not-an-email")
	d.Set("Age", 200)

	assert.False(t, o.SaveEdit(ctx, p))
	assert.False(t, called)
	assert.Equal(t, rowform.Editing, o.State(p))
	assert.Equal(t, map[string][]string{
		"Email": {"Email must be a valid email address"},
		"Age":   {"Age must be at most 150"},
	}, d.AllErrors())
	assert.Equal(t, 2, refreshed)
	assert.Equal(t, []string{"Ada:reading->editing"}, rec.list())

	d.Set("Email", "ada@example.com")
	d.Set("Age", 36)
	assert.True(t, o.SaveEdit(ctx, p))
	assert.False(t, d.HasErrors())
}

func TestSaveFailureKeepsSession(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	var logs bytes.Buffer
	o, err := newOrchestrator(rowform.Block, rec, func(opts *rowform.Options[person]) {
		opts.Save = failingSave
		opts.Logger = slog.New(slog.NewTextHandler(&logs, nil))
	})
	require.NoError(t, err)
	ctx := context.Background()
	p := &person{Name: "Ada"}

	require.True(t, o.EnterEdit(ctx, p))
	d := o.Draft(p)
	d.Set("Name", "Grace")

	assert.False(t, o.SaveEdit(ctx, p))
	assert.True(t, o.IsActive(p))
	assert.Equal(t, rowform.Editing, o.State(p))
	assert.Equal(t, "backend down", o.SaveError(p))
	assert.Equal(t, "Ada", p.Name, "a failed save does not touch the row")
	assert.False(t, d.Frozen())
	assert.Equal(t, "Grace", d.Get("Name"))
	assert.Equal(t, []string{
		"Ada:reading->editing",
		"Ada:editing->saving",
		"Ada:saving->editing",
	}, rec.list())
	assert.Contains(t, logs.String(), "save failed")
	assert.Contains(t, logs.String(), "component=rowform")

	d.Set("Name", "Grace Hopper")
	assert.Equal(t, "Grace Hopper", d.Get("Name"), "the draft accepts edits again")
}

func TestSaveErrorClearedOnRetry(t *testing.T) {
	t.Parallel()
	fail := true
	var seen string
	var o *rowform.Orchestrator[person]
	o, err := newOrchestrator(rowform.Block, nil, func(opts *rowform.Options[person]) {
		opts.Save = func(ctx context.Context, req rowform.SaveRequest[person]) error {
			seen = o.SaveError(req.Row)
			if fail {
				return errBackend
			}
			return nil
		}
	})
	require.NoError(t, err)
	ctx := context.Background()
	p := &person{Name: "Ada"}

	require.True(t, o.EnterEdit(ctx, p))
	require.False(t, o.SaveEdit(ctx, p))
	require.Equal(t, "backend down", o.SaveError(p))

	fail = false
	require.True(t, o.SaveEdit(ctx, p))
	assert.Empty(t, seen, "the previous message is cleared before saving")
	assert.Empty(t, o.SaveError(p))
}

func TestSaveRejectsWhileSaving(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	started := make(chan struct{})
	calls := 0
	o, err := newOrchestrator(rowform.Block, nil, func(opts *rowform.Options[person]) {
		opts.Save = func(ctx context.Context, req rowform.SaveRequest[person]) error {
			calls++
			close(started)
			<-release
			return nil
		}
	})
	require.NoError(t, err)
	ctx := context.Background()
	p := &person{Name: "Ada"}
	require.True(t, o.EnterEdit(ctx, p))

	done := make(chan bool)
	go func() { done <- o.SaveEdit(ctx, p) }()
	<-started

	assert.False(t, o.SaveEdit(ctx, p), "a second save is refused")
	assert.False(t, o.CancelEdit(p), "cancel is refused while saving")
	assert.True(t, o.EnterEdit(ctx, p), "the row is still open")
	o.Draft(p).Set("Name", "ignored")

	close(release)
	require.True(t, <-done)
	assert.Equal(t, 1, calls)
	assert.Equal(t, "Ada", p.Name)
}

func TestSaveAbandonedWhenSessionReplaced(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	release := make(chan struct{})
	started := make(chan struct{})
	v := rowform.NewValidator[person]()
	v.AddCustom("Age", func(ctx context.Context, value any, r *person) []string {
		close(started)
		<-release
		return nil
	})
	var saves atomic.Int32
	o, err := newOrchestrator(rowform.Block, rec, func(opts *rowform.Options[person]) {
		opts.Validator = v
		opts.Save = func(ctx context.Context, req rowform.SaveRequest[person]) error {
			saves.Add(1)
			return nil
		}
	})
	require.NoError(t, err)
	ctx := context.Background()
	p := &person{Name: "A", Age: 30}
	require.True(t, o.EnterEdit(ctx, p))
	o.Draft(p).Set("Age", 31)

	done := make(chan bool)
	go func() { done <- o.SaveEdit(ctx, p) }()
	<-started

	require.True(t, o.CancelEdit(p))
	require.True(t, o.EnterEdit(ctx, p))
	reopened := o.Draft(p)
	reopened.Set("Name", "B")
	close(release)

	assert.False(t, <-done)
	assert.Same(t, reopened, o.Draft(p))
	assert.Equal(t, rowform.Editing, o.State(p))
	assert.Equal(t, "B", reopened.Get("Name"))
	assert.False(t, reopened.HasErrors())
	assert.Empty(t, o.SaveError(p))
	assert.Zero(t, saves.Load())
	assert.Equal(t, "A", p.Name)
	assert.Equal(t, 30, p.Age)
	assert.Equal(t, []string{
		"A:reading->editing",
		"A:cancelled dirty=true",
		"A:editing->reading",
		"A:reading->editing",
	}, rec.list())
}

func TestSaveAndCancelRaceHasOneOutcome(t *testing.T) {
	t.Parallel()
	var saved, cancelled atomic.Int32
	o, err := newOrchestrator(rowform.AllowMultiple, nil, func(opts *rowform.Options[person]) {
		opts.OnSaved = func(rowform.SavedEvent[person]) { saved.Add(1) }
		opts.OnCancelled = func(rowform.CancelledEvent[person]) { cancelled.Add(1) }
	})
	require.NoError(t, err)
	ctx := context.Background()

	const rounds = 200
	for range rounds {
		p := &person{Name: "Ada"}
		require.True(t, o.EnterEdit(ctx, p))
		o.Draft(p).Set("Name", "Grace")

		var wg sync.WaitGroup
		var didSave, didCancel bool
		wg.Add(2)
		go func() {
			defer wg.Done()
			didSave = o.SaveEdit(ctx, p)
		}()
		go func() {
			defer wg.Done()
			didCancel = o.CancelEdit(p)
		}()
		wg.Wait()

		require.NotEqual(t, didSave, didCancel, "exactly one of save and cancel wins")
		assert.False(t, o.IsActive(p))
		if didSave {
			assert.Equal(t, "Grace", p.Name)
		} else {
			assert.Equal(t, "Ada", p.Name)
		}
	}
	assert.Equal(t, int32(rounds), saved.Load()+cancelled.Load())
}

func TestSaveEditInactiveRow(t *testing.T) {
	t.Parallel()
	o, err := newOrchestrator(rowform.Block, nil)
	require.NoError(t, err)
	assert.False(t, o.SaveEdit(context.Background(), &person{}))
}

// --- Cancel ---

func TestCancelEdit(t *testing.T) {
	t.Parallel()
	tests := map[string]struct {
		edit  bool
		dirty bool
	}{
		"clean": {edit: false, dirty: false},
		"dirty": {edit: true, dirty: true},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			rec := &recorder{}
			o, err := newOrchestrator(rowform.Block, rec)
			require.NoError(t, err)
			p := &person{Name: "Ada"}

			require.True(t, o.EnterEdit(context.Background(), p))
			id := o.Draft(p).ID()
			if tt.edit {
				o.Draft(p).Set("Name", "Grace")
			}

			assert.True(t, o.CancelEdit(p))
			assert.False(t, o.IsActive(p))
			assert.Equal(t, "Ada", p.Name)
			require.Len(t, rec.cancel, 1)
			assert.Equal(t, tt.dirty, rec.cancel[0].WasDirty)
			assert.Equal(t, id, rec.cancel[0].Session)
			assert.False(t, o.CancelEdit(p), "cancelling a closed row is a no-op")
		})
	}
}

func TestCancelAll(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	o, err := newOrchestrator(rowform.AllowMultiple, rec)
	require.NoError(t, err)
	ctx := context.Background()
	rows := []*person{{Name: "A"}, {Name: "B"}, {Name: "C"}}
	for _, p := range rows {
		require.True(t, o.EnterEdit(ctx, p))
	}

	assert.Equal(t, 3, o.CancelAll())
	assert.Zero(t, o.ActiveCount())
	assert.Equal(t, []string{
		"A:reading->editing",
		"B:reading->editing",
		"C:reading->editing",
		"A:cancelled dirty=false",
		"A:editing->reading",
		"B:cancelled dirty=false",
		"B:editing->reading",
		"C:cancelled dirty=false",
		"C:editing->reading",
	}, rec.list())
	runtime.KeepAlive(rows)
}

func TestReset(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	o, err := newOrchestrator(rowform.AllowMultiple, rec)
	require.NoError(t, err)
	ctx := context.Background()
	a, b := &person{Name: "A"}, &person{Name: "B"}
	o.EnterEdit(ctx, a)
	o.EnterEdit(ctx, b)

	o.Reset()
	assert.Zero(t, o.ActiveCount())
	assert.Equal(t, []string{"A:reading->editing", "B:reading->editing"}, rec.list())
}

func TestRefreshRequests(t *testing.T) {
	t.Parallel()
	var refreshed []string
	o, err := newOrchestrator(rowform.Block, nil, func(opts *rowform.Options[person]) {
		opts.Refresh = func(p *person) { refreshed = append(refreshed, p.Name) }
	})
	require.NoError(t, err)
	ctx := context.Background()
	a, b := &person{Name: "A"}, &person{Name: "B"}

	o.EnterEdit(ctx, a)
	o.EnterEdit(ctx, b)
	o.SaveEdit(ctx, a)
	o.EnterEdit(ctx, b)
	o.CancelEdit(b)
	assert.Equal(t, []string{"A", "A", "A", "B", "B"}, refreshed)
}

// --- Rendering ---

func TestCellFlags(t *testing.T) {
	t.Parallel()
	tests := map[string]struct {
		policy rowform.Policy
		a, b   string
	}{
		"block": {
			policy: rowform.Block,
			a:      "editing edit=true dim=false",
			b:      "reading edit=false dim=true",
		},
		"allow multiple": {
			policy: rowform.AllowMultiple,
			a:      "editing edit=true dim=false",
			b:      "reading edit=true dim=false",
		},
		"cancel current": {
			policy: rowform.CancelCurrent,
			a:      "editing edit=true dim=false",
			b:      "reading edit=true dim=false",
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			o, err := newOrchestrator(tt.policy, nil)
			require.NoError(t, err)
			ctx := context.Background()
			a, b := &person{Name: "A"}, &person{Name: "B"}
			require.True(t, o.EnterEdit(ctx, a))

			got, err := o.CellText(ctx, a)
			require.NoError(t, err)
			assert.Equal(t, tt.a, got)
			got, err = o.CellText(ctx, b)
			require.NoError(t, err)
			assert.Equal(t, tt.b, got)
		})
	}
}

func TestCellView(t *testing.T) {
	t.Parallel()
	o, err := newOrchestrator(rowform.Block, nil)
	require.NoError(t, err)
	ctx := context.Background()
	p := &person{Name: "Ada", Age: 36}

	c := o.Cell(ctx, p)
	assert.True(t, c.Reading())
	assert.True(t, c.ShowEditButton)
	assert.Nil(t, c.Draft)
	assert.Equal(t, "36", c.Text("Age"))
	assert.False(t, c.RowDirty())
	assert.Nil(t, c.Errors("Name"))
	assert.Nil(t, c.Validate("Name"))
	assert.False(t, c.Save())
	assert.False(t, c.Cancel())

	require.True(t, c.Edit())
	c = o.Cell(ctx, p)
	assert.True(t, c.Editing())
	assert.False(t, c.ShowEditButton)
	assert.True(t, c.Required("Name"))
	c.Set("Name", "")
	assert.True(t, c.Dirty("Name"))
	assert.True(t, c.RowDirty())
	assert.Equal(t, []string{"Name is required"}, c.Validate("Name"))
	assert.Equal(t, []string{"Name is required"}, c.Errors("Name"))
	assert.False(t, c.Save(), "save is blocked by validation")

	c.Set("Name", "Grace")
	assert.True(t, c.Save())
	assert.Equal(t, "Grace", p.Name)

	require.True(t, c.Edit())
	assert.True(t, o.Cell(ctx, p).Cancel())
	assert.False(t, o.IsActive(p))
}

func TestGoTemplate(t *testing.T) {
	t.Parallel()
	tmpl, err := rowform.GoTemplate[person](`{{if .Editing}}[{{.Text "Name"}}{{if .Dirty "Name"}}*{{end}}]{{else if .ShowEditButton}}{{.Text "Name"}} (edit){{else}}{{.Text "Name"}}{{end}}`)
	require.NoError(t, err)
	o, err := newOrchestrator(rowform.Block, nil, func(opts *rowform.Options[person]) {
		opts.Template = tmpl
	})
	require.NoError(t, err)
	ctx := context.Background()
	a, b := &person{Name: "Ada"}, &person{Name: "Bob"}

	render := func(p *person) string {
		s, err := o.CellText(ctx, p)
		require.NoError(t, err)
		return s
	}
	assert.Equal(t, "Ada (edit)", render(a))

	o.EnterEdit(ctx, a)
	assert.Equal(t, "[Ada]", render(a))
	assert.Equal(t, "Bob", render(b))

	o.Draft(a).Set("Name", "Grace")
	assert.Equal(t, "[Grace*]", render(a))
}

func TestGoTemplateInvalid(t *testing.T) {
	t.Parallel()
	_, err := rowform.GoTemplate[person]("{{if}}")
	require.ErrorIs(t, err, rowform.ErrInvalidTemplate)
}

func TestGoTemplateJoin(t *testing.T) {
	t.Parallel()
	tmpl, err := rowform.GoTemplate[person](`{{join (.Errors "Name") "; "}}`)
	require.NoError(t, err)
	o, err := newOrchestrator(rowform.Block, nil, func(opts *rowform.Options[person]) {
		opts.Template = tmpl
	})
	require.NoError(t, err)
	ctx := context.Background()
	p := &person{Name: "Ada"}
	o.EnterEdit(ctx, p)
	o.Draft(p).Set("Name", "a very long name")
	o.SaveEdit(ctx, p)

	got, err := o.CellText(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, "Name must be at most 10 characters", got)
}

// --- Lifetime ---

func TestOrchestratorDoesNotKeepRowsAlive(t *testing.T) {
	t.Parallel()
	o, err := newOrchestrator(rowform.AllowMultiple, nil)
	require.NoError(t, err)
	ctx := context.Background()

	func() {
		for range 200 {
			p := &person{Name: "temp"}
			o.EnterEdit(ctx, p)
			o.Draft(p).Set("Age", 1)
		}
	}()

	assert.Eventually(t, func() bool {
		runtime.GC()
		return o.ActiveCount() == 0
	}, 5*time.Second, 10*time.Millisecond)
}
