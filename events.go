package rowform

import (
	"context"

	"github.com/oklog/ulid/v2"
)

// BeforeEditEvent is delivered before a row enters edit mode. Setting Cancel
// aborts the request with no state change.
type BeforeEditEvent[R any] struct {
	Row    *R
	Cancel bool
}

// StateChangedEvent is delivered on every lifecycle transition.
type StateChangedEvent[R any] struct {
	Row     *R
	Session ulid.ULID
	From    State
	To      State
}

// SavedEvent carries the values committed by a successful save.
type SavedEvent[R any] struct {
	Row     *R
	Session ulid.ULID
	Values  map[string]any
	Changes map[string]any
}

// CancelledEvent is delivered when an edit session is discarded.
type CancelledEvent[R any] struct {
	Row      *R
	Session  ulid.ULID
	WasDirty bool
}

// SaveRequest is passed to the application's save function. The draft is
// frozen for the duration of the call.
type SaveRequest[R any] struct {
	Row     *R
	Session ulid.ULID
	Values  map[string]any
	Changes map[string]any
	Draft   *Draft[R]
}

// SaveFunc persists a row. A non-nil error reports a recoverable failure; its
// message is shown on the row and the row stays open for editing.
type SaveFunc[R any] func(ctx context.Context, req SaveRequest[R]) error
