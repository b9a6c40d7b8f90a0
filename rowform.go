package rowform

import (
	"errors"
	"fmt"
)

// Sentinel errors for programmatic error handling.
var (
	ErrMissingTemplate   = errors.New("missing template")
	ErrInvalidPolicy     = errors.New("invalid policy")
	ErrInvalidTrigger    = errors.New("invalid trigger")
	ErrDuplicateField    = errors.New("duplicate field")
	ErrInvalidRule       = errors.New("invalid rule")
	ErrInvalidTemplate   = errors.New("invalid template")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrInvalidConfig     = errors.New("invalid config")
	ErrCoerce            = errors.New("cannot coerce value")
	ErrNoOrchestrator    = errors.New("edit column without orchestrator")
)

// State is the edit lifecycle state of a single row.
type State int

const (
	Reading State = iota // not editing, no draft
	Editing              // draft exists and accepts writes
	Saving               // draft is frozen while the save function runs
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Reading:
		return "reading"
	case Editing:
		return "editing"
	case Saving:
		return "saving"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Policy governs what happens when a row is opened while another is open.
type Policy string

const (
	Block         Policy = "block"
	CancelCurrent Policy = "cancel-current"
	SaveCurrent   Policy = "save-current"
	AllowMultiple Policy = "allow-multiple"
)

var policies = []Policy{Block, CancelCurrent, SaveCurrent, AllowMultiple}

// String returns the policy name.
func (p Policy) String() string { return string(p) }

// Policies returns all supported policies.
func Policies() []Policy {
	out := make([]Policy, len(policies))
	copy(out, policies)
	return out
}

// ParsePolicy parses a policy name.
func ParsePolicy(s string) (Policy, error) {
	for _, p := range policies {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPolicy, s)
}

// Trigger selects how a row enters edit mode.
type Trigger string

const (
	Button   Trigger = "button"    // an edit control rendered in the cell
	RowClick Trigger = "row-click" // clicking the row (see [Orchestrator.HandleRowClick])
	Custom   Trigger = "custom"    // the application calls [Orchestrator.EnterEdit] itself
)

var triggers = []Trigger{Button, RowClick, Custom}

// String returns the trigger name.
func (t Trigger) String() string { return string(t) }

// Triggers returns all supported trigger modes.
func Triggers() []Trigger {
	out := make([]Trigger, len(triggers))
	copy(out, triggers)
	return out
}

// ParseTrigger parses a trigger name.
func ParseTrigger(s string) (Trigger, error) {
	for _, t := range triggers {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidTrigger, s)
}
