// Package rowform adds inline row editing to tabular displays.
//
// An [Orchestrator] decides which rows of a table may be opened for editing,
// keeps per-field draft values apart from the row objects, validates them,
// and commits or discards them. The host table asks the orchestrator to
// render a cell for each row; the application supplies the [Template] that
// turns a [Cell] into output.
//
// # Lifecycle
//
// Every row is Reading, Editing, or Saving:
//
//	Reading --EnterEdit--> Editing --SaveEdit--> Saving --ok--> Reading
//	                          ^                     |
//	                          +------ failure ------+
//	Editing --CancelEdit--> Reading
//
// Validation failures keep the row Editing with errors on its [Draft]. A save
// function returning an error keeps the row Editing and exposes the message
// through [Orchestrator.SaveError]. Neither is returned as an error; hosts
// read state and events instead.
//
// # Policies
//
// The [Policy] fixed at construction decides what happens when a row is
// opened while another is open:
//
//   - [Block]: the request is refused; [Orchestrator.CanEnterEdit] reports
//     false for every other row so the host can disable its edit control
//   - [CancelCurrent]: the open row is cancelled first
//   - [SaveCurrent]: the open row is saved first; if that fails it stays open
//     and the new row opens anyway
//   - [AllowMultiple]: any number of rows may be open
//
// # Fields and validation
//
// Fields are declared once per row type with [NewField]. Declarative rules
// come from the rowform struct tag or from a YAML [Config]:
//
//	type Person struct {
//		Name  string `rowform:"required,maxlen=40"`
//		Email string `rowform:"email"`
//		Age   int    `rowform:"min=0,max=150"`
//	}
//
// Custom checks are added with [Validator.AddCustom] and run after the
// declarative rules.
//
// # Row lifetime
//
// The [Registry] refers to rows weakly. Rows dropped by the application are
// collected normally and their sessions disappear with them.
//
// # Hosts
//
// [Grid] renders rows as a text table, Markdown, or HTML. It also exports CSV
// and TSV, and JSON, JSONL, or YAML [Record] values that carry each row's
// edit state. [Grid.WriteSeq] streams rows from an iterator. The tui
// subpackage hosts an orchestrator in a Bubble Tea program.
//
// # Errors
//
// Setup mistakes are reported with sentinel errors:
//
//   - [ErrMissingTemplate]: Options.Template is nil
//   - [ErrInvalidPolicy], [ErrInvalidTrigger]: unknown enum values
//   - [ErrDuplicateField]: two fields share a name
//   - [ErrInvalidRule]: a rule string does not parse
//   - [ErrInvalidTemplate]: invalid go-template syntax
//   - [ErrInvalidConfig]: a YAML config does not decode or validate
//   - [ErrUnsupportedFormat]: unknown grid format
//   - [ErrNoOrchestrator]: a grid has an edit column but no orchestrator
//   - [ErrCoerce]: input text does not convert to the field's type
package rowform
