package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bjaus/rowform"
	"github.com/bjaus/rowform/tui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/docopt/docopt-go"
	"github.com/prometheus/client_golang/prometheus"
)

const version = "0.1.0"

const usage = `Row editing demo.

Runs an editable table of sample people in the terminal, or prints the table
once with the first row open.

Usage:
    rowform-demo [--policy=<policy>] [--trigger=<trigger>] [--config=<file>]
        [--delay=<duration>] [--fail-every=<n>] [--log=<file>] [--metrics]
    rowform-demo render [--format=<format>] [--policy=<policy>] [--config=<file>]
    rowform-demo -h | --help
    rowform-demo --version

Options:
    -h --help               Show this screen.
    --version               Show version.
    --policy=<policy>       block, cancel-current, save-current, allow-multiple [default: block].
    --trigger=<trigger>     button, row-click, custom [default: button].
    --config=<file>         YAML config with policy, trigger and field rules.
    --delay=<duration>      Simulated save latency [default: 300ms].
    --fail-every=<n>        Fail every nth save, 0 never fails [default: 0].
    --log=<file>            Write JSON logs to this file.
    --metrics               Print collected metrics on exit.
    --format=<format>       table, markdown, html, csv, tsv, json, jsonl, yaml [default: table].
`

// Person is the sample row type.
type Person struct {
	Name   string    `rowform:"required,maxlen=30"`
	Email  string    `rowform:"required,email"`
	Age    int       `rowform:"min=0,max=150"`
	Team   string    `rowform:"oneof=core|infra|web"`
	Joined time.Time `rowform:"required"`
}

var (
	nameField = rowform.NewField("Name",
		func(p *Person) string { return p.Name },
		func(p *Person, v string) { p.Name = v })
	emailField = rowform.NewField("Email",
		func(p *Person) string { return p.Email },
		func(p *Person, v string) { p.Email = v })
	ageField = rowform.NewField("Age",
		func(p *Person) int { return p.Age },
		func(p *Person, v int) { p.Age = v })
	teamField = rowform.NewField("Team",
		func(p *Person) string { return p.Team },
		func(p *Person, v string) { p.Team = v })
	joinedField = rowform.NewField("Joined",
		func(p *Person) time.Time { return p.Joined },
		func(p *Person, v time.Time) { p.Joined = v })
)

const cellTemplate = `{{if .Saving}}saving{{else if .Editing}}{{if .SaveError}}retry{{else if .RowDirty}}edited{{else}}editing{{end}}{{else if .ShowEditButton}}[edit]{{else if .Dimmed}}locked{{end}}`

func samplePeople() []*Person {
	day := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }
	return []*Person{
		{Name: "Ada Lovelace", Email: "ada@example.com", Age: 36, Team: "core", Joined: day(2019, 3, 4)},
		{Name: "Grace Hopper", Email: "grace@example.com", Age: 85, Team: "infra", Joined: day(2020, 7, 1)},
		{Name: "Ken Thompson", Email: "ken@example.com", Age: 81, Team: "core", Joined: day(2018, 1, 15)},
		{Name: "Barbara Liskov", Email: "barbara@example.com", Age: 84, Team: "web", Joined: day(2021, 11, 9)},
	}
}

func main() {
	opts, err := docopt.ParseArgs(usage, os.Args[1:], version)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if err := run(opts); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(opts docopt.Opts) error {
	ctx := context.Background()
	people := samplePeople()

	logger, closeLog, err := openLogger(opts)
	if err != nil {
		return err
	}
	defer closeLog()

	options, err := buildOptions(opts, people, logger)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	metrics, err := rowform.NewPrometheusMetrics(reg, "demo")
	if err != nil {
		return err
	}
	options.Metrics = metrics

	o, err := rowform.New(options)
	if err != nil {
		return err
	}

	columns := []rowform.Column[Person]{
		rowform.FieldColumn[Person]("Name", nameField),
		rowform.FieldColumn[Person]("Email", emailField),
		{Header: "Age", Field: ageField, Align: rowform.AlignRight},
		rowform.FieldColumn[Person]("Team", teamField),
		rowform.FieldColumn[Person]("Joined", joinedField),
		rowform.EditColumn[Person](""),
	}

	if render, _ := opts.Bool("render"); render {
		return renderOnce(ctx, opts, o, columns, people)
	}

	model := tui.New(ctx, o, columns, people)
	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		return err
	}

	if show, _ := opts.Bool("--metrics"); show {
		return printMetrics(reg)
	}
	return nil
}

func openLogger(opts docopt.Opts) (*slog.Logger, func(), error) {
	path, _ := opts.String("--log")
	if path == "" {
		return slog.New(slog.DiscardHandler), func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, err
	}
	logger := slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return logger, func() { _ = f.Close() }, nil
}

func buildOptions(opts docopt.Opts, people []*Person, logger *slog.Logger) (rowform.Options[Person], error) {
	tmpl, err := rowform.GoTemplate[Person](cellTemplate)
	if err != nil {
		return rowform.Options[Person]{}, err
	}
	options := rowform.Options[Person]{
		Fields:   []rowform.Accessor[Person]{nameField, emailField, ageField, teamField, joinedField},
		Template: tmpl,
		Logger:   logger,
	}

	if s, _ := opts.String("--policy"); s != "" {
		if options.Policy, err = rowform.ParsePolicy(s); err != nil {
			return options, err
		}
	}
	if s, _ := opts.String("--trigger"); s != "" {
		if options.Trigger, err = rowform.ParseTrigger(s); err != nil {
			return options, err
		}
	}
	if path, _ := opts.String("--config"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return options, err
		}
		cfg, err := rowform.LoadConfig(f)
		_ = f.Close()
		if err != nil {
			return options, err
		}
		if err := rowform.Apply(cfg, &options); err != nil {
			return options, err
		}
	}

	if options.Validator == nil {
		options.Validator = rowform.NewValidator[Person]()
	}
	options.Validator.AddCustom(emailField.Key, uniqueEmail(people))

	delay := 300 * time.Millisecond
	if s, _ := opts.String("--delay"); s != "" {
		if delay, err = time.ParseDuration(s); err != nil {
			return options, fmt.Errorf("--delay: %w", err)
		}
	}
	failEvery := 0
	if s, _ := opts.String("--fail-every"); s != "" {
		if _, err := fmt.Sscan(s, &failEvery); err != nil {
			return options, fmt.Errorf("--fail-every: %w", err)
		}
	}
	options.Save = simulatedSave(delay, failEvery)
	return options, nil
}

// uniqueEmail rejects an address already used by another row.
func uniqueEmail(people []*Person) rowform.CustomFunc[Person] {
	return func(ctx context.Context, value any, row *Person) []string {
		email, _ := value.(string)
		for _, p := range people {
			if p != row && strings.EqualFold(p.Email, email) {
				return []string{"Email is already used by " + p.Name}
			}
		}
		return nil
	}
}

var errStorage = errors.New("storage unavailable, try again")

func simulatedSave(delay time.Duration, failEvery int) rowform.SaveFunc[Person] {
	var calls atomic.Int64
	return func(ctx context.Context, req rowform.SaveRequest[Person]) error {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if n := calls.Add(1); failEvery > 0 && n%int64(failEvery) == 0 {
			return errStorage
		}
		return nil
	}
}

func renderOnce(ctx context.Context, opts docopt.Opts, o *rowform.Orchestrator[Person], columns []rowform.Column[Person], people []*Person) error {
	name, _ := opts.String("--format")
	format, err := rowform.ParseFormat(name)
	if err != nil {
		return err
	}
	o.EnterEdit(ctx, people[0])
	grid := rowform.Grid[Person]{
		Orchestrator: o,
		Columns:      columns,
		Title:        "People",
		Marker:       true,
		Caption:      fmt.Sprintf("%d rows, %d open", len(people), o.ActiveCount()),
	}
	return grid.WriteSeq(ctx, os.Stdout, format, slices.Values(people))
}

func printMetrics(reg *prometheus.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			var labels []string
			for _, lp := range m.GetLabel() {
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}
			var value float64
			switch {
			case m.GetCounter() != nil:
				value = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				value = m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				value = float64(m.GetHistogram().GetSampleCount())
			}
			fmt.Printf("%s{%s} %g\n", mf.GetName(), strings.Join(labels, ","), value)
		}
	}
	return nil
}
