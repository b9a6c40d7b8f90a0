package rowform

import (
	"errors"
	"fmt"
	"io"
	"slices"

	"gopkg.in/yaml.v3"
)

// Config is the declarative part of an orchestrator's setup, usually read
// from YAML:
//
//	policy: save-current
//	trigger: row-click
//	fields:
//	  Name: required,maxlen=40
//	  Email: email
type Config struct {
	Policy  Policy            `yaml:"policy,omitempty"`
	Trigger Trigger           `yaml:"trigger,omitempty"`
	Fields  map[string]string `yaml:"fields,omitempty"`
}

// LoadConfig decodes and checks a YAML config. Unknown keys are rejected.
func LoadConfig(r io.Reader) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the policy, trigger, and every rule string.
func (c Config) Validate() error {
	if c.Policy != "" {
		if _, err := ParsePolicy(string(c.Policy)); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}
	if c.Trigger != "" {
		if _, err := ParseTrigger(string(c.Trigger)); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}
	for field, rules := range c.Fields {
		if _, err := ParseRules(rules); err != nil {
			return fmt.Errorf("%w: field %q: %w", ErrInvalidConfig, field, err)
		}
	}
	return nil
}

// Write encodes the config as YAML.
func (c Config) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return err
	}
	return enc.Close()
}

// Apply copies the config into opts. Field rules are registered on
// opts.Validator, which is created when nil; they take precedence over struct
// tags because registration of a field happens only once.
func Apply[R any](c Config, opts *Options[R]) error {
	if c.Policy != "" {
		opts.Policy = c.Policy
	}
	if c.Trigger != "" {
		opts.Trigger = c.Trigger
	}
	if len(c.Fields) == 0 {
		return nil
	}
	if opts.Validator == nil {
		opts.Validator = NewValidator[R]()
	}
	names := make([]string, 0, len(c.Fields))
	for field := range c.Fields {
		names = append(names, field)
	}
	slices.Sort(names)
	for _, field := range names {
		if !slices.ContainsFunc(opts.Fields, func(a Accessor[R]) bool { return a.Name() == field }) {
			return fmt.Errorf("%w: unknown field %q", ErrInvalidConfig, field)
		}
		if err := opts.Validator.RegisterField(field, c.Fields[field]); err != nil {
			return fmt.Errorf("%w: field %q: %w", ErrInvalidConfig, field, err)
		}
	}
	return nil
}
