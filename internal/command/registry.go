package command

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Handler executes one intent. A returned error becomes an ErrorOutcome.
type Handler func(ctx context.Context, p Params) (Outcome, error)

// Entry is one registered command.
type Entry struct {
	Intent    Intent
	Label     string
	Dangerous bool
	// Schema is a JSON schema for Params. Empty means any object.
	Schema  json.RawMessage
	Handler Handler

	schema *jsonschema.Schema
}

// Registry maps intents to entries. It is filled at startup and read-only
// afterwards.
type Registry struct {
	entries map[Intent]*Entry
	order   []Intent
}

func NewRegistry() *Registry {
	return &Registry{entries: map[Intent]*Entry{}}
}

// Register adds e, compiling its schema. Registering an intent twice is an error.
func (r *Registry) Register(e Entry) error {
	if e.Intent == "" || e.Handler == nil {
		return fmt.Errorf("register %q: intent and handler are required", e.Intent)
	}
	if _, dup := r.entries[e.Intent]; dup {
		return fmt.Errorf("register %q: already registered", e.Intent)
	}
	if len(e.Schema) == 0 {
		e.Schema = json.RawMessage(`{"type":"object"}`)
	}
	s, err := compileSchema(string(e.Intent), e.Schema)
	if err != nil {
		return err
	}
	e.schema = s
	if e.Label == "" {
		e.Label = string(e.Intent)
	}
	r.entries[e.Intent] = &e
	r.order = append(r.order, e.Intent)
	return nil
}

func (r *Registry) mustRegister(e Entry) {
	if err := r.Register(e); err != nil {
		panic(err)
	}
}

// Lookup returns the entry for intent.
func (r *Registry) Lookup(intent Intent) (*Entry, bool) {
	e, ok := r.entries[intent]
	return e, ok
}

func (r *Registry) IsDangerous(intent Intent) bool {
	e, ok := r.entries[intent]
	return ok && e.Dangerous
}

// Label returns the human label for intent, or the intent name itself.
func (r *Registry) Label(intent Intent) string {
	if e, ok := r.entries[intent]; ok {
		return e.Label
	}
	return string(intent)
}

// Entries returns the entries in registration order.
func (r *Registry) Entries() []*Entry {
	out := make([]*Entry, 0, len(r.order))
	for _, i := range r.order {
		out = append(out, r.entries[i])
	}
	return out
}

// Validate checks p (already normalized) against the entry schema.
func (e *Entry) Validate(p Params) error {
	if e.schema == nil {
		return nil
	}
	if err := e.schema.Validate(map[string]any(p)); err != nil {
		return fmt.Errorf("params validation failed for %q: %w", e.Intent, err)
	}
	return nil
}

func compileSchema(name string, raw json.RawMessage) (*jsonschema.Schema, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("invalid JSON schema for %q: %w", name, err)
	}
	c := jsonschema.NewCompiler()
	url := name + ".json"
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("invalid JSON schema for %q: %w", name, err)
	}
	s, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("failed to compile JSON schema for %q: %w", name, err)
	}
	return s, nil
}
