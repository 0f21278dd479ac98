// Package workflow loads workflow definitions: the classifier, its closed
// label set, the label to responder table and the guardrail checks.
package workflow

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/catalogue-assistant/server/internal/agent/dispatch"
	"github.com/catalogue-assistant/server/internal/agent/guardrails"
	"github.com/catalogue-assistant/server/internal/agent/model"
)

//go:embed definitions/*.yaml
var embedded embed.FS

// LabelEntry routes one label either to a responder or to the fallback.
type LabelEntry struct {
	Label     string `koanf:"label"`
	Responder string `koanf:"responder"`
	Fallback  bool   `koanf:"fallback"`
}

// Definition is one configuration of the workflow engine.
type Definition struct {
	Name        string                      `koanf:"name"`
	WorkflowID  string                      `koanf:"workflow_id"`
	TraceSource string                      `koanf:"trace_source"`
	Guardrails  []guardrails.CheckConfig    `koanf:"guardrails"`
	Classifier  model.ResponderDescriptor   `koanf:"classifier"`
	Labels      []LabelEntry                `koanf:"labels"`
	Responders  []model.ResponderDescriptor `koanf:"responders"`
}

// Names lists the embedded definitions.
func Names() []string {
	entries, err := embedded.ReadDir("definitions")
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	return out
}

// Load reads the definition at path when set, otherwise the embedded
// definition called name.
func Load(name, path string) (*Definition, error) {
	var (
		content []byte
		err     error
	)
	if path != "" {
		content, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading workflow file: %w", err)
		}
	} else {
		content, err = embedded.ReadFile("definitions/" + strings.ToLower(name) + ".yaml")
		if err != nil {
			return nil, fmt.Errorf("unknown workflow %q (available: %s)", name, strings.Join(Names(), ", "))
		}
	}
	return Parse(content)
}

// Parse decodes and validates a YAML definition.
func Parse(content []byte) (*Definition, error) {
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("parsing workflow definition: %w", err)
	}

	var def Definition
	if err := k.Unmarshal("", &def); err != nil {
		return nil, fmt.Errorf("unmarshaling workflow definition: %w", err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// Validate checks the definition is internally consistent.
func (d *Definition) Validate() error {
	var errs []error
	if d.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if d.WorkflowID == "" {
		errs = append(errs, errors.New("workflow_id is required"))
	}
	if d.Classifier.Name == "" {
		errs = append(errs, errors.New("classifier.name is required"))
	}
	if len(d.Labels) == 0 {
		errs = append(errs, errors.New("at least one label is required"))
	}

	responders := map[string]bool{}
	for _, r := range d.Responders {
		if r.Name == "" {
			errs = append(errs, errors.New("responder without name"))
			continue
		}
		if responders[r.Name] {
			errs = append(errs, fmt.Errorf("duplicate responder %q", r.Name))
		}
		responders[r.Name] = true
	}

	for _, l := range d.Labels {
		switch {
		case l.Label == "":
			errs = append(errs, errors.New("label entry without label"))
		case l.Fallback && l.Responder != "":
			errs = append(errs, fmt.Errorf("label %q has both a responder and the fallback", l.Label))
		case !l.Fallback && l.Responder == "":
			errs = append(errs, fmt.Errorf("label %q needs a responder or fallback: true", l.Label))
		case l.Responder != "" && !responders[l.Responder]:
			errs = append(errs, fmt.Errorf("label %q routes to unknown responder %q", l.Label, l.Responder))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid workflow definition %q: %w", d.Name, errors.Join(errs...))
	}
	return nil
}

// ValidateTools reports responder tool bindings that known does not accept.
func (d *Definition) ValidateTools(known func(name string) bool) error {
	var errs []error
	for _, r := range d.Responders {
		for _, t := range r.Tools {
			if !known(t) {
				errs = append(errs, fmt.Errorf("responder %q binds unknown tool %q", r.Name, t))
			}
		}
	}
	return errors.Join(errs...)
}

// LabelSet returns the classifier enumeration in declaration order.
func (d *Definition) LabelSet() model.LabelSet {
	out := make(model.LabelSet, 0, len(d.Labels))
	for _, l := range d.Labels {
		out = append(out, model.Label(l.Label))
	}
	return out
}

// RegistryEntries returns one dispatch entry per label.
func (d *Definition) RegistryEntries() []dispatch.Entry {
	byName := map[string]model.ResponderDescriptor{}
	for _, r := range d.Responders {
		byName[r.Name] = r
	}
	out := make([]dispatch.Entry, 0, len(d.Labels))
	for _, l := range d.Labels {
		e := dispatch.Entry{Label: model.Label(l.Label)}
		if r, ok := byName[l.Responder]; ok && !l.Fallback {
			r := r
			e.Responder = &r
		}
		out = append(out, e)
	}
	return out
}

// GuardrailConfig returns the configured checks.
func (d *Definition) GuardrailConfig() guardrails.Config {
	return guardrails.Config{Guardrails: d.Guardrails}
}

// Registry builds the dispatch table for this definition.
func (d *Definition) Registry() (*dispatch.Registry, error) {
	return dispatch.NewRegistry(d.LabelSet(), d.RegistryEntries())
}
