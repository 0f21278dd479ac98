// Package dispatch maps classifier labels to responder capabilities and
// invokes them.
package dispatch

import (
	"fmt"
	"strings"

	"github.com/catalogue-assistant/server/internal/agent/model"
	errx "github.com/catalogue-assistant/server/internal/core/error"
)

// Entry binds one label to a responder. A nil Responder is the explicit
// "no responder" fallback: the classification is returned unchanged.
type Entry struct {
	Label     model.Label
	Responder *model.ResponderDescriptor
}

// Registry is the immutable label to responder table.
type Registry struct {
	labels     model.LabelSet
	responders map[model.Label]model.ResponderDescriptor
}

// NewRegistry builds the table. Every label must have exactly one entry and
// every entry must name a label of the set.
func NewRegistry(labels model.LabelSet, entries []Entry) (*Registry, error) {
	r := &Registry{
		labels:     append(model.LabelSet(nil), labels...),
		responders: map[model.Label]model.ResponderDescriptor{},
	}

	seen := map[model.Label]bool{}
	for _, e := range entries {
		if !labels.Contains(e.Label) {
			return nil, fmt.Errorf("%w: %q", errx.ErrUnknownLabel, e.Label)
		}
		if seen[e.Label] {
			return nil, fmt.Errorf("duplicate registry entry for label %q", e.Label)
		}
		seen[e.Label] = true
		if e.Responder != nil {
			r.responders[e.Label] = *e.Responder
		}
	}

	var missing []string
	for _, l := range labels {
		if !seen[l] {
			missing = append(missing, string(l))
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", errx.ErrIncompleteRegistry, strings.Join(missing, ", "))
	}
	return r, nil
}

// Labels returns the label set the registry covers.
func (r *Registry) Labels() model.LabelSet {
	return append(model.LabelSet(nil), r.labels...)
}

// Has reports whether label is routed to a responder.
func (r *Registry) Has(label model.Label) bool {
	_, ok := r.responders[label]
	return ok
}

// Lookup returns the responder for label.
func (r *Registry) Lookup(label model.Label) (model.ResponderDescriptor, bool) {
	d, ok := r.responders[label]
	return d, ok
}
