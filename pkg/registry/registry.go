// Package registry loads, validates, and holds workflow templates. A
// registered template is immutable and addressed by (id, version); an
// application's template reference never changes after it starts.
package registry

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/xeipuuv/gojsonschema"

	"github.com/enrollhq/admitflow/pkg/graph"
	"github.com/enrollhq/admitflow/pkg/models"
)

// Entry pairs a validated template with its built transition graph.
type Entry struct {
	Template *models.WorkflowTemplate
	Graph    *graph.Graph
}

// Registry is a concurrency-safe set of validated template versions.
type Registry struct {
	mu       sync.RWMutex
	entries  map[string]*Entry
	validate *validator.Validate
}

func NewRegistry() *Registry {
	return &Registry{
		entries:  make(map[string]*Entry),
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// LoadJSON validates a raw template document against the JSON schema,
// unmarshals it, and registers it. Documents failing any validation layer
// are refused with graph.ErrMalformedTemplate in the chain.
func (r *Registry) LoadJSON(document []byte) (*Entry, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(templateSchema),
		gojsonschema.NewBytesLoader(document),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: schema validation failed: %w", graph.ErrMalformedTemplate, err)
	}

	if !result.Valid() {
		return nil, fmt.Errorf("%w: %s", graph.ErrMalformedTemplate, result.Errors()[0].String())
	}

	var template models.WorkflowTemplate
	if err := json.Unmarshal(document, &template); err != nil {
		return nil, fmt.Errorf("%w: %w", graph.ErrMalformedTemplate, err)
	}

	return r.Register(&template)
}

// Register validates the template structurally and semantically, builds its
// transition graph, and stores the entry. Re-registering an existing
// (id, version) is refused: published versions are immutable.
func (r *Registry) Register(template *models.WorkflowTemplate) (*Entry, error) {
	if err := r.validate.Struct(template); err != nil {
		return nil, fmt.Errorf("%w: %w", graph.ErrMalformedTemplate, err)
	}

	for _, transition := range template.Transitions {
		if err := validateCondition(transition.Condition); err != nil {
			return nil, fmt.Errorf("%w: transition %q: %w", graph.ErrMalformedTemplate, transition.Name, err)
		}
	}

	g, err := graph.Build(template)
	if err != nil {
		return nil, err
	}

	key := entryKey(template.ID, template.Version)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[key]; exists {
		return nil, fmt.Errorf("%w: template %s version %d is already registered",
			graph.ErrMalformedTemplate, template.ID, template.Version)
	}

	entry := &Entry{Template: template, Graph: g}
	r.entries[key] = entry

	return entry, nil
}

// Get returns the entry for a template version, or nil when unknown.
func (r *Registry) Get(templateID string, version int) *Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.entries[entryKey(templateID, version)]
}

// Entries returns all registered entries.
func (r *Registry) Entries() []*Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]*Entry, 0, len(r.entries))
	for _, entry := range r.entries {
		entries = append(entries, entry)
	}

	return entries
}

func entryKey(templateID string, version int) string {
	return fmt.Sprintf("%s@%d", templateID, version)
}

// validateCondition walks a condition tree checking that every group has a
// valid combinator and every leaf a known operator and a field path.
func validateCondition(tree *models.ConditionTree) error {
	if tree == nil {
		return nil
	}

	if tree.IsGroup() {
		if !tree.Combinator.Valid() {
			return fmt.Errorf("unknown combinator %q", tree.Combinator)
		}

		for _, child := range tree.Children {
			if err := validateCondition(child); err != nil {
				return err
			}
		}

		return nil
	}

	if tree.Field == "" {
		return fmt.Errorf("condition leaf is missing a field path")
	}

	if !tree.Operator.Valid() {
		return fmt.Errorf("unknown operator %q", tree.Operator)
	}

	return nil
}
