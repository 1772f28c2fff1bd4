// Package graph builds the in-memory transition graph for a workflow
// template and validates it on load. The graph is a general directed graph:
// cycles are legal (e.g. Additional Information -> Under Review and back);
// runaway loops are bounded by the scheduler's one-hop-per-tick rule, not by
// forbidding cycles.
package graph

import (
	"errors"
	"fmt"

	"github.com/enrollhq/admitflow/pkg/models"
)

// ErrMalformedTemplate is the root cause of every validation failure. A
// template failing validation must never be activated.
var ErrMalformedTemplate = errors.New("malformed workflow template")

// Graph is the immutable transition graph of one template version. Safe for
// concurrent use by any number of workers once built.
type Graph struct {
	template  *models.WorkflowTemplate
	stages    map[string]*models.Stage
	outgoing  map[string][]*models.Transition
	automatic map[string][]*models.Transition
}

// Build constructs and validates the graph. It fails, wrapping
// ErrMalformedTemplate, when a transition references an undeclared stage,
// when stage or transition ids repeat, or when a stage is unreachable from
// the template's start stage.
func Build(template *models.WorkflowTemplate) (*Graph, error) {
	g := &Graph{
		template:  template,
		stages:    make(map[string]*models.Stage, len(template.Stages)),
		outgoing:  make(map[string][]*models.Transition),
		automatic: make(map[string][]*models.Transition),
	}

	for _, stage := range template.Stages {
		if _, exists := g.stages[stage.ID]; exists {
			return nil, fmt.Errorf("%w: duplicate stage id %q", ErrMalformedTemplate, stage.ID)
		}

		g.stages[stage.ID] = stage
	}

	if _, ok := g.stages[template.StartStageID]; !ok {
		return nil, fmt.Errorf("%w: start stage %q is not declared", ErrMalformedTemplate, template.StartStageID)
	}

	seenTransitions := make(map[string]struct{}, len(template.Transitions))

	// Declaration order is preserved per source stage: it is the tie-break
	// when several automatic transitions are simultaneously eligible.
	for _, transition := range template.Transitions {
		if _, exists := seenTransitions[transition.ID]; exists {
			return nil, fmt.Errorf("%w: duplicate transition id %q", ErrMalformedTemplate, transition.ID)
		}

		seenTransitions[transition.ID] = struct{}{}

		if _, ok := g.stages[transition.SourceStageID]; !ok {
			return nil, fmt.Errorf("%w: transition %q references undeclared source stage %q",
				ErrMalformedTemplate, transition.Name, transition.SourceStageID)
		}

		if _, ok := g.stages[transition.TargetStageID]; !ok {
			return nil, fmt.Errorf("%w: transition %q references undeclared target stage %q",
				ErrMalformedTemplate, transition.Name, transition.TargetStageID)
		}

		g.outgoing[transition.SourceStageID] = append(g.outgoing[transition.SourceStageID], transition)

		if transition.IsAutomatic {
			g.automatic[transition.SourceStageID] = append(g.automatic[transition.SourceStageID], transition)
		}
	}

	if err := g.checkReachability(); err != nil {
		return nil, err
	}

	return g, nil
}

// checkReachability walks the graph breadth-first from the start stage and
// fails if any declared stage is never visited.
func (g *Graph) checkReachability() error {
	visited := make(map[string]struct{}, len(g.stages))
	queue := []string{g.template.StartStageID}
	visited[g.template.StartStageID] = struct{}{}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, transition := range g.outgoing[current] {
			if _, seen := visited[transition.TargetStageID]; seen {
				continue
			}

			visited[transition.TargetStageID] = struct{}{}
			queue = append(queue, transition.TargetStageID)
		}
	}

	for _, stage := range g.template.Stages {
		if _, seen := visited[stage.ID]; !seen {
			return fmt.Errorf("%w: stage %q is unreachable from start stage %q",
				ErrMalformedTemplate, stage.ID, g.template.StartStageID)
		}
	}

	return nil
}

// Template returns the template this graph was built from.
func (g *Graph) Template() *models.WorkflowTemplate {
	return g.template
}

// Stage returns the declared stage with the given id, or nil.
func (g *Graph) Stage(stageID string) *models.Stage {
	return g.stages[stageID]
}

// TransitionsFrom returns all transitions out of the stage in declaration
// order. The returned slice must not be mutated.
func (g *Graph) TransitionsFrom(stageID string) []*models.Transition {
	return g.outgoing[stageID]
}

// AutomaticFrom returns the automatic transitions out of the stage in
// declaration order.
func (g *Graph) AutomaticFrom(stageID string) []*models.Transition {
	return g.automatic[stageID]
}

// HasAutomaticFrom reports whether at least one automatic transition leaves
// the stage; the scheduler uses it to narrow its candidate stages.
func (g *Graph) HasAutomaticFrom(stageID string) bool {
	return len(g.automatic[stageID]) > 0
}

// AutomaticSourceStages returns the ids of all stages with at least one
// outgoing automatic transition.
func (g *Graph) AutomaticSourceStages() []string {
	ids := make([]string, 0, len(g.automatic))

	for _, stage := range g.template.Stages {
		if len(g.automatic[stage.ID]) > 0 {
			ids = append(ids, stage.ID)
		}
	}

	return ids
}

// FindFrom returns the named transition out of the stage, or nil when no
// such transition is declared.
func (g *Graph) FindFrom(stageID, transitionName string) *models.Transition {
	for _, transition := range g.outgoing[stageID] {
		if transition.Name == transitionName {
			return transition
		}
	}

	return nil
}
