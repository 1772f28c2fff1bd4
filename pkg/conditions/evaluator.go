// Package conditions evaluates boolean condition trees against application
// data snapshots. Evaluation is pure: no I/O, no mutation, and never an
// error; a leaf over missing or incomparable data evaluates to false.
package conditions

import "github.com/enrollhq/admitflow/pkg/models"

// Evaluate resolves a condition tree against a read-only nested key/value
// snapshot of the application's data. A nil tree is unconditionally true.
//
// Group semantics: ALL is true iff every child is true (vacuously true when
// empty); ANY is true iff at least one child is true (false when empty).
func Evaluate(tree *models.ConditionTree, snapshot map[string]any) bool {
	if tree == nil {
		return true
	}

	if tree.IsGroup() {
		return evaluateGroup(tree, snapshot)
	}

	return evaluateLeaf(tree, snapshot)
}

func evaluateGroup(group *models.ConditionTree, snapshot map[string]any) bool {
	switch group.Combinator {
	case models.CombinatorAll:
		for _, child := range group.Children {
			if !Evaluate(child, snapshot) {
				return false
			}
		}

		return true
	case models.CombinatorAny:
		for _, child := range group.Children {
			if Evaluate(child, snapshot) {
				return true
			}
		}

		return false
	default:
		return false
	}
}

func evaluateLeaf(leaf *models.ConditionTree, snapshot map[string]any) bool {
	value, found := lookupPath(snapshot, leaf.Field)
	if !found {
		return false
	}

	compare, ok := operatorTable[leaf.Operator]
	if !ok {
		return false
	}

	return compare(value, leaf.Value)
}
