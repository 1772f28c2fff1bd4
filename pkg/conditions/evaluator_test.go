package conditions

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/enrollhq/admitflow/pkg/models"
)

func leaf(field string, op models.Operator, value any) *models.ConditionTree {
	return &models.ConditionTree{Field: field, Operator: op, Value: value}
}

func group(combinator models.Combinator, children ...*models.ConditionTree) *models.ConditionTree {
	return &models.ConditionTree{Combinator: combinator, Children: children}
}

func TestEvaluate_NilTreeIsTrue(t *testing.T) {
	assert.True(t, Evaluate(nil, map[string]any{}))
}

func TestEvaluate_Operators(t *testing.T) {
	snapshot := map[string]any{
		"application_fee_paid": true,
		"gpa":                  3.7,
		"credits":              120,
		"program":              "computer science",
		"documents":            []any{"transcript", "passport"},
		"status":               "submitted",
		"submitted_at":         "2026-01-15T10:00:00Z",
		"student": map[string]any{
			"country": "BR",
			"scores":  map[string]any{"math": 91},
		},
	}

	tests := []struct {
		name string
		tree *models.ConditionTree
		want bool
	}{
		{"equals bool", leaf("application_fee_paid", models.OperatorEquals, true), true},
		{"equals string", leaf("program", models.OperatorEquals, "computer science"), true},
		{"equals mismatch", leaf("program", models.OperatorEquals, "law"), false},
		{"not equals", leaf("status", models.OperatorNotEquals, "draft"), true},
		{"numeric equality across types", leaf("credits", models.OperatorEquals, 120.0), true},
		{"greater", leaf("gpa", models.OperatorGreater, 3.5), true},
		{"greater false", leaf("gpa", models.OperatorGreater, 3.7), false},
		{"greater equal", leaf("gpa", models.OperatorGreaterEqual, 3.7), true},
		{"less", leaf("credits", models.OperatorLess, 130), true},
		{"less equal", leaf("credits", models.OperatorLessEqual, 120), true},
		{"date comparison", leaf("submitted_at", models.OperatorGreater, "2026-01-01T00:00:00Z"), true},
		{"date comparison false", leaf("submitted_at", models.OperatorLess, "2026-01-01T00:00:00Z"), false},
		{"contains substring", leaf("program", models.OperatorContains, "science"), true},
		{"contains array membership", leaf("documents", models.OperatorContains, "passport"), true},
		{"contains array miss", leaf("documents", models.OperatorContains, "visa"), false},
		{"in", leaf("student.country", models.OperatorIn, []any{"BR", "AR", "CL"}), true},
		{"not in", leaf("student.country", models.OperatorNotIn, []any{"US", "CA"}), true},
		{"in miss", leaf("status", models.OperatorIn, []any{"draft"}), false},
		{"dotted path", leaf("student.scores.math", models.OperatorGreaterEqual, 90), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Evaluate(tt.tree, snapshot))
		})
	}
}

func TestEvaluate_MissingFieldIsFalse(t *testing.T) {
	snapshot := map[string]any{"application_fee_paid": true}

	// A missing key never raises an error; the leaf is simply false.
	assert.False(t, Evaluate(leaf("enrollment_deposit_paid", models.OperatorEquals, true), snapshot))
	assert.False(t, Evaluate(leaf("student.scores.math", models.OperatorGreater, 50), snapshot))
}

func TestEvaluate_IncompatibleTypesAreFalse(t *testing.T) {
	snapshot := map[string]any{
		"gpa":    "not a number",
		"status": "submitted",
	}

	assert.False(t, Evaluate(leaf("gpa", models.OperatorGreater, 3.0), snapshot))
	assert.False(t, Evaluate(leaf("status", models.OperatorGreater, "draft), sort of"), snapshot))
	assert.False(t, Evaluate(leaf("status", models.OperatorEquals, 42), snapshot))
	assert.False(t, Evaluate(leaf("status", models.OperatorContains, 42), snapshot))
	assert.False(t, Evaluate(leaf("status", models.OperatorIn, "not an array"), snapshot))
}

func TestEvaluate_Groups(t *testing.T) {
	snapshot := map[string]any{
		"application_fee_paid":   true,
		"all_documents_verified": false,
	}

	paid := leaf("application_fee_paid", models.OperatorEquals, true)
	verified := leaf("all_documents_verified", models.OperatorEquals, true)

	assert.True(t, Evaluate(group(models.CombinatorAll, paid), snapshot))
	assert.False(t, Evaluate(group(models.CombinatorAll, paid, verified), snapshot))
	assert.True(t, Evaluate(group(models.CombinatorAny, paid, verified), snapshot))
	assert.False(t, Evaluate(group(models.CombinatorAny, verified), snapshot))
}

func TestEvaluate_EmptyGroupSemantics(t *testing.T) {
	snapshot := map[string]any{}

	// Vacuous truth: ALL over nothing holds, ANY over nothing does not.
	assert.True(t, Evaluate(group(models.CombinatorAll), snapshot))
	assert.False(t, Evaluate(group(models.CombinatorAny), snapshot))
}

func TestEvaluate_NestedGroups(t *testing.T) {
	snapshot := map[string]any{
		"gpa":    3.9,
		"essay":  "submitted",
		"waiver": true,
	}

	tree := group(models.CombinatorAll,
		leaf("gpa", models.OperatorGreaterEqual, 3.5),
		group(models.CombinatorAny,
			leaf("essay", models.OperatorEquals, "submitted"),
			leaf("waiver", models.OperatorEquals, true),
		),
	)

	assert.True(t, Evaluate(tree, snapshot))
}

func TestEvaluate_IsPure(t *testing.T) {
	snapshot := map[string]any{"gpa": 3.2}
	tree := group(models.CombinatorAll, leaf("gpa", models.OperatorGreater, 3.0))

	first := Evaluate(tree, snapshot)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, Evaluate(tree, snapshot))
	}

	// The snapshot is untouched.
	assert.Equal(t, map[string]any{"gpa": 3.2}, snapshot)
}
