package models

// Operator is a comparison operator usable in a condition leaf. The set is
// closed; evaluation maps each operator to a pure comparison function.
type Operator string

const (
	OperatorEquals       Operator = "="
	OperatorNotEquals    Operator = "!="
	OperatorGreater      Operator = ">"
	OperatorGreaterEqual Operator = ">="
	OperatorLess         Operator = "<"
	OperatorLessEqual    Operator = "<="
	OperatorContains     Operator = "contains"
	OperatorIn           Operator = "in"
	OperatorNotIn        Operator = "not_in"
)

// Valid reports whether the operator is one of the supported comparison kinds.
func (o Operator) Valid() bool {
	switch o {
	case OperatorEquals, OperatorNotEquals,
		OperatorGreater, OperatorGreaterEqual, OperatorLess, OperatorLessEqual,
		OperatorContains, OperatorIn, OperatorNotIn:
		return true
	default:
		return false
	}
}

// Combinator joins the children of a condition group.
type Combinator string

const (
	CombinatorAll Combinator = "ALL" // true iff every child is true
	CombinatorAny Combinator = "ANY" // true iff at least one child is true
)

// Valid reports whether the combinator is ALL or ANY.
func (c Combinator) Valid() bool {
	return c == CombinatorAll || c == CombinatorAny
}

// ConditionTree is a boolean expression over application data. A node is
// either a group (Combinator set, Children populated) or a leaf (Field and
// Operator set). Trees are finite and structurally acyclic; the transition
// graph they gate may still contain cycles.
type ConditionTree struct {
	// Group form.
	Combinator Combinator       `json:"combinator,omitempty"`
	Children   []*ConditionTree `json:"children,omitempty"`

	// Leaf form.
	Field    string   `json:"field,omitempty"`
	Operator Operator `json:"operator,omitempty"`
	Value    any      `json:"value,omitempty"`
}

// IsGroup reports whether the node is a combinator group rather than a leaf.
func (c *ConditionTree) IsGroup() bool {
	return c.Combinator != ""
}
