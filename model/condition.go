// model/condition.go
package model

import (
	"bytes"
	"encoding/json"
)

type Operator string

const (
	OpEquals         Operator = "equals"
	OpNotEquals      Operator = "not_equals"
	OpIn             Operator = "in"
	OpNotIn          Operator = "not_in"
	OpGreaterThan    Operator = "greater_than"
	OpLessThan       Operator = "less_than"
	OpGreaterOrEqual Operator = "greater_or_equal"
	OpLessOrEqual    Operator = "less_or_equal"
	OpExists         Operator = "exists"
	OpContains       Operator = "contains"
	OpRegex          Operator = "regex"
)

// Condition maps an attribute name to the comparison it must satisfy. All
// entries must hold for the condition to match.
type Condition map[string]Comparison

type Comparison struct {
	Operator Operator `json:"operator"`
	Value    any      `json:"value,omitempty"`
}

// UnmarshalJSON accepts either {"operator": ..., "value": ...} or a bare
// operand, which means equals (or in, for a list).
func (c *Comparison) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &probe); err != nil {
			return err
		}
		if _, ok := probe["operator"]; ok {
			type plain Comparison
			var p plain
			if err := json.Unmarshal(trimmed, &p); err != nil {
				return err
			}
			*c = Comparison(p)
			return nil
		}
	}

	var operand any
	if err := json.Unmarshal(trimmed, &operand); err != nil {
		return err
	}
	if list, ok := operand.([]any); ok {
		*c = Comparison{Operator: OpIn, Value: list}
		return nil
	}
	*c = Comparison{Operator: OpEquals, Value: operand}
	return nil
}
