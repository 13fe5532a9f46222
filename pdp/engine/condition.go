package engine

import (
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/dev-mohitbeniwal/authz/model"
)

// Short operator names accepted alongside the canonical ones.
var operatorAliases = map[string]model.Operator{
	"eq":  model.OpEquals,
	"ne":  model.OpNotEquals,
	"neq": model.OpNotEquals,
	"gt":  model.OpGreaterThan,
	"gte": model.OpGreaterOrEqual,
	"lt":  model.OpLessThan,
	"lte": model.OpLessOrEqual,
}

type clause struct {
	attribute string
	op        model.Operator
	operand   model.AttributeValue
	set       []model.AttributeValue
	pattern   *regexp.Regexp
}

// CompiledCondition is a validated, ANDed list of clauses in attribute order.
// An empty condition always holds.
type CompiledCondition struct {
	clauses []clause
}

func CompileCondition(cond model.Condition) (*CompiledCondition, error) {
	names := make([]string, 0, len(cond))
	for name := range cond {
		names = append(names, name)
	}
	sort.Strings(names)

	compiled := &CompiledCondition{clauses: make([]clause, 0, len(names))}
	for _, name := range names {
		c, err := compileClause(name, cond[name])
		if err != nil {
			return nil, err
		}
		compiled.clauses = append(compiled.clauses, c)
	}
	return compiled, nil
}

func normalizeOperator(op model.Operator) (model.Operator, error) {
	raw := strings.ToLower(strings.TrimSpace(string(op)))
	if raw == "" {
		return model.OpEquals, nil
	}
	if alias, ok := operatorAliases[raw]; ok {
		return alias, nil
	}
	switch o := model.Operator(raw); o {
	case model.OpEquals, model.OpNotEquals, model.OpIn, model.OpNotIn,
		model.OpGreaterThan, model.OpLessThan, model.OpGreaterOrEqual, model.OpLessOrEqual,
		model.OpExists, model.OpContains, model.OpRegex:
		return o, nil
	}
	return "", fmt.Errorf("unknown operator %q", op)
}

func compileClause(name string, cmp model.Comparison) (clause, error) {
	op, err := normalizeOperator(cmp.Operator)
	if err != nil {
		return clause{}, fmt.Errorf("attribute %q: %w", name, err)
	}
	c := clause{attribute: name, op: op}

	switch op {
	case model.OpExists:
	case model.OpEquals, model.OpNotEquals:
		if c.operand, err = model.ParseAttribute(cmp.Value); err != nil {
			return clause{}, fmt.Errorf("attribute %q: %w", name, err)
		}
	case model.OpIn, model.OpNotIn:
		if c.set, err = parseOperandList(cmp.Value); err != nil {
			return clause{}, fmt.Errorf("attribute %q: %w", name, err)
		}
	case model.OpGreaterThan, model.OpLessThan, model.OpGreaterOrEqual, model.OpLessOrEqual:
		if c.operand, err = model.ParseAttribute(cmp.Value); err != nil {
			return clause{}, fmt.Errorf("attribute %q: %w", name, err)
		}
		if c.operand.Kind == model.KindBoolean {
			return clause{}, fmt.Errorf("attribute %q: %s needs an ordered operand, got boolean", name, op)
		}
	case model.OpContains:
		s, ok := cmp.Value.(string)
		if !ok {
			return clause{}, fmt.Errorf("attribute %q: contains needs a string operand, got %T", name, cmp.Value)
		}
		c.operand = model.StringValue(s)
	case model.OpRegex:
		s, ok := cmp.Value.(string)
		if !ok {
			return clause{}, fmt.Errorf("attribute %q: regex needs a string operand, got %T", name, cmp.Value)
		}
		if c.pattern, err = regexp.Compile(s); err != nil {
			return clause{}, fmt.Errorf("attribute %q: %w", name, err)
		}
	}
	return c, nil
}

func parseOperandList(v any) ([]model.AttributeValue, error) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, fmt.Errorf("expected a list operand, got %T", v)
	}
	out := make([]model.AttributeValue, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		av, err := model.ParseAttribute(rv.Index(i).Interface())
		if err != nil {
			return nil, fmt.Errorf("list element %d: %w", i, err)
		}
		out = append(out, av)
	}
	return out, nil
}

// Evaluate reports whether every clause holds. A missing attribute fails the
// condition for every operator, negative ones included.
func (c *CompiledCondition) Evaluate(attrs map[string]model.AttributeValue) (bool, error) {
	if c == nil {
		return true, nil
	}
	for _, cl := range c.clauses {
		value, ok := attrs[cl.attribute]
		if !ok {
			return false, nil
		}
		matched, err := cl.match(value)
		if err != nil {
			return false, fmt.Errorf("attribute %q: %w", cl.attribute, err)
		}
		if !matched {
			return false, nil
		}
	}
	return true, nil
}

// Reads reports whether any clause tests attribute.
func (c *CompiledCondition) Reads(attribute string) bool {
	if c == nil {
		return false
	}
	for _, cl := range c.clauses {
		if cl.attribute == attribute {
			return true
		}
	}
	return false
}

func (c *CompiledCondition) Empty() bool {
	return c == nil || len(c.clauses) == 0
}

func (cl *clause) match(value model.AttributeValue) (bool, error) {
	switch cl.op {
	case model.OpExists:
		return true, nil
	case model.OpEquals:
		return equalValues(value, cl.operand), nil
	case model.OpNotEquals:
		return !equalValues(value, cl.operand), nil
	case model.OpIn:
		return inSet(value, cl.set), nil
	case model.OpNotIn:
		return !inSet(value, cl.set), nil
	case model.OpContains:
		return strings.Contains(value.String(), cl.operand.Str), nil
	case model.OpRegex:
		return cl.pattern.MatchString(value.String()), nil
	}

	lhs, ok := value.As(cl.operand.Kind)
	if !ok {
		return false, fmt.Errorf("%s: cannot compare %s with %s", cl.op, value.Kind, cl.operand.Kind)
	}
	cmp, err := lhs.Compare(cl.operand)
	if err != nil {
		return false, err
	}
	switch cl.op {
	case model.OpGreaterThan:
		return cmp > 0, nil
	case model.OpLessThan:
		return cmp < 0, nil
	case model.OpGreaterOrEqual:
		return cmp >= 0, nil
	case model.OpLessOrEqual:
		return cmp <= 0, nil
	}
	return false, fmt.Errorf("unsupported operator %q", cl.op)
}

// equalValues coerces in whichever direction has a lossless reading; values
// with no common kind are unequal.
func equalValues(a, b model.AttributeValue) bool {
	if conv, ok := a.As(b.Kind); ok {
		return conv.Equal(b)
	}
	if conv, ok := b.As(a.Kind); ok {
		return a.Equal(conv)
	}
	return false
}

func inSet(value model.AttributeValue, set []model.AttributeValue) bool {
	for _, candidate := range set {
		if equalValues(value, candidate) {
			return true
		}
	}
	return false
}
