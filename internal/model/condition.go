package model

import (
	"errors"
	"fmt"
)

var ErrInvalidCondition = errors.New("invalid condition")

type TextField string

const (
	FieldSender  TextField = "sender"
	FieldSubject TextField = "subject"
	FieldBody    TextField = "body"
)

type EnumField string

const (
	FieldSentiment     EnumField = "sentiment"
	FieldPriorityScore EnumField = "priorityScore"
)

type TextOperator string

const (
	OpContains     TextOperator = "contains"
	OpNotContains  TextOperator = "notContains"
	OpEquals       TextOperator = "equals"
	OpStartsWith   TextOperator = "startsWith"
	OpEndsWith     TextOperator = "endsWith"
	OpMatchesRegex TextOperator = "matchesRegex"
)

type EnumOperator string

const (
	OpIs    EnumOperator = "is"
	OpIsNot EnumOperator = "isNot"
)

// Condition is a predicate over one email field. The two implementations
// keep text operators on text fields and is/isNot on enum fields.
type Condition interface {
	ConditionID() string
	Spec() ConditionSpec
	isCondition()
}

// TextCondition compares sender, subject or body against Value.
type TextCondition struct {
	ID       string
	Field    TextField
	Operator TextOperator
	Value    string
}

func (c TextCondition) ConditionID() string { return c.ID }

func (c TextCondition) Spec() ConditionSpec {
	return ConditionSpec{ID: c.ID, Field: string(c.Field), Operator: string(c.Operator), Value: c.Value}
}

func (TextCondition) isCondition() {}

// EnumCondition compares the email's sentiment or priority against Value.
// priorityScore is enum equality on Priority, there is no numeric score.
type EnumCondition struct {
	ID       string
	Field    EnumField
	Operator EnumOperator
	Value    string
}

func (c EnumCondition) ConditionID() string { return c.ID }

func (c EnumCondition) Spec() ConditionSpec {
	return ConditionSpec{ID: c.ID, Field: string(c.Field), Operator: string(c.Operator), Value: c.Value}
}

func (EnumCondition) isCondition() {}

// canonicalValue returns Value as a member of the field's enum. A value
// outside the enum is rejected so a misspelled isNot cannot match everything.
func (c EnumCondition) canonicalValue() (string, error) {
	switch c.Field {
	case FieldSentiment:
		if v, ok := ParseSentiment(c.Value); ok {
			return string(v), nil
		}
	case FieldPriorityScore:
		if v, ok := ParsePriority(c.Value); ok {
			return string(v), nil
		}
	default:
		return "", fmt.Errorf("%w: unknown field %q", ErrInvalidCondition, c.Field)
	}
	return "", fmt.Errorf("%w: %q is not a valid %s value", ErrInvalidCondition, c.Value, c.Field)
}

// ConditionSpec is the loosely typed wire form of a condition.
type ConditionSpec struct {
	ID       string `json:"id,omitempty" yaml:"id"`
	Field    string `json:"field" yaml:"field"`
	Operator string `json:"operator" yaml:"operator"`
	Value    string `json:"value" yaml:"value"`
}

// Build converts the wire form into a typed Condition, rejecting field and
// operator combinations that cannot be evaluated.
func (s ConditionSpec) Build() (Condition, error) {
	switch TextField(s.Field) {
	case FieldSender, FieldSubject, FieldBody:
		switch op := TextOperator(s.Operator); op {
		case OpContains, OpNotContains, OpEquals, OpStartsWith, OpEndsWith, OpMatchesRegex:
			return TextCondition{ID: s.ID, Field: TextField(s.Field), Operator: op, Value: s.Value}, nil
		}
		return nil, fmt.Errorf("%w: operator %q not allowed on field %q", ErrInvalidCondition, s.Operator, s.Field)
	}

	switch EnumField(s.Field) {
	case FieldSentiment, FieldPriorityScore:
		switch op := EnumOperator(s.Operator); op {
		case OpIs, OpIsNot:
			c := EnumCondition{ID: s.ID, Field: EnumField(s.Field), Operator: op, Value: s.Value}
			v, err := c.canonicalValue()
			if err != nil {
				return nil, err
			}
			c.Value = v
			return c, nil
		}
		return nil, fmt.Errorf("%w: operator %q not allowed on field %q", ErrInvalidCondition, s.Operator, s.Field)
	}

	return nil, fmt.Errorf("%w: unknown field %q", ErrInvalidCondition, s.Field)
}
