package model

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var ErrInvalidRule = errors.New("invalid rule")

type ActionType string

const (
	ActionMoveToCategory ActionType = "moveToCategory"
	ActionSetPriority    ActionType = "setPriority"
	ActionMarkAsRead     ActionType = "markAsRead"
	ActionDelete         ActionType = "delete"
	ActionForwardTo      ActionType = "forwardTo"
)

// Action is what a rule does once it fires. Only the field matching Type is
// meaningful.
type Action struct {
	Type         ActionType `json:"type"`
	Category     Category   `json:"category,omitempty"`
	Priority     Priority   `json:"priority,omitempty"`
	ForwardEmail string     `json:"forwardEmail,omitempty"`
}

func (a Action) Validate() error {
	switch a.Type {
	case ActionMoveToCategory:
		if !a.Category.Valid() {
			return fmt.Errorf("%w: moveToCategory needs a category, got %q", ErrInvalidRule, a.Category)
		}
	case ActionSetPriority:
		if !a.Priority.Valid() {
			return fmt.Errorf("%w: setPriority needs a priority, got %q", ErrInvalidRule, a.Priority)
		}
	case ActionForwardTo:
		if a.ForwardEmail == "" {
			return fmt.Errorf("%w: forwardTo needs an address", ErrInvalidRule)
		}
	case ActionMarkAsRead, ActionDelete:
	default:
		return fmt.Errorf("%w: unsupported action %q", ErrInvalidRule, a.Type)
	}
	return nil
}

// FilterRule is a named, user-ordered automation unit. All conditions must
// match for the action to run.
type FilterRule struct {
	ID         string
	Name       string
	IsActive   bool
	Conditions []Condition
	Action     Action
}

func NewRuleID() string {
	return uuid.NewString()
}

// Validate checks the invariants rules must satisfy before they reach the
// filtering pipeline.
func (r FilterRule) Validate() error {
	if len(r.Conditions) == 0 {
		return fmt.Errorf("%w: rule %q has no conditions", ErrInvalidRule, r.Name)
	}
	for _, c := range r.Conditions {
		if c == nil {
			return fmt.Errorf("%w: rule %q has a nil condition", ErrInvalidRule, r.Name)
		}
		if ec, ok := c.(EnumCondition); ok {
			if _, err := ec.canonicalValue(); err != nil {
				return fmt.Errorf("%w: rule %q: %w", ErrInvalidRule, r.Name, err)
			}
		}
	}
	return r.Action.Validate()
}

type ruleJSON struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	IsActive   bool            `json:"isActive"`
	Conditions []ConditionSpec `json:"conditions"`
	Action     Action          `json:"action"`
}

func (r FilterRule) MarshalJSON() ([]byte, error) {
	out := ruleJSON{ID: r.ID, Name: r.Name, IsActive: r.IsActive, Action: r.Action}
	out.Conditions = make([]ConditionSpec, 0, len(r.Conditions))
	for _, c := range r.Conditions {
		if c != nil {
			out.Conditions = append(out.Conditions, c.Spec())
		}
	}
	return json.Marshal(out)
}

func (r *FilterRule) UnmarshalJSON(data []byte) error {
	var in ruleJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	conds := make([]Condition, 0, len(in.Conditions))
	for i, spec := range in.Conditions {
		c, err := spec.Build()
		if err != nil {
			return fmt.Errorf("rule %q condition %d: %w", in.Name, i, err)
		}
		conds = append(conds, c)
	}
	*r = FilterRule{
		ID:         in.ID,
		Name:       in.Name,
		IsActive:   in.IsActive,
		Conditions: conds,
		Action:     in.Action,
	}
	return nil
}
