package filter

import (
	"context"

	"go.uber.org/zap"

	"mailfilter/internal/model"
)

// ForwardRequest describes an email a forwardTo rule wants delivered
// elsewhere.
type ForwardRequest struct {
	Email  model.Email
	RuleID string
	Rule   string
	To     string
}

// ForwardHook receives forwardTo actions. Implementations must not block
// for long and must not fail the filtering pass.
type ForwardHook interface {
	Forward(ctx context.Context, req ForwardRequest)
}

// ForwardHookFunc adapts a function to ForwardHook.
type ForwardHookFunc func(ctx context.Context, req ForwardRequest)

func (f ForwardHookFunc) Forward(ctx context.Context, req ForwardRequest) { f(ctx, req) }

// LogForwardHook only records the forward; it is the default when no
// transport is configured.
type LogForwardHook struct {
	Logger *zap.Logger
}

func (h LogForwardHook) Forward(_ context.Context, req ForwardRequest) {
	if h.Logger == nil {
		return
	}
	h.Logger.Info("Email would be forwarded",
		zap.String("email_id", req.Email.ID),
		zap.String("rule_id", req.RuleID),
		zap.String("forward_to", req.To),
	)
}

// ApplyAction returns a copy of email with the action applied. Only the
// classification fields change; a field that does not match the action type
// is ignored, and an unset target value makes the action a no-op.
func ApplyAction(ctx context.Context, email model.Email, rule model.FilterRule, hook ForwardHook) model.Email {
	out := email.Clone()
	action := rule.Action

	switch action.Type {
	case model.ActionMoveToCategory:
		if action.Category.Valid() {
			out.Category = action.Category
		}
	case model.ActionSetPriority:
		if action.Priority.Valid() {
			out.Priority = action.Priority
		}
	case model.ActionMarkAsRead:
		out.Read = true
	case model.ActionDelete:
		// soft delete
		out.Category = model.CategorySpam
	case model.ActionForwardTo:
		if hook != nil && action.ForwardEmail != "" {
			hook.Forward(ctx, ForwardRequest{
				Email:  out.Clone(),
				RuleID: rule.ID,
				Rule:   rule.Name,
				To:     action.ForwardEmail,
			})
		}
	}

	return out
}
