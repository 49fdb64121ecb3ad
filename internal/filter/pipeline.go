package filter

import (
	"context"
	"time"

	"go.uber.org/zap"

	"mailfilter/internal/model"
	"mailfilter/pkg/logger"
	"mailfilter/pkg/metrics"
)

// Engine runs an ordered rule set over a collection of emails. It holds no
// per-pass state and is safe for concurrent use.
type Engine struct {
	logger  *zap.Logger
	hook    ForwardHook
	metrics bool
}

type Option func(*Engine)

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = logger.OrNop(l) }
}

func WithForwardHook(h ForwardHook) Option {
	return func(e *Engine) { e.hook = h }
}

// WithMetrics toggles prometheus recording for each pass.
func WithMetrics(enabled bool) Option {
	return func(e *Engine) { e.metrics = enabled }
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	if e.hook == nil {
		e.hook = LogForwardHook{Logger: e.logger}
	}
	return e
}

var defaultEngine = NewEngine()

// ApplyFilters runs rules over emails with the default engine.
func ApplyFilters(emails []model.Email, rules []model.FilterRule) []model.Email {
	return defaultEngine.Apply(context.Background(), emails, rules)
}

// Apply returns a new collection of the same length and order as emails.
// Each email is processed independently: rules run in the given order and
// every active rule whose conditions hold against the current, possibly
// already modified, copy applies its action. Neither argument is modified.
// With no rules the input is returned as is.
func (e *Engine) Apply(ctx context.Context, emails []model.Email, rules []model.FilterRule) []model.Email {
	if len(rules) == 0 {
		return emails
	}

	start := time.Now()
	out := make([]model.Email, len(emails))
	fired := 0
	for i, email := range emails {
		working := email.Clone()
		for _, rule := range rules {
			if !Fires(working, rule) {
				continue
			}
			working = ApplyAction(ctx, working, rule, e.hook)
			fired++
			if e.metrics {
				metrics.IncrementRuleFired(string(rule.Action.Type))
			}
			if ce := e.logger.Check(zap.DebugLevel, "Rule fired"); ce != nil {
				ce.Write(
					zap.String("email_id", email.ID),
					zap.String("rule_id", rule.ID),
					zap.String("rule", rule.Name),
					zap.String("action", string(rule.Action.Type)),
				)
			}
		}
		out[i] = working
	}

	elapsed := time.Since(start)
	if e.metrics {
		metrics.RecordFilterPass(elapsed)
	}
	logger.WithTrace(ctx, e.logger).Debug("Filter pass complete",
		zap.Int("emails", len(emails)),
		zap.Int("rules", len(rules)),
		zap.Int("fired", fired),
		zap.Duration("took", elapsed),
	)
	return out
}
