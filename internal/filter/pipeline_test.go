package filter

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mailfilter/internal/model"
)

func inboxEmails() []model.Email {
	now := time.Now()
	return []model.Email{
		{ID: "1", Sender: "Promotions Inc.", Subject: "Big sale", Body: "20% off", Category: model.CategoryInbox, Priority: model.PriorityLow, Timestamp: now},
		{ID: "2", Sender: "Alice", Subject: "Meeting", Body: "this is urgent", Category: model.CategoryInbox, Priority: model.PriorityMedium, Timestamp: now.Add(-time.Hour)},
		{ID: "3", Sender: "Support Team", Subject: "Ticket #42", Body: "We received your query", Category: model.CategoryPriority, Priority: model.PriorityNone, Timestamp: now.Add(-2 * time.Hour)},
	}
}

func rule(name string, action model.Action, conds ...model.Condition) model.FilterRule {
	return model.FilterRule{ID: name, Name: name, IsActive: true, Conditions: conds, Action: action}
}

func anyEmail() model.Condition {
	return text(model.FieldSubject, model.OpMatchesRegex, ".*")
}

func TestApplyFiltersNoRulesIsIdentity(t *testing.T) {
	emails := inboxEmails()
	out := ApplyFilters(emails, nil)
	assert.Equal(t, emails, out)

	out = ApplyFilters(emails, []model.FilterRule{})
	assert.Equal(t, emails, out)
}

func TestApplyFiltersEmptyEmails(t *testing.T) {
	r := rule("read", model.Action{Type: model.ActionMarkAsRead}, anyEmail())
	out := ApplyFilters(nil, []model.FilterRule{r})
	assert.Empty(t, out)
}

func TestApplyFiltersPreservesCardinalityAndOrder(t *testing.T) {
	emails := inboxEmails()
	rules := []model.FilterRule{
		rule("spam sale", model.Action{Type: model.ActionDelete}, text(model.FieldSubject, model.OpContains, "sale")),
		rule("read all", model.Action{Type: model.ActionMarkAsRead}, anyEmail()),
	}

	out := ApplyFilters(emails, rules)
	require.Len(t, out, len(emails))
	for i := range emails {
		assert.Equal(t, emails[i].ID, out[i].ID)
	}
}

func TestApplyFiltersDoesNotMutateInput(t *testing.T) {
	emails := inboxEmails()
	emails[0].Tags = []string{"promo"}
	snapshot := make([]model.Email, len(emails))
	for i, e := range emails {
		snapshot[i] = e.Clone()
	}

	rules := []model.FilterRule{
		rule("move", model.Action{Type: model.ActionMoveToCategory, Category: model.CategoryArchived}, anyEmail()),
		rule("priority", model.Action{Type: model.ActionSetPriority, Priority: model.PriorityHigh}, anyEmail()),
	}
	out := ApplyFilters(emails, rules)

	assert.Equal(t, snapshot, emails)
	assert.Equal(t, model.CategoryArchived, out[0].Category)
	assert.Equal(t, model.PriorityHigh, out[0].Priority)

	out[0].Tags[0] = "changed"
	assert.Equal(t, "promo", emails[0].Tags[0])
}

func TestApplyFiltersAndSemantics(t *testing.T) {
	emails := inboxEmails()
	both := rule("urgent from alice",
		model.Action{Type: model.ActionSetPriority, Priority: model.PriorityHigh},
		text(model.FieldSender, model.OpEquals, "alice"),
		text(model.FieldBody, model.OpContains, "URGENT"),
	)
	oneMisses := rule("urgent from bob",
		model.Action{Type: model.ActionMarkAsRead},
		text(model.FieldSender, model.OpEquals, "bob"),
		text(model.FieldBody, model.OpContains, "urgent"),
	)

	out := ApplyFilters(emails, []model.FilterRule{both, oneMisses})
	assert.Equal(t, model.PriorityHigh, out[1].Priority)
	assert.False(t, out[1].Read)
	assert.Equal(t, model.PriorityLow, out[0].Priority)
}

func TestApplyFiltersSkipsInactiveRules(t *testing.T) {
	emails := inboxEmails()
	inactive := rule("delete everything", model.Action{Type: model.ActionDelete}, anyEmail())
	inactive.IsActive = false

	out := ApplyFilters(emails, []model.FilterRule{inactive})
	assert.Equal(t, emails, out)
}

func TestApplyFiltersCascadesInOrder(t *testing.T) {
	email := model.Email{ID: "x", Subject: "hello", Category: model.CategoryInbox}

	// Conditions cannot reference category directly, so "category is Inbox"
	// is modelled by a rule B that only fires while the email is still
	// Priority=None, and rule A that changes that before B runs.
	isUnprioritised := enum(model.FieldPriorityScore, model.OpIs, "None")
	email.Priority = model.PriorityNone

	a := rule("A", model.Action{Type: model.ActionSetPriority, Priority: model.PriorityLow}, isUnprioritised)
	b := rule("B", model.Action{Type: model.ActionMarkAsRead}, isUnprioritised)

	out := ApplyFilters([]model.Email{email}, []model.FilterRule{a, b})
	assert.Equal(t, model.PriorityLow, out[0].Priority)
	assert.False(t, out[0].Read, "B must see A's change and stop matching")

	out = ApplyFilters([]model.Email{email}, []model.FilterRule{b, a})
	assert.Equal(t, model.PriorityLow, out[0].Priority)
	assert.True(t, out[0].Read, "reversed order lets B fire first")
}

func TestApplyFiltersLaterRuleSeesEarlierMutation(t *testing.T) {
	email := model.Email{ID: "x", Subject: "newsletter", Category: model.CategoryInbox, Priority: model.PriorityNone}

	a := rule("to high", model.Action{Type: model.ActionSetPriority, Priority: model.PriorityHigh},
		text(model.FieldSubject, model.OpContains, "newsletter"))
	b := rule("high gets archived", model.Action{Type: model.ActionMoveToCategory, Category: model.CategoryArchived},
		enum(model.FieldPriorityScore, model.OpIs, "High"))

	out := ApplyFilters([]model.Email{email}, []model.FilterRule{a, b})
	assert.Equal(t, model.CategoryArchived, out[0].Category)

	out = ApplyFilters([]model.Email{email}, []model.FilterRule{b, a})
	assert.Equal(t, model.CategoryInbox, out[0].Category)
	assert.Equal(t, model.PriorityHigh, out[0].Priority)
}

func TestApplyFiltersSoftDelete(t *testing.T) {
	emails := inboxEmails()
	del := rule("delete promos", model.Action{Type: model.ActionDelete}, text(model.FieldSender, model.OpContains, "promotions"))

	out := ApplyFilters(emails, []model.FilterRule{del})
	require.Len(t, out, 3)
	assert.Equal(t, model.CategorySpam, out[0].Category)
	assert.Equal(t, "1", out[0].ID)
	assert.Equal(t, model.CategoryInbox, out[1].Category)
}

func TestApplyFiltersPartialActionIsNoop(t *testing.T) {
	emails := inboxEmails()
	rules := []model.FilterRule{
		rule("move nowhere", model.Action{Type: model.ActionMoveToCategory}, anyEmail()),
		rule("priority nothing", model.Action{Type: model.ActionSetPriority, Category: model.CategorySpam}, anyEmail()),
		rule("unknown", model.Action{Type: "autoReply"}, anyEmail()),
	}

	out := ApplyFilters(emails, rules)
	assert.Equal(t, emails, out)
}

func TestEngineForwardHook(t *testing.T) {
	var mu sync.Mutex
	var got []ForwardRequest
	hook := ForwardHookFunc(func(_ context.Context, req ForwardRequest) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, req)
	})

	engine := NewEngine(WithForwardHook(hook), WithLogger(zap.NewNop()), WithMetrics(true))
	fwd := rule("fwd", model.Action{Type: model.ActionForwardTo, ForwardEmail: "boss@example.com"},
		text(model.FieldBody, model.OpContains, "urgent"))

	emails := inboxEmails()
	out := engine.Apply(context.Background(), emails, []model.FilterRule{fwd})

	assert.Equal(t, emails, out, "forwardTo must not change any field")
	require.Len(t, got, 1)
	assert.Equal(t, "2", got[0].Email.ID)
	assert.Equal(t, "boss@example.com", got[0].To)
	assert.Equal(t, "fwd", got[0].RuleID)
}

func TestEngineConcurrentUse(t *testing.T) {
	engine := NewEngine()
	rules := []model.FilterRule{
		rule("read", model.Action{Type: model.ActionMarkAsRead}, anyEmail()),
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out := engine.Apply(context.Background(), inboxEmails(), rules)
			for _, e := range out {
				assert.True(t, e.Read)
			}
		}()
	}
	wg.Wait()
}

func TestFires(t *testing.T) {
	email := sampleEmail()

	r := rule("r", model.Action{Type: model.ActionMarkAsRead},
		text(model.FieldBody, model.OpContains, "urgent"),
		enum(model.FieldPriorityScore, model.OpIs, "High"))
	assert.True(t, Fires(email, r))

	r.IsActive = false
	assert.False(t, Fires(email, r))

	empty := model.FilterRule{IsActive: true}
	assert.True(t, Fires(email, empty))
}

func TestSearch(t *testing.T) {
	emails := inboxEmails()

	assert.Equal(t, emails, Search(emails, "  "))

	got := Search(emails, "TICKET")
	require.Len(t, got, 1)
	assert.Equal(t, "3", got[0].ID)

	got = Search(emails, "urgent")
	require.Len(t, got, 1)
	assert.Equal(t, "2", got[0].ID)

	assert.Empty(t, Search(emails, "nothing like this"))
}
