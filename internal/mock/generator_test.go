package mock

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailfilter/internal/model"
)

var fixedNow = time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)

func newTestGenerator(seed int64) *Generator {
	return NewGenerator(seed).WithClock(func() time.Time { return fixedNow })
}

func TestEmailsShape(t *testing.T) {
	emails := newTestGenerator(1).Emails(50)
	require.Len(t, emails, 50)

	ids := make(map[string]bool)
	for i, e := range emails {
		assert.True(t, strings.HasPrefix(e.ID, "email_"))
		assert.False(t, ids[e.ID], "duplicate id %s", e.ID)
		ids[e.ID] = true

		assert.Equal(t, Recipient, e.Recipient)
		assert.True(t, e.Priority.Valid())
		assert.True(t, e.Category.Valid())
		assert.Empty(t, e.Sentiment)
		assert.Empty(t, e.Summary)
		assert.False(t, e.Timestamp.After(fixedNow))
		assert.False(t, e.Timestamp.Before(fixedNow.Add(-30*24*time.Hour)))
		assert.Contains(t, e.Body, "\n\n")

		if i > 0 {
			assert.False(t, e.Timestamp.After(emails[i-1].Timestamp), "newest first")
		}
	}
}

func TestEmailsDeterministic(t *testing.T) {
	a := newTestGenerator(42).Emails(10)
	b := newTestGenerator(42).Emails(10)
	assert.Equal(t, a, b)

	c := newTestGenerator(7).Emails(10)
	assert.NotEqual(t, a, c)
}

func TestEmailsNonPositive(t *testing.T) {
	g := newTestGenerator(1)
	assert.Empty(t, g.Emails(0))
	assert.Empty(t, g.Emails(-3))
}

func TestInitialCategory(t *testing.T) {
	tests := []struct {
		sender, subject string
		want            model.Category
	}{
		{"Promotions Inc.", "Regarding Promotions's Project", model.CategoryPromotions},
		{"Jane Doe", "Big SALE today", model.CategoryPromotions},
		{"Jane Doe", "A great deal", model.CategoryPromotions},
		{"Support Team", "FYI: Support's Project", model.CategoryPriority},
		{"Jane Doe", "Your ticket was updated", model.CategoryPriority},
		{"Jane Doe", "Update on Jane's Project", model.CategoryInbox},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, initialCategory(tt.sender, tt.subject), tt.subject)
	}
}
