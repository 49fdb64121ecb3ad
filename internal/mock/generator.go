package mock

import (
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"mailfilter/internal/model"
)

const (
	Recipient = "user@example.com"
	window    = 30 * 24 * time.Hour
)

var (
	senders = []string{
		"Alice Wonderland", "Bob The Builder", "Charlie Brown", "Diana Prince",
		"Edward Scissorhands", "Fiona Apple", "George Jetson", "Jane Doe",
		"Support Team", "Newsletter Hub", "Promotions Inc.",
	}
	subjectPrefixes = []string{
		"Regarding", "Update on", "Quick question about", "Action Required:",
		"FYI:", "Invitation:", "Your order", "Weekly Digest",
	}
	bodySnippets = []string{
		"Just wanted to follow up on our last conversation. Let me know your thoughts.",
		"Please find attached the report you requested. The key findings are on page 3.",
		"Can we schedule a brief meeting next week to discuss the project proposal? I'm available on Tuesday or Wednesday afternoon.",
		"This is a reminder that your subscription will auto-renew next month. No action is required if you wish to continue.",
		"Exciting news! We've just launched a new feature that we think you'll love. Check it out!",
		"Your recent order #12345 has been shipped and is expected to arrive by Friday. Track your package here: [link]",
		"Don't miss out on our special 20% off sale, ending this weekend! Shop now for the best deals.",
		"This is an automated notification. A new login to your account was detected from a new device.",
		"Thank you for contacting support. We have received your query and a team member will get back to you within 24 hours.",
		"Here's your weekly summary of interesting articles and updates from our community.",
	}
)

// Generator produces a plausible demo mailbox. The same seed and clock give
// the same mailbox.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

func NewGenerator(seed int64) *Generator {
	return &Generator{
		rng: rand.New(rand.NewSource(seed)),
		now: time.Now,
	}
}

// WithClock fixes the reference time, mostly for tests.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Emails returns n emails from the last 30 days, newest first.
func (g *Generator) Emails(n int) []model.Email {
	if n <= 0 {
		return []model.Email{}
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	end := g.now()
	start := end.Add(-window)
	out := make([]model.Email, 0, n)
	for i := 0; i < n; i++ {
		sender := pick(g.rng, senders)
		subject := pick(g.rng, subjectPrefixes) + " " + strings.Fields(sender)[0] + "'s Project"
		body := pick(g.rng, bodySnippets) + "\n\n" + pick(g.rng, bodySnippets)
		ts := start.Add(time.Duration(g.rng.Int63n(int64(window))))
		read := g.rng.Float64() > 0.3
		priority := pick(g.rng, model.Priorities)

		var tags []string
		if g.rng.Float64() > 0.7 {
			tags = []string{"important", "project-x"}
		}

		out = append(out, model.Email{
			ID:        g.newID(),
			Sender:    sender,
			Recipient: Recipient,
			Subject:   subject,
			Body:      body,
			Timestamp: ts,
			Read:      read,
			Priority:  priority,
			Category:  initialCategory(sender, subject),
			Tags:      tags,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

func (g *Generator) newID() string {
	u, err := uuid.NewRandomFromReader(g.rng)
	if err != nil {
		return model.NewEmailID()
	}
	return "email_" + u.String()
}

// initialCategory applies the demo mailbox's first-pass sorting.
func initialCategory(sender, subject string) model.Category {
	s := strings.ToLower(subject)
	switch {
	case strings.Contains(sender, "Promotions") || strings.Contains(s, "sale") || strings.Contains(s, "deal"):
		return model.CategoryPromotions
	case strings.Contains(sender, "Support") || strings.Contains(s, "ticket"):
		return model.CategoryPriority
	default:
		return model.CategoryInbox
	}
}

func pick[T any](rng *rand.Rand, items []T) T {
	return items[rng.Intn(len(items))]
}
