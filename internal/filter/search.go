package filter

import (
	"strings"

	"mailfilter/internal/model"
)

// Search keeps emails whose sender, subject or body contain query, ignoring
// case. A blank query keeps everything. It runs before Apply so rules only
// see the visible subset.
func Search(emails []model.Email, query string) []model.Email {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return emails
	}

	out := make([]model.Email, 0, len(emails))
	for _, e := range emails {
		if strings.Contains(strings.ToLower(e.Sender), q) ||
			strings.Contains(strings.ToLower(e.Subject), q) ||
			strings.Contains(strings.ToLower(e.Body), q) {
			out = append(out, e)
		}
	}
	return out
}
