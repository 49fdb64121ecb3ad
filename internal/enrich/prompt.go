package enrich

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/k3a/html2text"

	"mailfilter/internal/model"
)

const (
	SummaryUnavailable = "Summary unavailable (API key missing)."
	RepliesUnavailable = "Could not generate replies (API key missing)."
	RepliesUnsuitable  = "Could not generate suitable replies."
	maxReplies         = 3
)

var (
	htmlTagRe = regexp.MustCompile(`(?i)<(html|body|div|p|br|span|table|a)\b[^>]*>`)
	fenceRe   = regexp.MustCompile("(?s)^```(\\w*)?\\s*\\n?(.*?)\\n?\\s*```$")
)

// plainBody returns the body as text, converting HTML markup when present.
func plainBody(e model.Email) string {
	if htmlTagRe.MatchString(e.Body) {
		return strings.TrimSpace(html2text.HTML2Text(e.Body))
	}
	return e.Body
}

func sentimentPrompt(content string) string {
	return fmt.Sprintf("Analyze the sentiment of the following email content. "+
		"Respond with only one of these words: Positive, Negative, Neutral, Mixed.\n\nEmail content: %q", content)
}

func summaryPrompt(content string) string {
	return fmt.Sprintf("Summarize the following email content in one or two short sentences:\n\nEmail content: %q", content)
}

func repliesPrompt(content, hint string) string {
	ctx := ""
	if hint != "" {
		ctx = fmt.Sprintf(" and context (%q)", hint)
	}
	return fmt.Sprintf("Given the email content%s, suggest 3 concise smart replies. "+
		"Each reply should be one short sentence. Return the replies as a JSON array of strings. "+
		`For example: ["Got it, thanks!", "Will look into this.", "Sounds good."]`+
		"\n\nEmail content: %q", ctx, content)
}

// parseSentiment maps a provider answer onto the enum, Unknown otherwise.
func parseSentiment(text string) model.Sentiment {
	if s, ok := model.ParseSentiment(text); ok {
		return s
	}
	return model.SentimentUnknown
}

// parseReplies reads a JSON string array, optionally inside a markdown
// fence. Anything else is read as one reply per non-empty line.
func parseReplies(text string) []string {
	cleaned := strings.TrimSpace(text)
	if m := fenceRe.FindStringSubmatch(cleaned); m != nil && m[2] != "" {
		cleaned = strings.TrimSpace(m[2])
	}

	var replies []string
	if err := json.Unmarshal([]byte(cleaned), &replies); err == nil && len(replies) > 0 {
		return firstN(replies, maxReplies)
	}

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimPrefix(strings.TrimSpace(line), "- ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) > 0 {
		return firstN(lines, maxReplies)
	}
	return []string{RepliesUnsuitable}
}

func firstN(s []string, n int) []string {
	if len(s) > n {
		s = s[:n]
	}
	return s
}
