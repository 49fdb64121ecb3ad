package report

import (
	"errors"
	"fmt"
	"time"

	"mailfilter/internal/model"
)

const DateLayout = "2006-01-02"

var (
	ErrMissingRange = errors.New("both start and end dates are required")
	ErrInvalidRange = errors.New("start date cannot be after end date")
)

type CategoryCount struct {
	Category model.Category `json:"category"`
	Count    int            `json:"count"`
}

type PriorityCount struct {
	Priority model.Priority `json:"priority"`
	Count    int            `json:"count"`
}

type SentimentCount struct {
	Sentiment model.Sentiment `json:"sentiment"`
	Count     int             `json:"count"`
}

type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Report summarises a mailbox over a date range. Buckets with no emails are
// left out.
type Report struct {
	DateRange   DateRange        `json:"dateRange"`
	TotalEmails int              `json:"totalEmails"`
	ByCategory  []CategoryCount  `json:"byCategory"`
	ByPriority  []PriorityCount  `json:"byPriority"`
	BySentiment []SentimentCount `json:"bySentiment"`
}

// ParseRange parses YYYY-MM-DD dates in UTC.
func ParseRange(start, end string) (time.Time, time.Time, error) {
	if start == "" || end == "" {
		return time.Time{}, time.Time{}, ErrMissingRange
	}
	from, err := time.Parse(DateLayout, start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse start date: %w", err)
	}
	to, err := time.Parse(DateLayout, end)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse end date: %w", err)
	}
	return from, to, nil
}

func dayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Build counts emails received between the start of the start day and the
// end of the end day, both inclusive. Emails without a sentiment are not
// counted under any sentiment.
func Build(emails []model.Email, start, end time.Time) (Report, error) {
	if start.IsZero() || end.IsZero() {
		return Report{}, ErrMissingRange
	}
	from := dayStart(start)
	to := dayStart(end).Add(24*time.Hour - time.Nanosecond)
	if from.After(to) {
		return Report{}, ErrInvalidRange
	}

	categories := make(map[model.Category]int)
	priorities := make(map[model.Priority]int)
	sentiments := make(map[model.Sentiment]int)
	total := 0
	for _, e := range emails {
		if e.Timestamp.Before(from) || e.Timestamp.After(to) {
			continue
		}
		total++
		categories[e.Category]++
		priorities[e.Priority]++
		if e.Sentiment != "" {
			sentiments[e.Sentiment]++
		}
	}

	r := Report{
		DateRange:   DateRange{Start: from.Format(DateLayout), End: to.Format(DateLayout)},
		TotalEmails: total,
		ByCategory:  []CategoryCount{},
		ByPriority:  []PriorityCount{},
		BySentiment: []SentimentCount{},
	}
	for _, c := range model.Categories {
		if n := categories[c]; n > 0 {
			r.ByCategory = append(r.ByCategory, CategoryCount{Category: c, Count: n})
		}
	}
	for _, p := range model.Priorities {
		if n := priorities[p]; n > 0 {
			r.ByPriority = append(r.ByPriority, PriorityCount{Priority: p, Count: n})
		}
	}
	for _, s := range model.Sentiments {
		if n := sentiments[s]; n > 0 {
			r.BySentiment = append(r.BySentiment, SentimentCount{Sentiment: s, Count: n})
		}
	}
	return r, nil
}
