package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
	PriorityNone   Priority = "None"
)

// Priorities lists every priority in display order.
var Priorities = []Priority{PriorityHigh, PriorityMedium, PriorityLow, PriorityNone}

func (p Priority) Valid() bool {
	for _, v := range Priorities {
		if p == v {
			return true
		}
	}
	return false
}

// ParsePriority matches s against the known priorities ignoring case.
func ParsePriority(s string) (Priority, bool) {
	for _, v := range Priorities {
		if strings.EqualFold(string(v), strings.TrimSpace(s)) {
			return v, true
		}
	}
	return "", false
}

type Sentiment string

const (
	SentimentPositive Sentiment = "Positive"
	SentimentNegative Sentiment = "Negative"
	SentimentNeutral  Sentiment = "Neutral"
	SentimentMixed    Sentiment = "Mixed"
	SentimentUnknown  Sentiment = "Unknown"
)

var Sentiments = []Sentiment{SentimentPositive, SentimentNegative, SentimentNeutral, SentimentMixed, SentimentUnknown}

func (s Sentiment) Valid() bool {
	for _, v := range Sentiments {
		if s == v {
			return true
		}
	}
	return false
}

func ParseSentiment(s string) (Sentiment, bool) {
	for _, v := range Sentiments {
		if strings.EqualFold(string(v), strings.TrimSpace(s)) {
			return v, true
		}
	}
	return "", false
}

type Category string

const (
	CategoryInbox      Category = "Inbox"
	CategoryPriority   Category = "Priority"
	CategoryPromotions Category = "Promotions"
	CategorySocial     Category = "Social"
	CategorySpam       Category = "Spam"
	CategoryArchived   Category = "Archived"
	CategorySent       Category = "Sent"
	CategoryDrafts     Category = "Drafts"
)

var Categories = []Category{
	CategoryInbox, CategoryPriority, CategoryPromotions, CategorySocial,
	CategorySpam, CategoryArchived, CategorySent, CategoryDrafts,
}

func (c Category) Valid() bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}

func ParseCategory(s string) (Category, bool) {
	for _, v := range Categories {
		if strings.EqualFold(string(v), strings.TrimSpace(s)) {
			return v, true
		}
	}
	return "", false
}

// Email is a single mailbox record. Sentiment and Summary are empty until
// computed by the enrichment service.
type Email struct {
	ID        string    `json:"id"`
	Sender    string    `json:"sender"`
	Recipient string    `json:"recipient"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	Timestamp time.Time `json:"timestamp"`
	Read      bool      `json:"read"`
	Priority  Priority  `json:"priority"`
	Sentiment Sentiment `json:"sentiment,omitempty"`
	Category  Category  `json:"category"`
	Tags      []string  `json:"tags,omitempty"`
	Summary   string    `json:"summary,omitempty"`
}

// Clone returns a copy that shares no mutable state with e.
func (e Email) Clone() Email {
	c := e
	if e.Tags != nil {
		c.Tags = append([]string(nil), e.Tags...)
	}
	return c
}

// SentimentOrUnknown returns the computed sentiment, or Unknown when absent.
func (e Email) SentimentOrUnknown() Sentiment {
	if e.Sentiment == "" {
		return SentimentUnknown
	}
	return e.Sentiment
}

func NewEmailID() string {
	return "email_" + uuid.NewString()
}
