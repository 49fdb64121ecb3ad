package filter

import (
	"regexp"
	"strings"

	"mailfilter/internal/model"
)

// Matches reports whether a single condition holds for email. Unsupported
// fields or operators and invalid regular expressions never match.
func Matches(email model.Email, cond model.Condition) bool {
	switch c := cond.(type) {
	case model.TextCondition:
		return matchText(email, c)
	case *model.TextCondition:
		return c != nil && matchText(email, *c)
	case model.EnumCondition:
		return matchEnum(email, c)
	case *model.EnumCondition:
		return c != nil && matchEnum(email, *c)
	default:
		return false
	}
}

func textFieldValue(email model.Email, field model.TextField) (string, bool) {
	switch field {
	case model.FieldSender:
		return email.Sender, true
	case model.FieldSubject:
		return email.Subject, true
	case model.FieldBody:
		return email.Body, true
	default:
		return "", false
	}
}

func matchText(email model.Email, c model.TextCondition) bool {
	raw, ok := textFieldValue(email, c.Field)
	if !ok {
		return false
	}
	fieldValue := strings.ToLower(raw)
	value := strings.ToLower(c.Value)

	switch c.Operator {
	case model.OpContains:
		return strings.Contains(fieldValue, value)
	case model.OpNotContains:
		return !strings.Contains(fieldValue, value)
	case model.OpEquals:
		return fieldValue == value
	case model.OpStartsWith:
		return strings.HasPrefix(fieldValue, value)
	case model.OpEndsWith:
		return strings.HasSuffix(fieldValue, value)
	case model.OpMatchesRegex:
		re, err := regexp.Compile("(?i)" + c.Value)
		if err != nil {
			return false
		}
		return re.MatchString(fieldValue)
	default:
		return false
	}
}

func matchEnum(email model.Email, c model.EnumCondition) bool {
	var fieldValue string
	switch c.Field {
	case model.FieldSentiment:
		fieldValue = string(email.SentimentOrUnknown())
	case model.FieldPriorityScore:
		fieldValue = string(email.Priority)
	default:
		return false
	}

	switch c.Operator {
	case model.OpIs:
		return strings.EqualFold(fieldValue, c.Value)
	case model.OpIsNot:
		return !strings.EqualFold(fieldValue, c.Value)
	default:
		return false
	}
}
