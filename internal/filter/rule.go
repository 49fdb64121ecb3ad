package filter

import "mailfilter/internal/model"

// Fires reports whether an active rule's conditions all hold for email.
// Evaluation stops at the first condition that does not match. A rule with
// no conditions fires; Validate keeps such rules out upstream.
func Fires(email model.Email, rule model.FilterRule) bool {
	if !rule.IsActive {
		return false
	}
	for _, c := range rule.Conditions {
		if !Matches(email, c) {
			return false
		}
	}
	return true
}
