package domain

import (
	"time"
)

// AlertRuleConfig is an operator-defined alert rule. The expression is
// a CEL boolean over the scoring input; when it evaluates true, the
// rule's message is appended to the alert signals of a score result.
// Rules never change the numeric score.
type AlertRuleConfig struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Expression  string    `json:"expression"`
	Message     string    `json:"message"`
	Enabled     bool      `json:"enabled"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
