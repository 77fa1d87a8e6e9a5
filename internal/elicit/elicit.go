// Package elicit defines the human-interaction channel used by the
// generation workflow: fire-and-forget progress notifications and blocking
// request/response elicitation.
package elicit

import "context"

// Severity classifies a progress notification
type Severity string

const (
	SeverityDebug   Severity = "debug"
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Action is the outcome of an elicitation exchange
type Action string

const (
	// ActionAccept means the human replied; Response.Text carries the reply
	ActionAccept Action = "accept"
	// ActionCancel means the human declined to answer; no data is carried
	ActionCancel Action = "cancel"
)

// Response is the result of an elicitation exchange
type Response struct {
	Action Action
	Text   string
}

// Channel is the boundary to a human operator. Notifications are advisory
// and never affect control flow; Elicit blocks until the human responds
// (any timeout is the host's policy, not this package's).
type Channel interface {
	Notify(ctx context.Context, severity Severity, format string, args ...any)
	Elicit(ctx context.Context, prompt string) (Response, error)
}
