package core

// OutcomeKind classifies what actually happened while handling an event. The
// external contract is always-200 after authentication, so handlers return a
// typed outcome instead of an error; tests assert on it directly rather than
// inferring behavior from logs.
type OutcomeKind string

const (
	OutcomeOK          OutcomeKind = "ok"
	OutcomeIgnored     OutcomeKind = "ignored"
	OutcomeErrorLogged OutcomeKind = "error_logged"
)

// Outcome is the result of routing one verified, deduplicated event.
type Outcome struct {
	Kind   OutcomeKind
	Detail string
}

// OK reports a handled event.
func OK(detail string) Outcome { return Outcome{Kind: OutcomeOK, Detail: detail} }

// Ignored reports an event that was acknowledged without action.
func Ignored(detail string) Outcome { return Outcome{Kind: OutcomeIgnored, Detail: detail} }

// ErrorLogged reports a post-authentication failure that was logged and
// swallowed so the sender does not retry.
func ErrorLogged(detail string) Outcome {
	return Outcome{Kind: OutcomeErrorLogged, Detail: detail}
}
