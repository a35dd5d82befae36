package core

// CommandKind identifies which manual trigger a comment invoked.
type CommandKind string

const (
	CommandGenerate CommandKind = "generate"
	CommandShowcase CommandKind = "showcase"
	CommandDemo     CommandKind = "demo"
	CommandSearch   CommandKind = "search"
	CommandList     CommandKind = "list"
)

// Requester identifies the user whose comment triggered a command.
type Requester struct {
	ID          int64
	DisplayName string
}

// TriggerCommand is the structured form of a manual trigger extracted from
// free-text comment body. It is transient: it lives for the duration of one
// request and is never persisted.
type TriggerCommand struct {
	Kind      CommandKind
	Target    string // first token after the command word (showcase, demo)
	Query     string // remainder of the line (search)
	Requester Requester
}
