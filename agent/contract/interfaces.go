package contract

import "context"

// Agent is one router node of the dispatch tree. Handle processes a single
// utterance synchronously; node-internal failures travel upward as errors so
// a parent can degrade instead of crashing. Reset clears the node's history
// and cascades through its children.
type Agent interface {
	Name() string
	Handle(ctx context.Context, utterance string) (Result, error)
	Reset()
	Capabilities() Capability
	Snapshot(ctx context.Context) Snapshot
}

// Completer is the text-generation collaborator boundary.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}
