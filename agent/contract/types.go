package contract

import "time"

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Level identifies a tier of the dispatch tree, used for per-tier
// generation tuning.
type Level string

const (
	LevelDirector   Level = "director"
	LevelManager    Level = "manager"
	LevelSpecialist Level = "specialist"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type CompletionRequest struct {
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
}

type Generation struct {
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

type TraceKind string

const (
	TraceLocal     TraceKind = "local"
	TraceDelegated TraceKind = "delegated"
	TraceMulti     TraceKind = "multi"
	TraceFailed    TraceKind = "failed"
)

// Trace records how one utterance moved through the tree. Delegated traces
// nest the child trace; multi traces hold one child entry per involved
// domain, with failures carried as Error strings instead of nested replies.
type Trace struct {
	Kind       TraceKind `json:"kind"`
	Node       string    `json:"node"`
	Child      string    `json:"child,omitempty"`
	Involved   []string  `json:"involved,omitempty"`
	SideEffect bool      `json:"side_effect,omitempty"`
	Error      string    `json:"error,omitempty"`
	RequestID  string    `json:"request_id,omitempty"`
	Children   []*Trace  `json:"children,omitempty"`
}

// Path returns the chain of node names the request passed through, following
// single delegation down to the node that produced the reply.
func (t *Trace) Path() []string {
	if t == nil {
		return nil
	}
	path := []string{t.Node}
	cur := t
	for cur.Kind == TraceDelegated && len(cur.Children) > 0 {
		cur = cur.Children[0]
		path = append(path, cur.Node)
	}
	return path
}

// SideEffectApplied reports whether any node in the trace tree applied a
// domain-record side effect.
func (t *Trace) SideEffectApplied() bool {
	if t == nil {
		return false
	}
	if t.SideEffect {
		return true
	}
	for _, c := range t.Children {
		if c.SideEffectApplied() {
			return true
		}
	}
	return false
}

type Result struct {
	Reply string `json:"reply"`
	Trace *Trace `json:"trace,omitempty"`
}

type Capability struct {
	Name     string       `json:"name"`
	Role     string       `json:"role"`
	Children []Capability `json:"children,omitempty"`
}

type Snapshot struct {
	Node       string         `json:"node"`
	Status     string         `json:"status"`
	HistoryLen int            `json:"history_len"`
	Details    map[string]any `json:"details,omitempty"`
	Children   []Snapshot     `json:"children,omitempty"`
	UpdatedAt  time.Time      `json:"updated_at"`
}
