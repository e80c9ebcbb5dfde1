package dispatch

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Chative-Hierarchical-Agent-Director/agent/contract"
)

// Dispatcher is the public entry point of the dispatch tree. It adds a
// request id, converts root-level failures into plain-text replies, and
// exposes the tree-wide operations; all routing decisions stay in the nodes.
type Dispatcher struct {
	root contractx.Agent

	newID func() string
}

func New(root contractx.Agent) (*Dispatcher, error) {
	if root == nil {
		return nil, errors.New("root agent is required")
	}
	return &Dispatcher{root: root, newID: uuid.NewString}, nil
}

func MustNew(root contractx.Agent) *Dispatcher {
	d, err := New(root)
	if err != nil {
		panic(err)
	}
	return d
}

// Handle serves one utterance. It never returns an error: a failure that
// reaches the root is rendered as an explanatory reply with a failed trace.
func (d *Dispatcher) Handle(ctx context.Context, utterance string) contractx.Result {
	id := d.newID()
	logger := log.With().Str("request_id", id).Logger()

	res, err := d.root.Handle(ctx, utterance)
	if err != nil {
		logger.Error().Err(err).Msg("request failed")
		return contractx.Result{
			Reply: failureReply(err),
			Trace: &contractx.Trace{
				Kind:      contractx.TraceFailed,
				Node:      d.root.Name(),
				Error:     err.Error(),
				RequestID: id,
			},
		}
	}

	if res.Trace != nil {
		res.Trace.RequestID = id
		logger.Info().
			Str("kind", string(res.Trace.Kind)).
			Bool("side_effect", res.Trace.SideEffectApplied()).
			Msg("request served")
	}
	return res
}

func failureReply(err error) string {
	switch {
	case errors.Is(err, contractx.ErrValidation):
		return "I need a message to work with. Tell me what you'd like help with."
	case errors.Is(err, contractx.ErrCompletion):
		return "I couldn't reach the language service just now. Give it a moment and try again."
	default:
		return "Something went wrong while handling that request. Please try again."
	}
}

// ResetAll clears conversation memory across the whole tree.
func (d *Dispatcher) ResetAll() {
	d.root.Reset()
}

func (d *Dispatcher) Capabilities() contractx.Capability {
	return d.root.Capabilities()
}

func (d *Dispatcher) Dashboard(ctx context.Context) contractx.Snapshot {
	return d.root.Snapshot(ctx)
}
