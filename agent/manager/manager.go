package manager

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Chative-Hierarchical-Agent-Director/agent/contract"
	historyx "github.com/tanpawarit/Chative-Hierarchical-Agent-Director/agent/history"
	routingx "github.com/tanpawarit/Chative-Hierarchical-Agent-Director/agent/routing"
	storex "github.com/tanpawarit/Chative-Hierarchical-Agent-Director/agent/store"
)

const DefaultMaxHistory = 15

var _ contractx.Agent = (*Manager)(nil)

// Route declares one destination of a domain coordinator. A Route without an
// Agent is a planned destination: it still attracts keyword traffic, which
// the coordinator then serves locally with an availability note.
type Route struct {
	Name     string
	Title    string
	Keywords []string
	Agent    contractx.Agent
}

// ContextFunc renders the coordinator's extra context message for
// trigger-word requests.
type ContextFunc func(ctx context.Context, st storex.Store, now time.Time, areaID string) string

// DetailsFunc supplies the coordinator's dashboard details.
type DetailsFunc func(ctx context.Context, st storex.Store, now time.Time, areaID string) map[string]any

// Profile fixes the identity and routing surface of one domain coordinator.
type Profile struct {
	Name         string
	Role         string
	SystemPrompt string
	Routes       []Route
	TriggerWords []string
	Context      ContextFunc
	Details      DetailsFunc
}

type Config struct {
	MaxHistory int
	Generation contractx.Generation
	AreaID     string
}

// Manager is a mid-tier coordinator. It routes each utterance to the child
// specialist whose keywords match it best, wraps the child reply in an
// attribution framing, and falls back to answering with its own prompt when
// no destination matches or the chosen one cannot serve.
type Manager struct {
	profile  Profile
	llm      contractx.Completer
	records  storex.Store
	table    routingx.Table
	children map[string]contractx.Agent
	titles   map[string]string
	history  *historyx.History
	gen      contractx.Generation
	areaID   string

	now func() time.Time
}

func New(profile Profile, llm contractx.Completer, records storex.Store, cfg Config) (*Manager, error) {
	if llm == nil {
		return nil, errors.New("completer is required")
	}
	if records == nil {
		return nil, errors.New("record store is required")
	}
	if strings.TrimSpace(profile.Name) == "" {
		return nil, errors.New("profile name is required")
	}
	if strings.TrimSpace(profile.SystemPrompt) == "" {
		return nil, errors.New("profile system prompt is required")
	}
	if len(profile.Routes) == 0 {
		return nil, errors.New("routing table is empty")
	}

	table := make(routingx.Table, 0, len(profile.Routes))
	children := make(map[string]contractx.Agent, len(profile.Routes))
	titles := make(map[string]string, len(profile.Routes))
	for _, r := range profile.Routes {
		if strings.TrimSpace(r.Name) == "" {
			return nil, errors.New("route name is required")
		}
		if len(r.Keywords) == 0 {
			return nil, fmt.Errorf("route %s has no keywords", r.Name)
		}
		if _, dup := titles[r.Name]; dup {
			return nil, fmt.Errorf("route %s declared twice", r.Name)
		}
		if r.Agent != nil && r.Agent.Name() != r.Name {
			return nil, fmt.Errorf("route %s bound to agent %s", r.Name, r.Agent.Name())
		}
		table = append(table, routingx.Destination{Name: r.Name, Keywords: r.Keywords})
		titles[r.Name] = r.Title
		if r.Agent != nil {
			children[r.Name] = r.Agent
		}
	}

	maxHistory := cfg.MaxHistory
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	gen := cfg.Generation
	if gen.MaxTokens <= 0 {
		gen.MaxTokens = 1200
	}

	return &Manager{
		profile:  profile,
		llm:      llm,
		records:  records,
		table:    table,
		children: children,
		titles:   titles,
		history:  historyx.New(maxHistory),
		gen:      gen,
		areaID:   strings.TrimSpace(cfg.AreaID),
		now:      time.Now,
	}, nil
}

func (m *Manager) Name() string {
	return m.profile.Name
}

func (m *Manager) Handle(ctx context.Context, utterance string) (contractx.Result, error) {
	text := strings.TrimSpace(utterance)
	if text == "" {
		return contractx.Result{}, fmt.Errorf("%w: empty utterance", contractx.ErrValidation)
	}

	m.history.Append(contractx.RoleUser, text)

	decision := m.table.Evaluate(text)
	if decision.Kind != routingx.DecisionSingle {
		log.Debug().Str("node", m.profile.Name).Msg("no destination matched, handling locally")
		return m.handleLocal(ctx, text, "", "")
	}

	name := decision.Destination
	child, ok := m.children[name]
	if !ok {
		log.Info().Str("node", m.profile.Name).Str("destination", name).Msg("destination not staffed, handling locally")
		note := fmt.Sprintf("I would route this to your %s specialist, but that team is not staffed yet. Let me help you directly instead.", m.titles[name])
		return m.handleLocal(ctx, text, note, "")
	}

	log.Info().Str("node", m.profile.Name).Str("destination", name).Int("score", decision.Score).Msg("delegating")
	res, err := child.Handle(ctx, text)
	if err != nil {
		log.Warn().Err(err).Str("node", m.profile.Name).Str("destination", name).Msg("delegation failed, handling locally")
		note := fmt.Sprintf("There was an issue reaching your %s specialist. Let me help you directly.", m.titles[name])
		return m.handleLocal(ctx, text, note, err.Error())
	}

	reply := fmt.Sprintf("I've connected you with your %s specialist for this request.\n\n**%s Response:**\n%s",
		m.titles[name], m.titles[name], res.Reply)
	m.history.Append(contractx.RoleAssistant, reply)

	return contractx.Result{
		Reply: reply,
		Trace: &contractx.Trace{
			Kind:     contractx.TraceDelegated,
			Node:     m.profile.Name,
			Child:    name,
			Children: []*contractx.Trace{res.Trace},
		},
	}, nil
}

// handleLocal answers with the coordinator's own prompt. The note, when set,
// prefixes the reply so the user learns why no specialist responded; cause
// carries the underlying delegation error into the trace.
func (m *Manager) handleLocal(ctx context.Context, text, note, cause string) (contractx.Result, error) {
	msgs := make([]contractx.Message, 0, m.history.Len()+2)
	msgs = append(msgs, contractx.Message{Role: contractx.RoleSystem, Content: m.profile.SystemPrompt})
	if block := m.triggerContext(ctx, text); block != "" {
		msgs = append(msgs, contractx.Message{Role: contractx.RoleSystem, Content: "Current context:\n\n" + block})
	}
	msgs = append(msgs, m.history.Messages()...)

	reply, err := m.llm.Complete(ctx, contractx.CompletionRequest{
		Messages:    msgs,
		MaxTokens:   m.gen.MaxTokens,
		Temperature: m.gen.Temperature,
	})
	if err != nil {
		return contractx.Result{}, fmt.Errorf("%s: %w", m.profile.Name, err)
	}
	if note != "" {
		reply = note + "\n\n" + reply
	}
	m.history.Append(contractx.RoleAssistant, reply)

	return contractx.Result{
		Reply: reply,
		Trace: &contractx.Trace{
			Kind:  contractx.TraceLocal,
			Node:  m.profile.Name,
			Error: cause,
		},
	}, nil
}

func (m *Manager) triggerContext(ctx context.Context, text string) string {
	if m.profile.Context == nil {
		return ""
	}
	lower := strings.ToLower(text)
	for _, w := range m.profile.TriggerWords {
		if w != "" && strings.Contains(lower, w) {
			return strings.TrimSpace(m.profile.Context(ctx, m.records, m.now(), m.areaID))
		}
	}
	return ""
}

// Reset clears this coordinator's history, then every child's, synchronously.
func (m *Manager) Reset() {
	m.history.Clear()
	for _, r := range m.profile.Routes {
		if r.Agent != nil {
			r.Agent.Reset()
		}
	}
}

func (m *Manager) Capabilities() contractx.Capability {
	c := contractx.Capability{Name: m.profile.Name, Role: m.profile.Role}
	for _, r := range m.profile.Routes {
		if r.Agent != nil {
			c.Children = append(c.Children, r.Agent.Capabilities())
		}
	}
	return c
}

func (m *Manager) Snapshot(ctx context.Context) contractx.Snapshot {
	snap := contractx.Snapshot{
		Node:       m.profile.Name,
		Status:     "active",
		HistoryLen: m.history.Len(),
		UpdatedAt:  m.now().UTC(),
	}
	if m.profile.Details != nil {
		snap.Details = m.profile.Details(ctx, m.records, m.now(), m.areaID)
	}
	for _, r := range m.profile.Routes {
		if r.Agent != nil {
			snap.Children = append(snap.Children, r.Agent.Snapshot(ctx))
		}
	}
	return snap
}
