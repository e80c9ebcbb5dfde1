package specialist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Chative-Hierarchical-Agent-Director/agent/contract"
	historyx "github.com/tanpawarit/Chative-Hierarchical-Agent-Director/agent/history"
	markerx "github.com/tanpawarit/Chative-Hierarchical-Agent-Director/agent/marker"
	storex "github.com/tanpawarit/Chative-Hierarchical-Agent-Director/agent/store"
)

const DefaultMaxHistory = 10

var _ contractx.Agent = (*Specialist)(nil)

// QueryID names one context query of a profile.
type QueryID string

// Env carries the per-call values a context query may depend on.
type Env struct {
	Utterance string
	Now       time.Time
	AreaID    string
}

// QueryFunc renders one context section. Store failures degrade inside the
// query to its own empty rendering; a query never fails the request.
type QueryFunc func(ctx context.Context, st storex.Store, env Env) string

// ContextRule selects a query when any of its keywords occurs in the
// utterance. A rule without keywords is always selected.
type ContextRule struct {
	Keywords []string
	Query    QueryID
}

// ApplyFunc converts extracted marker values into the store write of the
// profile's side effect.
type ApplyFunc func(values markerx.Values, env Env) (storex.Kind, storex.Record, error)

// Profile fixes the identity and behavior of one leaf specialist: its
// prompt, context rules, marker grammar, and side-effect mapping. Profiles
// are immutable after construction.
type Profile struct {
	Name         string
	Role         string
	SystemPrompt string
	Rules        []ContextRule
	Defaults     []QueryID
	Queries      map[QueryID]QueryFunc
	Marker       markerx.Spec
	Apply        ApplyFunc
}

type Config struct {
	MaxHistory int
	Generation contractx.Generation
	AreaID     string
}

// Specialist is a leaf node of the dispatch tree. It has no children: every
// utterance is handled locally with Domain Store context, and the generated
// reply is scanned for the profile's side-effect marker.
type Specialist struct {
	profile Profile
	llm     contractx.Completer
	records storex.Store
	history *historyx.History
	gen     contractx.Generation
	areaID  string

	now func() time.Time
}

func New(profile Profile, llm contractx.Completer, records storex.Store, cfg Config) (*Specialist, error) {
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
	if len(profile.Queries) == 0 {
		return nil, errors.New("profile has no context queries")
	}
	if profile.Apply == nil {
		return nil, errors.New("profile side-effect apply is required")
	}

	maxHistory := cfg.MaxHistory
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	gen := cfg.Generation
	if gen.MaxTokens <= 0 {
		gen.MaxTokens = 1000
	}

	return &Specialist{
		profile: profile,
		llm:     llm,
		records: records,
		history: historyx.New(maxHistory),
		gen:     gen,
		areaID:  strings.TrimSpace(cfg.AreaID),
		now:     time.Now,
	}, nil
}

func (s *Specialist) Name() string {
	return s.profile.Name
}

func (s *Specialist) Handle(ctx context.Context, utterance string) (contractx.Result, error) {
	text := strings.TrimSpace(utterance)
	if text == "" {
		return contractx.Result{}, fmt.Errorf("%w: empty utterance", contractx.ErrValidation)
	}

	s.history.Append(contractx.RoleUser, text)

	env := Env{Utterance: text, Now: s.now(), AreaID: s.areaID}

	msgs := make([]contractx.Message, 0, s.history.Len()+2)
	msgs = append(msgs, contractx.Message{Role: contractx.RoleSystem, Content: s.profile.SystemPrompt})
	if block := s.gatherContext(ctx, env); block != "" {
		msgs = append(msgs, contractx.Message{Role: contractx.RoleSystem, Content: "Current context:\n\n" + block})
	}
	msgs = append(msgs, s.history.Messages()...)

	reply, err := s.llm.Complete(ctx, contractx.CompletionRequest{
		Messages:    msgs,
		MaxTokens:   s.gen.MaxTokens,
		Temperature: s.gen.Temperature,
	})
	if err != nil {
		// The user turn stays in history; a failed call legitimately
		// leaves a user turn without a matching assistant turn.
		return contractx.Result{}, fmt.Errorf("%s: %w", s.profile.Name, err)
	}

	s.history.Append(contractx.RoleAssistant, reply)

	applied := s.applySideEffect(ctx, reply, env)

	return contractx.Result{
		Reply: reply,
		Trace: &contractx.Trace{
			Kind:       contractx.TraceLocal,
			Node:       s.profile.Name,
			SideEffect: applied,
		},
	}, nil
}

// gatherContext executes the selected context queries and joins their
// renderings with a blank line, in selection order.
func (s *Specialist) gatherContext(ctx context.Context, env Env) string {
	ids := s.selectQueries(env.Utterance)

	sections := make([]string, 0, len(ids))
	for _, id := range ids {
		query, ok := s.profile.Queries[id]
		if !ok {
			continue
		}
		if section := strings.TrimSpace(query(ctx, s.records, env)); section != "" {
			sections = append(sections, section)
		}
	}

	log.Debug().Str("node", s.profile.Name).Int("queries", len(ids)).Msg("context gathered")
	return strings.Join(sections, "\n\n")
}

// selectQueries walks the profile rules in order, keeping the first
// occurrence of every selected query. When no keyword rule matches, the
// profile defaults are selected instead of sending bare context.
func (s *Specialist) selectQueries(utterance string) []QueryID {
	text := strings.ToLower(utterance)

	var ids []QueryID
	seen := make(map[QueryID]struct{}, len(s.profile.Rules))
	add := func(id QueryID) {
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	matched := false
	for _, rule := range s.profile.Rules {
		if len(rule.Keywords) == 0 {
			add(rule.Query)
			continue
		}
		for _, kw := range rule.Keywords {
			if kw != "" && strings.Contains(text, kw) {
				add(rule.Query)
				matched = true
				break
			}
		}
	}

	if !matched {
		for _, id := range s.profile.Defaults {
			add(id)
		}
	}
	return ids
}

// applySideEffect scans the reply for the profile's marker block and issues
// at most one insert. Anything short of a complete, well-typed block means
// no write; an insert failure is reported as false, never raised.
func (s *Specialist) applySideEffect(ctx context.Context, reply string, env Env) bool {
	values, err := s.profile.Marker.Extract(reply)
	if err != nil {
		if !errors.Is(err, markerx.ErrNoBlock) {
			log.Warn().Err(err).Str("node", s.profile.Name).Msg("marker block rejected")
		}
		return false
	}

	kind, rec, err := s.profile.Apply(values, env)
	if err != nil {
		log.Warn().Err(err).Str("node", s.profile.Name).Msg("marker values rejected")
		return false
	}

	if err := s.records.Insert(ctx, kind, rec); err != nil {
		log.Warn().Err(err).Str("node", s.profile.Name).Str("kind", string(kind)).Msg("side-effect insert failed")
		return false
	}

	log.Info().Str("node", s.profile.Name).Str("kind", string(kind)).Msg("side effect applied")
	return true
}

func (s *Specialist) Reset() {
	s.history.Clear()
}

func (s *Specialist) Capabilities() contractx.Capability {
	return contractx.Capability{Name: s.profile.Name, Role: s.profile.Role}
}

func (s *Specialist) Snapshot(context.Context) contractx.Snapshot {
	return contractx.Snapshot{
		Node:       s.profile.Name,
		Status:     "active",
		HistoryLen: s.history.Len(),
		UpdatedAt:  s.now().UTC(),
	}
}
