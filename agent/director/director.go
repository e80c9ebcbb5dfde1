package director

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	contractx "github.com/tanpawarit/Chative-Hierarchical-Agent-Director/agent/contract"
	historyx "github.com/tanpawarit/Chative-Hierarchical-Agent-Director/agent/history"
	managerx "github.com/tanpawarit/Chative-Hierarchical-Agent-Director/agent/manager"
	routingx "github.com/tanpawarit/Chative-Hierarchical-Agent-Director/agent/routing"
)

const (
	Name = "director"

	DefaultMaxHistory = 20
)

var _ contractx.Agent = (*Director)(nil)

type route struct {
	name     string
	title    string
	keywords []string
	agent    contractx.Agent
}

// directorRoutes is the executive routing table. Only the health domain is
// staffed today; the other managers are declared so their traffic is
// recognized and answered with executive guidance until they exist.
func directorRoutes(health contractx.Agent) []route {
	return []route{
		{
			name:  managerx.HealthName,
			title: "Health Manager",
			keywords: []string{
				"health", "meal", "food", "eat", "cook", "recipe", "nutrition", "calories",
				"protein", "carbs", "fats", "breakfast", "lunch", "dinner", "snack",
				"diet", "weight", "fitness", "exercise", "workout", "medical", "wellness",
				"blood pressure", "heart rate", "sleep", "vitals", "goals", "chef",
				"equipment", "gym equipment", "weights", "dumbbells", "treadmill", "home gym",
				"office gym", "gear", "machine", "barbell", "kettlebell", "yoga mat",
			},
			agent: health,
		},
		{
			name:  "finance_manager",
			title: "Finance Manager",
			keywords: []string{
				"money", "budget", "finance", "investment", "savings", "expense",
				"bank", "credit", "debt", "payment", "income", "tax", "financial",
			},
		},
		{
			name:  "productivity_manager",
			title: "Productivity Manager",
			keywords: []string{
				"task", "schedule", "calendar", "project", "deadline", "meeting",
				"todo", "productivity", "time", "organization", "work", "planning",
			},
		},
		{
			name:  "learning_manager",
			title: "Learning Manager",
			keywords: []string{
				"learn", "study", "education", "course", "skill", "knowledge",
				"training", "development", "book", "research", "tutorial",
			},
		},
	}
}

// multiPatterns marks the requests that legitimately span domains. A phrase
// hit alone is not enough; at least two domains must also match by keyword.
var multiPatterns = routingx.MultiTable{
	{Label: "health_and_finance", Phrases: []string{"meal budget", "grocery cost", "gym membership", "health insurance"}},
	{Label: "health_and_productivity", Phrases: []string{"meal prep time", "workout schedule", "health goals planning"}},
	{Label: "finance_and_productivity", Phrases: []string{"budget planning", "investment research", "financial goals"}},
}

var triggerWords = []string{"strategy", "overview", "priorities", "plan", "coordinate", "integrate"}

type Config struct {
	MaxHistory int
	Generation contractx.Generation
}

// Director is the root of the dispatch tree. It routes to domain managers,
// coordinates multi-domain requests with a synthesis pass, and answers
// everything else from its own executive prompt.
type Director struct {
	llm       contractx.Completer
	prompt    string
	synthesis string
	routes    []route
	table     routingx.Table
	multi     routingx.MultiTable
	children  map[string]contractx.Agent
	titles    map[string]string
	history   *historyx.History
	gen       contractx.Generation

	now func() time.Time
}

func New(llm contractx.Completer, health contractx.Agent, systemPrompt, synthesisPrompt string, cfg Config) (*Director, error) {
	if llm == nil {
		return nil, errors.New("completer is required")
	}
	if health == nil {
		return nil, errors.New("health manager is required")
	}
	if health.Name() != managerx.HealthName {
		return nil, fmt.Errorf("health route bound to agent %s", health.Name())
	}
	if strings.TrimSpace(systemPrompt) == "" {
		return nil, errors.New("system prompt is required")
	}
	if strings.TrimSpace(synthesisPrompt) == "" {
		return nil, errors.New("synthesis prompt is required")
	}

	routes := directorRoutes(health)
	table := make(routingx.Table, 0, len(routes))
	children := make(map[string]contractx.Agent, len(routes))
	titles := make(map[string]string, len(routes))
	for _, r := range routes {
		table = append(table, routingx.Destination{Name: r.name, Keywords: r.keywords})
		titles[r.name] = r.title
		if r.agent != nil {
			children[r.name] = r.agent
		}
	}

	maxHistory := cfg.MaxHistory
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	gen := cfg.Generation
	if gen.MaxTokens <= 0 {
		gen.MaxTokens = 1500
	}

	return &Director{
		llm:       llm,
		prompt:    systemPrompt,
		synthesis: synthesisPrompt,
		routes:    routes,
		table:     table,
		multi:     multiPatterns,
		children:  children,
		titles:    titles,
		history:   historyx.New(maxHistory),
		gen:       gen,
		now:       time.Now,
	}, nil
}

func (d *Director) Name() string {
	return Name
}

func (d *Director) Handle(ctx context.Context, utterance string) (contractx.Result, error) {
	text := strings.TrimSpace(utterance)
	if text == "" {
		return contractx.Result{}, fmt.Errorf("%w: empty utterance", contractx.ErrValidation)
	}

	d.history.Append(contractx.RoleUser, text)

	decision := routingx.EvaluateMulti(d.table, d.multi, text)
	switch decision.Kind {
	case routingx.DecisionMulti:
		log.Info().Str("node", Name).Strs("domains", decision.Destinations).Msg("coordinating multi-domain request")
		return d.handleMulti(ctx, text, decision.Destinations)
	case routingx.DecisionSingle:
		return d.handleSingle(ctx, text, decision)
	default:
		log.Debug().Str("node", Name).Msg("no domain matched, handling at the executive level")
		return d.handleLocal(ctx, text, "", "")
	}
}

func (d *Director) handleSingle(ctx context.Context, text string, decision routingx.Decision) (contractx.Result, error) {
	name := decision.Destination
	child, ok := d.children[name]
	if !ok {
		log.Info().Str("node", Name).Str("destination", name).Msg("domain not staffed, handling locally")
		note := fmt.Sprintf("I would coordinate with your %s, but that domain manager is not yet available. Let me provide executive-level guidance instead.", d.titles[name])
		return d.handleLocal(ctx, text, note, "")
	}

	log.Info().Str("node", Name).Str("destination", name).Int("score", decision.Score).Msg("delegating")
	res, err := child.Handle(ctx, text)
	if err != nil {
		log.Warn().Err(err).Str("node", Name).Str("destination", name).Msg("delegation failed, handling locally")
		note := fmt.Sprintf("There was an issue coordinating with your %s. Let me handle this at the executive level.", d.titles[name])
		return d.handleLocal(ctx, text, note, err.Error())
	}

	reply := fmt.Sprintf("I'm coordinating with your %s for this request.\n\n**Strategic Coordination:**\n%s",
		d.titles[name], res.Reply)
	d.history.Append(contractx.RoleAssistant, reply)

	return contractx.Result{
		Reply: reply,
		Trace: &contractx.Trace{
			Kind:     contractx.TraceDelegated,
			Node:     Name,
			Child:    name,
			Children: []*contractx.Trace{res.Trace},
		},
	}, nil
}

type domainOutcome struct {
	Reply string `json:"reply,omitempty"`
	Error string `json:"error,omitempty"`
}

// handleMulti fans the utterance out to every involved domain in parallel,
// then asks the Completion Service to synthesize the per-domain outcomes
// into one coordinated reply. A failed or unstaffed domain contributes an
// error entry; it never cancels its siblings.
func (d *Director) handleMulti(ctx context.Context, text string, names []string) (contractx.Result, error) {
	outcomes := make([]domainOutcome, len(names))
	childTraces := make([]*contractx.Trace, len(names))

	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		child, ok := d.children[name]
		if !ok {
			outcomes[i] = domainOutcome{Error: "domain manager not yet available"}
			childTraces[i] = &contractx.Trace{Kind: contractx.TraceFailed, Node: name, Error: "domain manager not yet available"}
			continue
		}
		g.Go(func() error {
			res, err := child.Handle(gctx, text)
			if err != nil {
				log.Warn().Err(err).Str("node", Name).Str("destination", name).Msg("domain failed during fan-out")
				outcomes[i] = domainOutcome{Error: err.Error()}
				childTraces[i] = &contractx.Trace{Kind: contractx.TraceFailed, Node: name, Error: err.Error()}
				return nil
			}
			outcomes[i] = domainOutcome{Reply: res.Reply}
			childTraces[i] = res.Trace
			return nil
		})
	}
	_ = g.Wait()

	byDomain := make(map[string]domainOutcome, len(names))
	for i, name := range names {
		byDomain[name] = outcomes[i]
	}
	rendered, err := json.MarshalIndent(byDomain, "", "  ")
	if err != nil {
		rendered = []byte("{}")
	}

	request := fmt.Sprintf("User request: %s\n\nDomain responses:\n%s\n\n%s", text, rendered, d.synthesis)
	reply, err := d.llm.Complete(ctx, contractx.CompletionRequest{
		Messages: []contractx.Message{
			{Role: contractx.RoleSystem, Content: d.prompt},
			{Role: contractx.RoleUser, Content: request},
		},
		MaxTokens:   d.gen.MaxTokens,
		Temperature: d.gen.Temperature,
	})
	if err != nil {
		return contractx.Result{}, fmt.Errorf("%s: synthesis: %w", Name, err)
	}
	d.history.Append(contractx.RoleAssistant, reply)

	return contractx.Result{
		Reply: reply,
		Trace: &contractx.Trace{
			Kind:     contractx.TraceMulti,
			Node:     Name,
			Involved: names,
			Children: childTraces,
		},
	}, nil
}

func (d *Director) handleLocal(ctx context.Context, text, note, cause string) (contractx.Result, error) {
	msgs := make([]contractx.Message, 0, d.history.Len()+2)
	msgs = append(msgs, contractx.Message{Role: contractx.RoleSystem, Content: d.prompt})
	if d.triggered(text) {
		if block := d.insightContext(ctx); block != "" {
			msgs = append(msgs, contractx.Message{Role: contractx.RoleSystem, Content: "Cross-domain context:\n\n" + block})
		}
	}
	msgs = append(msgs, d.history.Messages()...)

	reply, err := d.llm.Complete(ctx, contractx.CompletionRequest{
		Messages:    msgs,
		MaxTokens:   d.gen.MaxTokens,
		Temperature: d.gen.Temperature,
	})
	if err != nil {
		return contractx.Result{}, fmt.Errorf("%s: %w", Name, err)
	}
	if note != "" {
		reply = note + "\n\n" + reply
	}
	d.history.Append(contractx.RoleAssistant, reply)

	return contractx.Result{
		Reply: reply,
		Trace: &contractx.Trace{
			Kind:  contractx.TraceLocal,
			Node:  Name,
			Error: cause,
		},
	}, nil
}

func (d *Director) triggered(text string) bool {
	lower := strings.ToLower(text)
	for _, w := range triggerWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// insightContext renders the cross-domain picture for strategic requests:
// one snapshot per staffed domain plus standing coordination opportunities.
func (d *Director) insightContext(ctx context.Context) string {
	insights := struct {
		GeneratedAt   time.Time                     `json:"generated_at"`
		Domains       map[string]contractx.Snapshot `json:"domain_statuses"`
		Opportunities []string                      `json:"coordination_opportunities"`
	}{
		GeneratedAt: d.now().UTC(),
		Domains:     make(map[string]contractx.Snapshot, len(d.children)),
	}
	for name, child := range d.children {
		insights.Domains[name] = child.Snapshot(ctx)
	}
	if len(d.children) > 0 {
		insights.Opportunities = []string{
			"Meal prep scheduling optimization",
			"Health goal financial planning",
			"Fitness learning curriculum",
		}
	}

	raw, err := json.MarshalIndent(insights, "", "  ")
	if err != nil {
		return ""
	}
	return string(raw)
}

// Reset clears the executive history and cascades through every staffed
// domain manager.
func (d *Director) Reset() {
	d.history.Clear()
	for _, r := range d.routes {
		if r.agent != nil {
			r.agent.Reset()
		}
	}
}

func (d *Director) Capabilities() contractx.Capability {
	c := contractx.Capability{
		Name: Name,
		Role: "Executive coordinator routing requests across life domains and integrating multi-domain answers",
	}
	for _, r := range d.routes {
		if r.agent != nil {
			c.Children = append(c.Children, r.agent.Capabilities())
		}
	}
	return c
}

func (d *Director) Snapshot(ctx context.Context) contractx.Snapshot {
	snap := contractx.Snapshot{
		Node:       Name,
		Status:     "active",
		HistoryLen: d.history.Len(),
		Details: map[string]any{
			"domains_staffed":  len(d.children),
			"domains_declared": len(d.routes),
		},
		UpdatedAt: d.now().UTC(),
	}
	for _, r := range d.routes {
		if r.agent != nil {
			snap.Children = append(snap.Children, r.agent.Snapshot(ctx))
		}
	}
	return snap
}
