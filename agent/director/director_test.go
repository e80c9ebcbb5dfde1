package director

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"testing"

	contractx "github.com/tanpawarit/Chative-Hierarchical-Agent-Director/agent/contract"
	managerx "github.com/tanpawarit/Chative-Hierarchical-Agent-Director/agent/manager"
	specialistx "github.com/tanpawarit/Chative-Hierarchical-Agent-Director/agent/specialist"
	storex "github.com/tanpawarit/Chative-Hierarchical-Agent-Director/agent/store"
)

type fakeCompleter struct {
	reply    string
	err      error
	requests []contractx.CompletionRequest
}

func (f *fakeCompleter) Complete(_ context.Context, req contractx.CompletionRequest) (string, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

type insertCall struct {
	kind storex.Kind
	rec  storex.Record
}

type fakeStore struct {
	records map[storex.Kind][]storex.Record
	inserts []insertCall
}

func (f *fakeStore) Query(_ context.Context, kind storex.Kind, _ *storex.Filter) ([]storex.Record, error) {
	return f.records[kind], nil
}

func (f *fakeStore) Insert(_ context.Context, kind storex.Kind, rec storex.Record) error {
	f.inserts = append(f.inserts, insertCall{kind: kind, rec: rec})
	return nil
}

type fakeAgent struct {
	name    string
	reply   string
	err     error
	handled []string
	resets  int
}

var _ contractx.Agent = (*fakeAgent)(nil)

func (f *fakeAgent) Name() string { return f.name }

func (f *fakeAgent) Handle(_ context.Context, utterance string) (contractx.Result, error) {
	f.handled = append(f.handled, utterance)
	if f.err != nil {
		return contractx.Result{}, f.err
	}
	return contractx.Result{
		Reply: f.reply,
		Trace: &contractx.Trace{Kind: contractx.TraceLocal, Node: f.name},
	}, nil
}

func (f *fakeAgent) Reset() { f.resets++ }

func (f *fakeAgent) Capabilities() contractx.Capability {
	return contractx.Capability{Name: f.name, Role: "test double"}
}

func (f *fakeAgent) Snapshot(context.Context) contractx.Snapshot {
	return contractx.Snapshot{Node: f.name, Status: "active"}
}

func newDirectorForTest(t *testing.T, llm *fakeCompleter, health contractx.Agent) *Director {
	t.Helper()
	d, err := New(llm, health, "You are the director.", "Synthesize the domain responses into one coordinated answer.", Config{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return d
}

func TestHandleDelegatesToHealthManager(t *testing.T) {
	t.Parallel()

	llm := &fakeCompleter{reply: "unused"}
	health := &fakeAgent{name: managerx.HealthName, reply: "Greens with every dinner."}
	d := newDirectorForTest(t, llm, health)

	res, err := d.Handle(context.Background(), "what should I eat for dinner")
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if len(health.handled) != 1 || health.handled[0] != "what should I eat for dinner" {
		t.Fatalf("health manager handled = %v, want the raw utterance", health.handled)
	}
	if len(llm.requests) != 0 {
		t.Errorf("completer calls = %d, want 0 on delegation", len(llm.requests))
	}

	want := "I'm coordinating with your Health Manager for this request.\n\n" +
		"**Strategic Coordination:**\nGreens with every dinner."
	if res.Reply != want {
		t.Errorf("Handle() reply = %q, want %q", res.Reply, want)
	}
	if res.Trace.Kind != contractx.TraceDelegated || res.Trace.Child != managerx.HealthName {
		t.Errorf("trace = %+v, want delegated to %s", res.Trace, managerx.HealthName)
	}
}

func TestHandleLocallyWhenNothingMatches(t *testing.T) {
	t.Parallel()

	llm := &fakeCompleter{reply: "Here is a thought to brighten your day."}
	health := &fakeAgent{name: managerx.HealthName}
	d := newDirectorForTest(t, llm, health)

	res, err := d.Handle(context.Background(), "tell me a joke")
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if len(health.handled) != 0 {
		t.Error("health manager was consulted for an unroutable utterance")
	}
	if res.Trace.Kind != contractx.TraceLocal || res.Trace.Node != Name {
		t.Errorf("trace = %+v, want local at %s", res.Trace, Name)
	}
	if got := len(llm.requests[0].Messages); got != 2 {
		t.Errorf("completion messages = %d, want system prompt plus history", got)
	}
}

func TestHandleUnstaffedDomain(t *testing.T) {
	t.Parallel()

	llm := &fakeCompleter{reply: "Track spending weekly and review monthly."}
	d := newDirectorForTest(t, llm, &fakeAgent{name: managerx.HealthName})

	res, err := d.Handle(context.Background(), "help me set a monthly budget")
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	wantNote := "I would coordinate with your Finance Manager, but that domain manager is not yet available."
	if !strings.HasPrefix(res.Reply, wantNote) {
		t.Errorf("Handle() reply = %q, want the availability note first", res.Reply)
	}
	if !strings.Contains(res.Reply, llm.reply) {
		t.Errorf("Handle() reply = %q, want the local completion appended", res.Reply)
	}
	if res.Trace.Kind != contractx.TraceLocal {
		t.Errorf("trace kind = %q, want local", res.Trace.Kind)
	}
}

func TestHandleChildFailureDegrades(t *testing.T) {
	t.Parallel()

	llm := &fakeCompleter{reply: "Start with a balanced plate."}
	health := &fakeAgent{name: managerx.HealthName, err: fmt.Errorf("%w: status 500", contractx.ErrCompletion)}
	d := newDirectorForTest(t, llm, health)

	res, err := d.Handle(context.Background(), "what should I eat for dinner")
	if err != nil {
		t.Fatalf("Handle() error = %v, want the failure absorbed", err)
	}
	if !strings.HasPrefix(res.Reply, "There was an issue coordinating with your Health Manager.") {
		t.Errorf("Handle() reply = %q, want the degradation note first", res.Reply)
	}
	if res.Trace.Kind != contractx.TraceLocal || !strings.Contains(res.Trace.Error, "status 500") {
		t.Errorf("trace = %+v, want local with the delegation error recorded", res.Trace)
	}
}

func TestHandleMultiDomainFanOut(t *testing.T) {
	t.Parallel()

	llm := &fakeCompleter{reply: "Coordinated plan: cook lentils twice a week within 60 dollars."}
	health := &fakeAgent{name: managerx.HealthName, reply: "Greens are cheap and healthy."}
	d := newDirectorForTest(t, llm, health)

	res, err := d.Handle(context.Background(), "help me plan a meal budget for the month")
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	if res.Trace.Kind != contractx.TraceMulti {
		t.Fatalf("trace kind = %q, want multi", res.Trace.Kind)
	}
	wantInvolved := []string{managerx.HealthName, "finance_manager"}
	if !slices.Equal(res.Trace.Involved, wantInvolved) {
		t.Errorf("trace involved = %v, want %v", res.Trace.Involved, wantInvolved)
	}
	if len(res.Trace.Children) != 2 {
		t.Fatalf("trace children = %d, want one per involved domain", len(res.Trace.Children))
	}
	if res.Trace.Children[0].Node != managerx.HealthName || res.Trace.Children[0].Kind != contractx.TraceLocal {
		t.Errorf("health child trace = %+v, want the manager trace", res.Trace.Children[0])
	}
	if res.Trace.Children[1].Kind != contractx.TraceFailed || res.Trace.Children[1].Node != "finance_manager" {
		t.Errorf("finance child trace = %+v, want a failed entry", res.Trace.Children[1])
	}

	if len(llm.requests) != 1 {
		t.Fatalf("completer calls = %d, want the synthesis alone", len(llm.requests))
	}
	synth := llm.requests[0].Messages[1].Content
	for _, want := range []string{
		"User request: help me plan a meal budget for the month",
		`"health_manager"`,
		"Greens are cheap and healthy.",
		`"finance_manager"`,
		"domain manager not yet available",
		"Synthesize the domain responses",
	} {
		if !strings.Contains(synth, want) {
			t.Errorf("synthesis request missing %q:\n%s", want, synth)
		}
	}

	if res.Reply != llm.reply {
		t.Errorf("Handle() reply = %q, want the synthesis completion", res.Reply)
	}
	if got := d.history.Len(); got != 2 {
		t.Errorf("history length = %d, want user turn plus synthesis", got)
	}
}

func TestHandleMultiDomainChildFailure(t *testing.T) {
	t.Parallel()

	llm := &fakeCompleter{reply: "Working around the health desk outage."}
	health := &fakeAgent{name: managerx.HealthName, err: errors.New("downstream timeout")}
	d := newDirectorForTest(t, llm, health)

	res, err := d.Handle(context.Background(), "help me plan a meal budget for the month")
	if err != nil {
		t.Fatalf("Handle() error = %v, want per-domain failures absorbed", err)
	}
	if res.Trace.Children[0].Kind != contractx.TraceFailed {
		t.Errorf("health child trace = %+v, want a failed entry", res.Trace.Children[0])
	}
	if synth := llm.requests[0].Messages[1].Content; !strings.Contains(synth, "downstream timeout") {
		t.Errorf("synthesis request missing the health error:\n%s", synth)
	}
	if res.Reply != llm.reply {
		t.Errorf("Handle() reply = %q, want the synthesis completion", res.Reply)
	}
}

func TestHandleSynthesisFailure(t *testing.T) {
	t.Parallel()

	llm := &fakeCompleter{err: fmt.Errorf("%w: status 500", contractx.ErrCompletion)}
	health := &fakeAgent{name: managerx.HealthName, reply: "fine"}
	d := newDirectorForTest(t, llm, health)

	_, err := d.Handle(context.Background(), "help me plan a meal budget for the month")
	if !errors.Is(err, contractx.ErrCompletion) {
		t.Fatalf("Handle() error = %v, want wrapped ErrCompletion", err)
	}
	if got := d.history.Len(); got != 1 {
		t.Errorf("history length = %d, want the user turn alone", got)
	}
}

func TestTriggerWordAddsInsightContext(t *testing.T) {
	t.Parallel()

	llm := &fakeCompleter{reply: "Your domains look healthy overall."}
	d := newDirectorForTest(t, llm, &fakeAgent{name: managerx.HealthName})

	if _, err := d.Handle(context.Background(), "give me an overview of where things stand"); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	req := llm.requests[0]
	if len(req.Messages) != 3 {
		t.Fatalf("completion messages = %d, want prompt, context, history", len(req.Messages))
	}
	block := req.Messages[1].Content
	for _, want := range []string{"domain_statuses", managerx.HealthName, "coordination_opportunities"} {
		if !strings.Contains(block, want) {
			t.Errorf("insight context missing %q:\n%s", want, block)
		}
	}
}

func TestResetCascades(t *testing.T) {
	t.Parallel()

	health := &fakeAgent{name: managerx.HealthName, reply: "done"}
	d := newDirectorForTest(t, &fakeCompleter{reply: "ok"}, health)

	if _, err := d.Handle(context.Background(), "what should I eat for dinner"); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	d.Reset()
	if got := d.history.Len(); got != 0 {
		t.Errorf("history length after Reset() = %d, want 0", got)
	}
	if health.resets != 1 {
		t.Errorf("health manager resets = %d, want 1", health.resets)
	}
}

func TestCapabilitiesAndSnapshot(t *testing.T) {
	t.Parallel()

	d := newDirectorForTest(t, &fakeCompleter{}, &fakeAgent{name: managerx.HealthName})

	caps := d.Capabilities()
	if caps.Name != Name || len(caps.Children) != 1 {
		t.Errorf("Capabilities() = %+v, want the staffed health domain alone", caps)
	}

	snap := d.Snapshot(context.Background())
	if snap.Node != Name || len(snap.Children) != 1 {
		t.Errorf("Snapshot() = %+v, want the staffed health domain alone", snap)
	}
	if got := snap.Details["domains_staffed"]; got != 1 {
		t.Errorf("snapshot domains_staffed = %v, want 1", got)
	}
	if got := snap.Details["domains_declared"]; got != 4 {
		t.Errorf("snapshot domains_declared = %v, want 4", got)
	}
}

func TestNewValidatesConfiguration(t *testing.T) {
	t.Parallel()

	llm := &fakeCompleter{}
	health := &fakeAgent{name: managerx.HealthName}

	if _, err := New(nil, health, "p", "s", Config{}); err == nil {
		t.Error("New(nil completer) error = nil, want error")
	}
	if _, err := New(llm, nil, "p", "s", Config{}); err == nil {
		t.Error("New(nil health manager) error = nil, want error")
	}
	if _, err := New(llm, &fakeAgent{name: "someone_else"}, "p", "s", Config{}); err == nil {
		t.Error("New(misnamed health manager) error = nil, want error")
	}
	if _, err := New(llm, health, " ", "s", Config{}); err == nil {
		t.Error("New(blank system prompt) error = nil, want error")
	}
	if _, err := New(llm, health, "p", " ", Config{}); err == nil {
		t.Error("New(blank synthesis prompt) error = nil, want error")
	}
}

const mealLogReply = "Logged your lunch, a solid balance of protein and carbs.\n\n" +
	"**MEAL_LOG:**\n" +
	"- meal_details: Grilled chicken with rice\n" +
	"- calories: 620\n" +
	"- protein: 45\n" +
	"- carbs: 70\n" +
	"- fats: 12\n"

// TestEndToEndMealLogging drives the full tree with real nodes: the director
// hands the utterance to the health manager, which hands it to the meal
// specialist, whose reply carries a MEAL_LOG block that lands in the food
// log. Only the leaf talks to the completion service.
func TestEndToEndMealLogging(t *testing.T) {
	t.Parallel()

	llm := &fakeCompleter{reply: mealLogReply}
	st := &fakeStore{}

	meal, err := specialistx.NewMeal(llm, st, "You are the meal specialist.", specialistx.Config{})
	if err != nil {
		t.Fatalf("NewMeal() error = %v", err)
	}
	equipment, err := specialistx.NewEquipment(llm, st, "You are the equipment specialist.", specialistx.Config{})
	if err != nil {
		t.Fatalf("NewEquipment() error = %v", err)
	}
	health, err := managerx.NewHealth(llm, st, "You are the health manager.", managerx.Config{}, meal, equipment)
	if err != nil {
		t.Fatalf("NewHealth() error = %v", err)
	}
	d, err := New(llm, health, "You are the director.", "Synthesize the domain responses.", Config{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	res, err := d.Handle(context.Background(), "I ate chicken and rice for lunch")
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	wantPath := []string{Name, managerx.HealthName, specialistx.MealName}
	if got := res.Trace.Path(); !slices.Equal(got, wantPath) {
		t.Errorf("trace path = %v, want %v", got, wantPath)
	}
	if !res.Trace.SideEffectApplied() {
		t.Error("trace side effect = false, want the leaf insert to surface")
	}

	if len(st.inserts) != 1 {
		t.Fatalf("store inserts = %d, want exactly 1", len(st.inserts))
	}
	if st.inserts[0].kind != storex.KindFoodLog {
		t.Errorf("insert kind = %q, want %q", st.inserts[0].kind, storex.KindFoodLog)
	}
	if got := st.inserts[0].rec["calories"]; got != 620 {
		t.Errorf("insert calories = %v, want 620", got)
	}

	if len(llm.requests) != 1 {
		t.Errorf("completer calls = %d, want the leaf call alone", len(llm.requests))
	}

	for _, want := range []string{
		"I'm coordinating with your Health Manager",
		"**Strategic Coordination:**",
		"I've connected you with your Meal Planning specialist",
		"**Meal Planning Response:**",
		"**MEAL_LOG:**",
	} {
		if !strings.Contains(res.Reply, want) {
			t.Errorf("reply missing %q:\n%s", want, res.Reply)
		}
	}

	d.Reset()
	for name, got := range map[string]int{
		"director":   d.history.Len(),
		"manager":    health.Snapshot(context.Background()).HistoryLen,
		"specialist": meal.Snapshot(context.Background()).HistoryLen,
	} {
		if got != 0 {
			t.Errorf("%s history after Reset() = %d, want 0", name, got)
		}
	}
}
