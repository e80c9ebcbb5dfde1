package routing

import "strings"

// Destination pairs a routable name with its trigger keywords.
type Destination struct {
	Name     string
	Keywords []string
}

// Table is the immutable routing table of one router node. Declaration order
// is significant: equal match counts resolve to the destination declared
// first, which keeps routing deterministic for a fixed table.
type Table []Destination

type DecisionKind string

const (
	DecisionNone   DecisionKind = "none"
	DecisionSingle DecisionKind = "single"
	DecisionMulti  DecisionKind = "multi"
)

type Decision struct {
	Kind         DecisionKind
	Destination  string
	Destinations []string
	Score        int
}

// Evaluate counts, for every destination, how many of its keywords occur in
// the utterance as a case-insensitive substring, and selects the destination
// with the strictly highest count. Zero hits anywhere yields DecisionNone.
func (t Table) Evaluate(utterance string) Decision {
	text := strings.ToLower(utterance)

	best := Decision{Kind: DecisionNone}
	for _, dest := range t {
		score := matchCount(text, dest.Keywords)
		if score > best.Score {
			best = Decision{Kind: DecisionSingle, Destination: dest.Name, Score: score}
		}
	}
	return best
}

// Matched returns every destination with at least one keyword hit, in
// declaration order.
func (t Table) Matched(utterance string) []string {
	text := strings.ToLower(utterance)

	var names []string
	for _, dest := range t {
		if matchCount(text, dest.Keywords) > 0 {
			names = append(names, dest.Name)
		}
	}
	return names
}

func matchCount(loweredText string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(loweredText, strings.ToLower(kw)) {
			n++
		}
	}
	return n
}

// MultiPattern groups the trigger phrases of one coordination label.
type MultiPattern struct {
	Label   string
	Phrases []string
}

// MultiTable lists the phrase patterns that mark a request as legitimately
// spanning more than one domain. Only the root of the tree carries one.
type MultiTable []MultiPattern

// Match reports the label of the first pattern containing a phrase that
// occurs in the utterance.
func (m MultiTable) Match(utterance string) (string, bool) {
	text := strings.ToLower(utterance)
	for _, p := range m {
		for _, phrase := range p.Phrases {
			if phrase == "" {
				continue
			}
			if strings.Contains(text, strings.ToLower(phrase)) {
				return p.Label, true
			}
		}
	}
	return "", false
}

// EvaluateMulti is the root-level composition of the two evaluators: a
// phrase hit promotes the request to multi-destination handling when at
// least two destinations have keyword hits; anything less falls back to
// plain single-destination evaluation.
func EvaluateMulti(t Table, m MultiTable, utterance string) Decision {
	if _, ok := m.Match(utterance); ok {
		if names := t.Matched(utterance); len(names) >= 2 {
			return Decision{Kind: DecisionMulti, Destinations: names}
		}
	}
	return t.Evaluate(utterance)
}
