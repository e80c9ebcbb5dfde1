package history

import (
	"fmt"
	"testing"

	contractx "github.com/tanpawarit/Chative-Hierarchical-Agent-Director/agent/contract"
)

func TestHistoryKeepsMostRecentTurns(t *testing.T) {
	t.Parallel()

	h := New(3)
	for i := 0; i < 10; i++ {
		h.Append(contractx.RoleUser, fmt.Sprintf("turn-%d", i))
	}

	if got := h.Len(); got != 3 {
		t.Fatalf("Len() = %d, want 3", got)
	}

	got := h.Messages()
	want := []string{"turn-7", "turn-8", "turn-9"}
	for i, msg := range got {
		if msg.Content != want[i] {
			t.Fatalf("Messages()[%d] = %q, want %q", i, msg.Content, want[i])
		}
	}
}

func TestHistoryBoundHoldsAtEveryStep(t *testing.T) {
	t.Parallel()

	h := New(5)
	for i := 0; i < 42; i++ {
		h.Append(contractx.RoleAssistant, "reply")
		if h.Len() > 5 {
			t.Fatalf("Len() = %d after %d appends, want <= 5", h.Len(), i+1)
		}
	}
}

func TestHistoryPreservesRoles(t *testing.T) {
	t.Parallel()

	h := New(4)
	h.Append(contractx.RoleUser, "hello")
	h.Append(contractx.RoleAssistant, "hi there")

	msgs := h.Messages()
	if len(msgs) != 2 {
		t.Fatalf("len(Messages()) = %d, want 2", len(msgs))
	}
	if msgs[0].Role != contractx.RoleUser || msgs[1].Role != contractx.RoleAssistant {
		t.Fatalf("roles = %v/%v, want user/assistant", msgs[0].Role, msgs[1].Role)
	}
}

func TestHistoryClear(t *testing.T) {
	t.Parallel()

	h := New(4)
	h.Append(contractx.RoleUser, "one")
	h.Append(contractx.RoleAssistant, "two")
	h.Clear()

	if got := h.Len(); got != 0 {
		t.Fatalf("Len() after Clear() = %d, want 0", got)
	}

	h.Append(contractx.RoleUser, "three")
	if got := h.Len(); got != 1 {
		t.Fatalf("Len() after append post-Clear() = %d, want 1", got)
	}
}

func TestHistoryMessagesReturnsCopy(t *testing.T) {
	t.Parallel()

	h := New(4)
	h.Append(contractx.RoleUser, "original")

	msgs := h.Messages()
	msgs[0].Content = "mutated"

	if got := h.Messages()[0].Content; got != "original" {
		t.Fatalf("Messages()[0].Content = %q, want %q", got, "original")
	}
}

func TestHistoryDefaultCapacity(t *testing.T) {
	t.Parallel()

	h := New(0)
	if got := h.Max(); got != DefaultMax {
		t.Fatalf("Max() = %d, want %d", got, DefaultMax)
	}
}
