package realtime

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/tkaria/payguard/internal/decision"
)

func testHub() *Hub {
	return NewHub(slog.Default())
}

func decisionEvent(userID string, label decision.Label) *DecisionEvent {
	return &DecisionEvent{
		Type:      "decision",
		Timestamp: time.Now(),
		Decision:  &decision.Decision{ID: "dec_test", UserID: userID, Label: label},
	}
}

// ---------------------------------------------------------------------------
// Subscription filter tests
// ---------------------------------------------------------------------------

func TestWants_AllEvents(t *testing.T) {
	client := &Client{sub: Subscription{AllEvents: true}}

	if !client.wants(decisionEvent("alice", decision.LabelNormal)) {
		t.Error("AllEvents client should receive all events")
	}
}

func TestWants_UserFilter(t *testing.T) {
	client := &Client{sub: Subscription{UserIDs: []string{"alice"}}}

	if !client.wants(decisionEvent("alice", decision.LabelNormal)) {
		t.Error("Should receive watched user's decisions")
	}
	if client.wants(decisionEvent("bob", decision.LabelNormal)) {
		t.Error("Should NOT receive other users' decisions")
	}
}

func TestWants_LabelFilter(t *testing.T) {
	client := &Client{sub: Subscription{Labels: []decision.Label{decision.LabelFraud}}}

	if !client.wants(decisionEvent("alice", decision.LabelFraud)) {
		t.Error("Should receive fraud decisions")
	}
	if client.wants(decisionEvent("alice", decision.LabelNormal)) {
		t.Error("Should NOT receive normal decisions")
	}
}

func TestWants_CombinedFilters(t *testing.T) {
	client := &Client{sub: Subscription{
		UserIDs: []string{"alice"},
		Labels:  []decision.Label{decision.LabelFraud},
	}}

	if !client.wants(decisionEvent("alice", decision.LabelFraud)) {
		t.Error("Should receive matching user+label")
	}
	if client.wants(decisionEvent("alice", decision.LabelNormal)) {
		t.Error("Label filter should apply")
	}
	if client.wants(decisionEvent("bob", decision.LabelFraud)) {
		t.Error("User filter should apply")
	}
}

func TestWants_EmptySubscription(t *testing.T) {
	// No filters, not AllEvents: everything passes.
	client := &Client{sub: Subscription{}}

	if !client.wants(decisionEvent("alice", decision.LabelNormal)) {
		t.Error("Empty subscription (no filters) should receive events")
	}
}

// ---------------------------------------------------------------------------
// Hub lifecycle tests
// ---------------------------------------------------------------------------

func TestHub_Stats_Initial(t *testing.T) {
	h := testHub()

	stats := h.Stats()
	if stats["connectedClients"].(int) != 0 {
		t.Errorf("Expected 0 connected clients, got %v", stats["connectedClients"])
	}
	if stats["totalEvents"].(int64) != 0 {
		t.Errorf("Expected 0 total events, got %v", stats["totalEvents"])
	}
}

func TestHub_DecisionRenderedCountsEvents(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	h.DecisionRendered(&decision.Decision{ID: "dec_1", UserID: "alice", Label: decision.LabelNormal})
	time.Sleep(50 * time.Millisecond)

	stats := h.Stats()
	if stats["totalEvents"].(int64) != 1 {
		t.Errorf("Expected 1 total event, got %v", stats["totalEvents"])
	}
}

func TestHub_RegisterUnregister(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	client := &Client{
		hub:  h,
		send: make(chan []byte, 256),
		sub:  Subscription{AllEvents: true},
	}

	h.register <- client
	time.Sleep(50 * time.Millisecond)

	if got := h.Stats()["connectedClients"].(int); got != 1 {
		t.Errorf("Expected 1 connected client, got %d", got)
	}

	h.unregister <- client
	time.Sleep(50 * time.Millisecond)

	if got := h.Stats()["connectedClients"].(int); got != 0 {
		t.Errorf("Expected 0 connected clients after unregister, got %d", got)
	}
}

func TestHub_BroadcastToClient(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	client := &Client{
		hub:  h,
		send: make(chan []byte, 256),
		sub:  Subscription{AllEvents: true},
	}

	h.register <- client
	time.Sleep(50 * time.Millisecond)

	h.DecisionRendered(&decision.Decision{ID: "dec_1", UserID: "alice", Label: decision.LabelFraud})

	select {
	case msg := <-client.send:
		if len(msg) == 0 {
			t.Error("Expected non-empty message")
		}
	case <-time.After(time.Second):
		t.Error("Timeout waiting for broadcast")
	}
}

func TestHub_FilteredBroadcast(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	// Client only wants fraud decisions
	client := &Client{
		hub:  h,
		send: make(chan []byte, 256),
		sub:  Subscription{Labels: []decision.Label{decision.LabelFraud}},
	}

	h.register <- client
	time.Sleep(50 * time.Millisecond)

	h.DecisionRendered(&decision.Decision{ID: "dec_1", UserID: "alice", Label: decision.LabelNormal})
	time.Sleep(100 * time.Millisecond)

	select {
	case <-client.send:
		t.Error("Client should NOT receive normal decisions")
	default:
		// Good - filtered out
	}

	h.DecisionRendered(&decision.Decision{ID: "dec_2", UserID: "alice", Label: decision.LabelFraud})

	select {
	case msg := <-client.send:
		if len(msg) == 0 {
			t.Error("Expected non-empty message")
		}
	case <-time.After(time.Second):
		t.Error("Client should receive fraud decisions")
	}
}

func TestHub_ContextCancellation(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
		// Hub stopped
	case <-time.After(2 * time.Second):
		t.Error("Hub did not stop after context cancellation")
	}
}
