package realtime

import (
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
)

func testOrgID(t *testing.T) snowflake.ID {
	t.Helper()

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return node.Generate()
}

func recvEvent(t *testing.T, sub *Subscription) Event {
	t.Helper()

	select {
	case event := <-sub.Events():
		return event
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestHubDeliversToSubscriber(t *testing.T) {
	hub := NewHub()
	orgID := testOrgID(t)

	sub, backlog, err := hub.Subscribe(orgID)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()
	if len(backlog) != 0 {
		t.Fatalf("backlog = %d events, want 0", len(backlog))
	}

	hub.Publish(orgID, Event{Type: "payment.paid", EntityType: "payment", EntityID: "42"})

	event := recvEvent(t, sub)
	if event.Type != "payment.paid" || event.EntityID != "42" {
		t.Fatalf("event = %+v", event)
	}
	if event.ID == "" {
		t.Fatal("event id not assigned")
	}
	if event.OccurredAt.IsZero() {
		t.Fatal("occurred_at not stamped")
	}
}

func TestHubReplaysBacklogToLateSubscriber(t *testing.T) {
	hub := NewHub()
	orgID := testOrgID(t)

	for i := 0; i < 3; i++ {
		hub.Publish(orgID, Event{Type: fmt.Sprintf("event.%d", i), EntityType: "contract"})
	}

	sub, backlog, err := hub.Subscribe(orgID)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()

	if len(backlog) != 3 {
		t.Fatalf("backlog = %d events, want 3", len(backlog))
	}
	for i, event := range backlog {
		if event.Type != fmt.Sprintf("event.%d", i) {
			t.Fatalf("backlog[%d] = %+v, order lost", i, event)
		}
	}
}

func TestHubBacklogBounded(t *testing.T) {
	hub := NewHub()
	orgID := testOrgID(t)

	total := DefaultBufferSize + 10
	for i := 0; i < total; i++ {
		hub.Publish(orgID, Event{Type: fmt.Sprintf("event.%d", i), EntityType: "unit"})
	}

	sub, backlog, err := hub.Subscribe(orgID)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()

	if len(backlog) != DefaultBufferSize {
		t.Fatalf("backlog = %d events, want %d", len(backlog), DefaultBufferSize)
	}
	if backlog[0].Type != fmt.Sprintf("event.%d", total-DefaultBufferSize) {
		t.Fatalf("oldest retained = %s, buffer should drop from the front", backlog[0].Type)
	}
}

func TestHubIsolatesOrganizations(t *testing.T) {
	hub := NewHub()
	node, _ := snowflake.NewNode(2)
	orgA := node.Generate()
	orgB := node.Generate()

	subA, _, err := hub.Subscribe(orgA)
	if err != nil {
		t.Fatalf("subscribe a: %v", err)
	}
	defer subA.Close()
	subB, _, err := hub.Subscribe(orgB)
	if err != nil {
		t.Fatalf("subscribe b: %v", err)
	}
	defer subB.Close()

	hub.Publish(orgA, Event{Type: "tenant.created", EntityType: "tenant"})

	if event := recvEvent(t, subA); event.Type != "tenant.created" {
		t.Fatalf("event = %+v", event)
	}
	select {
	case event := <-subB.Events():
		t.Fatalf("org B received foreign event %+v", event)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubSkipsSlowSubscriber(t *testing.T) {
	hub := NewHub()
	orgID := testOrgID(t)

	slow, _, err := hub.Subscribe(orgID)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer slow.Close()

	// Never drained; the publisher must not block once the channel fills.
	done := make(chan struct{})
	go func() {
		for i := 0; i < DefaultSubscriberBuffer*3; i++ {
			hub.Publish(orgID, Event{Type: "maintenance.opened", EntityType: "maintenance_request"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publisher blocked on slow subscriber")
	}
}

func TestHubCloseIsIdempotent(t *testing.T) {
	hub := NewHub()
	orgID := testOrgID(t)

	sub, _, err := hub.Subscribe(orgID)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	sub.Close()
	sub.Close()

	// Publishing after the last close must not panic.
	hub.Publish(orgID, Event{Type: "noop", EntityType: "unit"})
}

func TestHubPublishIgnoresZeroOrg(t *testing.T) {
	hub := NewHub()
	hub.Publish(0, Event{Type: "noop"})

	if _, _, err := hub.Subscribe(0); err == nil {
		t.Fatal("expected error for zero org id")
	}
}
