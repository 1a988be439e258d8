package application

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/collabtext/otrelay/domain"
)

// fakeConn collects every message sent to it, guarded by a mutex since the
// hub's Run loop and the test goroutine both touch it.
type fakeConn struct {
	id string

	mu       sync.Mutex
	messages [][]byte
}

func newFakeConn(id string) *fakeConn { return &fakeConn{id: id} }

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(message []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, message)
}

func (c *fakeConn) last(t *testing.T) map[string]any {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.messages) == 0 {
		t.Fatalf("conn %s: no messages received", c.id)
	}
	var m map[string]any
	if err := json.Unmarshal(c.messages[len(c.messages)-1], &m); err != nil {
		t.Fatalf("conn %s: bad json: %v", c.id, err)
	}
	return m
}

func (c *fakeConn) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

func newTestHub() (*Hub, *Registry) {
	reg := NewRegistry()
	h := NewHub(reg, nil)
	go h.Run()
	return h, reg
}

func TestHubJoinSendsSnapshotOnlyToJoiner(t *testing.T) {
	h, _ := newTestHub()
	a := newFakeConn("A")

	h.Submit(Event{Kind: EventJoin, Conn: a, DocumentID: "doc-1", UserName: "Alice"})
	waitDrained(h)

	msg := a.last(t)
	if msg["type"] != "document-state" {
		t.Errorf("expected document-state, got %v", msg["type"])
	}
}

func TestHubBroadcastsOperationToOthersNotSender(t *testing.T) {
	h, _ := newTestHub()
	a := newFakeConn("A")
	b := newFakeConn("B")

	h.Submit(Event{Kind: EventJoin, Conn: a, DocumentID: "doc-1", UserName: "Alice"})
	h.Submit(Event{Kind: EventJoin, Conn: b, DocumentID: "doc-1", UserName: "Bob"})
	waitDrained(h)

	aCountBefore := a.count()

	op := domain.Insert("op-1", "A", 0, 0, "hi")
	h.Submit(Event{Kind: EventOperation, Conn: a, Op: op})
	waitDrained(h)

	if a.count() != aCountBefore {
		t.Errorf("sender should not receive its own operation broadcast")
	}
	msg := b.last(t)
	if msg["type"] != "operation" {
		t.Fatalf("expected operation broadcast, got %v", msg["type"])
	}
}

func TestHubOperationBeforeJoinIsDropped(t *testing.T) {
	h, _ := newTestHub()
	a := newFakeConn("A")

	h.Submit(Event{Kind: EventOperation, Conn: a, Op: domain.Insert("op-1", "A", 0, 0, "x")})
	waitDrained(h)

	if a.count() != 0 {
		t.Errorf("expected no messages sent to an unjoined connection, got %d", a.count())
	}
}

func TestHubDisconnectBroadcastsUserLeft(t *testing.T) {
	h, _ := newTestHub()
	a := newFakeConn("A")
	b := newFakeConn("B")

	h.Submit(Event{Kind: EventJoin, Conn: a, DocumentID: "doc-1", UserName: "Alice"})
	h.Submit(Event{Kind: EventJoin, Conn: b, DocumentID: "doc-1", UserName: "Bob"})
	waitDrained(h)

	h.Submit(Event{Kind: EventDisconnect, Conn: a})
	waitDrained(h)

	msg := b.last(t)
	if msg["type"] != "user-left" {
		t.Fatalf("expected user-left, got %v", msg["type"])
	}
	if msg["user_id"] != "A" {
		t.Errorf("expected user_id A, got %v", msg["user_id"])
	}
}

func TestHubCursorPositionBroadcasts(t *testing.T) {
	h, _ := newTestHub()
	a := newFakeConn("A")
	b := newFakeConn("B")

	h.Submit(Event{Kind: EventJoin, Conn: a, DocumentID: "doc-1", UserName: "Alice"})
	h.Submit(Event{Kind: EventJoin, Conn: b, DocumentID: "doc-1", UserName: "Bob"})
	waitDrained(h)

	h.Submit(Event{Kind: EventCursor, Conn: a, Position: 7})
	waitDrained(h)

	msg := b.last(t)
	if msg["type"] != "cursor-update" || msg["position"].(float64) != 7 {
		t.Fatalf("unexpected cursor-update: %v", msg)
	}
}

// waitDrained pushes a no-op through the event loop and blocks until it's
// processed, giving prior Submit calls a happens-before boundary without
// sleeping. It relies on the channel being unbuffered-equivalent in order:
// events are processed strictly in submission order.
func waitDrained(h *Hub) {
	done := make(chan struct{})
	h.events <- Event{Kind: EventDisconnect, Conn: drainConn{done}}
	<-done
}

type drainConn struct{ done chan struct{} }

func (d drainConn) ID() string { close(d.done); return "__drain__" }
func (drainConn) Send([]byte)  {}
