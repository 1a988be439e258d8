package application

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/collabtext/otrelay/domain"
)

// Conn is the transport-agnostic send side of a connection; infrastructure
// implements it over gorilla/websocket, tests use a fake.
type Conn interface {
	ID() string
	Send(message []byte)
}

// EventKind tags the four inbound message kinds routed by the dispatcher.
type EventKind int

const (
	EventJoin EventKind = iota
	EventOperation
	EventCursor
	EventDisconnect
)

// Event is one inbound message, already decoded, queued onto the hub's
// single event loop. Now is the caller's clock reading for the operation
// log's server_timestamp, passed in so Document.Submit stays free of
// wall-clock I/O.
type Event struct {
	Kind EventKind
	Conn Conn
	Now  int64

	DocumentID string           // EventJoin
	UserName   string           // EventJoin
	Op         domain.Operation // EventOperation
	Position   int              // EventCursor
}

type connState struct {
	conn       Conn
	documentID string
}

// Hub is the relay dispatcher: it binds each connection to at most one
// document at a time and routes join/operation/cursor/disconnect events to
// the Registry, then fans results out to peers. All of h.conns is owned
// exclusively by the Run goroutine, a single event-driven connection
// manager. No other method mutates it, so it needs no lock of its own;
// the concurrency-sensitive state lives in Registry and in each
// domain.Document.
type Hub struct {
	registry *Registry
	events   chan Event
	conns    map[string]*connState
	logger   *log.Logger
}

// NewHub constructs a hub bound to registry. logger defaults to the
// standard logger with a "[hub] " prefix if nil.
func NewHub(registry *Registry, logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.New(log.Writer(), "[hub] ", log.LstdFlags)
	}
	return &Hub{
		registry: registry,
		events:   make(chan Event, 256),
		conns:    make(map[string]*connState),
		logger:   logger,
	}
}

// Submit enqueues an inbound event. Safe to call from any connection's
// read goroutine.
func (h *Hub) Submit(ev Event) {
	h.events <- ev
}

// Run drives the single event loop until events is closed. It never
// returns an error: the relay logs and drops malformed or out-of-order
// input rather than crashing.
func (h *Hub) Run() {
	for ev := range h.events {
		switch ev.Kind {
		case EventJoin:
			h.handleJoin(ev)
		case EventOperation:
			h.handleOperation(ev)
		case EventCursor:
			h.handleCursor(ev)
		case EventDisconnect:
			h.handleDisconnect(ev)
		}
	}
}

func (h *Hub) handleJoin(ev Event) {
	connID := ev.Conn.ID()

	if prev, ok := h.conns[connID]; ok && prev.documentID != "" && prev.documentID != ev.DocumentID {
		h.leaveDocument(connID, prev.documentID)
	}

	doc := h.registry.GetOrCreate(ev.DocumentID)
	color := h.registry.NextColor()
	user, snap := doc.Join(connID, ev.UserName, color)
	h.conns[connID] = &connState{conn: ev.Conn, documentID: ev.DocumentID}

	ev.Conn.Send(mustMarshal(h.logger, DocumentStateMsg{
		Type:    MsgDocumentState,
		Content: snap.Content,
		Version: snap.Version,
		Users:   snap.Users,
	}))

	h.broadcast(doc, connID, UserJoinedMsg{
		Type:  MsgUserJoined,
		User:  user,
		Users: snap.Users,
	})
}

func (h *Hub) handleOperation(ev Event) {
	connID := ev.Conn.ID()
	state, ok := h.conns[connID]
	if !ok || state.documentID == "" {
		h.logger.Printf("dropping operation: %v", fmt.Errorf("connection %s: %w", connID, domain.ErrNotJoined))
		return
	}

	doc, ok := h.registry.Get(state.documentID)
	if !ok {
		h.logger.Printf("dropping operation: %v", fmt.Errorf("connection %s: %w", connID, domain.ErrUnknownDocument))
		return
	}

	applied, version, submitted, err := doc.Submit(connID, ev.Op, ev.Now)
	if err != nil {
		h.logger.Printf("dropping operation: %v", fmt.Errorf("connection %s: submit: %w", connID, err))
		return
	}
	if !submitted {
		return // degenerate op: no broadcast and no version bump
	}

	h.broadcast(doc, connID, OperationBroadcastMsg{
		Type:      MsgOperation,
		Operation: applied,
		Version:   version,
	})
}

func (h *Hub) handleCursor(ev Event) {
	connID := ev.Conn.ID()
	state, ok := h.conns[connID]
	if !ok || state.documentID == "" {
		h.logger.Printf("dropping cursor-position: %v", fmt.Errorf("connection %s: %w", connID, domain.ErrNotJoined))
		return
	}
	doc, ok := h.registry.Get(state.documentID)
	if !ok {
		return
	}
	doc.SetCursor(connID, ev.Position)
	h.broadcast(doc, connID, CursorUpdateMsg{
		Type:     MsgCursorUpdate,
		UserID:   connID,
		Position: ev.Position,
	})
}

func (h *Hub) handleDisconnect(ev Event) {
	connID := ev.Conn.ID()
	state, ok := h.conns[connID]
	if !ok {
		return
	}
	delete(h.conns, connID)
	if state.documentID == "" {
		return
	}
	h.leaveDocument(connID, state.documentID)
}

// leaveDocument removes connID from doc's roster and broadcasts user-left
// to whoever remains. Shared by handleJoin's implicit-leave path and
// handleDisconnect.
func (h *Hub) leaveDocument(connID, documentID string) {
	doc, ok := h.registry.Get(documentID)
	if !ok {
		return
	}
	doc.Leave(connID)
	snap := doc.Snapshot()
	h.broadcast(doc, connID, UserLeftMsg{
		Type:   MsgUserLeft,
		UserID: connID,
		Users:  snap.Users,
	})
}

// broadcast snapshots the roster under the document's lock (via
// RosterExcept) and then sends outside of it, so a slow peer's write never
// stalls the document lock or the rest of the fan-out.
func (h *Hub) broadcast(doc *domain.Document, exclude string, msg any) {
	payload := mustMarshal(h.logger, msg)
	for _, id := range doc.RosterExcept(exclude) {
		state, ok := h.conns[id]
		if !ok {
			continue
		}
		state.conn.Send(payload)
	}
}

func mustMarshal(logger *log.Logger, v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		logger.Printf("marshal failed for %T: %v", v, err)
		return nil
	}
	return b
}
