package infrastructure

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/collabtext/otrelay/application"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsConn adapts a gorilla/websocket connection to application.Conn. Writes
// go through a buffered channel and a dedicated writer goroutine so that a
// slow peer never blocks the hub's single event loop; a peer that falls
// behind simply misses an operation and recovers on reconnect.
type wsConn struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

func newWSConn(conn *websocket.Conn) *wsConn {
	return &wsConn{id: uuid.NewString(), conn: conn, send: make(chan []byte, 256)}
}

func (c *wsConn) ID() string { return c.id }

func (c *wsConn) Send(message []byte) {
	if message == nil {
		return
	}
	select {
	case c.send <- message:
	default:
		// Slow consumer: drop rather than block the hub loop. The client
		// recovers via reconnect-and-resync.
	}
}

func (c *wsConn) writePump() {
	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
}

// WSServer is the transport collaborator: it terminates gorilla/websocket
// connections and translates wire messages into application.Event values
// submitted to the Hub.
type WSServer struct {
	hub    *application.Hub
	logger *log.Logger
}

// NewWSServer constructs a WSServer bound to hub. logger defaults to the
// standard logger with a "[ws] " prefix if nil.
func NewWSServer(hub *application.Hub, logger *log.Logger) *WSServer {
	if logger == nil {
		logger = log.New(log.Writer(), "[ws] ", log.LstdFlags)
	}
	return &WSServer{hub: hub, logger: logger}
}

// ServeHTTP upgrades the connection and runs its read pump until
// disconnect, submitting a final EventDisconnect no matter how the
// connection ends, so a dropped transport always triggers the
// leave/user-left chain.
func (s *WSServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Printf("upgrade failed: %v", err)
		return
	}

	conn := newWSConn(raw)
	go conn.writePump()

	defer func() {
		s.hub.Submit(application.Event{Kind: application.EventDisconnect, Conn: conn})
		close(conn.send)
		raw.Close()
	}()

	for {
		_, data, err := raw.ReadMessage()
		if err != nil {
			return
		}
		s.dispatch(conn, data)
	}
}

func (s *WSServer) dispatch(conn *wsConn, data []byte) {
	var env application.TypeEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		s.logger.Printf("conn %s: malformed message, dropping: %v", conn.ID(), err)
		return
	}

	now := time.Now().Unix()

	switch env.Type {
	case application.MsgJoinDocument:
		var m application.JoinDocumentMsg
		if err := json.Unmarshal(data, &m); err != nil {
			s.logger.Printf("conn %s: malformed join-document, dropping: %v", conn.ID(), err)
			return
		}
		s.hub.Submit(application.Event{
			Kind:       application.EventJoin,
			Conn:       conn,
			Now:        now,
			DocumentID: m.DocumentID,
			UserName:   m.UserName,
		})
	case application.MsgOperation:
		var m application.OperationMsg
		if err := json.Unmarshal(data, &m); err != nil {
			s.logger.Printf("conn %s: malformed operation, dropping: %v", conn.ID(), err)
			return
		}
		s.hub.Submit(application.Event{
			Kind: application.EventOperation,
			Conn: conn,
			Now:  now,
			Op:   m.Operation,
		})
	case application.MsgCursorPosition:
		var m application.CursorPositionMsg
		if err := json.Unmarshal(data, &m); err != nil {
			s.logger.Printf("conn %s: malformed cursor-position, dropping: %v", conn.ID(), err)
			return
		}
		s.hub.Submit(application.Event{
			Kind:     application.EventCursor,
			Conn:     conn,
			Now:      now,
			Position: m.Position,
		})
	default:
		s.logger.Printf("conn %s: unknown message type %q, dropping", conn.ID(), env.Type)
	}
}
