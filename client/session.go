package client

import (
	"encoding/json"
	"errors"
	"log"
	"sync"

	"github.com/cenkalti/backoff"
	"github.com/gorilla/websocket"

	"github.com/collabtext/otrelay/application"
)

// errSessionClosed short-circuits the backoff retry loop once Close has
// been called; wrapped in backoff.Permanent so Retry stops instead of
// scheduling another attempt.
var errSessionClosed = errors.New("client: session closed")

// Session owns the websocket connection lifecycle for a Driver: dialing,
// reconnecting with backoff, and translating relay wire messages into
// Driver method calls. It is the transport half of the client; Driver
// itself never touches a socket.
type Session struct {
	mu       sync.Mutex
	driver   *Driver
	addr     string
	userName string
	conn     *websocket.Conn
	logger   *log.Logger
	closed   bool
}

// NewSession constructs a session that will dial addr and drive driver.
// logger defaults to the standard logger with a "[client] " prefix if nil.
func NewSession(driver *Driver, addr, userName string, logger *log.Logger) *Session {
	if logger == nil {
		logger = log.New(log.Writer(), "[client] ", log.LstdFlags)
	}
	return &Session{driver: driver, addr: addr, userName: userName, logger: logger}
}

// Run connects and serves until Close is called. Each transport error
// triggers a reconnect governed by an exponential backoff policy; there is
// no cap on elapsed retry time, since disconnection is the only
// cancellation primitive and Close is how a caller asks the loop to
// actually stop.
func (s *Session) Run() {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 0

	if err := backoff.Retry(s.connectAndServe, b); err != nil {
		s.logger.Printf("giving up: %v", err)
	}
}

// Close stops the reconnect loop and closes any live connection.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.conn != nil {
		s.conn.Close()
	}
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) connectAndServe() error {
	if s.isClosed() {
		return backoff.Permanent(errSessionClosed)
	}

	conn, _, err := websocket.DefaultDialer.Dial(s.addr, nil)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	// On connect, send join-document; if this is a reconnect and
	// DocumentID is already set, this re-joins the same document and the
	// server replies with a fresh snapshot that Driver adopts wholesale.
	s.sendJoin(conn)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			conn.Close()
			if s.isClosed() {
				return backoff.Permanent(err)
			}
			return err
		}
		s.handle(data)
	}
}

func (s *Session) sendJoin(conn *websocket.Conn) {
	msg := application.JoinDocumentMsg{
		Type:       application.MsgJoinDocument,
		DocumentID: s.driver.DocumentID(),
		UserName:   s.userName,
	}
	b, err := json.Marshal(msg)
	if err != nil {
		s.logger.Printf("failed to marshal join-document: %v", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		s.logger.Printf("failed to send join-document: %v", err)
	}
}

// SendOperation is called by the caller's edit-event handler once
// Driver.LocalEdit has produced an operation to send.
func (s *Session) SendOperation(msg application.OperationMsg) error {
	msg.Type = application.MsgOperation
	return s.send(msg)
}

// SendCursor is called on selection change.
func (s *Session) SendCursor(position int) error {
	return s.send(application.CursorPositionMsg{Type: application.MsgCursorPosition, Position: position})
}

func (s *Session) send(v any) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return websocket.ErrCloseSent
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, b)
}

func (s *Session) handle(data []byte) {
	var env application.TypeEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		s.logger.Printf("malformed message from relay, dropping: %v", err)
		return
	}

	switch env.Type {
	case application.MsgDocumentState:
		var m application.DocumentStateMsg
		if err := json.Unmarshal(data, &m); err != nil {
			return
		}
		s.driver.ApplyDocumentState(m.Content, m.Version, m.Users)
	case application.MsgOperation:
		var m application.OperationBroadcastMsg
		if err := json.Unmarshal(data, &m); err != nil {
			return
		}
		if err := s.driver.ApplyRemoteOperation(m.Operation, m.Version); err != nil {
			s.logger.Printf("failed to apply remote operation: %v", err)
		}
	case application.MsgUserJoined:
		var m application.UserJoinedMsg
		if err := json.Unmarshal(data, &m); err != nil {
			return
		}
		s.driver.ApplyUserJoined(m.User)
	case application.MsgUserLeft:
		var m application.UserLeftMsg
		if err := json.Unmarshal(data, &m); err != nil {
			return
		}
		s.driver.ApplyUserLeft(m.UserID)
	case application.MsgCursorUpdate:
		var m application.CursorUpdateMsg
		if err := json.Unmarshal(data, &m); err != nil {
			return
		}
		s.driver.ApplyCursorUpdate(m.UserID, m.Position)
	default:
		s.logger.Printf("unknown message type %q from relay, dropping", env.Type)
	}
}
