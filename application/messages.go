package application

import "github.com/collabtext/otrelay/domain"

// Wire message shapes for the relay protocol. Every message, inbound and
// outbound alike, is a single flat JSON object with a "type" discriminator
// field, matching the shape domain.Operation itself uses. Dispatch works
// in two passes: sniff Type via TypeEnvelope, then re-unmarshal the same
// bytes into the concrete struct for that type.

// TypeEnvelope extracts just the "type" field so the caller can pick which
// concrete message struct to decode into next.
type TypeEnvelope struct {
	Type string `json:"type"`
}

const (
	MsgJoinDocument   = "join-document"
	MsgOperation      = "operation"
	MsgCursorPosition = "cursor-position"

	MsgDocumentState = "document-state"
	MsgUserJoined    = "user-joined"
	MsgUserLeft      = "user-left"
	MsgCursorUpdate  = "cursor-update"
)

// Inbound (client -> relay).

type JoinDocumentMsg struct {
	Type       string `json:"type"`
	DocumentID string `json:"document_id"`
	UserName   string `json:"user_name,omitempty"`
}

type OperationMsg struct {
	Type      string           `json:"type"`
	Operation domain.Operation `json:"operation"`
}

type CursorPositionMsg struct {
	Type     string `json:"type"`
	Position int    `json:"position"`
}

// Outbound (relay -> client).

type DocumentStateMsg struct {
	Type    string        `json:"type"`
	Content string        `json:"content"`
	Version uint64        `json:"version"`
	Users   []domain.User `json:"users"`
}

type OperationBroadcastMsg struct {
	Type      string           `json:"type"`
	Operation domain.Operation `json:"operation"`
	Version   uint64           `json:"version"`
}

type UserJoinedMsg struct {
	Type  string        `json:"type"`
	User  domain.User   `json:"user"`
	Users []domain.User `json:"users"`
}

type UserLeftMsg struct {
	Type   string        `json:"type"`
	UserID string        `json:"user_id"`
	Users  []domain.User `json:"users"`
}

type CursorUpdateMsg struct {
	Type     string `json:"type"`
	UserID   string `json:"user_id"`
	Position int    `json:"position"`
}
