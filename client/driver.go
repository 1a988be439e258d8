package client

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/collabtext/otrelay/domain"
)

// Driver is the client session driver. It owns local content, the
// last snapshot seen by the change detector, the observed-operations log,
// and a view of the remote roster (minus self). It never talks to a
// transport directly. Session (session.go) owns the connection lifecycle
// and calls into Driver as events arrive, which keeps Driver's state
// machine trivially unit-testable.
type Driver struct {
	mu sync.Mutex

	userID     string
	documentID string

	content     string
	prevContent string
	version     uint64

	observed []domain.Operation
	roster   map[string]domain.User

	idGen func() string
	now   func() int64
}

// NewDriver constructs a driver for userID. Operation ids are minted with
// google/uuid and timestamps with time.Now, matching how the relay side
// mints connection ids (infrastructure/websocket.go).
func NewDriver(userID string) *Driver {
	return &Driver{
		userID: userID,
		roster: make(map[string]domain.User),
		idGen:  uuid.NewString,
		now:    func() int64 { return time.Now().Unix() },
	}
}

// DocumentID reports the currently joined document, or "" if none.
func (d *Driver) DocumentID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.documentID
}

// Content returns the current local content.
func (d *Driver) Content() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.content
}

// SetDocument records which document a join-document was sent for, so a
// reconnect knows to re-join the same one.
func (d *Driver) SetDocument(documentID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.documentID = documentID
}

// ApplyDocumentState adopts a fresh snapshot from the server, whether on
// first join or on rejoin after a reconnect: local content and prevContent
// are overwritten together, and the roster view is replaced wholesale
// minus self. This is a full replace, never a merge.
func (d *Driver) ApplyDocumentState(content string, version uint64, users []domain.User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.content = content
	d.prevContent = content
	d.version = version
	d.roster = make(map[string]domain.User, len(users))
	for _, u := range users {
		if u.ID == d.userID {
			continue
		}
		d.roster[u.ID] = u
	}
}

// ApplyRemoteOperation applies a peer's committed operation via the
// algebra. content and prevContent are updated together so the change
// detector never mistakes a remote edit for a local one.
func (d *Driver) ApplyRemoteOperation(op domain.Operation, version uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	newContent, err := domain.Apply(d.content, op)
	if err != nil {
		return err
	}
	d.content = newContent
	d.prevContent = newContent
	d.version = version
	d.observed = append(d.observed, op)
	return nil
}

// LocalEdit runs the change detector against the last-known prevContent
// and, if an operation is produced, records it in the observed log and
// advances prevContent to newText. The caller is responsible for sending
// the returned operation to the relay.
func (d *Driver) LocalEdit(newText string, caretAfter int) (domain.Operation, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	op, ok := Detect(d.prevContent, newText, caretAfter, d.userID, d.idGen(), d.now())
	d.content = newText
	if !ok {
		d.prevContent = newText
		return domain.Operation{}, false
	}
	d.observed = append(d.observed, op)
	d.prevContent = newText
	return op, true
}

// ApplyUserJoined merges a newly joined peer into the roster view.
func (d *Driver) ApplyUserJoined(user domain.User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if user.ID == d.userID {
		return
	}
	d.roster[user.ID] = user
}

// ApplyUserLeft removes a departed peer from the roster view.
func (d *Driver) ApplyUserLeft(userID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.roster, userID)
}

// ApplyCursorUpdate records a peer's latest cursor. Cursor updates are not
// ordered with respect to operations; the latest value received wins.
func (d *Driver) ApplyCursorUpdate(userID string, position int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.roster[userID]
	if !ok {
		return
	}
	u.Cursor = position
	d.roster[userID] = u
}

// Roster returns a snapshot of the current remote roster view, keyed by
// user id.
func (d *Driver) Roster() map[string]domain.User {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string]domain.User, len(d.roster))
	for k, v := range d.roster {
		out[k] = v
	}
	return out
}
