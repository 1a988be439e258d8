package client

import (
	"testing"

	"github.com/collabtext/otrelay/domain"
)

func TestDriverApplyDocumentStateReplacesLocalState(t *testing.T) {
	d := NewDriver("A")
	d.LocalEdit("stale text", 10) // simulate pre-reconnect local edits

	d.ApplyDocumentState("authoritative", 42, []domain.User{
		{ID: "A", Name: "Alice"},
		{ID: "B", Name: "Bob"},
	})

	if d.Content() != "authoritative" {
		t.Errorf("content = %q, want authoritative", d.Content())
	}
	roster := d.Roster()
	if _, self := roster["A"]; self {
		t.Error("roster should exclude self")
	}
	if _, ok := roster["B"]; !ok {
		t.Error("roster should include Bob")
	}
}

func TestDriverLocalEditProducesOperation(t *testing.T) {
	d := NewDriver("A")
	d.ApplyDocumentState("hello", 0, nil)

	op, ok := d.LocalEdit("helloo", 6)
	if !ok {
		t.Fatal("expected an operation to be produced")
	}
	if !op.IsInsert() || op.Text != "o" {
		t.Errorf("unexpected op: %+v", op)
	}
	if d.Content() != "helloo" {
		t.Errorf("content = %q, want helloo", d.Content())
	}
}

func TestDriverApplyRemoteOperationDoesNotConfuseDetector(t *testing.T) {
	d := NewDriver("A")
	d.ApplyDocumentState("ab", 1, nil)

	remote := domain.Insert("op-r", "B", 0, 1, "X")
	if err := d.ApplyRemoteOperation(remote, 2); err != nil {
		t.Fatalf("apply remote failed: %v", err)
	}
	if d.Content() != "aXb" {
		t.Errorf("content = %q, want aXb", d.Content())
	}

	// A subsequent local edit must be detected against the post-remote
	// state, not the pre-remote one.
	op, ok := d.LocalEdit("aXbY", 4)
	if !ok || op.Position != 3 || op.Text != "Y" {
		t.Fatalf("unexpected op after remote apply: ok=%v op=%+v", ok, op)
	}
}

func TestDriverRosterEvents(t *testing.T) {
	d := NewDriver("A")
	d.ApplyDocumentState("", 0, nil)

	d.ApplyUserJoined(domain.User{ID: "B", Name: "Bob"})
	if _, ok := d.Roster()["B"]; !ok {
		t.Fatal("expected Bob in roster after join")
	}

	d.ApplyCursorUpdate("B", 5)
	if d.Roster()["B"].Cursor != 5 {
		t.Errorf("cursor = %d, want 5", d.Roster()["B"].Cursor)
	}

	d.ApplyUserLeft("B")
	if _, ok := d.Roster()["B"]; ok {
		t.Error("expected Bob removed from roster after leave")
	}
}
