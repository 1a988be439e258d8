package client

import "testing"

func TestDetectInsert(t *testing.T) {
	op, ok := Detect("hello", "helXlo", 4, "A", "op-1", 100)
	if !ok {
		t.Fatal("expected an operation")
	}
	if !op.IsInsert() || op.Position != 3 || op.Text != "X" {
		t.Errorf("unexpected op: %+v", op)
	}
}

func TestDetectDelete(t *testing.T) {
	op, ok := Detect("hello", "hlo", 1, "A", "op-1", 100)
	if !ok {
		t.Fatal("expected an operation")
	}
	if !op.IsDelete() || op.Position != 1 || op.Length != 2 {
		t.Errorf("unexpected op: %+v", op)
	}
}

func TestDetectNoChange(t *testing.T) {
	if _, ok := Detect("same", "same", 4, "A", "op-1", 100); ok {
		t.Error("expected no operation for identical text")
	}
}

func TestDetectSameLengthReplacementIsNoop(t *testing.T) {
	// A same-length replacement is dropped as a no-op, not delete+insert.
	if _, ok := Detect("cat", "bat", 3, "A", "op-1", 100); ok {
		t.Error("expected same-length replacement to be a no-op")
	}
}

func TestDetectAppendAtEnd(t *testing.T) {
	op, ok := Detect("hell", "hello", 5, "A", "op-1", 100)
	if !ok {
		t.Fatal("expected an operation")
	}
	if op.Position != 4 || op.Text != "o" {
		t.Errorf("unexpected op: %+v", op)
	}
}
