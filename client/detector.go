package client

import "github.com/collabtext/otrelay/domain"

// Detect is the change detector collaborator: given a snapshot of text
// before and after a local edit, plus the caret position after the edit,
// it infers the single Insert or Delete that produced the change. It
// assumes single-caret, single-contiguous edits; multi-region edits (e.g.
// pasting over a selection that also shifts the caret non-contiguously)
// are not recognised: any change in length still yields one Insert or
// Delete from the length and caret arithmetic alone, which need not
// reproduce the edit, and a same-length change yields no operation.
//
// id and timestamp are supplied by the caller rather than generated here,
// keeping Detect a pure function like the rest of the algebra.
func Detect(old, new string, caretAfter int, userID, id string, timestamp int64) (domain.Operation, bool) {
	if old == new {
		return domain.Operation{}, false
	}

	oldRunes := []rune(old)
	newRunes := []rune(new)

	switch {
	case len(newRunes) > len(oldRunes):
		inserted := len(newRunes) - len(oldRunes)
		position := caretAfter - inserted
		if position < 0 || caretAfter > len(newRunes) {
			return domain.Operation{}, false
		}
		text := string(newRunes[position:caretAfter])
		return domain.Insert(id, userID, timestamp, position, text), true

	case len(newRunes) < len(oldRunes):
		deleted := len(oldRunes) - len(newRunes)
		position := caretAfter
		if position < 0 || position+deleted > len(oldRunes) {
			return domain.Operation{}, false
		}
		return domain.Delete(id, userID, timestamp, position, deleted), true

	default:
		// Same length but different content: a same-length replacement.
		// Dropped as a no-op rather than emitting a delete+insert pair.
		return domain.Operation{}, false
	}
}
