package domain

// ColorPalette is the fixed, 8-entry round-robin palette assigned to users
// on join. No correctness depends on colours being unique across
// documents; the assigning counter is process-wide.
var ColorPalette = [8]string{
	"#e6194b", "#3cb44b", "#4363d8", "#f58231",
	"#911eb4", "#46f0f0", "#f032e6", "#bfef45",
}

// User is a participant's server-side record. Cursor is display-only and
// stored as the client sent it; the store neither clamps nor rejects an
// out-of-range cursor value.
type User struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Color  string `json:"color"`
	Cursor int    `json:"cursor"`
}
