// CLAUDE:SUMMARY Tags editable HTML elements with stable data-ai-id identifiers and patches them back by identifier.
// Package domtag identifies the editable elements of an HTML document and
// applies edits back into the same document across independent parses.
//
// Identity survives serialisation because it lives in the markup itself:
// every eligible element carries a data-ai-id attribute. Tagging a document
// that is already tagged keeps the existing identifiers, so a document can go
// through any number of tag → store → patch cycles.
//
// Usage:
//
//	tagged, elements, err := domtag.TagAndExtract(raw)
//	// ... caller stores tagged, user edits elements ...
//	out, err := domtag.ApplyUpdates(tagged, updates, true)
//
// The package performs no I/O and keeps no state between calls.
package domtag

import (
	"errors"
	"fmt"
)

// AttrID is the reserved attribute carrying the stable identifier.
const AttrID = "data-ai-id"

// IDPrefix prefixes every generated identifier.
const IDPrefix = "ai-edit-"

// ErrInvalidMarkup is returned when the input cannot be parsed at all.
// Malformed but decodable HTML never produces it.
var ErrInvalidMarkup = errors.New("domtag: invalid markup")

// InvalidMarkupError carries the underlying parse failure.
type InvalidMarkupError struct {
	Err error
}

func (e *InvalidMarkupError) Error() string {
	return fmt.Sprintf("domtag: invalid markup: %v", e.Err)
}

// Unwrap exposes both the sentinel and the cause to errors.Is.
func (e *InvalidMarkupError) Unwrap() []error {
	return []error{ErrInvalidMarkup, e.Err}
}

// Element describes one editable element of a tagged document.
type Element struct {
	ID         string            `json:"id"`
	Tag        string            `json:"tag"`
	Label      string            `json:"label"`
	Content    string            `json:"content"`
	Attributes map[string]string `json:"attributes,omitempty"` // src for img, href for a
}

// Update is one caller-supplied edit keyed by element identifier.
// A nil Content leaves the element text untouched; an empty string clears it.
type Update struct {
	ID         string            `json:"id"`
	Content    *string           `json:"content,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Text returns a pointer to s, for building Update.Content literals.
func Text(s string) *string { return &s }
