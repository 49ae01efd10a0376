// Package extract pulls a fixed schema of company fields out of a
// semi-structured page using ordered fallback locator strategies.
package extract

import (
	"context"
	"errors"
	"strings"
)

// ErrNoMatch is returned by a Document when a query locates nothing.
var ErrNoMatch = errors.New("extract: no matching element")

// QuerySpec is one locator strategy.
//
// The element is found by Selector (CSS), optionally restricted to elements
// whose text contains Contains. When Sibling is set, the query steps to the
// first following sibling with that tag name; when Within is set it then
// descends to the first matching descendant. The result is the element's
// text, or the value of Attr when Attr is set.
type QuerySpec struct {
	Selector string `yaml:"selector" json:"selector"`
	Contains string `yaml:"contains,omitempty" json:"contains,omitempty"`
	Sibling  string `yaml:"sibling,omitempty" json:"sibling,omitempty"`
	Within   string `yaml:"within,omitempty" json:"within,omitempty"`
	Attr     string `yaml:"attr,omitempty" json:"attr,omitempty"`
}

// String renders the strategy for logs.
func (q QuerySpec) String() string {
	var b strings.Builder
	b.WriteString(q.Selector)
	if q.Contains != "" {
		b.WriteString(`:has-text("` + q.Contains + `")`)
	}
	if q.Sibling != "" {
		b.WriteString(" ~ " + q.Sibling + "[1]")
	}
	if q.Within != "" {
		b.WriteString(" " + q.Within)
	}
	if q.Attr != "" {
		b.WriteString(" @" + q.Attr)
	}
	return b.String()
}

// Document is the query capability of a loaded page. Implementations must
// honour ctx for their own waits.
type Document interface {
	// Query returns the raw text (or attribute) for q. A located element
	// without the requested attribute yields "" and no error.
	Query(ctx context.Context, q QuerySpec) (string, error)
}

// Labeled builds the common "value cell following a label cell" strategy.
func Labeled(label string) QuerySpec {
	return QuerySpec{Selector: "dt", Contains: label, Sibling: "dd"}
}
