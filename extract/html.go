package extract

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// HTMLDocument answers queries against a static HTML snapshot. It backs
// offline extraction of saved pages and stands in for a live page in tests.
type HTMLDocument struct {
	doc *goquery.Document
}

// ParseHTML parses r into an HTMLDocument.
func ParseHTML(r io.Reader) (*HTMLDocument, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("extract: parse html: %w", err)
	}
	return &HTMLDocument{doc: goquery.NewDocumentFromNode(root)}, nil
}

// MustParseHTML is ParseHTML for string literals; it panics on error.
func MustParseHTML(s string) *HTMLDocument {
	d, err := ParseHTML(strings.NewReader(s))
	if err != nil {
		panic(err)
	}
	return d
}

// Query implements Document.
func (d *HTMLDocument) Query(ctx context.Context, q QuerySpec) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := CompileSelector(q.Selector); err != nil {
		return "", err
	}

	sel := d.doc.Find(q.Selector)
	if q.Contains != "" {
		sel = sel.FilterFunction(func(_ int, s *goquery.Selection) bool {
			return strings.Contains(s.Text(), q.Contains)
		})
	}
	if sel.Length() == 0 {
		return "", ErrNoMatch
	}
	sel = sel.First()

	if q.Sibling != "" {
		sel = sel.NextAllFiltered(q.Sibling).First()
		if sel.Length() == 0 {
			return "", ErrNoMatch
		}
	}
	if q.Within != "" {
		sel = sel.Find(q.Within).First()
		if sel.Length() == 0 {
			return "", ErrNoMatch
		}
	}

	if q.Attr != "" {
		return sel.AttrOr(q.Attr, ""), nil
	}
	return sel.Text(), nil
}

// Exists reports whether selector matches anything.
func (d *HTMLDocument) Exists(ctx context.Context, selector string) bool {
	if ctx.Err() != nil || CompileSelector(selector) != nil {
		return false
	}
	return d.doc.Find(selector).Length() > 0
}
