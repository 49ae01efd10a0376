package extract

import (
	"context"
	"fmt"
	"log/slog"
)

// Kind is the post-processing applied to a resolved field.
type Kind int

const (
	// Text fields are trimmed and nulled when empty.
	Text Kind = iota
	// Count fields are parsed with ParseCount.
	Count
)

// FieldSpec declares one output field and its ordered strategies.
type FieldSpec struct {
	Name       string
	Kind       Kind
	Strategies []QuerySpec
}

// Value is a resolved field. Exactly one of Text and Count is set for a
// present value; both nil means absent.
type Value struct {
	Text  *string
	Count *int64
}

// Present reports whether the field resolved to a value.
func (v Value) Present() bool { return v.Text != nil || v.Count != nil }

// Values accumulates field values across pages. Once a field is present it
// is never overwritten.
type Values struct {
	fields map[string]Value
}

// NewValues returns an empty accumulator.
func NewValues() *Values {
	return &Values{fields: make(map[string]Value)}
}

// Get returns the value for name.
func (v *Values) Get(name string) Value { return v.fields[name] }

// Has reports whether name already holds a present value.
func (v *Values) Has(name string) bool { return v.fields[name].Present() }

// set stores val unless name is already present.
func (v *Values) set(name string, val Value) bool {
	if v.Has(name) {
		return false
	}
	v.fields[name] = val
	return true
}

// Text returns the text value of name, or nil.
func (v *Values) Text(name string) *string { return v.fields[name].Text }

// Count returns the count value of name, or nil.
func (v *Values) Count(name string) *int64 { return v.fields[name].Count }

// FieldReport is what happened to one field during Extract.
type FieldReport struct {
	Field      string
	Resolution Resolution
	Skipped    bool
}

// Extractor runs a batch of field specs against one document.
type Extractor struct {
	Resolver Resolver
	Fields   []FieldSpec
}

// Extract resolves every field not already present in into. Missing fields
// are left absent; Extract itself never fails.
func (e Extractor) Extract(ctx context.Context, doc Document, into *Values) []FieldReport {
	reports := make([]FieldReport, 0, len(e.Fields))
	for _, f := range e.Fields {
		if into.Has(f.Name) {
			reports = append(reports, FieldReport{Field: f.Name, Skipped: true})
			continue
		}

		res := e.Resolver.Resolve(ctx, doc, f.Strategies)
		reports = append(reports, FieldReport{Field: f.Name, Resolution: res})

		if !res.Found {
			slog.Debug("field absent", "field", f.Name, "strategies", len(f.Strategies))
			continue
		}

		val, ok := f.transform(res.Text)
		if !ok {
			slog.Debug("field unparseable", "field", f.Name, "raw", res.Text)
			continue
		}
		into.set(f.Name, val)
	}
	return reports
}

func (f FieldSpec) transform(text string) (Value, bool) {
	switch f.Kind {
	case Text:
		if text == "" {
			return Value{}, false
		}
		return Value{Text: &text}, true
	case Count:
		n, ok := ParseCount(text)
		if !ok {
			return Value{}, false
		}
		return Value{Count: &n}, true
	default:
		panic(fmt.Sprintf("extract: unknown field kind %d", f.Kind))
	}
}
