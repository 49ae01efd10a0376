package extract

import (
	"context"
	"errors"
	"os"
	"testing"
)

func loadFixture(t *testing.T, name string) *HTMLDocument {
	t.Helper()
	f, err := os.Open("testdata/" + name)
	if err != nil {
		t.Fatalf("open fixture: %v", err)
	}
	defer f.Close()
	doc, err := ParseHTML(f)
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return doc
}

func TestHTMLDocument_Query(t *testing.T) {
	doc := loadFixture(t, "details.html")
	ctx := context.Background()

	tests := []struct {
		name    string
		q       QuerySpec
		want    string
		wantErr error
	}{
		{
			name: "labeled value",
			q:    Labeled("Industry"),
			want: "Aviation and Aerospace Component Manufacturing",
		},
		{
			name: "first following sibling only",
			q:    Labeled("Company size"),
			want: "51-200 employees",
		},
		{
			name: "attribute through sibling and descendant",
			q:    QuerySpec{Selector: "dt", Contains: "Website", Sibling: "dd", Within: "a", Attr: "href"},
			want: "https://acme.example/",
		},
		{
			name: "missing attribute is empty, not an error",
			q:    QuerySpec{Selector: "dt", Contains: "Website", Sibling: "dd", Within: "a", Attr: "data-x"},
			want: "",
		},
		{
			name:    "missing label",
			q:       Labeled("Employees on LinkedIn"),
			wantErr: ErrNoMatch,
		},
		{
			name:    "missing sibling",
			q:       QuerySpec{Selector: "h2", Contains: "Overview", Sibling: "table"},
			wantErr: ErrNoMatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := doc.Query(ctx, tt.q)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Query() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Query() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Query() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHTMLDocument_InvalidSelector(t *testing.T) {
	doc := MustParseHTML("<p>x</p>")
	if _, err := doc.Query(context.Background(), QuerySpec{Selector: "p[[["}); err == nil {
		t.Fatal("Query() with invalid selector returned nil error")
	}
	if doc.Exists(context.Background(), "p[[[") {
		t.Error("Exists() with invalid selector = true")
	}
}

func TestHTMLDocument_CanceledContext(t *testing.T) {
	doc := MustParseHTML("<p>x</p>")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := doc.Query(ctx, QuerySpec{Selector: "p"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("Query() error = %v, want context.Canceled", err)
	}
}
