package extract

import "testing"

func TestParseCount(t *testing.T) {
	tests := []struct {
		in     string
		want   int64
		wantOK bool
	}{
		{"12,345 followers", 12345, true},
		{"1 234", 1234, true},
		{"1 234 567 followers", 1234567, true},
		{"7 followers", 7, true},
		{"Acme · 3,210 followers", 3210, true},
		{"", 0, false},
		{"followers", 0, false},
		{"99999999999999999999999 followers", 0, false},
	}

	for _, tt := range tests {
		got, ok := ParseCount(tt.in)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("ParseCount(%q) = (%d, %v), want (%d, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}
