package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/use-agent/orgscope/models"
)

func TestDeliver_Signed(t *testing.T) {
	var (
		gotSig  string
		gotBody []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get(SignatureHeader)
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	ev := &Event{Type: EventCompanyScraped, PageID: "acme", Timestamp: 1, Data: &models.CompanyRecord{PageID: "acme"}}
	if err := Deliver(context.Background(), srv.URL, "s3cret", ev); err != nil {
		t.Fatalf("Deliver() error: %v", err)
	}

	if want := Sign("s3cret", gotBody); gotSig != want {
		t.Errorf("signature = %q, want %q", gotSig, want)
	}
	var decoded Event
	if err := json.Unmarshal(gotBody, &decoded); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if decoded.PageID != "acme" || decoded.Type != EventCompanyScraped {
		t.Errorf("event = %+v", decoded)
	}
}

func TestDeliver_UnsignedAndErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(SignatureHeader) != "" {
			t.Error("signature sent without a secret")
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	if err := Deliver(context.Background(), srv.URL, "", &Event{}); err == nil {
		t.Fatal("Deliver() ignored a 500 response")
	}
}

func TestNotifier_Retries(t *testing.T) {
	var count atomic.Int32
	calls := make(chan struct{}, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls <- struct{}{}
		if count.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := &Notifier{URL: srv.URL, Delays: []time.Duration{0, time.Millisecond, time.Millisecond}}
	n.CompanyScraped(&models.CompanyRecord{PageID: "acme"})

	deadline := time.After(2 * time.Second)
	for i := 0; i < 2; i++ {
		select {
		case <-calls:
		case <-deadline:
			t.Fatalf("got %d deliveries, want 2", i)
		}
	}
}

func TestNewNotifier_Disabled(t *testing.T) {
	n := NewNotifier("", "x")
	if n != nil {
		t.Fatal("NewNotifier without URL returned a notifier")
	}
	n.CompanyScraped(&models.CompanyRecord{PageID: "acme"}) // must not panic
}
