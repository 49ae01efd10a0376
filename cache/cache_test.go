package cache

import (
	"testing"
	"time"

	"github.com/use-agent/orgscope/models"
)

func rec(id string) *models.CompanyRecord {
	return &models.CompanyRecord{PageID: id}
}

func TestGetSet(t *testing.T) {
	c := New(10, time.Hour)
	defer c.Close()

	if _, ok := c.Get("acme"); ok {
		t.Fatal("hit on empty cache")
	}
	r := rec("acme")
	c.Set(r)
	got, ok := c.Get("acme")
	if !ok || got != r {
		t.Fatalf("Get() = %v, %v", got, ok)
	}

	c.Delete("acme")
	if _, ok := c.Get("acme"); ok {
		t.Error("hit after Delete")
	}
}

func TestExpiry(t *testing.T) {
	c := New(10, time.Minute)
	defer c.Close()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	c.Set(rec("acme"))

	now = now.Add(59 * time.Second)
	if _, ok := c.Get("acme"); !ok {
		t.Error("miss before TTL")
	}

	now = now.Add(2 * time.Second)
	if _, ok := c.Get("acme"); ok {
		t.Error("hit after TTL")
	}

	c.evictExpired()
	if c.Len() != 0 {
		t.Errorf("Len() = %d after eviction", c.Len())
	}
}

func TestCapacity(t *testing.T) {
	c := New(2, time.Hour)
	defer c.Close()

	c.Set(rec("a"))
	c.Set(rec("b"))
	c.Set(rec("b"))
	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2 (overwrite must not evict)", c.Len())
	}
	c.Set(rec("c"))
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("newest entry missing")
	}
}

func TestDisabled(t *testing.T) {
	c := New(0, time.Hour)
	defer c.Close()

	c.Set(rec("a"))
	if c.Len() != 0 {
		t.Error("zero-capacity cache stored an entry")
	}
}
