package domain

import (
	"testing"
	"time"
)

func TestSenderGroupAdd(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	g := NewSenderGroup("news@acme.com", "Acme News", "acme.com")

	g.Add(MessageRecord{ID: "m1", Size: 100, Received: now.Add(-2 * time.Hour)}, now)
	g.Add(MessageRecord{ID: "m2", Size: 250, Received: now.AddDate(0, 0, -3), Unsubscribe: "https://acme.com/unsub"}, now)
	g.Add(MessageRecord{ID: "m3", Size: 50, Received: now.AddDate(0, 0, -4), Unsubscribe: "https://acme.com/other"}, now)

	if g.Count != 3 {
		t.Errorf("count = %d, want 3", g.Count)
	}
	if g.TotalSize != 400 {
		t.Errorf("total size = %d, want 400", g.TotalSize)
	}
	// First non-empty unsubscribe link sticks.
	if g.Unsubscribe != "https://acme.com/unsub" {
		t.Errorf("unsubscribe = %q, want first link", g.Unsubscribe)
	}
	if g.Ages[AgeToday] != 1 || g.Ages[AgeWeek] != 2 {
		t.Errorf("ages = %v, want 1 today and 2 week", g.Ages)
	}
}

func TestSenderGroupRemove(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	g := NewSenderGroup("news@acme.com", "Acme News", "acme.com")
	g.Add(MessageRecord{ID: "m1", Size: 100, Received: now.Add(-2 * time.Hour)}, now)
	g.Add(MessageRecord{ID: "m2", Size: 200, Received: now.AddDate(0, 0, -3)}, now)
	g.Add(MessageRecord{ID: "m3", Size: 300, Received: now.AddDate(0, -2, 0)}, now)

	removed, removedSize := g.Remove(map[string]struct{}{"m1": {}, "m3": {}, "missing": {}}, now)

	if removed != 2 || removedSize != 400 {
		t.Fatalf("removed %d (%d bytes), want 2 (400 bytes)", removed, removedSize)
	}
	if g.Count != 1 || g.TotalSize != 200 {
		t.Errorf("count/size = %d/%d, want 1/200", g.Count, g.TotalSize)
	}
	if len(g.Messages) != 1 || g.Messages[0].ID != "m2" {
		t.Errorf("surviving messages = %v, want only m2", g.MessageIDs())
	}
	// Histogram rebuilt from survivors.
	if g.Ages[AgeWeek] != 1 || g.Ages[AgeToday] != 0 || g.Ages[Age3Months] != 0 {
		t.Errorf("ages = %v, want only 1 in week", g.Ages)
	}
}

func TestSenderGroupRemoveEmptySet(t *testing.T) {
	now := time.Now()
	g := NewSenderGroup("a@x.com", "a", "x.com")
	g.Add(MessageRecord{ID: "m1", Size: 10, Received: now}, now)

	removed, removedSize := g.Remove(nil, now)
	if removed != 0 || removedSize != 0 {
		t.Errorf("removed %d (%d bytes), want nothing", removed, removedSize)
	}
	if g.Count != 1 {
		t.Errorf("count = %d, want 1", g.Count)
	}
}

func TestBuildDomainGroups(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	a := NewSenderGroup("a@x.com", "a", "x.com")
	a.Add(MessageRecord{ID: "m1", Size: 100, Received: now}, now)
	a.Add(MessageRecord{ID: "m2", Size: 50, Received: now}, now)

	b := NewSenderGroup("b@x.com", "b", "x.com")
	b.Add(MessageRecord{ID: "m3", Size: 200, Received: now.AddDate(-2, 0, 0)}, now)

	c := NewSenderGroup("c@y.org", "c", "y.org")
	c.Add(MessageRecord{ID: "m4", Size: 25, Received: now}, now)

	empty := NewSenderGroup("gone@x.com", "gone", "x.com")

	senders := map[string]*SenderGroup{
		"a@x.com":    a,
		"b@x.com":    b,
		"c@y.org":    c,
		"gone@x.com": empty,
	}

	domains := BuildDomainGroups(senders)

	if len(domains) != 2 {
		t.Fatalf("got %d domains, want 2", len(domains))
	}

	x := domains["x.com"]
	if x == nil {
		t.Fatal("x.com missing")
	}
	// Domain totals are exactly the sum of their member senders.
	if x.SenderCount != 2 || x.TotalCount != 3 || x.TotalSize != 350 {
		t.Errorf("x.com = %d senders, %d messages, %d bytes; want 2, 3, 350", x.SenderCount, x.TotalCount, x.TotalSize)
	}
	if x.Ages[AgeToday] != 2 || x.Ages[AgeOlder] != 1 {
		t.Errorf("x.com ages = %v, want 2 today and 1 older", x.Ages)
	}

	y := domains["y.org"]
	if y == nil || y.SenderCount != 1 || y.TotalCount != 1 || y.TotalSize != 25 {
		t.Errorf("y.org = %+v, want 1 sender, 1 message, 25 bytes", y)
	}
}
