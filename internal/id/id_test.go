package id

import (
	"testing"
	"time"
)

func TestNewProducesV7(t *testing.T) {
	u, ts := New()
	if u.Version() != 7 {
		t.Fatalf("got version %d, want 7", u.Version())
	}
	if ts.IsZero() {
		t.Fatal("timestamp should not be zero")
	}
	now := time.Now().UTC()
	if ts.After(now.Add(time.Second)) || ts.Before(now.Add(-time.Minute)) {
		t.Errorf("timestamp %v too far from now %v", ts, now)
	}
}

func TestTimestampMatchesEmbedded(t *testing.T) {
	u, ts := New()
	if got := Timestamp(u); !got.Equal(ts) {
		t.Errorf("Timestamp(%v) = %v, want %v", u, got, ts)
	}
}

func TestIDsAreTimeOrdered(t *testing.T) {
	a, _ := New()
	time.Sleep(2 * time.Millisecond)
	b, _ := New()
	if a.String() >= b.String() {
		t.Errorf("later v7 id should sort after earlier: %s vs %s", a, b)
	}
}

func TestNowMillisTruncates(t *testing.T) {
	ts := NowMillis()
	if ts.Nanosecond()%int(time.Millisecond) != 0 {
		t.Errorf("NowMillis should have millisecond precision, got %v", ts)
	}
	if ts.Location() != time.UTC {
		t.Errorf("NowMillis should be UTC, got %v", ts.Location())
	}
}
