package simd

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/GoSim-25-26J-441/infra-scaler/internal/metrics"
)

func newRecord(id string, created time.Time) *SessionRecord {
	return &SessionRecord{ID: id, CreatedAt: created, Collector: metrics.NewCollector()}
}

func TestSessionStoreAddGetRemove(t *testing.T) {
	store := NewSessionStore(0)

	rec := newRecord("", time.Now())
	if err := store.Add(rec); err != nil {
		t.Fatalf("Add error: %v", err)
	}
	if !strings.HasPrefix(rec.ID, "sess-") {
		t.Fatalf("expected generated id, got %q", rec.ID)
	}

	got, ok := store.Get(rec.ID)
	if !ok || got != rec {
		t.Fatalf("expected to get the stored record")
	}
	if store.Count() != 1 {
		t.Fatalf("expected count 1, got %d", store.Count())
	}

	if _, ok := store.Remove(rec.ID); !ok {
		t.Fatalf("expected remove to succeed")
	}
	if _, ok := store.Get(rec.ID); ok {
		t.Fatalf("expected record to be gone")
	}
	if _, ok := store.Remove(rec.ID); ok {
		t.Fatalf("expected second remove to fail")
	}
}

func TestSessionStoreAddErrors(t *testing.T) {
	store := NewSessionStore(2)

	if err := store.Add(newRecord("a", time.Now())); err != nil {
		t.Fatalf("Add error: %v", err)
	}
	if err := store.Add(newRecord("a", time.Now())); !errors.Is(err, ErrSessionExists) {
		t.Fatalf("expected ErrSessionExists, got %v", err)
	}
	if err := store.Add(newRecord("bad/id", time.Now())); !errors.Is(err, ErrInvalidSessionID) {
		t.Fatalf("expected ErrInvalidSessionID, got %v", err)
	}
	if err := store.Add(newRecord("b", time.Now())); err != nil {
		t.Fatalf("Add error: %v", err)
	}
	if err := store.Add(newRecord("c", time.Now())); !errors.Is(err, ErrTooManySessions) {
		t.Fatalf("expected ErrTooManySessions, got %v", err)
	}
}

func TestSessionStoreListOrderAndPaging(t *testing.T) {
	store := NewSessionStore(0)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	// Same timestamp for b and c: ties break on ID
	for _, r := range []*SessionRecord{
		newRecord("c", base.Add(time.Second)),
		newRecord("a", base),
		newRecord("b", base.Add(time.Second)),
		newRecord("d", base.Add(2*time.Second)),
	} {
		if err := store.Add(r); err != nil {
			t.Fatalf("Add error: %v", err)
		}
	}

	ids := func(recs []*SessionRecord) string {
		out := make([]string, 0, len(recs))
		for _, r := range recs {
			out = append(out, r.ID)
		}
		return strings.Join(out, ",")
	}

	tests := []struct {
		limit, offset int
		want          string
	}{
		{0, 0, "a,b,c,d"},
		{2, 0, "a,b"},
		{2, 2, "c,d"},
		{10, 3, "d"},
		{10, 4, ""},
		{10, -1, "a,b,c,d"},
	}
	for _, tt := range tests {
		if got := ids(store.List(tt.limit, tt.offset)); got != tt.want {
			t.Errorf("List(%d, %d) = %q, want %q", tt.limit, tt.offset, got, tt.want)
		}
	}
}

func TestSessionRecordViewIsCopy(t *testing.T) {
	rec := newRecord("a", time.Now())
	rec.advice = &Advice{Status: AdvicePending}

	v := rec.View()
	v.Advice.Status = AdviceReady
	v.State.Log = append(v.State.Log, v.State.Log...)

	if rec.advice.Status != AdvicePending {
		t.Errorf("expected record advice untouched, got %s", rec.advice.Status)
	}
}
