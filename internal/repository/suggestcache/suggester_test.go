package suggestcache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kailas-cloud/appsearch/internal/db"
	"github.com/kailas-cloud/appsearch/internal/domain/suggest"
)

var sample = []suggest.FieldSuggestions{{
	Field:   "title",
	Entries: []suggest.Entry{{Text: "chanel", Options: []suggest.Option{{Text: "channel", Score: 0.8}}}},
}}

func TestSuggest_CacheMiss(t *testing.T) {
	inner := &mockSuggester{result: sample}
	cs, ms := newTestCachedSuggester(t, inner, time.Hour)

	var storedTTL time.Duration
	var stored []byte
	ms.setWithTTLFn = func(_ context.Context, _ string, value []byte, ttl time.Duration) error {
		stored, storedTTL = value, ttl
		return nil
	}

	got, err := cs.Suggest(context.Background(), "content", []string{"title"}, "chanel")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 1 || len(got) != 1 || got[0].Field != "title" {
		t.Fatalf("unexpected result %+v (calls=%d)", got, inner.calls)
	}
	if storedTTL != time.Hour {
		t.Errorf("expected ttl 1h, got %v", storedTTL)
	}
	var decoded []suggest.FieldSuggestions
	if err := json.Unmarshal(stored, &decoded); err != nil || decoded[0].Entries[0].Options[0].Text != "channel" {
		t.Errorf("unexpected cached payload %s (%v)", stored, err)
	}
}

func TestSuggest_CacheHit(t *testing.T) {
	inner := &mockSuggester{}
	cs, ms := newTestCachedSuggester(t, inner, 0)

	cached, _ := json.Marshal(sample)
	ms.getFn = func(_ context.Context, _ string) ([]byte, error) {
		return cached, nil
	}

	got, err := cs.Suggest(context.Background(), "content", []string{"title"}, "chanel")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 0 {
		t.Errorf("expected inner not to be called, got %d", inner.calls)
	}
	if got[0].Entries[0].Text != "chanel" {
		t.Errorf("unexpected cached result %+v", got)
	}
}

func TestSuggest_NoTTLUsesSet(t *testing.T) {
	inner := &mockSuggester{result: sample}
	cs, ms := newTestCachedSuggester(t, inner, 0)

	var setCalled, ttlCalled bool
	ms.setFn = func(context.Context, string, []byte) error { setCalled = true; return nil }
	ms.setWithTTLFn = func(context.Context, string, []byte, time.Duration) error { ttlCalled = true; return nil }

	if _, err := cs.Suggest(context.Background(), "content", []string{"title"}, "chanel"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !setCalled || ttlCalled {
		t.Errorf("set=%v setWithTTL=%v", setCalled, ttlCalled)
	}
}

func TestSuggest_InnerError(t *testing.T) {
	inner := &mockSuggester{err: errors.New("elasticsearch down")}
	cs, ms := newTestCachedSuggester(t, inner, time.Minute)

	ms.setWithTTLFn = func(context.Context, string, []byte, time.Duration) error {
		t.Fatal("SET should not be called on inner error")
		return nil
	}

	if _, err := cs.Suggest(context.Background(), "content", []string{"title"}, "chanel"); err == nil {
		t.Fatal("expected error")
	}
}

func TestSuggest_StoreErrorsAreLoggedNotReturned(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	inner := &mockSuggester{result: sample}
	ms := &mockKVStore{
		getFn: func(context.Context, string) ([]byte, error) {
			return nil, &db.Error{Op: db.OpGet, Err: errors.New("timeout")}
		},
		setWithTTLFn: func(context.Context, string, []byte, time.Duration) error {
			return &db.Error{Op: db.OpSet, Err: errors.New("timeout")}
		},
	}
	cs := New(inner, ms, time.Minute, nil, zap.New(core))

	if _, err := cs.Suggest(context.Background(), "content", []string{"title"}, "chanel"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if logs.Len() != 2 {
		t.Errorf("expected 2 warnings, got %d", logs.Len())
	}
}

func TestSuggest_CorruptCacheFallsThrough(t *testing.T) {
	inner := &mockSuggester{result: sample}
	cs, ms := newTestCachedSuggester(t, inner, 0)
	ms.getFn = func(context.Context, string) ([]byte, error) { return []byte("{not json"), nil }

	if _, err := cs.Suggest(context.Background(), "content", []string{"title"}, "chanel"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("expected fall-through to inner, calls=%d", inner.calls)
	}
}

func TestSuggest_CountsHitsAndMisses(t *testing.T) {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_cache_total"}, []string{"result"})
	inner := &mockSuggester{result: sample}
	var stored []byte
	ms := &mockKVStore{
		getFn: func(context.Context, string) ([]byte, error) {
			if stored == nil {
				return nil, db.ErrKeyNotFound
			}
			return stored, nil
		},
		setFn: func(_ context.Context, _ string, v []byte) error { stored = v; return nil },
	}
	cs := New(inner, ms, 0, counter, zap.NewNop())

	for i := 0; i < 3; i++ {
		if _, err := cs.Suggest(context.Background(), "content", []string{"title"}, "chanel"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if got := testutil.ToFloat64(counter.WithLabelValues("miss")); got != 1 {
		t.Errorf("misses = %v, want 1", got)
	}
	if got := testutil.ToFloat64(counter.WithLabelValues("hit")); got != 2 {
		t.Errorf("hits = %v, want 2", got)
	}
}

func TestCacheKey_DistinguishesInputs(t *testing.T) {
	a := cacheKey("content", []string{"title"}, "chanel")
	b := cacheKey("content", []string{"title", "body"}, "chanel")
	c := cacheKey("other", []string{"title"}, "chanel")
	if a == b || a == c || b == c {
		t.Error("expected distinct keys")
	}
	if a != cacheKey("content", []string{"title"}, "chanel") {
		t.Error("expected stable key")
	}
}
