package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	// Get always returns miss
	data, hit, err := c.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if hit {
		t.Error("NullCache.Get should always return miss")
	}
	if data != nil {
		t.Error("NullCache.Get should return nil data")
	}

	// Set does nothing (no error)
	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set error: %v", err)
	}

	// Still a miss after Set
	_, hit, _ = c.Get(ctx, "key")
	if hit {
		t.Error("NullCache should not store data")
	}

	// Delete does nothing (no error)
	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
}

func TestHash(t *testing.T) {
	// Test determinism
	h1 := Hash([]byte("hello"))
	h2 := Hash([]byte("hello"))
	if h1 != h2 {
		t.Error("Hash should be deterministic")
	}

	// Test different inputs produce different hashes
	h3 := Hash([]byte("world"))
	if h1 == h3 {
		t.Error("Different inputs should produce different hashes")
	}

	// Test hash length (SHA-256 produces 64 hex chars)
	if len(h1) != 64 {
		t.Errorf("Hash length should be 64, got %d", len(h1))
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()

	// MigrationKey should include options in hash
	mk1 := k.MigrationKey("doc123", MigrationKeyOpts{Author: "a", HSpacing: 350})
	mk2 := k.MigrationKey("doc123", MigrationKeyOpts{Author: "a", HSpacing: 400})
	if mk1 == mk2 {
		t.Error("Different MigrationKeyOpts should produce different keys")
	}
	if !strings.HasPrefix(mk1, "migrate:") {
		t.Errorf("MigrationKey unexpected: %s", mk1)
	}
	if mk1 != k.MigrationKey("doc123", MigrationKeyOpts{Author: "a", HSpacing: 350}) {
		t.Error("MigrationKey should be deterministic")
	}

	// ReportKey depends on the catalog
	rk1 := k.ReportKey("doc123", "catalog-a")
	rk2 := k.ReportKey("doc123", "catalog-b")
	if rk1 == rk2 {
		t.Error("Different catalogs should produce different keys")
	}
	if !strings.HasPrefix(rk1, "report:") {
		t.Errorf("ReportKey unexpected: %s", rk1)
	}
}

func TestScopedKeyer(t *testing.T) {
	inner := NewDefaultKeyer()
	scoped := NewScopedKeyer(inner, "btgraph:")

	// All keys should be prefixed
	if got, want := scoped.ReportKey("d", "c"), "btgraph:"+inner.ReportKey("d", "c"); got != want {
		t.Errorf("ScopedKeyer ReportKey = %s, want %s", got, want)
	}

	key := scoped.MigrationKey("d", MigrationKeyOpts{})
	if !strings.HasPrefix(key, "btgraph:migrate:") {
		t.Errorf("ScopedKeyer MigrationKey should be prefixed: %s", key)
	}
}

func TestScopedKeyerNilInner(t *testing.T) {
	// Should use DefaultKeyer when inner is nil
	scoped := NewScopedKeyer(nil, "prefix:")
	key := scoped.ReportKey("d", "c")
	if key != "prefix:"+NewDefaultKeyer().ReportKey("d", "c") {
		t.Errorf("Unexpected key with nil inner: %s", key)
	}
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatalf("NewFileCache error: %v", err)
	}
	defer c.Close()

	if _, hit, err := c.Get(ctx, "missing"); hit || err != nil {
		t.Errorf("Get(missing) = %v, %v, want miss", hit, err)
	}

	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	data, hit, err := c.Get(ctx, "key")
	if err != nil || !hit || string(data) != "value" {
		t.Errorf("Get(key) = %q, %v, %v", data, hit, err)
	}

	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "key"); hit {
		t.Error("Get after Delete should miss")
	}
	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete of missing key error: %v", err)
	}
}

func TestFileCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if err := c.Set(ctx, "short", []byte("x"), time.Nanosecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, hit, _ := c.Get(ctx, "short"); hit {
		t.Error("expired entry should miss")
	}

	if err := c.Set(ctx, "forever", []byte("y"), 0); err != nil {
		t.Fatal(err)
	}
	if _, hit, _ := c.Get(ctx, "forever"); !hit {
		t.Error("entry without ttl should hit")
	}
}

type ttlRecorder struct {
	NullCache
	ttl time.Duration
}

func (r *ttlRecorder) Set(_ context.Context, _ string, _ []byte, ttl time.Duration) error {
	r.ttl = ttl
	return nil
}

func TestWithMaxTTL(t *testing.T) {
	ctx := context.Background()
	rec := &ttlRecorder{}
	c := WithMaxTTL(rec, time.Hour)

	tests := []struct {
		in, want time.Duration
	}{
		{time.Minute, time.Minute},
		{MigrationTTL, time.Hour},
		{0, time.Hour},
	}
	for _, tt := range tests {
		_ = c.Set(ctx, "k", nil, tt.in)
		if rec.ttl != tt.want {
			t.Errorf("Set(ttl=%v) stored %v, want %v", tt.in, rec.ttl, tt.want)
		}
	}

	if WithMaxTTL(rec, 0) != Cache(rec) {
		t.Error("WithMaxTTL(0) should return the cache unchanged")
	}
}

func TestFileCacheCorruptEntry(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	path := c.path("k")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, hit, err := c.Get(ctx, "k"); hit || err != nil {
		t.Errorf("corrupt entry = %v, %v, want miss", hit, err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("corrupt entry should be removed")
	}
}

func TestFileCacheClear(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	_ = c.Set(ctx, "a", []byte("1"), 0)
	_ = c.Set(ctx, "b", []byte("2"), 0)

	if err := c.Clear(); err != nil {
		t.Fatalf("Clear error: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "a"); hit {
		t.Error("Get after Clear should miss")
	}
	if _, err := os.Stat(c.Dir()); err != nil {
		t.Errorf("cache dir should exist after Clear: %v", err)
	}
}

func TestRedisOptions(t *testing.T) {
	tests := []struct {
		name     string
		opts     RedisOptions
		wantAddr string
		wantDB   int
		wantErr  bool
	}{
		{"addr", RedisOptions{Addr: "cache:6379", DB: 2}, "cache:6379", 2, false},
		{"url", RedisOptions{URL: "redis://:secret@cache:6380/3", Addr: "ignored:1"}, "cache:6380", 3, false},
		{"bad url", RedisOptions{URL: "http://cache"}, "", 0, true},
		{"empty", RedisOptions{}, "", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.opts.clientOptions()
			if (err != nil) != tt.wantErr {
				t.Fatalf("clientOptions() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if got.Addr != tt.wantAddr || got.DB != tt.wantDB {
				t.Errorf("clientOptions() = %s/%d, want %s/%d", got.Addr, got.DB, tt.wantAddr, tt.wantDB)
			}
		})
	}
}

var errBadKey = errors.New("bad key")

func TestRetryableError(t *testing.T) {
	if Retryable(nil) != nil {
		t.Error("Retryable(nil) should return nil")
	}

	err := Retryable(ErrNetwork)
	if !IsRetryable(err) {
		t.Error("IsRetryable() = false for wrapped error")
	}
	if !errors.Is(err, ErrNetwork) {
		t.Error("Retryable() should unwrap to the cause")
	}
	if err.Error() != ErrNetwork.Error() {
		t.Errorf("Error() = %q, want %q", err.Error(), ErrNetwork.Error())
	}
	if IsRetryable(errBadKey) {
		t.Error("IsRetryable() = true for plain error")
	}
}

func TestRetry(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		attempts  int
		failures  int
		cause     error
		wantErr   error
		wantCalls int
	}{
		{"first try", 3, 0, nil, nil, 1},
		{"plain error stops", 3, 5, errBadKey, errBadKey, 1},
		{"recovers after retry", 3, 1, ErrNetwork, nil, 2},
		{"gives up", 3, 5, ErrNetwork, ErrNetwork, 3},
		{"zero attempts runs once", 0, 0, nil, nil, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := Retry(ctx, tt.attempts, time.Millisecond, func() error {
				calls++
				if calls <= tt.failures {
					if tt.cause == ErrNetwork {
						return Retryable(tt.cause)
					}
					return tt.cause
				}
				return nil
			})
			if !errors.Is(err, tt.wantErr) || (tt.wantErr == nil && err != nil) {
				t.Errorf("Retry() error = %v, want %v", err, tt.wantErr)
			}
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
		})
	}
}

func TestRetryContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Retry(ctx, 3, time.Hour, func() error {
		return Retryable(ErrNetwork)
	})
	if err != context.Canceled {
		t.Errorf("Retry() error = %v, want context.Canceled", err)
	}
}
