package evalcache

import (
	"context"
	"fmt"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/park285/cheese-review/internal/review"
)

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

func newTestStore(t *testing.T, fingerprint string) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(func() { mr.Close() })
	s, err := Open(context.Background(), fmt.Sprintf("redis://%s/0", mr.Addr()), fingerprint, time.Hour)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestStoreRoundTrip(t *testing.T) {
	s, mr := newTestStore(t, "stockfish|thr=1|hash=64")
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, startFEN, 12); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}
	want := review.MateFor(review.Black, 3)
	if err := s.Put(ctx, startFEN, 12, want); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := s.Get(ctx, startFEN, 12)
	if err != nil || !ok || got != want {
		t.Fatalf("Get = %+v ok=%v err=%v", got, ok, err)
	}
	if _, ok, _ := s.Get(ctx, startFEN, 14); ok {
		t.Fatalf("depth must be part of the key")
	}
	if ttl := mr.TTL(s.key(startFEN, 12)); ttl != time.Hour {
		t.Fatalf("ttl = %s", ttl)
	}
}

func TestStoreScopedByFingerprint(t *testing.T) {
	a, mr := newTestStore(t, "a")
	b := NewStore(a.rdb, "b", time.Hour)
	ctx := context.Background()
	if err := a.Put(ctx, startFEN, 12, review.Centipawns(25)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, ok, _ := b.Get(ctx, startFEN, 12); ok {
		t.Fatalf("fingerprints share entries")
	}
	mr.FastForward(2 * time.Hour)
	if _, ok, _ := a.Get(ctx, startFEN, 12); ok {
		t.Fatalf("entry should have expired")
	}
}

func TestStoreCorruptEntry(t *testing.T) {
	s, mr := newTestStore(t, "a")
	if err := mr.Set(s.key(startFEN, 12), "not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, _, err := s.Get(context.Background(), startFEN, 12); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestParseRedisURL(t *testing.T) {
	opts, err := ParseRedisURL("redis://:secret@localhost:6380/2")
	if err != nil {
		t.Fatalf("ParseRedisURL: %v", err)
	}
	if opts.Addr != "localhost:6380" || opts.Password != "secret" || opts.DB != 2 {
		t.Fatalf("opts = %+v", opts)
	}
	if _, err := ParseRedisURL("http://localhost"); err == nil {
		t.Fatalf("expected scheme error")
	}
}

func TestParseRedisURLDefaultsAndTLS(t *testing.T) {
	opts, err := ParseRedisURL("redis://localhost/0")
	if err != nil {
		t.Fatalf("ParseRedisURL: %v", err)
	}
	if opts.Addr != "localhost:6379" || opts.TLSConfig != nil {
		t.Fatalf("plain opts = addr %q tls %v", opts.Addr, opts.TLSConfig)
	}

	opts, err = ParseRedisURL("rediss://cache.example.com:6380/1")
	if err != nil {
		t.Fatalf("ParseRedisURL: %v", err)
	}
	if opts.TLSConfig == nil || opts.TLSConfig.ServerName != "cache.example.com" {
		t.Fatalf("rediss must enable TLS, got %+v", opts.TLSConfig)
	}
	if opts.Addr != "cache.example.com:6380" || opts.DB != 1 {
		t.Fatalf("tls opts = %+v", opts)
	}
}
