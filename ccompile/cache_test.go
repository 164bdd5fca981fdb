package ccompile

import (
	"bytes"
	"crypto/sha256"
	"path/filepath"
	"testing"
)

func TestCache_RoundTrip(t *testing.T) {
	cache, err := OpenCache(filepath.Join(t.TempDir(), "modules.db"))
	if err != nil {
		t.Fatalf("OpenCache failed: %v", err)
	}
	defer cache.Close()

	key := sha256.Sum256([]byte("source"))
	module := []byte{0x7f, 'E', 'L', 'F', 0, 1, 2, 3}

	if _, ok, err := cache.Get(key); err != nil || ok {
		t.Fatalf("empty cache returned a hit (ok=%v, err=%v)", ok, err)
	}

	if err := cache.Put(key, module); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, ok, err := cache.Get(key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !ok || !bytes.Equal(got, module) {
		t.Errorf("Get = (%v, %v), want stored module", got, ok)
	}

	other := sha256.Sum256([]byte("different source"))
	if _, ok, _ := cache.Get(other); ok {
		t.Error("unrelated key hit the cache")
	}
}

func TestCache_PutOverwrites(t *testing.T) {
	cache, err := OpenCache(filepath.Join(t.TempDir(), "modules.db"))
	if err != nil {
		t.Fatalf("OpenCache failed: %v", err)
	}
	defer cache.Close()

	key := sha256.Sum256([]byte("source"))
	if err := cache.Put(key, []byte("v1")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := cache.Put(key, []byte("v2")); err != nil {
		t.Fatalf("second Put failed: %v", err)
	}
	got, ok, err := cache.Get(key)
	if err != nil || !ok {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "v2" {
		t.Errorf("Get = %q, want %q", got, "v2")
	}
}
