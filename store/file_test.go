package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFileRoundTripAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	ctx := context.Background()

	first := NewFile(path)
	if _, ok, err := first.Get(ctx, "token"); err != nil || ok {
		t.Fatalf("expected missing file to read as empty, got ok=%v err=%v", ok, err)
	}
	if err := first.Set(ctx, "token", "T"); err != nil {
		t.Fatalf("set: %v", err)
	}

	second := NewFile(path)
	v, ok, err := second.Get(ctx, "token")
	if err != nil || !ok || v != "T" {
		t.Fatalf("expected T from a fresh instance, got %q ok=%v err=%v", v, ok, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != fileMode {
		t.Fatalf("expected mode %o, got %o", fileMode, perm)
	}
}

func TestFileRemoveKeepsOtherKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	ctx := context.Background()
	s := NewFile(path)

	if err := s.Set(ctx, "token", "T"); err != nil {
		t.Fatalf("set token: %v", err)
	}
	if err := s.Set(ctx, "api", "http://localhost"); err != nil {
		t.Fatalf("set api: %v", err)
	}
	if err := s.Remove(ctx, "token"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := s.Remove(ctx, "token"); err != nil {
		t.Fatalf("second remove: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "token"); ok {
		t.Fatal("expected token removed")
	}
	if v, ok, _ := s.Get(ctx, "api"); !ok || v != "http://localhost" {
		t.Fatalf("expected api key preserved, got %q ok=%v", v, ok)
	}
}

func TestFileCorruptContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, _, err := NewFile(path).Get(context.Background(), "token")
	if !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
}

func TestFileLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s := NewFile(filepath.Join(dir, "session.json"))
	for i := 0; i < 5; i++ {
		if err := s.Set(context.Background(), "token", "T"); err != nil {
			t.Fatalf("set: %v", err)
		}
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only session.json, got %d entries", len(entries))
	}
}

func TestMemorySeedIsCopied(t *testing.T) {
	seed := map[string]string{"token": "T"}
	m := NewMemory(seed)
	seed["token"] = "changed"

	v, ok, err := m.Get(context.Background(), "token")
	if err != nil || !ok || v != "T" {
		t.Fatalf("expected seeded T, got %q ok=%v err=%v", v, ok, err)
	}
	if err := m.Remove(context.Background(), "token"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if m.Len() != 0 {
		t.Fatalf("expected empty store, got %d", m.Len())
	}
	if _, _, err := m.Get(context.Background(), ""); !errors.Is(err, ErrEmptyKey) {
		t.Fatalf("expected ErrEmptyKey, got %v", err)
	}
}
