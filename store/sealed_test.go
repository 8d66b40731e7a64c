package store

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func fastSealConfig() SealConfig {
	return SealConfig{Memory: minSealMemoryKB, Time: 1, Parallelism: 1}
}

func TestSealedRoundTrip(t *testing.T) {
	ctx := context.Background()
	backing := NewMemory(nil)
	s, err := NewSealed(backing, "correct horse", fastSealConfig())
	if err != nil {
		t.Fatalf("NewSealed: %v", err)
	}

	if err := s.Set(ctx, "token", "T-1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	raw, ok, _ := backing.Get(ctx, "token")
	if !ok || strings.Contains(raw, "T-1") || !strings.HasPrefix(raw, "$sealed$v=1$") {
		t.Fatalf("expected sealed value in backend, got %q", raw)
	}

	v, ok, err := s.Get(ctx, "token")
	if err != nil || !ok || v != "T-1" {
		t.Fatalf("expected T-1, got %q ok=%v err=%v", v, ok, err)
	}

	if err := s.Remove(ctx, "token"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, ok, err := s.Get(ctx, "token"); err != nil || ok {
		t.Fatalf("expected absent after remove, got ok=%v err=%v", ok, err)
	}
}

func TestSealedOpensAcrossInstances(t *testing.T) {
	ctx := context.Background()
	backing := NewMemory(nil)
	first, _ := NewSealed(backing, "correct horse", fastSealConfig())
	if err := first.Set(ctx, "token", "T"); err != nil {
		t.Fatalf("set: %v", err)
	}

	cfg := fastSealConfig()
	cfg.Time = 2
	second, _ := NewSealed(backing, "correct horse", cfg)
	if v, ok, err := second.Get(ctx, "token"); err != nil || !ok || v != "T" {
		t.Fatalf("expected T with changed parameters, got %q ok=%v err=%v", v, ok, err)
	}
}

func TestSealedWrongPassphrase(t *testing.T) {
	ctx := context.Background()
	backing := NewMemory(nil)
	first, _ := NewSealed(backing, "correct horse", fastSealConfig())
	_ = first.Set(ctx, "token", "T")

	other, _ := NewSealed(backing, "battery staple", fastSealConfig())
	if _, _, err := other.Get(ctx, "token"); !errors.Is(err, ErrPassphraseMismatch) {
		t.Fatalf("expected ErrPassphraseMismatch, got %v", err)
	}
}

func TestSealedBindsKeyName(t *testing.T) {
	ctx := context.Background()
	backing := NewMemory(nil)
	s, _ := NewSealed(backing, "correct horse", fastSealConfig())
	_ = s.Set(ctx, "token", "T")

	raw, _, _ := backing.Get(ctx, "token")
	_ = backing.Set(ctx, "other", raw)
	if _, _, err := s.Get(ctx, "other"); !errors.Is(err, ErrPassphraseMismatch) {
		t.Fatalf("expected moved value to fail, got %v", err)
	}
}

func TestSealedRejectsMalformed(t *testing.T) {
	ctx := context.Background()
	cases := []string{
		"plain-token",
		"$sealed$v=2$m=8192,t=1,p=1$AAAA$AAAA",
		"$sealed$v=1$m=8192,t=1$AAAA$AAAA",
		"$sealed$v=1$m=99999999,t=1,p=1$AAAAAAAAAAAAAAAAAAAAAA==$AAAA",
		"$sealed$v=1$m=8192,t=1,p=1$!!$AAAA",
	}
	for _, raw := range cases {
		backing := NewMemory(map[string]string{"token": raw})
		s, _ := NewSealed(backing, "correct horse", fastSealConfig())
		if _, _, err := s.Get(ctx, "token"); !errors.Is(err, ErrCorrupt) {
			t.Fatalf("expected ErrCorrupt for %q, got %v", raw, err)
		}
	}
}

func TestNewSealedValidation(t *testing.T) {
	if _, err := NewSealed(nil, "correct horse", fastSealConfig()); err == nil {
		t.Fatal("expected error for nil backend")
	}
	if _, err := NewSealed(NewMemory(nil), "short", fastSealConfig()); err == nil {
		t.Fatal("expected error for short passphrase")
	}
	if _, err := NewSealed(NewMemory(nil), "correct horse", SealConfig{Memory: 1, Time: 1, Parallelism: 1}); err == nil {
		t.Fatal("expected error for weak parameters")
	}
}
