package store

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	sealedID            = "sealed"
	sealedVersion       = 1
	minSealMemoryKB     = 8 * 1024
	minSealTime         = 1
	minSealParallelism  = 1
	sealSaltLength      = 16
	minPassphraseLength = 8
	maxSealMemoryKB     = 1024 * 1024
	maxSealTime         = 16
)

// ErrPassphraseMismatch is returned when a sealed value cannot be opened with
// the configured passphrase.
var ErrPassphraseMismatch = errors.New("store: sealed value does not open with passphrase")

// Backend is the key-value contract every store in this package satisfies.
type Backend interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// SealConfig controls the argon2id derivation of the encryption key.
type SealConfig struct {
	Memory      uint32 // KiB
	Time        uint32
	Parallelism uint8
}

// DefaultSealConfig returns interactive-grade argon2id parameters.
func DefaultSealConfig() SealConfig {
	return SealConfig{
		Memory:      64 * 1024,
		Time:        2,
		Parallelism: 2,
	}
}

func (c SealConfig) validate() error {
	if c.Memory < minSealMemoryKB {
		return fmt.Errorf("store: seal memory must be >= %d KiB", minSealMemoryKB)
	}
	if c.Time < minSealTime {
		return errors.New("store: seal time must be >= 1")
	}
	if c.Parallelism < minSealParallelism {
		return errors.New("store: seal parallelism must be >= 1")
	}
	return nil
}

// Sealed encrypts values with XChaCha20-Poly1305 before handing them to the
// wrapped backend. The key is derived from a passphrase with argon2id; each
// value carries its own salt and parameters, so a sealed value stays readable
// after the parameters change.
//
// The stored key name is bound as additional data, so a value copied to a
// different key fails to open.
type Sealed struct {
	next       Backend
	passphrase []byte
	config     SealConfig

	mu        sync.Mutex
	cacheSalt string
	cacheKey  []byte
}

// NewSealed wraps next. The passphrase must be at least 8 bytes.
func NewSealed(next Backend, passphrase string, cfg SealConfig) (*Sealed, error) {
	if next == nil {
		return nil, errors.New("store: sealed backend is nil")
	}
	if len(passphrase) < minPassphraseLength {
		return nil, fmt.Errorf("store: passphrase must be at least %d bytes", minPassphraseLength)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Sealed{
		next:       next,
		passphrase: []byte(passphrase),
		config:     cfg,
	}, nil
}

func (s *Sealed) Get(ctx context.Context, key string) (string, bool, error) {
	raw, ok, err := s.next.Get(ctx, key)
	if err != nil || !ok {
		return "", ok, err
	}
	plain, err := s.open(key, raw)
	if err != nil {
		return "", false, err
	}
	return plain, true, nil
}

func (s *Sealed) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return ErrEmptyKey
	}
	sealed, err := s.seal(key, value)
	if err != nil {
		return err
	}
	return s.next.Set(ctx, key, sealed)
}

func (s *Sealed) Remove(ctx context.Context, key string) error {
	return s.next.Remove(ctx, key)
}

func (s *Sealed) seal(key, value string) (string, error) {
	salt := make([]byte, sealSaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}
	aead, err := chacha20poly1305.NewX(s.derive(salt, s.config))
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(value)+aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	box := aead.Seal(nonce, nonce, []byte(value), []byte(key))

	return fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		sealedID,
		sealedVersion,
		s.config.Memory,
		s.config.Time,
		s.config.Parallelism,
		base64.StdEncoding.EncodeToString(salt),
		base64.StdEncoding.EncodeToString(box),
	), nil
}

func (s *Sealed) open(key, raw string) (string, error) {
	parts := strings.Split(raw, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != sealedID {
		return "", fmt.Errorf("%w: not a sealed value", ErrCorrupt)
	}
	if parts[2] != "v="+strconv.Itoa(sealedVersion) {
		return "", fmt.Errorf("%w: unsupported sealed version", ErrCorrupt)
	}
	cfg, err := parseSealParams(parts[3])
	if err != nil {
		return "", err
	}
	salt, err := base64.StdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) != sealSaltLength {
		return "", fmt.Errorf("%w: invalid salt", ErrCorrupt)
	}
	box, err := base64.StdEncoding.DecodeString(parts[5])
	if err != nil || len(box) < chacha20poly1305.NonceSizeX+chacha20poly1305.Overhead {
		return "", fmt.Errorf("%w: invalid ciphertext", ErrCorrupt)
	}

	aead, err := chacha20poly1305.NewX(s.derive(salt, cfg))
	if err != nil {
		return "", err
	}
	nonce, ciphertext := box[:chacha20poly1305.NonceSizeX], box[chacha20poly1305.NonceSizeX:]
	plain, err := aead.Open(nil, nonce, ciphertext, []byte(key))
	if err != nil {
		return "", ErrPassphraseMismatch
	}
	return string(plain), nil
}

// derive caches the most recently derived key.
func (s *Sealed) derive(salt []byte, cfg SealConfig) []byte {
	id := fmt.Sprintf("%d,%d,%d$%s", cfg.Memory, cfg.Time, cfg.Parallelism, salt)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cacheKey != nil && s.cacheSalt == id {
		return s.cacheKey
	}
	k := argon2.IDKey(s.passphrase, salt, cfg.Time, cfg.Memory, cfg.Parallelism, chacha20poly1305.KeySize)
	s.cacheSalt = id
	s.cacheKey = k
	return k
}

func parseSealParams(part string) (SealConfig, error) {
	var cfg SealConfig
	var seen int
	for _, pair := range strings.Split(part, ",") {
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			return cfg, fmt.Errorf("%w: invalid parameter entry", ErrCorrupt)
		}
		switch name {
		case "m":
			v, err := strconv.ParseUint(value, 10, 32)
			if err != nil {
				return cfg, fmt.Errorf("%w: invalid memory parameter", ErrCorrupt)
			}
			cfg.Memory = uint32(v)
		case "t":
			v, err := strconv.ParseUint(value, 10, 32)
			if err != nil {
				return cfg, fmt.Errorf("%w: invalid time parameter", ErrCorrupt)
			}
			cfg.Time = uint32(v)
		case "p":
			v, err := strconv.ParseUint(value, 10, 8)
			if err != nil {
				return cfg, fmt.Errorf("%w: invalid parallelism parameter", ErrCorrupt)
			}
			cfg.Parallelism = uint8(v)
		default:
			return cfg, fmt.Errorf("%w: unsupported parameter %q", ErrCorrupt, name)
		}
		seen++
	}
	if seen != 3 {
		return cfg, fmt.Errorf("%w: missing parameters", ErrCorrupt)
	}
	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if cfg.Memory > maxSealMemoryKB || cfg.Time > maxSealTime {
		return cfg, fmt.Errorf("%w: parameters exceed limits", ErrCorrupt)
	}
	return cfg, nil
}
