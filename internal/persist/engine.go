// Package persist serializes the whole application state to a single
// encrypted artifact and restores it. Writes are crash-safe (temp file,
// fsync, atomic rename); reads fail closed on any corruption.
package persist

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/crypto/argon2"

	"github.com/nullgrid/nullgrid/internal/models"
)

// Artifact layout: magic, key-derivation salt, AES-GCM nonce, ciphertext.
var magic = []byte("NGRID1")

const (
	engineSaltLen  = 16
	engineNonceLen = 12
)

// ErrCorrupt wraps any decode/decrypt failure on load. A corrupt artifact
// is a fatal startup condition; the engine never falls back to a fresh
// store when one exists.
var ErrCorrupt = errors.New("store artifact corrupt")

// Engine reads and writes the encrypted store artifact. Save must not be
// called concurrently with itself; the mutation coordinator serializes it.
type Engine struct {
	path   string
	secret []byte
	salt   []byte
	log    *slog.Logger
}

// NewEngine creates an engine for the artifact at path, encrypting with a
// key derived from the install-level secret.
func NewEngine(path, secret string, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{path: path, secret: []byte(secret), log: log}
}

// Load reads, decrypts and deserializes the artifact. A missing file is
// first boot and yields a fresh empty store. Anything else that fails
// returns an error wrapping ErrCorrupt.
func (e *Engine) Load() (*models.PersistedStore, error) {
	raw, err := os.ReadFile(e.path)
	if errors.Is(err, os.ErrNotExist) {
		e.log.Info("no store artifact, starting fresh", "path", e.path)
		return models.NewStore(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading store artifact: %w", err)
	}

	header := len(magic) + engineSaltLen + engineNonceLen
	if len(raw) < header || string(raw[:len(magic)]) != string(magic) {
		return nil, fmt.Errorf("%w: truncated or unrecognized header", ErrCorrupt)
	}
	salt := raw[len(magic) : len(magic)+engineSaltLen]
	nonce := raw[len(magic)+engineSaltLen : header]
	ciphertext := raw[header:]

	aead, err := e.aead(salt)
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, magic)
	if err != nil {
		return nil, fmt.Errorf("%w: decrypt failed (wrong key or damaged file): %v", ErrCorrupt, err)
	}

	store := models.NewStore()
	if err := json.Unmarshal(plaintext, store); err != nil {
		return nil, fmt.Errorf("%w: decode failed: %v", ErrCorrupt, err)
	}
	e.salt = append([]byte(nil), salt...)
	return store, nil
}

// Save serializes and encrypts the store, then atomically replaces the
// prior artifact. A crash mid-write leaves the previous artifact intact.
func (e *Engine) Save(store *models.PersistedStore) error {
	if e.salt == nil {
		e.salt = make([]byte, engineSaltLen)
		if _, err := rand.Read(e.salt); err != nil {
			return fmt.Errorf("generating salt: %w", err)
		}
	}
	plaintext, err := json.Marshal(store)
	if err != nil {
		return fmt.Errorf("encoding store: %w", err)
	}

	aead, err := e.aead(e.salt)
	if err != nil {
		return err
	}
	nonce := make([]byte, engineNonceLen)
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("generating nonce: %w", err)
	}
	ciphertext := aead.Seal(nil, nonce, plaintext, magic)

	buf := make([]byte, 0, len(magic)+engineSaltLen+engineNonceLen+len(ciphertext))
	buf = append(buf, magic...)
	buf = append(buf, e.salt...)
	buf = append(buf, nonce...)
	buf = append(buf, ciphertext...)

	return e.writeAtomic(buf)
}

// Backup copies the current artifact into dir with a timestamped name.
// Used by the scheduled maintenance job; a missing artifact is not an
// error (nothing has been saved yet).
func (e *Engine) Backup(dir string) (string, error) {
	src, err := os.Open(e.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("opening store artifact: %w", err)
	}
	defer src.Close()

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("creating backup dir: %w", err)
	}
	name := fmt.Sprintf("%s.%s.bak", filepath.Base(e.path), time.Now().UTC().Format("20060102T150405Z"))
	dst := filepath.Join(dir, name)

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", fmt.Errorf("creating backup: %w", err)
	}
	defer out.Close()
	if _, err := io.Copy(out, src); err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("copying backup: %w", err)
	}
	return dst, nil
}

func (e *Engine) aead(salt []byte) (cipher.AEAD, error) {
	key := argon2.IDKey(e.secret, salt, 1, 64*1024, 4, 32)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating gcm: %w", err)
	}
	return aead, nil
}

func (e *Engine) writeAtomic(data []byte) error {
	dir := filepath.Dir(e.path)
	tmp, err := os.CreateTemp(dir, ".store-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer func() {
		if tmp != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err := tmp.Chmod(0o600); err != nil {
		return fmt.Errorf("setting artifact mode: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("writing artifact: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("syncing artifact: %w", err)
	}
	name := tmp.Name()
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing artifact: %w", err)
	}
	tmp = nil
	if err := os.Rename(name, e.path); err != nil {
		os.Remove(name)
		return fmt.Errorf("replacing artifact: %w", err)
	}
	return nil
}
