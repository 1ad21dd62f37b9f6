package repository

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/nacl/secretbox"
)

var ErrTokenUnreadable = errors.New("stored token could not be opened")

const sealedPrefix = "sealed:"

// TokenSealer encrypts the token at rest with a passphrase-derived key
type TokenSealer struct {
	passphrase []byte
}

// NewTokenSealer returns nil for an empty passphrase, which disables sealing
func NewTokenSealer(passphrase string) *TokenSealer {
	if passphrase == "" {
		return nil
	}
	return &TokenSealer{passphrase: []byte(passphrase)}
}

func (s *TokenSealer) key(salt []byte) *[32]byte {
	var k [32]byte
	copy(k[:], argon2.IDKey(s.passphrase, salt, 1, 64*1024, 2, 32))
	return &k
}

// Seal returns "sealed:" + base64(salt | nonce | box)
func (s *TokenSealer) Seal(token string) (string, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	out := append([]byte{}, salt...)
	out = append(out, nonce[:]...)
	out = secretbox.Seal(out, []byte(token), &nonce, s.key(salt))
	return sealedPrefix + base64.StdEncoding.EncodeToString(out), nil
}

// Open reverses Seal
func (s *TokenSealer) Open(stored string) (string, error) {
	if !strings.HasPrefix(stored, sealedPrefix) {
		return "", ErrTokenUnreadable
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(stored, sealedPrefix))
	if err != nil || len(raw) < 16+24+secretbox.Overhead {
		return "", ErrTokenUnreadable
	}

	salt := raw[:16]
	var nonce [24]byte
	copy(nonce[:], raw[16:40])
	plain, ok := secretbox.Open(nil, raw[40:], &nonce, s.key(salt))
	if !ok {
		return "", ErrTokenUnreadable
	}
	return string(plain), nil
}

func sealIfNeeded(s *TokenSealer, token string) (string, error) {
	if s == nil {
		return token, nil
	}
	return s.Seal(token)
}

func openIfNeeded(s *TokenSealer, stored string) (string, error) {
	if stored == "" {
		return "", nil
	}
	if s == nil {
		if strings.HasPrefix(stored, sealedPrefix) {
			return "", ErrTokenUnreadable
		}
		return stored, nil
	}
	return s.Open(stored)
}

// FileTokenStore keeps {"<key>": "<token>"} in a single JSON file with 0600 permissions
type FileTokenStore struct {
	path   string
	key    string
	sealer *TokenSealer
	mu     sync.Mutex
}

func NewFileTokenStore(path, key string, sealer *TokenSealer) *FileTokenStore {
	return &FileTokenStore{path: path, key: key, sealer: sealer}
}

func (s *FileTokenStore) Load(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read token file: %w", err)
	}

	var doc map[string]string
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenUnreadable, err)
	}
	return openIfNeeded(s.sealer, doc[s.key])
}

func (s *FileTokenStore) Save(_ context.Context, token string) error {
	stored, err := sealIfNeeded(s.sealer, token)
	if err != nil {
		return err
	}
	data, err := json.Marshal(map[string]string{s.key: stored})
	if err != nil {
		return fmt.Errorf("failed to encode token file: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace token file: %w", err)
	}
	return nil
}

func (s *FileTokenStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove token file: %w", err)
	}
	return nil
}

// RedisTokenStore keeps the token under prefix+key without expiry
type RedisTokenStore struct {
	client redis.UniversalClient
	key    string
	sealer *TokenSealer
}

func NewRedisTokenStore(client redis.UniversalClient, prefix, key string, sealer *TokenSealer) *RedisTokenStore {
	return &RedisTokenStore{client: client, key: prefix + key, sealer: sealer}
}

func (s *RedisTokenStore) Load(ctx context.Context) (string, error) {
	stored, err := s.client.Get(ctx, s.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read token from redis: %w", err)
	}
	return openIfNeeded(s.sealer, stored)
}

func (s *RedisTokenStore) Save(ctx context.Context, token string) error {
	stored, err := sealIfNeeded(s.sealer, token)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key, stored, 0).Err(); err != nil {
		return fmt.Errorf("failed to write token to redis: %w", err)
	}
	return nil
}

func (s *RedisTokenStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("failed to delete token from redis: %w", err)
	}
	return nil
}

// MemoryTokenStore is a process-local store used when nothing should touch disk
type MemoryTokenStore struct {
	mu    sync.Mutex
	token string
}

func NewMemoryTokenStore(token string) *MemoryTokenStore {
	return &MemoryTokenStore{token: token}
}

func (s *MemoryTokenStore) Load(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, nil
}

func (s *MemoryTokenStore) Save(_ context.Context, token string) error {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return nil
}

func (s *MemoryTokenStore) Clear(context.Context) error {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
	return nil
}
