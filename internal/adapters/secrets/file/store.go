package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bnema/engagement-accounts-cli/internal/domain"
	"github.com/bnema/engagement-accounts-cli/internal/ports"
)

const (
	storeDirMode   = 0o700
	secretFileMode = 0o600
)

// Store keeps one secret per file under root. A ref such as engage://acc-1/session
// is stored at <root>/engage/acc-1/session.
type Store struct {
	root string
	mu   sync.RWMutex
}

var _ ports.SecretStore = (*Store)(nil)

func NewStore(root string) *Store {
	return &Store{root: filepath.Clean(root)}
}

// Put replaces the secret atomically, so a concurrent Get never reads a partial value.
func (s *Store) Put(ctx context.Context, key string, value string) error {
	path, err := s.locate(ctx, key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, storeDirMode); err != nil {
		return fmt.Errorf("create secret directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("write secret %q: %w", key, err)
	}
	tmpName := tmp.Name()

	_, err = tmp.WriteString(value)
	if err == nil {
		err = tmp.Chmod(secretFileMode)
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Rename(tmpName, path)
	}
	if err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write secret %q: %w", key, err)
	}
	return nil
}

// Get returns the secret without trailing newlines.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	path, err := s.locate(ctx, key)
	if err != nil {
		return "", err
	}

	s.mu.RLock()
	data, err := os.ReadFile(path)
	s.mu.RUnlock()

	switch {
	case errors.Is(err, os.ErrNotExist):
		return "", fmt.Errorf("secret %q: %w", key, domain.ErrSecretNotFound)
	case err != nil:
		return "", fmt.Errorf("read secret %q: %w", key, err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

// Delete succeeds when the secret is already gone.
func (s *Store) Delete(ctx context.Context, key string) error {
	path, err := s.locate(ctx, key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete secret %q: %w", key, err)
	}
	return nil
}

func (s *Store) locate(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	rel, err := relativePath(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, rel), nil
}

// relativePath maps scheme://rest to scheme/rest and rejects keys that would leave the root.
func relativePath(key string) (string, error) {
	ref := strings.TrimSpace(key)
	if ref == "" {
		return "", errors.New("secret key is empty")
	}
	if scheme, rest, ok := strings.Cut(ref, "://"); ok {
		ref = scheme + "/" + rest
	}

	rel := filepath.Clean(ref)
	if rel == "." || rel == ".." || filepath.IsAbs(rel) || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid secret key %q", key)
	}
	return rel, nil
}
