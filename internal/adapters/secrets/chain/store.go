// Package chain tries several secret stores in order.
package chain

import (
	"context"
	"errors"
	"fmt"

	"github.com/bnema/engagement-accounts-cli/internal/ports"
)

var errNoStores = errors.New("secret store chain is empty")

// Store writes to the first backend that accepts a secret and reads from the first
// backend that has it. Delete reaches every backend so no stale copy survives.
type Store struct {
	backends []ports.SecretStore
}

var _ ports.SecretStore = (*Store)(nil)

func NewStore(backends ...ports.SecretStore) (*Store, error) {
	kept := make([]ports.SecretStore, 0, len(backends))
	for _, backend := range backends {
		if backend != nil {
			kept = append(kept, backend)
		}
	}
	if len(kept) == 0 {
		return nil, errNoStores
	}

	return &Store{backends: kept}, nil
}

func (s *Store) Put(ctx context.Context, key string, value string) error {
	var errs []error
	for i, backend := range s.backends {
		err := backend.Put(ctx, key, value)
		if err == nil {
			return nil
		}
		if isContextError(err) {
			return err
		}
		errs = append(errs, fmt.Errorf("backend %d put: %w", i, err))
	}

	return errors.Join(errs...)
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var errs []error
	for i, backend := range s.backends {
		value, err := backend.Get(ctx, key)
		if err == nil {
			return value, nil
		}
		if isContextError(err) {
			return "", err
		}
		errs = append(errs, fmt.Errorf("backend %d get: %w", i, err))
	}

	return "", errors.Join(errs...)
}

func (s *Store) Delete(ctx context.Context, key string) error {
	var errs []error
	for i, backend := range s.backends {
		if err := backend.Delete(ctx, key); err != nil {
			if isContextError(err) {
				return err
			}
			errs = append(errs, fmt.Errorf("backend %d delete: %w", i, err))
		}
	}

	return errors.Join(errs...)
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
