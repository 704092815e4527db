package ports

import "context"

// SecretStore resolves account credentials referenced by domain.Account.SecretRef.
type SecretStore interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
}
