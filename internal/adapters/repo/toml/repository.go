package toml

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
	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

const (
	accountsPathKey = "accounts.path"
	defaultDir      = ".engage"
	defaultFile     = "accounts.toml"
	rosterFileMode  = 0o600
	rosterDirMode   = 0o700
	tempFilePattern = ".accounts-*.toml.tmp"
)

// rosterLocks maps a cleaned roster path to the *sync.RWMutex shared by every
// Repository opened on it.
var rosterLocks sync.Map

// Repository stores the account roster in a TOML file. Roster order is preserved.
type Repository struct {
	path string
	mu   *sync.RWMutex
}

var _ ports.AccountRepository = (*Repository)(nil)

// NewRepository opens the roster at accounts.path, or ~/.engage/accounts.toml when unset.
// The file is created on first Save.
func NewRepository(cfg *viper.Viper) (*Repository, error) {
	path, err := rosterPath(cfg)
	if err != nil {
		return nil, err
	}

	lock, _ := rosterLocks.LoadOrStore(path, &sync.RWMutex{})
	return &Repository{path: path, mu: lock.(*sync.RWMutex)}, nil
}

func rosterPath(cfg *viper.Viper) (string, error) {
	var path string
	if cfg != nil {
		path = strings.TrimSpace(cfg.GetString(accountsPathKey))
	}
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		path = filepath.Join(home, defaultDir, defaultFile)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve accounts path: %w", err)
	}
	return abs, nil
}

func (r *Repository) Path() string {
	return r.path
}

func (r *Repository) Save(ctx context.Context, account domain.Account) error {
	if strings.TrimSpace(string(account.ID)) == "" {
		return errors.New("account id is required")
	}

	return r.update(ctx, func(roster *rosterFile) {
		roster.upsert(toRecord(account))
	})
}

func (r *Repository) GetByID(ctx context.Context, id domain.AccountID) (domain.Account, error) {
	roster, err := r.snapshot(ctx)
	if err != nil {
		return domain.Account{}, err
	}

	if i := roster.indexOf(string(id)); i >= 0 {
		return roster.Accounts[i].account(), nil
	}
	return domain.Account{}, domain.ErrAccountNotFound
}

func (r *Repository) List(ctx context.Context) ([]domain.Account, error) {
	roster, err := r.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	accounts := make([]domain.Account, 0, len(roster.Accounts))
	for _, rec := range roster.Accounts {
		accounts = append(accounts, rec.account())
	}
	return accounts, nil
}

func (r *Repository) snapshot(ctx context.Context) (rosterFile, error) {
	if err := ctx.Err(); err != nil {
		return rosterFile{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.load()
}

// update applies mutate to the current roster under the write lock and persists it.
func (r *Repository) update(ctx context.Context, mutate func(*rosterFile)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	roster, err := r.load()
	if err != nil {
		return err
	}
	mutate(&roster)

	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := toml.Marshal(roster)
	if err != nil {
		return fmt.Errorf("encode accounts file: %w", err)
	}
	return replaceFile(r.path, data)
}

func (r *Repository) load() (rosterFile, error) {
	data, err := os.ReadFile(r.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return newRosterFile(), nil
	case err != nil:
		return rosterFile{}, fmt.Errorf("read accounts file: %w", err)
	}

	var roster rosterFile
	if err := toml.Unmarshal(data, &roster); err != nil {
		return rosterFile{}, fmt.Errorf("decode accounts file: %w", err)
	}
	if err := roster.normalize(); err != nil {
		return rosterFile{}, err
	}
	return roster, nil
}

// replaceFile writes data to a temp file beside path and renames it into place.
func replaceFile(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, rosterDirMode); err != nil {
		return fmt.Errorf("create accounts directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp accounts file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err == nil {
		err = tmp.Chmod(rosterFileMode)
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("write temp accounts file: %w", err)
	}

	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace accounts file: %w", err)
	}
	return nil
}
