package key

import (
	"context"
	"fmt"
	"strings"

	"github.com/memesong/memesong"
	"github.com/memesong/memesong/pkg/storage"
)

type Config struct {
	Debug  bool
	DBType string
	DBConn string

	Account string
	Value   string
	Delete  bool
}

// Run saves the xAI key of an account in the store.
func Run(ctx context.Context, cfg *Config) error {
	if cfg.DBType == "" {
		return fmt.Errorf("key: db type is empty")
	}
	account := cfg.Account
	if account == "" {
		account = memesong.DefaultAccount
	}
	value := strings.TrimSpace(cfg.Value)
	if value == "" && !cfg.Delete {
		return fmt.Errorf("key: value is empty")
	}

	store, err := storage.New(cfg.DBType, cfg.DBConn, cfg.Debug)
	if err != nil {
		return fmt.Errorf("key: couldn't create orm store: %w", err)
	}
	if err := store.Start(ctx); err != nil {
		return fmt.Errorf("key: couldn't start orm store: %w", err)
	}
	defer func() { _ = store.Stop() }()
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("key: couldn't migrate orm store: %w", err)
	}

	if cfg.Delete {
		value = ""
	}
	if err := store.NewKeyStore(memesong.Provider, account).SetKey(ctx, value); err != nil {
		return fmt.Errorf("key: couldn't save key: %w", err)
	}
	return nil
}
