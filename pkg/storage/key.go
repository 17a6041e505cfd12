package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// NewKeyStore returns the credential store of a provider account. The key is
// kept in the setting "<provider>/<account>/key".
func (s *Store) NewKeyStore(provider, account string) *KeyStore {
	return &KeyStore{
		store:    s,
		provider: provider,
		account:  account,
	}
}

type KeyStore struct {
	store    *Store
	provider string
	account  string
}

func (k *KeyStore) id() string {
	return fmt.Sprintf("%s/%s/key", k.provider, k.account)
}

// GetKey returns the stored key or an empty string if none was saved.
func (k *KeyStore) GetKey(ctx context.Context) (string, error) {
	setting, err := k.store.GetSetting(ctx, k.id())
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return setting.Value, nil
}

// SetKey saves the key. An empty key removes it.
func (k *KeyStore) SetKey(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return k.store.DeleteSetting(ctx, k.id())
	}
	return k.store.SetSetting(ctx, &Setting{
		ID:    k.id(),
		Value: key,
	})
}
