// Package keyring persists credentials in the operating system keychain.
package keyring

import (
	"errors"
	"fmt"

	keyringlib "github.com/zalando/go-keyring"

	"github.com/fwojciec/stagehand"
)

// Store implements stagehand.SecretStore on the system keychain.
type Store struct{}

var _ stagehand.SecretStore = (*Store)(nil)

// NewStore returns a Store backed by the platform keychain.
func NewStore() *Store {
	return &Store{}
}

func (s *Store) Get(service, user string) (string, error) {
	secret, err := keyringlib.Get(service, user)
	if errors.Is(err, keyringlib.ErrNotFound) {
		return "", stagehand.ErrSecretNotFound
	}
	if err != nil {
		return "", fmt.Errorf("keychain get: %w", err)
	}
	return secret, nil
}

func (s *Store) Set(service, user, secret string) error {
	if err := keyringlib.Set(service, user, secret); err != nil {
		return fmt.Errorf("keychain set: %w", err)
	}
	return nil
}

func (s *Store) Delete(service, user string) error {
	err := keyringlib.Delete(service, user)
	if errors.Is(err, keyringlib.ErrNotFound) {
		return stagehand.ErrSecretNotFound
	}
	if err != nil {
		return fmt.Errorf("keychain delete: %w", err)
	}
	return nil
}
