package stagehand

import "errors"

// ErrSecretNotFound is returned by SecretStore.Get when no secret is
// stored under the given service and user.
var ErrSecretNotFound = errors.New("secret not found")

// SecretStore persists credentials between sessions, typically in the
// operating system keychain.
type SecretStore interface {
	Get(service, user string) (string, error)
	Set(service, user, secret string) error
	Delete(service, user string) error
}
