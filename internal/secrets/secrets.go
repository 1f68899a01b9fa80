// Package secrets keeps channel credentials in the OS keyring so they do
// not have to live in the settings file.
package secrets

import (
	"errors"
	"strings"

	"github.com/zalando/go-keyring"
)

const service = "lookaway"

// Well-known keys.
const (
	EmailPassword    = "email_password"
	TelegramBotToken = "telegram_bot_token"
)

var (
	keyringSet    = keyring.Set
	keyringGet    = keyring.Get
	keyringDelete = keyring.Delete
)

// Store reads and writes secrets. The zero value uses the OS keyring.
type Store struct {
	Service string
}

func New() *Store { return &Store{Service: service} }

func (s *Store) svc() string {
	if s == nil || s.Service == "" {
		return service
	}
	return s.Service
}

// Get returns ("", nil) when the key does not exist.
func (s *Store) Get(key string) (string, error) {
	v, err := keyringGet(s.svc(), key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	return v, err
}

func (s *Store) Set(key, value string) error {
	return keyringSet(s.svc(), key, value)
}

func (s *Store) Delete(key string) error {
	err := keyringDelete(s.svc(), key)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

// Resolve returns inline when it is set, otherwise the keyring value.
func (s *Store) Resolve(inline, key string) (string, error) {
	if v := strings.TrimSpace(inline); v != "" {
		return v, nil
	}
	return s.Get(key)
}
