// Package keyring keeps the remote record store connection string in the OS
// keyring.
package keyring

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	service = "habitlens"
	account = "mongo-uri"
)

var (
	// ErrNotFound is returned when no connection string is stored.
	ErrNotFound = errors.New("connection string not found in keyring")
	// ErrUnavailable is returned when the OS keyring cannot be reached.
	ErrUnavailable = errors.New("OS keyring is not available")
)

// GetMongoURI returns the stored connection string.
func GetMongoURI() (string, error) {
	uri, err := keyring.Get(service, account)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return uri, nil
}

// SetMongoURI stores the connection string.
func SetMongoURI(uri string) error {
	if uri == "" {
		return errors.New("connection string cannot be empty")
	}
	if err := keyring.Set(service, account, uri); err != nil {
		return fmt.Errorf("failed to store connection string in keyring: %w", err)
	}
	return nil
}

// DeleteMongoURI removes the stored connection string.
func DeleteMongoURI() error {
	err := keyring.Delete(service, account)
	if errors.Is(err, keyring.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete connection string from keyring: %w", err)
	}
	return nil
}
