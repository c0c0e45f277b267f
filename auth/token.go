// Package auth keeps the remote control token in the system keyring.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"

	"github.com/hlsplay/hlsplay/constant"
	"github.com/zalando/go-keyring"
)

const user = "remote-token"

// Token returns the stored token, creating one on first use.
func Token() (string, error) {
	token, err := keyring.Get(constant.App, user)
	if err == nil {
		return token, nil
	}
	if !errors.Is(err, keyring.ErrNotFound) {
		return "", err
	}
	return Rotate()
}

// Rotate replaces the stored token with a fresh random one.
func Rotate() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}

	token := hex.EncodeToString(buf)
	if err := keyring.Set(constant.App, user, token); err != nil {
		return "", err
	}
	return token, nil
}

// Delete removes the token. A missing token is not an error.
func Delete() error {
	if err := keyring.Delete(constant.App, user); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return err
	}
	return nil
}
