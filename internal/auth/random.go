package auth

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/google/uuid"
)

const refreshSecretBytes = 48

func newSessionID() string { return uuid.NewString() }

func newRefreshSecret() (string, error) {
	b := make([]byte, refreshSecretBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
