package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
)

func GenerateCSRF(key, sessionID string) (string, error) {
	if key == "" {
		return "", errors.New("auth: empty csrf key")
	}
	m := hmac.New(sha256.New, []byte(key))
	_, _ = m.Write([]byte(sessionID))
	return base64.RawURLEncoding.EncodeToString(m.Sum(nil)), nil
}

func VerifyCSRF(key, sessionID, token string) bool {
	want, err := GenerateCSRF(key, sessionID)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(want), []byte(token)) == 1
}
