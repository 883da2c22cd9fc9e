package services

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"gestornet/internal/core"
)

// credentialsMatch is the only place stored and supplied passwords are
// compared. Passwords are stored as entered, so the match is exact.
func credentialsMatch(stored, supplied string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(supplied)) == 1
}

// credentialFingerprint changes whenever the manager's password changes.
func credentialFingerprint(m core.Manager) string {
	sum := sha256.Sum256([]byte(m.ID + ":" + m.Password))
	return hex.EncodeToString(sum[:12])
}
