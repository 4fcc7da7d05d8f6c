package models

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Fingerprint identifies a logical individual across resubmissions: the SHA-256
// of the lower-cased, whitespace-collapsed phone, birth date and name joined by "|".
func Fingerprint(phone, birthDate, name string) string {
	parts := []string{phone, birthDate, name}
	for i, p := range parts {
		parts[i] = strings.Join(strings.Fields(p), " ")
	}
	sum := sha256.Sum256([]byte(strings.ToLower(strings.Join(parts, "|"))))
	return hex.EncodeToString(sum[:])
}

// Fingerprint of the submission.
func (p PreRegistration) Fingerprint() string {
	return Fingerprint(p.PrimaryPhone, p.BirthDate, p.IndividualName)
}
