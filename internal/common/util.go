package common

import (
	"crypto/rand"
	"strings"
)

// GenerateRandByteArray returns n cryptographically random bytes.
// It panics if the system random source fails, which is unrecoverable.
func GenerateRandByteArray(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return b
}

// WipeByteArray overwrites b with zeros. Nil is allowed.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// TrimmedPtr trims s and returns nil when nothing is left, so blank form
// fields are stored as NULL instead of empty strings.
func TrimmedPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the value behind p or "" for nil.
func Deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
