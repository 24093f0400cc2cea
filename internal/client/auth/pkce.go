package auth

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"sync"

	"github.com/dmitrijs2005/gophprofile/internal/common"
)

const codeChallengeMethod = "s256"

// newCodeVerifier returns a 43-character base64url verifier (RFC 7636).
func newCodeVerifier() string {
	raw := common.GenerateRandByteArray(32)
	defer common.WipeByteArray(raw)
	return base64.RawURLEncoding.EncodeToString(raw)
}

func codeChallenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// memoryPending is the PendingStore used when none is configured.
// It does not survive a restart.
type memoryPending struct {
	mu       sync.Mutex
	email    string
	verifier string
}

func (m *memoryPending) SavePending(_ context.Context, email, verifier string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.email, m.verifier = email, verifier
	return nil
}

func (m *memoryPending) LoadPending(context.Context) (string, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.email, m.verifier, nil
}

func (m *memoryPending) ClearPending(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.email, m.verifier = "", ""
	return nil
}
