package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophprofile/internal/client/models"
	"github.com/dmitrijs2005/gophprofile/internal/common"
)

var (
	ErrEmailRequired    = fmt.Errorf("email is required: %w", common.ErrorValidation)
	ErrRequestRejected  = fmt.Errorf("sign-in request %w", common.ErrorRejected)
	ErrInvalidCallback  = errors.New("invalid callback url")
	ErrExchangeRejected = fmt.Errorf("session exchange %w", common.ErrorRejected)
	ErrNetwork          = fmt.Errorf("auth service: %w", common.ErrorUnavailable)
)

// Gateway is the sign-in capability consumed by the auth flow.
type Gateway interface {
	RequestSignIn(ctx context.Context, email string) error
	ExchangeCallback(ctx context.Context, rawURL string) (*models.Session, error)
	SignOut(ctx context.Context) error
	CurrentSession() *models.Session
}

// Pinger is implemented by gateways that can check service liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PendingStore keeps the email and PKCE verifier of a link request until
// the callback is exchanged. Load returns empty strings when nothing is
// pending.
type PendingStore interface {
	SavePending(ctx context.Context, email, verifier string) error
	LoadPending(ctx context.Context) (email, verifier string, err error)
	ClearPending(ctx context.Context) error
}
