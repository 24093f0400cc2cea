package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/dmitrijs2005/gophprofile/internal/client/auth"
	"github.com/dmitrijs2005/gophprofile/internal/client/models"
	"github.com/dmitrijs2005/gophprofile/internal/logging"
	"github.com/dmitrijs2005/gophprofile/internal/statex"
)

// AuthFlow drives sign-in by magic link.
//
//	Unauthenticated --RequestSignIn--> LinkSent --HandleCallback--> Authenticated
//
// A failed step returns to Unauthenticated with the error in state; nothing
// is retried automatically. Authenticated is terminal: SignOut closes the
// flow and the host builds a new one.
type AuthFlow struct {
	gateway auth.Gateway
	logger  logging.Logger
	state   *statex.Value[models.AuthState]

	mu      sync.Mutex
	pending bool
	closed  bool
}

// NewAuthFlow starts Authenticated when the gateway already holds a session.
func NewAuthFlow(gateway auth.Gateway, logger logging.Logger) *AuthFlow {
	if logger == nil {
		logger = logging.Nop()
	}

	initial := models.AuthState{Phase: models.AuthUnauthenticated}
	if s := gateway.CurrentSession(); s != nil {
		initial = models.AuthState{Phase: models.AuthAuthenticated, Email: s.Email, Session: s}
	}

	return &AuthFlow{
		gateway: gateway,
		logger:  logger.With("component", "auth_flow"),
		state:   statex.New(initial),
	}
}

// State returns the current snapshot.
func (f *AuthFlow) State() models.AuthState {
	return f.state.Get()
}

// Subscribe streams state changes, latest first. The returned func detaches.
func (f *AuthFlow) Subscribe() (<-chan models.AuthState, func()) {
	return f.state.Subscribe()
}

// Session returns the signed-in session or nil.
func (f *AuthFlow) Session() *models.Session {
	st := f.state.Get()
	if st.Phase != models.AuthAuthenticated {
		return nil
	}
	return st.Session
}

// RequestSignIn asks for a magic link. It is rejected with ErrBusy while a
// link is outstanding (use Restart to change address) or while another call
// is in flight; no request is sent in that case.
func (f *AuthFlow) RequestSignIn(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)

	f.mu.Lock()
	if err := f.begin(); err != nil {
		f.mu.Unlock()
		return err
	}
	cur := f.state.Get()
	switch cur.Phase {
	case models.AuthLinkSent:
		f.pending = false
		f.mu.Unlock()
		return ErrBusy
	case models.AuthAuthenticated:
		f.pending = false
		f.mu.Unlock()
		return ErrInvalidPhase
	}
	f.set(ctx, models.AuthState{Phase: models.AuthUnauthenticated, Email: email, Pending: true})
	f.mu.Unlock()

	err := f.gateway.RequestSignIn(ctx, email)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = false
	if f.closed {
		return ErrClosed
	}
	if err != nil {
		f.set(ctx, models.AuthState{Phase: models.AuthUnauthenticated, Email: email, Err: err})
		return err
	}
	f.set(ctx, models.AuthState{Phase: models.AuthLinkSent, Email: email})
	return nil
}

// HandleCallback redeems a deep link. It is accepted from LinkSent and also
// from Unauthenticated, so a link opened after an app restart still works.
// A replay while Authenticated returns the existing session without a
// network call.
func (f *AuthFlow) HandleCallback(ctx context.Context, rawURL string) (*models.Session, error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil, ErrClosed
	}
	cur := f.state.Get()
	if cur.Phase == models.AuthAuthenticated {
		f.mu.Unlock()
		f.logger.Debug(ctx, "callback ignored, already signed in")
		return cur.Session, nil
	}
	if err := f.begin(); err != nil {
		f.mu.Unlock()
		return nil, err
	}
	f.set(ctx, models.AuthState{Phase: cur.Phase, Email: cur.Email, Pending: true})
	f.mu.Unlock()

	s, err := f.gateway.ExchangeCallback(ctx, rawURL)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = false
	if f.closed {
		return nil, ErrClosed
	}
	if err != nil {
		f.set(ctx, models.AuthState{Phase: models.AuthUnauthenticated, Email: cur.Email, Err: err})
		return nil, err
	}
	f.set(ctx, models.AuthState{Phase: models.AuthAuthenticated, Email: s.Email, Session: s})
	return s, nil
}

// Restart abandons an outstanding link and clears the last error.
func (f *AuthFlow) Restart(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	if f.pending {
		return ErrBusy
	}
	if f.state.Get().Phase == models.AuthAuthenticated {
		return ErrInvalidPhase
	}
	f.set(ctx, models.AuthState{Phase: models.AuthUnauthenticated})
	return nil
}

// SignOut ends the session and closes the flow. Subscribers see a final
// Unauthenticated state before their channels close.
func (f *AuthFlow) SignOut(ctx context.Context) error {
	f.mu.Lock()
	if err := f.begin(); err != nil {
		f.mu.Unlock()
		return err
	}
	if f.state.Get().Phase != models.AuthAuthenticated {
		f.pending = false
		f.mu.Unlock()
		return ErrInvalidPhase
	}
	f.mu.Unlock()

	err := f.gateway.SignOut(ctx)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = false
	f.set(ctx, models.AuthState{Phase: models.AuthUnauthenticated})
	f.closeLocked()
	if err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	return nil
}

// Close ends every subscription. Later operations fail with ErrClosed.
func (f *AuthFlow) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeLocked()
}

func (f *AuthFlow) closeLocked() {
	if f.closed {
		return
	}
	f.closed = true
	f.state.Close()
}

// begin claims the pending slot. Callers hold f.mu.
func (f *AuthFlow) begin() error {
	if f.closed {
		return ErrClosed
	}
	if f.pending {
		return ErrBusy
	}
	f.pending = true
	return nil
}

func (f *AuthFlow) set(ctx context.Context, st models.AuthState) {
	prev := f.state.Get()
	f.state.Set(st)
	if prev.Phase != st.Phase || prev.Pending != st.Pending {
		f.logger.Debug(ctx, "auth state", "from", prev.Phase, "to", st.Phase, "pending", st.Pending, "err", st.Err)
	}
}
