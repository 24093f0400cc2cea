package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/gophprofile/internal/client/auth"
	"github.com/dmitrijs2005/gophprofile/internal/client/models"
	"github.com/dmitrijs2005/gophprofile/internal/common"
)

const callbackURL = common.DefaultCallbackURL + "?code=abc"

func TestAuthFlow_SignInHappyPath(t *testing.T) {
	gw := &fakeGateway{}
	f := NewAuthFlow(gw, nil)
	ctx := context.Background()

	assert.Equal(t, models.AuthUnauthenticated, f.State().Phase)

	require.NoError(t, f.RequestSignIn(ctx, " a@b.com "))
	st := f.State()
	assert.Equal(t, models.AuthLinkSent, st.Phase)
	assert.Equal(t, "a@b.com", st.Email)
	assert.False(t, st.Pending)

	s, err := f.HandleCallback(ctx, callbackURL)
	require.NoError(t, err)
	assert.Equal(t, "user-1", s.UserID)

	st = f.State()
	assert.Equal(t, models.AuthAuthenticated, st.Phase)
	assert.Same(t, s, st.Session)
	assert.Same(t, s, f.Session())
}

func TestAuthFlow_SecondRequestWhileLinkSentIsBusy(t *testing.T) {
	for _, email := range []string{"a@b.com", "x@y.org", "first.last+tag@example.co.uk"} {
		gw := &fakeGateway{}
		f := NewAuthFlow(gw, nil)
		ctx := context.Background()

		require.NoError(t, f.RequestSignIn(ctx, email))
		err := f.RequestSignIn(ctx, email)

		require.ErrorIs(t, err, ErrBusy)
		assert.Equal(t, 1, gw.requestCount(), "no duplicate network call")
		assert.Equal(t, models.AuthLinkSent, f.State().Phase)
	}
}

func TestAuthFlow_ConcurrentRequestIsBusy(t *testing.T) {
	gw := &fakeGateway{gate: make(chan struct{})}
	f := NewAuthFlow(gw, nil)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- f.RequestSignIn(ctx, "a@b.com") }()
	waitAuthPending(t, f)

	require.ErrorIs(t, f.RequestSignIn(ctx, "a@b.com"), ErrBusy)
	_, err := f.HandleCallback(ctx, callbackURL)
	require.ErrorIs(t, err, ErrBusy)
	require.ErrorIs(t, f.Restart(ctx), ErrBusy)

	close(gw.gate)
	require.NoError(t, <-done)
	assert.Equal(t, 1, gw.requestCount())
}

func TestAuthFlow_RequestFailureStaysUnauthenticated(t *testing.T) {
	gw := &fakeGateway{requestErr: auth.ErrRequestRejected}
	f := NewAuthFlow(gw, nil)

	err := f.RequestSignIn(context.Background(), "a@b.com")
	require.ErrorIs(t, err, auth.ErrRequestRejected)

	st := f.State()
	assert.Equal(t, models.AuthUnauthenticated, st.Phase)
	assert.ErrorIs(t, st.Err, auth.ErrRequestRejected)
	assert.False(t, st.Pending)

	gw.requestErr = nil
	require.NoError(t, f.RequestSignIn(context.Background(), "a@b.com"), "no automatic retry, but a manual one works")
	assert.Equal(t, 2, gw.requestCount())
}

func TestAuthFlow_InvalidCallbackLeavesUnauthenticated(t *testing.T) {
	gw, err := auth.NewHTTPGateway(auth.Config{
		BaseURL:     "http://127.0.0.1:1",
		CallbackURL: common.DefaultCallbackURL,
	})
	require.NoError(t, err)
	f := NewAuthFlow(gw, nil)

	for _, raw := range []string{
		"https://login-callback?code=abc",
		"myapp://login-callback?code=abc",
		"login-callback?code=abc",
	} {
		_, err := f.HandleCallback(context.Background(), raw)
		require.ErrorIs(t, err, auth.ErrInvalidCallback, raw)
		assert.Equal(t, models.AuthUnauthenticated, f.State().Phase)
		assert.Nil(t, gw.CurrentSession())
	}
}

func TestAuthFlow_RejectedCallbackFromLinkSent(t *testing.T) {
	gw := &fakeGateway{exchangeErr: auth.ErrExchangeRejected}
	f := NewAuthFlow(gw, nil)
	ctx := context.Background()

	require.NoError(t, f.RequestSignIn(ctx, "a@b.com"))
	_, err := f.HandleCallback(ctx, callbackURL)
	require.ErrorIs(t, err, auth.ErrExchangeRejected)

	st := f.State()
	assert.Equal(t, models.AuthUnauthenticated, st.Phase)
	assert.Equal(t, "a@b.com", st.Email)
	assert.ErrorIs(t, st.Err, auth.ErrExchangeRejected)
}

func TestAuthFlow_CallbackFromUnauthenticated(t *testing.T) {
	gw := &fakeGateway{}
	f := NewAuthFlow(gw, nil)

	s, err := f.HandleCallback(context.Background(), callbackURL)
	require.NoError(t, err)
	assert.Equal(t, "user-1", s.UserID)
	assert.Equal(t, models.AuthAuthenticated, f.State().Phase)
}

func TestAuthFlow_ReplayedCallbackIsNoop(t *testing.T) {
	gw := &fakeGateway{}
	f := NewAuthFlow(gw, nil)
	ctx := context.Background()

	first, err := f.HandleCallback(ctx, callbackURL)
	require.NoError(t, err)

	again, err := f.HandleCallback(ctx, callbackURL)
	require.NoError(t, err)
	assert.Same(t, first, again)
	assert.Len(t, gw.exchanges, 1)

	require.ErrorIs(t, f.RequestSignIn(ctx, "a@b.com"), ErrInvalidPhase)
	require.ErrorIs(t, f.Restart(ctx), ErrInvalidPhase)
}

func TestAuthFlow_Restart(t *testing.T) {
	gw := &fakeGateway{}
	f := NewAuthFlow(gw, nil)
	ctx := context.Background()

	require.NoError(t, f.RequestSignIn(ctx, "old@b.com"))
	require.NoError(t, f.Restart(ctx))
	assert.Equal(t, models.AuthState{Phase: models.AuthUnauthenticated}, f.State())

	require.NoError(t, f.RequestSignIn(ctx, "new@b.com"))
	assert.Equal(t, "new@b.com", f.State().Email)
	assert.Equal(t, []string{"old@b.com", "new@b.com"}, gw.requests)
}

func TestAuthFlow_StartsAuthenticatedWithExistingSession(t *testing.T) {
	s := &models.Session{UserID: "u-9", Email: "z@z.z"}
	f := NewAuthFlow(&fakeGateway{session: s}, nil)

	st := f.State()
	assert.Equal(t, models.AuthAuthenticated, st.Phase)
	assert.Same(t, s, st.Session)
}

func TestAuthFlow_SignOutClosesFlow(t *testing.T) {
	gw := &fakeGateway{}
	f := NewAuthFlow(gw, nil)
	ctx := context.Background()

	require.ErrorIs(t, f.SignOut(ctx), ErrInvalidPhase)

	_, err := f.HandleCallback(ctx, callbackURL)
	require.NoError(t, err)

	ch, cancel := f.Subscribe()
	defer cancel()
	<-ch // current state

	require.NoError(t, f.SignOut(ctx))
	assert.Equal(t, 1, gw.signOuts)
	assert.Nil(t, f.Session())

	last, ok := <-ch
	require.True(t, ok)
	assert.Equal(t, models.AuthUnauthenticated, last.Phase)
	_, ok = <-ch
	assert.False(t, ok, "stream closes after sign-out")

	require.ErrorIs(t, f.RequestSignIn(ctx, "a@b.com"), ErrClosed)
	_, err = f.HandleCallback(ctx, callbackURL)
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, f.SignOut(ctx), ErrClosed)
}

func TestAuthFlow_SignOutGatewayError(t *testing.T) {
	boom := errors.New("boom")
	gw := &fakeGateway{signOutErr: boom}
	f := NewAuthFlow(gw, nil)
	ctx := context.Background()

	_, err := f.HandleCallback(ctx, callbackURL)
	require.NoError(t, err)

	require.ErrorIs(t, f.SignOut(ctx), boom)
	require.ErrorIs(t, f.Restart(ctx), ErrClosed)
}

func TestAuthFlow_CloseDuringRequest(t *testing.T) {
	gw := &fakeGateway{gate: make(chan struct{})}
	f := NewAuthFlow(gw, nil)

	done := make(chan error, 1)
	go func() { done <- f.RequestSignIn(context.Background(), "a@b.com") }()
	waitAuthPending(t, f)

	f.Close()
	close(gw.gate)
	require.ErrorIs(t, <-done, ErrClosed)
}
