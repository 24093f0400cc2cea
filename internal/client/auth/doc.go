// Package auth wraps the remote passwordless sign-in protocol.
//
// # Overview
//
// Gateway is the transport-agnostic contract used by the sign-in flow:
//  1. RequestSignIn asks the auth service to email a one-time link that
//     redirects to the app's callback URL.
//  2. ExchangeCallback takes the deep link the OS hands back and trades the
//     credentials in it for a Session. It is the only way a Session is made.
//  3. SignOut drops the session locally and invalidates it remotely.
//
// HTTPGateway speaks the GoTrue REST dialect (/auth/v1/otp, /auth/v1/token,
// /auth/v1/user, /auth/v1/logout). Links are requested with a PKCE
// challenge; the verifier is kept in a PendingStore until the callback
// arrives, so an app restart in between does not break the flow. Callbacks
// carrying tokens directly in the fragment (implicit flow) are accepted as
// well.
//
// # Error Handling
//
// Failures map to sentinel errors matched with errors.Is: ErrEmailRequired,
// ErrRequestRejected, ErrInvalidCallback, ErrExchangeRejected, ErrNetwork.
// The gateway never retries.
package auth
