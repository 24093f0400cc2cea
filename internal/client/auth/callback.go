package auth

import (
	"fmt"
	"net/url"
	"strings"
)

// callbackParams is what a deep link can carry: either an auth code (PKCE),
// tokens (implicit flow) or an error reported by the auth service.
type callbackParams struct {
	Code         string
	AccessToken  string
	RefreshToken string
	ExpiresIn    string
	ExpiresAt    string
	Error        string
	ErrorCode    string
	Description  string
}

// IsCallbackURL reports whether raw is addressed to the callback URL
// expected. Routers use it to drop foreign deep links before they reach the
// sign-in flow.
func IsCallbackURL(raw, expected string) bool {
	_, err := matchCallback(raw, expected)
	return err == nil
}

func matchCallback(raw, expected string) (*url.URL, error) {
	want, err := url.Parse(expected)
	if err != nil {
		return nil, fmt.Errorf("%w: bad configured callback: %v", ErrInvalidCallback, err)
	}
	got, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCallback, err)
	}
	if got.Scheme == "" || !strings.EqualFold(got.Scheme, want.Scheme) {
		return nil, fmt.Errorf("%w: unexpected scheme %q", ErrInvalidCallback, got.Scheme)
	}
	if !strings.EqualFold(got.Host, want.Host) || strings.TrimSuffix(got.Path, "/") != strings.TrimSuffix(want.Path, "/") {
		return nil, fmt.Errorf("%w: unexpected target %q", ErrInvalidCallback, got.Host+got.Path)
	}
	return got, nil
}

// parseCallback validates raw against expected and extracts its parameters
// from both the query and the fragment.
func parseCallback(raw, expected string) (callbackParams, error) {
	u, err := matchCallback(raw, expected)
	if err != nil {
		return callbackParams{}, err
	}

	values := u.Query()
	if u.Fragment != "" {
		frag, err := url.ParseQuery(u.Fragment)
		if err != nil {
			return callbackParams{}, fmt.Errorf("%w: bad fragment: %v", ErrInvalidCallback, err)
		}
		for k, v := range frag {
			values[k] = v
		}
	}

	p := callbackParams{
		Code:         values.Get("code"),
		AccessToken:  values.Get("access_token"),
		RefreshToken: values.Get("refresh_token"),
		ExpiresIn:    values.Get("expires_in"),
		ExpiresAt:    values.Get("expires_at"),
		Error:        values.Get("error"),
		ErrorCode:    values.Get("error_code"),
		Description:  values.Get("error_description"),
	}

	if p.Error == "" && p.Description == "" && p.Code == "" && p.AccessToken == "" {
		return callbackParams{}, fmt.Errorf("%w: no credentials in callback", ErrInvalidCallback)
	}
	return p, nil
}
