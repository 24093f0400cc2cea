package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophprofile/internal/client/auth"
	"github.com/dmitrijs2005/gophprofile/internal/client/models"
	"github.com/dmitrijs2005/gophprofile/internal/client/services"
)

var errNotSignedIn = errors.New("not signed in, use signin <email> first")

func (a *App) isSignedIn() bool {
	af, _ := a.flows()
	return af.Session() != nil
}

// SignIn requests a magic link for email.
func (a *App) SignIn(ctx context.Context, email string) error {
	af, _ := a.flows()
	a.spawn(ctx, "signin", func(ctx context.Context) error {
		return af.RequestSignIn(ctx, email)
	})
	return nil
}

// Callback redeems a pasted magic link and, once signed in, opens the
// profile. URLs that are not sign-in callbacks are ignored.
func (a *App) Callback(ctx context.Context, rawURL string) error {
	if !auth.IsCallbackURL(rawURL, a.config.CallbackURL) {
		return fmt.Errorf("%w: expected a link starting with %s", auth.ErrInvalidCallback, a.config.CallbackURL)
	}

	af, pf := a.flows()
	a.spawn(ctx, "callback", func(ctx context.Context) error {
		s, err := af.HandleCallback(ctx, rawURL)
		if err != nil {
			return err
		}
		if pf.State().Phase != models.ProfileIdle {
			return nil
		}
		return pf.Enter(ctx, s)
	})
	return nil
}

// Restart abandons an outstanding magic link.
func (a *App) Restart(ctx context.Context) error {
	af, _ := a.flows()
	return af.Restart(ctx)
}

// OpenProfile loads the profile when none is open, otherwise prints the
// current one.
func (a *App) OpenProfile(ctx context.Context) error {
	af, pf := a.flows()
	s := af.Session()
	if s == nil {
		return errNotSignedIn
	}

	st := pf.State()
	switch st.Phase {
	case models.ProfileIdle, models.ProfileSaved:
		a.spawn(ctx, "profile", func(ctx context.Context) error {
			return pf.Enter(ctx, s)
		})
	case models.ProfileReady, models.ProfileSaveError:
		a.println(formatProfile(st))
	default:
		a.printf("Profile is %s.\n", st.Phase)
	}
	return nil
}

// Reload discards unsaved edits and loads the profile again.
func (a *App) Reload(ctx context.Context) error {
	af, pf := a.flows()
	s := af.Session()
	if s == nil {
		return errNotSignedIn
	}
	a.spawn(ctx, "reload", func(ctx context.Context) error {
		return pf.Enter(ctx, s)
	})
	return nil
}

// SetField edits one text field of the open profile.
func (a *App) SetField(ctx context.Context, field, value string) error {
	_, pf := a.flows()
	switch field {
	case "username":
		return pf.SetUsername(ctx, value)
	case "name":
		return pf.SetFullName(ctx, value)
	case "website":
		return pf.SetWebsite(ctx, value)
	default:
		return fmt.Errorf("unknown field %q", field)
	}
}

// SelectAvatar stages the image at path as the new avatar.
func (a *App) SelectAvatar(ctx context.Context, path string) error {
	_, pf := a.flows()
	if ph := pf.State().Phase; ph != models.ProfileReady && ph != models.ProfileSaveError {
		return services.ErrInvalidPhase
	}

	data, err := a.readFile(path)
	if err != nil {
		return fmt.Errorf("read avatar: %w", err)
	}
	if err := pf.SelectAvatar(ctx, data); err != nil {
		return err
	}
	a.println(formatProfile(pf.State()))
	return nil
}

// RemoveAvatar stages clearing the avatar.
func (a *App) RemoveAvatar(ctx context.Context) error {
	_, pf := a.flows()
	return pf.RemoveAvatar(ctx)
}

// Save writes the edited profile.
func (a *App) Save(ctx context.Context) error {
	_, pf := a.flows()
	a.spawn(ctx, "save", pf.Save)
	return nil
}

// Retry repeats the failed load or save.
func (a *App) Retry(ctx context.Context) error {
	_, pf := a.flows()
	a.spawn(ctx, "retry", pf.Retry)
	return nil
}

// Leave closes the profile, cancelling a load or save in flight.
func (a *App) Leave(ctx context.Context) error {
	_, pf := a.flows()
	pf.Leave(ctx)
	return nil
}

// SignOut leaves the profile, ends the session and starts over with fresh
// controllers.
func (a *App) SignOut(ctx context.Context) error {
	af, pf := a.flows()
	if af.Session() == nil {
		return errNotSignedIn
	}

	a.spawn(ctx, "signout", func(ctx context.Context) error {
		pf.Leave(ctx)
		err := af.SignOut(ctx)
		if errors.Is(err, services.ErrBusy) || errors.Is(err, services.ErrInvalidPhase) {
			return err
		}
		a.resetFlows()
		return err
	})
	return nil
}
