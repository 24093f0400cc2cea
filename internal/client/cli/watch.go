package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophprofile/internal/client/models"
	"github.com/dmitrijs2005/gophprofile/internal/client/services"
)

// startWatcher prints render(prev, cur) for every state received from
// subscribe until the stream closes. The returned func detaches it.
func startWatcher[T any](a *App, subscribe func() (<-chan T, func()), render func(prev *T, cur T) string) func() {
	ch, cancel := subscribe()

	a.watchers.Add(1)
	go func() {
		defer a.watchers.Done()
		var prev *T
		for st := range ch {
			if msg := render(prev, st); msg != "" {
				a.println(msg)
			}
			cur := st
			prev = &cur
		}
	}()

	return cancel
}

func renderAuth(prev *models.AuthState, cur models.AuthState) string {
	if cur.Pending {
		return ""
	}
	if prev != nil && prev.Phase == cur.Phase && !prev.Pending && errors.Is(prev.Err, cur.Err) {
		return ""
	}

	switch cur.Phase {
	case models.AuthLinkSent:
		return fmt.Sprintf("Magic link sent to %s. Open it, then paste the link here: callback <url>", cur.Email)
	case models.AuthAuthenticated:
		if prev == nil {
			return ""
		}
		email := cur.Email
		if cur.Session != nil && cur.Session.Email != "" {
			email = cur.Session.Email
		}
		return fmt.Sprintf("Signed in as %s", email)
	default:
		if cur.Err != nil {
			return fmt.Sprintf("Sign-in failed: %v", cur.Err)
		}
		if prev == nil {
			return ""
		}
		if prev.Phase == models.AuthAuthenticated {
			return "Signed out."
		}
		if prev.Phase == models.AuthLinkSent || prev.Err != nil {
			return "Sign-in reset. Use signin <email> to request a new link."
		}
		return ""
	}
}

func renderProfile(prev *models.ProfileState, cur models.ProfileState) string {
	if prev != nil && prev.Phase == cur.Phase {
		return ""
	}

	switch cur.Phase {
	case models.ProfileLoading:
		return "Loading profile..."
	case models.ProfileReady:
		// An edit after a failed save returns to Ready without a reload.
		if prev != nil && prev.Phase == models.ProfileSaveError {
			return ""
		}
		return formatProfile(cur)
	case models.ProfileLoadError:
		return fmt.Sprintf("Could not load profile: %v. Type 'retry' to try again.", cur.Err)
	case models.ProfileSaving:
		return "Saving profile..."
	case models.ProfileSaved:
		return "Profile saved."
	case models.ProfileSaveError:
		return fmt.Sprintf("Save failed: %v. Type 'retry' to try again or keep editing.", cur.Err)
	case models.ProfileIdle:
		if prev == nil {
			return ""
		}
		return "Left profile."
	}
	return ""
}

// formatProfile renders the edit buffer and avatar of st.
func formatProfile(st models.ProfileState) string {
	var b strings.Builder
	b.WriteString("Profile\n")
	fmt.Fprintf(&b, "  username:  %s\n", orDash(st.Buffer.Username))
	fmt.Fprintf(&b, "  full name: %s\n", orDash(st.Buffer.FullName))
	fmt.Fprintf(&b, "  website:   %s\n", orDash(st.Buffer.Website))

	switch {
	case st.AvatarChange == models.AvatarRemove:
		b.WriteString("  avatar:    none (removed on save)")
	case st.Avatar != nil:
		w, h := st.Avatar.Bounds()
		fmt.Fprintf(&b, "  avatar:    %dx%d %s", w, h, st.Avatar.ContentType)
		if st.AvatarChange == models.AvatarReplace {
			b.WriteString(" (new, uploaded on save)")
		}
	default:
		b.WriteString("  avatar:    none")
	}
	if st.AvatarErr != nil {
		fmt.Fprintf(&b, "\n  avatar unavailable: %v", st.AvatarErr)
	}
	return b.String()
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// shownByState reports whether err was published through a controller's
// state, so the watcher already printed it. Rejections that leave the state
// untouched are not.
func shownByState(err error) bool {
	switch {
	case errors.Is(err, context.Canceled):
		return true
	case errors.Is(err, services.ErrBusy),
		errors.Is(err, services.ErrInvalidPhase),
		errors.Is(err, services.ErrClosed),
		errors.Is(err, services.ErrIncompleteProfile),
		errors.Is(err, services.ErrNotAuthenticated),
		errors.Is(err, models.ErrInvalidImage):
		return false
	}
	return true
}
