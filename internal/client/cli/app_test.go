package cli

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/gophprofile/internal/client/auth"
	"github.com/dmitrijs2005/gophprofile/internal/client/models"
	"github.com/dmitrijs2005/gophprofile/internal/client/services"
	"github.com/dmitrijs2005/gophprofile/internal/common"
)

const callbackURL = common.DefaultCallbackURL + "?code=abc"

func signIn(t *testing.T, ta *testApp) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, ta.SignIn(ctx, "a@b.com"))
	ta.wait()
	require.NoError(t, ta.Callback(ctx, callbackURL))
	ta.wait()
	ta.waitOutput(t, "Signed in as a@b.com")
	_, pf := ta.flows()
	require.Equal(t, models.ProfileReady, pf.State().Phase)
}

func TestSetMode_ChangesAndPrintsOnce(t *testing.T) {
	ta := newTestApp(t, "")
	assert.Equal(t, ModeOffline, ta.getMode(), "pingable gateway starts offline")

	ta.setMode(ModeOnline)
	assert.Equal(t, ModeOnline, ta.getMode())
	assert.Equal(t, 1, strings.Count(ta.output.String(), "Switched to online mode"))

	ta.setMode(ModeOnline)
	assert.Equal(t, 1, strings.Count(ta.output.String(), "Switched to online mode"))

	ta.setMode(ModeOffline)
	assert.Contains(t, ta.output.String(), "Switched to offline mode")
}

func TestStartOnlineStatusWatcher(t *testing.T) {
	ta := newTestApp(t, "")
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		ta.StartOnlineStatusWatcher(ctx, 5*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return ta.getMode() == ModeOnline }, 2*time.Second, 5*time.Millisecond)

	ta.gw.setPingErr(auth.ErrNetwork)
	require.Eventually(t, func() bool { return ta.getMode() == ModeOffline }, 2*time.Second, 5*time.Millisecond)

	ta.gw.setPingErr(nil)
	require.Eventually(t, func() bool { return ta.getMode() == ModeOnline }, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestStartOnlineStatusWatcher_WithoutPingIsDisabled(t *testing.T) {
	out := &safeBuffer{}
	app := NewApp(Deps{Gateway: noPing{&fakeGateway{}}, Out: out, In: strings.NewReader("")})
	t.Cleanup(app.shutdown)

	assert.Equal(t, ModeDisabled, app.getMode())
	app.StartOnlineStatusWatcher(context.Background(), time.Millisecond)
	assert.Equal(t, ModeDisabled, app.getMode())
	assert.Equal(t, "(signed out)", app.getStatus())
}

func TestApp_SignInOpensProfileAndSaves(t *testing.T) {
	ta := newTestApp(t, "")
	ctx := context.Background()

	require.NoError(t, ta.SignIn(ctx, "a@b.com"))
	ta.wait()
	ta.waitOutput(t, "Magic link sent to a@b.com")
	assert.Equal(t, "(a@b.com, link sent offline)", ta.getStatus())

	require.NoError(t, ta.Callback(ctx, callbackURL))
	ta.wait()
	ta.waitOutput(t, "Signed in as a@b.com")
	ta.waitOutput(t, "username:  -")
	assert.True(t, ta.isSignedIn())
	assert.Equal(t, "(a@b.com offline)", ta.getStatus())

	require.NoError(t, ta.SetField(ctx, "username", "cam"))
	require.NoError(t, ta.SetField(ctx, "name", " Cam Doe "))
	require.NoError(t, ta.SetField(ctx, "website", ""))
	require.NoError(t, ta.Save(ctx))
	ta.wait()
	ta.waitOutput(t, "Profile saved.")

	p, ok := ta.rows.get("user-1")
	require.True(t, ok)
	assert.Equal(t, "cam", common.Deref(p.Username))
	assert.Equal(t, "Cam Doe", common.Deref(p.FullName))
	assert.Nil(t, p.Website)
	assert.Nil(t, p.AvatarKey)
}

func TestApp_SecondSignInIsReportedBusy(t *testing.T) {
	ta := newTestApp(t, "")
	ctx := context.Background()

	require.NoError(t, ta.SignIn(ctx, "a@b.com"))
	ta.wait()
	require.NoError(t, ta.SignIn(ctx, "a@b.com"))
	ta.wait()

	ta.waitOutput(t, "signin: "+services.ErrBusy.Error())
	assert.Len(t, ta.gw.requests, 1)
}

func TestApp_FailedSignInIsShownOnce(t *testing.T) {
	ta := newTestApp(t, "")
	ta.gw.requestErr = auth.ErrRequestRejected

	require.NoError(t, ta.SignIn(context.Background(), "a@b.com"))
	ta.wait()

	ta.waitOutput(t, "Sign-in failed: "+auth.ErrRequestRejected.Error())
	assert.NotContains(t, ta.output.String(), "signin: ")
}

func TestApp_ForeignCallbackIsIgnored(t *testing.T) {
	ta := newTestApp(t, "")

	err := ta.Callback(context.Background(), "https://example.com/login-callback?code=abc")
	require.ErrorIs(t, err, auth.ErrInvalidCallback)
	ta.wait()
	assert.Zero(t, ta.gw.exchangeCount())
	assert.False(t, ta.isSignedIn())
}

func TestApp_ProfileCommandsRequireSession(t *testing.T) {
	ta := newTestApp(t, "")
	ctx := context.Background()

	require.ErrorIs(t, ta.OpenProfile(ctx), errNotSignedIn)
	require.ErrorIs(t, ta.Reload(ctx), errNotSignedIn)
	require.ErrorIs(t, ta.SignOut(ctx), errNotSignedIn)
	require.ErrorIs(t, ta.SetField(ctx, "name", "x"), services.ErrInvalidPhase)
	require.ErrorIs(t, ta.SelectAvatar(ctx, "me.png"), services.ErrInvalidPhase)
}

func TestApp_OpenProfileShowsCurrent(t *testing.T) {
	ta := newTestApp(t, "")
	signIn(t, ta)
	ctx := context.Background()

	require.NoError(t, ta.SetField(ctx, "name", "Jane"))
	require.NoError(t, ta.OpenProfile(ctx))
	ta.wait()
	ta.waitOutput(t, "full name: Jane")

	require.Error(t, ta.SetField(ctx, "email", "x"))
}

func TestApp_SelectAvatar(t *testing.T) {
	ta := newTestApp(t, "")
	signIn(t, ta)
	ctx := context.Background()

	dir := t.TempDir()
	good := filepath.Join(dir, "me.png")
	require.NoError(t, os.WriteFile(good, pngBytes(t), 0o600))
	bad := filepath.Join(dir, "me.txt")
	require.NoError(t, os.WriteFile(bad, []byte("not an image"), 0o600))

	require.ErrorIs(t, ta.SelectAvatar(ctx, bad), models.ErrInvalidImage)
	require.Error(t, ta.SelectAvatar(ctx, filepath.Join(dir, "missing.png")))
	require.Error(t, ta.SelectAvatar(ctx, dir), "directories are rejected")

	require.NoError(t, ta.SelectAvatar(ctx, good))
	ta.waitOutput(t, "8x6 image/png (new, uploaded on save)")

	require.NoError(t, ta.SetField(ctx, "username", "cam"))
	require.NoError(t, ta.SetField(ctx, "name", "Cam"))
	require.NoError(t, ta.Save(ctx))
	ta.wait()
	p, ok := ta.rows.get("user-1")
	require.True(t, ok)
	assert.Equal(t, "avatar.png", common.Deref(p.AvatarKey))

	require.NoError(t, ta.Reload(ctx))
	ta.wait()
	_, pf := ta.flows()
	require.Equal(t, models.ProfileReady, pf.State().Phase)
	require.NotNil(t, pf.State().Avatar)

	require.NoError(t, ta.RemoveAvatar(ctx))
	require.NoError(t, ta.OpenProfile(ctx))
	ta.wait()
	ta.waitOutput(t, "none (removed on save)")
}

func TestApp_SignOutStartsOver(t *testing.T) {
	ta := newTestApp(t, "")
	signIn(t, ta)
	oldAuth, oldProfile := ta.flows()

	require.NoError(t, ta.SignOut(context.Background()))
	ta.wait()
	ta.waitOutput(t, "Signed out.")

	af, pf := ta.flows()
	assert.NotSame(t, oldAuth, af)
	assert.NotSame(t, oldProfile, pf)
	assert.Equal(t, models.AuthUnauthenticated, af.State().Phase)
	assert.Equal(t, models.ProfileIdle, pf.State().Phase)
	assert.Equal(t, 1, ta.gw.signOuts)
	assert.False(t, ta.isSignedIn())

	require.NoError(t, ta.SignIn(context.Background(), "new@b.com"))
	ta.wait()
	ta.waitOutput(t, "Magic link sent to new@b.com")
}

func TestApp_LeaveAndRetry(t *testing.T) {
	ta := newTestApp(t, "")
	signIn(t, ta)
	ctx := context.Background()

	require.NoError(t, ta.Leave(ctx))
	ta.waitOutput(t, "Left profile.")

	require.NoError(t, ta.Retry(ctx))
	ta.wait()
	ta.waitOutput(t, "retry: "+services.ErrInvalidPhase.Error())

	require.NoError(t, ta.Reload(ctx))
	ta.wait()
	_, pf := ta.flows()
	assert.Equal(t, models.ProfileReady, pf.State().Phase)
}

func TestApp_RunScript(t *testing.T) {
	ta := newTestApp(t, strings.Join([]string{
		"help",
		"signin a@b.com",
		"exit",
	}, "\n"))
	ta.gateway = noPing{ta.gw}

	require.NoError(t, ta.Run(context.Background()))

	out := ta.output.String()
	assert.Contains(t, out, "Welcome to gophprofile")
	assert.Contains(t, out, helpSignedOut)
	assert.Contains(t, out, "Magic link sent to a@b.com")
	assert.Contains(t, out, "Bye!")
	assert.NotContains(t, out, "gp (", "no prompt for piped input")
}

func TestShownByState(t *testing.T) {
	assert.True(t, shownByState(context.Canceled))
	assert.True(t, shownByState(auth.ErrNetwork))
	assert.True(t, shownByState(errors.New("store down")))

	assert.False(t, shownByState(services.ErrBusy))
	assert.False(t, shownByState(services.ErrIncompleteProfile))
	assert.False(t, shownByState(models.ErrInvalidImage))
}
