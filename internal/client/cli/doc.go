// Package cli provides the interactive gophprofile command-line client.
//
// It hosts the two controllers: AuthFlow for the magic-link sign-in and
// ProfileFlow for loading and editing the signed-in user's profile. The REPL
// reads commands, dispatches long operations on goroutines, and a watcher
// prints every state transition the controllers publish.
//
// Typical session:
//
//	signin me@example.com
//	callback io.supabase.user-management://login-callback?code=...
//	name Jane Doe
//	avatar ./me.png
//	save
//
// A background connectivity watcher pings the auth service and shows the
// online/offline mode in the prompt. See App, runREPL and
// StartOnlineStatusWatcher for details.
package cli
