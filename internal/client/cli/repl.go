package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"unicode"
)

// execIface defines the command surface the REPL dispatches to.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isSignedIn() bool
	SignIn(ctx context.Context, email string) error
	Callback(ctx context.Context, rawURL string) error
	Restart(ctx context.Context) error
	OpenProfile(ctx context.Context) error
	Reload(ctx context.Context) error
	SetField(ctx context.Context, field, value string) error
	SelectAvatar(ctx context.Context, path string) error
	RemoveAvatar(ctx context.Context) error
	Save(ctx context.Context) error
	Retry(ctx context.Context) error
	Leave(ctx context.Context) error
	SignOut(ctx context.Context) error
}

const (
	helpSignedOut = `Available commands:
  signin <email>   request a magic link
  callback <url>   paste the link from the email
  restart          forget the pending link
  exit             leave the program`

	helpSignedIn = `Available commands:
  profile          open or show the profile
  username <v>     set username
  name <v>         set full name
  website <v>      set website (empty clears it)
  avatar <file>    choose a new avatar image
  noavatar         remove the avatar
  save             save the profile
  retry            repeat a failed load or save
  reload           discard edits and load again
  leave            close the profile
  signout          sign out
  exit             leave the program`
)

// runREPL starts the read–eval–print loop for the gophprofile CLI.
//
// It reads a line from scanner, takes the first token as the command and
// the rest of the line as its argument, and dispatches to methods on a.
// Errors returned by command handlers are printed; handlers that run in the
// background report through the state watcher instead. The loop exits on
// scanner EOF or when the user types "exit" or "quit".
//
// The prompt, showing statusFn, is written only when prompt is true.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner, w io.Writer, prompt bool) {
	for {
		if prompt {
			fmt.Fprintf(w, "gp %s> ", statusFn())
		}
		if !scanner.Scan() {
			return
		}

		cmd, arg := splitCommand(scanner.Text())
		if cmd == "" {
			continue
		}

		var err error
		switch cmd {
		case "help", "?":
			if a.isSignedIn() {
				fmt.Fprintln(w, helpSignedIn)
			} else {
				fmt.Fprintln(w, helpSignedOut)
			}

		case "signin":
			if arg == "" {
				fmt.Fprintln(w, "Usage: signin <email>")
				continue
			}
			err = a.SignIn(ctx, arg)

		case "callback":
			if arg == "" {
				fmt.Fprintln(w, "Usage: callback <url>")
				continue
			}
			err = a.Callback(ctx, arg)

		case "restart":
			err = a.Restart(ctx)

		case "profile":
			err = a.OpenProfile(ctx)

		case "reload":
			err = a.Reload(ctx)

		case "username", "name", "website":
			if arg == "" && cmd != "website" {
				fmt.Fprintf(w, "Usage: %s <value>\n", cmd)
				continue
			}
			err = a.SetField(ctx, cmd, arg)

		case "avatar":
			if arg == "" {
				fmt.Fprintln(w, "Usage: avatar <file>")
				continue
			}
			err = a.SelectAvatar(ctx, arg)

		case "noavatar":
			err = a.RemoveAvatar(ctx)

		case "save":
			err = a.Save(ctx)

		case "retry":
			err = a.Retry(ctx)

		case "leave":
			err = a.Leave(ctx)

		case "signout", "logout":
			err = a.SignOut(ctx)

		case "exit", "quit":
			fmt.Fprintln(w, "Bye!")
			return

		default:
			fmt.Fprintln(w, "Unknown command:", cmd)
		}

		if err != nil {
			fmt.Fprintln(w, "Error:", err)
		}
	}
}

// splitCommand returns the first word of line and the trimmed remainder.
func splitCommand(line string) (string, string) {
	line = strings.TrimSpace(line)
	i := strings.IndexFunc(line, unicode.IsSpace)
	if i < 0 {
		return strings.ToLower(line), ""
	}
	return strings.ToLower(line[:i]), strings.TrimSpace(line[i:])
}
