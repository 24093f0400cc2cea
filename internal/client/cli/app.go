package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophprofile/internal/client/assets"
	"github.com/dmitrijs2005/gophprofile/internal/client/auth"
	"github.com/dmitrijs2005/gophprofile/internal/client/config"
	"github.com/dmitrijs2005/gophprofile/internal/client/models"
	"github.com/dmitrijs2005/gophprofile/internal/client/profiles"
	"github.com/dmitrijs2005/gophprofile/internal/client/services"
	"github.com/dmitrijs2005/gophprofile/internal/logging"
)

type Mode string

const (
	ModeOffline  Mode = "offline"
	ModeOnline   Mode = "online"
	ModeDisabled Mode = "disabled"
)

// pingTimeout bounds a single liveness check.
const pingTimeout = 3 * time.Second

// Deps are the collaborators an App is built from. In and Out default to
// the process's stdin and stdout.
type Deps struct {
	Config  *config.Config
	Logger  logging.Logger
	Gateway auth.Gateway
	Store   profiles.Store
	Assets  assets.Transfer
	In      io.Reader
	Out     io.Writer
}

type App struct {
	config  *config.Config
	logger  logging.Logger
	gateway auth.Gateway
	store   profiles.Store
	assets  assets.Transfer
	in      io.Reader
	out     *syncWriter
	prompt  bool

	mu          sync.Mutex
	mode        Mode
	authFlow    *services.AuthFlow
	profileFlow *services.ProfileFlow
	stopWatch   func()

	tasks    sync.WaitGroup
	watchers sync.WaitGroup
	readFile func(string) ([]byte, error)
}

func NewApp(d Deps) *App {
	a := &App{
		config:   d.Config,
		logger:   d.Logger,
		gateway:  d.Gateway,
		store:    d.Store,
		assets:   d.Assets,
		in:       d.In,
		readFile: readAvatarFile,
		mode:     ModeDisabled,
	}
	if a.config == nil {
		a.config = &config.Config{}
		a.config.LoadDefaults()
	}
	if a.logger == nil {
		a.logger = logging.Nop()
	}
	if a.in == nil {
		a.in = os.Stdin
		a.prompt = stdinIsTerminal()
	}
	out := d.Out
	if out == nil {
		out = os.Stdout
	}
	a.out = &syncWriter{w: out}
	if _, ok := a.gateway.(auth.Pinger); ok {
		a.mode = ModeOffline
	}

	a.newFlows()
	return a
}

// Run starts the connectivity watcher and the REPL and blocks until the
// user exits. Operations still in flight are awaited before the controllers
// are closed.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.println("Welcome to gophprofile. Type 'help' for commands.")

	go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)

	runREPL(ctx, a, a.getStatus, bufio.NewScanner(a.in), a.out, a.prompt)

	a.wait()
	cancel()
	a.shutdown()
	return nil
}

// newFlows builds a fresh pair of controllers and attaches watchers that
// print their transitions.
func (a *App) newFlows() {
	af := services.NewAuthFlow(a.gateway, a.logger)
	pf := services.NewProfileFlow(a.store, a.assets, a.logger)

	stopAuth := startWatcher(a, af.Subscribe, renderAuth)
	stopProfile := startWatcher(a, pf.Subscribe, renderProfile)

	a.mu.Lock()
	a.authFlow, a.profileFlow = af, pf
	a.stopWatch = func() {
		stopAuth()
		stopProfile()
	}
	a.mu.Unlock()
}

// resetFlows replaces the controllers after a sign-out closed the old auth
// flow.
func (a *App) resetFlows() {
	a.mu.Lock()
	pf, stop := a.profileFlow, a.stopWatch
	a.mu.Unlock()

	pf.Close()
	stop()
	a.newFlows()
}

func (a *App) shutdown() {
	af, pf := a.flows()
	af.Close()
	pf.Close()
	a.watchers.Wait()
}

func (a *App) flows() (*services.AuthFlow, *services.ProfileFlow) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.authFlow, a.profileFlow
}

func (a *App) getMode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.mu.Unlock()

	if changed {
		a.logger.Info(context.Background(), "connectivity changed", "mode", mode)
		a.printf("Switched to %s mode\n", mode)
	}
}

// StartOnlineStatusWatcher pings the auth service every interval and
// switches between online and offline mode. It returns when ctx is done.
// Gateways without a Ping method leave the mode disabled.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	p, ok := a.gateway.(auth.Pinger)
	if !ok {
		return
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}

	check := func() {
		pctx, cancel := context.WithTimeout(ctx, pingTimeout)
		err := p.Ping(pctx)
		cancel()
		if ctx.Err() != nil {
			return
		}

		if err != nil {
			a.logger.Debug(ctx, "ping failed", "err", err)
			a.setMode(ModeOffline)
		} else {
			a.setMode(ModeOnline)
		}
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	check()
	for {
		select {
		case <-ticker.C:
			check()
		case <-ctx.Done():
			return
		}
	}
}

// getStatus renders the prompt status: the signed-in email, or the address
// a link was sent to, followed by the connectivity mode.
func (a *App) getStatus() string {
	af, _ := a.flows()
	st := af.State()

	who := "signed out"
	switch st.Phase {
	case models.AuthAuthenticated:
		if st.Session != nil {
			who = st.Session.Email
		}
	case models.AuthLinkSent:
		who = st.Email + ", link sent"
	}

	mode := a.getMode()
	if mode == ModeDisabled {
		return fmt.Sprintf("(%s)", who)
	}
	return fmt.Sprintf("(%s %s)", who, mode)
}

// spawn runs fn on its own goroutine so the REPL stays responsive. Failures
// already published through a controller's state are left to the watcher.
func (a *App) spawn(ctx context.Context, name string, fn func(ctx context.Context) error) {
	a.tasks.Add(1)
	go func() {
		defer a.tasks.Done()
		if err := fn(ctx); err != nil && !shownByState(err) {
			a.printf("%s: %v\n", name, err)
		}
	}()
}

// wait blocks until every spawned operation has returned.
func (a *App) wait() {
	a.tasks.Wait()
}

func (a *App) println(s string) {
	fmt.Fprintln(a.out, s)
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

// syncWriter serializes writes from the REPL and the watcher goroutines.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
