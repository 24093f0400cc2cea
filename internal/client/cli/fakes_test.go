package cli

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/gophprofile/internal/client/assets"
	"github.com/dmitrijs2005/gophprofile/internal/client/auth"
	"github.com/dmitrijs2005/gophprofile/internal/client/config"
	"github.com/dmitrijs2005/gophprofile/internal/client/models"
	"github.com/dmitrijs2005/gophprofile/internal/client/profiles"
)

type fakeGateway struct {
	mu sync.Mutex

	requestErr error
	pingErr    error
	session    *models.Session

	requests  []string
	exchanges []string
	signOuts  int
}

func (g *fakeGateway) RequestSignIn(ctx context.Context, email string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, email)
	return g.requestErr
}

func (g *fakeGateway) ExchangeCallback(ctx context.Context, rawURL string) (*models.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.exchanges = append(g.exchanges, rawURL)
	g.session = &models.Session{UserID: "user-1", Email: "a@b.com", AccessToken: "tok"}
	return g.session, nil
}

func (g *fakeGateway) SignOut(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.signOuts++
	g.session = nil
	return nil
}

func (g *fakeGateway) CurrentSession() *models.Session {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.session
}

func (g *fakeGateway) Ping(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pingErr
}

func (g *fakeGateway) setPingErr(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pingErr = err
}

func (g *fakeGateway) exchangeCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.exchanges)
}

// noPing hides the Ping method of the wrapped gateway.
type noPing struct {
	auth.Gateway
}

type fakeStore struct {
	mu   sync.Mutex
	rows map[string]models.Profile
}

func (s *fakeStore) Fetch(ctx context.Context, userID string) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.rows[userID]
	if !ok {
		return nil, profiles.ErrNotFound
	}
	return &p, nil
}

func (s *fakeStore) Upsert(ctx context.Context, userID string, p models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[userID] = p
	return nil
}

func (s *fakeStore) get(userID string) (models.Profile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.rows[userID]
	return p, ok
}

type fakeTransfer struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (t *fakeTransfer) Upload(ctx context.Context, data []byte, contentType string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := "avatar.png"
	t.objects[key] = data
	return key, nil
}

func (t *fakeTransfer) Download(ctx context.Context, key string) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	data, ok := t.objects[key]
	if !ok {
		return nil, assets.ErrNotFound
	}
	return data, nil
}

// safeBuffer is a bytes.Buffer that tolerates concurrent watcher writes.
type safeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *safeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *safeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type testApp struct {
	*App
	gw     *fakeGateway
	rows   *fakeStore
	output *safeBuffer
}

func newTestApp(t *testing.T, input string) *testApp {
	t.Helper()
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.OnlineCheckInterval = 10 * time.Millisecond

	gw := &fakeGateway{}
	store := &fakeStore{rows: map[string]models.Profile{}}
	out := &safeBuffer{}
	app := NewApp(Deps{
		Config:  cfg,
		Gateway: gw,
		Store:   store,
		Assets:  &fakeTransfer{objects: map[string][]byte{}},
		In:      strings.NewReader(input),
		Out:     out,
	})
	t.Cleanup(func() {
		app.wait()
		app.shutdown()
	})
	return &testApp{App: app, gw: gw, rows: store, output: out}
}

func (ta *testApp) waitOutput(t *testing.T, substr string) {
	t.Helper()
	require.Eventually(t, func() bool { return strings.Contains(ta.output.String(), substr) },
		2*time.Second, 5*time.Millisecond, "output does not contain %q", substr)
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 6))))
	return buf.Bytes()
}
