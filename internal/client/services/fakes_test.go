package services

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/gophprofile/internal/client/assets"
	"github.com/dmitrijs2005/gophprofile/internal/client/models"
	"github.com/dmitrijs2005/gophprofile/internal/client/profiles"
)

// ---- fake gateway ----

type fakeGateway struct {
	mu sync.Mutex

	requestErr  error
	exchangeErr error
	signOutErr  error
	session     *models.Session

	// gate, when set, blocks RequestSignIn until closed.
	gate chan struct{}

	requests  []string
	exchanges []string
	signOuts  int
}

func (g *fakeGateway) RequestSignIn(ctx context.Context, email string) error {
	if g.gate != nil {
		<-g.gate
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, email)
	return g.requestErr
}

func (g *fakeGateway) ExchangeCallback(ctx context.Context, rawURL string) (*models.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.exchanges = append(g.exchanges, rawURL)
	if g.exchangeErr != nil {
		return nil, g.exchangeErr
	}
	g.session = &models.Session{UserID: "user-1", Email: "a@b.com", AccessToken: "tok"}
	return g.session, nil
}

func (g *fakeGateway) SignOut(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.signOuts++
	g.session = nil
	return g.signOutErr
}

func (g *fakeGateway) CurrentSession() *models.Session {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.session
}

func (g *fakeGateway) requestCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.requests)
}

// ---- fake profile store ----

type fakeStore struct {
	mu sync.Mutex

	rows       map[string]models.Profile
	fetchErr   error
	upsertErrs []error

	// fetchGate, when set, delays Fetch until closed. The delayed call
	// ignores cancellation, like a response already on the wire.
	fetchGate chan struct{}
	// upsertGate does the same for Upsert.
	upsertGate chan struct{}
	// beforeFetch runs at the start of every Fetch.
	beforeFetch func()

	fetches int
	upserts []models.Profile
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: map[string]models.Profile{}}
}

func (s *fakeStore) Fetch(ctx context.Context, userID string) (*models.Profile, error) {
	if s.beforeFetch != nil {
		s.beforeFetch()
	}
	if s.fetchGate != nil {
		<-s.fetchGate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches++
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	p, ok := s.rows[userID]
	if !ok {
		return nil, profiles.ErrNotFound
	}
	return &p, nil
}

func (s *fakeStore) Upsert(ctx context.Context, userID string, p models.Profile) error {
	if s.upsertGate != nil {
		<-s.upsertGate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts = append(s.upserts, p)
	if len(s.upsertErrs) > 0 {
		err := s.upsertErrs[0]
		s.upsertErrs = s.upsertErrs[1:]
		if err != nil {
			return err
		}
	}
	s.rows[userID] = p
	return nil
}

func (s *fakeStore) upsertCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.upserts)
}

func (s *fakeStore) lastUpsert() models.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upserts[len(s.upserts)-1]
}

// ---- fake asset transfer ----

type fakeTransfer struct {
	mu sync.Mutex

	objects     map[string][]byte
	uploadErr   error
	downloadErr error
	// downloadStarted, when set, receives every key as its download begins.
	downloadStarted chan string
	// uploadGate, when set, holds every upload until it is closed.
	uploadGate chan struct{}

	uploads   int
	downloads []string
}

func newFakeTransfer() *fakeTransfer {
	return &fakeTransfer{objects: map[string][]byte{}}
}

func (t *fakeTransfer) Upload(ctx context.Context, data []byte, contentType string) (string, error) {
	if t.uploadGate != nil {
		<-t.uploadGate
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.uploads++
	if t.uploadErr != nil {
		return "", t.uploadErr
	}
	key := fmt.Sprintf("upload-%d.png", t.uploads)
	t.objects[key] = data
	return key, nil
}

func (t *fakeTransfer) Download(ctx context.Context, key string) ([]byte, error) {
	if t.downloadStarted != nil {
		t.downloadStarted <- key
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.downloads = append(t.downloads, key)
	if t.downloadErr != nil {
		return nil, t.downloadErr
	}
	data, ok := t.objects[key]
	if !ok {
		return nil, assets.ErrNotFound
	}
	return data, nil
}

func (t *fakeTransfer) uploadCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.uploads
}

// ---- helpers ----

func pngBytes(t *testing.T, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(0, 0, c)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func strp(s string) *string { return &s }

func waitProfilePhase(t *testing.T, f *ProfileFlow, want models.ProfilePhase) {
	t.Helper()
	require.Eventually(t, func() bool { return f.State().Phase == want },
		2*time.Second, 5*time.Millisecond, "phase %s not reached, have %s", want, f.State().Phase)
}

func waitAuthPending(t *testing.T, f *AuthFlow) {
	t.Helper()
	require.Eventually(t, func() bool { return f.State().Pending },
		2*time.Second, 5*time.Millisecond)
}
