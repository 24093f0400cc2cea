package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/gophprofile/internal/client/assets"
	"github.com/dmitrijs2005/gophprofile/internal/client/models"
	"github.com/dmitrijs2005/gophprofile/internal/client/profiles"
	"github.com/dmitrijs2005/gophprofile/internal/logging"
	"github.com/dmitrijs2005/gophprofile/internal/statex"
)

// ProfileFlow loads, edits and saves the signed-in user's profile.
//
//	Idle --Enter--> Loading --> Ready | LoadError
//	Ready --Save--> Saving --> Saved | SaveError
//
// Retry re-runs the failed step. Leave cancels whatever is in flight and
// returns to Idle; results that arrive afterwards are dropped.
type ProfileFlow struct {
	store  profiles.Store
	assets assets.Transfer
	logger logging.Logger
	state  *statex.Value[models.ProfileState]

	mu      sync.Mutex
	closed  bool
	pending bool
	epoch   uint64
	cancel  context.CancelFunc
	session *models.Session

	// uploadedKey is the object key of the staged avatar once it has been
	// uploaded, so a retried save does not upload the same bytes twice.
	uploadedKey *string

	// knownKey and knownUser remember the last avatar key seen, letting the
	// next load prefetch it alongside the profile fetch.
	knownKey  *string
	knownUser string
}

// NewProfileFlow returns an Idle controller over store and transfer.
func NewProfileFlow(store profiles.Store, transfer assets.Transfer, logger logging.Logger) *ProfileFlow {
	if logger == nil {
		logger = logging.Nop()
	}
	return &ProfileFlow{
		store:  store,
		assets: transfer,
		logger: logger.With("component", "profile_flow"),
		state:  statex.New(models.ProfileState{Phase: models.ProfileIdle}),
	}
}

// State returns the current snapshot.
func (f *ProfileFlow) State() models.ProfileState {
	return f.state.Get()
}

// Subscribe streams state changes, latest first. The returned func detaches.
func (f *ProfileFlow) Subscribe() (<-chan models.ProfileState, func()) {
	return f.state.Subscribe()
}

// Enter loads the profile of session's user. Any unsaved edits are
// discarded. It blocks until the load settles.
func (f *ProfileFlow) Enter(ctx context.Context, session *models.Session) error {
	if session == nil || session.UserID == "" {
		return ErrNotAuthenticated
	}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return ErrClosed
	}
	if f.pending {
		f.mu.Unlock()
		return ErrBusy
	}
	f.session = session
	return f.load(ctx)
}

// Leave cancels an in-flight load or save and returns to Idle.
func (f *ProfileFlow) Leave(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.abortLocked()
	f.set(ctx, models.ProfileState{Phase: models.ProfileIdle})
}

func (f *ProfileFlow) SetUsername(ctx context.Context, v string) error {
	return f.edit(ctx, func(st *models.ProfileState) error {
		st.Buffer.Username = v
		return nil
	})
}

func (f *ProfileFlow) SetFullName(ctx context.Context, v string) error {
	return f.edit(ctx, func(st *models.ProfileState) error {
		st.Buffer.FullName = v
		return nil
	})
}

func (f *ProfileFlow) SetWebsite(ctx context.Context, v string) error {
	return f.edit(ctx, func(st *models.ProfileState) error {
		st.Buffer.Website = v
		return nil
	})
}

// SelectAvatar decodes data and stages it for the next save. Nothing is
// uploaded until Save.
func (f *ProfileFlow) SelectAvatar(ctx context.Context, data []byte) error {
	asset, err := models.NewAvatarAsset(data)
	if err != nil {
		return err
	}
	return f.edit(ctx, func(st *models.ProfileState) error {
		st.Avatar = asset
		st.AvatarChange = models.AvatarReplace
		st.AvatarErr = nil
		f.uploadedKey = nil
		return nil
	})
}

// RemoveAvatar stages clearing the avatar key. The stored object is left
// in place.
func (f *ProfileFlow) RemoveAvatar(ctx context.Context) error {
	return f.edit(ctx, func(st *models.ProfileState) error {
		st.Avatar = nil
		st.AvatarChange = models.AvatarRemove
		st.AvatarErr = nil
		f.uploadedKey = nil
		return nil
	})
}

// Save uploads a staged avatar, then upserts the edited profile. It fails
// with ErrIncompleteProfile, without a transition, when username or full
// name is blank.
func (f *ProfileFlow) Save(ctx context.Context) error {
	f.mu.Lock()
	if err := f.guard(); err != nil {
		f.mu.Unlock()
		return err
	}
	st := f.state.Get()
	if st.Phase != models.ProfileReady && st.Phase != models.ProfileSaveError {
		f.mu.Unlock()
		return ErrInvalidPhase
	}
	if !st.Buffer.Complete() {
		f.mu.Unlock()
		return ErrIncompleteProfile
	}
	return f.save(ctx)
}

// Retry re-runs the step that failed: the load from LoadError, the save
// from SaveError.
func (f *ProfileFlow) Retry(ctx context.Context) error {
	f.mu.Lock()
	if err := f.guard(); err != nil {
		f.mu.Unlock()
		return err
	}
	st := f.state.Get()
	switch st.Phase {
	case models.ProfileLoadError:
		return f.load(ctx)
	case models.ProfileSaveError:
		if !st.Buffer.Complete() {
			f.mu.Unlock()
			return ErrIncompleteProfile
		}
		return f.save(ctx)
	default:
		f.mu.Unlock()
		return ErrInvalidPhase
	}
}

// Close cancels any operation in flight and ends every subscription.
func (f *ProfileFlow) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.abortLocked()
	f.closed = true
	f.state.Close()
}

func (f *ProfileFlow) guard() error {
	if f.closed {
		return ErrClosed
	}
	if f.pending {
		return ErrBusy
	}
	return nil
}

// edit applies fn to the state in Ready or SaveError. An edit after a failed
// save acknowledges the failure and returns to Ready.
func (f *ProfileFlow) edit(ctx context.Context, fn func(st *models.ProfileState) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.guard(); err != nil {
		return err
	}
	st := f.state.Get()
	if st.Phase != models.ProfileReady && st.Phase != models.ProfileSaveError {
		return ErrInvalidPhase
	}
	if err := fn(&st); err != nil {
		return err
	}
	st.Phase = models.ProfileReady
	st.Err = nil
	f.set(ctx, st)
	return nil
}

// start claims the pending slot for a new operation and returns its epoch
// and context. Callers hold f.mu.
func (f *ProfileFlow) start(ctx context.Context) (uint64, context.Context) {
	f.epoch++
	opCtx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	f.pending = true
	return f.epoch, opCtx
}

// finish releases the pending slot if epoch is still current. It reports
// false for a stale result, which must then be dropped. Callers hold f.mu.
func (f *ProfileFlow) finish(epoch uint64) bool {
	if f.closed || epoch != f.epoch {
		return false
	}
	f.cancel()
	f.cancel = nil
	f.pending = false
	return true
}

func (f *ProfileFlow) abortLocked() {
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
	f.epoch++
	f.pending = false
}

type loadResult struct {
	profile   models.Profile
	avatar    *models.AvatarAsset
	avatarErr error
}

// load runs Loading. It is entered with f.mu held and releases it.
func (f *ProfileFlow) load(ctx context.Context) error {
	userID := f.session.UserID
	var prefetchKey *string
	if f.knownUser == userID {
		prefetchKey = f.knownKey
	}

	epoch, opCtx := f.start(ctx)
	f.uploadedKey = nil
	f.set(ctx, models.ProfileState{Phase: models.ProfileLoading})
	f.mu.Unlock()

	res, err := f.fetch(opCtx, userID, prefetchKey)

	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.finish(epoch) {
		f.logger.Debug(ctx, "stale load result dropped", "user_id", userID)
		return context.Canceled
	}
	if err != nil {
		f.set(ctx, models.ProfileState{Phase: models.ProfileLoadError, Err: err})
		return err
	}

	f.knownUser, f.knownKey = userID, res.profile.AvatarKey
	f.set(ctx, models.ProfileState{
		Phase:        models.ProfileReady,
		Stored:       res.profile,
		Buffer:       models.BufferFrom(res.profile),
		Avatar:       res.avatar,
		AvatarChange: models.AvatarKeep,
		AvatarErr:    res.avatarErr,
	})
	return nil
}

// fetch reads the profile and, concurrently, prefetches the avatar under
// prefetchKey. Loading only settles once the avatar of the fetched record
// has resolved too; a failed avatar leaves avatarErr set and does not fail
// the load.
func (f *ProfileFlow) fetch(ctx context.Context, userID string, prefetchKey *string) (loadResult, error) {
	var (
		profile     *models.Profile
		prefetched  []byte
		prefetchErr error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := f.store.Fetch(gctx, userID)
		if errors.Is(err, profiles.ErrNotFound) {
			p, err = &models.Profile{}, nil
		}
		profile = p
		return err
	})
	if prefetchKey != nil {
		g.Go(func() error {
			prefetched, prefetchErr = f.assets.Download(gctx, *prefetchKey)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return loadResult{}, err
	}

	res := loadResult{profile: *profile}
	key := profile.AvatarKey
	if key == nil {
		return res, nil
	}

	data, err := prefetched, prefetchErr
	if prefetchKey == nil || *prefetchKey != *key {
		data, err = f.assets.Download(ctx, *key)
	}
	if err == nil {
		res.avatar, err = models.NewAvatarAsset(data)
	}
	if err != nil {
		res.avatarErr = fmt.Errorf("avatar %s: %w", *key, err)
		f.logger.Warn(ctx, "avatar not loaded", "key", *key, "err", err)
	}
	return res, nil
}

// save runs Saving. It is entered with f.mu held and releases it.
func (f *ProfileFlow) save(ctx context.Context) error {
	st := f.state.Get()
	userID := f.session.UserID
	uploaded := f.uploadedKey

	epoch, opCtx := f.start(ctx)
	saving := st
	saving.Phase = models.ProfileSaving
	saving.Err = nil
	f.set(ctx, saving)
	f.mu.Unlock()

	key := st.Stored.AvatarKey
	switch st.AvatarChange {
	case models.AvatarRemove:
		key = nil
	case models.AvatarReplace:
		if uploaded == nil {
			k, err := f.assets.Upload(opCtx, st.Avatar.Data, st.Avatar.ContentType)
			if err != nil {
				return f.saveFailed(ctx, epoch, st, err)
			}
			uploaded = &k
			f.mu.Lock()
			if f.closed || epoch != f.epoch {
				f.mu.Unlock()
				return context.Canceled
			}
			f.uploadedKey = uploaded
			f.mu.Unlock()
		}
		key = uploaded
	}

	profile := st.Buffer.ToProfile(key)
	if err := f.store.Upsert(opCtx, userID, profile); err != nil {
		return f.saveFailed(ctx, epoch, st, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.finish(epoch) {
		return context.Canceled
	}

	f.uploadedKey = nil
	f.knownUser, f.knownKey = userID, profile.AvatarKey
	f.set(ctx, models.ProfileState{
		Phase:        models.ProfileSaved,
		Stored:       profile,
		Buffer:       models.BufferFrom(profile),
		Avatar:       st.Avatar,
		AvatarChange: models.AvatarKeep,
		AvatarErr:    st.AvatarErr,
	})
	f.logger.Info(ctx, "profile saved", "user_id", userID)
	return nil
}

func (f *ProfileFlow) saveFailed(ctx context.Context, epoch uint64, st models.ProfileState, err error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.finish(epoch) {
		return context.Canceled
	}
	st.Phase = models.ProfileSaveError
	st.Err = err
	f.set(ctx, st)
	return err
}

func (f *ProfileFlow) set(ctx context.Context, st models.ProfileState) {
	prev := f.state.Get()
	f.state.Set(st)
	if prev.Phase != st.Phase {
		f.logger.Debug(ctx, "profile state", "from", prev.Phase, "to", st.Phase, "err", st.Err)
	}
}
