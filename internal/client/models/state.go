package models

// AuthPhase tags the sign-in state machine.
type AuthPhase string

const (
	AuthUnauthenticated AuthPhase = "unauthenticated"
	AuthLinkSent        AuthPhase = "link_sent"
	AuthAuthenticated   AuthPhase = "authenticated"
)

// AuthState is what the sign-in screen renders.
//
// Pending is true while a link request or callback exchange is in flight.
// Err holds the last failure until the next transition.
type AuthState struct {
	Phase   AuthPhase
	Email   string
	Session *Session
	Pending bool
	Err     error
}

// ProfilePhase tags the profile state machine.
type ProfilePhase string

const (
	ProfileIdle      ProfilePhase = "idle"
	ProfileLoading   ProfilePhase = "loading"
	ProfileReady     ProfilePhase = "ready"
	ProfileLoadError ProfilePhase = "load_error"
	ProfileSaving    ProfilePhase = "saving"
	ProfileSaved     ProfilePhase = "saved"
	ProfileSaveError ProfilePhase = "save_error"
)

// AvatarChange describes what saving will do with the avatar key.
type AvatarChange string

const (
	AvatarKeep    AvatarChange = "keep"
	AvatarReplace AvatarChange = "replace"
	AvatarRemove  AvatarChange = "remove"
)

// ProfileState is what the profile screen renders.
//
// Stored is the last record read from or written to the store. Buffer is the
// text as edited. Avatar is the image to show: the downloaded one, or the
// staged one when AvatarChange is AvatarReplace. AvatarErr records a failed
// avatar download that did not fail the load.
type ProfileState struct {
	Phase        ProfilePhase
	Stored       Profile
	Buffer       EditBuffer
	Avatar       *AvatarAsset
	AvatarChange AvatarChange
	AvatarErr    error
	Err          error
}
