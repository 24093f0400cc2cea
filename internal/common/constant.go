package common

// DefaultCallbackURL is the deep link the auth service redirects to after the
// user opens a magic link. The scheme is registered by the host app.
const DefaultCallbackURL = "io.supabase.user-management://login-callback"

// DefaultAvatarBucket is the object-store bucket holding profile images.
const DefaultAvatarBucket = "profile-images"
