package models

import (
	"strings"

	"github.com/dmitrijs2005/gophprofile/internal/common"
)

// Profile is the durable record keyed by user id. Nil fields are stored as
// NULL. AvatarKey is a lookup key into the object store, not an owner of the
// blob.
type Profile struct {
	Username  *string
	FullName  *string
	Website   *string
	AvatarKey *string
}

// Equal compares field values, treating nil and nil as equal.
func (p Profile) Equal(o Profile) bool {
	return eqPtr(p.Username, o.Username) &&
		eqPtr(p.FullName, o.FullName) &&
		eqPtr(p.Website, o.Website) &&
		eqPtr(p.AvatarKey, o.AvatarKey)
}

func eqPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// EditBuffer holds the text fields as typed by the user. It is only turned
// into a Profile on save.
type EditBuffer struct {
	Username string
	FullName string
	Website  string
}

// BufferFrom seeds an edit buffer from a stored profile.
func BufferFrom(p Profile) EditBuffer {
	return EditBuffer{
		Username: common.Deref(p.Username),
		FullName: common.Deref(p.FullName),
		Website:  common.Deref(p.Website),
	}
}

// Complete reports whether the fields required for saving are present.
func (b EditBuffer) Complete() bool {
	return strings.TrimSpace(b.Username) != "" && strings.TrimSpace(b.FullName) != ""
}

// ToProfile builds the record to upsert: trimmed text fields, blanks as NULL,
// and the given avatar key.
func (b EditBuffer) ToProfile(avatarKey *string) Profile {
	return Profile{
		Username:  common.TrimmedPtr(b.Username),
		FullName:  common.TrimmedPtr(b.FullName),
		Website:   common.TrimmedPtr(b.Website),
		AvatarKey: avatarKey,
	}
}
