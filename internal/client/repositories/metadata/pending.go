package metadata

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/gophprofile/internal/dbx"
)

const (
	keyPendingEmail    = "pending_email"
	keyPendingVerifier = "pending_verifier"
)

// PendingStore persists an outstanding magic-link request (email and PKCE
// verifier) so a callback delivered after a restart can still be exchanged.
type PendingStore struct {
	db *sql.DB
}

func NewPendingStore(db *sql.DB) *PendingStore {
	return &PendingStore{db: db}
}

// SavePending replaces any earlier request. Both keys are written in one
// transaction.
func (s *PendingStore) SavePending(ctx context.Context, email, verifier string) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		r := NewSQLiteRepository(tx)
		if err := r.Set(ctx, keyPendingEmail, []byte(email)); err != nil {
			return err
		}
		return r.Set(ctx, keyPendingVerifier, []byte(verifier))
	})
}

// LoadPending returns empty strings when nothing is pending.
func (s *PendingStore) LoadPending(ctx context.Context) (string, string, error) {
	var email, verifier []byte
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		r := NewSQLiteRepository(tx)
		var err error
		if email, err = r.Get(ctx, keyPendingEmail); err != nil {
			return err
		}
		verifier, err = r.Get(ctx, keyPendingVerifier)
		return err
	})
	if err != nil {
		return "", "", fmt.Errorf("load pending sign-in: %w", err)
	}
	return string(email), string(verifier), nil
}

func (s *PendingStore) ClearPending(ctx context.Context) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		r := NewSQLiteRepository(tx)
		if err := r.Delete(ctx, keyPendingEmail); err != nil {
			return err
		}
		return r.Delete(ctx, keyPendingVerifier)
	})
}
