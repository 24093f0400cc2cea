package profiles

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophprofile/internal/client/models"
	"github.com/dmitrijs2005/gophprofile/internal/dbx"
)

type PostgresStore struct {
	db  dbx.DBTX
	now func() time.Time
}

func NewPostgresStore(db dbx.DBTX) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

func (s *PostgresStore) Fetch(ctx context.Context, userID string) (*models.Profile, error) {
	query :=
		`SELECT username, full_name, website, avatar_url FROM profiles
		 WHERE id = $1
		 `
	return scanProfile(s.db.QueryRowContext(ctx, query, userID))
}

func (s *PostgresStore) Upsert(ctx context.Context, userID string, p models.Profile) error {
	query :=
		`INSERT INTO profiles (id, username, full_name, website, avatar_url, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET
		   username = EXCLUDED.username,
		   full_name = EXCLUDED.full_name,
		   website = EXCLUDED.website,
		   avatar_url = EXCLUDED.avatar_url,
		   updated_at = EXCLUDED.updated_at
		 `

	_, err := s.db.ExecContext(ctx, query,
		userID, p.Username, p.FullName, p.Website, p.AvatarKey, s.now().UTC())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	return nil
}
