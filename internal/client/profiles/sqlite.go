package profiles

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophprofile/internal/client/models"
	"github.com/dmitrijs2005/gophprofile/internal/dbx"
)

// SQLiteStore backs the profile record with a local SQLite file, for
// development against a backend-less setup.
type SQLiteStore struct {
	db  dbx.DBTX
	now func() time.Time
}

func NewSQLiteStore(db dbx.DBTX) *SQLiteStore {
	return &SQLiteStore{db: db, now: time.Now}
}

func (s *SQLiteStore) Fetch(ctx context.Context, userID string) (*models.Profile, error) {
	query := `SELECT username, full_name, website, avatar_url FROM profiles WHERE id = ?`
	return scanProfile(s.db.QueryRowContext(ctx, query, userID))
}

func (s *SQLiteStore) Upsert(ctx context.Context, userID string, p models.Profile) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (id, username, full_name, website, avatar_url, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			username = excluded.username,
			full_name = excluded.full_name,
			website = excluded.website,
			avatar_url = excluded.avatar_url,
			updated_at = excluded.updated_at
	`, userID, p.Username, p.FullName, p.Website, p.AvatarKey, s.now().UTC())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	return nil
}
