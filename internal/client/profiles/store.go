// Package profiles reads and writes the per-user profile record.
//
// The record lives in a relational table keyed by the auth user id. Fetch
// returns exactly one row or ErrNotFound; Upsert replaces all fields in a
// single INSERT ... ON CONFLICT statement, so concurrent writers resolve to
// last-write-wins per row.
package profiles

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophprofile/internal/client/models"
	"github.com/dmitrijs2005/gophprofile/internal/common"
)

var (
	ErrNotFound  = fmt.Errorf("profile %w", common.ErrorNotFound)
	ErrTransport = fmt.Errorf("profile store: %w", common.ErrorUnavailable)
)

type Store interface {
	Fetch(ctx context.Context, userID string) (*models.Profile, error)
	Upsert(ctx context.Context, userID string, p models.Profile) error
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

func scanProfile(row *sql.Row) (*models.Profile, error) {
	var username, fullName, website, avatar sql.NullString
	if err := row.Scan(&username, &fullName, &website, &avatar); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	return &models.Profile{
		Username:  nullable(username),
		FullName:  nullable(fullName),
		Website:   nullable(website),
		AvatarKey: nullable(avatar),
	}, nil
}

func nullable(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
