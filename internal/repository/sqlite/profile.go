package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/devconnect/internal/apperror"
	"github.com/sakif/devconnect/internal/model"
	"github.com/sakif/devconnect/internal/repository"
)

var _ repository.ProfileRepository = (*DB)(nil)

// Reads join the owner so the returned profile carries the user's current
// name and avatar rather than a copy taken when the profile was written.
const selectProfile = `
	SELECT p.doc, COALESCE(u.name, ''), COALESCE(u.avatar_url, '')
	FROM profiles p
	LEFT JOIN users u ON u.id = p.user_id`

// CreateProfile inserts a new profile document for profile.User.ID.
// A second profile for the same user yields apperror.ErrConflict, an unknown
// user apperror.ErrNotFound.
func (db *DB) CreateProfile(ctx context.Context, profile *model.Profile) error {
	now := time.Now().UTC()
	profile.ID = xid.New().String()
	profile.CreatedAt = now
	profile.UpdatedAt = now

	doc, err := encodeProfile(profile)
	if err != nil {
		return err
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO profiles (id, user_id, doc) VALUES (?, ?, ?)`,
		profile.ID,
		profile.User.ID,
		doc,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("Profile already exists")
		}
		if isForeignKeyViolation(err) {
			return apperror.NotFoundMsg("User not found")
		}
		return fmt.Errorf("sqlite: inserting profile for user %s: %w", profile.User.ID, err)
	}

	return nil
}

// GetProfileByUser returns the profile owned by userID.
func (db *DB) GetProfileByUser(ctx context.Context, userID string) (*model.Profile, error) {
	p, err := scanProfile(db.conn.QueryRowContext(ctx, selectProfile+` WHERE p.user_id = ?`, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFoundMsg("There is no profile for this user")
		}
		return nil, fmt.Errorf("sqlite: getting profile for user %s: %w", userID, err)
	}
	return p, nil
}

// ListProfiles returns every profile, oldest first.
func (db *DB) ListProfiles(ctx context.Context) ([]model.Profile, error) {
	rows, err := db.conn.QueryContext(ctx, selectProfile+` ORDER BY p.rowid`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing profiles: %w", err)
	}
	defer rows.Close()

	profiles := make([]model.Profile, 0)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning profile row: %w", err)
		}
		profiles = append(profiles, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating profiles: %w", err)
	}

	return profiles, nil
}

// UpdateProfile loads the profile owned by userID, applies fn and writes the
// result back inside one transaction. UpdatedAt is refreshed.
func (db *DB) UpdateProfile(ctx context.Context, userID string, fn repository.ProfileMutator) (*model.Profile, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: beginning profile update: %w", err)
	}
	defer tx.Rollback()

	p, err := scanProfile(tx.QueryRowContext(ctx, selectProfile+` WHERE p.user_id = ?`, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFoundMsg("There is no profile for this user")
		}
		return nil, fmt.Errorf("sqlite: loading profile for user %s: %w", userID, err)
	}

	if err := fn(p); err != nil {
		return nil, err
	}

	// The document's identity is not editable through a mutator.
	p.User.ID = userID
	p.UpdatedAt = time.Now().UTC()

	doc, err := encodeProfile(p)
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `UPDATE profiles SET doc = ? WHERE user_id = ?`, doc, userID); err != nil {
		return nil, fmt.Errorf("sqlite: updating profile for user %s: %w", userID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlite: committing profile update: %w", err)
	}

	return p, nil
}

// DeleteProfileByUser removes the profile owned by userID, if any.
func (db *DB) DeleteProfileByUser(ctx context.Context, userID string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM profiles WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("sqlite: deleting profile for user %s: %w", userID, err)
	}
	return nil
}

// encodeProfile serialises the stored form of a profile: the owner is kept
// as a bare reference, name and avatar come from the join on read.
func encodeProfile(p *model.Profile) (string, error) {
	stored := *p
	stored.User = model.UserSummary{ID: p.User.ID}

	b, err := json.Marshal(stored)
	if err != nil {
		return "", fmt.Errorf("sqlite: encoding profile: %w", err)
	}
	return string(b), nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*model.Profile, error) {
	var doc, name, avatar string
	if err := row.Scan(&doc, &name, &avatar); err != nil {
		return nil, err
	}

	var p model.Profile
	if err := json.Unmarshal([]byte(doc), &p); err != nil {
		return nil, fmt.Errorf("decoding profile document: %w", err)
	}
	p.User.Name = name
	p.User.AvatarURL = avatar

	if p.Skills == nil {
		p.Skills = []string{}
	}
	if p.Experience == nil {
		p.Experience = []model.Experience{}
	}
	if p.Education == nil {
		p.Education = []model.Education{}
	}

	return &p, nil
}
