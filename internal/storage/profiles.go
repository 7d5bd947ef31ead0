package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v4"
)

// ProfileImage returns the stored image URL of a user.
// A missing row and a row without URL are both reported as ok == false.
func (s *Store) ProfileImage(ctx context.Context, userID string) (string, bool, error) {
	s.logger.Debugf("Retrieving profile image for user (id: %s)", userID)

	var url pgtype.Text
	err := s.db.QueryRow(ctx, "select image_url from profile_images where user_id = $1", userID).Scan(&url)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}

	if url.Status != pgtype.Present || url.String == "" {
		return "", false, nil
	}

	return url.String, true, nil
}

// SetProfileImage replaces the profile image document of a user
func (s *Store) SetProfileImage(ctx context.Context, userID, imageURL string) error {
	s.logger.Debugf("Writing profile image for user (id: %s), %d bytes", userID, len(imageURL))

	sql := `insert into profile_images (user_id, image_url) values ($1, $2)
			on conflict (user_id) do update set image_url = excluded.image_url`
	_, err := s.db.Exec(ctx, sql, userID, imageURL)
	return err
}
