package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v4"
)

// Groups returns every group keyed by id
func (s *Store) Groups(ctx context.Context) (map[string]Group, error) {
	s.logger.Debug("Retrieving all groups")

	rows, err := s.db.Query(ctx, "select id, name, lat, lng, texts from groups")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	groups := make(map[string]Group)
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		groups[g.ID] = g
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	s.logger.Debugf("Retrieved %d groups", len(groups))

	return groups, nil
}

// Group returns a single group document
func (s *Store) Group(ctx context.Context, id string) (Group, error) {
	s.logger.Debugf("Retrieving group (id: %s)", id)

	row := s.db.QueryRow(ctx, "select id, name, lat, lng, texts from groups where id = $1", id)
	g, err := scanGroup(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Group{}, ErrGroupNotExist
		}
		return Group{}, err
	}

	return g, nil
}

// PutGroup replaces the whole group document and announces the change on ChangesChannel in the same transaction.
// origin identifies the writer so that it can skip its own notifications.
func (s *Store) PutGroup(ctx context.Context, g Group, origin string) error {
	s.logger.Debugf("Writing group (id: %s) with %d texts", g.ID, len(g.Texts))

	texts, err := encodeTexts(g.Texts)
	if err != nil {
		return err
	}

	payload, err := encodeChange(Change{GroupID: g.ID, Origin: origin})
	if err != nil {
		return err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	// error handling can be omitted for rollback according docs
	defer tx.Rollback(context.Background())

	sql := `insert into groups (id, name, lat, lng, texts) values ($1, $2, $3, $4, $5)
			on conflict (id) do update
			set name = excluded.name, lat = excluded.lat, lng = excluded.lng, texts = excluded.texts`
	_, err = tx.Exec(ctx, sql, g.ID, g.Name, g.Lat, g.Lng, texts)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, "select pg_notify($1, $2)", ChangesChannel, payload)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// CreateGroups bulk inserts groups and returns their ids in input order.
// Groups without ID get a fresh UUID.
func (s *Store) CreateGroups(ctx context.Context, groups []Group) ([]string, error) {
	s.logger.Debugf("Creating %d groups", len(groups))

	rows, ids, err := groupRows(groups)
	if err != nil {
		return nil, err
	}

	_, err = s.db.CopyFrom(ctx, pgx.Identifier{"groups"}, []string{"id", "name", "lat", "lng", "texts"}, copyFromBulk(rows))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrGroupExists
		}
		return nil, err
	}

	s.logger.Debugf("Created groups %v", ids)

	return ids, nil
}

func scanGroup(row pgx.Row) (Group, error) {
	var (
		g     Group
		texts pgtype.JSONB
	)
	if err := row.Scan(&g.ID, &g.Name, &g.Lat, &g.Lng, &texts); err != nil {
		return Group{}, err
	}

	decoded, err := decodeTexts(texts)
	if err != nil {
		return Group{}, err
	}
	g.Texts = decoded

	return g, nil
}
