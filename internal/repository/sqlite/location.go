package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/diarioapp/diario/internal/apperror"
	"github.com/diarioapp/diario/internal/model"
	"github.com/diarioapp/diario/internal/repository"
)

// compile-time check that *DB implements repository.LocationRepository
var _ repository.LocationRepository = (*DB)(nil)

// CreateLocation inserts a new location record. The generated id is written
// back into loc; clients only ever see it in the create response.
func (db *DB) CreateLocation(ctx context.Context, loc *model.Location) error {
	loc.ID = xid.New().String()
	loc.CreatedAt = time.Now()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO locations (id, title, latitude, longitude, description, owner_email, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		loc.ID,
		loc.Title,
		loc.Latitude,
		loc.Longitude,
		loc.Description,
		loc.OwnerEmail,
		loc.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting location %q: %w", loc.Title, err)
	}

	return nil
}

// ListLocations returns every location owned by the given identity.
// No explicit ORDER BY: callers must not rely on a stable order across calls.
func (db *DB) ListLocations(ctx context.Context, owner string) ([]model.Location, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, title, latitude, longitude, description, owner_email, created_at
		 FROM locations WHERE owner_email = ?`,
		owner,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing locations: %w", err)
	}
	defer rows.Close()

	locations := []model.Location{}
	for rows.Next() {
		var l model.Location
		if err := rows.Scan(
			&l.ID, &l.Title, &l.Latitude, &l.Longitude,
			&l.Description, &l.OwnerEmail, &l.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning location row: %w", err)
		}
		locations = append(locations, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating locations: %w", err)
	}

	return locations, nil
}

// UpdateLocation replaces title, coordinates, and description of the record
// matched by the old composite key. Matched-count semantics: the update
// succeeds as soon as a record matched, even when the new values happen to
// equal the old ones.
func (db *DB) UpdateLocation(ctx context.Context, oldKey model.LocationKey, fields model.LocationFields, owner string) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE locations
		 SET title = ?, latitude = ?, longitude = ?, description = ?
		 WHERE title = ? AND latitude = ? AND longitude = ? AND owner_email = ?`,
		fields.Title,
		fields.Latitude,
		fields.Longitude,
		fields.Description,
		oldKey.Title,
		oldKey.Latitude,
		oldKey.Longitude,
		owner,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating location %q: %w", oldKey.Title, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("location", locationKeyString(oldKey))
	}

	return nil
}

// DeleteLocation removes the record matched by the composite key.
func (db *DB) DeleteLocation(ctx context.Context, key model.LocationKey, owner string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM locations
		 WHERE title = ? AND latitude = ? AND longitude = ? AND owner_email = ?`,
		key.Title,
		key.Latitude,
		key.Longitude,
		owner,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting location %q: %w", key.Title, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("location", locationKeyString(key))
	}

	return nil
}

func locationKeyString(key model.LocationKey) string {
	return fmt.Sprintf("%s/%g/%g", key.Title, key.Latitude, key.Longitude)
}
