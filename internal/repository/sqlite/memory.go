package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/rs/xid"

	"github.com/diarioapp/diario/internal/apperror"
	"github.com/diarioapp/diario/internal/model"
	"github.com/diarioapp/diario/internal/repository"
)

// compile-time check that *DB implements repository.MemoryRepository
var _ repository.MemoryRepository = (*DB)(nil)

// memoryKeyString renders the composite key for error messages.
func memoryKeyString(key model.MemoryKey) string {
	return fmt.Sprintf("%s/%s/%s", key.Title, key.Date, key.Text)
}

// CreateMemory inserts a new memory record with its embedded lists.
// The lists are stored whole as JSON columns; nil slices become empty lists
// so the stored document always has both fields.
func (db *DB) CreateMemory(ctx context.Context, mem *model.Memory) error {
	mem.ID = xid.New().String()
	mem.CreatedAt = time.Now()
	if mem.Locations == nil {
		mem.Locations = []model.EmbeddedLocation{}
	}
	if mem.Files == nil {
		mem.Files = []model.File{}
	}

	locsJSON, err := json.Marshal(mem.Locations)
	if err != nil {
		return fmt.Errorf("sqlite: encoding locations: %w", err)
	}
	filesJSON, err := json.Marshal(mem.Files)
	if err != nil {
		return fmt.Errorf("sqlite: encoding files: %w", err)
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO memories (id, title, date, text, owner_email, locations, files, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		mem.ID,
		mem.Title,
		mem.Date,
		mem.Text,
		mem.OwnerEmail,
		string(locsJSON),
		string(filesJSON),
		mem.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting memory %q: %w", mem.Title, err)
	}

	return nil
}

// ListMemories returns every memory owned by the given identity. The date
// comes back exactly as the "YYYY-MM-DD" string it was stored with; internal
// bookkeeping (id, created_at) stays out of the JSON shape via struct tags.
// No explicit ORDER BY — callers must not rely on a stable order.
func (db *DB) ListMemories(ctx context.Context, owner string) ([]model.Memory, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, title, date, text, owner_email, locations, files, created_at
		 FROM memories WHERE owner_email = ?`,
		owner,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing memories: %w", err)
	}
	defer rows.Close()

	memories := []model.Memory{}
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		memories = append(memories, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating memories: %w", err)
	}

	return memories, nil
}

// GetMemory fetches the single memory matched by the composite key + owner.
func (db *DB) GetMemory(ctx context.Context, key model.MemoryKey, owner string) (*model.Memory, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT id, title, date, text, owner_email, locations, files, created_at
		 FROM memories
		 WHERE title = ? AND date = ? AND text = ? AND owner_email = ?`,
		key.Title, key.Date, key.Text, owner,
	)

	m, err := scanMemory(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("memory", memoryKeyString(key))
		}
		return nil, err
	}
	return m, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanMemory(s scanner) (*model.Memory, error) {
	var m model.Memory
	var locsJSON, filesJSON string

	err := s.Scan(
		&m.ID, &m.Title, &m.Date, &m.Text, &m.OwnerEmail,
		&locsJSON, &filesJSON, &m.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("sqlite: scanning memory row: %w", err)
	}

	if err := json.Unmarshal([]byte(locsJSON), &m.Locations); err != nil {
		return nil, fmt.Errorf("sqlite: decoding locations of memory %s: %w", m.ID, err)
	}
	if err := json.Unmarshal([]byte(filesJSON), &m.Files); err != nil {
		return nil, fmt.Errorf("sqlite: decoding files of memory %s: %w", m.ID, err)
	}

	return &m, nil
}

// UpdateMemory applies the present fields of the patch to the memory matched
// by the composite key.
//
// MODIFIED-COUNT SEMANTICS:
// The operation reports NotFound both when nothing matched and when the
// matched record would be left byte-identical — only an update that actually
// changes the document counts. A patch carrying files always changes the
// document, because every entry in an incoming file list is re-normalized
// with a fresh uploaded_at. An empty patch is a no-op failure.
//
// The read-modify-write runs inside one transaction, so a concurrent writer
// cannot interleave between the read and the write. Asset-store cleanup for
// removed file URLs is the service layer's job and has already happened by
// the time this runs.
func (db *DB) UpdateMemory(ctx context.Context, key model.MemoryKey, owner string, patch model.MemoryPatch) error {
	if patch.IsEmpty() {
		return apperror.NotFound("memory", memoryKeyString(key))
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: starting update transaction: %w", err)
	}
	defer tx.Rollback()

	cur, err := getMemoryTx(ctx, tx, key, owner)
	if err != nil {
		return err
	}

	changed := false

	title := cur.Title
	if patch.Title != nil {
		if *patch.Title != cur.Title {
			changed = true
		}
		title = *patch.Title
	}

	date := cur.Date
	if patch.Date != nil {
		if *patch.Date != cur.Date {
			changed = true
		}
		date = *patch.Date
	}

	text := cur.Text
	if patch.Text != nil {
		if *patch.Text != cur.Text {
			changed = true
		}
		text = *patch.Text
	}

	locations := cur.Locations
	if patch.Locations != nil {
		incoming := *patch.Locations
		if incoming == nil {
			incoming = []model.EmbeddedLocation{}
		}
		if !slices.Equal(cur.Locations, incoming) {
			changed = true
		}
		locations = incoming
	}

	files := cur.Files
	if patch.Files != nil {
		now := time.Now()
		normalized := make([]model.File, 0, len(*patch.Files))
		for _, in := range *patch.Files {
			normalized = append(normalized, model.NormalizeFile(in, now))
		}
		files = normalized
		changed = true // fresh uploaded_at stamps always modify the document
	}

	if !changed {
		return apperror.NotFound("memory", memoryKeyString(key))
	}

	locsJSON, err := json.Marshal(locations)
	if err != nil {
		return fmt.Errorf("sqlite: encoding locations: %w", err)
	}
	filesJSON, err := json.Marshal(files)
	if err != nil {
		return fmt.Errorf("sqlite: encoding files: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE memories SET title = ?, date = ?, text = ?, locations = ?, files = ?
		 WHERE id = ?`,
		title, date, text, string(locsJSON), string(filesJSON), cur.ID,
	); err != nil {
		return fmt.Errorf("sqlite: updating memory %s: %w", cur.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing memory update: %w", err)
	}
	return nil
}

// DeleteMemory removes the record matched by the composite key. Success means
// exactly one row went away; the caller has already drained the file list
// through the asset store.
func (db *DB) DeleteMemory(ctx context.Context, key model.MemoryKey, owner string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM memories
		 WHERE title = ? AND date = ? AND text = ? AND owner_email = ?`,
		key.Title, key.Date, key.Text, owner,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting memory %q: %w", key.Title, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("memory", memoryKeyString(key))
	}

	return nil
}

// ListMemoryFiles returns the file list of the matched memory. A missing
// memory yields an empty list, not an error.
func (db *DB) ListMemoryFiles(ctx context.Context, key model.MemoryKey, owner string) ([]model.File, error) {
	mem, err := db.GetMemory(ctx, key, owner)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return []model.File{}, nil
		}
		return nil, err
	}
	return mem.Files, nil
}

// AddMemoryFile appends a file to the matched memory's list ($push).
func (db *DB) AddMemoryFile(ctx context.Context, key model.MemoryKey, owner string, file model.File) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: starting add-file transaction: %w", err)
	}
	defer tx.Rollback()

	cur, err := getMemoryTx(ctx, tx, key, owner)
	if err != nil {
		return err
	}

	files := append(cur.Files, file)
	if err := writeFilesTx(ctx, tx, cur.ID, files); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing add-file: %w", err)
	}
	return nil
}

// RemoveMemoryFile pulls the entry with the given url from the matched
// memory's list ($pull on files.url). NotFound when the memory is absent or
// no entry carries the url.
func (db *DB) RemoveMemoryFile(ctx context.Context, key model.MemoryKey, owner string, url string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: starting remove-file transaction: %w", err)
	}
	defer tx.Rollback()

	cur, err := getMemoryTx(ctx, tx, key, owner)
	if err != nil {
		return err
	}

	remaining := make([]model.File, 0, len(cur.Files))
	found := false
	for _, f := range cur.Files {
		if f.URL == url {
			found = true
			continue
		}
		remaining = append(remaining, f)
	}
	if !found {
		return apperror.NotFound("file", url)
	}

	if err := writeFilesTx(ctx, tx, cur.ID, remaining); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing remove-file: %w", err)
	}
	return nil
}

// RenameMemoryFile sets the display name of the entry with the given url.
// The memory and the file act as one combined filter: a memory without that
// url is as absent as no memory at all. Renaming to the name the file already
// has modifies nothing and reports NotFound, per modified-count semantics.
func (db *DB) RenameMemoryFile(ctx context.Context, key model.MemoryKey, owner string, url, displayName string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: starting rename-file transaction: %w", err)
	}
	defer tx.Rollback()

	cur, err := getMemoryTx(ctx, tx, key, owner)
	if err != nil {
		return err
	}

	changed := false
	for i := range cur.Files {
		if cur.Files[i].URL == url {
			if cur.Files[i].DisplayName != displayName {
				cur.Files[i].DisplayName = displayName
				changed = true
			} else {
				// Entry exists but is already named that way.
				return apperror.NotFound("file", url)
			}
			break
		}
	}
	if !changed {
		return apperror.NotFound("file", url)
	}

	if err := writeFilesTx(ctx, tx, cur.ID, cur.Files); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing rename-file: %w", err)
	}
	return nil
}

// getMemoryTx is GetMemory inside a transaction.
func getMemoryTx(ctx context.Context, tx *sql.Tx, key model.MemoryKey, owner string) (*model.Memory, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT id, title, date, text, owner_email, locations, files, created_at
		 FROM memories
		 WHERE title = ? AND date = ? AND text = ? AND owner_email = ?`,
		key.Title, key.Date, key.Text, owner,
	)
	m, err := scanMemory(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("memory", memoryKeyString(key))
		}
		return nil, err
	}
	return m, nil
}

// writeFilesTx rewrites the files column of one memory row.
func writeFilesTx(ctx context.Context, tx *sql.Tx, id string, files []model.File) error {
	filesJSON, err := json.Marshal(files)
	if err != nil {
		return fmt.Errorf("sqlite: encoding files: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE memories SET files = ? WHERE id = ?`,
		string(filesJSON), id,
	); err != nil {
		return fmt.Errorf("sqlite: writing files of memory %s: %w", id, err)
	}
	return nil
}
