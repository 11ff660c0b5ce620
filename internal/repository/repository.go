package repository

import (
	"context"

	"github.com/diarioapp/diario/internal/model"
)

// UserRepository owns account records. Users are created at registration (or
// first OAuth sign-in) and never deleted.
type UserRepository interface {
	// CreateUser inserts a new user. Returns apperror.ErrConflict when the
	// email is already registered.
	CreateUser(ctx context.Context, user *model.User) error
	// GetUserByEmail returns apperror.ErrNotFound when no account exists.
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
}

// LocationRepository owns standalone location records. Every operation is
// scoped to the owner identity; records are matched by the composite
// (title, latitude, longitude) natural key, never by id.
type LocationRepository interface {
	CreateLocation(ctx context.Context, loc *model.Location) error
	ListLocations(ctx context.Context, owner string) ([]model.Location, error)
	// UpdateLocation replaces the mutable fields of the location matched by
	// oldKey. Succeeds when a record matched, even if the new values equal
	// the old ones.
	UpdateLocation(ctx context.Context, oldKey model.LocationKey, fields model.LocationFields, owner string) error
	DeleteLocation(ctx context.Context, key model.LocationKey, owner string) error
}

// MemoryRepository owns memory records and their embedded file lists.
// All lookups match the composite (title, date, text) key scoped to owner.
//
// Mutations that touch the record report apperror.ErrNotFound both when no
// record matches and when the matched record would be left unchanged — the
// caller cannot tell the two apart, mirroring the store's modified-count
// contract. Remote-asset coordination does NOT live here; the service layer
// diffs and drains file lists before calling in.
type MemoryRepository interface {
	CreateMemory(ctx context.Context, mem *model.Memory) error
	ListMemories(ctx context.Context, owner string) ([]model.Memory, error)
	GetMemory(ctx context.Context, key model.MemoryKey, owner string) (*model.Memory, error)
	// UpdateMemory applies the present fields of the patch. ErrNotFound when
	// nothing matched, nothing changed, or the patch is empty.
	UpdateMemory(ctx context.Context, key model.MemoryKey, owner string, patch model.MemoryPatch) error
	DeleteMemory(ctx context.Context, key model.MemoryKey, owner string) error

	// ListMemoryFiles returns an empty slice (not an error) when the memory
	// does not exist.
	ListMemoryFiles(ctx context.Context, key model.MemoryKey, owner string) ([]model.File, error)
	AddMemoryFile(ctx context.Context, key model.MemoryKey, owner string, file model.File) error
	// RemoveMemoryFile pulls the entry with the given url from the file
	// list. ErrNotFound when the memory or the url is absent.
	RemoveMemoryFile(ctx context.Context, key model.MemoryKey, owner string, url string) error
	// RenameMemoryFile sets the display name of the entry with the given
	// url. The memory and the file are matched as one combined filter.
	RenameMemoryFile(ctx context.Context, key model.MemoryKey, owner string, url, displayName string) error
}
