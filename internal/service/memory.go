package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/diarioapp/diario/internal/apperror"
	"github.com/diarioapp/diario/internal/asset"
	"github.com/diarioapp/diario/internal/model"
	"github.com/diarioapp/diario/internal/repository"
)

// dateLayout is the only accepted calendar-date form. The date is stored and
// compared as this exact string, so anything looser ("2024-1-5") would create
// records no later lookup can address.
const dateLayout = "2006-01-02"

// MemoryService is the business logic for diary entries and their attached
// files. This is where the two stores meet:
//
//	MemoryHandler (HTTP) → MemoryService → MemoryRepository (DB)
//	                                     ↘ asset.Deleter (remote media store)
//
// KEY RESPONSIBILITIES:
//   - Validate memory payloads (title/date/text, date format)
//   - Keep the embedded file list and the remote asset store consistent:
//     every file reference that leaves a record gets its asset destroyed
//   - Order the two effects correctly per operation (see each method)
//
// ASSET CLEANUP IS BEST-EFFORT:
// Destroying a remote asset never blocks or fails the record mutation that
// triggered it. Failures are collected into an AssetCleanup and reported
// alongside the primary outcome; an orphaned asset costs storage, a blocked
// diary costs the user their entry.
type MemoryService struct {
	memories repository.MemoryRepository
	assets   asset.Deleter
	logger   *slog.Logger
	now      func() time.Time
}

// NewMemoryService creates a MemoryService.
func NewMemoryService(memories repository.MemoryRepository, assets asset.Deleter, logger *slog.Logger) *MemoryService {
	return &MemoryService{
		memories: memories,
		assets:   assets,
		logger:   logger,
		now:      time.Now,
	}
}

// AssetCleanup reports the outcome of a best-effort fan-out against the
// remote asset store. Failed holds the file URLs whose assets could not be
// confirmed destroyed; an empty list means everything went through.
type AssetCleanup struct {
	Failed []string
}

// Ok reports whether every asset deletion succeeded.
func (c AssetCleanup) Ok() bool {
	return len(c.Failed) == 0
}

// validateKeyFields checks the three components of the memory composite key.
func validateKeyFields(title, date, text string) error {
	if title == "" {
		return apperror.ValidationFailed("title", "title is required")
	}
	if date == "" {
		return apperror.ValidationFailed("date", "date is required")
	}
	if _, err := time.Parse(dateLayout, date); err != nil {
		return apperror.ValidationFailed("date", "date must be in YYYY-MM-DD format")
	}
	if text == "" {
		return apperror.ValidationFailed("text", "text is required")
	}
	return nil
}

// Create validates and stores a new memory for the given owner. Attached
// files are normalized (display-name defaulting, upload timestamp) on the
// way in. Returns the stored record.
func (s *MemoryService) Create(ctx context.Context, owner string, mem *model.Memory, files []model.FileInput) (*model.Memory, error) {
	if err := validateKeyFields(mem.Title, mem.Date, mem.Text); err != nil {
		return nil, err
	}

	now := s.now()
	mem.OwnerEmail = owner
	mem.Files = make([]model.File, 0, len(files))
	for _, in := range files {
		mem.Files = append(mem.Files, model.NormalizeFile(in, now))
	}

	if err := s.memories.CreateMemory(ctx, mem); err != nil {
		return nil, err
	}

	s.logger.Info("memory created",
		slog.String("owner", owner),
		slog.String("title", mem.Title),
		slog.String("date", mem.Date),
	)
	return mem, nil
}

// List returns every memory owned by the given identity.
func (s *MemoryService) List(ctx context.Context, owner string) ([]model.Memory, error) {
	return s.memories.ListMemories(ctx, owner)
}

// Get returns the memory matched by the composite key.
func (s *MemoryService) Get(ctx context.Context, owner string, key model.MemoryKey) (*model.Memory, error) {
	return s.memories.GetMemory(ctx, key, owner)
}

// Update applies a partial update to the memory matched by key.
//
// When the patch carries a file list, the incoming list REPLACES the current
// one — so every URL present now but absent from the patch is a file the
// client removed, and its remote asset must go. The diff-and-destroy runs
// BEFORE the record update: if the process dies between the two, the worst
// case is a dangling URL in the record (visible, repairable), never an
// invisible orphaned asset.
//
// The returned AssetCleanup lists assets that could not be destroyed. The
// record update proceeds regardless.
func (s *MemoryService) Update(ctx context.Context, owner string, key model.MemoryKey, patch model.MemoryPatch) (AssetCleanup, error) {
	var cleanup AssetCleanup

	if patch.IsEmpty() {
		return cleanup, apperror.NotFound("memory", key.Title)
	}
	if patch.Date != nil {
		if _, err := time.Parse(dateLayout, *patch.Date); err != nil {
			return cleanup, apperror.ValidationFailed("date", "date must be in YYYY-MM-DD format")
		}
	}

	if patch.Files != nil {
		current, err := s.memories.GetMemory(ctx, key, owner)
		if err != nil {
			return cleanup, err
		}

		keep := make(map[string]bool, len(*patch.Files))
		for _, in := range *patch.Files {
			keep[in.URL] = true
		}
		for _, f := range current.Files {
			if keep[f.URL] {
				continue
			}
			cleanup.Failed = append(cleanup.Failed, s.destroyAsset(ctx, f.URL)...)
		}
	}

	if err := s.memories.UpdateMemory(ctx, key, owner, patch); err != nil {
		return cleanup, err
	}
	return cleanup, nil
}

// Delete removes a memory and drains its attached files from the remote
// store. The files go first, then the record; the operation's outcome is the
// record deletion's outcome alone — asset failures only show up in the
// AssetCleanup.
func (s *MemoryService) Delete(ctx context.Context, owner string, key model.MemoryKey) (AssetCleanup, error) {
	var cleanup AssetCleanup

	// ListMemoryFiles returns an empty list for a missing memory, so a
	// delete of a nonexistent record drains nothing and fails cleanly below.
	files, err := s.memories.ListMemoryFiles(ctx, key, owner)
	if err != nil {
		return cleanup, err
	}
	for _, f := range files {
		cleanup.Failed = append(cleanup.Failed, s.destroyAsset(ctx, f.URL)...)
	}

	if err := s.memories.DeleteMemory(ctx, key, owner); err != nil {
		return cleanup, err
	}

	s.logger.Info("memory deleted",
		slog.String("owner", owner),
		slog.String("title", key.Title),
		slog.Int("filesDrained", len(files)),
	)
	return cleanup, nil
}

// ListFiles returns the file list of the memory matched by key. A missing
// memory yields an empty list, not an error.
func (s *MemoryService) ListFiles(ctx context.Context, owner string, key model.MemoryKey) ([]model.File, error) {
	return s.memories.ListMemoryFiles(ctx, key, owner)
}

// AddFile normalizes and appends one file to the memory's list. The URL is
// the file's identity within the list and is required; everything else
// defaults.
func (s *MemoryService) AddFile(ctx context.Context, owner string, key model.MemoryKey, in model.FileInput) (model.File, error) {
	if in.URL == "" {
		return model.File{}, apperror.ValidationFailed("url", "file url is required")
	}

	file := model.NormalizeFile(in, s.now())
	if err := s.memories.AddMemoryFile(ctx, key, owner, file); err != nil {
		return model.File{}, err
	}
	return file, nil
}

// RemoveFile pulls one file reference from the memory's list, then destroys
// the asset behind it.
//
// ORDER MATTERS: the database pull comes first. If the URL was never in the
// list (or the memory doesn't exist) the pull reports not-found and the
// remote store is never touched — an attacker cannot use someone else's
// memory key to destroy arbitrary assets. Only a confirmed pull triggers the
// destroy, and that destroy is best-effort as always.
func (s *MemoryService) RemoveFile(ctx context.Context, owner string, key model.MemoryKey, url string) (AssetCleanup, error) {
	var cleanup AssetCleanup

	if url == "" {
		return cleanup, apperror.ValidationFailed("url", "file url is required")
	}

	if err := s.memories.RemoveMemoryFile(ctx, key, owner, url); err != nil {
		return cleanup, err
	}

	cleanup.Failed = append(cleanup.Failed, s.destroyAsset(ctx, url)...)
	return cleanup, nil
}

// RenameFile sets the display name of the file with the given URL. The new
// name must be non-empty — the defaulting chain only applies at upload time.
// Renaming to the name a file already has reports not-found, an artifact of
// the store's modified-count contract that clients have learned to live with.
func (s *MemoryService) RenameFile(ctx context.Context, owner string, key model.MemoryKey, url, displayName string) error {
	if url == "" {
		return apperror.ValidationFailed("url", "file url is required")
	}
	if displayName == "" {
		return apperror.ValidationFailed("display_name", "display name is required")
	}
	return s.memories.RenameMemoryFile(ctx, key, owner, url, displayName)
}

// destroyAsset deletes one remote asset, best-effort. Returns the URL as a
// one-element slice on failure so callers can append straight into an
// AssetCleanup.
func (s *MemoryService) destroyAsset(ctx context.Context, url string) []string {
	if err := s.assets.Delete(ctx, url); err != nil {
		s.logger.Warn("asset cleanup failed",
			slog.String("url", url),
			slog.String("error", err.Error()),
		)
		return []string{url}
	}
	return nil
}
