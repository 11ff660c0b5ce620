package handler

import (
	"encoding/json"
	"net/http"

	"github.com/diarioapp/diario/internal/apperror"
	"github.com/diarioapp/diario/internal/model"
	"github.com/diarioapp/diario/internal/service"
)

// MemoryHandler exposes the diary-entry endpoints and the file sub-resource.
//
// Memories are addressed by their composite key in the path:
//
//	/api/memories/{title}/{date}/{text}
//
// All three segments arrive percent-encoded (titles and text contain spaces
// and worse). The mutating endpoints return an extra failed_assets list when
// remote asset cleanup could not be confirmed — the primary operation still
// succeeded, the client may retry or ignore.
type MemoryHandler struct {
	memories *service.MemoryService
}

// NewMemoryHandler creates a MemoryHandler.
func NewMemoryHandler(memories *service.MemoryService) *MemoryHandler {
	return &MemoryHandler{memories: memories}
}

// memoryKeyFromPath assembles the composite key from the URL segments.
func memoryKeyFromPath(r *http.Request) model.MemoryKey {
	return model.MemoryKey{
		Title: pathParam(r, "title"),
		Date:  pathParam(r, "date"),
		Text:  pathParam(r, "text"),
	}
}

// mutationResponse is the success body of the endpoints that may leave
// orphaned remote assets behind.
type mutationResponse struct {
	Message      string   `json:"message"`
	FailedAssets []string `json:"failed_assets,omitempty"`
}

// HandleList returns every memory of the authenticated user.
//
// HTTP: GET /api/memories
func (h *MemoryHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	owner, err := identity(r)
	if err != nil {
		writeError(w, err)
		return
	}

	memories, err := h.memories.List(r.Context(), owner)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, memories)
}

// HandleCreate stores a new memory.
//
// HTTP: POST /api/memories {title, date, text, locations, files}
// 201 with the internal id — the only time it is ever exposed.
func (h *MemoryHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	owner, err := identity(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req struct {
		Title     string            `json:"title"`
		Date      string            `json:"date"`
		Text      string            `json:"text"`
		Locations []locationPayload `json:"locations"`
		Files     []model.FileInput `json:"files"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	mem := &model.Memory{
		Title: req.Title,
		Date:  req.Date,
		Text:  req.Text,
	}
	for _, loc := range req.Locations {
		mem.Locations = append(mem.Locations, loc.toEmbedded())
	}

	created, err := h.memories.Create(r.Context(), owner, mem, req.Files)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"memory_id": created.ID})
}

// HandleUpdate applies a partial update to the memory addressed by the path.
//
// HTTP: PUT /api/memories/{title}/{date}/{text}
// Body: any subset of {title, date, text, locations, files}. A files list
// replaces the stored one; assets behind dropped URLs are destroyed
// best-effort before the record changes.
func (h *MemoryHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	owner, err := identity(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req struct {
		Title     *string            `json:"title"`
		Date      *string            `json:"date"`
		Text      *string            `json:"text"`
		Locations *[]locationPayload `json:"locations"`
		Files     *[]model.FileInput `json:"files"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	patch := model.MemoryPatch{
		Title: req.Title,
		Date:  req.Date,
		Text:  req.Text,
		Files: req.Files,
	}
	if req.Locations != nil {
		embedded := make([]model.EmbeddedLocation, 0, len(*req.Locations))
		for _, loc := range *req.Locations {
			embedded = append(embedded, loc.toEmbedded())
		}
		patch.Locations = &embedded
	}

	cleanup, err := h.memories.Update(r.Context(), owner, memoryKeyFromPath(r), patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mutationResponse{
		Message:      "memory updated",
		FailedAssets: cleanup.Failed,
	})
}

// HandleDelete removes the memory addressed by the path along with its
// remote assets.
//
// HTTP: DELETE /api/memories/{title}/{date}/{text}
func (h *MemoryHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	owner, err := identity(r)
	if err != nil {
		writeError(w, err)
		return
	}

	cleanup, err := h.memories.Delete(r.Context(), owner, memoryKeyFromPath(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mutationResponse{
		Message:      "memory deleted",
		FailedAssets: cleanup.Failed,
	})
}

// HandleListFiles returns the file list of the memory addressed by the path.
//
// HTTP: GET /api/memories/{title}/{date}/{text}/files
// A missing memory yields an empty list, not a 404 — historical behavior
// clients depend on.
func (h *MemoryHandler) HandleListFiles(w http.ResponseWriter, r *http.Request) {
	owner, err := identity(r)
	if err != nil {
		writeError(w, err)
		return
	}

	files, err := h.memories.ListFiles(r.Context(), owner, memoryKeyFromPath(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]model.File{"files": files})
}

// HandleAddFile appends one uploaded file to the memory's list.
//
// HTTP: POST /api/memories/{title}/{date}/{text}/files
// Body: {url, display_name, original_name, size, type} — everything but the
// url may be omitted and defaults.
func (h *MemoryHandler) HandleAddFile(w http.ResponseWriter, r *http.Request) {
	owner, err := identity(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req model.FileInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	file, err := h.memories.AddFile(r.Context(), owner, memoryKeyFromPath(r), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, file)
}

// HandleRemoveFile pulls one file from the memory's list and destroys its
// remote asset.
//
// HTTP: DELETE /api/memories/{title}/{date}/{text}/files?url=...
// The URL rides in the query string — it is itself a URL and would fight the
// path syntax.
func (h *MemoryHandler) HandleRemoveFile(w http.ResponseWriter, r *http.Request) {
	owner, err := identity(r)
	if err != nil {
		writeError(w, err)
		return
	}

	cleanup, err := h.memories.RemoveFile(r.Context(), owner, memoryKeyFromPath(r), r.URL.Query().Get("url"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mutationResponse{
		Message:      "file removed",
		FailedAssets: cleanup.Failed,
	})
}

// HandleRenameFile sets the display name of one file in the memory's list.
//
// HTTP: PUT /api/memories/{title}/{date}/{text}/files/display-name
// Body: {url, display_name} — the name must be non-empty.
func (h *MemoryHandler) HandleRenameFile(w http.ResponseWriter, r *http.Request) {
	owner, err := identity(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req struct {
		URL         string `json:"url"`
		DisplayName string `json:"display_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	if err := h.memories.RenameFile(r.Context(), owner, memoryKeyFromPath(r), req.URL, req.DisplayName); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "file renamed"})
}
