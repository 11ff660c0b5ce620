package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/diarioapp/diario/internal/apperror"
	"github.com/diarioapp/diario/internal/auth"
	"github.com/diarioapp/diario/internal/model"
	"github.com/diarioapp/diario/internal/service"
)

// coord is a latitude or longitude that clients may send either as a JSON
// number or as a quoted string ("48.8566"). Both forms must land on the same
// float64 — the composite key matching depends on it.
type coord float64

func (c *coord) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	*c = coord(f)
	return nil
}

// locationPayload is the wire shape of a location, shared by the standalone
// location endpoints and the embedded lists inside memories.
type locationPayload struct {
	Title       string `json:"title"`
	Latitude    coord  `json:"latitude"`
	Longitude   coord  `json:"longitude"`
	Description string `json:"description"`
}

func (p locationPayload) toFields() model.LocationFields {
	return model.LocationFields{
		Title:       p.Title,
		Latitude:    float64(p.Latitude),
		Longitude:   float64(p.Longitude),
		Description: p.Description,
	}
}

func (p locationPayload) toEmbedded() model.EmbeddedLocation {
	return model.EmbeddedLocation{
		Title:       p.Title,
		Latitude:    float64(p.Latitude),
		Longitude:   float64(p.Longitude),
		Description: p.Description,
	}
}

// identity extracts the authenticated owner email from the request context.
// Handlers below only run behind RequireAuth, so the fallback is defensive.
func identity(r *http.Request) (string, error) {
	email, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		return "", apperror.Unauthorized("not authenticated")
	}
	return email, nil
}

// pathParam returns the decoded value of a URL parameter. Composite-key
// segments (titles, free text) arrive percent-encoded.
func pathParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}

// LocationHandler exposes the standalone saved-places endpoints.
type LocationHandler struct {
	locations *service.LocationService
}

// NewLocationHandler creates a LocationHandler.
func NewLocationHandler(locations *service.LocationService) *LocationHandler {
	return &LocationHandler{locations: locations}
}

// HandleList returns every location of the authenticated user.
//
// HTTP: GET /api/locations
func (h *LocationHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	owner, err := identity(r)
	if err != nil {
		writeError(w, err)
		return
	}

	locs, err := h.locations.List(r.Context(), owner)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, locs)
}

// HandleCreate stores a new location.
//
// HTTP: POST /api/locations {title, latitude, longitude, description}
// 201 with the internal id — the only time it is ever exposed.
func (h *LocationHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	owner, err := identity(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req locationPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	loc, err := h.locations.Create(r.Context(), owner, req.toFields())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"location_id": loc.ID})
}

// HandleUpdate replaces the location matched by the old composite key.
//
// HTTP: PUT /api/locations {old: {title, latitude, longitude}, updated: {...}}
// The old key rides in the body because a key of three URL segments would be
// replaced by the new one anyway.
func (h *LocationHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	owner, err := identity(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req struct {
		Old     locationPayload `json:"old"`
		Updated locationPayload `json:"updated"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	oldKey := model.LocationKey{
		Title:     req.Old.Title,
		Latitude:  float64(req.Old.Latitude),
		Longitude: float64(req.Old.Longitude),
	}
	if err := h.locations.Update(r.Context(), owner, oldKey, req.Updated.toFields()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "location updated"})
}

// HandleDelete removes the location addressed by the composite key in the
// path.
//
// HTTP: DELETE /api/locations/{title}/{lat}/{lon}
func (h *LocationHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	owner, err := identity(r)
	if err != nil {
		writeError(w, err)
		return
	}

	lat, err := strconv.ParseFloat(pathParam(r, "lat"), 64)
	if err != nil {
		writeError(w, apperror.ValidationFailed("latitude", "latitude must be a number"))
		return
	}
	lon, err := strconv.ParseFloat(pathParam(r, "lon"), 64)
	if err != nil {
		writeError(w, apperror.ValidationFailed("longitude", "longitude must be a number"))
		return
	}

	key := model.LocationKey{
		Title:     pathParam(r, "title"),
		Latitude:  lat,
		Longitude: lon,
	}
	if err := h.locations.Delete(r.Context(), owner, key); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "location deleted"})
}
