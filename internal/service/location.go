package service

import (
	"context"
	"log/slog"

	"github.com/diarioapp/diario/internal/apperror"
	"github.com/diarioapp/diario/internal/model"
	"github.com/diarioapp/diario/internal/repository"
)

// LocationService is the business logic for standalone saved places.
//
// Locations have none of the memory subsystem's remote-asset coupling, so
// this service is thin: validate, scope to the owner, delegate. The
// interesting contract it preserves is that updates are matched-count
// semantics — replacing a location with identical values still succeeds,
// unlike a no-op memory update.
type LocationService struct {
	locations repository.LocationRepository
	logger    *slog.Logger
}

// NewLocationService creates a LocationService.
func NewLocationService(locations repository.LocationRepository, logger *slog.Logger) *LocationService {
	return &LocationService{
		locations: locations,
		logger:    logger,
	}
}

// Create validates and stores a new location for the given owner.
// Returns the stored record — the one place the internal id leaves the
// backend, so the client can confirm the write.
func (s *LocationService) Create(ctx context.Context, owner string, fields model.LocationFields) (*model.Location, error) {
	if fields.Title == "" {
		return nil, apperror.ValidationFailed("title", "title is required")
	}

	loc := &model.Location{
		Title:       fields.Title,
		Latitude:    fields.Latitude,
		Longitude:   fields.Longitude,
		Description: fields.Description,
		OwnerEmail:  owner,
	}
	if err := s.locations.CreateLocation(ctx, loc); err != nil {
		return nil, err
	}

	s.logger.Info("location created",
		slog.String("owner", owner),
		slog.String("title", loc.Title),
	)
	return loc, nil
}

// List returns every location owned by the given identity. An owner with no
// locations gets an empty slice, not nil.
func (s *LocationService) List(ctx context.Context, owner string) ([]model.Location, error) {
	return s.locations.ListLocations(ctx, owner)
}

// Update replaces the location matched by oldKey with the given fields.
// The key may change — the client addresses the record by its new composite
// afterwards.
func (s *LocationService) Update(ctx context.Context, owner string, oldKey model.LocationKey, fields model.LocationFields) error {
	if fields.Title == "" {
		return apperror.ValidationFailed("title", "title is required")
	}
	return s.locations.UpdateLocation(ctx, oldKey, fields, owner)
}

// Delete removes the location matched by the composite key.
func (s *LocationService) Delete(ctx context.Context, owner string, key model.LocationKey) error {
	return s.locations.DeleteLocation(ctx, key, owner)
}
