package service

import (
	"context"
	"errors"
	"testing"

	"github.com/diarioapp/diario/internal/apperror"
	"github.com/diarioapp/diario/internal/model"
	"github.com/rs/xid"
)

// fakeLocationRepo is an in-memory repository.LocationRepository.
type fakeLocationRepo struct {
	locations []model.Location
}

func (f *fakeLocationRepo) CreateLocation(ctx context.Context, loc *model.Location) error {
	loc.ID = xid.New().String()
	f.locations = append(f.locations, *loc)
	return nil
}

func (f *fakeLocationRepo) ListLocations(ctx context.Context, owner string) ([]model.Location, error) {
	out := []model.Location{}
	for _, l := range f.locations {
		if l.OwnerEmail == owner {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeLocationRepo) UpdateLocation(ctx context.Context, oldKey model.LocationKey, fields model.LocationFields, owner string) error {
	for i, l := range f.locations {
		if l.OwnerEmail == owner && l.Title == oldKey.Title &&
			l.Latitude == oldKey.Latitude && l.Longitude == oldKey.Longitude {
			f.locations[i].Title = fields.Title
			f.locations[i].Latitude = fields.Latitude
			f.locations[i].Longitude = fields.Longitude
			f.locations[i].Description = fields.Description
			return nil
		}
	}
	return apperror.NotFound("location", oldKey.Title)
}

func (f *fakeLocationRepo) DeleteLocation(ctx context.Context, key model.LocationKey, owner string) error {
	for i, l := range f.locations {
		if l.OwnerEmail == owner && l.Title == key.Title &&
			l.Latitude == key.Latitude && l.Longitude == key.Longitude {
			f.locations = append(f.locations[:i], f.locations[i+1:]...)
			return nil
		}
	}
	return apperror.NotFound("location", key.Title)
}

func TestLocationCreate_RequiresTitle(t *testing.T) {
	svc := NewLocationService(&fakeLocationRepo{}, testLogger())

	_, err := svc.Create(context.Background(), testOwner, model.LocationFields{Latitude: 1, Longitude: 2})
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("Create() without title: error = %v, want ErrValidation", err)
	}
}

func TestLocationCreate_SetsOwnerAndID(t *testing.T) {
	repo := &fakeLocationRepo{}
	svc := NewLocationService(repo, testLogger())

	loc, err := svc.Create(context.Background(), testOwner, model.LocationFields{
		Title: "Colosseo", Latitude: 41.8902, Longitude: 12.4922,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if loc.ID == "" {
		t.Error("Create() returned empty ID")
	}
	if loc.OwnerEmail != testOwner {
		t.Errorf("OwnerEmail = %q, want %q", loc.OwnerEmail, testOwner)
	}
}

func TestLocationUpdate_RequiresTitle(t *testing.T) {
	svc := NewLocationService(&fakeLocationRepo{}, testLogger())

	err := svc.Update(context.Background(), testOwner,
		model.LocationKey{Title: "Colosseo"}, model.LocationFields{})
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("Update() without title: error = %v, want ErrValidation", err)
	}
}

func TestLocationUpdate_KeyMoves(t *testing.T) {
	repo := &fakeLocationRepo{}
	svc := NewLocationService(repo, testLogger())

	if _, err := svc.Create(context.Background(), testOwner, model.LocationFields{
		Title: "Colosseo", Latitude: 41.8902, Longitude: 12.4922,
	}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	oldKey := model.LocationKey{Title: "Colosseo", Latitude: 41.8902, Longitude: 12.4922}
	if err := svc.Update(context.Background(), testOwner, oldKey, model.LocationFields{
		Title: "Anfiteatro Flavio", Latitude: 41.8902, Longitude: 12.4922,
	}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	// The old key no longer matches.
	err := svc.Delete(context.Background(), testOwner, oldKey)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Delete() by old key: error = %v, want ErrNotFound", err)
	}
}
