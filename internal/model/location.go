package model

import "time"

// Location is a standalone place record saved by a user.
//
// There is no client-visible surrogate key: clients address a location by the
// composite (title, latitude, longitude) plus their own identity. The internal
// ID exists only as the database primary key and is returned once from the
// create endpoint; every other operation matches on the composite.
//
// Because the composite includes two floats, both the write path and every
// lookup path must coerce latitude/longitude to float64 the same way —
// a string "48.8566" and the number 48.8566 must land on the same value or
// composite matches silently fail.
type Location struct {
	ID          string    `json:"-"           db:"id"`
	Title       string    `json:"title"       db:"title"`
	Latitude    float64   `json:"latitude"    db:"latitude"`
	Longitude   float64   `json:"longitude"   db:"longitude"`
	Description string    `json:"description" db:"description"`
	OwnerEmail  string    `json:"-"           db:"owner_email"`
	CreatedAt   time.Time `json:"-"           db:"created_at"`
}

// LocationKey is the composite natural key used to address a location.
// The owner identity is passed separately — repositories scope every match
// to it.
type LocationKey struct {
	Title     string
	Latitude  float64
	Longitude float64
}

// LocationFields is the replacement payload for a location update.
// Updates are a full replace of the mutable fields, matched by the old key.
type LocationFields struct {
	Title       string
	Latitude    float64
	Longitude   float64
	Description string
}

// EmbeddedLocation is the location shape embedded inside a memory record.
// It carries no owner and no creation timestamp — it is a value, not a
// reference to a standalone Location.
type EmbeddedLocation struct {
	Title       string  `json:"title"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Description string  `json:"description"`
}
