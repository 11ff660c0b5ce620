package model

import "time"

// DefaultFileName is the display name given to an attached file when the
// upload supplied neither a display name nor an original filename. The
// Italian sentinel ("unnamed file") is part of the stored data contract —
// existing records contain it, so it must not be translated.
const DefaultFileName = "File senza nome"

// Memory is a diary entry: a titled, dated piece of text with embedded
// locations and attached files.
//
// Clients address a memory by the composite (title, date, text) plus their
// identity — no surrogate id is ever issued to them. Editing title, date, or
// text therefore changes the key a client must use afterwards. That fragility
// is deliberate, kept for compatibility with existing clients; the internal
// xid only serves as the row's primary key.
//
// Date is kept as its "YYYY-MM-DD" string form. It is validated on the way in
// and must round-trip byte-identical on the way out; a time.Time would invite
// timezone drift for what is a plain calendar date.
type Memory struct {
	ID         string             `json:"-"         db:"id"`
	Title      string             `json:"title"     db:"title"`
	Date       string             `json:"date"      db:"date"`
	Text       string             `json:"text"      db:"text"`
	OwnerEmail string             `json:"-"         db:"owner_email"`
	Locations  []EmbeddedLocation `json:"locations" db:"locations"`
	Files      []File             `json:"files"     db:"files"`
	CreatedAt  time.Time          `json:"-"         db:"created_at"`
}

// File is a media attachment embedded in a memory's file list. The URL is the
// asset's address in the remote store and acts as the unique key within the
// owning memory's list (rename and remove match on it). Uniqueness across
// memories is not required.
type File struct {
	URL          string    `json:"url"`
	DisplayName  string    `json:"display_name"`
	OriginalName string    `json:"original_name"`
	Size         int64     `json:"size"`
	Type         string    `json:"type"`
	UploadedAt   time.Time `json:"uploaded_at"`
}

// FileInput is the client-supplied shape of a file attachment before
// normalization. Empty optional fields fall back per NormalizeFile.
type FileInput struct {
	URL          string `json:"url"`
	DisplayName  string `json:"display_name"`
	OriginalName string `json:"original_name"`
	Size         int64  `json:"size"`
	Type         string `json:"type"`
}

// NormalizeFile converts a FileInput to the stored File shape.
// Defaulting chain: display_name ← original_name ← DefaultFileName.
// UploadedAt is stamped here, so re-submitting a file list refreshes every
// entry's timestamp (the store's historical behavior).
func NormalizeFile(in FileInput, now time.Time) File {
	display := in.DisplayName
	if display == "" {
		if in.OriginalName != "" {
			display = in.OriginalName
		} else {
			display = DefaultFileName
		}
	}
	return File{
		URL:          in.URL,
		DisplayName:  display,
		OriginalName: in.OriginalName,
		Size:         in.Size,
		Type:         in.Type,
		UploadedAt:   now,
	}
}

// MemoryKey is the composite natural key used to address a memory.
type MemoryKey struct {
	Title string
	Date  string
	Text  string
}

// MemoryPatch is a partial update to a memory. Each field is wrapped in a
// pointer as an explicit presence marker: nil means "leave unchanged", a
// non-nil pointer (even to an empty slice) means "replace". This is what lets
// a files update distinguish "clear the list" from "don't touch the list".
type MemoryPatch struct {
	Title     *string             `json:"title"`
	Date      *string             `json:"date"`
	Text      *string             `json:"text"`
	Locations *[]EmbeddedLocation `json:"locations"`
	Files     *[]FileInput        `json:"files"`
}

// IsEmpty reports whether the patch carries no fields at all.
// An empty patch is a no-op and the update is reported as not applied.
func (p MemoryPatch) IsEmpty() bool {
	return p.Title == nil && p.Date == nil && p.Text == nil &&
		p.Locations == nil && p.Files == nil
}
