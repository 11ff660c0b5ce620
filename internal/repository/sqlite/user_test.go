package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/diarioapp/diario/internal/apperror"
	"github.com/diarioapp/diario/internal/model"
)

func TestCreateUserAndGetByEmail(t *testing.T) {
	db := newTestDB(t)

	user := &model.User{
		Email:        "mario@example.com",
		Name:         "Mario",
		PasswordHash: "$2a$12$fakehash",
	}
	if err := db.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if user.ID == "" {
		t.Error("CreateUser() did not set user.ID")
	}

	got, err := db.GetUserByEmail(context.Background(), "mario@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail() error = %v", err)
	}
	if got.Name != "Mario" || got.PasswordHash != "$2a$12$fakehash" {
		t.Errorf("got = %+v", got)
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	db := newTestDB(t)

	first := &model.User{Email: "mario@example.com", Name: "Mario"}
	if err := db.CreateUser(context.Background(), first); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	second := &model.User{Email: "mario@example.com", Name: "Impostor"}
	err := db.CreateUser(context.Background(), second)
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("duplicate CreateUser() error = %v, want ErrConflict", err)
	}
}

func TestGetUserByEmail_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetUserByEmail(context.Background(), "nobody@example.com")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetUserByEmail() error = %v, want ErrNotFound", err)
	}
}
