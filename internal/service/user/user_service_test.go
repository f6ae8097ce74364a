package user

import (
	"context"
	"errors"
	"testing"

	"chat-relay/internal/apperr"
	"chat-relay/internal/auth"
	"chat-relay/internal/repository/db"
	"chat-relay/internal/testutil"
)

func strPtr(s string) *string { return &s }

func TestCreateUser(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
		role     string
		dbErr    error
		wantRole string
		wantErr  error
	}{
		{name: "default role", username: "bob", password: "pass", wantRole: db.RoleUser},
		{name: "admin role", username: "carol", password: "secret", role: db.RoleAdmin, wantRole: db.RoleAdmin},
		{name: "short username", username: "b", password: "pass", wantErr: apperr.ErrValidation},
		{name: "short password", username: "bob", password: "abc", wantErr: apperr.ErrValidation},
		{name: "bad role", username: "bob", password: "pass", role: "owner", wantErr: apperr.ErrValidation},
		{name: "exists", username: "bob", password: "pass", dbErr: apperr.ErrConflict, wantErr: apperr.ErrConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockDB := &testutil.MockDatabase{
				CreateUserFunc: func(_ context.Context, u db.User) (*db.User, error) {
					if tt.dbErr != nil {
						return nil, tt.dbErr
					}
					return &u, nil
				},
			}
			service := NewUserService(mockDB, auth.Passwords{})

			got, err := service.CreateUser(context.Background(), tt.username, tt.password, tt.role)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("CreateUser() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("CreateUser() error = %v", err)
			}
			if got.Role != tt.wantRole {
				t.Errorf("Role = %q, want %q", got.Role, tt.wantRole)
			}
			if got.Password != tt.password {
				t.Errorf("Password = %q, plaintext mode should store as given", got.Password)
			}
		})
	}
}

func TestCreateUser_HashesWhenEnabled(t *testing.T) {
	var stored db.User
	mockDB := &testutil.MockDatabase{
		CreateUserFunc: func(_ context.Context, u db.User) (*db.User, error) {
			stored = u
			return &u, nil
		},
	}
	service := NewUserService(mockDB, auth.Passwords{Hash: true, Cost: 4})

	if _, err := service.CreateUser(context.Background(), "bob", "pass", ""); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if stored.Password == "pass" {
		t.Fatal("password stored in plaintext with hashing enabled")
	}
	if !auth.VerifyPassword(stored.Password, "pass") {
		t.Error("stored hash does not verify")
	}
}

func TestUpdateUser(t *testing.T) {
	var gotUpdate db.UserUpdate
	mockDB := &testutil.MockDatabase{
		UpdateUserFunc: func(_ context.Context, username string, upd db.UserUpdate) (*db.User, error) {
			if username == "ghost" {
				return nil, apperr.ErrNotFound
			}
			gotUpdate = upd
			u := db.User{Username: username, Role: db.RoleUser}
			if upd.Role != nil {
				u.Role = *upd.Role
			}
			return &u, nil
		},
	}
	service := NewUserService(mockDB, auth.Passwords{})
	ctx := context.Background()

	got, err := service.UpdateUser(ctx, "bob", strPtr("newpass"), strPtr(db.RoleAdmin))
	if err != nil {
		t.Fatalf("UpdateUser() error = %v", err)
	}
	if got.Role != db.RoleAdmin || gotUpdate.Password == nil || *gotUpdate.Password != "newpass" {
		t.Errorf("UpdateUser() = %+v, update = %+v", got, gotUpdate)
	}

	if _, err := service.UpdateUser(ctx, "ghost", strPtr("newpass"), nil); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("UpdateUser(ghost) error = %v, want ErrNotFound", err)
	}
	if _, err := service.UpdateUser(ctx, "bob", strPtr("abc"), nil); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("short password error = %v, want ErrValidation", err)
	}
}

func TestUpdateUser_AdminRoleProtected(t *testing.T) {
	mockDB := &testutil.MockDatabase{
		UpdateUserFunc: func(_ context.Context, username string, upd db.UserUpdate) (*db.User, error) {
			return &db.User{Username: username, Role: db.RoleAdmin}, nil
		},
	}
	service := NewUserService(mockDB, auth.Passwords{})
	ctx := context.Background()

	if _, err := service.UpdateUser(ctx, "admin", nil, strPtr(db.RoleUser)); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("demoting admin error = %v, want ErrValidation", err)
	}
	if _, err := service.UpdateUser(ctx, "admin", strPtr("newpass"), nil); err != nil {
		t.Errorf("changing admin password error = %v", err)
	}
	if _, err := service.UpdateUser(ctx, "admin", nil, strPtr(db.RoleAdmin)); err != nil {
		t.Errorf("no-op admin role error = %v", err)
	}
}

func TestDeleteUser(t *testing.T) {
	deleted := ""
	mockDB := &testutil.MockDatabase{
		DeleteUserFunc: func(_ context.Context, username string) error {
			if username == "ghost" {
				return apperr.ErrNotFound
			}
			deleted = username
			return nil
		},
	}
	service := NewUserService(mockDB, auth.Passwords{})
	ctx := context.Background()

	if err := service.DeleteUser(ctx, "admin"); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("DeleteUser(admin) error = %v, want ErrValidation", err)
	}
	if deleted != "" {
		t.Error("admin account reached the database delete")
	}
	if err := service.DeleteUser(ctx, "ghost"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("DeleteUser(ghost) error = %v, want ErrNotFound", err)
	}
	if err := service.DeleteUser(ctx, "bob"); err != nil || deleted != "bob" {
		t.Errorf("DeleteUser(bob) error = %v, deleted = %q", err, deleted)
	}
}
