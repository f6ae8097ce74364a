package user

import (
	"context"
	"fmt"

	"chat-relay/internal/apperr"
	"chat-relay/internal/auth"
	"chat-relay/internal/logger"
	"chat-relay/internal/repository/db"
	"chat-relay/pkg/validation"

	"github.com/sirupsen/logrus"
)

// UserService handles account administration
type UserService struct {
	db        db.Database
	passwords auth.Passwords
	validator *validation.AuthRequestValidator
}

// NewUserService creates a new UserService
func NewUserService(database db.Database, passwords auth.Passwords) *UserService {
	return &UserService{
		db:        database,
		passwords: passwords,
		validator: validation.NewAuthRequestValidator(),
	}
}

// ListUsers returns every account
func (s *UserService) ListUsers(ctx context.Context) ([]db.User, error) {
	users, err := s.db.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// CreateUser adds an account; role defaults to user
func (s *UserService) CreateUser(ctx context.Context, username, password, role string) (*db.User, error) {
	if err := s.validator.ValidateCreateUserRequest(username, password, role); err != nil {
		return nil, apperr.Validation("%s", err.Error())
	}
	if role == "" {
		role = db.RoleUser
	}

	stored, err := s.passwords.Prepare(password)
	if err != nil {
		return nil, err
	}

	user, err := s.db.CreateUser(ctx, db.User{Username: username, Password: stored, Role: role})
	if err != nil {
		return nil, err
	}

	logger.Log.WithFields(logrus.Fields{"username": username, "role": role}).Info("Created user")
	return user, nil
}

// UpdateUser changes password and/or role. The admin account keeps its role.
func (s *UserService) UpdateUser(ctx context.Context, username string, password, role *string) (*db.User, error) {
	if err := s.validator.ValidateUpdateUserRequest(password, role); err != nil {
		return nil, apperr.Validation("%s", err.Error())
	}
	if username == db.AdminUsername && role != nil && *role != db.RoleAdmin {
		return nil, apperr.Validation("Cannot change admin role")
	}

	update := db.UserUpdate{Role: role}
	if password != nil {
		stored, err := s.passwords.Prepare(*password)
		if err != nil {
			return nil, err
		}
		update.Password = &stored
	}

	user, err := s.db.UpdateUser(ctx, username, update)
	if err != nil {
		return nil, err
	}

	logger.Log.WithFields(logrus.Fields{
		"username":         username,
		"role":             user.Role,
		"password_changed": password != nil,
	}).Info("Updated user")
	return user, nil
}

// DeleteUser removes an account other than admin
func (s *UserService) DeleteUser(ctx context.Context, username string) error {
	if username == db.AdminUsername {
		return apperr.Validation("Cannot delete admin")
	}
	if err := s.db.DeleteUser(ctx, username); err != nil {
		return err
	}
	logger.Log.WithField("username", username).Info("Deleted user")
	return nil
}
