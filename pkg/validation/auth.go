package validation

import (
	"errors"
	"fmt"
)

const (
	MinUsernameLength = 2
	MinPasswordLength = 4
)

// AuthRequestValidator validates authentication and account requests
type AuthRequestValidator struct{}

// NewAuthRequestValidator creates a new AuthRequestValidator
func NewAuthRequestValidator() *AuthRequestValidator {
	return &AuthRequestValidator{}
}

// ValidateLoginRequest validates a login request
func (v *AuthRequestValidator) ValidateLoginRequest(username, password string) error {
	if username == "" || password == "" {
		return errors.New("Username and password required")
	}
	return nil
}

// ValidateUsername validates a username
func (v *AuthRequestValidator) ValidateUsername(username string) error {
	if username == "" {
		return errors.New("username cannot be empty")
	}
	if len([]rune(username)) < MinUsernameLength {
		return fmt.Errorf("username must be at least %d characters long, got %d", MinUsernameLength, len([]rune(username)))
	}
	return nil
}

// ValidatePassword validates a password
func (v *AuthRequestValidator) ValidatePassword(password string) error {
	if password == "" {
		return errors.New("password cannot be empty")
	}
	if len([]rune(password)) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters long, got %d", MinPasswordLength, len([]rune(password)))
	}
	return nil
}

// ValidateRole accepts the two known roles; empty means the default
func (v *AuthRequestValidator) ValidateRole(role string) error {
	switch role {
	case "", "admin", "user":
		return nil
	default:
		return fmt.Errorf("role must be admin or user, got %q", role)
	}
}

// ValidateCreateUserRequest validates an admin's new-account request
func (v *AuthRequestValidator) ValidateCreateUserRequest(username, password, role string) error {
	if username == "" || password == "" {
		return errors.New("Username and password required")
	}
	if err := v.ValidateUsername(username); err != nil {
		return err
	}
	if err := v.ValidatePassword(password); err != nil {
		return err
	}
	return v.ValidateRole(role)
}

// ValidateUpdateUserRequest validates the optional fields of an account edit
func (v *AuthRequestValidator) ValidateUpdateUserRequest(password, role *string) error {
	if password != nil {
		if err := v.ValidatePassword(*password); err != nil {
			return err
		}
	}
	if role != nil {
		if *role == "" {
			return errors.New("role cannot be empty")
		}
		if err := v.ValidateRole(*role); err != nil {
			return err
		}
	}
	return nil
}
