package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrEmptyText        = errors.New("message text is empty")
	ErrEmptyUserName    = errors.New("user name is empty")
	ErrInvalidRole      = errors.New("invalid role")
	ErrEmptyTitle       = errors.New("title is required")
	ErrInvalidRoomCount = errors.New("room count must be between 1 and 20")
	ErrInvalidDirection = errors.New("direction must be next or previous")
)

// MaxBreakoutRooms caps a single createBreakoutRooms call.
const MaxBreakoutRooms = 20

// Role is what a participant does in a charette.
type Role string

const (
	RoleParticipant    Role = "participant"
	RoleAnalyst        Role = "analyst"
	RoleProjectManager Role = "project_manager"
)

// ParseRole validates s against the closed set of roles.
// An empty string maps to RoleParticipant.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.TrimSpace(s)); r {
	case "":
		return RoleParticipant, nil
	case RoleParticipant, RoleAnalyst, RoleProjectManager:
		return r, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil && r != ""
}

// CanFacilitate reports whether the role may move the charette between phases.
func (r Role) CanFacilitate() bool {
	return r == RoleAnalyst || r == RoleProjectManager
}

// ValidateMessage checks the inputs of a send before any remote call is made.
func ValidateMessage(userName, text string) error {
	if strings.TrimSpace(userName) == "" {
		return ErrEmptyUserName
	}
	if strings.TrimSpace(text) == "" {
		return ErrEmptyText
	}
	return nil
}

// IsValidation reports whether err is an input validation failure.
func IsValidation(err error) bool {
	for _, target := range []error{ErrEmptyText, ErrEmptyUserName, ErrInvalidRole, ErrEmptyTitle, ErrInvalidRoomCount, ErrInvalidDirection} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
