package models

import (
	"errors"
	"testing"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{"", RoleParticipant, false},
		{"participant", RoleParticipant, false},
		{"analyst", RoleAnalyst, false},
		{" project_manager ", RoleProjectManager, false},
		{"admin", "", true},
		{"Analyst", "", true},
	}

	for _, tt := range tests {
		got, err := ParseRole(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidRole) {
				t.Errorf("ParseRole(%q) error = %v, want ErrInvalidRole", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseRole(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestCanFacilitate(t *testing.T) {
	if RoleParticipant.CanFacilitate() {
		t.Error("participant should not facilitate")
	}
	if !RoleAnalyst.CanFacilitate() || !RoleProjectManager.CanFacilitate() {
		t.Error("analyst and project manager should facilitate")
	}
}

func TestValidateMessage(t *testing.T) {
	if err := ValidateMessage("Alice", "Hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ValidateMessage("", "Hello"); !errors.Is(err, ErrEmptyUserName) {
		t.Fatalf("expected ErrEmptyUserName, got %v", err)
	}
	if err := ValidateMessage("Alice", "   "); !errors.Is(err, ErrEmptyText) {
		t.Fatalf("expected ErrEmptyText, got %v", err)
	}
	if !IsValidation(ErrInvalidDirection) {
		t.Fatal("ErrInvalidDirection should be a validation error")
	}
}

func TestSessionCloneIsDeep(t *testing.T) {
	s := &Session{
		ID:           "s1",
		Participants: []Participant{{UserName: "Alice", Role: RoleAnalyst}},
		BreakoutRooms: []BreakoutRoom{
			{ID: "r1", Participants: []string{"Alice"}, Questions: []string{"Q1"}},
		},
	}

	c := s.Clone()
	c.BreakoutRooms[0].Participants[0] = "Bob"
	c.Participants[0].UserName = "Bob"

	if s.BreakoutRooms[0].Participants[0] != "Alice" || s.Participants[0].UserName != "Alice" {
		t.Fatal("clone shares backing arrays with the original")
	}
	if s.RoomOf("Alice") == nil || s.Room("r1") == nil {
		t.Fatal("room lookups failed")
	}
}
