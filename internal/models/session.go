package models

import "time"

// Phases is the fixed facilitation sequence every charette moves through.
var Phases = [...]string{
	"Introduction",
	"Data Collection",
	"Analysis",
	"Ideation",
	"Synthesis",
	"Reporting",
}

// DefaultBreakoutMinutes is used when a charette is created without a breakout time.
const DefaultBreakoutMinutes = 15

// Metadata holds the answers collected by the creation wizard.
type Metadata struct {
	Scope            string `json:"scope,omitempty" yaml:"scope,omitempty"`
	Stakeholders     string `json:"stakeholders,omitempty" yaml:"stakeholders,omitempty"`
	Objectives       string `json:"objectives,omitempty" yaml:"objectives,omitempty"`
	Constraints      string `json:"constraints,omitempty" yaml:"constraints,omitempty"`
	Timeframe        string `json:"timeframe,omitempty" yaml:"timeframe,omitempty"`
	DesiredOutcomes  string `json:"desiredOutcomes,omitempty" yaml:"desiredOutcomes,omitempty"`
	BreakoutRoomTime int    `json:"breakoutRoomTime" yaml:"breakoutRoomTime"` // minutes
}

// Participant is a user registered on a charette.
type Participant struct {
	UserName string `json:"userName" yaml:"userName"`
	Role     Role   `json:"role" yaml:"role"`
}

// Session represents a charette.
type Session struct {
	ID            string         `json:"id" yaml:"id"`
	Title         string         `json:"title" yaml:"title"`
	Description   string         `json:"description" yaml:"description"`
	Metadata      Metadata       `json:"metadata" yaml:"metadata"`
	CurrentPhase  int            `json:"currentPhase" yaml:"currentPhase"`
	Participants  []Participant  `json:"participants" yaml:"participants"`
	BreakoutRooms []BreakoutRoom `json:"breakoutRooms" yaml:"breakoutRooms"`
	CreatedBy     string         `json:"createdBy,omitempty" yaml:"createdBy,omitempty"`
	CreatedAt     time.Time      `json:"createdAt" yaml:"createdAt"`
}

// PhaseName returns the name of the current phase.
func (s *Session) PhaseName() string {
	if s.CurrentPhase < 0 || s.CurrentPhase >= len(Phases) {
		return ""
	}
	return Phases[s.CurrentPhase]
}

// Room returns the breakout room with the given ID, or nil.
func (s *Session) Room(id string) *BreakoutRoom {
	for i := range s.BreakoutRooms {
		if s.BreakoutRooms[i].ID == id {
			return &s.BreakoutRooms[i]
		}
	}
	return nil
}

// RoomOf returns the breakout room the user is currently in, or nil.
func (s *Session) RoomOf(userName string) *BreakoutRoom {
	for i := range s.BreakoutRooms {
		if s.BreakoutRooms[i].HasParticipant(userName) {
			return &s.BreakoutRooms[i]
		}
	}
	return nil
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Participants = append([]Participant(nil), s.Participants...)
	c.BreakoutRooms = make([]BreakoutRoom, len(s.BreakoutRooms))
	for i, room := range s.BreakoutRooms {
		c.BreakoutRooms[i] = room.Clone()
	}
	return &c
}

// SessionFields are the inputs for creating a charette.
type SessionFields struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Metadata    Metadata `json:"metadata"`
	CreatedBy   string   `json:"createdBy,omitempty"`
}

// SessionPatch is a partial update; nil fields are left untouched.
type SessionPatch struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Metadata    *Metadata `json:"metadata,omitempty"`
}

// Apply writes the patch onto s.
func (p SessionPatch) Apply(s *Session) {
	if p.Title != nil {
		s.Title = *p.Title
	}
	if p.Description != nil {
		s.Description = *p.Description
	}
	if p.Metadata != nil {
		s.Metadata = *p.Metadata
	}
}
