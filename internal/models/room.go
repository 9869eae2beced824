package models

import "slices"

// MainRoom is the implicit room every participant of a charette can read.
const MainRoom = "main"

// BreakoutRoom is a sub-session with its own participant subset and message stream.
type BreakoutRoom struct {
	ID           string   `json:"id" yaml:"id"`
	Name         string   `json:"name" yaml:"name"`
	Participants []string `json:"participants" yaml:"participants"`
	Questions    []string `json:"questions" yaml:"questions"`
}

// HasParticipant reports whether userName is in the room.
func (r *BreakoutRoom) HasParticipant(userName string) bool {
	return slices.Contains(r.Participants, userName)
}

// Clone returns a deep copy of the room.
func (r BreakoutRoom) Clone() BreakoutRoom {
	r.Participants = append([]string(nil), r.Participants...)
	r.Questions = append([]string(nil), r.Questions...)
	return r
}

// IsBreakout reports whether roomID names a breakout room rather than the main room.
func IsBreakout(roomID string) bool {
	return roomID != "" && roomID != MainRoom
}
