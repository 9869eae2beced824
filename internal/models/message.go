package models

// Message represents a chat message posted in a charette room.
type Message struct {
	ID         string `json:"id" yaml:"id"` // ULID
	CharetteID string `json:"charetteId" yaml:"charetteId"`
	RoomID     string `json:"roomId" yaml:"roomId"`
	UserName   string `json:"userName" yaml:"userName"`
	Role       Role   `json:"role" yaml:"role"`
	Text       string `json:"text" yaml:"text"`
	Timestamp  int64  `json:"timestamp" yaml:"timestamp"` // Unix ms
}

// AnalysisResult is the output of an analyzer run over a room's messages.
type AnalysisResult struct {
	CharetteID    string         `json:"charetteId" yaml:"charetteId"`
	RoomID        string         `json:"roomId" yaml:"roomId"`
	Phase         string         `json:"phase" yaml:"phase"`
	MessageCount  int            `json:"messageCount" yaml:"messageCount"`
	Contributions map[string]int `json:"contributions" yaml:"contributions"`
	Keywords      []string       `json:"keywords" yaml:"keywords"`
	Summary       string         `json:"summary" yaml:"summary"`
	GeneratedAt   int64          `json:"generatedAt" yaml:"generatedAt"` // Unix ms
}
