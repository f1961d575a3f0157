package model

// Session event types sent by the control page.
const (
	EventToggle   = "toggle"
	EventLength   = "length"
	EventGenerate = "generate"
	EventCopied   = "copied"
)

// Session states.
const (
	StateReady   = "ready"
	StateBlocked = "blocked"
)

// SessionEvent is a user action reported by the control page.
type SessionEvent struct {
	Type    string `json:"type"`
	Class   string `json:"class,omitempty"`
	Enabled bool   `json:"enabled,omitempty"`
	Length  int    `json:"length,omitempty"`
	OK      bool   `json:"ok,omitempty"`
}

// SessionView is the full state pushed to the control page after every change.
// Seq increases monotonically so clients can drop out-of-order views.
type SessionView struct {
	Seq         uint64   `json:"seq"`
	State       string   `json:"state"`
	Length      int      `json:"length"`
	MinLength   int      `json:"min_length"`
	MaxLength   int      `json:"max_length"`
	Classes     []string `json:"classes"`
	Password    string   `json:"password"`
	Placeholder string   `json:"placeholder,omitempty"`
	Loading     bool     `json:"loading"`
	Message     string   `json:"message,omitempty"`
	Error       bool     `json:"error,omitempty"`
}
