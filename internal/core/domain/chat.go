package domain

import "time"

// Route records how a chat turn was answered.
type Route string

const (
	RouteLocal    Route = "local"
	RouteRemote   Route = "remote"
	RouteHelp     Route = "help"
	RouteRejected Route = "rejected"
	RouteError    Route = "error"
)

// Reply is the assistant's answer to one chat message.
type Reply struct {
	Text     string   `json:"text"`
	Route    Route    `json:"route"`
	Category Category `json:"category,omitempty"`
	Nearby   bool     `json:"nearby,omitempty"`
}

// Rejected reports whether the message was refused without being answered.
func (r Reply) Rejected() bool { return r.Route == RouteRejected }

// ChatTurn is a completed question/answer pair.
type ChatTurn struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Route     Route     `json:"route"`
	Category  Category  `json:"category,omitempty"`
	LatencyMs int64     `json:"latency_ms"`
	CreatedAt time.Time `json:"created_at"`
}
