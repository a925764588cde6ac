package ws

import "arcade_webapp/internal/domain"

const (
	// client - server
	MsgPing = "ping"

	// server - client
	MsgReady     = "ready"
	MsgPong      = "pong"
	MsgBroadcast = "broadcast"
)

type Message struct {
	Type      string            `json:"type"`
	Broadcast *domain.Broadcast `json:"broadcast,omitempty"`
}
