package realtime

import "encoding/json"

// Server-pushed event types.
const (
	EventNewMessage   = "newMessage"
	EventMessageSent  = "messageSent"
	EventMessagesRead = "messagesRead"
	EventTyping       = "typing"
	EventUserOnline   = "userOnline"
	EventUserOffline  = "userOffline"
	EventOnlineUsers  = "onlineUsers"
	EventError        = "error"
)

// Client-sent frame types.
const (
	FrameSendMessage = "sendMessage"
	FrameMarkRead    = "markRead"
	FrameTyping      = "typing"
)

// ClientFrame is what a websocket client sends. Ref is an optional
// client-chosen correlation id echoed back on the acknowledging event.
type ClientFrame struct {
	Type    string          `json:"type"`
	Ref     string          `json:"ref,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ServerFrame is what the server pushes to a websocket client.
type ServerFrame struct {
	Type    string `json:"type"`
	Ref     string `json:"ref,omitempty"`
	Payload any    `json:"payload,omitempty"`
}
