package model

import "time"

// Inbound realtime actions
const (
	WSActionMessage     = "message"
	WSActionRead        = "read"
	WSActionTypingStart = "typing.start"
	WSActionTypingStop  = "typing.stop"
)

// Outbound realtime events. Every frame carries Type = WSEventType.
const (
	WSEventType             = "chat.message"
	WSEventMessageNew       = "message.new"
	WSEventConversationRead = "conversation.read"
	WSEventTypingStart      = "typing.start"
	WSEventTypingStop       = "typing.stop"
	WSEventError            = "error"
)

// InboundFrame is what a client sends over its connection
type InboundFrame struct {
	Action  string  `json:"action"`
	Content *string `json:"content,omitempty"`
}

// ChatEvent is the outbound frame. Fields besides Type and Event depend on the event.
type ChatEvent struct {
	Type    string           `json:"type"`
	Event   string           `json:"event"`
	Message *MessageResponse `json:"message,omitempty"`
	By      *int64           `json:"by,omitempty"`
	At      *time.Time       `json:"at,omitempty"`
	Detail  string           `json:"detail,omitempty"`
}

func NewMessageEvent(msg *Message) *ChatEvent {
	resp := msg.ToResponse()
	return &ChatEvent{Type: WSEventType, Event: WSEventMessageNew, Message: &resp}
}

func NewReadEvent(by int64, at time.Time) *ChatEvent {
	return &ChatEvent{Type: WSEventType, Event: WSEventConversationRead, By: &by, At: &at}
}

// NewTypingEvent builds typing.start / typing.stop events
func NewTypingEvent(event string, by int64, at time.Time) *ChatEvent {
	return &ChatEvent{Type: WSEventType, Event: event, By: &by, At: &at}
}

func NewErrorEvent(detail string) *ChatEvent {
	return &ChatEvent{Type: WSEventType, Event: WSEventError, Detail: detail}
}
