package realtime

import "taskbroker/internal/domain"

// Client -> server event types.
const (
	EventJoinRoom    = "join_room"
	EventSendMessage = "send_message"
	EventPing        = "ping"
)

// Server -> client event types.
const (
	EventLoadMessages   = "load_messages"
	EventReceiveMessage = "receive_message"
	EventBookingUpdated = "booking_updated"
	EventError          = "error"
	EventPong           = "pong"
)

// ClientEvent is the envelope for everything a socket sends us.
type ClientEvent struct {
	Type       string `json:"type"`
	BookingID  int64  `json:"booking_id,omitempty"`
	Role       string `json:"role,omitempty"`
	Token      string `json:"token,omitempty"`
	SenderID   int64  `json:"sender_id,omitempty"`
	SenderRole string `json:"sender_role,omitempty"`
	Message    string `json:"message,omitempty"`
}

// ServerEvent is the envelope for everything pushed to a socket.
type ServerEvent struct {
	Type      string `json:"type"`
	BookingID int64  `json:"booking_id,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// NotificationPayload is the shape carried by private-channel events.
type NotificationPayload struct {
	Type      string `json:"type"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	BookingID int64  `json:"booking_id,omitempty"`
}

type joinRoomPayload struct {
	BookingID int64  `validate:"required"`
	Role      string `validate:"required,oneof=client provider"`
	Token     string
}

type sendMessagePayload struct {
	BookingID  int64  `validate:"required"`
	SenderID   int64  `validate:"required"`
	SenderRole string `validate:"required,oneof=client provider"`
	Message    string `validate:"required"`
}

func NewErrorEvent(code, message string) ServerEvent {
	return ServerEvent{
		Type:    EventError,
		Payload: map[string]string{"code": code, "message": message},
	}
}

func NewMessageEvent(msg *domain.ChatMessage) ServerEvent {
	return ServerEvent{
		Type:      EventReceiveMessage,
		BookingID: msg.BookingID,
		Payload:   msg,
	}
}

func NewLoadMessagesEvent(bookingID int64, msgs []domain.ChatMessage) ServerEvent {
	return ServerEvent{
		Type:      EventLoadMessages,
		BookingID: bookingID,
		Payload:   msgs,
	}
}
