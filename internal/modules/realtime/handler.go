package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"taskbroker/internal/domain"
	jwtsvc "taskbroker/internal/pkg/jwt"
	"taskbroker/internal/pkg/validator"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin allow-list is enforced by the CORS layer in front; the upgrade
	// itself accepts any origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// OfflineNotifier records a message notification for a recipient with no
// live socket in the booking room.
type OfflineNotifier interface {
	NotifyNewMessage(ctx context.Context, recipientID int64, msg *domain.ChatMessage) error
}

// WSHandler owns the websocket endpoint: authentication, the per-connection
// read loop, room joins with full chat replay, and message fan-out.
type WSHandler struct {
	hub      *Hub
	jwt      *jwtsvc.Service
	chat     *ChatService
	bookings BookingReader
	notifs   OfflineNotifier
	log      zerolog.Logger
}

func NewWSHandler(
	hub *Hub,
	jwt *jwtsvc.Service,
	chat *ChatService,
	bookings BookingReader,
	notifs OfflineNotifier,
	log zerolog.Logger,
) *WSHandler {
	return &WSHandler{
		hub:      hub,
		jwt:      jwt,
		chat:     chat,
		bookings: bookings,
		notifs:   notifs,
		log:      log,
	}
}

// HandleWebSocket upgrades GET /ws?token=JWT. The query token authenticates
// the socket (websocket clients cannot set headers); every socket is
// auto-subscribed to its owner's private room.
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error":   gin.H{"code": "UNAUTHORIZED", "message": "Token is required. Use ?token=YOUR_JWT_TOKEN"},
		})
		return
	}

	claims, err := h.jwt.ValidateToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error":   gin.H{"code": "UNAUTHORIZED", "message": "Invalid or expired token"},
		})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	cn := h.hub.newConnection(conn, claims.UserID)
	h.hub.Subscribe(cn, UserRoom(claims.UserID))
	h.log.Info().Int64("user_id", claims.UserID).Msg("websocket connected")

	go h.hub.writePump(cn)
	h.readLoop(cn) // blocks until disconnect

	h.hub.unregister(cn)
	conn.Close()
	h.log.Info().Int64("user_id", claims.UserID).Msg("websocket disconnected")
}

func (h *WSHandler) readLoop(cn *connection) {
	cn.conn.SetReadLimit(maxMsgSize)
	cn.conn.SetReadDeadline(time.Now().Add(pongWait))
	cn.conn.SetPongHandler(func(string) error {
		cn.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := cn.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure) {
				h.log.Debug().Err(err).Int64("user_id", cn.userID).Msg("websocket read error")
			}
			return
		}

		var ev ClientEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			h.hub.sendToConn(cn, NewErrorEvent("INVALID_JSON", "Failed to parse message"))
			continue
		}

		switch ev.Type {
		case EventJoinRoom:
			h.handleJoin(cn, ev)
		case EventSendMessage:
			h.handleSend(cn, ev)
		case EventPing:
			h.hub.sendToConn(cn, ServerEvent{Type: EventPong})
		default:
			h.hub.sendToConn(cn, NewErrorEvent("UNKNOWN_TYPE", "Unknown message type: "+ev.Type))
		}
	}
}

// handleJoin subscribes the socket to a booking room and replays the full
// chat log. Providers must present a valid provider token; any failure is an
// error event back to the caller, never a dropped connection.
func (h *WSHandler) handleJoin(cn *connection, ev ClientEvent) {
	ctx := context.Background()

	payload := joinRoomPayload{BookingID: ev.BookingID, Role: ev.Role, Token: ev.Token}
	if errs := validator.Validate(payload); errs != nil {
		h.hub.sendToConn(cn, NewErrorEvent("VALIDATION_ERROR", "booking_id and role are required"))
		return
	}

	b, err := h.bookings.GetByID(ctx, ev.BookingID)
	if err != nil {
		h.hub.sendToConn(cn, NewErrorEvent("NOT_FOUND", "Booking not found"))
		return
	}

	role := domain.Role(ev.Role)
	if role == domain.RoleProvider {
		claims, err := h.jwt.ValidateToken(ev.Token)
		if err != nil || claims.UserID != b.ProviderID {
			h.hub.sendToConn(cn, NewErrorEvent("UNAUTHORIZED", "Invalid provider token"))
			return
		}
	}

	if b.ParticipantID(role) != cn.userID {
		h.hub.sendToConn(cn, NewErrorEvent("FORBIDDEN", "You are not a party of this booking"))
		return
	}

	h.hub.Subscribe(cn, BookingRoom(ev.BookingID))

	msgs, err := h.chat.Replay(ctx, ev.BookingID)
	if err != nil {
		h.log.Error().Err(err).Int64("booking_id", ev.BookingID).Msg("chat replay failed")
		h.hub.sendToConn(cn, NewErrorEvent("INTERNAL_ERROR", "Failed to load messages"))
		return
	}
	h.hub.sendToConn(cn, NewLoadMessagesEvent(ev.BookingID, msgs))
}

// handleSend appends to the persisted log first, then fans out to the room.
// The sender receives its own message back; optimistic UI dedup is the
// client's concern, not the transport's.
func (h *WSHandler) handleSend(cn *connection, ev ClientEvent) {
	ctx := context.Background()

	payload := sendMessagePayload{
		BookingID:  ev.BookingID,
		SenderID:   ev.SenderID,
		SenderRole: ev.SenderRole,
		Message:    ev.Message,
	}
	if errs := validator.Validate(payload); errs != nil {
		h.hub.sendToConn(cn, NewErrorEvent("VALIDATION_ERROR", "booking_id, sender and message are required"))
		return
	}

	// The socket's authenticated identity is authoritative.
	if ev.SenderID != cn.userID {
		h.hub.sendToConn(cn, NewErrorEvent("FORBIDDEN", "sender_id does not match the connection"))
		return
	}

	msg, err := h.chat.Append(ctx, ev.BookingID, cn.userID, domain.Role(ev.SenderRole), ev.Message)
	if err != nil {
		switch err {
		case ErrNotFound:
			h.hub.sendToConn(cn, NewErrorEvent("NOT_FOUND", "Booking not found"))
		case ErrForbidden:
			h.hub.sendToConn(cn, NewErrorEvent("FORBIDDEN", "You are not a party of this booking"))
		case ErrValidation:
			h.hub.sendToConn(cn, NewErrorEvent("VALIDATION_ERROR", "Invalid message"))
		default:
			h.log.Error().Err(err).Int64("booking_id", ev.BookingID).Msg("chat append failed")
			h.hub.sendToConn(cn, NewErrorEvent("SEND_FAILED", "Failed to send message"))
		}
		return
	}

	h.hub.BroadcastToRoom(BookingRoom(ev.BookingID), NewMessageEvent(msg))

	// A counterpart with no socket in the room gets a message notification.
	b, err := h.bookings.GetByID(ctx, ev.BookingID)
	if err != nil {
		return
	}
	recipientID := b.ParticipantID(msg.SenderRole.Counterpart())
	if !h.hub.IsUserInRoom(BookingRoom(ev.BookingID), recipientID) {
		if err := h.notifs.NotifyNewMessage(ctx, recipientID, msg); err != nil {
			h.log.Error().Err(err).Int64("booking_id", ev.BookingID).Msg("offline message notify failed")
		}
	}
}
