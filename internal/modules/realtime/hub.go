package realtime

import (
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"taskbroker/internal/domain"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 512 * 1024 // 512 KB
)

// BookingRoom names the broadcast group shared by both parties of a booking.
func BookingRoom(bookingID int64) string {
	return "booking:" + strconv.FormatInt(bookingID, 10)
}

// UserRoom names a user's private channel, independent of any booking.
func UserRoom(userID int64) string {
	return "user:" + strconv.FormatInt(userID, 10)
}

// connection is a single websocket client with its buffered outbound queue.
type connection struct {
	userID int64
	conn   *websocket.Conn
	send   chan []byte
	rooms  map[string]bool
}

// Hub tracks which connections are members of which rooms and fans events out
// to them. Membership changes only on join/leave; broadcasts take the read
// lock. Delivery is best effort: a failed or slow socket never rolls back the
// state change that triggered the event, the client re-syncs via replay.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*connection]bool
	log   zerolog.Logger
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		rooms: make(map[string]map[*connection]bool),
		log:   log,
	}
}

func (h *Hub) newConnection(conn *websocket.Conn, userID int64) *connection {
	return &connection{
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, 256),
		rooms:  make(map[string]bool),
	}
}

// Subscribe is re-entrant: re-joining a room a connection is already in is a
// no-op at the membership level (the caller still replays history).
func (h *Hub) Subscribe(c *connection, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*connection]bool)
	}
	h.rooms[room][c] = true
	c.rooms[room] = true
}

func (h *Hub) unregister(c *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for room := range c.rooms {
		if members, ok := h.rooms[room]; ok {
			delete(members, c)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	c.rooms = make(map[string]bool)
	close(c.send)
}

// BroadcastToRoom sends an event to every live member of a room.
func (h *Hub) BroadcastToRoom(room string, event ServerEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Error().Err(err).Str("room", room).Msg("marshal ws event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[room] {
		select {
		case c.send <- data:
		default:
			// Client too slow, drop the frame; replay recovers on rejoin.
			h.log.Warn().Int64("user_id", c.userID).Str("room", room).Msg("ws send buffer full")
		}
	}
}

func (h *Hub) sendToConn(c *connection, event ServerEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Error().Err(err).Msg("marshal ws event")
		return
	}
	select {
	case c.send <- data:
	default:
		h.log.Warn().Int64("user_id", c.userID).Msg("ws send buffer full")
	}
}

// IsUserInRoom reports whether any live connection of userID is a member.
func (h *Hub) IsUserInRoom(room string, userID int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[room] {
		if c.userID == userID {
			return true
		}
	}
	return false
}

// PublishBookingUpdate fans a fresh booking snapshot out to its room so both
// parties observe price/status/agreement changes without polling.
func (h *Hub) PublishBookingUpdate(b *domain.Booking) {
	h.BroadcastToRoom(BookingRoom(b.ID), ServerEvent{
		Type:      EventBookingUpdated,
		BookingID: b.ID,
		Payload:   b,
	})
}

// PublishNotification delivers a typed payload on the recipient's private
// channel under the given event name.
func (h *Hub) PublishNotification(userID int64, event string, n *domain.Notification) {
	h.BroadcastToRoom(UserRoom(userID), ServerEvent{
		Type:      event,
		BookingID: n.BookingID,
		Payload: NotificationPayload{
			Type:      string(n.Type),
			Title:     n.Title,
			Message:   n.Message,
			BookingID: n.BookingID,
		},
	})
}

func (h *Hub) writePump(c *connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.log.Debug().Err(err).Int64("user_id", c.userID).Msg("ws write failed")
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
