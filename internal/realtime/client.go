package realtime

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // allow all origins in dev; restrict in production
	},
}

// WSMessage is the WebSocket message envelope.
type WSMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Client represents a single WebSocket connection in a party.
type Client struct {
	ID       string
	PartyID  uuid.UUID
	UserID   uuid.UUID
	Name     string
	JoinedAt time.Time
	hub      *Hub
	conn     *websocket.Conn
	send     chan WSMessage
	logger   *zap.Logger
}

// TokenValidator resolves a JWT into the participant's id and display name.
type TokenValidator func(token string) (userID uuid.UUID, name string, err error)

// MembershipGate reports whether the user may subscribe to the party.
// It returns false for unknown parties and non-members alike.
type MembershipGate func(partyID, userID uuid.UUID) bool

// ServeWs handles the WebSocket upgrade and runs the client loop.
// Auth is via token query param; the gate rejects non-members so only
// joined participants receive the party feed.
func ServeWs(hub *Hub, logger *zap.Logger, validate TokenValidator, gate MembershipGate) gin.HandlerFunc {
	return func(c *gin.Context) {
		partyIDStr := c.Query("party_id")
		token := c.Query("token")
		if partyIDStr == "" || token == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "party_id and token required"})
			return
		}
		partyID, err := uuid.Parse(partyIDStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid party_id"})
			return
		}
		userID, name, err := validate(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		if gate != nil && !gate(partyID, userID) {
			c.JSON(http.StatusNotFound, gin.H{"error": "party not found or not joined"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := &Client{
			ID:       uuid.New().String(),
			PartyID:  partyID,
			UserID:   userID,
			Name:     name,
			JoinedAt: time.Now(),
			hub:      hub,
			conn:     conn,
			send:     make(chan WSMessage, 256),
			logger:   logger,
		}
		hub.Register(client)
		go client.writePump()
		client.readPump()
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.hub.PublishToParty(c.PartyID, EventMemberLeft, map[string]string{
			"user_id": c.UserID.String(),
			"name":    c.Name,
		})
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(65536)
	_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
		return nil
	})

	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			break
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))

		switch msg.Event {
		case "join":
			c.hub.PublishToParty(c.PartyID, EventMemberJoined, map[string]string{
				"user_id": c.UserID.String(),
				"name":    c.Name,
			})
			c.hub.PublishToParty(c.PartyID, EventParticipantCount, map[string]int{
				"count": c.hub.PartyCount(c.PartyID),
			})
		default:
			// all state mutations and sends go through the HTTP API
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(PingInterval * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
