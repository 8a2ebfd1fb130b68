package realtime

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for connection keepalive (seconds).
	PingInterval = 30
	PongWait     = 60
)

// Event names pushed to party subscribers.
const (
	EventSessionState     = "session_state"
	EventChatMessage      = "chat_message"
	EventPartyEvent       = "party_event"
	EventParticipantCount = "participant_count"
	EventMemberJoined     = "member_joined"
	EventMemberLeft       = "member_left"
	EventPartyEnded       = "party_ended"
)

// CountChangeHandler is called when the connected-client count of a party changes.
type CountChangeHandler func(partyID uuid.UUID, count int)

// EmptyHandler is called when the last connected client of a party leaves.
type EmptyHandler func(partyID uuid.UUID)

// StateProvider returns the current playback state of a party, used to greet
// a freshly registered client so it can reconcile without waiting for the
// next heartbeat.
type StateProvider func(partyID uuid.UUID) (interface{}, bool)

// Hub maintains party_id -> set of connections and fans out messages.
// Uses Redis pub/sub for horizontal scaling: local broadcast + publish to Redis.
type Hub struct {
	// partyID -> map[clientID]*Client
	parties  map[uuid.UUID]map[string]*Client
	subs     map[uuid.UUID]func() // cancel Redis subscription per party
	mu       sync.RWMutex
	logger   *zap.Logger
	redis    Publisher
	redisSub Subscriber
	onCount  CountChangeHandler
	onEmpty  EmptyHandler
	onJoin   func(partyID, userID uuid.UUID)
	onLeave  func(partyID, userID uuid.UUID)
	state    StateProvider
}

// Publisher publishes to Redis for cross-instance broadcast.
type Publisher interface {
	PublishPartyEvent(partyID uuid.UUID, event string, payload []byte) error
}

// Subscriber subscribes to party channels and invokes handler for incoming events.
type Subscriber interface {
	SubscribeParty(partyID uuid.UUID, handler func(event string, payload []byte)) (cancel func(), err error)
}

// NewHub creates a new WebSocket hub.
func NewHub(logger *zap.Logger, redisPub Publisher, redisSub Subscriber) *Hub {
	return &Hub{
		parties:  make(map[uuid.UUID]map[string]*Client),
		subs:     make(map[uuid.UUID]func()),
		logger:   logger,
		redis:    redisPub,
		redisSub: redisSub,
	}
}

// SetCountChangeHandler sets the callback for connected-count changes.
func (h *Hub) SetCountChangeHandler(fn CountChangeHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onCount = fn
}

// SetEmptyHandler sets the callback fired when a party loses its last client
// (e.g. to enqueue an abandoned-session sweep).
func (h *Hub) SetEmptyHandler(fn EmptyHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onEmpty = fn
}

// SetStateProvider sets the snapshot source pushed to each new client.
func (h *Hub) SetStateProvider(fn StateProvider) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.state = fn
}

// SetPresenceHandlers sets join/leave callbacks for presence logging.
func (h *Hub) SetPresenceHandlers(onJoin, onLeave func(partyID, userID uuid.UUID)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onJoin = onJoin
	h.onLeave = onLeave
}

// Register adds a client to a party room. Starts the Redis subscription for
// this party when the first local client connects.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.parties[c.PartyID] == nil {
		h.parties[c.PartyID] = make(map[string]*Client)
	}
	if _, subscribed := h.subs[c.PartyID]; !subscribed && h.redisSub != nil {
		cancel, err := h.redisSub.SubscribeParty(c.PartyID, func(event string, payload []byte) {
			h.BroadcastToParty(c.PartyID, event, json.RawMessage(payload))
		})
		if err != nil {
			// Retried on the next register for this party.
			h.logger.Warn("party subscribe failed",
				zap.String("party_id", c.PartyID.String()), zap.Error(err))
		} else {
			h.subs[c.PartyID] = cancel
		}
	}
	h.parties[c.PartyID][c.ID] = c
	count := len(h.parties[c.PartyID])
	onCount, onJoin, state := h.onCount, h.onJoin, h.state
	h.mu.Unlock()

	if onJoin != nil {
		onJoin(c.PartyID, c.UserID)
	}
	if onCount != nil {
		onCount(c.PartyID, count)
	}
	// Greet the client with the current snapshot so it reconciles right away
	// instead of idling until the next heartbeat.
	if state != nil {
		if snap, ok := state(c.PartyID); ok {
			h.SendToClient(c.PartyID, c.ID, EventSessionState, snap)
		}
	}
	h.logger.Debug("client joined party", zap.String("client_id", c.ID), zap.String("party_id", c.PartyID.String()))
}

// Unregister removes a client from a party room. Cancels the Redis
// subscription when the last client leaves.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	var count int
	if m, ok := h.parties[c.PartyID]; ok {
		delete(m, c.ID)
		count = len(m)
		if count == 0 {
			delete(h.parties, c.PartyID)
			if cancel, ok := h.subs[c.PartyID]; ok {
				cancel()
				delete(h.subs, c.PartyID)
			}
		}
	}
	onCount, onLeave, onEmpty := h.onCount, h.onLeave, h.onEmpty
	h.mu.Unlock()

	if onLeave != nil {
		onLeave(c.PartyID, c.UserID)
	}
	if onCount != nil && count > 0 {
		onCount(c.PartyID, count)
	}
	if onEmpty != nil && count == 0 {
		onEmpty(c.PartyID)
	}
	h.logger.Debug("client left party", zap.String("client_id", c.ID), zap.String("party_id", c.PartyID.String()))
}

// BroadcastToParty sends a message to all clients in a party (local only).
func (h *Hub) BroadcastToParty(partyID uuid.UUID, event string, payload interface{}) {
	var data []byte
	switch v := payload.(type) {
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	default:
		data, _ = json.Marshal(payload)
	}
	msg := WSMessage{Event: event, Data: data}

	h.mu.RLock()
	clients := h.parties[partyID]
	h.mu.RUnlock()

	if clients == nil {
		return
	}
	for _, c := range clients {
		select {
		case c.send <- msg:
		default:
			// buffer full, skip
		}
	}
}

// PublishToParty publishes to Redis only, so the Redis subscriber callback
// performs the broadcast exactly once for every instance, this one included.
// Chat and events must reach the sender via the same round trip as everyone
// else (no local double-fire), and state reconciliation is idempotent so
// single delivery is all it needs. Falls back to local broadcast when Redis
// is absent (single-instance mode).
func (h *Hub) PublishToParty(partyID uuid.UUID, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if h.redis != nil {
		_ = h.redis.PublishPartyEvent(partyID, event, data)
		return
	}
	h.BroadcastToParty(partyID, event, json.RawMessage(data))
}

// PartyCount returns the number of connected clients in a party.
func (h *Hub) PartyCount(partyID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.parties[partyID])
}

// SendToClient sends a message to a single client in a party.
func (h *Hub) SendToClient(partyID uuid.UUID, clientID string, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	msg := WSMessage{Event: event, Data: data}
	h.mu.RLock()
	clients := h.parties[partyID]
	c, ok := clients[clientID]
	h.mu.RUnlock()
	if !ok || c == nil {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}
