package apiclient

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/couchparty/backend/internal/models"
)

const (
	reconnectMin = time.Second
	reconnectMax = 30 * time.Second
)

// Feed is a live subscription to one party's WebSocket channel. It demuxes
// the single connection into independent callbacks: session state for the
// sync loop, chat for the transcript, events for ephemeral effects. A nil
// callback drops that class of message, so each concern subscribes on its
// own terms.
type Feed struct {
	wsURL   string
	partyID uuid.UUID
	token   string
	logger  *zap.Logger

	OnState    func(models.Party)
	OnChat     func(models.ChatMessage)
	OnEvent    func(models.PartyEvent)
	OnCount    func(int)
	OnPresence func(event, name string)
	OnEnded    func()
}

// wsMessage mirrors the server's WebSocket envelope.
type wsMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewFeed creates a feed for a party. baseURL is the HTTP base URL; the
// scheme is rewritten for WebSocket.
func NewFeed(baseURL string, partyID uuid.UUID, token string, logger *zap.Logger) *Feed {
	if logger == nil {
		logger = zap.NewNop()
	}
	ws := strings.Replace(baseURL, "http", "ws", 1)
	return &Feed{
		wsURL:   ws + "/ws?party_id=" + partyID.String() + "&token=" + url.QueryEscape(token),
		partyID: partyID,
		token:   token,
		logger:  logger,
	}
}

// Run connects and pumps messages until ctx is cancelled, reconnecting with
// exponential backoff on failure. It returns ctx.Err() on cancellation.
func (f *Feed) Run(ctx context.Context) error {
	var backoff time.Duration
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := time.Now()
		err := f.runOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		f.logger.Warn("party feed disconnected", zap.String("party_id", f.partyID.String()), zap.Error(err))

		backoff = nextBackoff(backoff, time.Since(start))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
}

// nextBackoff doubles the reconnect delay up to reconnectMax, resetting to
// reconnectMin once a connection held long enough to count as healthy. A
// stable session that later flaps should not pay the full 30s delay.
func nextBackoff(prev, connected time.Duration) time.Duration {
	if prev <= 0 || connected >= reconnectMax {
		return reconnectMin
	}
	next := prev * 2
	if next > reconnectMax {
		next = reconnectMax
	}
	return next
}

func (f *Feed) runOnce(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, f.wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	// Close the socket when ctx ends so the read loop unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			_ = conn.Close()
		case <-done:
		}
	}()

	if err := conn.WriteJSON(wsMessage{Event: "join"}); err != nil {
		return err
	}

	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}
		f.dispatch(msg)
	}
}

func (f *Feed) dispatch(msg wsMessage) {
	switch msg.Event {
	case "session_state":
		if f.OnState == nil {
			return
		}
		var p models.Party
		if err := json.Unmarshal(msg.Data, &p); err == nil {
			f.OnState(p)
		}
	case "chat_message":
		if f.OnChat == nil {
			return
		}
		var m models.ChatMessage
		if err := json.Unmarshal(msg.Data, &m); err == nil {
			f.OnChat(m)
		}
	case "party_event":
		if f.OnEvent == nil {
			return
		}
		var ev models.PartyEvent
		if err := json.Unmarshal(msg.Data, &ev); err == nil {
			f.OnEvent(ev)
		}
	case "participant_count":
		if f.OnCount == nil {
			return
		}
		var c struct {
			Count int `json:"count"`
		}
		if err := json.Unmarshal(msg.Data, &c); err == nil {
			f.OnCount(c.Count)
		}
	case "member_joined", "member_left":
		if f.OnPresence == nil {
			return
		}
		var m struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(msg.Data, &m); err == nil {
			f.OnPresence(msg.Event, m.Name)
		}
	case "party_ended":
		if f.OnEnded != nil {
			f.OnEnded()
		}
	}
}
