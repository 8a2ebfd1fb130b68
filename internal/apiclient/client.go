// Package apiclient is the Go client for the couchparty HTTP API and
// WebSocket feed, used by the terminal client and by party runtimes
// embedded in other programs.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/couchparty/backend/internal/models"
)

// Client calls the couchparty HTTP API. Safe for concurrent use once the
// token is set.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// envelope mirrors the server's response body.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// New creates an API client for the given base URL (e.g. http://localhost:8080).
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// SetToken sets the bearer token used on subsequent requests.
func (c *Client) SetToken(token string) { c.token = token }

// Token returns the current bearer token.
func (c *Client) Token() string { return c.token }

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("%s %s: decode (status %d): %w", method, path, resp.StatusCode, err)
	}
	if !env.Success {
		return fmt.Errorf("%s %s: %s (status %d)", method, path, env.Error, resp.StatusCode)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("%s %s: decode data: %w", method, path, err)
		}
	}
	return nil
}

// AuthResult is the register/login response.
type AuthResult struct {
	Token string            `json:"token"`
	User  models.UserPublic `json:"user"`
}

// Register creates an account and stores the returned token.
func (c *Client) Register(ctx context.Context, email, password, displayName string) (*AuthResult, error) {
	var res AuthResult
	err := c.do(ctx, http.MethodPost, "/auth/register", map[string]string{
		"email": email, "password": password, "display_name": displayName,
	}, &res)
	if err != nil {
		return nil, err
	}
	c.token = res.Token
	return &res, nil
}

// Login authenticates and stores the returned token.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	var res AuthResult
	err := c.do(ctx, http.MethodPost, "/auth/login", map[string]string{
		"email": email, "password": password,
	}, &res)
	if err != nil {
		return nil, err
	}
	c.token = res.Token
	return &res, nil
}

// CreateParty creates a party with the given media source; caller becomes host.
func (c *Client) CreateParty(ctx context.Context, mediaSource string) (*models.Party, error) {
	var p models.Party
	if err := c.do(ctx, http.MethodPost, "/parties", map[string]string{"media_source": mediaSource}, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// JoinParty joins a party by id (the id doubles as the join code). Idempotent.
func (c *Client) JoinParty(ctx context.Context, partyID uuid.UUID) (*models.Party, error) {
	var p models.Party
	if err := c.do(ctx, http.MethodPost, "/parties/"+partyID.String()+"/join", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetParty fetches the current party document.
func (c *Client) GetParty(ctx context.Context, partyID uuid.UUID) (*models.Party, error) {
	var p models.Party
	if err := c.do(ctx, http.MethodGet, "/parties/"+partyID.String(), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// PublishState writes the host's playback position and play state.
func (c *Client) PublishState(ctx context.Context, partyID uuid.UUID, position float64, playing bool) (*models.Party, error) {
	var p models.Party
	err := c.do(ctx, http.MethodPatch, "/parties/"+partyID.String()+"/state", map[string]interface{}{
		"position": position, "playing": playing,
	}, &p)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ChangeMedia switches the party to a new media source (host only).
func (c *Client) ChangeMedia(ctx context.Context, partyID uuid.UUID, mediaSource string) (*models.Party, error) {
	var p models.Party
	err := c.do(ctx, http.MethodPatch, "/parties/"+partyID.String()+"/media", map[string]string{
		"media_source": mediaSource,
	}, &p)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// EndParty ends the party (host only).
func (c *Client) EndParty(ctx context.Context, partyID uuid.UUID) (*models.Party, error) {
	var p models.Party
	if err := c.do(ctx, http.MethodPost, "/parties/"+partyID.String()+"/end", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// SendChat appends a chat message to the party log.
func (c *Client) SendChat(ctx context.Context, partyID uuid.UUID, content string) (*models.ChatMessage, error) {
	var m models.ChatMessage
	err := c.do(ctx, http.MethodPost, "/parties/"+partyID.String()+"/messages", map[string]string{
		"content": content,
	}, &m)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Backlog fetches the full ordered chat log.
func (c *Client) Backlog(ctx context.Context, partyID uuid.UUID) ([]models.ChatMessage, error) {
	var out struct {
		Messages []models.ChatMessage `json:"messages"`
	}
	if err := c.do(ctx, http.MethodGet, "/parties/"+partyID.String()+"/messages", nil, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

// TriggerEvent fires an ephemeral event at the party (reaction, play_sound, etc.).
func (c *Client) TriggerEvent(ctx context.Context, partyID uuid.UUID, eventType string, payload interface{}) (*models.PartyEvent, error) {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal payload: %w", err)
		}
		raw = b
	}
	var ev models.PartyEvent
	err := c.do(ctx, http.MethodPost, "/parties/"+partyID.String()+"/events", map[string]interface{}{
		"type": eventType, "payload": raw,
	}, &ev)
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// ListSounds fetches the party's soundboard clips.
func (c *Client) ListSounds(ctx context.Context, partyID uuid.UUID) ([]models.SoundClip, error) {
	var out struct {
		Sounds []models.SoundClip `json:"sounds"`
	}
	if err := c.do(ctx, http.MethodGet, "/parties/"+partyID.String()+"/sounds", nil, &out); err != nil {
		return nil, err
	}
	return out.Sounds, nil
}

// SoundURL fetches a presigned download URL for a clip.
func (c *Client) SoundURL(ctx context.Context, clipID uuid.UUID) (string, error) {
	var out struct {
		URL string `json:"url"`
	}
	if err := c.do(ctx, http.MethodGet, "/sounds/"+clipID.String()+"/url", nil, &out); err != nil {
		return "", err
	}
	return out.URL, nil
}
