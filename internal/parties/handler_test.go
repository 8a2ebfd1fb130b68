package parties

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/couchparty/backend/internal/middleware"
	"github.com/couchparty/backend/internal/models"
	"github.com/couchparty/backend/internal/realtime"
)

// fakeStore holds at most one party and mirrors the repository's guard
// semantics: sentinel errors for missing/ended parties and non-host writes.
type fakeStore struct {
	party       *models.Party
	members     map[uuid.UUID]bool
	createCalls int
	joinCalls   int
}

func newFakeStore(p *models.Party) *fakeStore {
	members := make(map[uuid.UUID]bool)
	if p != nil {
		members[p.HostID] = true
	}
	return &fakeStore{party: p, members: members}
}

func (f *fakeStore) Create(ctx context.Context, hostID uuid.UUID, mediaSource string) (*models.Party, error) {
	f.createCalls++
	p := &models.Party{ID: uuid.New(), HostID: hostID, MediaSource: mediaSource, Status: models.PartyStatusActive}
	f.party = p
	f.members[hostID] = true
	return p, nil
}

func (f *fakeStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Party, error) {
	if f.party == nil || f.party.ID != id {
		return nil, ErrNotFound
	}
	return f.party, nil
}

func (f *fakeStore) IsMember(ctx context.Context, partyID, userID uuid.UUID) (bool, error) {
	if f.party == nil || f.party.ID != partyID {
		return false, nil
	}
	return f.members[userID], nil
}

func (f *fakeStore) Join(ctx context.Context, partyID, userID uuid.UUID) error {
	if f.party == nil || f.party.ID != partyID {
		return ErrNotFound
	}
	if f.party.Status == models.PartyStatusEnded {
		return ErrEnded
	}
	f.joinCalls++
	f.members[userID] = true
	return nil
}

func (f *fakeStore) guard(partyID, callerID uuid.UUID) error {
	if f.party == nil || f.party.ID != partyID {
		return ErrNotFound
	}
	if f.party.Status == models.PartyStatusEnded {
		return ErrEnded
	}
	if f.party.HostID != callerID {
		return ErrNotHost
	}
	return nil
}

func (f *fakeStore) UpdateMedia(ctx context.Context, partyID, callerID uuid.UUID, mediaSource string) (*models.Party, error) {
	if err := f.guard(partyID, callerID); err != nil {
		return nil, err
	}
	f.party.MediaSource = mediaSource
	f.party.CurrentPosition = 0
	f.party.IsPlaying = false
	return f.party, nil
}

func (f *fakeStore) UpdateState(ctx context.Context, partyID, callerID uuid.UUID, position float64, playing bool) error {
	if err := f.guard(partyID, callerID); err != nil {
		return err
	}
	f.party.CurrentPosition = position
	f.party.IsPlaying = playing
	return nil
}

func (f *fakeStore) End(ctx context.Context, partyID, callerID uuid.UUID) error {
	if err := f.guard(partyID, callerID); err != nil {
		return err
	}
	f.party.Status = models.PartyStatusEnded
	return nil
}

func newTestRouter(store Store, userID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(store, nil, realtime.NewHub(zap.NewNop(), nil, nil), zap.NewNop())
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserID, userID)
		c.Set(middleware.ContextUserName, "tester")
		c.Next()
	})
	r.POST("/parties", h.Create)
	r.GET("/parties/:id", h.GetByID)
	r.POST("/parties/:id/join", h.Join)
	r.PATCH("/parties/:id/media", h.UpdateMedia)
	r.PATCH("/parties/:id/state", h.PublishState)
	r.POST("/parties/:id/end", h.End)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJoinUnknownCodeNotFoundAndNeverCreates(t *testing.T) {
	store := newFakeStore(nil)
	r := newTestRouter(store, uuid.New())

	w := doJSON(t, r, http.MethodPost, "/parties/"+uuid.New().String()+"/join", nil)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if store.createCalls != 0 {
		t.Fatalf("createCalls = %d, a failed join must never create a session", store.createCalls)
	}
	if store.party != nil {
		t.Fatal("a party appeared from a failed join")
	}
}

func TestJoinGarbageCodeNotFound(t *testing.T) {
	store := newFakeStore(nil)
	r := newTestRouter(store, uuid.New())

	w := doJSON(t, r, http.MethodPost, "/parties/not-a-code/join", nil)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 for an unparseable code", w.Code)
	}
}

func TestJoinEndedPartyConflict(t *testing.T) {
	host := uuid.New()
	p := &models.Party{ID: uuid.New(), HostID: host, Status: models.PartyStatusEnded}
	store := newFakeStore(p)
	r := newTestRouter(store, uuid.New())

	w := doJSON(t, r, http.MethodPost, "/parties/"+p.ID.String()+"/join", nil)

	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", w.Code)
	}
}

func TestJoinIsIdempotentForMembers(t *testing.T) {
	host := uuid.New()
	viewer := uuid.New()
	p := &models.Party{ID: uuid.New(), HostID: host, Status: models.PartyStatusActive}
	store := newFakeStore(p)
	store.members[viewer] = true
	r := newTestRouter(store, viewer)

	w := doJSON(t, r, http.MethodPost, "/parties/"+p.ID.String()+"/join", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 on re-join", w.Code)
	}
	if !store.members[viewer] {
		t.Fatal("membership lost on re-join")
	}
}

func TestNonHostStateWriteForbidden(t *testing.T) {
	host := uuid.New()
	viewer := uuid.New()
	p := &models.Party{ID: uuid.New(), HostID: host, Status: models.PartyStatusActive, CurrentPosition: 42}
	store := newFakeStore(p)
	store.members[viewer] = true
	r := newTestRouter(store, viewer)

	w := doJSON(t, r, http.MethodPatch, "/parties/"+p.ID.String()+"/state",
		map[string]interface{}{"position": 999.0, "playing": true})

	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
	if p.CurrentPosition != 42 || p.IsPlaying {
		t.Fatalf("state changed by non-host write: pos=%v playing=%v", p.CurrentPosition, p.IsPlaying)
	}
}

func TestNonHostMediaChangeForbidden(t *testing.T) {
	host := uuid.New()
	viewer := uuid.New()
	p := &models.Party{ID: uuid.New(), HostID: host, MediaSource: "movie.mp4", Status: models.PartyStatusActive}
	store := newFakeStore(p)
	store.members[viewer] = true
	r := newTestRouter(store, viewer)

	w := doJSON(t, r, http.MethodPatch, "/parties/"+p.ID.String()+"/media",
		map[string]string{"media_source": "other.mp4"})

	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
	if p.MediaSource != "movie.mp4" {
		t.Fatalf("media changed by non-host write: %q", p.MediaSource)
	}
}

func TestNonHostEndForbidden(t *testing.T) {
	host := uuid.New()
	viewer := uuid.New()
	p := &models.Party{ID: uuid.New(), HostID: host, Status: models.PartyStatusActive}
	store := newFakeStore(p)
	store.members[viewer] = true
	r := newTestRouter(store, viewer)

	w := doJSON(t, r, http.MethodPost, "/parties/"+p.ID.String()+"/end", nil)

	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
	if p.Status != models.PartyStatusActive {
		t.Fatalf("status = %s, non-host end must not change it", p.Status)
	}
}

func TestHostStateWriteSucceeds(t *testing.T) {
	host := uuid.New()
	p := &models.Party{ID: uuid.New(), HostID: host, Status: models.PartyStatusActive}
	store := newFakeStore(p)
	r := newTestRouter(store, host)

	w := doJSON(t, r, http.MethodPatch, "/parties/"+p.ID.String()+"/state",
		map[string]interface{}{"position": 12.5, "playing": true})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if p.CurrentPosition != 12.5 || !p.IsPlaying {
		t.Fatalf("state not written: pos=%v playing=%v", p.CurrentPosition, p.IsPlaying)
	}
}

func TestStateWriteOnEndedPartyConflict(t *testing.T) {
	host := uuid.New()
	p := &models.Party{ID: uuid.New(), HostID: host, Status: models.PartyStatusEnded}
	store := newFakeStore(p)
	r := newTestRouter(store, host)

	w := doJSON(t, r, http.MethodPatch, "/parties/"+p.ID.String()+"/state",
		map[string]interface{}{"position": 1.0, "playing": false})

	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409 once the party has ended", w.Code)
	}
}

func TestGetByIDHiddenFromNonMembers(t *testing.T) {
	host := uuid.New()
	p := &models.Party{ID: uuid.New(), HostID: host, Status: models.PartyStatusActive}
	store := newFakeStore(p)
	r := newTestRouter(store, uuid.New())

	w := doJSON(t, r, http.MethodGet, "/parties/"+p.ID.String(), nil)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 for non-members", w.Code)
	}
}
