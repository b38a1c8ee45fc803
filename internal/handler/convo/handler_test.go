package convo

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/parleylab/parley/internal/flow"
	model "github.com/parleylab/parley/internal/model/convo"
	"github.com/parleylab/parley/internal/model/persona"
	convoservice "github.com/parleylab/parley/internal/service/convo"
	"github.com/parleylab/parley/internal/store"
)

type memStore struct {
	conversations map[string]*model.Conversation
	users         map[string]*store.User
}

func newMemStore() *memStore {
	return &memStore{
		conversations: make(map[string]*model.Conversation),
		users:         make(map[string]*store.User),
	}
}

func (m *memStore) CreateConversation(ctx context.Context, c *model.Conversation) error {
	clone := *c
	m.conversations[c.ID] = &clone
	return nil
}

func (m *memStore) GetConversation(ctx context.Context, id, userName string) (*model.Conversation, error) {
	conv, ok := m.conversations[id]
	if !ok || conv.UserName != userName {
		return nil, store.ErrNotFound
	}
	clone := *conv
	return &clone, nil
}

func (m *memStore) UpdateConversation(ctx context.Context, c *model.Conversation) error {
	clone := *c
	m.conversations[c.ID] = &clone
	return nil
}

func (m *memStore) ListConversations(ctx context.Context, userName string, kind model.Kind, level int) ([]model.Summary, error) {
	var summaries []model.Summary
	for _, conv := range m.conversations {
		if conv.UserName == userName && conv.Info.Kind == kind && conv.Info.Level == level {
			summaries = append(summaries, conv.Summarize())
		}
	}
	return summaries, nil
}

func (m *memStore) EnsureUser(ctx context.Context, name string) (store.User, error) {
	user, ok := m.users[name]
	if !ok {
		user = &store.User{Name: name, MessageCounts: map[string]int{}, MaxUnlockedStage: flow.StageLevel0}
		m.users[name] = user
	}
	return *user, nil
}

func (m *memStore) IncrementMessageCount(ctx context.Context, name, stage string) (int, error) {
	user := m.users[name]
	user.MessageCounts[stage]++
	return user.MessageCounts[stage], nil
}

func (m *memStore) UnlockStage(ctx context.Context, name, stage string) error {
	m.users[name].MaxUnlockedStage = stage
	return nil
}

func setupRouter() *chi.Mux {
	personas := persona.NewMemoryStore(persona.Seed(), persona.Topics())
	svc := convoservice.NewService(newMemStore(), personas, nil)
	handler := New(svc)

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r
}

func doRequest(r http.Handler, method, path, user string, body any) *httptest.ResponseRecorder {
	var payload []byte
	if body != nil {
		payload, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-User-Name", user)
	}
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestCreateConversation(t *testing.T) {
	r := setupRouter()

	resp := doRequest(r, http.MethodPost, "/conversations", "bob", map[string]any{"kind": "level", "level": 0})
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var conv struct {
		ID       string          `json:"id"`
		Agent    string          `json:"agent"`
		State    json.RawMessage `json:"state"`
		Elements []any           `json:"elements"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &conv); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if conv.ID == "" || conv.Agent == "" {
		t.Fatalf("conversation missing identity: %s", resp.Body.String())
	}
	if len(conv.State) != 0 && string(conv.State) != "null" {
		t.Fatalf("fresh conversation should have no state view, got %s", conv.State)
	}
	if conv.Elements == nil {
		t.Fatal("elements should serialize as an empty array, not null")
	}
}

func TestCreateMissingUserHeader(t *testing.T) {
	r := setupRouter()

	resp := doRequest(r, http.MethodPost, "/conversations", "", map[string]any{"kind": "level"})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestCreateInvalidKind(t *testing.T) {
	r := setupRouter()

	resp := doRequest(r, http.MethodPost, "/conversations", "bob", map[string]any{"kind": "quiz"})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestCreateLockedStage(t *testing.T) {
	r := setupRouter()

	resp := doRequest(r, http.MethodPost, "/conversations", "bob", map[string]any{"kind": "level", "level": 1})
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestGetUnknownConversation(t *testing.T) {
	r := setupRouter()

	resp := doRequest(r, http.MethodGet, "/conversations/missing", "bob", nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestListConversationsEmpty(t *testing.T) {
	r := setupRouter()

	resp := doRequest(r, http.MethodGet, "/conversations?kind=level&level=0", "bob", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var summaries []model.Summary
	if err := json.Unmarshal(resp.Body.Bytes(), &summaries); err != nil {
		t.Fatalf("list should be a JSON array: %v (%s)", err, resp.Body.String())
	}
	if summaries == nil {
		t.Fatal("list should serialize as an empty array, not null")
	}
}

func TestNextWithoutGenerator(t *testing.T) {
	r := setupRouter()

	created := doRequest(r, http.MethodPost, "/conversations", "bob", map[string]any{"kind": "level", "level": 0})
	var conv struct {
		ID string `json:"id"`
	}
	json.Unmarshal(created.Body.Bytes(), &conv)

	resp := doRequest(r, http.MethodPost, "/conversations/"+conv.ID+"/next", "bob",
		map[string]any{"option": map[string]any{"kind": "none"}})
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without a generator, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestConversationIsolationBetweenUsers(t *testing.T) {
	r := setupRouter()

	created := doRequest(r, http.MethodPost, "/conversations", "bob", map[string]any{"kind": "level", "level": 0})
	var conv struct {
		ID string `json:"id"`
	}
	json.Unmarshal(created.Body.Bytes(), &conv)

	resp := doRequest(r, http.MethodGet, "/conversations/"+conv.ID, "mallory", nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for a foreign conversation, got %d", resp.Code)
	}
}
