package recorder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
)

type stubStore struct {
	sessions  []*Session
	lastLimit int
}

func (s *stubStore) UpsertSession(ctx context.Context, session *Session) error {
	return nil
}

func (s *stubStore) ListRecentSessions(ctx context.Context, limit int) ([]*Session, error) {
	s.lastLimit = limit

	if limit > len(s.sessions) {
		limit = len(s.sessions)
	}

	return s.sessions[:limit], nil
}

func (s *stubStore) GetSession(ctx context.Context, id string) (*Session, error) {
	for _, session := range s.sessions {
		if session.ID.String() == id {
			return session, nil
		}
	}

	return nil, errors.Errorf("no session with id %s", id)
}

func newTestHTTP(store SessionStore) *HTTP {
	return NewHTTP(0, store, NewLiveHub(testLogger()), testLogger())
}

func TestListSessionsAppliesDefaultLimit(t *testing.T) {
	store := &stubStore{}

	for i := 0; i < 25; i++ {
		store.sessions = append(store.sessions, NewSession(testSnapshot(0, 0), time.Now()))
	}

	w := httptest.NewRecorder()
	newTestHTTP(store).Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sessions", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	if store.lastLimit != defaultListLimit {
		t.Errorf("Expected the default limit of %d, got %d", defaultListLimit, store.lastLimit)
	}

	var sessions []*Session

	if err := json.NewDecoder(w.Body).Decode(&sessions); err != nil {
		t.Fatalf("Could not decode response: %s", err)
	}

	if len(sessions) != defaultListLimit {
		t.Errorf("Expected %d sessions, got %d", defaultListLimit, len(sessions))
	}
}

func TestListSessionsRejectsBadLimit(t *testing.T) {
	for _, limit := range []string{"0", "-3", "abc"} {
		w := httptest.NewRecorder()
		newTestHTTP(&stubStore{}).Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sessions?limit="+limit, nil))

		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400 for limit %q, got %d", limit, w.Code)
		}
	}
}

func TestGetSessionByID(t *testing.T) {
	session := NewSession(testSnapshot(0, 0), time.Now())
	store := &stubStore{sessions: []*Session{session}}

	w := httptest.NewRecorder()
	newTestHTTP(store).Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sessions/"+session.ID.String(), nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var loaded Session

	if err := json.NewDecoder(w.Body).Decode(&loaded); err != nil {
		t.Fatalf("Could not decode response: %s", err)
	}

	if loaded.ID != session.ID {
		t.Errorf("Expected session %s, got %s", session.ID, loaded.ID)
	}
}

func TestGetSessionUnknownIDIs404(t *testing.T) {
	w := httptest.NewRecorder()
	newTestHTTP(&stubStore{}).Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sessions/unknown", nil))

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}
