package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// MockHelixServer creates a test server that mocks Twitch Helix API responses.
type MockHelixServer struct {
	*httptest.Server
	Handlers map[string]http.HandlerFunc
}

// NewMockHelixServer creates a new mock Helix API server.
func NewMockHelixServer(t *testing.T) *MockHelixServer {
	t.Helper()
	m := &MockHelixServer{
		Handlers: make(map[string]http.HandlerFunc),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if handler, ok := m.Handlers[r.URL.Path]; ok {
			handler(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(m.Close)
	return m
}

// MockUserResponse adds a handler for the /users endpoint.
func (m *MockHelixServer) MockUserResponse(userID, login string) {
	m.Handlers["/users"] = func(w http.ResponseWriter, r *http.Request) {
		response := map[string]any{
			"data": []map[string]string{
				{"id": userID, "login": login},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response)
	}
}

// MockStreamsResponse adds a handler for the /streams endpoint.
func (m *MockHelixServer) MockStreamsResponse(streams []map[string]any) {
	m.Handlers["/streams"] = func(w http.ResponseWriter, r *http.Request) {
		response := map[string]any{"data": streams}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response)
	}
}

// MockFollowersResponse adds a handler for the /channels/followers endpoint.
func (m *MockHelixServer) MockFollowersResponse(followers []map[string]any) {
	m.Handlers["/channels/followers"] = func(w http.ResponseWriter, r *http.Request) {
		response := map[string]any{"data": followers}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response)
	}
}
