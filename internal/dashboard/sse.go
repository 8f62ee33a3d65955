// Package dashboard streams page events (import progress, toasts) to
// connected browsers over server-sent events.
package dashboard

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"EstateDesk/api/constants"
)

// Event is one server-sent message.
type Event struct {
	Type string    `json:"type"`
	Data any       `json:"data,omitempty"`
	Time time.Time `json:"time"`
}

type SSEClient struct {
	userID   string
	mu       sync.Mutex
	writer   http.ResponseWriter
	flusher  http.Flusher
	done     chan struct{}
	lastPing time.Time
}

// SSEServer fans events out to one stream per user. A new connection for a
// user replaces the previous one.
type SSEServer struct {
	mu           sync.RWMutex
	clients      map[string]*SSEClient
	userOf       func(*http.Request) string
	pingInterval time.Duration
	stopCh       chan struct{}
	stopOnce     sync.Once
	log          *slog.Logger
}

// NewSSEServer builds a hub. userOf resolves the authenticated user of a
// request; an empty result rejects the connection.
func NewSSEServer(userOf func(*http.Request) string, pingInterval time.Duration) *SSEServer {
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	return &SSEServer{
		clients:      make(map[string]*SSEClient),
		userOf:       userOf,
		pingInterval: pingInterval,
		stopCh:       make(chan struct{}),
		log:          slog.Default().With("component", "sse"),
	}
}

func (s *SSEServer) Name() string { return "sse" }

func (s *SSEServer) Start() error {
	go s.pingClients()
	return nil
}

func (s *SSEServer) Stop() error {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		s.mu.Lock()
		for _, client := range s.clients {
			close(client.done)
		}
		s.clients = make(map[string]*SSEClient)
		s.mu.Unlock()
	})
	return nil
}

// HandleSSE holds the connection open until the client leaves, the user
// reconnects elsewhere, or the hub stops.
func (s *SSEServer) HandleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}
	userID := s.userOf(r)
	if userID == "" {
		http.Error(w, constants.ErrPleaseLogin, http.StatusUnauthorized)
		return
	}

	w.Header().Set(constants.ContentTypeText, constants.ContentTypeSSE)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set(constants.HeaderAccessControlAllowHeaders, "Cache-Control")

	client := &SSEClient{
		userID:   userID,
		writer:   w,
		flusher:  flusher,
		done:     make(chan struct{}),
		lastPing: time.Now(),
	}

	s.mu.Lock()
	if existing, ok := s.clients[userID]; ok {
		close(existing.done)
	}
	s.clients[userID] = client
	s.mu.Unlock()

	s.log.Info("client connected", "user", userID, "remote", r.RemoteAddr)
	_ = client.send(Event{Type: "connected", Time: time.Now()})

	defer func() {
		s.mu.Lock()
		if s.clients[userID] == client {
			delete(s.clients, userID)
		}
		s.mu.Unlock()
		s.log.Info("client disconnected", "user", userID)
	}()

	select {
	case <-client.done:
	case <-r.Context().Done():
	case <-s.stopCh:
	}
}

func (c *SSEClient) send(ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := fmt.Fprintf(c.writer, "event: %s\ndata: %s\n\n", ev.Type, data); err != nil {
		return err
	}
	c.flusher.Flush()
	return nil
}

// Publish sends an event to a user. It reports whether the user was
// connected and the write succeeded.
func (s *SSEServer) Publish(userID, eventType string, data any) bool {
	s.mu.RLock()
	client, ok := s.clients[userID]
	s.mu.RUnlock()
	if !ok {
		return false
	}
	if err := client.send(Event{Type: eventType, Data: data, Time: time.Now()}); err != nil {
		s.log.Warn("send failed", "user", userID, "error", err)
		s.drop(userID, client)
		return false
	}
	return true
}

func (s *SSEServer) drop(userID string, client *SSEClient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clients[userID] == client {
		delete(s.clients, userID)
		close(client.done)
	}
}

func (s *SSEServer) pingClients() {
	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.mu.RLock()
			clients := make(map[string]*SSEClient, len(s.clients))
			for id, c := range s.clients {
				clients[id] = c
			}
			s.mu.RUnlock()
			for id, c := range clients {
				if err := c.send(Event{Type: "ping", Time: time.Now()}); err != nil {
					s.drop(id, c)
					continue
				}
				c.mu.Lock()
				c.lastPing = time.Now()
				c.mu.Unlock()
			}
		case <-s.stopCh:
			return
		}
	}
}

// ClientCount returns the number of connected users.
func (s *SSEServer) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}
