// Package dashboard serves a live view of one haven session over HTTP and
// WebSocket.
//
// Connected clients receive sync_status, grocery_update and plan_update
// messages as the core changes. The JSON routes let an external UI read the
// grocery list and drive the session's checked-set.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/haven-app/haven/internal/grocery"
	"github.com/haven-app/haven/internal/status"
)

// MessageType names a broadcast frame.
type MessageType string

const (
	MessageTypeSyncStatus    MessageType = "sync_status"
	MessageTypeGroceryUpdate MessageType = "grocery_update"
	// MessageTypePlanUpdate says a recipe, plan cell or water count changed.
	MessageTypePlanUpdate MessageType = "plan_update"
)

// Message is one broadcast frame.
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// SyncStatusData is the payload of a sync_status message.
type SyncStatusData struct {
	State status.State `json:"state"`
	Error string       `json:"error,omitempty"`
	Since time.Time    `json:"since"`
}

func syncStatusData(snap status.Snapshot) SyncStatusData {
	return SyncStatusData{State: snap.State, Error: snap.Err, Since: snap.Since}
}

// PlanUpdateData is the payload of a plan_update message.
type PlanUpdateData struct {
	Kind string `json:"kind"`
	ID   string `json:"id,omitempty"`
	Date string `json:"date,omitempty"`
}

// Source is what the HTTP routes read and write.
type Source interface {
	GroceryList(days int) (grocery.List, error)
	ToggleGrocery(key string) bool
	SyncStatus() status.Snapshot
}

// Config holds server configuration.
type Config struct {
	Host string // default 127.0.0.1
	Port int    // 0 picks a free port

	Source Source
	Logger *log.Logger
}

// DefaultConfig returns a config bound to 127.0.0.1:8080.
func DefaultConfig() *Config {
	return &Config{
		Host:   "127.0.0.1",
		Port:   8080,
		Logger: newLogger(),
	}
}

func newLogger() *log.Logger {
	return log.New(os.Stderr, "[dashboard] ", log.LstdFlags)
}

// Server fans dashboard messages out to WebSocket clients and serves the
// JSON routes.
type Server struct {
	addr     string
	listener net.Listener
	http     *http.Server
	source   Source
	logger   *log.Logger

	clients *clientSet
	queue   chan Message

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer creates a dashboard server. A nil config means DefaultConfig.
func NewServer(config *Config) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	logger := config.Logger
	if logger == nil {
		logger = newLogger()
	}
	host := config.Host
	if host == "" {
		host = "127.0.0.1"
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:    net.JoinHostPort(host, strconv.Itoa(config.Port)),
		source:  config.Source,
		logger:  logger,
		clients: newClientSet(),
		queue:   make(chan Message, 100),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start listens and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln
	s.http = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.wg.Add(2)
	go s.fanOut()
	go func() {
		defer s.wg.Done()
		s.logger.Printf("Dashboard listening on %s", ln.Addr())
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Printf("Server error: %v", err)
		}
	}()
	return nil
}

// Stop disconnects every client and shuts the server down.
func (s *Server) Stop() error {
	s.cancel()
	for _, conn := range s.clients.drain() {
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
	}

	var err error
	if s.http != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := s.http.Shutdown(ctx); shutdownErr != nil {
			err = fmt.Errorf("server shutdown error: %w", shutdownErr)
		}
	}
	s.wg.Wait()
	s.logger.Println("Dashboard stopped")
	return err
}

// GetAddr returns the listening address once started.
func (s *Server) GetAddr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// ClientCount returns the number of connected WebSocket clients.
func (s *Server) ClientCount() int { return s.clients.len() }

// Broadcast queues msg for every client. It never blocks; a full queue
// drops the message.
func (s *Server) Broadcast(msg Message) {
	select {
	case s.queue <- msg:
	case <-s.ctx.Done():
	default:
		s.logger.Printf("Warning: broadcast queue full, dropping %s", msg.Type)
	}
}

// BroadcastData wraps data in a message of type t and broadcasts it.
func (s *Server) BroadcastData(t MessageType, data any) {
	msg, err := newMessage(t, data)
	if err != nil {
		s.logger.Printf("Failed to marshal %s: %v", t, err)
		return
	}
	s.Broadcast(msg)
}

func newMessage(t MessageType, data any) (Message, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: t, Timestamp: time.Now(), Data: raw}, nil
}

func (s *Server) fanOut() {
	defer s.wg.Done()

	for {
		var msg Message
		select {
		case <-s.ctx.Done():
			return
		case msg = <-s.queue:
		}

		if msg.Timestamp.IsZero() {
			msg.Timestamp = time.Now()
		}
		frame, err := json.Marshal(msg)
		if err != nil {
			s.logger.Printf("Failed to marshal %s: %v", msg.Type, err)
			continue
		}
		for _, conn := range s.clients.list() {
			if err := s.send(conn, frame); err != nil {
				s.logger.Printf("Dropping client: %v", err)
				s.disconnect(conn)
			}
		}
	}
}

func (s *Server) send(conn *websocket.Conn, frame []byte) error {
	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, frame)
}

func (s *Server) disconnect(conn *websocket.Conn) {
	n, ok := s.clients.remove(conn)
	if !ok {
		return
	}
	_ = conn.Close(websocket.StatusNormalClosure, "")
	s.logger.Printf("Client disconnected (total: %d)", n)
}
