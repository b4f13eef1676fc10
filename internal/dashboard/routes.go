package dashboard

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"

	"github.com/coder/websocket"

	"github.com/haven-app/haven/internal/grocery"
)

var errNoSource = errors.New("no source attached")

// Handler returns the HTTP routes without starting a listener. Wrong
// methods get 405 from the mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /status", s.withSource(s.handleStatus))
	mux.HandleFunc("GET /grocery", s.withSource(s.handleGrocery))
	mux.HandleFunc("POST /grocery/toggle", s.withSource(s.handleGroceryToggle))
	mux.HandleFunc("GET /{$}", s.handleRoot)
	return mux
}

func (s *Server) withSource(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.source == nil {
			writeError(w, http.StatusServiceUnavailable, errNoSource)
			return
		}
		h(w, r)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"localhost:*", "127.0.0.1:*"},
	})
	if err != nil {
		s.logger.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	n := s.clients.add(conn)
	s.logger.Printf("Client connected (total: %d)", n)

	// New clients start from the current status.
	if s.source != nil {
		msg, err := newMessage(MessageTypeSyncStatus, syncStatusData(s.source.SyncStatus()))
		if err == nil {
			if frame, err := json.Marshal(msg); err == nil {
				_ = s.send(conn, frame)
			}
		}
	}

	// Client frames are ignored; reading only detects the disconnect.
	go func() {
		defer s.disconnect(conn)
		for {
			if _, _, err := conn.Read(s.ctx); err != nil {
				return
			}
		}
	}()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"clients": s.ClientCount(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, syncStatusData(s.source.SyncStatus()))
}

// handleGrocery serves GET /grocery?days=N. Without days the source's
// configured window is used.
func (s *Server) handleGrocery(w http.ResponseWriter, r *http.Request) {
	days := 0
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid days %q", v))
			return
		}
		days = n
	}

	list, err := s.source.GroceryList(days)
	switch {
	case errors.Is(err, grocery.ErrUnsupportedWindow):
		writeError(w, http.StatusBadRequest, err)
	case err != nil:
		writeError(w, http.StatusInternalServerError, err)
	default:
		writeJSON(w, http.StatusOK, list)
	}
}

// ToggleRequest is the body of POST /grocery/toggle.
type ToggleRequest struct {
	Key string `json:"key"`
}

// ToggleResponse reports the item's new checked state.
type ToggleResponse struct {
	Key     string `json:"key"`
	Checked bool   `json:"checked"`
}

func (s *Server) handleGroceryToggle(w http.ResponseWriter, r *http.Request) {
	var req ToggleRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid body: %w", err))
		return
	}
	if req.Key == "" {
		writeError(w, http.StatusBadRequest, errors.New("key is required"))
		return
	}
	writeJSON(w, http.StatusOK, ToggleResponse{Key: req.Key, Checked: s.source.ToggleGrocery(req.Key)})
}

var indexPage = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head><title>haven</title></head>
<body>
<h1>haven</h1>
<ul>
<li>Live updates: <code>ws://{{.}}/ws</code></li>
<li><a href="/status">Sync status</a></li>
<li>Grocery list: <a href="/grocery?days=3">3</a> · <a href="/grocery">default</a> · <a href="/grocery?days=14">14</a> days</li>
<li><a href="/health">Health</a></li>
</ul>
</body>
</html>
`))

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = indexPage.Execute(w, r.Host)
}
