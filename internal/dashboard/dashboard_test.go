package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/haven-app/haven/internal/grocery"
	"github.com/haven-app/haven/internal/haven"
	"github.com/haven-app/haven/internal/schema"
	"github.com/haven-app/haven/internal/status"
)

var testToday = time.Date(2024, 6, 1, 9, 0, 0, 0, time.Local)

func quiet() *log.Logger { return log.New(io.Discard, "", 0) }

// setupCore returns a started core on an ephemeral store with one planned
// recipe for today.
func setupCore(t *testing.T) *haven.Core {
	t.Helper()
	core := haven.New(haven.Options{
		Logger: quiet(),
		Now:    func() time.Time { return testToday },
	})
	t.Cleanup(func() { _ = core.Close() })

	ctx := context.Background()
	if err := core.Start(ctx); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	r, err := core.SaveRecipe(ctx, schema.Recipe{
		ID:          "pancakes",
		Name:        "Pancakes",
		Ingredients: []schema.Ingredient{{Item: "Flour", Quantity: 2, Unit: "cup"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := core.AssignMeal(ctx, "2024-06-01", schema.SlotBreakfast, r.ID, schema.ProfileV); err != nil {
		t.Fatal(err)
	}
	return core
}

func startServer(t *testing.T, source Source) *Server {
	t.Helper()
	server := NewServer(&Config{Port: 0, Source: source, Logger: quiet()})
	if err := server.Start(); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	t.Cleanup(func() { _ = server.Stop() })
	return server
}

func dial(t *testing.T, ctx context.Context, server *Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.Dial(ctx, "ws://"+server.GetAddr()+"/ws", nil)
	if err != nil {
		t.Fatalf("Failed to connect WebSocket: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func readMessage(t *testing.T, ctx context.Context, conn *websocket.Conn) Message {
	t.Helper()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("Failed to read message: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("Failed to unmarshal message: %v", err)
	}
	return msg
}

// readUntil skips messages until one of type want arrives.
func readUntil(t *testing.T, ctx context.Context, conn *websocket.Conn, want MessageType) Message {
	t.Helper()
	for {
		msg := readMessage(t, ctx, conn)
		if msg.Type == want {
			return msg
		}
	}
}

func TestServerStartStop(t *testing.T) {
	server := NewServer(&Config{Port: 0, Logger: quiet()})
	if err := server.Start(); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	if server.GetAddr() == "" {
		t.Fatal("Server address is empty")
	}

	resp, err := http.Get("http://" + server.GetAddr() + "/health")
	if err != nil {
		t.Fatalf("health check failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d", resp.StatusCode)
	}

	if err := server.Stop(); err != nil {
		t.Fatalf("Failed to stop server: %v", err)
	}
}

func TestDefaultLoggersArePrefixed(t *testing.T) {
	server := NewServer(nil)
	if got := server.logger.Prefix(); got != "[dashboard] " {
		t.Errorf("server logger prefix = %q", got)
	}
	if server.logger == log.Default() {
		t.Error("server logger should not be the process-wide default")
	}
	if got := DefaultConfig().Logger.Prefix(); got != "[dashboard] " {
		t.Errorf("DefaultConfig logger prefix = %q", got)
	}
	h := NewHandler(server, nil, nil)
	if got := h.logger.Prefix(); got != "[dashboard] " {
		t.Errorf("handler logger prefix = %q", got)
	}
}

func TestWebSocket_WelcomeIsSyncStatus(t *testing.T) {
	core := setupCore(t)
	server := startServer(t, core)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn := dial(t, ctx, server)

	msg := readMessage(t, ctx, conn)
	if msg.Type != MessageTypeSyncStatus {
		t.Fatalf("welcome type = %s, want %s", msg.Type, MessageTypeSyncStatus)
	}
	var data SyncStatusData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		t.Fatal(err)
	}
	if data.State != status.StateLocalOnly {
		t.Errorf("state = %s, want local-only", data.State)
	}
	if server.ClientCount() != 1 {
		t.Errorf("ClientCount() = %d, want 1", server.ClientCount())
	}
}

func TestBroadcast_MultipleClients(t *testing.T) {
	server := startServer(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conns := make([]*websocket.Conn, 3)
	for i := range conns {
		conns[i] = dial(t, ctx, server)
	}
	deadline := time.Now().Add(5 * time.Second)
	for server.ClientCount() < len(conns) && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	server.BroadcastData(MessageTypePlanUpdate, PlanUpdateData{Kind: "plan_changed", Date: "2024-06-01"})

	for i, conn := range conns {
		msg := readMessage(t, ctx, conn)
		var data PlanUpdateData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			t.Fatal(err)
		}
		if msg.Type != MessageTypePlanUpdate || data.Date != "2024-06-01" {
			t.Errorf("client %d got %+v / %+v", i, msg, data)
		}
	}
}

func TestGroceryRoutes(t *testing.T) {
	core := setupCore(t)
	server := startServer(t, core)
	base := "http://" + server.GetAddr()

	resp, err := http.Get(base + "/grocery?days=3")
	if err != nil {
		t.Fatal(err)
	}
	var list grocery.List
	err = json.NewDecoder(resp.Body).Decode(&list)
	resp.Body.Close()
	if err != nil {
		t.Fatal(err)
	}
	if len(list.Days) != 3 || list.Total != 1 || list.Groups[0].Items[0].Item != "Flour" {
		t.Fatalf("list = %+v", list)
	}
	key := list.Groups[0].Items[0].Key

	body, _ := json.Marshal(ToggleRequest{Key: key})
	resp, err = http.Post(base+"/grocery/toggle", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	var toggled ToggleResponse
	err = json.NewDecoder(resp.Body).Decode(&toggled)
	resp.Body.Close()
	if err != nil {
		t.Fatal(err)
	}
	if !toggled.Checked {
		t.Error("toggle should check the item")
	}

	after, err := core.GroceryList(3)
	if err != nil {
		t.Fatal(err)
	}
	if !after.Groups[0].Items[0].Checked {
		t.Error("checked state not visible through the core")
	}

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"unsupported window", http.MethodGet, "/grocery?days=5", "", http.StatusBadRequest},
		{"non-numeric window", http.MethodGet, "/grocery?days=week", "", http.StatusBadRequest},
		{"default window", http.MethodGet, "/grocery", "", http.StatusOK},
		{"toggle via GET", http.MethodGet, "/grocery/toggle", "", http.StatusMethodNotAllowed},
		{"toggle without key", http.MethodPost, "/grocery/toggle", `{}`, http.StatusBadRequest},
		{"toggle bad body", http.MethodPost, "/grocery/toggle", `{`, http.StatusBadRequest},
		{"status", http.MethodGet, "/status", "", http.StatusOK},
		{"unknown path", http.MethodGet, "/nope", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, base+tt.path, bytes.NewBufferString(tt.body))
			if err != nil {
				t.Fatal(err)
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatal(err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestHandler_ForwardsCoreChanges(t *testing.T) {
	core := setupCore(t)
	server := startServer(t, core)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dial(t, ctx, server)
	readUntil(t, ctx, conn, MessageTypeSyncStatus)

	events := core.Subscribe()
	changes := core.Tracker().Subscribe()
	handler := NewHandler(server, core, quiet())
	go handler.Run(ctx, events, changes)

	if _, err := core.AdjustWater(ctx, "2024-06-01", schema.ProfileV, 1); err != nil {
		t.Fatal(err)
	}
	msg := readUntil(t, ctx, conn, MessageTypePlanUpdate)
	var plan PlanUpdateData
	if err := json.Unmarshal(msg.Data, &plan); err != nil {
		t.Fatal(err)
	}
	if plan.Kind != string(haven.EventWaterChanged) {
		t.Errorf("plan update kind = %q", plan.Kind)
	}

	if _, err := core.AssignMeal(ctx, "2024-06-02", schema.SlotLunch, "pancakes", schema.ProfileM); err != nil {
		t.Fatal(err)
	}
	msg = readUntil(t, ctx, conn, MessageTypeGroceryUpdate)
	var list grocery.List
	if err := json.Unmarshal(msg.Data, &list); err != nil {
		t.Fatal(err)
	}
	if q := list.Groups[0].Items[0].Quantity; q != 4 {
		t.Errorf("flour quantity = %v, want 4", q)
	}

	if err := core.Tracker().BeginSync(); err != nil {
		t.Fatal(err)
	}
	msg = readUntil(t, ctx, conn, MessageTypeSyncStatus)
	var st SyncStatusData
	if err := json.Unmarshal(msg.Data, &st); err != nil {
		t.Fatal(err)
	}
	if st.State != status.StateSyncing {
		t.Errorf("state = %s, want syncing", st.State)
	}
}
