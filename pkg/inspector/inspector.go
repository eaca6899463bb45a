package inspector

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/vango-go/trackstore/pkg/store"
)

// DefaultHistory is the number of events kept for GET /events.
const DefaultHistory = 256

// Event describes one finished action.
type Event struct {
	ID         string         `json:"id"`
	Store      string         `json:"store"`
	Action     string         `json:"action"`
	Time       time.Time      `json:"time"`
	DurationMS float64        `json:"durationMs"`
	Changed    int            `json:"changed"`
	Notified   int            `json:"notified"`
	Error      string         `json:"error,omitempty"`
	Panicked   bool           `json:"panicked,omitempty"`
	State      map[string]any `json:"state,omitempty"`
}

// StoreInfo summarizes a store as of its latest action.
type StoreInfo struct {
	ID          string         `json:"id"`
	Actions     []string       `json:"actions"`
	Subscribers int            `json:"subscribers"`
	Edges       int            `json:"edges"`
	Dispatched  int            `json:"dispatched"`
	Updated     time.Time      `json:"updated"`
	State       map[string]any `json:"state,omitempty"`
}

// Option configures an Inspector.
type Option func(*Inspector)

// WithHistory sets how many events are kept. Zero keeps none.
func WithHistory(n int) Option {
	return func(i *Inspector) {
		if n >= 0 {
			i.historySize = n
		}
	}
}

// WithLogger sets the inspector's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Inspector) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// Inspector records store snapshots and streams action events.
type Inspector struct {
	mu          sync.RWMutex
	stores      map[string]*StoreInfo
	history     []Event
	historySize int

	clients   map[*websocket.Conn]bool
	clientsMu sync.RWMutex
	writeMu   sync.Mutex
	upgrader  websocket.Upgrader

	logger *slog.Logger
}

// New creates an Inspector.
func New(opts ...Option) *Inspector {
	i := &Inspector{
		stores:      make(map[string]*StoreInfo),
		historySize: DefaultHistory,
		clients:     make(map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger: slog.Default().With("component", "inspector"),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Watch records the current state of s and observes its actions. Call it on
// the goroutine that owns s, and do not also pass i to store.WithObserver for
// the same store. Stores that only have i as an observer appear after their
// first action.
func (i *Inspector) Watch(s *store.Store) error {
	snap, err := s.Snapshot()
	if err != nil {
		return err
	}

	i.mu.Lock()
	info := i.entry(s.ID())
	i.refresh(info, s, snap)
	i.mu.Unlock()

	s.AddObserver(i)
	return nil
}

// BeforeAction implements store.Observer.
func (i *Inspector) BeforeAction(ctx context.Context, _, _ string) context.Context {
	return ctx
}

// AfterAction implements store.Observer. The snapshot is taken here, on the
// goroutine running the action.
func (i *Inspector) AfterAction(_ context.Context, ev store.ActionEvent) {
	e := Event{
		ID:         uuid.NewString(),
		Store:      ev.StoreID,
		Action:     ev.Action,
		Time:       time.Now(),
		DurationMS: float64(ev.Duration) / float64(time.Millisecond),
		Changed:    ev.Flush.Changed,
		Notified:   ev.Flush.Notified,
		Panicked:   ev.Panicked,
	}
	if ev.Err != nil {
		e.Error = ev.Err.Error()
	}

	if ev.Store != nil {
		snap, err := ev.Store.Snapshot()
		if err != nil {
			i.logger.Warn("snapshot failed", "store", ev.StoreID, "error", err)
		}
		e.State = snap

		i.mu.Lock()
		info := i.entry(ev.StoreID)
		i.refresh(info, ev.Store, snap)
		info.Dispatched++
		i.record(e)
		i.mu.Unlock()
	} else {
		i.mu.Lock()
		i.record(e)
		i.mu.Unlock()
	}

	i.broadcast(e)
}

func (i *Inspector) entry(id string) *StoreInfo {
	info, ok := i.stores[id]
	if !ok {
		info = &StoreInfo{ID: id}
		i.stores[id] = info
	}
	return info
}

func (i *Inspector) refresh(info *StoreInfo, s *store.Store, snap map[string]any) {
	tr := s.Container().Tracker()
	info.Actions = s.Actions()
	info.Subscribers = tr.Subscribers()
	info.Edges = tr.Edges()
	info.Updated = time.Now()
	info.State = snap
}

func (i *Inspector) record(e Event) {
	if i.historySize == 0 {
		return
	}
	i.history = append(i.history, e)
	if over := len(i.history) - i.historySize; over > 0 {
		i.history = append(i.history[:0:0], i.history[over:]...)
	}
}

// Stores returns summaries of every known store, sorted by ID, without state.
func (i *Inspector) Stores() []StoreInfo {
	i.mu.RLock()
	defer i.mu.RUnlock()

	out := make([]StoreInfo, 0, len(i.stores))
	for _, info := range i.stores {
		summary := *info
		summary.State = nil
		out = append(out, summary)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out
}

// Store returns the latest summary and snapshot of the store id.
func (i *Inspector) Store(id string) (StoreInfo, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	info, ok := i.stores[id]
	if !ok {
		return StoreInfo{}, false
	}
	return *info, true
}

// Events returns the kept events, oldest first.
func (i *Inspector) Events() []Event {
	i.mu.RLock()
	defer i.mu.RUnlock()

	out := make([]Event, len(i.history))
	copy(out, i.history)
	return out
}

// Handler returns the inspector's HTTP routes.
func (i *Inspector) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/stores", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, i.Stores())
	})
	r.Get("/stores/{id}", func(w http.ResponseWriter, r *http.Request) {
		info, ok := i.Store(chi.URLParam(r, "id"))
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown store"})
			return
		}
		writeJSON(w, http.StatusOK, info)
	})
	r.Get("/events", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, i.Events())
	})
	r.Get("/ws", i.HandleWebSocket)

	return r
}

// HandleWebSocket upgrades the connection and streams events until the client
// disconnects.
func (i *Inspector) HandleWebSocket(w http.ResponseWriter, req *http.Request) {
	conn, err := i.upgrader.Upgrade(w, req, nil)
	if err != nil {
		return
	}

	i.clientsMu.Lock()
	i.clients[conn] = true
	i.clientsMu.Unlock()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	i.clientsMu.Lock()
	delete(i.clients, conn)
	i.clientsMu.Unlock()
	conn.Close()
}

// broadcast sends e to all connected clients.
func (i *Inspector) broadcast(e Event) {
	data, err := json.Marshal(e)
	if err != nil {
		i.logger.Warn("encode event failed", "error", err)
		return
	}

	i.clientsMu.RLock()
	clients := make([]*websocket.Conn, 0, len(i.clients))
	for client := range i.clients {
		clients = append(clients, client)
	}
	i.clientsMu.RUnlock()

	// Stores may run actions on different goroutines; a connection takes one
	// writer at a time.
	i.writeMu.Lock()
	defer i.writeMu.Unlock()

	for _, client := range clients {
		if err := client.WriteMessage(websocket.TextMessage, data); err != nil {
			i.clientsMu.Lock()
			delete(i.clients, client)
			i.clientsMu.Unlock()
			client.Close()
		}
	}
}

// ClientCount returns the number of connected clients.
func (i *Inspector) ClientCount() int {
	i.clientsMu.RLock()
	defer i.clientsMu.RUnlock()
	return len(i.clients)
}

// Close closes all client connections.
func (i *Inspector) Close() {
	i.clientsMu.Lock()
	defer i.clientsMu.Unlock()

	for client := range i.clients {
		client.Close()
		delete(i.clients, client)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
