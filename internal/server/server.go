// Package server is the transport edge: HTTP routes for health and
// catalogue data, and the websocket endpoint that attaches clients to
// rooms. Inbound frames are decoded here and serialised onto the owning
// room's loop.
package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/pitwars/pitwars/internal/bots"
	"github.com/pitwars/pitwars/internal/config"
	"github.com/pitwars/pitwars/internal/powers"
	"github.com/pitwars/pitwars/internal/protocol"
	"github.com/pitwars/pitwars/internal/room"
)

// Server wires the registry to the network.
type Server struct {
	cfg      *config.Server
	registry *room.Registry
	upgrader websocket.Upgrader
	log      *log.Logger
}

// New creates a server around a room registry.
func New(cfg *config.Server, registry *room.Registry, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		cfg:      cfg,
		registry: registry,
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		log:      logger.WithPrefix("server"),
	}
}

// Routes builds the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/", s.handleHealth)
	r.Get("/zhealth", s.handleHealth)
	r.Get("/powers", s.handlePowerCatalog)
	r.Get("/bots", s.handleBotCatalog)
	r.Get("/ws", s.handleWS)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handlePowerCatalog(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, powers.Catalog())
}

func (s *Server) handleBotCatalog(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, bots.Catalog())
}

// handleWS upgrades the connection and attaches it to a room. The
// session key comes from query parameters; a reconnect is advertised via
// prevSessionData = "<roomId>-<participantId>".
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	roomID := q.Get("room")
	username := q.Get("username")
	spectator := q.Get("spectator") == "true"

	if roomID == "" {
		http.Error(w, "missing room", http.StatusBadRequest)
		return
	}
	if username == "" && !spectator {
		username = "anonymous"
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	t := newWSTransport(conn)

	var rm *room.Room
	if spectator {
		rm, err = s.registry.Get(roomID)
		if err != nil {
			// a spectator cannot create a room
			t.Send(protocol.ErrorMsg{Type: protocol.MsgError, Message: "room not found"})
			t.Close()
			t.writePump()
			return
		}
	} else {
		rm = s.registry.GetOrCreate(roomID)
	}

	prevID := parsePrevSession(q.Get("prevSessionData"), roomID)

	var client *room.Client
	rm.Do(func() {
		client = rm.AddClient(t, prevID, username, spectator)
	})

	go t.writePump()
	s.readPump(conn, rm, client)
}

// readPump feeds decoded frames onto the room loop until the socket
// dies, then starts the disconnect grace window.
func (s *Server) readPump(conn *websocket.Conn, rm *room.Room, client *room.Client) {
	defer func() {
		rm.Do(func() { rm.MarkDisconnected(client) })
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		msg, err := protocol.Decode(data)
		if err != nil {
			// protocol errors are dropped
			s.log.Debug("dropping frame", "err", err)
			continue
		}
		rm.Do(func() { rm.HandleMessage(client, msg) })
	}
}

// parsePrevSession extracts the participant id from a
// "<roomId>-<participantId>" reconnect token. The token must name the
// room being joined.
func parsePrevSession(prev, roomID string) string {
	if prev == "" {
		return ""
	}
	if !strings.HasPrefix(prev, roomID+"-") {
		return ""
	}
	return prev[len(roomID)+1:]
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
