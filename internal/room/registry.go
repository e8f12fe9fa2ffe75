package room

import (
	"errors"
	"sync"

	"github.com/charmbracelet/log"
)

var ErrRoomNotFound = errors.New("room not found")

// Registry is the process-wide room directory. Rooms are created on
// first arrival and drop out when they empty.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*Room
	log   *log.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *log.Logger) *Registry {
	if logger == nil {
		logger = log.Default()
	}
	return &Registry{
		rooms: make(map[string]*Room),
		log:   logger.WithPrefix("registry"),
	}
}

// GetOrCreate returns the room, creating and starting it when absent.
func (reg *Registry) GetOrCreate(roomID string) *Room {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if r, ok := reg.rooms[roomID]; ok {
		return r
	}
	r := NewRoom(roomID, reg.remove, reg.log)
	reg.rooms[roomID] = r
	r.Start()
	reg.log.Info("room created", "room", roomID)
	return r
}

// Get returns an existing room.
func (reg *Registry) Get(roomID string) (*Room, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	r, ok := reg.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return r, nil
}

// remove drops a room from the directory. Rooms call this through
// their onEmpty hook while disposing.
func (reg *Registry) remove(roomID string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	delete(reg.rooms, roomID)
	reg.log.Info("room removed", "room", roomID)
}

// Len returns the number of live rooms.
func (reg *Registry) Len() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.rooms)
}

// Close disposes every room. Called at server shutdown.
func (reg *Registry) Close() {
	reg.mu.Lock()
	rooms := make([]*Room, 0, len(reg.rooms))
	for _, r := range reg.rooms {
		rooms = append(rooms, r)
	}
	reg.rooms = make(map[string]*Room)
	reg.mu.Unlock()

	for _, r := range rooms {
		r.Close()
	}
}
