package main

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Registry owns the id -> room mapping. Rooms themselves serialize their
// own state; the registry lock only guards the map.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*Room

	cfg *Config

	// onChange fires after any mutation that alters the matchmaking
	// list, so the gateway can refresh lobby clients.
	onChange func()
}

func newRegistry(cfg *Config) *Registry {
	reg := &Registry{
		rooms: make(map[string]*Room),
		cfg:   cfg,
	}
	if cfg.roomTimeout > 0 {
		go reg.reaperLoop()
	}
	return reg
}

func (reg *Registry) notifyChanged() {
	if reg.onChange != nil {
		reg.onChange()
	}
}

// CreateRoom registers a new, unstarted room. Private rooms store a bcrypt
// hash of the password, never the plaintext.
func (reg *Registry) CreateRoom(name, password string, private bool) (*Room, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errEmptyName
	}

	var hash []byte
	if private {
		var err error
		hash, err = bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
	}

	room := newRoom(name, private, hash)

	reg.mu.Lock()
	reg.rooms[room.ID] = room
	reg.mu.Unlock()

	logf(reg.cfg, "ROOMS: Created room %q (%s)", name, room.ID)
	reg.notifyChanged()

	return room, nil
}

func (reg *Registry) Room(id string) *Room {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	return reg.rooms[id]
}

// ListRooms snapshots every non-started room for matchmaking.
func (reg *Registry) ListRooms() []roomSummary {
	reg.mu.Lock()
	rooms := make([]*Room, 0, len(reg.rooms))
	for _, r := range reg.rooms {
		rooms = append(rooms, r)
	}
	reg.mu.Unlock()

	out := make([]roomSummary, 0, len(rooms))
	for _, r := range rooms {
		r.mu.Lock()
		if !r.Started {
			out = append(out, roomSummary{
				ID:          r.ID,
				Name:        r.Name,
				Private:     r.Private,
				PlayerCount: len(r.Players),
				Started:     r.Started,
			})
		}
		r.mu.Unlock()
	}
	return out
}

// Join adds a named player to a room, assigning the lowest unused color.
func (reg *Registry) Join(roomID, name, password string) (*Room, *Player, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil, errEmptyName
	}

	room := reg.Room(roomID)
	if room == nil {
		return nil, nil, errRoomNotFound
	}

	room.mu.Lock()

	if room.Started {
		room.mu.Unlock()
		return nil, nil, errRoomStarted
	}
	if len(room.Players) >= maxPlayers {
		room.mu.Unlock()
		return nil, nil, errRoomFull
	}
	if room.Private {
		if bcrypt.CompareHashAndPassword(room.passwordHash, []byte(password)) != nil {
			room.mu.Unlock()
			return nil, nil, errWrongPassword
		}
	}

	color, ok := room.lowestFreeColorLocked()
	if !ok {
		room.mu.Unlock()
		return nil, nil, errRoomFull
	}

	player := &Player{
		ID:    uuid.NewString(),
		Name:  name,
		Color: color,
	}
	room.Players = append(room.Players, player)
	room.touchLocked()
	room.mu.Unlock()

	logf(reg.cfg, "ROOMS: %q joined %q as %s", name, room.Name, color)
	reg.notifyChanged()

	return room, player, nil
}

// Ready marks the player ready; the game starts once at least two players
// are present and everyone is ready.
func (reg *Registry) Ready(room *Room, player *Player) {
	room.mu.Lock()

	player.Ready = true
	room.touchLocked()

	ready := 0
	for _, p := range room.Players {
		if p.Ready {
			ready++
		}
	}
	if !room.Started && ready == len(room.Players) && ready >= 2 {
		room.startGameLocked(reg.cfg)
		room.mu.Unlock()
		reg.notifyChanged()
		return
	}
	room.mu.Unlock()
}

// Leave vacates the player's slot. Their color's pawns go back home, the
// turn advances if they held it, and an emptied room is destroyed.
func (reg *Registry) Leave(room *Room, player *Player) {
	room.mu.Lock()

	idx := -1
	for i, p := range room.Players {
		if p == player {
			idx = i
			break
		}
	}
	if idx == -1 {
		room.mu.Unlock()
		return
	}

	heldTurn := player.NowMoving
	room.Players = append(room.Players[:idx], room.Players[idx+1:]...)
	for _, p := range room.pawnsOfColorLocked(player.Color) {
		p.Pos = homePosition(p)
	}
	player.NowMoving = false
	player.client = nil
	room.touchLocked()

	empty := len(room.Players) == 0
	if empty {
		room.stopDeadlineLocked()
	} else if room.Started && heldTurn && room.state != stateFinished {
		// The leaver is already gone, so advance from their color.
		room.advanceTurnFromLocked(reg.cfg, colorIndex(player.Color))
	}
	room.mu.Unlock()

	logf(reg.cfg, "ROOMS: %q left %q", player.Name, room.Name)

	if empty {
		reg.destroy(room)
	}
	reg.notifyChanged()
}

func (reg *Registry) destroy(room *Room) {
	reg.mu.Lock()
	delete(reg.rooms, room.ID)
	reg.mu.Unlock()

	room.mu.Lock()
	room.stopDeadlineLocked()
	room.closeClientsLocked()
	room.mu.Unlock()

	logf(reg.cfg, "ROOMS: Destroyed room %q (%s)", room.Name, room.ID)
}

// reaperLoop periodically destroys rooms that have been idle longer than
// the configured room timeout.
func (reg *Registry) reaperLoop() {
	ticker := time.NewTicker(reg.cfg.roomTimeout / 2)
	for range ticker.C {
		cutoff := time.Now().Add(-reg.cfg.roomTimeout)

		reg.mu.Lock()
		var stale []*Room
		for id, room := range reg.rooms {
			room.mu.Lock()
			last := room.lastActive
			room.mu.Unlock()

			if last.Before(cutoff) {
				delete(reg.rooms, id)
				stale = append(stale, room)
			}
		}
		reg.mu.Unlock()

		for _, room := range stale {
			room.mu.Lock()
			room.stopDeadlineLocked()
			room.closeClientsLocked()
			room.mu.Unlock()
			logf(reg.cfg, "ROOMS: Reaped idle room %q (%s)", room.Name, room.ID)
		}
		if len(stale) > 0 {
			reg.notifyChanged()
		}
	}
}
