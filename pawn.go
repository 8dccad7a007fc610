package main

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Area names the four places a pawn can be.
type Area string

const (
	AreaHome     Area = "home"
	AreaTrack    Area = "track"
	AreaStretch  Area = "stretch"
	AreaFinished Area = "finished"
)

// Position is a tagged board location. Cell means: home slot 0-3, absolute
// ring cell 0-51, or home-stretch index 0-4. Finished pawns carry no cell.
type Position struct {
	Area Area `json:"area"`
	Cell int  `json:"cell"`
}

type Pawn struct {
	ID    string   `json:"id"`
	Color Color    `json:"color"`
	Pos   Position `json:"position"`

	slot int // home slot this pawn returns to when captured
}

func homePosition(p *Pawn) Position {
	return Position{Area: AreaHome, Cell: p.slot}
}

type Player struct {
	ID        string
	Name      string
	Color     Color
	Ready     bool
	NowMoving bool

	// client is a weak reference to the live connection: lookup only,
	// nilled on disconnect, never closed through the player.
	client *client
}

func (p *Player) connected() bool {
	return p.client != nil
}

type gameState int

const (
	stateWaiting gameState = iota
	stateRolling
	stateMoving
	stateFinished
)

// Room is one match instance. Every mutation of the room, its players and
// its pawns happens with mu held; that is the whole concurrency model.
type Room struct {
	mu sync.Mutex

	ID           string
	Name         string
	Private      bool
	passwordHash []byte

	Players []*Player // join order, at most maxPlayers
	Pawns   []*Pawn   // 16 once started, 4 per color

	Started      bool
	state        gameState
	Rolled       int // 0 while waiting for the active player to roll
	NextMoveTime time.Time
	Winner       Color

	// turnSeq increases on every (re)armed deadline; an expiry callback
	// carrying a stale value is a no-op.
	turnSeq   uint64
	turnTimer *time.Timer

	clients map[*client]bool

	createdAt  time.Time
	lastActive time.Time
}

func newRoom(name string, private bool, hash []byte) *Room {
	now := time.Now()
	return &Room{
		ID:           uuid.NewString(),
		Name:         name,
		Private:      private,
		passwordHash: hash,
		state:        stateWaiting,
		clients:      make(map[*client]bool),
		createdAt:    now,
		lastActive:   now,
	}
}

func (r *Room) touchLocked() {
	r.lastActive = time.Now()
}

func (r *Room) playerByIDLocked(id string) *Player {
	for _, p := range r.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (r *Room) playerByColorLocked(color Color) *Player {
	for _, p := range r.Players {
		if p.Color == color {
			return p
		}
	}
	return nil
}

func (r *Room) movingPlayerLocked() *Player {
	for _, p := range r.Players {
		if p.NowMoving {
			return p
		}
	}
	return nil
}

func (r *Room) pawnByIDLocked(id string) *Pawn {
	for _, p := range r.Pawns {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (r *Room) pawnsOfColorLocked(color Color) []*Pawn {
	out := make([]*Pawn, 0, pawnsPerColor)
	for _, p := range r.Pawns {
		if p.Color == color {
			out = append(out, p)
		}
	}
	return out
}

// lowestFreeColorLocked assigns join slots in fixed color order.
func (r *Room) lowestFreeColorLocked() (Color, bool) {
	for _, c := range colorOrder {
		if r.playerByColorLocked(c) == nil {
			return c, true
		}
	}
	return "", false
}

// dealPawnsLocked (re)allocates all 16 pawns to their home slots. Pawn ids
// survive a redeal so clients can key animations on them.
func (r *Room) dealPawnsLocked() {
	if len(r.Pawns) == 0 {
		for _, c := range colorOrder {
			for slot := 0; slot < pawnsPerColor; slot++ {
				r.Pawns = append(r.Pawns, &Pawn{
					ID:    uuid.NewString(),
					Color: c,
					slot:  slot,
				})
			}
		}
	}
	for _, p := range r.Pawns {
		p.Pos = homePosition(p)
	}
}

func (r *Room) allFinishedLocked(color Color) bool {
	n := 0
	for _, p := range r.pawnsOfColorLocked(color) {
		if p.Pos.Area == AreaFinished {
			n++
		}
	}
	return n == pawnsPerColor
}
