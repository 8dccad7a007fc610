package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

// Realtime gateway: one persistent websocket per client, JSON envelopes in
// both directions. The gateway itself never mutates game state; it locks
// the room, calls into the registry/turn controller, and fans out.

const wireVersion = 1

// envelope is the inbound wire frame.
type envelope struct {
	V     int             `json:"v"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// wireEvent is the outbound wire frame.
type wireEvent struct {
	V     int    `json:"v"`
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// Client -> server intents.
type createRoomIntent struct {
	Name     string `json:"name"`
	Password string `json:"password"`
	Private  bool   `json:"private"`
}

type loginIntent struct {
	Name     string `json:"name"`
	Password string `json:"password"`
	RoomID   string `json:"roomId"`
}

type moveIntent struct {
	PawnID string `json:"pawnId"`
}

type roomDataIntent struct {
	RoomID string `json:"roomId"`
}

// Server -> client records.
type roomSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Private     bool   `json:"private"`
	PlayerCount int    `json:"playerCount"`
	Started     bool   `json:"started"`
}

type playerInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Color     Color  `json:"color"`
	Ready     bool   `json:"ready"`
	NowMoving bool   `json:"nowMoving"`
	Connected bool   `json:"connected"`
}

type pawnInfo struct {
	ID       string   `json:"id"`
	Color    Color    `json:"color"`
	Position Position `json:"position"`
}

type roomData struct {
	Players      []playerInfo `json:"players"`
	Pawns        []pawnInfo   `json:"pawns"`
	RolledNumber *int         `json:"rolledNumber"`
	NextMoveTime int64        `json:"nextMoveTime"`
	Started      bool         `json:"started"`
	Winner       Color        `json:"winner,omitempty"`
}

type playerData struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Color  Color  `json:"color"`
	RoomID string `json:"roomId"`
}

type winnerData struct {
	Color Color `json:"color"`
}

type errorData struct {
	Message string `json:"message"`
}

type client struct {
	conn  *websocket.Conn
	send  chan wireEvent
	token string

	// player/room bindings; written under the gateway lock, read by the
	// owning read pump and the lobby fan-out.
	player *Player
	room   *Room

	closeOnce sync.Once
}

// trySend never blocks; a full buffer means the client is too slow and the
// event is dropped.
func (c *client) trySend(ev wireEvent) bool {
	select {
	case c.send <- ev:
		return true
	default:
		return false
	}
}

func (c *client) closeSend() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

// ---- room fan-out (assumes r.mu held) ----

func (r *Room) snapshotLocked() roomData {
	players := make([]playerInfo, 0, len(r.Players))
	for _, p := range r.Players {
		players = append(players, playerInfo{
			ID:        p.ID,
			Name:      p.Name,
			Color:     p.Color,
			Ready:     p.Ready,
			NowMoving: p.NowMoving,
			Connected: p.connected(),
		})
	}

	pawns := make([]pawnInfo, 0, len(r.Pawns))
	for _, p := range r.Pawns {
		pawns = append(pawns, pawnInfo{
			ID:       p.ID,
			Color:    p.Color,
			Position: p.Pos,
		})
	}

	var rolled *int
	if r.Rolled != 0 {
		v := r.Rolled
		rolled = &v
	}

	return roomData{
		Players:      players,
		Pawns:        pawns,
		RolledNumber: rolled,
		NextMoveTime: r.NextMoveTime.UnixMilli(),
		Started:      r.Started,
		Winner:       r.Winner,
	}
}

func (r *Room) broadcastLocked(ev wireEvent) {
	for c := range r.clients {
		if !c.trySend(ev) {
			delete(r.clients, c)
		}
	}
}

func (r *Room) broadcastSnapshotLocked() {
	r.broadcastLocked(wireEvent{V: wireVersion, Event: "room:data", Data: r.snapshotLocked()})
}

// closeClientsLocked disconnects everyone attached to this room (room
// destruction and the idle reaper).
func (r *Room) closeClientsLocked() {
	for c := range r.clients {
		c.trySend(wireEvent{V: wireVersion, Event: "redirect"})
		c.closeSend()
		if c.conn != nil {
			_ = c.conn.Close()
		}
		delete(r.clients, c)
	}
}

// ---- gateway ----

type Gateway struct {
	cfg      *Config
	registry *Registry
	sessions sessionStore

	mu      sync.Mutex
	clients map[*client]bool
}

func newGateway(cfg *Config, registry *Registry, sessions sessionStore) *Gateway {
	gw := &Gateway{
		cfg:      cfg,
		registry: registry,
		sessions: sessions,
		clients:  make(map[*client]bool),
	}
	registry.onChange = gw.broadcastRooms
	return gw
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func (gw *Gateway) serveWS() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		token := getOrSetSessionToken(w, r)
		if token == "" {
			http.Error(w, "unable to assign session token", http.StatusInternalServerError)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logf(gw.cfg, "SERVE: Websocket upgrade failed for %s: %v", realIP(r), err)
			return
		}

		c := &client{
			conn:  conn,
			send:  make(chan wireEvent, 8),
			token: token,
		}

		gw.mu.Lock()
		gw.clients[c] = true
		gw.mu.Unlock()

		gw.resume(c)

		go c.writePump()
		c.readPump(gw)
	}
}

// resume reattaches a returning session to its player and replays the full
// room snapshot; anyone else gets the matchmaking list.
func (gw *Gateway) resume(c *client) {
	ctx := context.Background()

	b, ok, err := gw.sessions.get(ctx, c.token)
	if err != nil {
		logf(gw.cfg, "SERVE: Session lookup failed: %v", err)
	}
	if ok {
		if room := gw.registry.Room(b.RoomID); room != nil {
			room.mu.Lock()
			player := room.playerByIDLocked(b.PlayerID)
			if player != nil {
				player.client = c
				room.clients[c] = true
				room.touchLocked()
			}
			room.mu.Unlock()

			if player != nil {
				gw.bind(c, player, room)
				c.trySend(wireEvent{V: wireVersion, Event: "player:data", Data: playerData{
					ID:     player.ID,
					Name:   player.Name,
					Color:  player.Color,
					RoomID: room.ID,
				}})

				// The broadcast also replays the full snapshot to the
				// reattached connection itself.
				room.mu.Lock()
				room.broadcastSnapshotLocked()
				room.mu.Unlock()

				logf(gw.cfg, "SERVE: Session reattached %q to %s", player.Name, room.ID)
				return
			}
		}

		// Binding outlived its player or room; expiry equals leave.
		_ = gw.sessions.delete(ctx, c.token)
		c.trySend(wireEvent{V: wireVersion, Event: "redirect"})
	}

	c.trySend(wireEvent{V: wireVersion, Event: "room:rooms", Data: gw.registry.ListRooms()})
}

func (gw *Gateway) bind(c *client, player *Player, room *Room) {
	gw.mu.Lock()
	c.player = player
	c.room = room
	gw.mu.Unlock()
}

func (gw *Gateway) unbind(c *client) (*Player, *Room) {
	gw.mu.Lock()
	player, room := c.player, c.room
	c.player = nil
	c.room = nil
	gw.mu.Unlock()
	return player, room
}

// broadcastRooms refreshes the matchmaking list for every lobby client.
func (gw *Gateway) broadcastRooms() {
	list := gw.registry.ListRooms()
	ev := wireEvent{V: wireVersion, Event: "room:rooms", Data: list}

	gw.mu.Lock()
	defer gw.mu.Unlock()

	for c := range gw.clients {
		if c.room == nil {
			c.trySend(ev)
		}
	}
}

func (c *client) readPump(gw *Gateway) {
	defer func() {
		gw.unregister(c)
		_ = c.conn.Close()
	}()

	for {
		var env envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			return
		}
		gw.dispatch(c, env)
	}
}

func (c *client) writePump() {
	defer c.conn.Close()

	for ev := range c.send {
		if err := c.conn.WriteJSON(ev); err != nil {
			return
		}
	}
}

// dispatch routes one inbound intent. Malformed payloads are rejected
// before any state change; unknown events are ignored.
func (gw *Gateway) dispatch(c *client, env envelope) {
	switch env.Event {
	case "room:create":
		var in createRoomIntent
		if err := json.Unmarshal(env.Data, &in); err != nil {
			gw.sendIntentError(c, errEmptyName)
			return
		}
		if _, err := gw.registry.CreateRoom(in.Name, in.Password, in.Private); err != nil {
			gw.sendIntentError(c, err)
		}

	case "room:rooms":
		c.trySend(wireEvent{V: wireVersion, Event: "room:rooms", Data: gw.registry.ListRooms()})

	case "player:login":
		gw.handleLogin(c, env.Data)

	case "player:ready":
		gw.handleReady(c)

	case "game:roll":
		gw.handleRoll(c)

	case "game:move":
		gw.handleMove(c, env.Data)

	case "player:exit":
		gw.handleExit(c)

	case "room:data":
		gw.handleSnapshotRequest(c, env.Data)

	default:
		// ignore unknown events
	}
}

func (gw *Gateway) handleLogin(c *client, raw json.RawMessage) {
	if c.player != nil {
		gw.sendIntentError(c, errAlreadyInRoom)
		return
	}

	var in loginIntent
	if err := json.Unmarshal(raw, &in); err != nil {
		gw.sendIntentError(c, errEmptyName)
		return
	}

	room, player, err := gw.registry.Join(in.RoomID, in.Name, in.Password)
	if err != nil {
		gw.sendIntentError(c, err)
		return
	}

	room.mu.Lock()
	player.client = c
	room.clients[c] = true
	room.mu.Unlock()

	gw.bind(c, player, room)

	if err := gw.sessions.set(context.Background(), c.token, sessionBinding{
		PlayerID: player.ID,
		RoomID:   room.ID,
	}, gw.cfg.sessionTTL); err != nil {
		logf(gw.cfg, "SERVE: Session store write failed: %v", err)
	}

	c.trySend(wireEvent{V: wireVersion, Event: "player:data", Data: playerData{
		ID:     player.ID,
		Name:   player.Name,
		Color:  player.Color,
		RoomID: room.ID,
	}})

	room.mu.Lock()
	room.broadcastSnapshotLocked()
	room.mu.Unlock()
}

func (gw *Gateway) handleReady(c *client) {
	if c.player == nil || c.room == nil {
		gw.sendIntentError(c, errNotInRoom)
		return
	}

	gw.registry.Ready(c.room, c.player)

	c.room.mu.Lock()
	c.room.broadcastSnapshotLocked()
	c.room.mu.Unlock()
}

func (gw *Gateway) handleRoll(c *client) {
	if c.player == nil || c.room == nil {
		gw.sendIntentError(c, errNotInRoom)
		return
	}

	room := c.room
	room.mu.Lock()
	err := room.rollLocked(gw.cfg, c.player)
	if err == nil {
		room.broadcastSnapshotLocked()
	}
	room.mu.Unlock()

	if err != nil {
		gw.sendIntentError(c, err)
	}
}

func (gw *Gateway) handleMove(c *client, raw json.RawMessage) {
	if c.player == nil || c.room == nil {
		gw.sendIntentError(c, errNotInRoom)
		return
	}

	var in moveIntent
	if err := json.Unmarshal(raw, &in); err != nil || in.PawnID == "" {
		gw.sendIntentError(c, errPawnNotFound)
		return
	}

	room := c.room
	room.mu.Lock()
	err := room.moveLocked(gw.cfg, c.player, in.PawnID)
	if err == nil {
		room.broadcastSnapshotLocked()
	}
	room.mu.Unlock()

	if err != nil {
		gw.sendIntentError(c, err)
	}
}

func (gw *Gateway) handleExit(c *client) {
	player, room := gw.unbind(c)
	if player == nil || room == nil {
		gw.sendIntentError(c, errNotInRoom)
		return
	}

	room.mu.Lock()
	delete(room.clients, c)
	room.mu.Unlock()

	gw.registry.Leave(room, player)
	_ = gw.sessions.delete(context.Background(), c.token)

	room.mu.Lock()
	room.broadcastSnapshotLocked()
	room.mu.Unlock()

	c.trySend(wireEvent{V: wireVersion, Event: "redirect"})
	c.trySend(wireEvent{V: wireVersion, Event: "room:rooms", Data: gw.registry.ListRooms()})
}

// handleSnapshotRequest serves the explicit room:data request the board
// sends when it mounts.
func (gw *Gateway) handleSnapshotRequest(c *client, raw json.RawMessage) {
	var in roomDataIntent
	_ = json.Unmarshal(raw, &in)

	room := c.room
	if room == nil || (in.RoomID != "" && in.RoomID != room.ID) {
		gw.sendIntentError(c, errNotInRoom)
		return
	}

	room.mu.Lock()
	snap := room.snapshotLocked()
	room.mu.Unlock()

	c.trySend(wireEvent{V: wireVersion, Event: "room:data", Data: snap})
}

// sendIntentError surfaces a scoped failure to the originating client only.
func (gw *Gateway) sendIntentError(c *client, err error) {
	var event string
	switch {
	case errors.Is(err, errWrongPassword):
		event = "error:wrongPassword"
	case errors.Is(err, errRoomNotFound),
		errors.Is(err, errRoomFull),
		errors.Is(err, errRoomStarted),
		errors.Is(err, errAlreadyInRoom):
		event = "error:changeRoom"
	case errors.Is(err, errEmptyName):
		event = "error:validation"
	default:
		event = "error:state"
	}

	c.trySend(wireEvent{V: wireVersion, Event: event, Data: errorData{Message: err.Error()}})
}

// unregister handles a dropped connection: the player stays in the room
// for the reconnect window, then is treated as having left.
func (gw *Gateway) unregister(c *client) {
	gw.mu.Lock()
	delete(gw.clients, c)
	player, room := c.player, c.room
	gw.mu.Unlock()

	if player != nil && room != nil {
		room.mu.Lock()
		if player.client == c {
			player.client = nil
		}
		delete(room.clients, c)
		room.broadcastSnapshotLocked()
		room.mu.Unlock()

		go gw.scheduleRemoval(room, player)
	}

	c.closeSend()
}

// scheduleRemoval waits out the reconnect window; a player who has not
// reattached by then leaves for real.
func (gw *Gateway) scheduleRemoval(room *Room, player *Player) {
	time.Sleep(gw.cfg.playerTimeout)

	room.mu.Lock()
	gone := room.playerByIDLocked(player.ID) == nil
	reattached := player.client != nil
	room.mu.Unlock()

	if gone || reattached {
		return
	}

	logf(gw.cfg, "ROOMS: Reconnect window expired for %q in %s", player.Name, room.ID)
	gw.registry.Leave(room, player)

	room.mu.Lock()
	room.broadcastSnapshotLocked()
	room.mu.Unlock()
}
