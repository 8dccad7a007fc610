package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRoomValidation(t *testing.T) {
	reg := newRegistry(testConfig())

	_, err := reg.CreateRoom("   ", "", false)
	assert.ErrorIs(t, err, errEmptyName)

	room, err := reg.CreateRoom("  table  ", "", false)
	require.NoError(t, err)
	assert.Equal(t, "table", room.Name)
	assert.NotEmpty(t, room.ID)
	assert.Same(t, room, reg.Room(room.ID))
}

func TestPrivateRoomPassword(t *testing.T) {
	reg := newRegistry(testConfig())

	room, err := reg.CreateRoom("speakeasy", "sekrit", true)
	require.NoError(t, err)
	assert.NotContains(t, string(room.passwordHash), "sekrit")

	_, _, err = reg.Join(room.ID, "alice", "wrong")
	assert.ErrorIs(t, err, errWrongPassword)

	_, p, err := reg.Join(room.ID, "alice", "sekrit")
	require.NoError(t, err)
	assert.Equal(t, Red, p.Color)
}

func TestJoinAssignsColorsInOrder(t *testing.T) {
	reg := newRegistry(testConfig())
	room, err := reg.CreateRoom("table", "", false)
	require.NoError(t, err)

	names := []string{"alice", "bob", "carol", "dave"}
	for i, name := range names {
		_, p, err := reg.Join(room.ID, name, "")
		require.NoError(t, err)
		assert.Equal(t, colorOrder[i], p.Color)
	}

	_, _, err = reg.Join(room.ID, "eve", "")
	assert.ErrorIs(t, err, errRoomFull)
}

func TestJoinErrors(t *testing.T) {
	cfg := testConfig()
	reg := newRegistry(cfg)

	_, _, err := reg.Join("missing", "alice", "")
	assert.ErrorIs(t, err, errRoomNotFound)

	room, err := reg.CreateRoom("table", "", false)
	require.NoError(t, err)

	_, _, err = reg.Join(room.ID, "  ", "")
	assert.ErrorIs(t, err, errEmptyName)

	_, p1, err := reg.Join(room.ID, "alice", "")
	require.NoError(t, err)
	_, p2, err := reg.Join(room.ID, "bob", "")
	require.NoError(t, err)

	reg.Ready(room, p1)
	reg.Ready(room, p2)
	require.True(t, room.Started)

	t.Cleanup(func() {
		room.mu.Lock()
		room.stopDeadlineLocked()
		room.mu.Unlock()
	})

	_, _, err = reg.Join(room.ID, "carol", "")
	assert.ErrorIs(t, err, errRoomStarted)
}

func TestListRoomsExcludesStarted(t *testing.T) {
	reg := newRegistry(testConfig())

	open, err := reg.CreateRoom("open", "", false)
	require.NoError(t, err)
	playing, err := reg.CreateRoom("playing", "", false)
	require.NoError(t, err)

	_, p1, err := reg.Join(playing.ID, "alice", "")
	require.NoError(t, err)
	_, p2, err := reg.Join(playing.ID, "bob", "")
	require.NoError(t, err)
	reg.Ready(playing, p1)
	reg.Ready(playing, p2)
	require.True(t, playing.Started)

	t.Cleanup(func() {
		playing.mu.Lock()
		playing.stopDeadlineLocked()
		playing.mu.Unlock()
	})

	list := reg.ListRooms()
	require.Len(t, list, 1)
	assert.Equal(t, open.ID, list[0].ID)
	assert.Zero(t, list[0].PlayerCount)
}

func TestReadyStartsOnlyWhenAllReady(t *testing.T) {
	cfg := testConfig()
	reg := newRegistry(cfg)
	room, err := reg.CreateRoom("table", "", false)
	require.NoError(t, err)

	_, p1, err := reg.Join(room.ID, "alice", "")
	require.NoError(t, err)

	// A lone ready player is not a game.
	reg.Ready(room, p1)
	assert.False(t, room.Started)

	_, p2, err := reg.Join(room.ID, "bob", "")
	require.NoError(t, err)
	reg.Ready(room, p2)
	require.True(t, room.Started)

	t.Cleanup(func() {
		room.mu.Lock()
		room.stopDeadlineLocked()
		room.mu.Unlock()
	})

	room.mu.Lock()
	defer room.mu.Unlock()

	assert.Len(t, room.Pawns, maxPlayers*pawnsPerColor)
	for _, p := range room.Pawns {
		assert.Equal(t, AreaHome, p.Pos.Area)
	}
	assert.True(t, p1.NowMoving)
	assert.False(t, p2.NowMoving)
	assert.Equal(t, stateRolling, room.state)
	assert.False(t, room.NextMoveTime.IsZero())
}

func TestLeaveResetsPawnsAndAdvancesTurn(t *testing.T) {
	cfg := testConfig()
	reg, room, p1, p2 := startedRoom(t, cfg)

	room.mu.Lock()
	pawn := room.pawnsOfColorLocked(p1.Color)[0]
	pawn.Pos = Position{Area: AreaTrack, Cell: 10}
	room.mu.Unlock()

	reg.Leave(room, p1)

	room.mu.Lock()
	defer room.mu.Unlock()

	assert.Nil(t, room.playerByIDLocked(p1.ID))
	for _, p := range room.pawnsOfColorLocked(p1.Color) {
		assert.Equal(t, AreaHome, p.Pos.Area, "departed color's pawns reset home")
	}
	assert.True(t, p2.NowMoving, "turn passed to the remaining player")
}

func TestLeaveWithOnlyDisconnectedRemainderStillGrantsTurn(t *testing.T) {
	cfg := testConfig()
	reg, room, p1, p2 := startedRoom(t, cfg)

	// The remaining player is inside the reconnect window.
	room.mu.Lock()
	p2.client = nil
	room.mu.Unlock()

	reg.Leave(room, p1)

	room.mu.Lock()
	require.Same(t, p2, room.movingPlayerLocked(), "a started room always has a turn holder")
	assert.Equal(t, stateRolling, room.state)
	seq := room.turnSeq
	room.mu.Unlock()

	// The deadline keeps cycling rather than stranding the room.
	room.turnExpired(cfg, seq)

	room.mu.Lock()
	defer room.mu.Unlock()
	assert.Same(t, p2, room.movingPlayerLocked())
	assert.Greater(t, room.turnSeq, seq)
}

func TestLeaveAdvancesFromLeaverColor(t *testing.T) {
	cfg := testConfig()
	reg := newRegistry(cfg)
	room, err := reg.CreateRoom("table", "", false)
	require.NoError(t, err)

	players := make([]*Player, 0, maxPlayers)
	for _, name := range []string{"alice", "bob", "carol", "dave"} {
		_, p, err := reg.Join(room.ID, name, "")
		require.NoError(t, err)
		attach(room, p)
		players = append(players, p)
	}
	for _, p := range players {
		reg.Ready(room, p)
	}
	require.True(t, room.Started)

	t.Cleanup(func() {
		room.mu.Lock()
		room.stopDeadlineLocked()
		room.mu.Unlock()
	})

	yellow := players[3]
	room.mu.Lock()
	room.grantTurnLocked(cfg, yellow)
	room.mu.Unlock()

	reg.Leave(room, yellow)

	room.mu.Lock()
	defer room.mu.Unlock()

	// Yellow's successor in fixed order is red, not the scan default.
	assert.True(t, players[0].NowMoving)
	assert.False(t, players[1].NowMoving)
}

func TestLeaveDestroysEmptyRoom(t *testing.T) {
	reg := newRegistry(testConfig())
	room, err := reg.CreateRoom("table", "", false)
	require.NoError(t, err)

	_, p1, err := reg.Join(room.ID, "alice", "")
	require.NoError(t, err)

	c := attach(room, p1)

	reg.Leave(room, p1)

	assert.Nil(t, reg.Room(room.ID))

	events := drainEvents(c)
	require.NotEmpty(t, events)
	assert.Equal(t, "redirect", events[len(events)-1].Event)
}

func TestNotifyChangedFires(t *testing.T) {
	reg := newRegistry(testConfig())

	fired := 0
	reg.onChange = func() { fired++ }

	room, err := reg.CreateRoom("table", "", false)
	require.NoError(t, err)
	assert.Equal(t, 1, fired)

	_, p, err := reg.Join(room.ID, "alice", "")
	require.NoError(t, err)
	assert.Equal(t, 2, fired)

	reg.Leave(room, p)
	assert.Equal(t, 3, fired)
}
