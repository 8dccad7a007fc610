package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoveDestination(t *testing.T) {
	tests := []struct {
		name  string
		pawn  Pawn
		roll  int
		want  Position
		legal bool
	}{
		{
			name:  "home leaves on a six",
			pawn:  Pawn{Color: Red, Pos: Position{Area: AreaHome, Cell: 1}},
			roll:  6,
			want:  Position{Area: AreaTrack, Cell: 0},
			legal: true,
		},
		{
			name:  "blue home lands on its own start",
			pawn:  Pawn{Color: Blue, Pos: Position{Area: AreaHome, Cell: 0}},
			roll:  6,
			want:  Position{Area: AreaTrack, Cell: 13},
			legal: true,
		},
		{
			name: "home stays put on anything else",
			pawn: Pawn{Color: Red, Pos: Position{Area: AreaHome, Cell: 0}},
			roll: 5,
		},
		{
			name:  "plain track advance",
			pawn:  Pawn{Color: Red, Pos: Position{Area: AreaTrack, Cell: 10}},
			roll:  4,
			want:  Position{Area: AreaTrack, Cell: 14},
			legal: true,
		},
		{
			name:  "track advance wraps the ring",
			pawn:  Pawn{Color: Blue, Pos: Position{Area: AreaTrack, Cell: 50}},
			roll:  4,
			want:  Position{Area: AreaTrack, Cell: 2},
			legal: true,
		},
		{
			name:  "track crosses into the stretch",
			pawn:  Pawn{Color: Red, Pos: Position{Area: AreaTrack, Cell: 50}},
			roll:  4,
			want:  Position{Area: AreaStretch, Cell: 2},
			legal: true,
		},
		{
			name:  "track lands exactly on the terminal slot",
			pawn:  Pawn{Color: Red, Pos: Position{Area: AreaTrack, Cell: 51}},
			roll:  6,
			want:  Position{Area: AreaFinished},
			legal: true,
		},
		{
			name: "track overshoots the terminal slot",
			pawn: Pawn{Color: Red, Pos: Position{Area: AreaTrack, Cell: 51}},
			roll: 7,
		},
		{
			name:  "stretch advance",
			pawn:  Pawn{Color: Green, Pos: Position{Area: AreaStretch, Cell: 1}},
			roll:  2,
			want:  Position{Area: AreaStretch, Cell: 3},
			legal: true,
		},
		{
			name:  "stretch finishes exactly",
			pawn:  Pawn{Color: Green, Pos: Position{Area: AreaStretch, Cell: 2}},
			roll:  3,
			want:  Position{Area: AreaFinished},
			legal: true,
		},
		{
			name: "stretch overshoot is illegal",
			pawn: Pawn{Color: Green, Pos: Position{Area: AreaStretch, Cell: 3}},
			roll: 4,
		},
		{
			name: "finished pawns never move",
			pawn: Pawn{Color: Yellow, Pos: Position{Area: AreaFinished}},
			roll: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := moveDestination(&tt.pawn, tt.roll)
			assert.Equal(t, tt.legal, ok)
			if tt.legal {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

// canLeaveHome(pawn, roll) holds exactly when the pawn is home and the
// roll is a six.
func TestLeaveHomeEquivalence(t *testing.T) {
	areas := []Position{
		{Area: AreaHome, Cell: 0},
		{Area: AreaTrack, Cell: 5},
		{Area: AreaStretch, Cell: 1},
	}

	for _, pos := range areas {
		for roll := 1; roll <= 6; roll++ {
			p := Pawn{Color: Red, Pos: pos}
			dest, ok := moveDestination(&p, roll)

			if pos.Area != AreaHome {
				continue
			}
			if roll == 6 {
				require.True(t, ok)
				assert.Equal(t, Position{Area: AreaTrack, Cell: startCell(Red)}, dest)
			} else {
				assert.False(t, ok, "roll %d must not leave home", roll)
			}
		}
	}
}

func TestCaptured(t *testing.T) {
	room := newRoom("table", false, nil)
	room.Pawns = []*Pawn{
		{ID: "r0", Color: Red, Pos: Position{Area: AreaTrack, Cell: 10}},
		{ID: "b0", Color: Blue, Pos: Position{Area: AreaTrack, Cell: 12}},
		{ID: "b1", Color: Blue, Pos: Position{Area: AreaTrack, Cell: 13}}, // safe cell
		{ID: "g0", Color: Green, Pos: Position{Area: AreaTrack, Cell: 12}},
	}
	mover := room.Pawns[0]

	t.Run("non-safe cell captures every opponent there", func(t *testing.T) {
		victims := captured(room, mover, Position{Area: AreaTrack, Cell: 12})
		require.Len(t, victims, 2)
	})

	t.Run("safe cell coexists", func(t *testing.T) {
		assert.Empty(t, captured(room, mover, Position{Area: AreaTrack, Cell: 13}))
	})

	t.Run("own color never captures itself", func(t *testing.T) {
		blue := room.Pawns[1]
		assert.Empty(t, captured(room, blue, Position{Area: AreaTrack, Cell: 12}))
	})

	t.Run("stretch cells are private", func(t *testing.T) {
		assert.Empty(t, captured(room, mover, Position{Area: AreaStretch, Cell: 2}))
	})
}

func TestLegalMoves(t *testing.T) {
	room := newRoom("table", false, nil)
	room.Pawns = []*Pawn{
		{ID: "r0", Color: Red, Pos: Position{Area: AreaHome, Cell: 0}},
		{ID: "r1", Color: Red, Pos: Position{Area: AreaHome, Cell: 1}},
		{ID: "r2", Color: Red, Pos: Position{Area: AreaStretch, Cell: 4}},
		{ID: "r3", Color: Red, Pos: Position{Area: AreaFinished}},
	}

	// A three only works for the stretch pawn... which would overshoot.
	assert.Empty(t, legalMoves(room, Red, 3))

	// A one finishes the stretch pawn.
	moves := legalMoves(room, Red, 1)
	require.Len(t, moves, 1)
	assert.Equal(t, "r2", moves[0].ID)

	// A six frees both home pawns and overshoots the stretch pawn.
	moves = legalMoves(room, Red, 6)
	require.Len(t, moves, 2)
}
