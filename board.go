package main

// Board topology for a standard four-color Ludo board: a shared ring of 52
// cells, one 6-cell private home stretch per color, and 4 home slots per
// color. Everything here is immutable lookup data.

const (
	ringSize      = 52
	stretchSize   = 6
	finalStretch  = stretchSize - 1 // terminal home slot
	pawnsPerColor = 4
	maxPlayers    = 4
)

type Color string

const (
	Red    Color = "red"
	Blue   Color = "blue"
	Green  Color = "green"
	Yellow Color = "yellow"
)

// Fixed turn order; join slots are assigned lowest-first in this order.
var colorOrder = [maxPlayers]Color{Red, Blue, Green, Yellow}

var startCells = map[Color]int{
	Red:    0,
	Blue:   13,
	Green:  26,
	Yellow: 39,
}

// Safe cells are every color's start cell plus the cell 8 past it.
// Opposing pawns coexist there without capture.
var safeCells = map[int]bool{
	0: true, 8: true,
	13: true, 21: true,
	26: true, 34: true,
	39: true, 47: true,
}

func startCell(color Color) int {
	return startCells[color]
}

func isSafe(cell int) bool {
	return safeCells[cell]
}

func colorIndex(color Color) int {
	for i, c := range colorOrder {
		if c == color {
			return i
		}
	}
	return 0
}

// ringProgress maps an absolute ring cell to this color's personal lap
// position: 0 at its start cell, 51 just before re-entering it.
func ringProgress(color Color, cell int) int {
	return (cell - startCells[color] + ringSize) % ringSize
}

func cellAtProgress(color Color, progress int) int {
	return (startCells[color] + progress) % ringSize
}

// totalSteps is the full path length from the start cell to the terminal
// home slot: a whole lap of the ring plus the stretch.
const totalSteps = ringSize + finalStretch

// stepsToHome returns how many single steps remain until the terminal home
// slot. Home pawns report one more than the full path, Finished pawns zero.
func stepsToHome(color Color, pos Position) int {
	switch pos.Area {
	case AreaTrack:
		return totalSteps - ringProgress(color, pos.Cell)
	case AreaStretch:
		return finalStretch - pos.Cell
	case AreaFinished:
		return 0
	default:
		return totalSteps + 1
	}
}
