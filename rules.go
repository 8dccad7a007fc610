package main

// Move legality. These are pure functions over the board topology and the
// current pawn positions; nothing in here mutates a room.

// moveDestination computes where the pawn would land on the given roll,
// or reports that it has no legal move.
func moveDestination(p *Pawn, roll int) (Position, bool) {
	if roll < 1 || roll > 6 {
		return Position{}, false
	}

	switch p.Pos.Area {
	case AreaHome:
		// Leaving home takes an exact six and lands on the color's
		// start cell. Same-color stacking there is allowed.
		if roll != 6 {
			return Position{}, false
		}
		return Position{Area: AreaTrack, Cell: startCell(p.Color)}, true

	case AreaTrack:
		progress := ringProgress(p.Color, p.Pos.Cell) + roll
		if progress < ringSize {
			return Position{Area: AreaTrack, Cell: cellAtProgress(p.Color, progress)}, true
		}
		return stretchLanding(progress - ringSize)

	case AreaStretch:
		return stretchLanding(p.Pos.Cell + roll)

	default: // finished pawns never move again
		return Position{}, false
	}
}

// stretchLanding resolves a landing at the given home-stretch index. The
// terminal slot must be hit exactly; overshooting it is illegal.
func stretchLanding(idx int) (Position, bool) {
	switch {
	case idx > finalStretch:
		return Position{}, false
	case idx == finalStretch:
		return Position{Area: AreaFinished}, true
	default:
		return Position{Area: AreaStretch, Cell: idx}, true
	}
}

func canPawnMove(p *Pawn, roll int) bool {
	_, ok := moveDestination(p, roll)
	return ok
}

// captured returns the opposing pawns that landing on pos would send back
// home. Safe cells and the private stretch never capture.
func captured(r *Room, mover *Pawn, pos Position) []*Pawn {
	if pos.Area != AreaTrack || isSafe(pos.Cell) {
		return nil
	}

	var out []*Pawn
	for _, q := range r.Pawns {
		if q.Color != mover.Color && q.Pos.Area == AreaTrack && q.Pos.Cell == pos.Cell {
			out = append(out, q)
		}
	}
	return out
}

// legalMoves lists the pawns of a color that can act on the current roll.
// An empty result marks the turn for auto-pass at the deadline.
func legalMoves(r *Room, color Color, roll int) []*Pawn {
	var out []*Pawn
	for _, p := range r.pawnsOfColorLocked(color) {
		if canPawnMove(p, roll) {
			out = append(out, p)
		}
	}
	return out
}
