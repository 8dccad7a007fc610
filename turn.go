package main

import (
	"time"
)

// Turn controller: waiting -> rolling -> moving -> (rolling | next player's
// rolling) -> ... -> finished. All methods below assume r.mu is held unless
// noted otherwise.

// Extra-roll-on-six policies.
const (
	sixAgainAlways   = "always"   // any six grants another roll
	sixAgainProgress = "progress" // only a six that left home or captured
	sixAgainOff      = "off"
)

func (c *Config) sixAgainAllows(leftHome, tookCapture bool) bool {
	switch c.sixAgain {
	case sixAgainOff:
		return false
	case sixAgainProgress:
		return leftHome || tookCapture
	default:
		return true
	}
}

// startGameLocked deals all pawns home and hands the first turn to the
// lowest present color.
func (r *Room) startGameLocked(cfg *Config) {
	if r.Started || len(r.Players) < 2 {
		return
	}

	r.Started = true
	r.Winner = ""
	r.dealPawnsLocked()

	for _, c := range colorOrder {
		if p := r.playerByColorLocked(c); p != nil {
			logf(cfg, "GAME: Starting %s, first turn to %s", r.ID, p.Color)
			r.grantTurnLocked(cfg, p)
			return
		}
	}
}

// grantTurnLocked makes pl the single nowMoving player and re-enters the
// rolling state with a fresh deadline.
func (r *Room) grantTurnLocked(cfg *Config, pl *Player) {
	for _, p := range r.Players {
		p.NowMoving = p == pl
	}
	r.Rolled = 0
	r.state = stateRolling
	r.armDeadlineLocked(cfg)
}

// armDeadlineLocked bumps the turn sequence and schedules the expiry
// callback with it. Anything that advances the turn implicitly supersedes
// the old timer: its sequence number no longer matches.
func (r *Room) armDeadlineLocked(cfg *Config) {
	r.turnSeq++
	seq := r.turnSeq
	r.NextMoveTime = time.Now().Add(cfg.turnTimeout)

	if r.turnTimer != nil {
		r.turnTimer.Stop()
	}
	r.turnTimer = time.AfterFunc(cfg.turnTimeout, func() {
		r.turnExpired(cfg, seq)
	})
}

func (r *Room) stopDeadlineLocked() {
	if r.turnTimer != nil {
		r.turnTimer.Stop()
		r.turnTimer = nil
	}
}

// turnExpired fires outside the lock. A stale sequence number means the
// turn already advanced and this timer loses.
func (r *Room) turnExpired(cfg *Config, seq uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if seq != r.turnSeq || !r.Started || r.state == stateFinished {
		return
	}

	cur := r.movingPlayerLocked()
	if cur == nil {
		return
	}
	logf(cfg, "GAME: %q (%s) in %s missed the deadline, turn forfeited", cur.Name, cur.Color, r.ID)

	r.advanceTurnLocked(cfg)
	r.broadcastSnapshotLocked()
}

// rollLocked handles a game:roll intent. A duplicate roll for a turn whose
// move is still pending is an idempotent no-op: the stored value stands.
func (r *Room) rollLocked(cfg *Config, pl *Player) error {
	switch {
	case !r.Started:
		return errNotStarted
	case r.state == stateFinished:
		return errGameOver
	case !pl.NowMoving:
		return errOutOfTurn
	case r.state == stateMoving:
		return nil
	}

	r.Rolled = cfg.dice.Roll()
	r.state = stateMoving
	r.armDeadlineLocked(cfg)
	r.touchLocked()

	if len(legalMoves(r, pl.Color, r.Rolled)) == 0 {
		logf(cfg, "GAME: %q rolled %d in %s with no legal move, auto-pass armed", pl.Name, r.Rolled, r.ID)
	} else {
		logf(cfg, "GAME: %q rolled %d in %s", pl.Name, r.Rolled, r.ID)
	}

	return nil
}

// moveLocked handles a game:move intent for one pawn.
func (r *Room) moveLocked(cfg *Config, pl *Player, pawnID string) error {
	switch {
	case !r.Started:
		return errNotStarted
	case r.state == stateFinished:
		return errGameOver
	case !pl.NowMoving:
		return errOutOfTurn
	case r.state != stateMoving:
		return errNotRolled
	}

	pawn := r.pawnByIDLocked(pawnID)
	if pawn == nil {
		return errPawnNotFound
	}
	if pawn.Color != pl.Color {
		return errIllegalMove
	}

	dest, ok := moveDestination(pawn, r.Rolled)
	if !ok {
		return errIllegalMove
	}

	leftHome := pawn.Pos.Area == AreaHome
	victims := captured(r, pawn, dest)
	for _, v := range victims {
		v.Pos = homePosition(v)
		logf(cfg, "GAME: %q captured a %s pawn in %s", pl.Name, v.Color, r.ID)
	}
	pawn.Pos = dest
	r.touchLocked()

	if r.allFinishedLocked(pl.Color) {
		r.finishGameLocked(cfg, pl.Color)
		return nil
	}

	if r.Rolled == 6 && cfg.sixAgainAllows(leftHome, len(victims) > 0) {
		r.grantTurnLocked(cfg, pl)
	} else {
		r.advanceTurnLocked(cfg)
	}

	return nil
}

// advanceTurnLocked hands the turn to the next connected color in fixed
// red->blue->green->yellow order, skipping vacant and disconnected slots.
func (r *Room) advanceTurnLocked(cfg *Config) {
	start := 0
	if cur := r.movingPlayerLocked(); cur != nil {
		start = colorIndex(cur.Color)
	}
	r.advanceTurnFromLocked(cfg, start)
}

// advanceTurnFromLocked advances from an explicit color index, which keeps
// the fixed order intact when the turn holder has already been removed.
// With nobody connected the next present color takes the turn anyway; the
// armed deadline keeps the game cycling until someone reattaches.
func (r *Room) advanceTurnFromLocked(cfg *Config, start int) {
	for i := 1; i <= maxPlayers; i++ {
		c := colorOrder[(start+i)%maxPlayers]
		if p := r.playerByColorLocked(c); p != nil && p.connected() {
			r.grantTurnLocked(cfg, p)
			return
		}
	}

	for i := 1; i <= maxPlayers; i++ {
		c := colorOrder[(start+i)%maxPlayers]
		if p := r.playerByColorLocked(c); p != nil {
			r.grantTurnLocked(cfg, p)
			return
		}
	}
}

// finishGameLocked ends the match the instant a color's fourth pawn reaches
// the terminal slot. The winner broadcast fires exactly once; every later
// game intent is rejected in rollLocked/moveLocked.
func (r *Room) finishGameLocked(cfg *Config, winner Color) {
	r.state = stateFinished
	r.Winner = winner
	r.Rolled = 0
	for _, p := range r.Players {
		p.NowMoving = false
	}
	r.stopDeadlineLocked()

	logf(cfg, "GAME: %s won in %s", winner, r.ID)
	r.broadcastLocked(wireEvent{V: wireVersion, Event: "game:winner", Data: winnerData{Color: winner}})
}
