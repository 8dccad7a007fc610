package main

import (
	"crypto/rand"
	"math/big"
	mrand "math/rand"
)

// Dice draws uniform values in 1-6. The server installs the crypto-backed
// source; tests swap in a seeded one to make turn outcomes deterministic.
type Dice interface {
	Roll() int
}

type cryptoDice struct{}

func (cryptoDice) Roll() int {
	n, err := rand.Int(rand.Reader, big.NewInt(6))
	if err != nil {
		// A failing crypto source mid-game should not kill the room.
		return mrand.Intn(6) + 1
	}

	return int(n.Int64()) + 1
}

type seededDice struct {
	rng *mrand.Rand
}

func newSeededDice(seed uint64) *seededDice {
	return &seededDice{rng: mrand.New(mrand.NewSource(int64(seed)))}
}

func (d *seededDice) Roll() int {
	return d.rng.Intn(6) + 1
}
