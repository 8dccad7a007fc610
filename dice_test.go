package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCryptoDiceRange(t *testing.T) {
	d := cryptoDice{}

	counts := make(map[int]int)
	for i := 0; i < 6000; i++ {
		v := d.Roll()
		require.GreaterOrEqual(t, v, 1)
		require.LessOrEqual(t, v, 6)
		counts[v]++
	}

	// Loose uniformity bound; a fair die lands near 1000 per face.
	for face := 1; face <= 6; face++ {
		assert.Greater(t, counts[face], 700, "face %d starved", face)
		assert.Less(t, counts[face], 1300, "face %d overloaded", face)
	}
}

func TestSeededDiceDeterminism(t *testing.T) {
	a := newSeededDice(42)
	b := newSeededDice(42)

	for i := 0; i < 100; i++ {
		va, vb := a.Roll(), b.Roll()
		require.Equal(t, va, vb)
		require.GreaterOrEqual(t, va, 1)
		require.LessOrEqual(t, va, 6)
	}
}
