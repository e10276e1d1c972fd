package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlug(t *testing.T) {
	tests := map[string]string{
		"Storm Cannon":           "storm-cannon",
		"Lamentum mk. IV":        "lamentum-mk-iv",
		"  Huber  Lariat 120mm":  "huber-lariat-120mm",
		"50-500 \"Thunderbolt\"": "50-500-thunderbolt",
		"":                       "",
	}
	for in, want := range tests {
		assert.Equal(t, want, Slug(in), in)
	}
}

func TestFactionServes(t *testing.T) {
	assert.True(t, FactionBoth.Serves(FactionColonial))
	assert.True(t, FactionWarden.Serves(FactionWarden))
	assert.False(t, FactionWarden.Serves(FactionColonial))
	assert.True(t, FactionColonial.Serves(FactionBoth))
}

func TestIsUnassigned(t *testing.T) {
	assert.True(t, IsUnassigned(""))
	assert.True(t, IsUnassigned(UnassignedWeapon))
	assert.False(t, IsUnassigned("storm-cannon"))
}
