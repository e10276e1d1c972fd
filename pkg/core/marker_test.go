package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMarkerKind(t *testing.T) {
	for in, want := range map[string]MarkerKind{
		"gun":       KindGun,
		"Target":    KindTarget,
		" SPOTTER ": KindSpotter,
	} {
		got, err := ParseMarkerKind(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseMarkerKind("tank")
	assert.Error(t, err)
}

func TestMarkerKind_JSON(t *testing.T) {
	raw, err := json.Marshal(PlacementCount{Kind: KindTarget, Count: 2})
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"target","count":2}`, string(raw))

	var pc PlacementCount
	require.NoError(t, json.Unmarshal([]byte(`{"kind":"gun","weaponId":"storm-cannon","count":1}`), &pc))
	assert.Equal(t, PlacementCount{Kind: KindGun, WeaponID: "storm-cannon", Count: 1}, pc)

	assert.Error(t, json.Unmarshal([]byte(`{"kind":"tank"}`), &pc))

	_, err = json.Marshal(MarkerKind(7))
	assert.Error(t, err)
	assert.Equal(t, "kind(7)", MarkerKind(7).String())
}
