package main

import (
	"testing"

	"github.com/annel0/voxelforge/internal/auth"
	"github.com/annel0/voxelforge/internal/eventbus"
	"github.com/annel0/voxelforge/internal/world"
	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStringList(t *testing.T) {
	assert.Nil(t, parseStringList(""))
	assert.Equal(t, []string{"cell_placed", "access_denied"}, parseStringList(" cell_placed, ,access_denied "))
}

func TestFormatEvent(t *testing.T) {
	actor := uuid.New()
	ev, err := eventbus.NewEnvelope("node-1", "structure_unformed", 3, world.Event{
		Pos:       cube.Pos{1, 2, 3},
		Structure: "dynamic_tank",
		Reason:    "casing_broken",
		Actor:     actor,
	})
	require.NoError(t, err)

	out := formatEvent(ev)
	assert.Contains(t, out, "node-1 [structure_unformed]")
	assert.Contains(t, out, "Pos: (1,2,3)")
	assert.Contains(t, out, "Structure: dynamic_tank")
	assert.Contains(t, out, "Player: "+actor.String())

	denied, err := eventbus.NewEnvelope("node-1", eventbus.TypeAccessDenied, 6, eventbus.DenialPayload{Actor: actor, Mode: "private"})
	require.NoError(t, err)
	assert.Contains(t, formatEvent(denied), "Mode: private")
}

func TestStats(t *testing.T) {
	st := newStats()
	for _, typ := range []string{"cell_placed", "cell_placed", "access_denied"} {
		st.add(&eventbus.Envelope{EventType: typ})
	}
	out := st.String()
	assert.Regexp(t, `cell_placed\s+2\n\s+access_denied\s+1\n\s+total\s+3`, out)
}

func TestIssueToken(t *testing.T) {
	secret, err := auth.GenerateSecureSecret()
	require.NoError(t, err)

	actor := uuid.New()
	token, id, err := issueToken(secret, actor.String(), true)
	require.NoError(t, err)
	assert.Equal(t, actor, id)

	a, err := auth.NewAuthenticator(secret)
	require.NoError(t, err)
	identity, err := a.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, actor, identity.Actor)
	assert.True(t, identity.IsOperator)

	_, _, err = issueToken("", "", false)
	assert.Error(t, err)
	_, _, err = issueToken(secret, "not-a-uuid", false)
	assert.Error(t, err)
}
