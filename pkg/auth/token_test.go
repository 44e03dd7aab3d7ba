package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenGenerator_GenerateSessionID(t *testing.T) {
	tg := NewTokenGenerator()

	id, key, err := tg.GenerateSessionID()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(id, SessionIDPrefix))
	assert.Len(t, key, 64)
	assert.Equal(t, tg.StoreKey(id), key)
	assert.NoError(t, tg.ValidateSessionID(id))
}

func TestTokenGenerator_GenerateSessionID_Uniqueness(t *testing.T) {
	tg := NewTokenGenerator()

	ids := make(map[string]bool)
	keys := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id, key, err := tg.GenerateSessionID()
		require.NoError(t, err)
		require.False(t, ids[id], "duplicate session ID %s", id)
		require.False(t, keys[key], "duplicate store key %s", key)
		ids[id] = true
		keys[key] = true
	}
}

func TestTokenGenerator_StoreKey(t *testing.T) {
	tg := NewTokenGenerator()

	a := tg.StoreKey("novo_abc")
	b := tg.StoreKey("novo_abc")
	c := tg.StoreKey("novo_abd")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotContains(t, a, "novo_")
}

func TestTokenGenerator_ValidateSessionID(t *testing.T) {
	tg := NewTokenGenerator()
	valid, _, err := tg.GenerateSessionID()
	require.NoError(t, err)

	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{name: "generated", id: valid},
		{name: "empty", id: "", wantErr: true},
		{name: "wrong prefix", id: "legacy_" + strings.TrimPrefix(valid, SessionIDPrefix), wantErr: true},
		{name: "prefix only", id: SessionIDPrefix, wantErr: true},
		{name: "bad encoding", id: SessionIDPrefix + "!!!!", wantErr: true},
		{name: "too short", id: SessionIDPrefix + "YWJj", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tg.ValidateSessionID(tt.id)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTokenGenerator_DisplayPrefix(t *testing.T) {
	tg := NewTokenGenerator()

	assert.Equal(t, "novo_abcdefgh", tg.DisplayPrefix("novo_abcdefghijkl"))
	assert.Equal(t, "novo_abc", tg.DisplayPrefix("novo_abc"))
	assert.Equal(t, "", tg.DisplayPrefix("other_abcdefghijkl"))
}
