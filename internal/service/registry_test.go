package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry_BindAndLookup(t *testing.T) {
	r := NewRegistry()
	r.Bind("conn-1", "user-a", "alice")

	connID, ok := r.ConnectionOf("user-a")
	assert.True(t, ok)
	assert.Equal(t, "conn-1", connID)

	b, ok := r.UserOf("conn-1")
	assert.True(t, ok)
	assert.Equal(t, "alice", b.Username)
	assert.Equal(t, 1, r.Count())
}

func TestRegistry_ReconnectInvalidatesPreviousConnection(t *testing.T) {
	r := NewRegistry()
	r.Bind("conn-1", "user-a", "alice")
	r.Bind("conn-2", "user-a", "alice")

	connID, _ := r.ConnectionOf("user-a")
	assert.Equal(t, "conn-2", connID)

	// 이전 연결 종료는 현재 연결이 아님
	b, current := r.Unbind("conn-1")
	assert.False(t, current)
	assert.Equal(t, "user-a", b.UserID)

	connID, ok := r.ConnectionOf("user-a")
	assert.True(t, ok)
	assert.Equal(t, "conn-2", connID)

	_, current = r.Unbind("conn-2")
	assert.True(t, current)
	_, ok = r.ConnectionOf("user-a")
	assert.False(t, ok)
	assert.Equal(t, 0, r.Count())
}

func TestRegistry_UnbindUnknown(t *testing.T) {
	r := NewRegistry()

	b, current := r.Unbind("missing")
	assert.False(t, current)
	assert.Empty(t, b.UserID)
}

func TestPairingGuard(t *testing.T) {
	g := NewPairingGuard()

	assert.NoError(t, g.Claim("user-a", queueContext(5)))
	assert.NoError(t, g.Claim("user-a", queueContext(5)), "same context is re-entrant")
	assert.ErrorIs(t, g.Claim("user-a", queueContext(10)), ErrAlreadyPaired)
	assert.ErrorIs(t, g.Claim("user-a", roomContext("AB12CD")), ErrAlreadyPaired)

	// 다른 컨텍스트 해제는 무시
	g.Release("user-a", roomContext("AB12CD"))
	held, ok := g.Holder("user-a")
	assert.True(t, ok)
	assert.Equal(t, "queue:5", held)

	g.Release("user-a", queueContext(5))
	assert.NoError(t, g.Claim("user-a", roomContext("AB12CD")))
}
