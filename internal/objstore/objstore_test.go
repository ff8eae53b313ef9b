package objstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsert(t *testing.T) {
	s := New[string]()

	require.NoError(t, s.Insert(1, ClientSide, "display"))
	assert.ErrorIs(t, s.Insert(1, ClientSide, "again"), ErrInUse)
	assert.ErrorIs(t, s.Insert(0, ClientSide, "null"), ErrNullID)
	assert.ErrorIs(t, s.Insert(ServerMin, ClientSide, "server"), ErrWrongRange)
	assert.ErrorIs(t, s.Insert(ClientMax, ServerSide, "client"), ErrWrongRange)
	require.NoError(t, s.Insert(ClientMax, ClientSide, "last"))

	v, err := s.Lookup(1)
	require.NoError(t, err)
	assert.Equal(t, "display", v)
	assert.Equal(t, 2, s.Len())
}

func TestZombie(t *testing.T) {
	s := New[string]()
	require.NoError(t, s.Insert(5, ClientSide, "surface"))

	s.Zombie(5)
	v, state := s.Get(5)
	assert.Equal(t, Zombie, state)
	assert.Equal(t, "surface", v)
	_, err := s.Lookup(5)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, s.Len())

	require.NoError(t, s.Insert(5, ClientSide, "region"))
	v, state = s.Get(5)
	assert.Equal(t, Live, state)
	assert.Equal(t, "region", v)

	s.Destroy(5)
	_, state = s.Get(5)
	assert.Equal(t, Missing, state)
}

func TestNewServerID(t *testing.T) {
	s := New[int]()

	id, err := s.NewServerID()
	require.NoError(t, err)
	assert.Equal(t, ServerMin, id)
	require.NoError(t, s.Insert(id, ServerSide, 0))

	id, err = s.NewServerID()
	require.NoError(t, err)
	assert.Equal(t, ServerMin+1, id)
	assert.Equal(t, ServerSide, SideOf(id))
	assert.Equal(t, ClientSide, SideOf(ClientMax))

	s.nextID = ^uint32(0)
	id, err = s.NewServerID()
	require.NoError(t, err)
	assert.Equal(t, ^uint32(0), id)
	_, err = s.NewServerID()
	assert.ErrorIs(t, err, ErrIDsExhausted)
}

func TestRange(t *testing.T) {
	s := New[int]()
	for i := uint32(1); i <= 4; i++ {
		require.NoError(t, s.Insert(i, ClientSide, int(i)))
	}
	s.Zombie(2)

	var sum int
	s.Range(func(id uint32, v int) bool {
		sum += v
		return true
	})
	assert.Equal(t, 8, sum)
}
