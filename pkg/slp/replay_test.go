package slp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemPool_Occupancy(t *testing.T) {
	pool := ItemPool{capacity: 8, slots: make([]ItemSlot, 8)}
	pool.slots[2] = ItemSlot{SpawnID: 10, Type: 0x63, Frames: []ItemFrame{{Frame: -120}}}
	// claimed by id 5 but never given a frame
	pool.slots[5] = ItemSlot{SpawnID: 5}

	testCases := []struct {
		name    string
		spawnID uint32
		found   bool
	}{
		{name: "occupant", spawnID: 10, found: true},
		{name: "stale id sharing the slot", spawnID: 2, found: false},
		{name: "later id sharing the slot", spawnID: 18, found: false},
		{name: "slot without frames", spawnID: 5, found: false},
		{name: "empty slot", spawnID: 7, found: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s, ok := pool.Get(tc.spawnID)
			assert.Equal(t, tc.found, ok)
			if tc.found {
				require.NotNil(t, s)
				assert.Equal(t, tc.spawnID, s.SpawnID)
			}
		})
	}

	assert.Equal(t, 1, pool.Len())
	live := pool.Live()
	require.Len(t, live, 1)
	assert.Equal(t, uint32(10), live[0].SpawnID)
}

func TestItemPool_Empty(t *testing.T) {
	var pool ItemPool
	_, ok := pool.Get(0)
	assert.False(t, ok)
	assert.Zero(t, pool.Len())
	assert.Empty(t, pool.Live())
}

func TestActivePorts(t *testing.T) {
	testCases := []struct {
		name     string
		build    func(r *Replay)
		expected []int
	}{
		{
			name:     "no players",
			build:    func(r *Replay) {},
			expected: nil,
		},
		{
			name: "players declared before any frame",
			build: func(r *Replay) {
				r.Players[0].Type = PlayerHuman
				r.Players[2].Type = PlayerCPU
			},
			expected: []int{0, 2},
		},
		{
			name: "ice climbers partner with frames",
			build: func(r *Replay) {
				r.Players[1].Type = PlayerHuman
				r.Players[5].Type = PlayerHuman
				r.Players[5].Frames = make([]PlayerFrame, 3)
			},
			expected: []int{1, 5},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := newReplay(DefaultItemCapacity)
			tc.build(r)
			assert.Equal(t, tc.expected, r.ActivePorts())
		})
	}
}
