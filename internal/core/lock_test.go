package core

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoomLocksSerializeSameRoom(t *testing.T) {
	l := NewRoomLocks()

	var wg sync.WaitGroup
	counter := 0
	for _i := 0; _i < 50; _i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.Lock("r1")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
	assert.Zero(t, l.held(), "entries are released with the last holder")
}

func TestRoomLocksIndependentRooms(t *testing.T) {
	l := NewRoomLocks()

	unlockA := l.Lock("a")
	unlockB := l.Lock("b")
	assert.Equal(t, 2, l.held())

	unlockA()
	unlockA()
	unlockB()
	assert.Zero(t, l.held())
}
