package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCooldownAllow(t *testing.T) {
	c := NewCooldown(5 * time.Second)
	t0 := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, c.Allow("m", "r", false, t0))
	assert.False(t, c.Allow("m", "r", false, t0.Add(2*time.Second)))
	assert.True(t, c.Allow("m", "r", false, t0.Add(6*time.Second)))
}

func TestCooldownRejectionDoesNotMoveClock(t *testing.T) {
	c := NewCooldown(5 * time.Second)
	t0 := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, c.Allow("m", "r", false, t0))
	for i := 1; i < 5; i++ {
		assert.False(t, c.Allow("m", "r", false, t0.Add(time.Duration(i)*time.Second)))
	}
	assert.True(t, c.Allow("m", "r", false, t0.Add(5*time.Second)), "window is measured from the last accepted message")
}

func TestCooldownOwnerExempt(t *testing.T) {
	c := NewCooldown(5 * time.Second)
	t0 := time.Now()

	for i := 0; i < 10; i++ {
		assert.True(t, c.Allow("owner", "r", true, t0.Add(time.Duration(i)*time.Millisecond)))
	}
	assert.Zero(t, c.Len(), "owners leave no state")
}

func TestCooldownKeyedByMemberAndRoom(t *testing.T) {
	c := NewCooldown(5 * time.Second)
	t0 := time.Now()

	assert.True(t, c.Allow("m", "r1", false, t0))
	assert.True(t, c.Allow("m", "r2", false, t0), "other room has its own clock")
	assert.True(t, c.Allow("n", "r1", false, t0), "other member has its own clock")
	assert.False(t, c.Allow("m", "r1", false, t0.Add(time.Second)))
}

func TestCooldownDefaultWindow(t *testing.T) {
	assert.Equal(t, DefaultCooldown, NewCooldown(0).Window())
}

func TestCooldownSweep(t *testing.T) {
	c := NewCooldown(5 * time.Second)
	t0 := time.Now()

	c.Allow("old", "r", false, t0)
	c.Allow("fresh", "r", false, t0.Add(50*time.Second))

	dropped := c.Sweep(t0.Add(time.Minute), 30*time.Second)
	assert.Equal(t, 1, dropped)
	assert.Equal(t, 1, c.Len())

	assert.True(t, c.Allow("old", "r", false, t0.Add(time.Minute)))
	assert.False(t, c.Allow("fresh", "r", false, t0.Add(52*time.Second)))
}

func TestCooldownSweepNeverShorterThanWindow(t *testing.T) {
	c := NewCooldown(5 * time.Second)
	t0 := time.Now()

	c.Allow("m", "r", false, t0)
	assert.Zero(t, c.Sweep(t0.Add(3*time.Second), time.Millisecond))
	assert.False(t, c.Allow("m", "r", false, t0.Add(4*time.Second)))
}
