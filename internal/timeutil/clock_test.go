package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var _ Clock = RealClock{}
var _ Clock = (*MockClock)(nil)

func TestRealClock(t *testing.T) {
	before := time.Now()
	now := RealClock{}.Now()
	assert.False(t, now.Before(before))
	assert.GreaterOrEqual(t, RealClock{}.Since(before.Add(-time.Second)), time.Second)
}

func TestMockClock(t *testing.T) {
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("frozen", func(t *testing.T) {
		clock := NewMockClock(start)
		assert.Equal(t, start, clock.Now())
		assert.Equal(t, start, clock.Now())

		clock.Advance(1500 * time.Millisecond)
		assert.Equal(t, 1500*time.Millisecond, clock.Since(start))

		clock.Set(start.Add(time.Hour))
		assert.Equal(t, start.Add(time.Hour), clock.Now())
	})

	t.Run("stepping", func(t *testing.T) {
		clock := NewMockClock(start)
		clock.Step = time.Second
		assert.Equal(t, start, clock.Now())
		assert.Equal(t, start.Add(time.Second), clock.Now())
		assert.Equal(t, 2*time.Second, clock.Since(start))
	})
}

func TestStopwatch(t *testing.T) {
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := NewMockClock(start)
	watch := StartStopwatch(clock)
	assert.Equal(t, start, watch.Started())
	assert.Equal(t, 0.0, watch.ElapsedMs())

	clock.Advance(1234567 * time.Nanosecond)
	assert.Equal(t, 1.234, watch.ElapsedMs())
}
