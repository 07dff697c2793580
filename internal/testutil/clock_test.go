package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var march20 = time.Date(2024, time.March, 20, 12, 0, 0, 0, time.UTC)

func TestClock_StaysStopped(t *testing.T) {
	clock := NewClock(march20)

	assert.True(t, clock.Now().Equal(march20))
	assert.True(t, clock.Now().Equal(march20))
}

func TestClock_Advance(t *testing.T) {
	clock := NewClock(march20)

	got := clock.Advance(36 * time.Hour)

	want := time.Date(2024, time.March, 22, 0, 0, 0, 0, time.UTC)
	assert.True(t, got.Equal(want))
	assert.True(t, clock.Now().Equal(want))
}

func TestClock_Set(t *testing.T) {
	clock := NewClock(march20)
	later := march20.AddDate(1, 0, 0)

	clock.Set(later)

	assert.True(t, clock.Now().Equal(later))
}

func TestClock_NowAsFunction(t *testing.T) {
	clock := NewClock(march20)
	var now func() time.Time = clock.Now

	clock.Advance(time.Minute)

	assert.True(t, now().Equal(march20.Add(time.Minute)))
}

func TestClock_ConcurrentAdvance(t *testing.T) {
	clock := NewClock(march20)

	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			clock.Advance(time.Second)
			_ = clock.Now()
		}()
	}
	wg.Wait()

	assert.True(t, clock.Now().Equal(march20.Add(100*time.Second)))
}
