package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var t0 = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func TestScore_Scenarios(t *testing.T) {
	now := t0.Add(20 * time.Minute)

	c1 := Score(t0, t0, now)
	assert.Equal(t, int64(20), c1.WaitMinutes)
	assert.Equal(t, int64(20), c1.ArrivalMinutes)
	assert.Equal(t, 30.0, c1.Score)

	c2 := Score(t0.Add(-60*time.Minute), t0, now)
	assert.Equal(t, int64(80), c2.WaitMinutes)
	assert.Equal(t, 90.0, c2.Score)

	assert.Greater(t, c2.Score, c1.Score)
}

func TestScore_MonotonicInArrival(t *testing.T) {
	first := t0.Add(-2 * time.Hour)
	now := t0.Add(time.Hour)

	prev := Score(first, now, now).Score
	for gap := 1; gap <= 60; gap++ {
		entered := now.Add(-time.Duration(gap) * time.Minute)
		got := Score(first, entered, now).Score
		assert.Greater(t, got, prev, "gap %d", gap)
		prev = got
	}
}

func TestScore_MonotonicInSeniority(t *testing.T) {
	now := t0.Add(time.Hour)
	entered := t0

	prev := Score(entered, entered, now).Score
	for gap := 1; gap <= 60; gap++ {
		first := entered.Add(-time.Duration(gap) * time.Minute)
		got := Score(first, entered, now).Score
		assert.Greater(t, got, prev, "gap %d", gap)
		prev = got
	}
}

func TestScore_TruncatesToWholeMinutes(t *testing.T) {
	now := t0.Add(5*time.Minute + 59*time.Second)
	b := Score(t0, t0, now)
	assert.Equal(t, int64(5), b.WaitMinutes)
	assert.Equal(t, 7.5, b.Score)
}

func TestScore_MinuteGranularity(t *testing.T) {
	now := t0.Add(time.Hour)

	base := Score(now.Add(-10*time.Minute), now.Add(-10*time.Minute), now).Score
	within := Score(now.Add(-10*time.Minute-59*time.Second), now.Add(-10*time.Minute-59*time.Second), now).Score
	next := Score(now.Add(-11*time.Minute), now.Add(-11*time.Minute), now).Score

	assert.Equal(t, base, within, "gaps inside the same minute score the same")
	assert.Greater(t, next, within, "crossing a minute boundary raises the score")
}

func TestScore_FutureTimestampsClampToZero(t *testing.T) {
	b := Score(t0.Add(time.Minute), t0.Add(2*time.Minute), t0)
	assert.Equal(t, Breakdown{}, b)
}
