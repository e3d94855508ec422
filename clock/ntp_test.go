package clock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/beevik/ntp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestSystemClock(t *testing.T) {
	c := System()
	before := time.Now()
	got := c.Now()
	after := time.Now()

	if got.Before(before) || got.After(after) {
		t.Fatalf("System().Now() = %v, want between %v and %v", got, before, after)
	}
}

func TestFixedClock(t *testing.T) {
	start := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	c := NewFixed(start)
	assert.Equal(t, start, c.Now())

	c.Advance(90 * time.Minute)
	assert.Equal(t, start.Add(90*time.Minute), c.Now())

	c.Set(start)
	assert.Equal(t, start, c.Now())
}

func TestNTPClockDefaults(t *testing.T) {
	c := NewNTP(Params{})
	assert.Equal(t, defaultServer, c.server)
	assert.Equal(t, defaultInterval, c.interval)
	assert.Equal(t, defaultTimeout, c.timeout)
	assert.Zero(t, c.Offset())
}

func TestNTPClockAppliesOffset(t *testing.T) {
	c := NewNTP(Params{Config: Config{NTPServer: "time.example"}})
	c.query = func(host string, opt ntp.QueryOptions) (*ntp.Response, error) {
		assert.Equal(t, "time.example", host)
		return &ntp.Response{ClockOffset: 5 * time.Second}, nil
	}

	c.sync()
	require.Equal(t, 5*time.Second, c.Offset())

	before := time.Now().Add(5 * time.Second)
	got := c.Now()
	after := time.Now().Add(5 * time.Second)
	if got.Before(before.Add(-time.Millisecond)) || got.After(after.Add(time.Millisecond)) {
		t.Fatalf("NTPClock.Now() with +5s offset = %v, want ~%v", got, before)
	}
}

func TestNTPClockKeepsOffsetOnFailure(t *testing.T) {
	c := NewNTP(Params{})
	c.offset = 2 * time.Second
	c.query = func(string, ntp.QueryOptions) (*ntp.Response, error) {
		return nil, errors.New("timeout")
	}

	c.sync()
	assert.Equal(t, 2*time.Second, c.Offset())
}

func TestNTPClockStartStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	c := NewNTP(Params{Config: Config{NTPInterval: 10 * time.Millisecond}})
	calls := make(chan struct{}, 16)
	c.query = func(string, ntp.QueryOptions) (*ntp.Response, error) {
		select {
		case calls <- struct{}{}:
		default:
		}
		return &ntp.Response{ClockOffset: time.Second}, nil
	}

	require.NoError(t, c.Start(context.Background()))
	<-calls
	<-calls
	c.Stop()
	c.Stop()

	assert.Equal(t, time.Second, c.Offset())
}

func TestFromConfig(t *testing.T) {
	_, isSystem := FromConfig(Config{}, nil).(systemClock)
	assert.True(t, isSystem)

	_, isNTP := FromConfig(Config{NTPEnabled: true}, nil).(*NTPClock)
	assert.True(t, isNTP)
}
