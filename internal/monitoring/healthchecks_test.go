package monitoring

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type fakePinger struct {
	fail  atomic.Bool
	calls atomic.Int32
}

func (p *fakePinger) Ping(ctx context.Context) error {
	p.calls.Add(1)
	if p.fail.Load() {
		return errors.New("connection refused")
	}
	return nil
}

func TestHealthMonitor_Check(t *testing.T) {
	p := &fakePinger{}
	m := NewHealthMonitor("inference", p, time.Minute)

	assert.False(t, m.Healthy(), "unknown until first check")
	assert.True(t, m.Check(context.Background()))
	assert.True(t, m.Healthy())

	p.fail.Store(true)
	assert.False(t, m.Check(context.Background()))
	assert.False(t, m.Healthy())
}

func TestHealthMonitor_Run(t *testing.T) {
	defer goleak.VerifyNone(t)

	p := &fakePinger{}
	m := NewHealthMonitor("cache", p, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return p.calls.Load() >= 3 }, time.Second, time.Millisecond)
	assert.True(t, m.Healthy())

	cancel()
	<-done
}

func TestHealth_Status(t *testing.T) {
	up := &fakePinger{}
	down := &fakePinger{}
	down.fail.Store(true)

	a := NewHealthMonitor("inference", up, 0)
	b := NewHealthMonitor("cache", down, 0)
	h := NewHealth(a)
	h.Add(b)

	a.Check(context.Background())
	b.Check(context.Background())

	assert.Equal(t, map[string]bool{"inference": true, "cache": false}, h.Status())
	assert.False(t, h.Healthy())
	assert.True(t, NewHealth().Healthy())
}
