package janitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBlacklist struct {
	mu     sync.Mutex
	purges []time.Time
	n      int
	err    error
}

func (f *fakeBlacklist) Add(context.Context, string, time.Time) error   { return nil }
func (f *fakeBlacklist) Contains(context.Context, string) (bool, error) { return false, nil }

func (f *fakeBlacklist) PurgeExpired(_ context.Context, now time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.purges = append(f.purges, now)
	return f.n, f.err
}

func (f *fakeBlacklist) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.purges)
}

func TestNewRejectsBadSchedule(t *testing.T) {
	_, err := New(&fakeBlacklist{}, "every now and then")
	assert.Error(t, err)
}

func TestPurgeOnce(t *testing.T) {
	bl := &fakeBlacklist{n: 3}
	j, err := New(bl, "@every 1h")
	require.NoError(t, err)

	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	j.now = func() time.Time { return fixed }

	n, err := j.PurgeOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []time.Time{fixed}, bl.purges)

	bl.err = errors.New("db down")
	_, err = j.PurgeOnce(context.Background())
	assert.Error(t, err)
}

func TestScheduledRun(t *testing.T) {
	bl := &fakeBlacklist{}
	j, err := New(bl, "@every 1s")
	require.NoError(t, err)

	j.Start()
	assert.Eventually(t, func() bool { return bl.calls() > 0 }, 3*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, j.Shutdown(ctx))
}
