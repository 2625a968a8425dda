package threadpool

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGroupRunsAllTasks(t *testing.T) {
	pool := New(4)
	group := pool.NewGroup()

	var count int32
	for i := 0; i < 100; i++ {
		group.Go(func() error {
			atomic.AddInt32(&count, 1)
			return nil
		})
	}
	require.NoError(t, group.Wait())
	require.Equal(t, int32(100), count)
}

func TestGroupPropagatesFirstError(t *testing.T) {
	pool := New(2)
	group := pool.NewGroup()

	wantErr := errors.New("row conversion failed")
	group.Go(func() error { return wantErr })
	group.Go(func() error { return nil })

	err := group.Wait()
	require.ErrorIs(t, err, wantErr)
}

func TestNewClampsToOneWorker(t *testing.T) {
	pool := New(0)
	require.Equal(t, 1, pool.Size())
}
