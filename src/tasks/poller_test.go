package tasks

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volume-reconcile/src/inventory"
)

func testPoller(c inventory.Client) *Poller {
	p := NewPoller(c, slog.New(slog.NewTextHandler(io.Discard, nil)))
	p.Interval = time.Millisecond
	return p
}

func TestAwaitSuccessBeforeCeiling(t *testing.T) {
	fake := inventory.NewFake()
	fake.PollsBeforeTerminal = 2
	fake.AddObject(inventory.StorageObject{ID: "ds1:a", Datastore: "ds1"})
	handle, err := fake.DeleteObject("ds1:a")
	require.NoError(t, err)

	out, err := testPoller(fake).Await(context.Background(), handle, time.Second)
	require.NoError(t, err)
	assert.Equal(t, Success, out.Result)
}

func TestAwaitReportsFailureDetail(t *testing.T) {
	fake := inventory.NewFake()
	fake.FailObjectDelete = map[string]string{"ds1:a": "backing file is corrupt"}
	fake.AddObject(inventory.StorageObject{ID: "ds1:a", Datastore: "ds1"})
	handle, err := fake.DeleteObject("ds1:a")
	require.NoError(t, err)

	out, err := testPoller(fake).Await(context.Background(), handle, time.Second)
	require.NoError(t, err)
	assert.Equal(t, Failed, out.Result)
	assert.Equal(t, "backing file is corrupt", out.Detail)
}

func TestAwaitTimeoutIsDistinctFromFailure(t *testing.T) {
	fake := inventory.NewFake()
	fake.HangObjectDelete = map[string]bool{"ds1:a": true}
	fake.AddObject(inventory.StorageObject{ID: "ds1:a", Datastore: "ds1"})
	handle, err := fake.DeleteObject("ds1:a")
	require.NoError(t, err)

	out, err := testPoller(fake).Await(context.Background(), handle, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, Timeout, out.Result)
	assert.NotEqual(t, Failed, out.Result)
	assert.Contains(t, out.Detail, string(handle))
}

func TestAwaitContextCancellation(t *testing.T) {
	fake := inventory.NewFake()
	fake.HangObjectDelete = map[string]bool{"ds1:a": true}
	fake.AddObject(inventory.StorageObject{ID: "ds1:a", Datastore: "ds1"})
	handle, err := fake.DeleteObject("ds1:a")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = testPoller(fake).Await(ctx, handle, time.Second)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAwaitPropagatesConnectionErrors(t *testing.T) {
	fake := inventory.NewFake()
	fake.AddObject(inventory.StorageObject{ID: "ds1:a", Datastore: "ds1"})
	handle, err := fake.DeleteObject("ds1:a")
	require.NoError(t, err)

	fake.ConnErr = context.DeadlineExceeded
	_, err = testPoller(fake).Await(context.Background(), handle, time.Second)
	require.Error(t, err)
	assert.True(t, inventory.IsConnectionError(err))
}

func TestResultString(t *testing.T) {
	assert.Equal(t, "success", Success.String())
	assert.Equal(t, "failed", Failed.String())
	assert.Equal(t, "timeout", Timeout.String())
}
