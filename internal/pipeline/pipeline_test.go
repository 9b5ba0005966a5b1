package pipeline

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sambhavthakkar/archivevault/internal/chunk"
)

func TestPipelinePackUnpackRoundTrip(t *testing.T) {
	p := New(context.Background(), nil, Config{})
	defer p.Close()

	key := bytes.Repeat([]byte{0x11}, 32)
	settings := chunk.DefaultSettings()
	plaintext := []byte("data routed through the concurrent packing pipeline")

	c, err := p.Pack(context.Background(), plaintext, settings, key)
	require.NoError(t, err)

	got, err := chunk.Unpack(c, key)
	require.NoError(t, err)
	require.Equal(t, plaintext, got)
}

func TestPipelinePackWithIDReusesID(t *testing.T) {
	p := New(context.Background(), nil, Config{})
	defer p.Close()

	key := bytes.Repeat([]byte{0x22}, 32)
	settings := chunk.DefaultSettings()
	var id chunk.ID
	id[0] = 0x77

	c, err := p.PackWithID(context.Background(), id, []byte("payload"), settings, key)
	require.NoError(t, err)
	require.Equal(t, id, c.ID)
}

func TestPipelineConcurrentRequestsAllSucceed(t *testing.T) {
	p := New(context.Background(), nil, Config{})
	defer p.Close()

	key := bytes.Repeat([]byte{0x33}, 32)
	settings := chunk.DefaultSettings()

	const n = 64
	var wg sync.WaitGroup
	errs := make([]error, n)
	chunks := make([]chunk.Chunk, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := p.Pack(context.Background(), []byte("same content every time"), settings, key)
			chunks[i] = c
			errs[i] = err
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		require.Equal(t, chunks[0].ID, chunks[i].ID)
	}
}

func TestPipelineCanceledCallerDoesNotHangWorker(t *testing.T) {
	p := New(context.Background(), nil, Config{})
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		p.Pack(ctx, []byte("x"), chunk.DefaultSettings(), bytes.Repeat([]byte{1}, 32))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Pack did not return for an already-canceled context")
	}
}

func TestPipelineCloseRejectsFurtherWork(t *testing.T) {
	p := New(context.Background(), nil, Config{})
	require.NoError(t, p.Close())

	_, err := p.Pack(context.Background(), []byte("x"), chunk.DefaultSettings(), bytes.Repeat([]byte{1}, 32))
	require.Error(t, err)
}

func TestPipelineCloseIsIdempotent(t *testing.T) {
	p := New(context.Background(), nil, Config{})
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
}

// TestPipelineHonorsExplicitWorkerAndQueueConfig confirms a caller-supplied
// Config actually governs worker count and queue depth rather than being
// silently ignored in favor of the NumCPU()/QueueDepth defaults.
func TestPipelineHonorsExplicitWorkerAndQueueConfig(t *testing.T) {
	p := New(context.Background(), nil, Config{Workers: 1, QueueDepth: 1})
	defer p.Close()

	key := bytes.Repeat([]byte{0x44}, 32)
	settings := chunk.DefaultSettings()

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = p.Pack(context.Background(), []byte("queued through a depth-1 channel"), settings, key)
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
	}
}
