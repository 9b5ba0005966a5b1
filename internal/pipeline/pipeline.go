// Package pipeline implements C4: a bounded fan-out worker pool that runs
// chunk packing (C3) off the caller's goroutine, so CPU-bound compress /
// encrypt / MAC work for many chunks proceeds concurrently while segment
// writes and index updates stay serialized elsewhere.
package pipeline

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/sambhavthakkar/archivevault/internal/chunk"
	"github.com/sambhavthakkar/archivevault/internal/observability"
	"github.com/sambhavthakkar/archivevault/internal/repoerr"
)

// QueueDepth is the default capacity of the single bounded request channel,
// which carries both plain and id-known requests.
const QueueDepth = 50

// Config tunes a Pipeline's worker count and request queue depth. The zero
// value means "use the defaults": Workers falls back to runtime.NumCPU()
// and QueueDepth falls back to QueueDepth. Populated from
// config.Config's PipelineWorkerCount/PipelineQueueDepth fields by callers
// that load configuration (e.g. cmd/archivectl); tests and other callers
// that don't care can pass the zero value.
type Config struct {
	Workers    int
	QueueDepth int
}

type packRequest struct {
	ctx       context.Context
	plaintext []byte
	id        *chunk.ID // nil => derive id from plaintext
	settings  chunk.Settings
	key       []byte
	reply     chan packResult
}

type packResult struct {
	id    chunk.ID
	chunk chunk.Chunk
	err   error
}

// Pipeline owns N symmetric, stateless worker goroutines fed by a single
// bounded request channel. Any worker may serve any request; ordering
// between independent requests is not guaranteed, only the ordering of a
// request's own reply (each request gets a dedicated, single-use reply
// channel).
type Pipeline struct {
	requests chan packRequest
	group    *errgroup.Group
	log      *observability.Logger

	mu     sync.RWMutex
	closed bool
}

// New spawns cfg.Workers workers (runtime.NumCPU() if cfg.Workers <= 0)
// reading from a channel of depth cfg.QueueDepth (QueueDepth if
// cfg.QueueDepth <= 0). Workers run until ctx is canceled or Close is
// called, after which new Pack/PackWithID calls return
// repoerr.ErrChannelClosed.
func New(ctx context.Context, log *observability.Logger, cfg Config) *Pipeline {
	if log == nil {
		log = observability.NewLogger("archivevault", "dev", nil)
	}
	queueDepth := cfg.QueueDepth
	if queueDepth <= 0 {
		queueDepth = QueueDepth
	}
	p := &Pipeline{
		requests: make(chan packRequest, queueDepth),
	}
	g, gctx := errgroup.WithContext(ctx)
	p.group = g

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			p.worker(gctx)
			return nil
		})
	}
	p.log = log
	return p
}

func (p *Pipeline) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case req, ok := <-p.requests:
			if !ok {
				return
			}
			p.handle(req)
		}
	}
}

// handle performs the CPU-bound pack (C3) and tries to deliver the result.
// If the caller has already given up (its context is done), the result is
// dropped rather than retried -- packing is idempotent, so nothing is lost
// by letting a fresh call redo the work later.
func (p *Pipeline) handle(req packRequest) {
	var res packResult
	if req.id != nil {
		c, err := chunk.PackWithID(req.plaintext, *req.id, req.settings, req.key)
		res = packResult{id: *req.id, chunk: c, err: err}
	} else {
		c, err := chunk.Pack(req.plaintext, req.settings, req.key)
		res = packResult{id: c.ID, chunk: c, err: err}
	}

	select {
	case req.reply <- res:
	case <-req.ctx.Done():
		p.log.Debug("pipeline: dropped result for canceled request")
	}
}

// Pack dispatches plaintext for packing with an id derived from it,
// returning once a worker has produced the Chunk (or failed to).
func (p *Pipeline) Pack(ctx context.Context, plaintext []byte, settings chunk.Settings, key []byte) (chunk.Chunk, error) {
	return p.dispatch(ctx, packRequest{ctx: ctx, plaintext: plaintext, settings: settings, key: key})
}

// PackWithID dispatches plaintext for packing under an id the caller
// already computed (e.g. via chunk.Unpacked), skipping id derivation.
func (p *Pipeline) PackWithID(ctx context.Context, id chunk.ID, plaintext []byte, settings chunk.Settings, key []byte) (chunk.Chunk, error) {
	return p.dispatch(ctx, packRequest{ctx: ctx, plaintext: plaintext, id: &id, settings: settings, key: key})
}

func (p *Pipeline) dispatch(ctx context.Context, req packRequest) (chunk.Chunk, error) {
	reply := make(chan packResult, 1)
	req.reply = reply

	if err := p.send(ctx, req); err != nil {
		return chunk.Chunk{}, err
	}

	select {
	case res := <-reply:
		if res.err != nil {
			return chunk.Chunk{}, fmt.Errorf("pipeline: pack: %w", res.err)
		}
		return res.chunk, nil
	case <-ctx.Done():
		return chunk.Chunk{}, ctx.Err()
	}
}

// send enqueues req, holding the read lock only long enough to check
// closed-ness and perform the channel send -- never across the later wait
// for a reply, so Close (which takes the write lock) isn't held up by
// slow-to-reply requests.
func (p *Pipeline) send(ctx context.Context, req packRequest) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return repoerr.ErrChannelClosed
	}

	select {
	case p.requests <- req:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting new work and waits for in-flight requests to
// drain. It is not cancelable: close() drains the pipeline before
// flushing. Calling Pack/PackWithID after
// Close returns repoerr.ErrChannelClosed.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.requests)
	p.mu.Unlock()

	return p.group.Wait()
}
