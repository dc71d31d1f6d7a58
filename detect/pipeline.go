package detect

import (
	"context"
	"sync"

	"github.com/odmlbook/inkvision/log"
	"github.com/odmlbook/inkvision/overlay"
)

// Result is the outcome of one submitted frame. On failure Commands clear
// the overlay so boxes of an older frame never stay on screen.
type Result struct {
	Seq        uint64
	Detections []Detection
	Commands   []overlay.Command
	Err        error
}

// Pipeline runs a detector on frames in the background and delivers the
// overlay commands on a channel. Submitting a frame cancels the detection
// of any earlier frame still in flight, and results of superseded frames
// are dropped.
type Pipeline struct {
	detector  Detector
	annotator *Annotator
	results   chan Result

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	cancelLast context.CancelFunc
	closed     bool

	// sendMu guards seq and is held while a result is delivered, so a
	// result is only ever sent while its frame is the latest one.
	sendMu sync.Mutex
	seq    uint64
}

// NewPipeline starts a pipeline. buffer is the capacity of the result
// channel.
func NewPipeline(d Detector, a *Annotator, buffer int) *Pipeline {
	ctx, cancel := context.WithCancel(context.Background())
	return &Pipeline{
		detector:  d,
		annotator: a,
		results:   make(chan Result, buffer),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Results is closed by Close.
func (p *Pipeline) Results() <-chan Result {
	return p.results
}

// Submit schedules detection of f and returns its sequence number, 0 once
// the pipeline is closed.
func (p *Pipeline) Submit(f Frame) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0
	}
	if p.cancelLast != nil {
		p.cancelLast()
	}
	p.sendMu.Lock()
	p.seq++
	seq := p.seq
	p.sendMu.Unlock()
	ctx, cancel := context.WithCancel(p.ctx)
	p.cancelLast = cancel

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer cancel()
		p.run(ctx, seq, f)
	}()
	return seq
}

func (p *Pipeline) run(ctx context.Context, seq uint64, f Frame) {
	res := Run(ctx, p.detector, p.annotator, f)
	res.Seq = seq
	if res.Err != nil && ctx.Err() == nil {
		log.Trace.Printf("frame %d: detection failed: %v", seq, res.Err)
	}
	p.deliver(ctx, res)
}

// deliver sends res unless a newer frame was submitted. A Submit waiting
// on sendMu has already cancelled ctx, which releases a blocked send.
func (p *Pipeline) deliver(ctx context.Context, res Result) {
	p.sendMu.Lock()
	defer p.sendMu.Unlock()
	if res.Seq != p.seq || ctx.Err() != nil {
		log.Trace.Printf("frame %d superseded, dropping result", res.Seq)
		return
	}
	select {
	case p.results <- res:
	case <-ctx.Done():
		log.Trace.Printf("frame %d superseded while waiting, dropping result", res.Seq)
	case <-p.ctx.Done():
	}
}

// Close cancels pending detections, waits for the workers and closes the
// result channel.
func (p *Pipeline) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	p.cancel()
	p.wg.Wait()
	close(p.results)
}

// Run detects a single frame synchronously, applying the same failure
// policy as the pipeline.
func Run(ctx context.Context, d Detector, a *Annotator, f Frame) Result {
	dets, err := d.Detect(ctx, f)
	res := Result{Detections: dets, Err: err}
	if err == nil {
		res.Commands, res.Err = a.Commands(f, dets)
	}
	if res.Err != nil {
		res.Detections = nil
		res.Commands = a.Clear()
	}
	return res
}
