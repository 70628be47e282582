// Package simlink is an in-memory lossy link for driving two
// transport/tcp.Connections against each other without a real network
// stack: a buffered queue of packets that the caller pumps by hand rather
// than a live NIC. It is not goroutine-driven — Pump is called
// synchronously by the sample adapter, and loss/duplication/reordering are
// deterministic functions of a seeded math/rand source rather than a raw
// kernel race, so demo runs are reproducible.
package simlink

import (
	"math/rand"
)

// Options controls the link's impairment behavior. A zero Options value is
// a perfect link.
type Options struct {
	DropProbability     float64
	DuplicateProbability float64
	Reorder             bool
	Rand                *rand.Rand
}

// Link is a one-directional in-memory wire: frames written in one end
// arrive, impaired according to Options, for Pump to deliver.
type Link struct {
	opts   Options
	queue  [][]byte
	pending [][]byte
}

// New returns a Link with the given impairment options. If opts.Rand is
// nil, a fixed-seed source is used so runs are repeatable.
func New(opts Options) *Link {
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(1))
	}
	return &Link{opts: opts}
}

// Send enqueues raw, an encoded wire frame, for later delivery via Pump.
// It may be dropped or duplicated right away according to Options.
func (l *Link) Send(raw []byte) {
	if l.opts.DropProbability > 0 && l.opts.Rand.Float64() < l.opts.DropProbability {
		return
	}

	frame := make([]byte, len(raw))
	copy(frame, raw)
	l.pending = append(l.pending, frame)

	if l.opts.DuplicateProbability > 0 && l.opts.Rand.Float64() < l.opts.DuplicateProbability {
		dup := make([]byte, len(raw))
		copy(dup, raw)
		l.pending = append(l.pending, dup)
	}
}

// Pump moves everything queued by Send since the last Pump into the
// delivery queue, reordering it if Options.Reorder is set. It returns
// nothing; Drain hands the frames out, so calling Send then Pump then Drain
// delivers a frame within the same cycle it was sent.
func (l *Link) Pump() {
	if l.opts.Reorder && len(l.pending) > 1 {
		l.opts.Rand.Shuffle(len(l.pending), func(i, j int) {
			l.pending[i], l.pending[j] = l.pending[j], l.pending[i]
		})
	}
	l.queue = append(l.queue, l.pending...)
	l.pending = nil
}

// Drain returns and clears every frame ready for delivery.
func (l *Link) Drain() [][]byte {
	out := l.queue
	l.queue = nil
	return out
}
