package tcp

import (
	"github.com/kpchow/mintcp/bytestream"
	"github.com/kpchow/mintcp/reassembler"
	"github.com/kpchow/mintcp/seqnum"
)

// Receiver holds the state necessary to receive TCP segments and turn them
// into a stream of bytes. Everything beyond isn/synSeen is derived from
// the reassembler and its output stream.
type Receiver struct {
	isn     seqnum.Value
	synSeen bool

	reassembler *reassembler.Reassembler
	inbound     *bytestream.ByteStream
	capacity    int
}

// NewReceiver returns a Receiver that assembles incoming segments into
// inbound, a stream with the given capacity.
func NewReceiver(capacity int, inbound *bytestream.ByteStream) *Receiver {
	return &Receiver{
		reassembler: reassembler.New(capacity, inbound),
		inbound:     inbound,
		capacity:    capacity,
	}
}

// SegmentReceived feeds an incoming segment to the reassembler, having
// first unwrapped its sequence number into a stream index.
func (r *Receiver) SegmentReceived(seg Segment) {
	if !r.synSeen {
		if !seg.Syn() {
			// Nothing can be placed in the stream before SYN arrives.
			return
		}
		r.isn = seg.SeqNum
		r.synSeen = true
	}

	checkpoint := r.inbound.BytesWritten() + 1
	absSeqno := seqnum.Unwrap(seg.SeqNum, r.isn, checkpoint)

	streamIndex := absSeqno - 1
	if seg.Syn() {
		streamIndex++
	}

	r.reassembler.Push(seg.Payload, streamIndex, seg.Fin())
}

// AckNo returns the next sequence number the receiver expects, wrapped to
// 32 bits, or false if SYN has not yet been seen.
func (r *Receiver) AckNo() (seqnum.Value, bool) {
	if !r.synSeen {
		return 0, false
	}

	absAckNo := r.inbound.BytesWritten() + 1
	if r.inbound.InputEnded() {
		absAckNo++
	}

	return r.isn.Add(seqnum.Size(absAckNo)), true
}

// WindowSize is the remaining capacity of the inbound stream.
func (r *Receiver) WindowSize() uint32 {
	return uint32(r.capacity - r.inbound.BufferSize())
}

// UnassembledBytes is the number of bytes the reassembler is holding
// pending because they are not yet contiguous with the stream.
func (r *Receiver) UnassembledBytes() int {
	return r.reassembler.UnassembledBytes()
}

// StateSummary reports the receiver's coarse FSM state.
func (r *Receiver) StateSummary() ReceiverStateSummary {
	if !r.synSeen {
		return ReceiverListen
	}
	if r.inbound.InputEnded() {
		return ReceiverFinRecv
	}
	return ReceiverSynRecv
}
