package tcp

import (
	"github.com/kpchow/mintcp/buffer"
	"github.com/kpchow/mintcp/header"
	"github.com/kpchow/mintcp/seqnum"
)

// Segment represents a TCP segment in decoded form: a header plus payload.
// It carries no route or endpoint identity — those belong to an external
// network adapter — and it holds the payload as a single buffer.View,
// since the core only ever sees whole, already-reassembled payload slices
// handed to it by the wire adapter.
type Segment struct {
	SeqNum  seqnum.Value
	AckNum  seqnum.Value
	Window  seqnum.Size
	Flags   uint8
	Payload buffer.View
}

func (s Segment) flagIsSet(flag uint8) bool {
	return s.Flags&flag != 0
}

// Syn reports whether the SYN flag is set.
func (s Segment) Syn() bool { return s.flagIsSet(header.TCPFlagSyn) }

// Ack reports whether the ACK flag is set.
func (s Segment) Ack() bool { return s.flagIsSet(header.TCPFlagAck) }

// Fin reports whether the FIN flag is set.
func (s Segment) Fin() bool { return s.flagIsSet(header.TCPFlagFin) }

// Rst reports whether the RST flag is set.
func (s Segment) Rst() bool { return s.flagIsSet(header.TCPFlagRst) }

// LengthInSequenceSpace is the number of sequence numbers this segment
// consumes: one for SYN, one for FIN, plus one per payload byte.
func (s Segment) LengthInSequenceSpace() int {
	n := len(s.Payload)
	if s.Syn() {
		n++
	}
	if s.Fin() {
		n++
	}
	return n
}
