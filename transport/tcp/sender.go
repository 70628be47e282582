package tcp

import (
	"github.com/google/btree"

	"github.com/kpchow/mintcp/bytestream"
	"github.com/kpchow/mintcp/header"
	"github.com/kpchow/mintcp/seqnum"
)

// maxPayloadSize is the largest payload a single outbound segment may
// carry: 1000 bytes, comfortably under a standard 1500-byte MTU once
// headers are accounted for.
const maxPayloadSize = 1000

// outstandingSegment is an entry in the sender's retransmission map: a
// segment that has been sent but not yet fully acknowledged, keyed by its
// absolute starting sequence number.
type outstandingSegment struct {
	seqno  uint64
	length uint64
	seg    Segment
}

// Less implements btree.Item.
func (o *outstandingSegment) Less(than btree.Item) bool {
	return o.seqno < than.(*outstandingSegment).seqno
}

// Sender packetizes an outbound byte stream, manages bytes in flight
// against the peer's advertised window, and retransmits with exponential
// backoff.
type Sender struct {
	isn        seqnum.Value
	initialRTO uint32

	outbound *bytestream.ByteStream

	nextSeqno     uint64 // absolute
	outgoingBytes uint64
	outgoingMap   *btree.BTree

	lastWindowSize uint32
	synSent        bool
	finSent        bool

	currentTimeoutMs uint32
	elapsedMs        uint32
	consecutiveRetx  uint32

	queue segmentQueue
}

// NewSender returns a Sender that packetizes outbound, starting from isn,
// with the given initial retransmission timeout.
func NewSender(isn seqnum.Value, initialRTOMillis uint32, outbound *bytestream.ByteStream) *Sender {
	return &Sender{
		isn:         isn,
		initialRTO:  initialRTOMillis,
		outbound:    outbound,
		outgoingMap: btree.New(8),
		// Until the peer advertises a window, assume a window of 1, so a
		// retransmitted SYN backs off like any other segment.
		lastWindowSize:   1,
		currentTimeoutMs: initialRTOMillis,
	}
}

// BytesInFlight is the number of sequence numbers currently outstanding.
func (s *Sender) BytesInFlight() int {
	return int(s.outgoingBytes)
}

// ConsecutiveRetransmissions is the number of back-to-back timeouts since
// the last segment that was newly acknowledged.
func (s *Sender) ConsecutiveRetransmissions() uint32 {
	return s.consecutiveRetx
}

// effectiveWindow is the peer's last-advertised window, or 1 if the peer
// advertised a zero window (so the sender keeps probing).
func (s *Sender) effectiveWindow() uint32 {
	if s.lastWindowSize > 0 {
		return s.lastWindowSize
	}
	return 1
}

// FillWindow produces and queues segments while the peer's window allows.
func (s *Sender) FillWindow() {
	w := s.effectiveWindow()

	for uint64(w) > s.outgoingBytes {
		var seg Segment
		seg.SeqNum = s.isn.Add(seqnum.Size(s.nextSeqno))

		if !s.synSent {
			seg.Flags |= header.TCPFlagSyn
			s.synSent = true
		}

		synCost := 0
		if seg.Syn() {
			synCost = 1
		}

		budget := int(w) - int(s.outgoingBytes) - synCost
		if budget < 0 {
			budget = 0
		}
		if budget > maxPayloadSize {
			budget = maxPayloadSize
		}
		seg.Payload = s.outbound.Read(budget)

		if !s.finSent && s.outbound.EOF() && len(seg.Payload)+int(s.outgoingBytes)+synCost < int(w) {
			seg.Flags |= header.TCPFlagFin
			s.finSent = true
		}

		length := seg.LengthInSequenceSpace()
		if length == 0 {
			break
		}

		if s.outgoingMap.Len() == 0 {
			s.currentTimeoutMs = s.initialRTO
			s.elapsedMs = 0
		}

		s.queue.push(seg)
		s.outgoingMap.ReplaceOrInsert(&outstandingSegment{
			seqno:  s.nextSeqno,
			length: uint64(length),
			seg:    seg,
		})
		s.nextSeqno += uint64(length)
		s.outgoingBytes += uint64(length)

		if seg.Fin() {
			break
		}
	}
}

// AckReceived processes a peer ACK: it discards the acked prefix of the
// retransmission map, updates the advertised window, and fills the window
// with anything that newly fits.
func (s *Sender) AckReceived(ackno seqnum.Value, window uint16) {
	absAckno := seqnum.Unwrap(ackno, s.isn, s.nextSeqno)
	if absAckno > s.nextSeqno {
		// A bogus ACK for data we haven't sent yet.
		return
	}

	s.lastWindowSize = uint32(window)

	ackedAnything := false
	for {
		item := s.outgoingMap.Min()
		if item == nil {
			break
		}
		o := item.(*outstandingSegment)
		if o.seqno+o.length > absAckno {
			break
		}
		s.outgoingMap.Delete(item)
		s.outgoingBytes -= o.length
		s.currentTimeoutMs = s.initialRTO
		s.elapsedMs = 0
		ackedAnything = true
	}

	// consecutiveRetx is only cleared when this ACK actually retired an
	// outstanding segment — a duplicate ACK that covers nothing should not
	// reset the backoff state (see the open question in the design notes).
	if ackedAnything {
		s.consecutiveRetx = 0
	}

	s.FillWindow()
}

// Tick advances the retransmission timer by ms milliseconds, retransmitting
// the oldest outstanding segment on expiry.
func (s *Sender) Tick(ms uint64) {
	s.elapsedMs += uint32(ms)

	item := s.outgoingMap.Min()
	if item == nil || s.elapsedMs < s.currentTimeoutMs {
		return
	}

	oldest := item.(*outstandingSegment)
	s.queue.push(oldest.seg)

	if s.lastWindowSize > 0 {
		s.currentTimeoutMs *= 2
	}
	s.elapsedMs = 0
	s.consecutiveRetx++
}

// SendEmptySegment queues a segment with no flags and no payload, used for
// keep-alives and pure ACKs. It is not tracked for retransmission.
func (s *Sender) SendEmptySegment() {
	s.queue.push(Segment{SeqNum: s.isn.Add(seqnum.Size(s.nextSeqno))})
}

// StateSummary reports the sender's coarse FSM state. The classification
// follows directly from next_seqno (total sequence numbers ever sent) and
// outgoing_bytes (sequence numbers still unacknowledged): SYN_SENT is
// exactly the state where nothing sent so far has been acknowledged yet.
func (s *Sender) StateSummary() SenderStateSummary {
	switch {
	case s.nextSeqno == 0:
		return SenderClosed
	case s.nextSeqno == s.outgoingBytes:
		return SenderSynSent
	case !s.finSent:
		return SenderSynAcked
	case s.outgoingBytes > 0:
		return SenderFinSent
	default:
		return SenderFinAcked
	}
}
