// Package tcp implements the protocol engine: a Receiver and Sender glued
// together by a Connection that drives the joint handshake/close FSM. It
// is single-threaded and synchronous by design: SegmentReceived, Write,
// EndInputStream and Tick each run to completion with no internal
// suspension, so a connection's state never needs a lock or a goroutine
// to stay consistent.
package tcp

import (
	"math/rand"

	"github.com/kpchow/mintcp/bytestream"
	"github.com/kpchow/mintcp/header"
	"github.com/kpchow/mintcp/seqnum"
	"github.com/kpchow/mintcp/tcplog"
)

// Connection binds a Sender and a Receiver into one full-duplex endpoint,
// handling the handshake, RST, keep-alives and the lingering close.
type Connection struct {
	sender   *Sender
	receiver *Receiver

	outbound *bytestream.ByteStream // application writes here
	inbound  *bytestream.ByteStream // application reads from here

	queue segmentQueue

	active                   bool
	lingerAfterStreamsFinish bool
	timeSinceLastSegmentMs   uint64

	cfg Config
}

// NewConnection returns an unconnected Connection configured per cfg, with
// a randomly chosen initial sequence number.
func NewConnection(cfg Config) *Connection {
	return newConnectionWithISN(cfg, seqnum.Value(rand.Uint32()))
}

func newConnectionWithISN(cfg Config, isn seqnum.Value) *Connection {
	outbound := bytestream.New(cfg.Capacity)
	inbound := bytestream.New(cfg.Capacity)

	return &Connection{
		sender:                   NewSender(isn, cfg.InitialRTOMillis, outbound),
		receiver:                 NewReceiver(cfg.Capacity, inbound),
		outbound:                 outbound,
		inbound:                  inbound,
		lingerAfterStreamsFinish: true,
		cfg:                      cfg,
	}
}

// Connect performs an active open: it sends a SYN and marks the
// connection active.
func (c *Connection) Connect() {
	c.sender.FillWindow()
	c.active = true
	c.flush()
}

// Write forwards data to the outbound stream and sends as much of it as
// the peer's window currently allows.
func (c *Connection) Write(data []byte) int {
	n := c.outbound.Write(data)
	c.sender.FillWindow()
	c.flush()
	return n
}

// EndInputStream closes the outbound stream for writing. This is the
// point at which FIN becomes eligible to be sent.
func (c *Connection) EndInputStream() {
	c.outbound.EndInput()
	c.sender.FillWindow()
	c.flush()
}

// SegmentReceived processes an incoming segment: feeds it to the receiver,
// handles RST, updates the sender from any ACK, completes a passive open,
// tracks the linger decision, and replies with an ack-bearing segment if
// one isn't already on its way.
func (c *Connection) SegmentReceived(seg Segment) {
	c.timeSinceLastSegmentMs = 0

	needAck := seg.LengthInSequenceSpace() > 0

	c.receiver.SegmentReceived(seg)

	if seg.Rst() {
		c.enterRST(false)
		return
	}

	if seg.Ack() {
		// The sender's queue is always empty on entry here: every public
		// entry point flushes it before returning.
		c.sender.AckReceived(seg.AckNum, uint16(seg.Window))
		if needAck && !c.sender.queue.empty() {
			// ack_received itself produced a fresh segment, which will
			// already carry our ack — no separate empty ack needed.
			needAck = false
		}
	}

	// Passive-open completion: this was the first SYN we've seen, and we
	// haven't sent anything yet. fill_window (inside connect) emits the
	// SYN+ACK.
	if c.receiver.StateSummary() == ReceiverSynRecv && c.sender.StateSummary() == SenderClosed {
		c.Connect()
		return
	}

	// The peer finished sending before we did: don't bother lingering
	// once we finish too.
	if c.receiver.StateSummary() == ReceiverFinRecv && c.sender.StateSummary() == SenderSynAcked {
		c.lingerAfterStreamsFinish = false
	}

	if c.receiver.StateSummary() == ReceiverFinRecv && c.sender.StateSummary() == SenderFinAcked && !c.lingerAfterStreamsFinish {
		c.active = false
		return
	}

	if needAck {
		c.sender.SendEmptySegment()
	}

	c.flush()
}

// Tick advances the retransmission and linger timers by ms milliseconds.
func (c *Connection) Tick(ms uint64) {
	c.sender.Tick(ms)

	if c.sender.ConsecutiveRetransmissions() > c.cfg.MaxRetxAttempts {
		// Drop the retransmit the sender just queued; we're aborting
		// instead of sending it.
		c.sender.queue.pop()
		c.enterRST(true)
		return
	}

	c.flush()

	c.timeSinceLastSegmentMs += ms

	if c.receiver.StateSummary() == ReceiverFinRecv && c.sender.StateSummary() == SenderFinAcked &&
		c.lingerAfterStreamsFinish &&
		c.timeSinceLastSegmentMs >= uint64(c.cfg.LingerMultiplier)*uint64(c.cfg.InitialRTOMillis) {
		c.active = false
		c.lingerAfterStreamsFinish = false
	}
}

// Active reports whether the connection is still alive.
func (c *Connection) Active() bool {
	return c.active
}

// RemainingOutboundCapacity is the number of bytes Write would still
// accept right now.
func (c *Connection) RemainingOutboundCapacity() int {
	return c.outbound.RemainingCapacity()
}

// BytesInFlight is the number of unacknowledged outgoing sequence numbers.
func (c *Connection) BytesInFlight() int {
	return c.sender.BytesInFlight()
}

// UnassembledBytes is the number of bytes the receiver's reassembler is
// holding pending.
func (c *Connection) UnassembledBytes() int {
	return c.receiver.UnassembledBytes()
}

// TimeSinceLastSegmentReceived is the number of milliseconds since the
// last call to SegmentReceived.
func (c *Connection) TimeSinceLastSegmentReceived() uint64 {
	return c.timeSinceLastSegmentMs
}

// SegmentsOut drains and returns every segment queued for the adapter
// since the last call.
func (c *Connection) SegmentsOut() []Segment {
	return c.queue.drain()
}

// InboundStream exposes the inbound byte stream for the application to
// read from.
func (c *Connection) InboundStream() *bytestream.ByteStream {
	return c.inbound
}

// Close performs an unclean shutdown if the connection is still active:
// it sends an RST and tears the connection down. Go has no destructors,
// so callers that own a Connection past its useful life must call this
// explicitly.
func (c *Connection) Close() {
	if c.active {
		tcplog.Logger().WithField("state", c.sender.StateSummary()).Warn("unclean shutdown of tcp connection")
		// Treated as a local abort: queue an RST rather than closing silently.
		c.enterRST(true)
	}
}

// enterRST handles both directions of reset: sendRst queues an outbound
// RST segment (local abort); when false, this is a peer-initiated reset
// and no RST is sent back.
func (c *Connection) enterRST(sendRst bool) {
	if sendRst {
		c.queue.push(Segment{Flags: header.TCPFlagRst})
	}
	c.inbound.SetError()
	c.outbound.SetError()
	c.lingerAfterStreamsFinish = false
	c.active = false
}

// flush drains the sender's queue into the connection's outbound queue,
// stamping each segment with the receiver's current ack and window.
func (c *Connection) flush() {
	for {
		seg, ok := c.sender.queue.pop()
		if !ok {
			return
		}
		if ackno, has := c.receiver.AckNo(); has {
			seg.Flags |= header.TCPFlagAck
			seg.AckNum = ackno
			seg.Window = seqnum.Size(c.receiver.WindowSize())
		}
		c.queue.push(seg)
	}
}
