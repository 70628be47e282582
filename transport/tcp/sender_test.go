package tcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kpchow/mintcp/bytestream"
	"github.com/kpchow/mintcp/checker"
	"github.com/kpchow/mintcp/header"
	"github.com/kpchow/mintcp/seqnum"
)

func TestSenderSendsSynOnFirstFillWindow(t *testing.T) {
	out := bytestream.New(100)
	isn := seqnum.Value(12345)
	s := NewSender(isn, 1000, out)

	s.FillWindow()

	seg, ok := s.queue.pop()
	require.True(t, ok)
	checker.TCP(t, seg, checker.Syn(), checker.SeqNum(uint32(isn)), checker.PayloadLen(0))
	assert.Equal(t, SenderSynSent, s.StateSummary())
}

func TestSenderSendsDataUpToWindow(t *testing.T) {
	out := bytestream.New(100)
	isn := seqnum.Value(0)
	s := NewSender(isn, 1000, out)
	out.Write([]byte("hello world"))

	s.FillWindow() // SYN only; nothing is known about the peer's window yet
	s.queue.drain()

	s.AckReceived(isn.Add(1), 5) // acks the SYN and advertises a window of 5

	seg, ok := s.queue.pop()
	require.True(t, ok)
	checker.TCP(t, seg, checker.SeqNum(1), checker.PayloadLen(5))
	assert.True(t, s.queue.empty())
}

func TestSenderRetransmitsOnTimeoutWithBackoff(t *testing.T) {
	out := bytestream.New(100)
	isn := seqnum.Value(0)
	s := NewSender(isn, 100, out)
	s.FillWindow() // the SYN sits unacknowledged
	s.queue.drain()

	s.Tick(99)
	assert.True(t, s.queue.empty(), "timeout hasn't elapsed yet")

	s.Tick(1)
	seg, ok := s.queue.pop()
	require.True(t, ok)
	checker.TCP(t, seg, checker.Syn())
	assert.Equal(t, uint32(1), s.ConsecutiveRetransmissions())

	s.Tick(199)
	assert.True(t, s.queue.empty(), "timeout doubled to 200ms")

	s.Tick(1)
	_, ok = s.queue.pop()
	require.True(t, ok)
	assert.Equal(t, uint32(2), s.ConsecutiveRetransmissions())
}

func TestSenderZeroWindowStillProbes(t *testing.T) {
	out := bytestream.New(100)
	isn := seqnum.Value(0)
	s := NewSender(isn, 1000, out)
	out.Write([]byte("x"))

	s.FillWindow()
	s.queue.drain()

	s.AckReceived(isn.Add(1), 0)

	seg, ok := s.queue.pop()
	require.True(t, ok)
	checker.TCP(t, seg, checker.PayloadLen(1))
}

func TestSenderFinOnlySentOnceStreamEnds(t *testing.T) {
	out := bytestream.New(100)
	isn := seqnum.Value(0)
	s := NewSender(isn, 1000, out)
	s.FillWindow()
	s.AckReceived(isn.Add(1), 100)
	s.queue.drain()

	out.Write([]byte("ab"))
	out.EndInput()
	s.FillWindow()

	seg, ok := s.queue.pop()
	require.True(t, ok)
	checker.TCP(t, seg, checker.Fin(), checker.PayloadLen(2))
	assert.Equal(t, SenderFinSent, s.StateSummary())
}

func TestSenderAckClearsConsecutiveRetransmissionsOnlyWhenItAcksSomething(t *testing.T) {
	out := bytestream.New(100)
	isn := seqnum.Value(0)
	s := NewSender(isn, 10, out)
	s.FillWindow()

	s.Tick(10)
	assert.Equal(t, uint32(1), s.ConsecutiveRetransmissions())

	// A duplicate ack that doesn't retire the outstanding SYN must not
	// reset the backoff counter.
	s.AckReceived(isn, 10)
	assert.Equal(t, uint32(1), s.ConsecutiveRetransmissions())

	s.AckReceived(isn.Add(1), 10)
	assert.Equal(t, uint32(0), s.ConsecutiveRetransmissions())
}

func TestSegmentFlagHelpers(t *testing.T) {
	seg := Segment{Flags: header.TCPFlagSyn | header.TCPFlagAck}
	assert.True(t, seg.Syn())
	assert.True(t, seg.Ack())
	assert.False(t, seg.Fin())
	assert.False(t, seg.Rst())
}
