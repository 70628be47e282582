package tcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kpchow/mintcp/buffer"
	"github.com/kpchow/mintcp/bytestream"
	"github.com/kpchow/mintcp/header"
	"github.com/kpchow/mintcp/seqnum"
)

func TestReceiverIgnoresSegmentsBeforeSyn(t *testing.T) {
	in := bytestream.New(100)
	r := NewReceiver(100, in)

	r.SegmentReceived(Segment{SeqNum: 5, Payload: buffer.NewView(0)})
	assert.Equal(t, ReceiverListen, r.StateSummary())
	_, has := r.AckNo()
	assert.False(t, has)
}

func TestReceiverHandshakeAndData(t *testing.T) {
	in := bytestream.New(100)
	r := NewReceiver(100, in)

	isn := seqnum.Value(1000)
	r.SegmentReceived(Segment{SeqNum: isn, Flags: header.TCPFlagSyn, Payload: buffer.NewView(0)})
	assert.Equal(t, ReceiverSynRecv, r.StateSummary())

	ackno, has := r.AckNo()
	require.True(t, has)
	assert.Equal(t, isn.Add(1), ackno)

	payload := buffer.NewView(3)
	copy(payload, []byte("abc"))
	r.SegmentReceived(Segment{SeqNum: isn.Add(1), Payload: payload})

	ackno, has = r.AckNo()
	require.True(t, has)
	assert.Equal(t, isn.Add(4), ackno)
	assert.Equal(t, []byte("abc"), in.Read(100))
}

func TestReceiverFinTransitionsState(t *testing.T) {
	in := bytestream.New(100)
	r := NewReceiver(100, in)

	isn := seqnum.Value(0)
	r.SegmentReceived(Segment{SeqNum: isn, Flags: header.TCPFlagSyn, Payload: buffer.NewView(0)})
	r.SegmentReceived(Segment{SeqNum: isn.Add(1), Flags: header.TCPFlagFin, Payload: buffer.NewView(0)})

	assert.Equal(t, ReceiverFinRecv, r.StateSummary())
	ackno, has := r.AckNo()
	require.True(t, has)
	assert.Equal(t, isn.Add(2), ackno)
}

func TestReceiverWindowSizeShrinksAsStreamFills(t *testing.T) {
	in := bytestream.New(10)
	r := NewReceiver(10, in)

	isn := seqnum.Value(0)
	r.SegmentReceived(Segment{SeqNum: isn, Flags: header.TCPFlagSyn, Payload: buffer.NewView(0)})
	assert.Equal(t, uint32(10), r.WindowSize())

	payload := buffer.NewView(4)
	r.SegmentReceived(Segment{SeqNum: isn.Add(1), Payload: payload})
	assert.Equal(t, uint32(6), r.WindowSize())
}
