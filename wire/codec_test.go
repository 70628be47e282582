package wire

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kpchow/mintcp/buffer"
	"github.com/kpchow/mintcp/header"
	"github.com/kpchow/mintcp/seqnum"
	"github.com/kpchow/mintcp/transport/tcp"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	src := Endpoint{Addr: net.IPv4(10, 0, 0, 1), Port: 50000}
	dst := Endpoint{Addr: net.IPv4(10, 0, 0, 2), Port: 80}

	payload := buffer.NewView(4)
	copy(payload, []byte("ping"))

	seg := tcp.Segment{
		SeqNum:  1000,
		AckNum:  2000,
		Window:  4096,
		Flags:   header.TCPFlagAck | header.TCPFlagPsh,
		Payload: payload,
	}

	raw, err := Encode(seg, src, dst)
	require.NoError(t, err)

	got, gotSrc, gotDst, err := Decode(raw)
	require.NoError(t, err)

	assert.Equal(t, seqnum.Value(1000), got.SeqNum)
	assert.Equal(t, seqnum.Value(2000), got.AckNum)
	assert.Equal(t, seqnum.Size(4096), got.Window)
	assert.True(t, got.Ack())
	assert.Equal(t, []byte("ping"), []byte(got.Payload))
	assert.True(t, gotSrc.Addr.Equal(src.Addr))
	assert.Equal(t, src.Port, gotSrc.Port)
	assert.True(t, gotDst.Addr.Equal(dst.Addr))
	assert.Equal(t, dst.Port, gotDst.Port)
}

func TestEncodeDecodePreservesControlFlags(t *testing.T) {
	src := Endpoint{Addr: net.IPv4(127, 0, 0, 1), Port: 1}
	dst := Endpoint{Addr: net.IPv4(127, 0, 0, 1), Port: 2}

	seg := tcp.Segment{SeqNum: 1, Flags: header.TCPFlagSyn}

	raw, err := Encode(seg, src, dst)
	require.NoError(t, err)

	got, _, _, err := Decode(raw)
	require.NoError(t, err)
	assert.True(t, got.Syn())
	assert.False(t, got.Fin())
	assert.False(t, got.Rst())
}
