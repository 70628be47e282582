// Package header holds the wire-level constants shared by the TCP core and
// its wire adapter: the flag bits and minimum segment size, independent of
// how a segment is actually serialized onto the wire.
package header

// Flags that may be set in a TCP segment.
const (
	TCPFlagFin uint8 = 1 << iota
	TCPFlagSyn
	TCPFlagRst
	TCPFlagPsh
	TCPFlagAck
	TCPFlagUrg
)

const (
	// TCPMinimumSize is the size, in bytes, of a TCP header with no options.
	TCPMinimumSize = 20

	// TCPProtocolNumber is TCP's IP protocol number.
	TCPProtocolNumber = 6
)
