// Package checker provides composable assertions over transport/tcp.Segment
// values for use in tests: a checker is a function closing over an
// expected value, and callers compose several of them per call.
package checker

import (
	"testing"

	"github.com/kpchow/mintcp/header"
	"github.com/kpchow/mintcp/transport/tcp"
)

// SegmentChecker is a function that checks a property of a segment.
type SegmentChecker func(*testing.T, tcp.Segment)

// TCP runs every checker against seg, failing t on the first mismatch.
func TCP(t *testing.T, seg tcp.Segment, checkers ...SegmentChecker) {
	t.Helper()
	for _, c := range checkers {
		c(t, seg)
	}
}

// SeqNum creates a checker that checks the sequence number.
func SeqNum(seq uint32) SegmentChecker {
	return func(t *testing.T, seg tcp.Segment) {
		t.Helper()
		if uint32(seg.SeqNum) != seq {
			t.Fatalf("bad sequence number, got %v, want %v", uint32(seg.SeqNum), seq)
		}
	}
}

// AckNum creates a checker that checks the ack number.
func AckNum(ack uint32) SegmentChecker {
	return func(t *testing.T, seg tcp.Segment) {
		t.Helper()
		if uint32(seg.AckNum) != ack {
			t.Fatalf("bad ack number, got %v, want %v", uint32(seg.AckNum), ack)
		}
	}
}

// Window creates a checker that checks the advertised window.
func Window(window uint16) SegmentChecker {
	return func(t *testing.T, seg tcp.Segment) {
		t.Helper()
		if uint16(seg.Window) != window {
			t.Fatalf("bad window, got %v, want %v", uint16(seg.Window), window)
		}
	}
}

// TCPFlags creates a checker that checks the exact set of flags.
func TCPFlags(flags uint8) SegmentChecker {
	return func(t *testing.T, seg tcp.Segment) {
		t.Helper()
		if seg.Flags != flags {
			t.Fatalf("bad flags, got 0x%x, want 0x%x", seg.Flags, flags)
		}
	}
}

// TCPFlagsMatch creates a checker that checks flags, masked by mask, match
// the supplied flags — useful when the caller doesn't care about ACK,
// which rides along on almost everything once the handshake completes.
func TCPFlagsMatch(flags, mask uint8) SegmentChecker {
	return func(t *testing.T, seg tcp.Segment) {
		t.Helper()
		if f := seg.Flags; (f & mask) != (flags & mask) {
			t.Fatalf("bad masked flags, got 0x%x, want 0x%x, mask 0x%x", f, flags, mask)
		}
	}
}

// PayloadLen creates a checker that checks the payload length.
func PayloadLen(plen int) SegmentChecker {
	return func(t *testing.T, seg tcp.Segment) {
		t.Helper()
		if l := len(seg.Payload); l != plen {
			t.Fatalf("bad payload length, got %v, want %v", l, plen)
		}
	}
}

// Syn creates a checker that requires the SYN flag be set.
func Syn() SegmentChecker {
	return TCPFlagsMatch(header.TCPFlagSyn, header.TCPFlagSyn)
}

// Fin creates a checker that requires the FIN flag be set.
func Fin() SegmentChecker {
	return TCPFlagsMatch(header.TCPFlagFin, header.TCPFlagFin)
}

// Rst creates a checker that requires the RST flag be set.
func Rst() SegmentChecker {
	return TCPFlagsMatch(header.TCPFlagRst, header.TCPFlagRst)
}
