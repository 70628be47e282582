// Package wire turns a tcp.Segment into an on-the-wire TCP frame and back.
// It knows about checksums and byte layout; the core (transport/tcp)
// never imports it, so the protocol engine stays independent of any
// particular wire format.
package wire

import (
	"fmt"
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/kpchow/mintcp/buffer"
	"github.com/kpchow/mintcp/header"
	"github.com/kpchow/mintcp/seqnum"
	"github.com/kpchow/mintcp/transport/tcp"
)

// Endpoint identifies one side of a connection for wire framing purposes:
// an address and a port. Only IPv4 is supported.
type Endpoint struct {
	Addr net.IP
	Port uint16
}

// Encode serializes seg as a TCP segment from src to dst, wrapped in an
// IPv4 header so the TCP checksum (which covers the IPv4 pseudo-header)
// can be computed.
func Encode(seg tcp.Segment, src, dst Endpoint) ([]byte, error) {
	ip := &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      64,
		Protocol: layers.IPProtocol(header.TCPProtocolNumber),
		SrcIP:    src.Addr.To4(),
		DstIP:    dst.Addr.To4(),
	}

	tcpLayer := &layers.TCP{
		SrcPort: layers.TCPPort(src.Port),
		DstPort: layers.TCPPort(dst.Port),
		Seq:     uint32(seg.SeqNum),
		Ack:     uint32(seg.AckNum),
		Window:  uint16(seg.Window),
		SYN:     seg.Syn(),
		ACK:     seg.Ack(),
		FIN:     seg.Fin(),
		RST:     seg.Rst(),
	}
	if err := tcpLayer.SetNetworkLayerForChecksum(ip); err != nil {
		return nil, fmt.Errorf("wire: set checksum network layer: %w", err)
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{ComputeChecksums: true, FixLengths: true}
	if err := gopacket.SerializeLayers(buf, opts, ip, tcpLayer, gopacket.Payload(seg.Payload)); err != nil {
		return nil, fmt.Errorf("wire: serialize: %w", err)
	}

	out := make([]byte, len(buf.Bytes()))
	copy(out, buf.Bytes())
	return out, nil
}

// Decode parses raw as an IPv4-wrapped TCP frame and returns the decoded
// Segment along with the endpoints it was addressed between.
func Decode(raw []byte) (seg tcp.Segment, src, dst Endpoint, err error) {
	packet := gopacket.NewPacket(raw, layers.LayerTypeIPv4, gopacket.NoCopy)
	if errLayer := packet.ErrorLayer(); errLayer != nil {
		return seg, src, dst, fmt.Errorf("wire: decode: %w", errLayer.Error())
	}

	ipLayer, ok := packet.Layer(layers.LayerTypeIPv4).(*layers.IPv4)
	if !ok {
		return seg, src, dst, fmt.Errorf("wire: decode: no IPv4 layer")
	}
	tcpLayer, ok := packet.Layer(layers.LayerTypeTCP).(*layers.TCP)
	if !ok {
		return seg, src, dst, fmt.Errorf("wire: decode: no TCP layer")
	}

	var flags uint8
	if tcpLayer.SYN {
		flags |= header.TCPFlagSyn
	}
	if tcpLayer.ACK {
		flags |= header.TCPFlagAck
	}
	if tcpLayer.FIN {
		flags |= header.TCPFlagFin
	}
	if tcpLayer.RST {
		flags |= header.TCPFlagRst
	}

	payload := buffer.NewView(len(tcpLayer.Payload))
	copy(payload, tcpLayer.Payload)

	seg = tcp.Segment{
		SeqNum:  seqnum.Value(tcpLayer.Seq),
		AckNum:  seqnum.Value(tcpLayer.Ack),
		Window:  seqnum.Size(tcpLayer.Window),
		Flags:   flags,
		Payload: payload,
	}
	src = Endpoint{Addr: ipLayer.SrcIP, Port: uint16(tcpLayer.SrcPort)}
	dst = Endpoint{Addr: ipLayer.DstIP, Port: uint16(tcpLayer.DstPort)}
	return seg, src, dst, nil
}
