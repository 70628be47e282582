package tcp

// ReceiverStateSummary is a coarse summary of the receiver's progress,
// derived lazily from whether SYN has been seen and whether the inbound
// stream has ended — there is no separate state field to keep in sync.
type ReceiverStateSummary int

const (
	// ReceiverListen is the initial state: no SYN seen yet.
	ReceiverListen ReceiverStateSummary = iota
	// ReceiverSynRecv means SYN has been seen and the stream is open.
	ReceiverSynRecv
	// ReceiverFinRecv means the inbound stream has ended (FIN consumed).
	ReceiverFinRecv
)

// SenderStateSummary is a coarse summary of the sender's progress, derived
// lazily from the syn/fin-sent flags and the outstanding segment map.
type SenderStateSummary int

const (
	// SenderClosed means no SYN has been sent yet.
	SenderClosed SenderStateSummary = iota
	// SenderSynSent means SYN was sent but not yet acknowledged.
	SenderSynSent
	// SenderSynAcked means the connection is in its data-transfer phase.
	SenderSynAcked
	// SenderFinSent means FIN was sent but not yet acknowledged.
	SenderFinSent
	// SenderFinAcked means FIN was sent and acknowledged.
	SenderFinAcked
)
