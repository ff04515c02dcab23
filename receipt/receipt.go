// Package receipt implements the per-friend FIFO of outbound
// transport-packet-numbers pending delivery confirmation.
package receipt

// entry pairs a transport packet number with the message ID it carries.
type entry struct {
	packetNum uint32
	msgID     uint32
}

// Queue is a FIFO of pending receipts for one friend, backed by a plain
// slice. A linked list or ring would avoid the occasional slice copy, but
// a queue this short-lived (drained every tick) gains nothing from that,
// so we keep the simplest representation that matches the FIFO semantics.
type Queue struct {
	entries []entry
}

// Add appends a pending receipt for a just-sent reliable packet.
func (q *Queue) Add(packetNum, msgID uint32) {
	q.entries = append(q.entries, entry{packetNum, msgID})
}

// Delivered reports whether packetNum has been acknowledged. Callers
// supply this via the transport's NetCrypto.CryptPacketReceived.
type Delivered func(packetNum uint32) bool

// Drain pops entries whose packet has been acknowledged, stopping at the
// first unacknowledged entry so delivery order always matches the
// transport's ack order (no reordering past a gap). For each popped
// entry, onReceipt is invoked with its message ID.
func (q *Queue) Drain(delivered Delivered, onReceipt func(msgID uint32)) {
	i := 0
	for i < len(q.entries) {
		if !delivered(q.entries[i].packetNum) {
			break
		}
		onReceipt(q.entries[i].msgID)
		i++
	}
	q.entries = q.entries[i:]
}

// Len returns the number of outstanding receipts.
func (q *Queue) Len() int {
	return len(q.entries)
}

// Clear discards all pending receipts without invoking any callback,
// used when a friend disconnects and delivery can no longer be confirmed.
func (q *Queue) Clear() {
	q.entries = nil
}
