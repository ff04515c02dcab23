package wire

// Handler processes one decoded in-band packet's raw payload (the bytes
// following the packet-ID byte).
type Handler func(payload []byte) error

// Dispatcher maps packet IDs to handlers, the same shape as the
// teacher's typesocket.Mux (a tag-to-handler-func table) applied to a
// one-byte packet tag instead of a JSON envelope's string tag.
type Dispatcher struct {
	handlers  map[ID]Handler
	lossy     Handler // RLRStart..RLRStart+RLRSize, excluding the RTP sub-range
	lossless  Handler // LLRStart..LLRStart+LLRSize
	rtpSlots  map[byte]Handler
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		handlers: make(map[ID]Handler),
		rtpSlots: make(map[byte]Handler),
	}
}

// On registers a handler for a specific packet ID.
func (d *Dispatcher) On(id ID, h Handler) {
	d.handlers[id] = h
}

// OnLossy registers the fallback handler for application-defined lossy
// packets outside the reserved RTP sub-range.
func (d *Dispatcher) OnLossy(h Handler) {
	d.lossy = h
}

// OnLossless registers the fallback handler for application-defined
// lossless packets.
func (d *Dispatcher) OnLossless(h Handler) {
	d.lossless = h
}

// OnRTP registers a handler for one byte code within the reserved lossy
// AV sub-range.
func (d *Dispatcher) OnRTP(code byte, h Handler) error {
	if int(code) >= PacketLossyAVSize {
		return ErrBadID
	}
	d.rtpSlots[code] = h
	return nil
}

// Dispatch decodes the leading packet-ID byte of raw and routes the
// remaining payload to the registered handler. It returns ErrTooShort for
// an empty packet and ErrBadID when no handler covers the ID; both are
// non-fatal to the caller, which per spec.md section 7 drops malformed or
// unroutable inbound packets silently (except unknown file transfers,
// handled by the caller, not here).
func (d *Dispatcher) Dispatch(raw []byte) error {
	if len(raw) < 1 {
		return ErrTooShort
	}
	id := raw[0]
	payload := raw[1:]

	if h, ok := d.handlers[ID(id)]; ok {
		return h(payload)
	}

	if int(id) >= PacketLossyAVReserved && int(id) < PacketLossyAVReserved+PacketLossyAVSize {
		code := id - PacketLossyAVReserved
		if h, ok := d.rtpSlots[code]; ok {
			return h(payload)
		}
		return ErrBadID
	}

	if int(id) >= RLRStart && int(id) < RLRStart+RLRSize {
		if d.lossy != nil {
			return d.lossy(payload)
		}
		return ErrBadID
	}

	if int(id) >= LLRStart && int(id) < LLRStart+LLRSize {
		if d.lossless != nil {
			return d.lossless(payload)
		}
		return ErrBadID
	}

	return ErrBadID
}
