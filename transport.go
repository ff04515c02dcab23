package toxcore

import (
	"github.com/dlazar-im/toxcore/errors"
	"github.com/dlazar-im/toxcore/roster"
)

var errQueueFull = errors.New("toxcore: transport send queue full")

// sendInBand writes a framed in-band packet (packet-ID byte already
// included in packet) reliably over dev's crypto connection.
func (c *Core) sendInBand(friendIdx int, dev *roster.Device, packet []byte) (uint32, error) {
	if dev.ConnID == 0 {
		return 0, errQueueFull
	}
	return c.Crypto.WriteCryptPacket(dev.ConnID, packet, true)
}

// primaryOnlineDevice returns the first device of f currently online,
// the target for per-friend (not per-device) sends: spec.md resolves
// multi-device fan-out as "one receipt enqueued for the primary online
// device" rather than broadcasting to every online device.
func primaryOnlineDevice(f *roster.Friend) (*roster.Device, bool) {
	for i := range f.Devices {
		if f.Devices[i].Status == roster.DeviceOnline {
			return &f.Devices[i], true
		}
	}
	return nil, false
}

// connectionKind computes the reported transport kind for an online
// device, applying the Udp->Unknown flap-suppression rule: a transport
// report of Unknown right after being Udp is treated as Tcp instead.
func connectionKind(direct bool, numRelays int, previous roster.ConnectionKind) roster.ConnectionKind {
	switch {
	case direct:
		return roster.ConnUDP
	case numRelays > 0:
		return roster.ConnTCP
	case previous == roster.ConnUDP:
		return roster.ConnTCP
	default:
		return roster.ConnUnknown
	}
}
