package toxcore

import (
	"time"

	"github.com/dlazar-im/toxcore/roster"
	"github.com/dlazar-im/toxcore/wire"
)

// MinRunInterval is the minimum cadence at which the host must call Tick.
const MinRunInterval = 50 * time.Millisecond

// NextTickDelay returns how long the host may wait before its next Tick
// call: the smaller of MinRunInterval and the transport's own requested
// interval.
func NextTickDelay(transportNextInterval time.Duration) time.Duration {
	if transportNextInterval < MinRunInterval {
		return transportNextInterval
	}
	return MinRunInterval
}

// NotifyCoreConnectionChange reports a change in the overall (DHT/onion)
// connectivity status. Step 4 of spec.md's tick cadence ("poll onion
// connection status") has no corresponding accessor among the downward
// interfaces in section 6 — FriendConn and NetCrypto are both scoped per
// friend connection, not global — so this is exposed as an explicit
// push from the host's own poll of that out-of-scope subsystem, rather
// than inventing an interface method with no spec-given shape.
func (c *Core) NotifyCoreConnectionChange(kind roster.ConnectionKind) {
	if kind == c.lastCoreConnectionKind {
		return
	}
	c.lastCoreConnectionKind = kind
	if c.Callbacks.CoreConnectionChange != nil {
		c.Callbacks.CoreConnectionChange(c.Callbacks.UserContext, kind)
	}
}

// NotifyDeviceConnected reports that deviceIdx's crypto connection to
// friendIdx has just come up, the Go-idiomatic equivalent of the
// status_cb FriendConn registers via set_callbacks in spec.md section 6
// — the host passes the callback's (friend_idx, device_idx, handle)
// straight through rather than Core holding a raw function pointer.
// This is the section 4.6 trigger "a device becoming transport-connected
// sends ONLINE, transitions its status to Online, and implicitly
// promotes the friend to Online": without it, the only way a device
// reaches Online is by first receiving an inbound ONLINE from the peer,
// so neither side of a fresh connection would ever originate one.
func (c *Core) NotifyDeviceConnected(friendIdx, deviceIdx int, connID uint32) error {
	f := c.Roster.Get(friendIdx)
	if f == nil || deviceIdx < 0 || deviceIdx >= len(f.Devices) {
		return roster.ErrInvalid
	}
	dev := &f.Devices[deviceIdx]
	dev.ConnID = connID
	c.promoteDeviceOnline(friendIdx, f, dev)
	return nil
}

// Tick drives steps 2 and 3 of the messenger loop: friend-request
// emission/timeout, per-online-friend profile resync/receipt
// reaping/chunk requests, and connection-kind reporting. Step 1
// (transport housekeeping: DHT/onion/crypto/friend-connection polling)
// is the host's responsibility and is expected to have run before Tick
// is called; step 4 (the DHT/onion connectivity poll) is also left to
// the host, which reports changes through NotifyCoreConnectionChange.
func (c *Core) Tick() {
	for _, idx := range c.Roster.All() {
		f := c.Roster.Get(idx)
		switch f.Status {
		case roster.FriendAdded:
			c.tickPendingRequest(idx, f)
		case roster.FriendRequested:
			c.tickRequestTimeout(idx, f)
		case roster.FriendOnline:
			c.tickOnlineFriend(idx, f)
		}
	}
}

func (c *Core) tickPendingRequest(idx int, f *roster.Friend) {
	if f.Status != roster.FriendAdded || len(f.Devices) == 0 {
		return
	}
	dev := &f.Devices[0]
	if err := c.Conn.SendRequest(dev.ConnID, f.RequestNospam, f.Info[:f.InfoSize]); err != nil {
		return
	}
	f.Status = roster.FriendRequested
	f.RequestLastSent = now()
	if f.RequestTimeout == 0 {
		f.RequestTimeout = defaultFriendRequestTimeout
	}
}

func (c *Core) tickRequestTimeout(idx int, f *roster.Friend) {
	if now().Before(f.RequestLastSent.Add(f.RequestTimeout)) {
		return
	}
	f.Status = roster.FriendAdded
	f.RequestTimeout *= 2
}

func (c *Core) tickOnlineFriend(idx int, f *roster.Friend) {
	dev, ok := primaryOnlineDevice(f)
	if !ok {
		return
	}

	c.flushResyncFlags(idx, f, dev)

	rt := c.runtimeFor(idx)
	rt.receipts.Drain(
		func(packetNum uint32) bool { return c.Crypto.CryptPacketReceived(dev.ConnID, packetNum) },
		func(msgID uint32) {
			if c.Callbacks.ReadReceipt != nil {
				c.Callbacks.ReadReceipt(c.Callbacks.UserContext, idx, msgID)
			}
		},
	)

	free := c.Crypto.NumFreeSendQueueSlots(dev.ConnID)
	maxSpeed := c.Crypto.MaxSpeedReached(dev.ConnID)
	rt.transfers.DoReqChunks(free, maxSpeed, func(fileNumber uint32, position uint64, length int) {
		if c.Callbacks.FileReqChunk != nil {
			c.Callbacks.FileReqChunk(c.Callbacks.UserContext, idx, fileNumber, position, length)
		}
	})
	rt.transfers.ReapFinished(
		func(packetNum uint32) bool { return c.Crypto.CryptPacketReceived(dev.ConnID, packetNum) },
		func(fileNumber uint32) {
			if c.Callbacks.FileReqChunk != nil {
				c.Callbacks.FileReqChunk(c.Callbacks.UserContext, idx, fileNumber, 0, 0)
			}
		},
	)

	f.LastSeenTime = now()

	direct, numRelays := c.Crypto.Status(dev.ConnID)
	kind := connectionKind(direct, numRelays, f.LastConnectionKind)
	if kind != f.LastConnectionKind {
		f.LastConnectionKind = kind
		if c.Callbacks.ConnectionStatus != nil {
			c.Callbacks.ConnectionStatus(c.Callbacks.UserContext, idx, kind)
		}
	}
}

// flushResyncFlags sends any not-yet-sent profile packet, in
// name -> status_message -> user_status -> typing order, per spec.md's
// ordering guarantee for post-reconnect resync.
func (c *Core) flushResyncFlags(idx int, f *roster.Friend, dev *roster.Device) {
	if !f.NameSent {
		packet := append([]byte{byte(wire.IDNickname)}, wire.EncodeText(c.Name)...)
		if _, err := c.sendInBand(idx, dev, packet); err == nil {
			f.NameSent = true
		}
	}
	if !f.StatusMessageSent {
		packet := append([]byte{byte(wire.IDStatusMessage)}, wire.EncodeText(c.StatusMessage)...)
		if _, err := c.sendInBand(idx, dev, packet); err == nil {
			f.StatusMessageSent = true
		}
	}
	if !f.UserStatusSent {
		packet := []byte{byte(wire.IDUserStatus), byte(c.UserStatus)}
		if _, err := c.sendInBand(idx, dev, packet); err == nil {
			f.UserStatusSent = true
		}
	}
	if !f.TypingSent {
		packet := append([]byte{byte(wire.IDTyping)}, wire.EncodeTyping(f.IsTyping)...)
		if _, err := c.sendInBand(idx, dev, packet); err == nil {
			f.TypingSent = true
		}
	}
}
