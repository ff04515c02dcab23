package toxcore

import (
	"github.com/dlazar-im/toxcore/roster"
	"github.com/dlazar-im/toxcore/transfer"
	"github.com/dlazar-im/toxcore/wire"
)

// OnPacket routes one decoded in-band packet arriving on friendIdx's
// deviceIdx connection. Malformed or unroutable packets are dropped
// (logged at Warn), except where noted; this mirrors spec.md section 7's
// "no hard failure from a bad inbound packet" posture — OnPacket's
// return value is informational for the transport layer, never fatal.
func (c *Core) OnPacket(friendIdx, deviceIdx int, data []byte) error {
	if !c.Roster.Exists(friendIdx) {
		return roster.ErrInvalid
	}
	d := c.buildDispatcher(friendIdx, deviceIdx)
	if err := d.Dispatch(data); err != nil {
		c.Logger.WithFields(map[string]interface{}{"friend": friendIdx, "device": deviceIdx}).
			Warnf("dropping packet: %v", err)
		return err
	}
	return nil
}

func (c *Core) buildDispatcher(friendIdx, deviceIdx int) *wire.Dispatcher {
	d := wire.NewDispatcher()
	d.On(wire.IDOnline, func(payload []byte) error { return c.handleOnline(friendIdx, deviceIdx) })
	d.On(wire.IDOffline, func(payload []byte) error { return c.handleOffline(friendIdx, deviceIdx) })
	d.On(wire.IDNickname, func(payload []byte) error { return c.handleNickname(friendIdx, payload) })
	d.On(wire.IDStatusMessage, func(payload []byte) error { return c.handleStatusMessage(friendIdx, payload) })
	d.On(wire.IDUserStatus, func(payload []byte) error { return c.handleUserStatus(friendIdx, payload) })
	d.On(wire.IDTyping, func(payload []byte) error { return c.handleTyping(friendIdx, payload) })
	d.On(wire.IDMessage, func(payload []byte) error { return c.handleMessage(friendIdx, wire.MessageNormal, payload) })
	d.On(wire.IDAction, func(payload []byte) error { return c.handleMessage(friendIdx, wire.MessageAction, payload) })
	d.On(wire.IDInviteGroupchat, func(payload []byte) error { return c.handleGroupInvite(friendIdx, payload) })
	d.On(wire.IDFileSendRequest, func(payload []byte) error { return c.handleFileSendRequest(friendIdx, payload) })
	d.On(wire.IDFileControl, func(payload []byte) error { return c.handleFileControl(friendIdx, payload) })
	d.On(wire.IDFileData, func(payload []byte) error { return c.handleFileData(friendIdx, payload) })
	d.On(wire.IDMSI, func(payload []byte) error { return c.handleMSI(friendIdx, payload) })
	d.OnLossy(func(payload []byte) error { return c.handleCustomLossy(friendIdx, payload) })
	d.OnLossless(func(payload []byte) error { return c.handleCustomLossless(friendIdx, payload) })
	for code := 0; code < wire.PacketLossyAVSize; code++ {
		code := code
		d.OnRTP(byte(code), func(payload []byte) error { return c.handleRTP(friendIdx, code, payload) })
	}
	return d
}

func (c *Core) handleOnline(friendIdx, deviceIdx int) error {
	f := c.Roster.Get(friendIdx)
	if f == nil || deviceIdx < 0 || deviceIdx >= len(f.Devices) {
		return roster.ErrInvalid
	}
	c.promoteDeviceOnline(friendIdx, f, &f.Devices[deviceIdx])
	return nil
}

// promoteDeviceOnline marks dev Online, echoing ONLINE on the wire the
// first time (per spec.md section 4.6: "the first in-band ONLINE packet
// ... send ONLINE back"), and promotes f to Online — clearing its
// resync flags and firing ConnectionStatus — the first time any of its
// devices does so. Shared by handleOnline (the inbound-packet trigger)
// and NotifyDeviceConnected (the transport-connected trigger).
func (c *Core) promoteDeviceOnline(friendIdx int, f *roster.Friend, dev *roster.Device) {
	wasOnline := dev.Status == roster.DeviceOnline
	dev.Status = roster.DeviceOnline

	if !wasOnline {
		if _, err := c.sendInBand(friendIdx, dev, []byte{byte(wire.IDOnline)}); err != nil {
			c.Logger.Warnf("toxcore: failed to send ONLINE to friend %d: %v", friendIdx, err)
		}
	}

	if f.Status != roster.FriendOnline {
		f.Status = roster.FriendOnline
		f.ClearResyncFlags()
		if c.Callbacks.ConnectionStatus != nil {
			c.Callbacks.ConnectionStatus(c.Callbacks.UserContext, friendIdx, roster.ConnUnknown)
		}
	}
}

func (c *Core) handleOffline(friendIdx, deviceIdx int) error {
	f := c.Roster.Get(friendIdx)
	if f == nil || deviceIdx < 0 || deviceIdx >= len(f.Devices) {
		return roster.ErrInvalid
	}
	f.Devices[deviceIdx].Status = roster.DeviceConfirmed

	if !f.Online() {
		f.Status = roster.FriendConfirmed
		if rt, ok := c.runtime[friendIdx]; ok {
			rt.transfers.BreakAll()
			rt.receipts.Clear()
		}
		if c.Callbacks.ConnectionStatus != nil {
			c.Callbacks.ConnectionStatus(c.Callbacks.UserContext, friendIdx, roster.ConnNone)
		}
	}
	return nil
}

func (c *Core) handleNickname(friendIdx int, payload []byte) error {
	name, err := wire.DecodeText(payload, roster.MaxNameLength)
	if err != nil {
		return err
	}
	f := c.Roster.Get(friendIdx)
	f.Name = name
	if c.Callbacks.NameChange != nil {
		c.Callbacks.NameChange(c.Callbacks.UserContext, friendIdx, name)
	}
	return nil
}

func (c *Core) handleStatusMessage(friendIdx int, payload []byte) error {
	msg, err := wire.DecodeText(payload, roster.MaxStatusMessageLength)
	if err != nil {
		return err
	}
	f := c.Roster.Get(friendIdx)
	f.StatusMessage = msg
	if c.Callbacks.StatusMessageChange != nil {
		c.Callbacks.StatusMessageChange(c.Callbacks.UserContext, friendIdx, msg)
	}
	return nil
}

func (c *Core) handleUserStatus(friendIdx int, payload []byte) error {
	status, err := wire.DecodeUserStatus(payload)
	if err != nil {
		return err
	}
	f := c.Roster.Get(friendIdx)
	f.UserStatus = roster.UserStatus(status)
	if c.Callbacks.UserStatusChange != nil {
		c.Callbacks.UserStatusChange(c.Callbacks.UserContext, friendIdx, f.UserStatus)
	}
	return nil
}

func (c *Core) handleTyping(friendIdx int, payload []byte) error {
	typing, err := wire.DecodeTyping(payload)
	if err != nil {
		return err
	}
	f := c.Roster.Get(friendIdx)
	f.IsTyping = typing
	if c.Callbacks.TypingChange != nil {
		c.Callbacks.TypingChange(c.Callbacks.UserContext, friendIdx, typing)
	}
	return nil
}

func (c *Core) handleMessage(friendIdx int, kind wire.MessageType, payload []byte) error {
	if c.Callbacks.FriendMessage != nil {
		c.Callbacks.FriendMessage(c.Callbacks.UserContext, friendIdx, kind, append([]byte(nil), payload...))
	}
	return nil
}

func (c *Core) handleGroupInvite(friendIdx int, payload []byte) error {
	if c.Callbacks.GroupInvite != nil {
		c.Callbacks.GroupInvite(c.Callbacks.UserContext, friendIdx, append([]byte(nil), payload...))
	}
	return nil
}

func (c *Core) handleMSI(friendIdx int, payload []byte) error {
	if c.Callbacks.MSIPacket != nil {
		c.Callbacks.MSIPacket(c.Callbacks.UserContext, friendIdx, append([]byte(nil), payload...))
	}
	return nil
}

func (c *Core) handleCustomLossy(friendIdx int, payload []byte) error {
	if c.Callbacks.CustomLossy != nil {
		c.Callbacks.CustomLossy(c.Callbacks.UserContext, friendIdx, append([]byte(nil), payload...))
	}
	return nil
}

func (c *Core) handleCustomLossless(friendIdx int, payload []byte) error {
	if c.Callbacks.CustomLossless != nil {
		c.Callbacks.CustomLossless(c.Callbacks.UserContext, friendIdx, append([]byte(nil), payload...))
	}
	return nil
}

func (c *Core) handleRTP(friendIdx, code int, payload []byte) error {
	if h := c.Callbacks.RTP[code]; h != nil {
		h(c.Callbacks.UserContext, friendIdx, append([]byte(nil), payload...))
	}
	return nil
}

func (c *Core) handleFileSendRequest(friendIdx int, payload []byte) error {
	req, err := wire.DecodeSendRequest(payload)
	if err != nil {
		return err
	}
	rt := c.runtimeFor(friendIdx)
	fn, rerr := rt.transfers.NewReceive(req.FileType, req.Size, req.FileID, req.Filename)
	if rerr != nil {
		return rerr
	}
	if c.Callbacks.FileSendRequest != nil {
		c.Callbacks.FileSendRequest(c.Callbacks.UserContext, friendIdx, fn, req.FileType, req.Size, req.Filename)
	}
	return nil
}

func (c *Core) handleFileControl(friendIdx int, payload []byte) error {
	fc, err := wire.DecodeFileControl(payload)
	if err != nil {
		return err
	}
	if int(fc.Slot) >= transfer.MaxPipes {
		c.killUnknownFileTransfer(friendIdx, fc.Slot)
		return wire.ErrBadID
	}
	rt := c.runtimeFor(friendIdx)
	// An inbound FILE_CONTROL names a slot from the sender's point of
	// view, the mirror direction of our own local slot arrays: a Kill
	// from a peer who is sending to us targets our Receiving array, and
	// a Kill from a peer who is receiving from us targets our Sending
	// array. Both arrays share the same byte-slot numbering, so try the
	// one that actually holds a live transfer.
	dir := transfer.Sending
	fn := transfer.EncodeFileNumber(dir, int(fc.Slot))
	if rt.transfers.Sending[fc.Slot].Status == transfer.StatusNone {
		dir = transfer.Receiving
		fn = transfer.EncodeFileNumber(dir, int(fc.Slot))
	}

	// ApplyPeerControl, not Control: this is the peer's verb acting on
	// our slot (PauseOther semantics), not our own API-level Control
	// call (PauseUs semantics) — see transfer.ApplyPeerControl.
	if cerr := rt.transfers.ApplyPeerControl(fn, int(fc.Control), fc.Position); cerr != nil {
		// An unrecognized slot on both sides of the pipe is a stale or
		// forged reference to a transfer we never opened: spec.md
		// section 7 requires a reciprocal FILECONTROL_KILL rather than
		// silently dropping it like other malformed packets.
		if cerr == transfer.ErrInvalidFile {
			c.killUnknownFileTransfer(friendIdx, fc.Slot)
		}
		return cerr
	}
	if c.Callbacks.FileControl != nil {
		c.Callbacks.FileControl(c.Callbacks.UserContext, friendIdx, fn, fc.Control)
	}
	return nil
}

// killUnknownFileTransfer sends a FILECONTROL_KILL for slot back to the
// peer, per spec.md section 7's handling of packets that name a file
// transfer we have no record of. Best-effort: failure to send is not
// itself reported, since the inbound packet was already being dropped.
func (c *Core) killUnknownFileTransfer(friendIdx int, slot byte) {
	f := c.Roster.Get(friendIdx)
	if f == nil {
		return
	}
	dev, ok := primaryOnlineDevice(f)
	if !ok {
		return
	}
	packet := append([]byte{byte(wire.IDFileControl)}, wire.EncodeFileControl(wire.FileControl{
		Slot: slot, Control: wire.FileControlKill,
	})...)
	c.sendInBand(friendIdx, dev, packet)
}

func (c *Core) handleFileData(friendIdx int, payload []byte) error {
	fd, err := wire.DecodeFileData(payload)
	if err != nil {
		return err
	}
	if int(fd.Slot) >= transfer.MaxPipes {
		c.killUnknownFileTransfer(friendIdx, fd.Slot)
		return wire.ErrBadID
	}
	rt := c.runtimeFor(friendIdx)
	fn := transfer.EncodeFileNumber(transfer.Receiving, int(fd.Slot))
	position := rt.transfers.Receiving[fd.Slot].Transferred
	deliver, final, rerr := rt.transfers.RecvData(fn, fd.Data)
	if rerr != nil {
		if rerr == transfer.ErrInvalidFile {
			c.killUnknownFileTransfer(friendIdx, fd.Slot)
		}
		return rerr
	}
	if c.Callbacks.FileRecvData != nil {
		c.Callbacks.FileRecvData(c.Callbacks.UserContext, friendIdx, fn, position, deliver)
		if final {
			// End-of-stream sentinel to the application, per spec.md
			// section 4.4's receive path: a terminal chunk is followed
			// by a separate zero-length delivery. RecvData has already
			// freed the slot by the time this fires.
			c.Callbacks.FileRecvData(c.Callbacks.UserContext, friendIdx, fn, position+uint64(len(deliver)), nil)
		}
	}
	return nil
}
