package toxcore

import (
	"github.com/dlazar-im/toxcore/roster"
	"github.com/dlazar-im/toxcore/wire"
)

// SendMessage sends a chat message (or /me-style action) to friend and
// returns the assigned, strictly-monotonic message ID. Delivery is
// confirmed later via Callbacks.ReadReceipt once the transport reports
// the packet acknowledged.
func (c *Core) SendMessage(friendIdx int, kind wire.MessageType, message []byte) (uint32, error) {
	f := c.Roster.Get(friendIdx)
	if f == nil {
		return 0, SendMessageInvalidFriend
	}
	if len(message) > roster.MaxStatusMessageLength+roster.MaxNameLength {
		// No single spec.md constant bounds a chat message; this merely
		// keeps a single in-band packet under a sane ceiling.
		return 0, SendMessageTooLong
	}
	if kind != wire.MessageNormal && kind != wire.MessageAction {
		return 0, SendMessageBadType
	}
	dev, ok := primaryOnlineDevice(f)
	if !ok {
		return 0, SendMessageFriendNotConnected
	}

	id := wire.ID(wire.IDMessage) + wire.ID(kind)
	packet := append([]byte{byte(id)}, wire.EncodeText(string(message))...)
	packetNum, err := c.sendInBand(friendIdx, dev, packet)
	if err != nil {
		return 0, SendMessageQueueFull
	}

	f.MessageID++
	msgID := f.MessageID
	c.runtimeFor(friendIdx).receipts.Add(packetNum, msgID)
	return msgID, nil
}

// SetName updates the local display name and marks every friend's
// NameSent resync flag unset, so the next Tick re-broadcasts it to
// everyone currently online (the same mechanism spec.md uses to
// re-broadcast the profile after a reconnect, reused here for an
// in-session profile change).
func (c *Core) SetName(name string) error {
	if len(name) > roster.MaxNameLength {
		return AddFriendTooLong
	}
	c.Name = name
	for _, idx := range c.Roster.All() {
		c.Roster.Get(idx).NameSent = false
	}
	return nil
}

// SetStatusMessage updates the local status message, analogous to SetName.
func (c *Core) SetStatusMessage(msg string) error {
	if len(msg) > roster.MaxStatusMessageLength {
		return AddFriendTooLong
	}
	c.StatusMessage = msg
	for _, idx := range c.Roster.All() {
		c.Roster.Get(idx).StatusMessageSent = false
	}
	return nil
}

// SetUserStatus updates the locally published presence, analogous to SetName.
func (c *Core) SetUserStatus(status roster.UserStatus) {
	c.UserStatus = status
	for _, idx := range c.Roster.All() {
		c.Roster.Get(idx).UserStatusSent = false
	}
}

// SetTyping updates whether friendIdx is shown our typing indicator,
// analogous to SetName but scoped to one friend.
func (c *Core) SetTyping(friendIdx int, typing bool) error {
	f := c.Roster.Get(friendIdx)
	if f == nil {
		return roster.ErrInvalid
	}
	f.IsTyping = typing
	f.TypingSent = false
	return nil
}

// SendLossyPacket sends an unreliable packet with ID
// PacketLossyAVReserved+rtpCode, for an RTP sub-range code in
// 0..PacketLossyAVSize-1. Other IDs of the lossy range cannot be sent
// through it.
func (c *Core) SendLossyPacket(friendIdx int, rtpCode int, data []byte) error {
	f := c.Roster.Get(friendIdx)
	if f == nil {
		return CustomPacketInvalidFriend
	}
	dev, ok := primaryOnlineDevice(f)
	if !ok {
		return CustomPacketNotConnected
	}
	if rtpCode < 0 || rtpCode >= wire.PacketLossyAVSize {
		return CustomPacketBadID
	}
	id := byte(wire.PacketLossyAVReserved + rtpCode)
	packet := append([]byte{id}, data...)
	if len(packet) > wire.RLRSize+wire.RLRStart {
		return CustomPacketBadLength
	}
	if err := c.Crypto.SendLossyCryptPacket(dev.ConnID, packet); err != nil {
		return CustomPacketSendFailed
	}
	return nil
}

// SendCustomPacket sends an application-defined reliable packet in the
// lossless ID range.
func (c *Core) SendCustomPacket(friendIdx int, id byte, data []byte) error {
	f := c.Roster.Get(friendIdx)
	if f == nil {
		return CustomPacketInvalidFriend
	}
	if int(id) < wire.LLRStart || int(id) >= wire.LLRStart+wire.LLRSize {
		return CustomPacketBadID
	}
	dev, ok := primaryOnlineDevice(f)
	if !ok {
		return CustomPacketNotConnected
	}
	packet := append([]byte{id}, data...)
	if _, err := c.sendInBand(friendIdx, dev, packet); err != nil {
		return CustomPacketSendFailed
	}
	return nil
}
