package toxcore

import (
	"time"

	"github.com/dlazar-im/toxcore/identity"
	"github.com/dlazar-im/toxcore/log"
	"github.com/dlazar-im/toxcore/roster"
	"github.com/dlazar-im/toxcore/wire"
)

// defaultFriendRequestTimeout is FRIENDREQUEST_TIMEOUT; spec.md leaves the
// exact value implementation-defined ("e.g. 5 [seconds]").
const defaultFriendRequestTimeout = 5 * time.Second

func decodeAddress(raw [identity.AddressSize]byte) (identity.Address, error) {
	return identity.Decode(raw[:])
}

// AddFriend adds a friend by address (public key, nospam, checksum) with
// a pending friend request carrying a 1..MaxFriendRequestData-byte
// greeting; the request itself is sent by the next Tick.
func (c *Core) AddFriend(address [identity.AddressSize]byte, greeting []byte) (int, error) {
	if len(greeting) == 0 {
		return 0, AddFriendNoMessage
	}
	if len(greeting) > roster.MaxFriendRequestData {
		return 0, AddFriendTooLong
	}
	addr, err := decodeAddress(address)
	if err != nil {
		return 0, AddFriendBadChecksum
	}
	if addr.PublicKey == c.PublicKey {
		return 0, AddFriendOwnKey
	}

	if friendIdx, deviceIdx, ok := c.Roster.LookupByPublicKey(addr.PublicKey); ok {
		f := c.Roster.Get(friendIdx)
		if deviceIdx != 0 {
			return 0, AddFriendAlreadySent
		}
		if f.RequestNospam != addr.Nospam {
			f.RequestNospam = addr.Nospam
			return friendIdx, AddFriendSetNewNospam
		}
		return 0, AddFriendAlreadySent
	}

	f := &roster.Friend{
		Status:         roster.FriendAdded,
		Devices:        []roster.Device{{Status: roster.DevicePending, PublicKey: addr.PublicKey}},
		Info:           append([]byte(nil), greeting...),
		InfoSize:       len(greeting),
		RequestNospam:  addr.Nospam,
		RequestTimeout: defaultFriendRequestTimeout,
	}
	idx := c.Roster.Insert(f)
	c.Logger.WithFields(log.Fields{"friend": idx}).Info("friend added, pending request")
	return idx, nil
}

// AddFriendNoRequest records a friend as already-confirmed without
// sending a request, for identities exchanged out of band.
func (c *Core) AddFriendNoRequest(publicKey [32]byte) (int, error) {
	if err := identity.ValidateKey(publicKey); err != nil {
		return 0, AddFriendBadChecksum
	}
	if publicKey == c.PublicKey {
		return 0, AddFriendOwnKey
	}
	if _, _, ok := c.Roster.LookupByPublicKey(publicKey); ok {
		return 0, AddFriendAlreadySent
	}

	f := &roster.Friend{
		Status:  roster.FriendConfirmed,
		Devices: []roster.Device{{Status: roster.DeviceConfirmed, PublicKey: publicKey}},
	}
	idx := c.Roster.Insert(f)
	c.Logger.WithFields(log.Fields{"friend": idx}).Info("friend added without request")
	return idx, nil
}

// AddDevice records an additional device identity for an existing,
// already-confirmed friend.
//
// Resolved open question: add_device against a friend that has not yet
// reached Confirmed (i.e. still Added or Requested) returns Invalid,
// since such a friend has no accepted identity to extend yet.
func (c *Core) AddDevice(friendIdx int, address [identity.AddressSize]byte) (int, error) {
	f := c.Roster.Get(friendIdx)
	if f == nil || f.Status < roster.FriendConfirmed {
		return 0, AddFriendInvalid
	}
	addr, err := decodeAddress(address)
	if err != nil {
		return 0, AddFriendBadChecksum
	}
	if addr.PublicKey == c.PublicKey {
		return 0, AddFriendOwnKey
	}
	if _, _, ok := c.Roster.LookupByPublicKey(addr.PublicKey); ok {
		return 0, AddFriendAlreadySent
	}
	if f.RequestNospam != addr.Nospam {
		f.RequestNospam = addr.Nospam
	}

	devIdx, rerr := c.Roster.AddDevice(friendIdx, roster.Device{Status: roster.DevicePending, PublicKey: addr.PublicKey})
	if rerr != nil {
		return 0, AddFriendInvalid
	}
	return devIdx, nil
}

// RemoveFriend frees a friend's receipts and file transfers, sends an
// OFFLINE packet and tears down its device connections if currently
// connected, then removes it from the roster.
func (c *Core) RemoveFriend(friendIdx int) error {
	f := c.Roster.Get(friendIdx)
	if f == nil {
		return roster.ErrInvalid
	}

	if rt, ok := c.runtime[friendIdx]; ok {
		rt.transfers.BreakAll()
		rt.receipts.Clear()
		delete(c.runtime, friendIdx)
	}

	for _, d := range f.Devices {
		if d.Status == roster.DeviceOnline && d.ConnID != 0 {
			c.sendInBand(friendIdx, &d, []byte{byte(wire.IDOffline)})
			c.Conn.KillConn(d.ConnID)
		}
	}

	return c.Roster.Remove(friendIdx)
}
