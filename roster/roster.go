// Package roster implements the friend table: a dense indexed collection
// of friends, each with one or more devices, plus a fast public-key
// lookup index. The table owns no transport state; callers (the root
// package's Core) drive state transitions and own send/receive logic.
package roster

import (
	"math/rand"
	"time"

	"github.com/dchest/siphash"

	"github.com/dlazar-im/toxcore/errors"
)

// FriendStatus is the lifecycle state of a Friend.
type FriendStatus int

const (
	FriendNone FriendStatus = iota
	FriendAdded
	FriendRequested
	FriendConfirmed
	FriendOnline
)

// DeviceStatus is the lifecycle state of a Device.
type DeviceStatus int

const (
	DeviceNone DeviceStatus = iota
	DevicePending
	DeviceConfirmed
	DeviceOnline
)

// ConnectionKind is the transport kind last reported for an online friend.
type ConnectionKind int

const (
	ConnNone ConnectionKind = iota
	ConnTCP
	ConnUDP
	ConnUnknown
)

// UserStatus is a friend's or our own published presence.
type UserStatus int

const (
	StatusNone UserStatus = iota
	StatusAway
	StatusBusy
)

const (
	MaxNameLength          = 128
	MaxStatusMessageLength = 1007
	MaxFriendRequestData   = 1016
	MaxConcurrentFilePipes = 32
)

// Device is one public-key-addressable endpoint belonging to a Friend.
type Device struct {
	Status    DeviceStatus
	PublicKey [32]byte
	ConnID    uint32 // opaque handle from FriendConn; 0 means none
}

// Friend is one roster entry: an identity made of one or more devices,
// plus cached profile and outbound friend-request state. Receipt queues
// and file transfers are kept outside the roster (see below).
type Friend struct {
	Status  FriendStatus
	Devices []Device

	Name               string
	StatusMessage      string
	UserStatus         UserStatus
	IsTyping           bool
	NameSent           bool
	StatusMessageSent  bool
	UserStatusSent     bool
	TypingSent         bool

	Info           []byte
	InfoSize       int
	RequestNospam  uint32
	RequestLastSent time.Time
	RequestTimeout time.Duration

	MessageID uint32

	LastConnectionKind ConnectionKind
	LastSeenTime       time.Time

	// Slots for outgoing/incoming file transfers are owned by the
	// transfer package; the root Core keeps one transfer.Engine per
	// Friend slot rather than embedding it here, so this package stays
	// free of a dependency on transfer.
}

// PrimaryKey returns the public key of the friend's primary (first)
// device. Callers must only call this when len(Devices) > 0, which
// holds whenever Status != FriendNone.
func (f *Friend) PrimaryKey() [32]byte {
	return f.Devices[0].PublicKey
}

// Online reports whether any device of f is online.
func (f *Friend) Online() bool {
	for _, d := range f.Devices {
		if d.Status == DeviceOnline {
			return true
		}
	}
	return false
}

// ClearResyncFlags clears the four profile resync flags, done on every
// online transition so the peer receives one fresh copy of each.
func (f *Friend) ClearResyncFlags() {
	f.NameSent = false
	f.StatusMessageSent = false
	f.UserStatusSent = false
	f.TypingSent = false
}

var (
	ErrInvalid      = errors.New("roster: invalid friend index")
	ErrNoMem        = errors.New("roster: allocation failed")
	ErrOwnKey       = errors.New("roster: cannot add self as friend")
	ErrAlreadySent  = errors.New("roster: friend already exists")
	ErrBadChecksum  = errors.New("roster: bad address checksum")
)

// Table is the dense friend array plus a siphash-keyed secondary index
// from public key to (friend index, device index). The index exists so
// lookup_by_pk does not force a linear scan over every device of every
// friend on each inbound packet; siphash (keyed with a random per-table
// secret) rather than a bare byte-slice map key avoids an attacker who
// controls many public keys (unsolicited friend requests) degrading the
// index into a hash-flooding denial of service.
type Table struct {
	friends  []*Friend
	siphashK0 uint64
	siphashK1 uint64
	index    map[uint64][]location
}

type location struct {
	friendIdx int
	deviceIdx int
}

// New creates an empty friend table.
func New() *Table {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &Table{
		siphashK0: r.Uint64(),
		siphashK1: r.Uint64(),
		index:     make(map[uint64][]location),
	}
}

func (t *Table) keyHash(pk [32]byte) uint64 {
	return siphash.Hash(t.siphashK0, t.siphashK1, pk[:])
}

// Exists reports whether idx names a live friend slot.
func (t *Table) Exists(idx int) bool {
	return idx >= 0 && idx < len(t.friends) && t.friends[idx] != nil && t.friends[idx].Status != FriendNone
}

// Get returns the friend at idx, or nil if the slot is free.
func (t *Table) Get(idx int) *Friend {
	if idx < 0 || idx >= len(t.friends) {
		return nil
	}
	return t.friends[idx]
}

// Len returns the current size of the dense array (including any free
// holes not yet reclaimed from the tail).
func (t *Table) Len() int {
	return len(t.friends)
}

// LookupByPublicKey returns the friend and device index owning pk, or
// ok=false if no device in the table has that key.
func (t *Table) LookupByPublicKey(pk [32]byte) (friendIdx, deviceIdx int, ok bool) {
	h := t.keyHash(pk)
	for _, loc := range t.index[h] {
		f := t.friends[loc.friendIdx]
		if f == nil || loc.deviceIdx >= len(f.Devices) {
			continue
		}
		if f.Devices[loc.deviceIdx].PublicKey == pk {
			return loc.friendIdx, loc.deviceIdx, true
		}
	}
	return 0, 0, false
}

func (t *Table) addIndex(pk [32]byte, friendIdx, deviceIdx int) {
	h := t.keyHash(pk)
	t.index[h] = append(t.index[h], location{friendIdx, deviceIdx})
}

func (t *Table) removeIndex(pk [32]byte, friendIdx, deviceIdx int) {
	h := t.keyHash(pk)
	locs := t.index[h]
	for i, loc := range locs {
		if loc.friendIdx == friendIdx && loc.deviceIdx == deviceIdx {
			t.index[h] = append(locs[:i], locs[i+1:]...)
			break
		}
	}
	if len(t.index[h]) == 0 {
		delete(t.index, h)
	}
}

// firstFreeSlot scans from index 0 for the first free slot, per the
// slot-reuse policy in spec.md section 4.2.
func (t *Table) firstFreeSlot() int {
	for i, f := range t.friends {
		if f == nil || f.Status == FriendNone {
			return i
		}
	}
	return -1
}

// Insert places friend into the first free slot, growing the table only
// if none exists, and returns the resulting index.
func (t *Table) Insert(friend *Friend) int {
	idx := t.firstFreeSlot()
	if idx == -1 {
		idx = len(t.friends)
		t.friends = append(t.friends, friend)
	} else {
		t.friends[idx] = friend
	}
	for devIdx, d := range friend.Devices {
		t.addIndex(d.PublicKey, idx, devIdx)
	}
	return idx
}

// AddDevice appends a device to the friend at idx and indexes its key.
// Returns the new device index.
func (t *Table) AddDevice(idx int, dev Device) (int, error) {
	f := t.Get(idx)
	if f == nil {
		return 0, ErrInvalid
	}
	f.Devices = append(f.Devices, dev)
	devIdx := len(f.Devices) - 1
	t.addIndex(dev.PublicKey, idx, devIdx)
	return devIdx, nil
}

// Remove frees the friend slot at idx, removing all of its devices from
// the index, then shrinks the dense array from the tail while the last
// entries are free.
func (t *Table) Remove(idx int) error {
	f := t.Get(idx)
	if f == nil {
		return ErrInvalid
	}
	for devIdx, d := range f.Devices {
		t.removeIndex(d.PublicKey, idx, devIdx)
	}
	t.friends[idx] = nil

	for len(t.friends) > 0 && t.friends[len(t.friends)-1] == nil {
		t.friends = t.friends[:len(t.friends)-1]
	}
	return nil
}

// All returns the indices of the live (non-nil, non-None) friends in
// ascending order, for enumeration by the tick loop and by persistence.
func (t *Table) All() []int {
	idxs := make([]int, 0, len(t.friends))
	for i, f := range t.friends {
		if f != nil && f.Status != FriendNone {
			idxs = append(idxs, i)
		}
	}
	return idxs
}
